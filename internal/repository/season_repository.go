package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enroll-api/internal/models"
)

// SeasonRepository handles persistence of seasons.
type SeasonRepository struct {
	db *sqlx.DB
}

// NewSeasonRepository constructs the repository.
func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

const seasonColumns = "id, code, title, enrollment_open, enrollment_close, created_at, updated_at"

// List returns seasons ordered by enrollment_open descending.
func (r *SeasonRepository) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM seasons ORDER BY enrollment_open DESC LIMIT %d OFFSET %d`, seasonColumns, size, offset)
	var seasons []models.Season
	if err := r.db.SelectContext(ctx, &seasons, query); err != nil {
		return nil, 0, fmt.Errorf("list seasons: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM seasons"); err != nil {
		return nil, 0, fmt.Errorf("count seasons: %w", err)
	}
	return seasons, total, nil
}

// FindByID returns a season by its identifier.
func (r *SeasonRepository) FindByID(ctx context.Context, id int64) (*models.Season, error) {
	query := fmt.Sprintf(`SELECT %s FROM seasons WHERE id = $1`, seasonColumns)
	var season models.Season
	if err := r.db.GetContext(ctx, &season, query, id); err != nil {
		return nil, err
	}
	return &season, nil
}

// FindByCode returns a season by its unique code.
func (r *SeasonRepository) FindByCode(ctx context.Context, code string) (*models.Season, error) {
	query := fmt.Sprintf(`SELECT %s FROM seasons WHERE code = $1`, seasonColumns)
	var season models.Season
	if err := r.db.GetContext(ctx, &season, query, code); err != nil {
		return nil, err
	}
	return &season, nil
}

// ExistsByCode checks code uniqueness, optionally excluding one season.
func (r *SeasonRepository) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM seasons WHERE code = $1"
	args := []interface{}{code}
	if excludeID != 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check season code: %w", err)
	}
	return true, nil
}

// Create inserts a new season and assigns the generated identifier.
func (r *SeasonRepository) Create(ctx context.Context, season *models.Season) error {
	now := time.Now().UTC()
	if season.CreatedAt.IsZero() {
		season.CreatedAt = now
	}
	season.UpdatedAt = now

	const query = `INSERT INTO seasons (code, title, enrollment_open, enrollment_close, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &season.ID, query,
		season.Code, season.Title, season.EnrollmentOpen, season.EnrollmentClose, season.CreatedAt, season.UpdatedAt); err != nil {
		return fmt.Errorf("create season: %w", err)
	}
	return nil
}

// Update modifies an existing season.
func (r *SeasonRepository) Update(ctx context.Context, season *models.Season) error {
	season.UpdatedAt = time.Now().UTC()
	const query = `UPDATE seasons SET code = :code, title = :title, enrollment_open = :enrollment_open, enrollment_close = :enrollment_close, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, season); err != nil {
		return fmt.Errorf("update season: %w", err)
	}
	return nil
}

// Delete removes a season permanently.
func (r *SeasonRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM seasons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete season: %w", err)
	}
	return nil
}
