package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type mockSeasonRepo struct {
	seasons    map[int64]*models.Season
	codeExists bool
	nextID     int64
	deleted    []int64
}

func newMockSeasonRepo() *mockSeasonRepo {
	return &mockSeasonRepo{seasons: make(map[int64]*models.Season)}
}

func (m *mockSeasonRepo) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error) {
	out := make([]models.Season, 0, len(m.seasons))
	for _, s := range m.seasons {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockSeasonRepo) FindByID(ctx context.Context, id int64) (*models.Season, error) {
	season, ok := m.seasons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return season, nil
}

func (m *mockSeasonRepo) FindByCode(ctx context.Context, code string) (*models.Season, error) {
	for _, s := range m.seasons {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSeasonRepo) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	return m.codeExists, nil
}

func (m *mockSeasonRepo) Create(ctx context.Context, season *models.Season) error {
	m.nextID++
	season.ID = m.nextID
	m.seasons[season.ID] = season
	return nil
}

func (m *mockSeasonRepo) Update(ctx context.Context, season *models.Season) error {
	m.seasons[season.ID] = season
	return nil
}

func (m *mockSeasonRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.seasons, id)
	return nil
}

func seasonRequest() SeasonRequest {
	return SeasonRequest{
		Code:            "2026-spring",
		Title:           "Spring 2026",
		EnrollmentOpen:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentClose: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSeasonCreate(t *testing.T) {
	repo := newMockSeasonRepo()
	svc := NewSeasonService(repo, nil, nil)

	season, err := svc.Create(context.Background(), seasonRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), season.ID)
	assert.Equal(t, "2026-spring", season.Code)
}

func TestSeasonCreateDuplicateCode(t *testing.T) {
	repo := newMockSeasonRepo()
	repo.codeExists = true
	svc := NewSeasonService(repo, nil, nil)

	_, err := svc.Create(context.Background(), seasonRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSeasonWindowMustBeOrdered(t *testing.T) {
	repo := newMockSeasonRepo()
	svc := NewSeasonService(repo, nil, nil)

	req := seasonRequest()
	req.EnrollmentClose = req.EnrollmentOpen
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.EnrollmentClose = req.EnrollmentOpen.Add(-time.Hour)
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
}

func TestSeasonUpdate(t *testing.T) {
	repo := newMockSeasonRepo()
	svc := NewSeasonService(repo, nil, nil)

	created, err := svc.Create(context.Background(), seasonRequest())
	require.NoError(t, err)

	req := seasonRequest()
	req.Title = "Spring 2026 (extended)"
	req.EnrollmentClose = req.EnrollmentClose.Add(7 * 24 * time.Hour)

	updated, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Spring 2026 (extended)", updated.Title)
}

func TestSeasonGetNotFound(t *testing.T) {
	svc := NewSeasonService(newMockSeasonRepo(), nil, nil)

	_, err := svc.Get(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.GetByCode(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSeasonDelete(t *testing.T) {
	repo := newMockSeasonRepo()
	svc := NewSeasonService(repo, nil, nil)

	created, err := svc.Create(context.Background(), seasonRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Equal(t, []int64{created.ID}, repo.deleted)

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
}
