package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-enroll-api/internal/models"
)

// ErrSerialization marks a transaction aborted by Postgres due to
// concurrent contention. Callers retry the whole admission from scratch;
// partial retries would reuse reads from a dead snapshot.
var ErrSerialization = errors.New("admission transaction serialization conflict")

// AdmissionTx exposes the statements an admission attempt runs inside one
// serializable transaction. The course row lock taken by LockCourse
// serializes concurrent attempts for the same course.
type AdmissionTx interface {
	LockCourse(ctx context.Context, courseID int64) (*models.CourseSeatState, error)
	SectionCourse(ctx context.Context, sectionID int64) (int64, error)
	FindUserEnrollment(ctx context.Context, userID, courseID int64) (*models.Enrollment, error)
	DeleteEnrollment(ctx context.Context, id int64) error
	CountCommitted(ctx context.Context, courseID int64) (int, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// RunAdmission executes fn inside a serializable transaction, committing on
// success and rolling back on any error. Serialization aborts surface as
// ErrSerialization so callers can retry the whole attempt.
func (r *EnrollmentRepository) RunAdmission(ctx context.Context, fn func(tx AdmissionTx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin admission tx: %w", err)
	}

	if err := fn(&admissionTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return normalizeSerialization(err)
	}

	if err := tx.Commit(); err != nil {
		return normalizeSerialization(fmt.Errorf("commit admission tx: %w", err))
	}
	return nil
}

// normalizeSerialization maps Postgres serialization_failure (40001) and
// deadlock_detected (40P01) onto ErrSerialization.
func normalizeSerialization(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
	}
	return err
}

type admissionTx struct {
	tx *sqlx.Tx
}

// LockCourse loads the course together with its season window and takes a
// row lock on the course for the remainder of the transaction.
func (t *admissionTx) LockCourse(ctx context.Context, courseID int64) (*models.CourseSeatState, error) {
	const query = `SELECT c.id, c.capacity, c.season_id, s.enrollment_open, s.enrollment_close
        FROM courses c
        JOIN seasons s ON s.id = c.season_id
        WHERE c.id = $1
        FOR UPDATE OF c`
	var state models.CourseSeatState
	if err := t.tx.GetContext(ctx, &state, query, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	return &state, nil
}

// SectionCourse returns the owning course id of a section.
func (t *admissionTx) SectionCourse(ctx context.Context, sectionID int64) (int64, error) {
	var courseID int64
	if err := t.tx.GetContext(ctx, &courseID, `SELECT course_id FROM sections WHERE id = $1`, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("load section: %w", err)
	}
	return courseID, nil
}

// FindUserEnrollment returns the enrollment for (user, course) if any.
func (t *admissionTx) FindUserEnrollment(ctx context.Context, userID, courseID int64) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, section_id, status, enrolled_at FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user enrollment: %w", err)
	}
	return &enrollment, nil
}

// DeleteEnrollment removes a superseded cancelled row.
func (t *admissionTx) DeleteEnrollment(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// CountCommitted counts the enrollments holding a seat for the course.
func (t *admissionTx) CountCommitted(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status IN ($2, $3)`
	var count int
	if err := t.tx.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusActive, models.EnrollmentStatusPending); err != nil {
		return 0, fmt.Errorf("count committed enrollments: %w", err)
	}
	return count, nil
}

// Insert persists the new enrollment row and assigns id and timestamp.
func (t *admissionTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (user_id, course_id, section_id, status, enrolled_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := t.tx.GetContext(ctx, &enrollment.ID, query,
		enrollment.UserID, enrollment.CourseID, enrollment.SectionID, enrollment.Status, enrollment.EnrolledAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// ListByUser returns a user's enrollments joined with course and section
// info, most recent first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.status, e.enrolled_at,
        c.id AS course_id, c.code AS course_code, c.title AS course_title,
        sec.id AS section_id, sec.title AS section_title
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        WHERE e.user_id = $1
        ORDER BY e.enrolled_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, userID); err != nil {
		return nil, fmt.Errorf("list user enrollments: %w", err)
	}
	return details, nil
}

// Report aggregates per-course status counts for every course of a season,
// course-code ascending. Courses without enrollments yield all-zero rows.
func (r *EnrollmentRepository) Report(ctx context.Context, seasonID int64) ([]models.EnrollmentReportRow, error) {
	const query = `SELECT c.id AS course_id, c.code, c.title, c.capacity,
        COUNT(e.id) FILTER (WHERE e.status = 'active') AS active,
        COUNT(e.id) FILTER (WHERE e.status = 'pending') AS pending,
        COUNT(e.id) FILTER (WHERE e.status = 'waitlisted') AS waitlisted,
        COUNT(e.id) FILTER (WHERE e.status = 'completed') AS completed,
        COUNT(e.id) FILTER (WHERE e.status = 'cancelled') AS cancelled
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE c.season_id = $1
        GROUP BY c.id, c.code, c.title, c.capacity
        ORDER BY c.code ASC`
	var rows []models.EnrollmentReportRow
	if err := r.db.SelectContext(ctx, &rows, query, seasonID); err != nil {
		return nil, fmt.Errorf("enrollment report: %w", err)
	}
	return rows, nil
}
