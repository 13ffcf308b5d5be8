package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/repository"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type admissionStore interface {
	RunAdmission(ctx context.Context, fn func(tx repository.AdmissionTx) error) error
	ListByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error)
}

type admissionAuditor interface {
	RecordAdmission(userID int64, result models.AdmissionResult)
}

// EnrollRequest describes an admission attempt payload.
type EnrollRequest struct {
	CourseID  int64  `json:"courseId" validate:"required,gt=0"`
	SectionID *int64 `json:"sectionId,omitempty" validate:"omitempty,gt=0"`
}

// EnrollmentService owns the admission transaction: it alone creates
// enrollment rows and decides pending versus waitlisted under concurrency.
type EnrollmentService struct {
	store      admissionStore
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	auditor    admissionAuditor
	maxRetries int
	now        func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. metrics and auditor may
// be nil; maxRetries bounds whole-operation retries after serialization
// aborts.
func NewEnrollmentService(store admissionStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, auditor admissionAuditor, maxRetries int) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &EnrollmentService{
		store:      store,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		auditor:    auditor,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Enroll runs the admission transaction for one user and course. The whole
// body executes inside a single serializable transaction; on a serialization
// abort the attempt restarts from the course read so every decision is taken
// under a fresh snapshot.
func (s *EnrollmentService) Enroll(ctx context.Context, userID int64, req EnrollRequest) (*models.AdmissionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	var result *models.AdmissionResult
	var err error
	for attempt := 0; ; attempt++ {
		result, err = s.admit(ctx, userID, req)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrSerialization) && attempt < s.maxRetries {
			s.metrics.IncTxConflict()
			s.logger.Warn("admission serialization conflict, retrying",
				zap.Int64("user_id", userID),
				zap.Int64("course_id", req.CourseID),
				zap.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, repository.ErrSerialization) {
			return nil, appErrors.Wrap(err, appErrors.ErrTxConflict.Code, appErrors.ErrTxConflict.Status, "enrollment aborted by concurrent contention")
		}
		return nil, err
	}

	s.metrics.ObserveAdmission(result.Status)
	if s.auditor != nil {
		s.auditor.RecordAdmission(userID, *result)
	}
	s.logger.Info("enrollment admitted",
		zap.Int64("user_id", userID),
		zap.Int64("course_id", req.CourseID),
		zap.String("status", string(result.Status)),
		zap.Int("seats_left", result.SeatsLeft))
	return result, nil
}

// admit is one transactional admission attempt.
func (s *EnrollmentService) admit(ctx context.Context, userID int64, req EnrollRequest) (*models.AdmissionResult, error) {
	var result *models.AdmissionResult

	err := s.store.RunAdmission(ctx, func(tx repository.AdmissionTx) error {
		course, err := tx.LockCourse(ctx, req.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}

		if !course.WindowContains(s.now()) {
			return appErrors.Clone(appErrors.ErrWindowClosed, "enrollment window is closed for this course")
		}

		if req.SectionID != nil {
			owner, err := tx.SectionCourse(ctx, *req.SectionID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrInvalidSection, "section not found")
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
			}
			if owner != req.CourseID {
				return appErrors.Clone(appErrors.ErrInvalidSection, "section does not belong to the selected course")
			}
		}

		existing, err := tx.FindUserEnrollment(ctx, userID, req.CourseID)
		switch {
		case err == nil:
			if existing.Status.BlocksReenrollment() {
				return appErrors.Clone(appErrors.ErrDuplicateEnrollment, "user is already enrolled in this course")
			}
			// Cancelled row: delete it so the unique (user, course) slot is
			// free for the fresh attempt.
			if err := tx.DeleteEnrollment(ctx, existing.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to supersede cancelled enrollment")
			}
		case errors.Is(err, sql.ErrNoRows):
			// first attempt for this pair
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		}

		committed, err := tx.CountCommitted(ctx, req.CourseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count committed seats")
		}

		// Strictly greater than zero: a course at exact capacity waitlists
		// the next entrant.
		status := models.EnrollmentStatusWaitlisted
		if course.Capacity-committed > 0 {
			status = models.EnrollmentStatusPending
		}

		enrollment := &models.Enrollment{
			UserID:    userID,
			CourseID:  req.CourseID,
			SectionID: req.SectionID,
			Status:    status,
		}
		if err := tx.Insert(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert enrollment")
		}

		// Seats left is re-queried after the insert rather than derived
		// arithmetically, so the returned value always reflects the
		// authoritative row counts of this snapshot.
		committedAfter, err := tx.CountCommitted(ctx, req.CourseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recount committed seats")
		}
		seatsLeft := course.Capacity - committedAfter
		if seatsLeft < 0 {
			seatsLeft = 0
		}

		result = &models.AdmissionResult{
			EnrollmentID: enrollment.ID,
			Status:       status,
			SeatsLeft:    seatsLeft,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MyEnrollments returns the caller's enrollments, most recent first.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, userID int64) ([]models.MyEnrollment, error) {
	details, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	out := make([]models.MyEnrollment, 0, len(details))
	for _, d := range details {
		out = append(out, d.View())
	}
	return out, nil
}
