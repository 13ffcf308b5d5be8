package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/pkg/config"
	"github.com/noah-isme/course-enroll-api/pkg/jobs"
)

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records admission outcomes asynchronously. The write runs on
// a worker queue so it never joins (or delays) the admission transaction.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs the service and its backing queue. Call Start
// before recording and Stop on shutdown.
func NewAuditService(writer auditLogWriter, cfg config.AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AuditService{logger: logger}
	svc.queue = jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		log, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected audit payload type %T", job.Payload)
		}
		return writer.CreateAuditLog(ctx, log)
	}, jobs.Options{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// RecordAdmission enqueues an audit entry for an admission outcome.
func (s *AuditService) RecordAdmission(userID int64, result models.AdmissionResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode admission audit", zap.Error(err))
		return
	}
	resourceID := fmt.Sprintf("%d", result.EnrollmentID)
	log := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &userID,
		Action:     models.AuditActionAdmission,
		Resource:   "enrollment",
		ResourceID: &resourceID,
		NewValues:  payload,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: log.ID, Kind: models.AuditActionAdmission, Payload: log}); err != nil {
		s.logger.Warn("failed to enqueue admission audit", zap.Error(err))
	}
}
