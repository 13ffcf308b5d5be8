package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/export"
)

type reportSeasonReader interface {
	FindByCode(ctx context.Context, code string) (*models.Season, error)
}

type reportEnrollmentReader interface {
	Report(ctx context.Context, seasonID int64) ([]models.EnrollmentReportRow, error)
}

// ReportService serves read-only enrollment projections. Report reads are
// not serialized against admissions; slight staleness is acceptable here,
// which is why the season report may be cached.
type ReportService struct {
	seasons     reportSeasonReader
	enrollments reportEnrollmentReader
	cache       *redis.Client
	cacheTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewReportService constructs ReportService. cache and metrics may be nil.
func NewReportService(seasons reportSeasonReader, enrollments reportEnrollmentReader, cache *redis.Client, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		seasons:     seasons,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

// EnrollmentReport aggregates one report row per course of the season,
// course-code ascending, including all-zero rows for untouched courses.
func (s *ReportService) EnrollmentReport(ctx context.Context, seasonCode string) ([]models.EnrollmentReportRow, error) {
	cacheKey := "report:enrollment:" + seasonCode
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var rows []models.EnrollmentReportRow
			if err := json.Unmarshal(cached, &rows); err == nil {
				s.metrics.RecordCacheLookup(true)
				return rows, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	season, err := s.seasons.FindByCode(ctx, seasonCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load season")
	}

	rows, err := s.enrollments.Report(ctx, season.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate enrollments")
	}

	for i := range rows {
		seatsLeft := rows[i].Capacity - (rows[i].Active + rows[i].Pending)
		if seatsLeft < 0 {
			seatsLeft = 0
		}
		rows[i].SeatsLeft = seatsLeft
	}

	if s.cache != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("report cache write failed", zap.Error(err))
			}
		}
	}

	return rows, nil
}

var reportColumns = []string{"Course ID", "Code", "Title", "Capacity", "Active", "Pending", "Waitlisted", "Completed", "Cancelled", "Seats Left"}

func reportTable(seasonCode string, rows []models.EnrollmentReportRow) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Enrollment report %s", seasonCode),
		Columns: reportColumns,
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(row.CourseID, 10),
			row.Code,
			row.Title,
			strconv.Itoa(row.Capacity),
			strconv.Itoa(row.Active),
			strconv.Itoa(row.Pending),
			strconv.Itoa(row.Waitlisted),
			strconv.Itoa(row.Completed),
			strconv.Itoa(row.Cancelled),
			strconv.Itoa(row.SeatsLeft),
		})
	}
	return table
}

// ExportCSV renders the season report as CSV bytes.
func (s *ReportService) ExportCSV(ctx context.Context, seasonCode string) ([]byte, error) {
	rows, err := s.EnrollmentReport(ctx, seasonCode)
	if err != nil {
		return nil, err
	}
	payload, err := export.CSV(reportTable(seasonCode, rows))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportPDF renders the season report as a tabular PDF.
func (s *ReportService) ExportPDF(ctx context.Context, seasonCode string) ([]byte, error) {
	rows, err := s.EnrollmentReport(ctx, seasonCode)
	if err != nil {
		return nil, err
	}
	payload, err := export.PDF(reportTable(seasonCode, rows))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}
