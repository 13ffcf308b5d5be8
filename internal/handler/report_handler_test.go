package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/service"
)

type stubSeasonReader struct {
	season *models.Season
}

func (s *stubSeasonReader) FindByCode(ctx context.Context, code string) (*models.Season, error) {
	if s.season == nil || s.season.Code != code {
		return nil, sql.ErrNoRows
	}
	return s.season, nil
}

type stubReportReader struct {
	rows []models.EnrollmentReportRow
}

func (s *stubReportReader) Report(ctx context.Context, seasonID int64) ([]models.EnrollmentReportRow, error) {
	return s.rows, nil
}

func newReportHandlerForTest(rows []models.EnrollmentReportRow) *ReportHandler {
	seasons := &stubSeasonReader{season: &models.Season{
		ID:              1,
		Code:            "2026-spring",
		Title:           "Spring 2026",
		EnrollmentOpen:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentClose: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	svc := service.NewReportService(seasons, &stubReportReader{rows: rows}, nil, 0, nil, nil)
	return NewReportHandler(svc)
}

func newReportContext(t *testing.T, query string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/reports/enrollment"+query, nil)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func TestReportHandlerJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportHandlerForTest([]models.EnrollmentReportRow{
		{CourseID: 10, Code: "GO-101", Title: "Basics", Capacity: 5, Active: 3, Pending: 1, Waitlisted: 2, Cancelled: 1},
	})

	c, w := newReportContext(t, "?season=2026-spring")
	handler.EnrollmentReport(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.EnrollmentReportRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, 1, envelope.Data[0].SeatsLeft)
}

func TestReportHandlerMissingSeason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportHandlerForTest(nil)

	for _, query := range []string{"", "?season=", "?season=%20%20"} {
		c, w := newReportContext(t, query)
		handler.EnrollmentReport(c)
		require.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
	}
}

func TestReportHandlerUnknownSeason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportHandlerForTest(nil)

	c, w := newReportContext(t, "?season=1999-winter")
	handler.EnrollmentReport(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerCSVExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportHandlerForTest([]models.EnrollmentReportRow{
		{CourseID: 10, Code: "GO-101", Title: "Basics", Capacity: 5},
	})

	c, w := newReportContext(t, "?season=2026-spring&format=csv")
	handler.EnrollmentReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "enrollment-2026-spring.csv")
	require.True(t, strings.Contains(w.Body.String(), "GO-101"))
}

func TestReportHandlerBadFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportHandlerForTest(nil)

	c, w := newReportContext(t, "?season=2026-spring&format=xlsx")
	handler.EnrollmentReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
