package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enroll-api/internal/service"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/response"
)

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// EnrollmentReport godoc
// @Summary Per-course enrollment counts for a season
// @Description Returns per-course status counts and remaining seats.
// @Description Pass format=csv or format=pdf to download an export.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param season query string true "Season code"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/enrollment [get]
func (h *ReportHandler) EnrollmentReport(c *gin.Context) {
	season := strings.TrimSpace(c.Query("season"))
	if season == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "season required"))
		return
	}

	switch strings.ToLower(c.Query("format")) {
	case "":
		report, err := h.reports.EnrollmentReport(c.Request.Context(), season)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, report, nil)
	case "csv":
		body, err := h.reports.ExportCSV(c.Request.Context(), season)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, fmt.Sprintf("enrollment-%s.csv", season), "text/csv", body)
	case "pdf":
		body, err := h.reports.ExportPDF(c.Request.Context(), season)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, fmt.Sprintf("enrollment-%s.pdf", season), "application/pdf", body)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
