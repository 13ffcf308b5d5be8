package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/service"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/response"
)

// SeasonHandler handles season catalog endpoints.
type SeasonHandler struct {
	service *service.SeasonService
}

// NewSeasonHandler creates a new season handler.
func NewSeasonHandler(svc *service.SeasonService) *SeasonHandler {
	return &SeasonHandler{service: svc}
}

// List godoc
// @Summary List seasons
// @Tags Seasons
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /seasons [get]
func (h *SeasonHandler) List(c *gin.Context) {
	var filter models.SeasonFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	seasons, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, seasons, pagination)
}

// Get godoc
// @Summary Get season
// @Description Looks up a season by numeric id, or by its unique code when
// @Description the path segment is not a number.
// @Tags Seasons
// @Produce json
// @Param id path string true "Season ID or code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /seasons/{id} [get]
func (h *SeasonHandler) Get(c *gin.Context) {
	var (
		season *models.Season
		err    error
	)
	if id, ok := idParam(c, "id"); ok {
		season, err = h.service.Get(c.Request.Context(), id)
	} else {
		season, err = h.service.GetByCode(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, season, nil)
}

// Create godoc
// @Summary Create season
// @Tags Seasons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SeasonRequest true "Season payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /seasons [post]
func (h *SeasonHandler) Create(c *gin.Context) {
	var req service.SeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	season, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, season)
}

// Update godoc
// @Summary Update season
// @Tags Seasons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Season ID"
// @Param payload body service.SeasonRequest true "Season payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /seasons/{id} [put]
func (h *SeasonHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid season id"))
		return
	}

	var req service.SeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	season, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, season, nil)
}

// Delete godoc
// @Summary Delete season
// @Tags Seasons
// @Security BearerAuth
// @Param id path int true "Season ID"
// @Success 204 {object} nil
// @Failure 404 {object} response.Envelope
// @Router /seasons/{id} [delete]
func (h *SeasonHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid season id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
