package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/service"
)

type stubSeasonStore struct {
	season *models.Season
}

func (s *stubSeasonStore) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error) {
	if s.season == nil {
		return nil, 0, nil
	}
	return []models.Season{*s.season}, 1, nil
}

func (s *stubSeasonStore) FindByID(ctx context.Context, id int64) (*models.Season, error) {
	if s.season == nil || s.season.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.season, nil
}

func (s *stubSeasonStore) FindByCode(ctx context.Context, code string) (*models.Season, error) {
	if s.season == nil || s.season.Code != code {
		return nil, sql.ErrNoRows
	}
	return s.season, nil
}

func (s *stubSeasonStore) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	return s.season != nil && s.season.Code == code && s.season.ID != excludeID, nil
}

func (s *stubSeasonStore) Create(ctx context.Context, season *models.Season) error {
	season.ID = 1
	s.season = season
	return nil
}

func (s *stubSeasonStore) Update(ctx context.Context, season *models.Season) error {
	s.season = season
	return nil
}

func (s *stubSeasonStore) Delete(ctx context.Context, id int64) error {
	if s.season == nil || s.season.ID != id {
		return sql.ErrNoRows
	}
	s.season = nil
	return nil
}

func newSeasonHandlerForTest() *SeasonHandler {
	store := &stubSeasonStore{season: &models.Season{
		ID:              1,
		Code:            "2026-spring",
		Title:           "Spring 2026",
		EnrollmentOpen:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentClose: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	return NewSeasonHandler(service.NewSeasonService(store, nil, nil))
}

func newSeasonGetContext(t *testing.T, param string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/seasons/"+param, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: param}}
	return c, w
}

func TestSeasonHandlerGetByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSeasonHandlerForTest()

	c, w := newSeasonGetContext(t, "1")
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.Season `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "2026-spring", envelope.Data.Code)
}

func TestSeasonHandlerGetByCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSeasonHandlerForTest()

	c, w := newSeasonGetContext(t, "2026-spring")
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.Season `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, int64(1), envelope.Data.ID)
}

func TestSeasonHandlerGetUnknownCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSeasonHandlerForTest()

	c, w := newSeasonGetContext(t, "1999-winter")
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
