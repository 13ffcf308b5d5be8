package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enroll-api/internal/middleware"
	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/repository"
	"github.com/noah-isme/course-enroll-api/internal/service"
)

type stubAdmissionTx struct {
	course       *models.CourseSeatState
	sectionOwner map[int64]int64
	existing     *models.Enrollment
	committed    int
	inserted     int
}

func (s *stubAdmissionTx) LockCourse(ctx context.Context, courseID int64) (*models.CourseSeatState, error) {
	if s.course == nil || s.course.ID != courseID {
		return nil, sql.ErrNoRows
	}
	return s.course, nil
}

func (s *stubAdmissionTx) SectionCourse(ctx context.Context, sectionID int64) (int64, error) {
	owner, ok := s.sectionOwner[sectionID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return owner, nil
}

func (s *stubAdmissionTx) FindUserEnrollment(ctx context.Context, userID, courseID int64) (*models.Enrollment, error) {
	if s.existing == nil {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

func (s *stubAdmissionTx) DeleteEnrollment(ctx context.Context, id int64) error {
	s.existing = nil
	return nil
}

func (s *stubAdmissionTx) CountCommitted(ctx context.Context, courseID int64) (int, error) {
	return s.committed + s.inserted, nil
}

func (s *stubAdmissionTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = 42
	if enrollment.Status.CountsAgainstCapacity() {
		s.inserted++
	}
	return nil
}

type stubAdmissionStore struct {
	tx          *stubAdmissionTx
	runErr      error
	enrollments []models.EnrollmentDetail
}

func (s *stubAdmissionStore) RunAdmission(ctx context.Context, fn func(tx repository.AdmissionTx) error) error {
	if s.runErr != nil {
		return s.runErr
	}
	return fn(s.tx)
}

func (s *stubAdmissionStore) ListByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error) {
	return s.enrollments, nil
}

func openCourse(id int64, capacity int) *models.CourseSeatState {
	return &models.CourseSeatState{
		ID:              id,
		Capacity:        capacity,
		SeasonID:        1,
		EnrollmentOpen:  time.Now().UTC().Add(-time.Hour),
		EnrollmentClose: time.Now().UTC().Add(time.Hour),
	}
}

func newEnrollmentContext(t *testing.T, body interface{}, authenticated bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(http.MethodPost, "/enrollments", reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	if authenticated {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7, Role: models.RoleStudent})
	}
	return c, w
}

func newEnrollmentHandlerForTest(store *stubAdmissionStore) *EnrollmentHandler {
	svc := service.NewEnrollmentService(store, nil, nil, nil, nil, 0)
	return NewEnrollmentHandler(svc)
}

func TestEnrollmentHandlerCreatePending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubAdmissionStore{tx: &stubAdmissionTx{course: openCourse(10, 2)}})

	c, w := newEnrollmentContext(t, map[string]int64{"courseId": 10}, true)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.AdmissionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, models.EnrollmentStatusPending, envelope.Data.Status)
	require.Equal(t, int64(42), envelope.Data.EnrollmentID)
	require.Equal(t, 1, envelope.Data.SeatsLeft)
}

func TestEnrollmentHandlerCreateWaitlisted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubAdmissionStore{
		tx: &stubAdmissionTx{course: openCourse(10, 2), committed: 2},
	})

	c, w := newEnrollmentContext(t, map[string]int64{"courseId": 10}, true)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.AdmissionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, models.EnrollmentStatusWaitlisted, envelope.Data.Status)
	require.Equal(t, 0, envelope.Data.SeatsLeft)
}

func TestEnrollmentHandlerStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	closedCourse := openCourse(10, 2)
	closedCourse.EnrollmentOpen = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	closedCourse.EnrollmentClose = time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		tx   *stubAdmissionTx
		body map[string]int64
		want int
	}{
		{
			name: "unknown course",
			tx:   &stubAdmissionTx{},
			body: map[string]int64{"courseId": 10},
			want: http.StatusNotFound,
		},
		{
			name: "window closed",
			tx:   &stubAdmissionTx{course: closedCourse},
			body: map[string]int64{"courseId": 10},
			want: http.StatusLocked,
		},
		{
			name: "foreign section",
			tx:   &stubAdmissionTx{course: openCourse(10, 2), sectionOwner: map[int64]int64{5: 11}},
			body: map[string]int64{"courseId": 10, "sectionId": 5},
			want: http.StatusBadRequest,
		},
		{
			name: "already enrolled",
			tx: &stubAdmissionTx{
				course:   openCourse(10, 2),
				existing: &models.Enrollment{ID: 3, UserID: 7, CourseID: 10, Status: models.EnrollmentStatusActive},
			},
			body: map[string]int64{"courseId": 10},
			want: http.StatusConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newEnrollmentHandlerForTest(&stubAdmissionStore{tx: tc.tx})
			c, w := newEnrollmentContext(t, tc.body, true)
			handler.Create(c)
			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestEnrollmentHandlerContention(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubAdmissionStore{
		runErr: repository.ErrSerialization,
	})

	c, w := newEnrollmentContext(t, map[string]int64{"courseId": 10}, true)
	handler.Create(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEnrollmentHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubAdmissionStore{tx: &stubAdmissionTx{}})

	c, w := newEnrollmentContext(t, map[string]int64{"courseId": 10}, false)
	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollmentHandlerMine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubAdmissionStore{
		tx: &stubAdmissionTx{},
		enrollments: []models.EnrollmentDetail{
			{ID: 1, Status: models.EnrollmentStatusPending, CourseID: 10, CourseCode: "GO-101", CourseTitle: "Basics"},
		},
	})

	c, w := newEnrollmentContext(t, nil, true)
	handler.Mine(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.MyEnrollment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "GO-101", envelope.Data[0].Course.Code)
}
