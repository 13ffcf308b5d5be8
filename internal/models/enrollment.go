package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending    EnrollmentStatus = "pending"
	EnrollmentStatusActive     EnrollmentStatus = "active"
	EnrollmentStatusWaitlisted EnrollmentStatus = "waitlisted"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
	EnrollmentStatusCancelled  EnrollmentStatus = "cancelled"
)

// AllEnrollmentStatuses lists every status in report column order.
var AllEnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusActive,
	EnrollmentStatusPending,
	EnrollmentStatusWaitlisted,
	EnrollmentStatusCompleted,
	EnrollmentStatusCancelled,
}

// enrollmentTransitions is the allowed forward-transition table. Completed
// and cancelled are terminal; a cancelled row may only be superseded by a
// fresh enrollment, never reactivated in place.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusPending:    {EnrollmentStatusActive, EnrollmentStatusCancelled},
	EnrollmentStatusActive:     {EnrollmentStatusCompleted, EnrollmentStatusCancelled},
	EnrollmentStatusWaitlisted: {EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusCancelled},
	EnrollmentStatusCompleted:  {},
	EnrollmentStatusCancelled:  {},
}

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	_, ok := enrollmentTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition s -> next is allowed.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CountsAgainstCapacity reports whether the status holds a committed seat.
// Waitlisted, completed and cancelled rows never consume capacity.
func (s EnrollmentStatus) CountsAgainstCapacity() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusPending
}

// BlocksReenrollment reports whether an existing row with this status
// rejects a new attempt for the same (user, course) pair.
func (s EnrollmentStatus) BlocksReenrollment() bool {
	return s.Valid() && s != EnrollmentStatusCancelled
}

// Enrollment is a user's registration to a course, optionally pinned to a
// section.
type Enrollment struct {
	ID         int64            `db:"id" json:"id"`
	UserID     int64            `db:"user_id" json:"user_id"`
	CourseID   int64            `db:"course_id" json:"course_id"`
	SectionID  *int64           `db:"section_id" json:"section_id,omitempty"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// AdmissionResult is the outcome of an admission attempt.
type AdmissionResult struct {
	EnrollmentID int64            `json:"enrollmentId"`
	Status       EnrollmentStatus `json:"status"`
	SeatsLeft    int              `json:"seatsLeft"`
}

// EnrollmentDetail is an enrollment row joined with its course and optional
// section, as read for the per-user listing.
type EnrollmentDetail struct {
	ID           int64            `db:"id"`
	Status       EnrollmentStatus `db:"status"`
	EnrolledAt   time.Time        `db:"enrolled_at"`
	CourseID     int64            `db:"course_id"`
	CourseCode   string           `db:"course_code"`
	CourseTitle  string           `db:"course_title"`
	SectionID    *int64           `db:"section_id"`
	SectionTitle *string          `db:"section_title"`
}

// MyEnrollmentCourse is the course summary embedded in a listing entry.
type MyEnrollmentCourse struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// MyEnrollmentSection is the optional section summary in a listing entry.
type MyEnrollmentSection struct {
	ID    int64   `json:"id"`
	Title *string `json:"title,omitempty"`
}

// MyEnrollment is the wire shape of one entry in GET /enrollments/mine.
type MyEnrollment struct {
	ID         int64                `json:"id"`
	Status     EnrollmentStatus     `json:"status"`
	EnrolledAt time.Time            `json:"enrolledAt"`
	Course     MyEnrollmentCourse   `json:"course"`
	Section    *MyEnrollmentSection `json:"section,omitempty"`
}

// View maps the joined row to its wire shape.
func (d EnrollmentDetail) View() MyEnrollment {
	out := MyEnrollment{
		ID:         d.ID,
		Status:     d.Status,
		EnrolledAt: d.EnrolledAt,
		Course: MyEnrollmentCourse{
			ID:    d.CourseID,
			Code:  d.CourseCode,
			Title: d.CourseTitle,
		},
	}
	if d.SectionID != nil {
		out.Section = &MyEnrollmentSection{ID: *d.SectionID, Title: d.SectionTitle}
	}
	return out
}

// EnrollmentReportRow aggregates one course's enrollments by status.
// SeatsLeft is derived from capacity and the committed counts, never stored.
type EnrollmentReportRow struct {
	CourseID   int64  `db:"course_id" json:"courseId"`
	Code       string `db:"code" json:"code"`
	Title      string `db:"title" json:"title"`
	Capacity   int    `db:"capacity" json:"capacity"`
	Active     int    `db:"active" json:"active"`
	Pending    int    `db:"pending" json:"pending"`
	Waitlisted int    `db:"waitlisted" json:"waitlisted"`
	Completed  int    `db:"completed" json:"completed"`
	Cancelled  int    `db:"cancelled" json:"cancelled"`
	SeatsLeft  int    `db:"-" json:"seatsLeft"`
}
