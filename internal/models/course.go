package models

import "time"

// Course is a catalog entry offered within a season. Capacity bounds the
// number of committed (active or pending) enrollments.
type Course struct {
	ID         int64     `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Title      string    `db:"title" json:"title"`
	Capacity   int       `db:"capacity" json:"capacity"`
	SeasonID   int64     `db:"season_id" json:"season_id"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	Published  bool      `db:"published" json:"published"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Section is an optional sub-resource of a course (e.g. a time slot).
type Section struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Title     *string   `db:"title" json:"title,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseSeatState is the course row the admission transaction locks,
// joined with the season window it inherits.
type CourseSeatState struct {
	ID              int64     `db:"id"`
	Capacity        int       `db:"capacity"`
	SeasonID        int64     `db:"season_id"`
	EnrollmentOpen  time.Time `db:"enrollment_open"`
	EnrollmentClose time.Time `db:"enrollment_close"`
}

// WindowContains reports whether t is inside the inherited enrollment
// window, bounds inclusive.
func (c *CourseSeatState) WindowContains(t time.Time) bool {
	return !t.Before(c.EnrollmentOpen) && !t.After(c.EnrollmentClose)
}

// CourseFilter captures filters for catalog listings.
type CourseFilter struct {
	SeasonID      int64
	PublishedOnly bool
	Page          int
	PageSize      int
}
