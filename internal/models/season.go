package models

import "time"

// Season groups courses under a shared enrollment window.
type Season struct {
	ID              int64     `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	Title           string    `db:"title" json:"title"`
	EnrollmentOpen  time.Time `db:"enrollment_open" json:"enrollment_open"`
	EnrollmentClose time.Time `db:"enrollment_close" json:"enrollment_close"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SeasonFilter captures filters for listing seasons.
type SeasonFilter struct {
	Page     int
	PageSize int
}
