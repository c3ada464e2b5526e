package models

import "time"

// MaxGoals caps the length of a wish-list.
const MaxGoals = 5

// Goal is one candidate course section the user is willing to accept.
// SectionID pins an exact teaching class; when empty the resolver accepts a
// single unambiguous candidate.
type Goal struct {
	CourseID   string `json:"course_id" validate:"required"`
	CourseName string `json:"course_name" validate:"required"`
	SectionID  string `json:"section_id"`
}

// BookingRequest is the admission payload for one booking attempt.
// Exactly one credential path must be present: a plaintext password for the
// simulated login, or a pre-authenticated cookie pinned to a host.
type BookingRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Category string `json:"category" validate:"required"`
	Fuel     string `json:"fuel" validate:"required"`
	Password string `json:"password"`
	Cookie   string `json:"cookie"`
	Host     string `json:"host"`
	Goals    []Goal `json:"goals" validate:"required,min=1,dive"`
}

// BookingJob is the unit of work handed to the worker pool once a request
// passes admission control.
type BookingJob struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Category string `json:"category"`
	FuelID   string `json:"fuel_id"`
	Goals    []Goal `json:"goals"`
}

// BookingReceipt is the synchronous response to an admitted booking.
type BookingReceipt struct {
	JobID     string        `json:"job_id"`
	Countdown time.Duration `json:"countdown"`
	StartsAt  time.Time     `json:"starts_at"`
}

// WindowStatus describes the currently open selection round.
type WindowStatus struct {
	Category  string        `json:"category"`
	Year      int           `json:"year"`
	Term      int           `json:"term"`
	OpensAt   time.Time     `json:"opens_at"`
	Countdown time.Duration `json:"countdown"`
	Open      bool          `json:"open"`
}
