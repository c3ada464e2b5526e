package models

import "time"

// SubmittedRecord is the durable audit row created per attempted goal.
// Success is flipped once the remote confirms the submission.
type SubmittedRecord struct {
	ID         int64     `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	CourseName string    `db:"course_name" json:"course_name"`
	LogKey     string    `db:"log_key" json:"log_key"`
	Success    bool      `db:"success" json:"success"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FailureRecord captures the terminal reason for a failed goal and the host
// the last attempt ran against.
type FailureRecord struct {
	ID         int64     `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	CourseName string    `db:"course_name" json:"course_name"`
	LogKey     string    `db:"log_key" json:"log_key"`
	Reason     string    `db:"reason" json:"reason"`
	Host       string    `db:"host" json:"host"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
