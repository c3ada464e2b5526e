package models

import "time"

// TokenStatus is the lifecycle state of an admission token.
type TokenStatus string

const (
	TokenUnused TokenStatus = "unused"
	TokenUsing  TokenStatus = "using"
	TokenUsed   TokenStatus = "used"
)

// AdmissionToken ("fuel") is a single-use ticket gating one booking attempt.
// The Fuel column stores the keyed encoding handed to the user; rows are never
// deleted so consumed tickets stay auditable.
type AdmissionToken struct {
	ID        string      `db:"id" json:"id"`
	Username  string      `db:"username" json:"username"`
	Fuel      string      `db:"fuel" json:"fuel"`
	Status    TokenStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
