package models

// GoalProgress is the projection of one goal's attempt log:
// the last protocol step reached and how many attempts were made.
type GoalProgress struct {
	LastStep int `json:"last_step"`
	Attempts int `json:"attempts"`
}

// ProgressReport aggregates the per-goal projections for one admission token.
type ProgressReport struct {
	Username string         `json:"username"`
	Goals    []string       `json:"goals"`
	Progress []GoalProgress `json:"progress"`
}

// ProgressEvent is one live update published on the progress channel.
type ProgressEvent struct {
	Username   string `json:"username"`
	CourseName string `json:"course_name"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}
