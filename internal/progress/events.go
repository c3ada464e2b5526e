package progress

import (
	"fmt"
	"strings"

	"github.com/rainbow59216/snatcher/internal/models"
)

// Channel is the pub/sub channel carrying live progress events.
const Channel = "progress-events"

// RetryField marks a retry event; its message is the running retry count.
const RetryField = "retry"

// SubmitSuccessMessage is the message recorded for a confirmed submission.
// The projector treats any other step-4 message as an unconfirmed attempt.
const SubmitSuccessMessage = "success"

// LogKey derives the attempt-log key for one (user, course) pair.
func LogKey(username, courseName string) string {
	return username + "-" + courseName
}

// FormatEvent renders the wire form of one progress event: key|field|message.
func FormatEvent(key, field, message string) string {
	return key + "|" + field + "|" + message
}

// ParseEvent splits a wire event back into its parts. The username never
// contains a dash, so the first dash terminates it.
func ParseEvent(raw string) (models.ProgressEvent, error) {
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) != 3 {
		return models.ProgressEvent{}, fmt.Errorf("malformed progress event %q", raw)
	}
	keyParts := strings.SplitN(parts[0], "-", 2)
	if len(keyParts) != 2 {
		return models.ProgressEvent{}, fmt.Errorf("malformed progress key %q", parts[0])
	}
	return models.ProgressEvent{
		Username:   keyParts[0],
		CourseName: keyParts[1],
		Field:      parts[1],
		Message:    parts[2],
	}, nil
}
