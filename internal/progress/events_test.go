package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEventRoundTrip(t *testing.T) {
	raw := FormatEvent(LogKey("2024123456", "Film Appreciation"), "step-4_submit", "success")
	assert.Equal(t, "2024123456-Film Appreciation|step-4_submit|success", raw)

	event, err := ParseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024123456", event.Username)
	assert.Equal(t, "Film Appreciation", event.CourseName)
	assert.Equal(t, "step-4_submit", event.Field)
	assert.Equal(t, "success", event.Message)
}

func TestParseEventKeepsDashesInCourseName(t *testing.T) {
	event, err := ParseEvent("2024123456-Intro to Sino-Japanese Relations|retry|2")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Sino-Japanese Relations", event.CourseName)
	assert.Equal(t, RetryField, event.Field)
}

func TestParseEventRejectsMalformedPayloads(t *testing.T) {
	for _, raw := range []string{"", "no pipes here", "a|b", "nodash|field|msg"} {
		_, err := ParseEvent(raw)
		assert.Error(t, err, "payload %q", raw)
	}
}

func TestParseEventKeepsPipesInMessage(t *testing.T) {
	event, err := ParseEvent("2024123456-Calculus|step-4_submit|full | try later")
	require.NoError(t, err)
	assert.Equal(t, "full | try later", event.Message)
}
