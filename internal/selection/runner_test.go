package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow59216/snatcher/internal/models"
)

type fakeMachine struct {
	outcomes []Outcome
	goals    []Goal
}

func (m *fakeMachine) Run(ctx context.Context, goal Goal, log AttemptLog) Outcome {
	m.goals = append(m.goals, goal)
	return m.outcomes[len(m.goals)-1]
}

type fakeTokens struct {
	transitions [][2]models.TokenStatus
}

func (t *fakeTokens) Transition(ctx context.Context, id string, from, to models.TokenStatus) error {
	t.transitions = append(t.transitions, [2]models.TokenStatus{from, to})
	return nil
}

type fakeRecords struct {
	submitted []models.SubmittedRecord
	successes []int64
	failures  []models.FailureRecord
}

func (r *fakeRecords) CreateSubmitted(ctx context.Context, record *models.SubmittedRecord) error {
	record.ID = int64(len(r.submitted) + 1)
	r.submitted = append(r.submitted, *record)
	return nil
}

func (r *fakeRecords) MarkSuccess(ctx context.Context, id int64) error {
	r.successes = append(r.successes, id)
	return nil
}

func (r *fakeRecords) CreateFailure(ctx context.Context, record *models.FailureRecord) error {
	r.failures = append(r.failures, *record)
	return nil
}

type fakeProgress struct {
	keys    []string
	indexes []int
	err     error
}

func (p *fakeProgress) Start(ctx context.Context, key, fuelID string, index int) (AttemptLog, error) {
	p.keys = append(p.keys, key)
	p.indexes = append(p.indexes, index)
	if p.err != nil {
		return nil, p.err
	}
	return &fakeLog{}, nil
}

type fakeOutcomeSink struct {
	outcomes []string
}

func (s *fakeOutcomeSink) ObserveOutcome(outcome string) {
	s.outcomes = append(s.outcomes, outcome)
}

type fakeNotifier struct {
	successes []string
	failures  []string
}

func (n *fakeNotifier) NotifySuccess(ctx context.Context, email, username, courseName string) {
	n.successes = append(n.successes, courseName)
}

func (n *fakeNotifier) NotifyFailure(ctx context.Context, email, username, courseName, reason string) {
	n.failures = append(n.failures, courseName+": "+reason)
}

func testJob(goals ...models.Goal) models.BookingJob {
	return models.BookingJob{
		Username: "2024123456",
		Email:    "student@example.com",
		Category: "general-elective",
		FuelID:   "t1",
		Goals:    goals,
	}
}

func TestRunnerStopsAtFirstWin(t *testing.T) {
	machine := &fakeMachine{outcomes: []Outcome{
		{Kind: OutcomeRejected, Host: "10", Reason: "class is full"},
		{Kind: OutcomeSuccess, Host: "11"},
	}}
	tokens := &fakeTokens{}
	records := &fakeRecords{}
	logs := &fakeProgress{}
	notify := &fakeNotifier{}
	runner := NewRunner(machine, tokens, records, logs, notify, nil, nil)

	job := testJob(
		models.Goal{CourseID: "K001", CourseName: "Film Appreciation"},
		models.Goal{CourseID: "K002", CourseName: "World History"},
		models.Goal{CourseID: "K003", CourseName: "Music Theory"},
	)
	require.NoError(t, runner.Run(context.Background(), job))

	// The third goal never runs.
	assert.Len(t, machine.goals, 2)
	assert.Equal(t, []int64{2}, records.successes)
	assert.Equal(t, [][2]models.TokenStatus{{models.TokenUsing, models.TokenUsed}}, tokens.transitions)
	assert.Equal(t, []string{"World History"}, notify.successes)
	require.Len(t, records.failures, 1)
	assert.Equal(t, "Film Appreciation", records.failures[0].CourseName)
	assert.Equal(t, "class is full", records.failures[0].Reason)
	assert.Equal(t, "10", records.failures[0].Host)
}

func TestRunnerReleasesTokenWhenEveryGoalFails(t *testing.T) {
	machine := &fakeMachine{outcomes: []Outcome{
		{Kind: OutcomeRejected, Host: "10", Reason: "class is full"},
		{Kind: OutcomeRetriesExhausted, Host: "12", Reason: "exceeded maximum retries"},
	}}
	tokens := &fakeTokens{}
	records := &fakeRecords{}
	notify := &fakeNotifier{}
	runner := NewRunner(machine, tokens, records, &fakeProgress{}, notify, nil, nil)

	job := testJob(
		models.Goal{CourseID: "K001", CourseName: "Film Appreciation"},
		models.Goal{CourseID: "K002", CourseName: "World History"},
	)
	require.NoError(t, runner.Run(context.Background(), job))

	assert.Len(t, records.failures, 2)
	assert.Empty(t, notify.successes)
	assert.Len(t, notify.failures, 2)
	// The token returns to the pool for another booking.
	assert.Equal(t, [][2]models.TokenStatus{{models.TokenUsing, models.TokenUnused}}, tokens.transitions)
}

func TestRunnerWalksGoalsInWishListOrder(t *testing.T) {
	machine := &fakeMachine{outcomes: []Outcome{
		{Kind: OutcomeProtocolFailed, Reason: "context id resolution failed"},
		{Kind: OutcomeProtocolFailed, Reason: "context id resolution failed"},
		{Kind: OutcomeProtocolFailed, Reason: "context id resolution failed"},
	}}
	logs := &fakeProgress{}
	runner := NewRunner(machine, &fakeTokens{}, &fakeRecords{}, logs, &fakeNotifier{}, nil, nil)

	job := testJob(
		models.Goal{CourseID: "K001", CourseName: "Film Appreciation"},
		models.Goal{CourseID: "K002", CourseName: "World History"},
		models.Goal{CourseID: "K003", CourseName: "Music Theory"},
	)
	require.NoError(t, runner.Run(context.Background(), job))

	assert.Equal(t, []string{
		"2024123456-Film Appreciation",
		"2024123456-World History",
		"2024123456-Music Theory",
	}, logs.keys)
	assert.Equal(t, []int{0, 1, 2}, logs.indexes)
}

func TestRunnerDropsJobOnUnknownCategory(t *testing.T) {
	machine := &fakeMachine{}
	tokens := &fakeTokens{}
	runner := NewRunner(machine, tokens, &fakeRecords{}, &fakeProgress{}, &fakeNotifier{}, nil, nil)

	job := testJob(models.Goal{CourseID: "K001", CourseName: "Film Appreciation"})
	job.Category = "unknown"

	// A nil return keeps the queue from re-running the job after the token
	// went back to the pool.
	require.NoError(t, runner.Run(context.Background(), job))
	assert.Empty(t, machine.goals)
	assert.Equal(t, [][2]models.TokenStatus{{models.TokenUsing, models.TokenUnused}}, tokens.transitions)
}

func TestRunnerDropsJobWhenAttemptLogOpenFails(t *testing.T) {
	machine := &fakeMachine{}
	tokens := &fakeTokens{}
	records := &fakeRecords{}
	logs := &fakeProgress{err: errors.New("log store unavailable")}
	runner := NewRunner(machine, tokens, records, logs, &fakeNotifier{}, nil, nil)

	job := testJob(models.Goal{CourseID: "K001", CourseName: "Film Appreciation"})
	require.NoError(t, runner.Run(context.Background(), job))

	// The token is released exactly once and nothing touches the remote;
	// re-running would race a booking that re-claims the token.
	assert.Empty(t, machine.goals)
	assert.Equal(t, [][2]models.TokenStatus{{models.TokenUsing, models.TokenUnused}}, tokens.transitions)
	assert.Len(t, records.submitted, 1)
}

func TestRunnerCountsTerminalOutcomes(t *testing.T) {
	machine := &fakeMachine{outcomes: []Outcome{
		{Kind: OutcomeRejected, Host: "10", Reason: "class is full"},
		{Kind: OutcomeSuccess, Host: "11"},
	}}
	sink := &fakeOutcomeSink{}
	runner := NewRunner(machine, &fakeTokens{}, &fakeRecords{}, &fakeProgress{}, &fakeNotifier{}, sink, nil)

	job := testJob(
		models.Goal{CourseID: "K001", CourseName: "Film Appreciation"},
		models.Goal{CourseID: "K002", CourseName: "World History"},
	)
	require.NoError(t, runner.Run(context.Background(), job))
	assert.Equal(t, []string{"rejected", "success"}, sink.outcomes)
}
