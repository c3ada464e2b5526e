package selection

import (
	"context"

	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/enroll"
	"github.com/rainbow59216/snatcher/internal/models"
	"github.com/rainbow59216/snatcher/internal/progress"
)

// GoalMachine runs one goal to a terminal outcome.
type GoalMachine interface {
	Run(ctx context.Context, goal Goal, log AttemptLog) Outcome
}

// TokenStore moves admission tokens between statuses.
type TokenStore interface {
	Transition(ctx context.Context, id string, from, to models.TokenStatus) error
}

// RecordStore persists the attempt audit trail.
type RecordStore interface {
	CreateSubmitted(ctx context.Context, record *models.SubmittedRecord) error
	MarkSuccess(ctx context.Context, id int64) error
	CreateFailure(ctx context.Context, record *models.FailureRecord) error
}

// ProgressLog opens per-goal attempt logs.
type ProgressLog interface {
	Start(ctx context.Context, key, fuelID string, index int) (AttemptLog, error)
}

// Notifier delivers end-of-goal notifications. Implementations must not
// block the run.
type Notifier interface {
	NotifySuccess(ctx context.Context, email, username, courseName string)
	NotifyFailure(ctx context.Context, email, username, courseName, reason string)
}

// OutcomeSink counts terminal goal outcomes.
type OutcomeSink interface {
	ObserveOutcome(outcome string)
}

// Runner walks an admitted booking's wish list in order, stopping at the
// first confirmed seat. The admission token travels with the run: a win
// consumes it, anything else hands it back.
type Runner struct {
	machine GoalMachine
	tokens  TokenStore
	records RecordStore
	logs    ProgressLog
	notify  Notifier
	metrics OutcomeSink
	logger  *zap.Logger
}

// NewRunner constructs a Runner. metrics may be nil.
func NewRunner(machine GoalMachine, tokens TokenStore, records RecordStore, logs ProgressLog, notify Notifier, metrics OutcomeSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		machine: machine,
		tokens:  tokens,
		records: records,
		logs:    logs,
		notify:  notify,
		metrics: metrics,
		logger:  logger,
	}
}

// Run executes one admitted booking job. Wiring failures release the token
// and end the job with a nil error: once the token is handed back, a queue
// retry would run without holding it and could double-submit against a
// booking that legitimately re-claimed it.
func (r *Runner) Run(ctx context.Context, job models.BookingJob) error {
	cat, err := enroll.ByName(job.Category)
	if err != nil {
		r.logger.Error("booking job dropped", zap.String("category", job.Category), zap.Error(err))
		r.releaseToken(ctx, job.FuelID)
		return nil
	}

	for i, g := range job.Goals {
		key := progress.LogKey(job.Username, g.CourseName)

		record := &models.SubmittedRecord{
			Username:   job.Username,
			Email:      job.Email,
			CourseName: g.CourseName,
			LogKey:     key,
		}
		if err := r.records.CreateSubmitted(ctx, record); err != nil {
			r.logger.Warn("submitted record write failed", zap.String("key", key), zap.Error(err))
		}

		runLog, err := r.logs.Start(ctx, key, job.FuelID, i)
		if err != nil {
			r.logger.Error("attempt log open failed, dropping job", zap.String("key", key), zap.Error(err))
			r.releaseToken(ctx, job.FuelID)
			return nil
		}
		runLog.Step(ctx, fieldFoundCourse, g.CourseName)
		runLog.Step(ctx, fieldCourseID, g.CourseID)

		outcome := r.machine.Run(ctx, Goal{
			Username:   job.Username,
			CourseID:   g.CourseID,
			CourseName: g.CourseName,
			SectionID:  g.SectionID,
			Category:   cat,
		}, runLog)
		if r.metrics != nil {
			r.metrics.ObserveOutcome(outcome.Kind.String())
		}

		if outcome.Kind == OutcomeSuccess {
			if record.ID != 0 {
				if err := r.records.MarkSuccess(ctx, record.ID); err != nil {
					r.logger.Warn("success record update failed", zap.Int64("id", record.ID), zap.Error(err))
				}
			}
			if err := r.tokens.Transition(ctx, job.FuelID, models.TokenUsing, models.TokenUsed); err != nil {
				r.logger.Error("token consume failed", zap.String("token", job.FuelID), zap.Error(err))
			}
			r.notify.NotifySuccess(ctx, job.Email, job.Username, g.CourseName)
			r.logger.Info("seat secured",
				zap.String("user", job.Username),
				zap.String("course", g.CourseName),
				zap.String("host", outcome.Host))
			return nil
		}

		failure := &models.FailureRecord{
			Username:   job.Username,
			CourseName: g.CourseName,
			LogKey:     key,
			Reason:     outcome.Reason,
			Host:       outcome.Host,
		}
		if err := r.records.CreateFailure(ctx, failure); err != nil {
			r.logger.Warn("failure record write failed", zap.String("key", key), zap.Error(err))
		}
		r.notify.NotifyFailure(ctx, job.Email, job.Username, g.CourseName, outcome.Reason)
	}

	// Every goal failed: the token goes back to the pool.
	r.releaseToken(ctx, job.FuelID)
	return nil
}

func (r *Runner) releaseToken(ctx context.Context, fuelID string) {
	if err := r.tokens.Transition(ctx, fuelID, models.TokenUsing, models.TokenUnused); err != nil {
		r.logger.Error("token release failed", zap.String("token", fuelID), zap.Error(err))
	}
}
