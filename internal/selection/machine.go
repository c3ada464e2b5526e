package selection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/enroll"
	"github.com/rainbow59216/snatcher/internal/progress"
	"github.com/rainbow59216/snatcher/pkg/config"
)

// Attempt-log fields, one per protocol step. Retries append a new suffix per
// attempt instead of overwriting.
const (
	fieldFoundCourse = "step-0_found_course"
	fieldCourseID    = "step-1_course_id"
	fieldContextID   = "step-2_context_id"
	fieldSectionIDs  = "step-3_section_ids"
	fieldSubmit      = "step-4_submit"
	fieldTaskStatus  = "task_status"
)

const maxAttempts = 3

// HostPicker selects the session to run the next attempt on.
type HostPicker interface {
	Pick(ctx context.Context, username string) (host, cookie string, err error)
}

// HostWeights adjusts host health scores from attempt outcomes.
type HostWeights interface {
	Reward(ctx context.Context, host string)
	Penalize(ctx context.Context, host string)
	Decay(ctx context.Context, host string)
}

// ProtocolClient drives the remote selection steps.
type ProtocolClient interface {
	ResolveContext(ctx context.Context, att enroll.Attempt, cat enroll.Category) (enroll.Context, *enroll.StepError)
	ResolveSectionIDs(ctx context.Context, att enroll.Attempt, cat enroll.Category, q enroll.SectionQuery) (string, *enroll.StepError)
	SubmitSelection(ctx context.Context, att enroll.Attempt, courseID, sectionIDs string) *enroll.StepError
}

// ContextCache caches resolved context ids per category and cohort.
type ContextCache interface {
	ContextID(ctx context.Context, category, cohort string) (string, error)
	SaveContextID(ctx context.Context, category, cohort, id string) error
	InvalidateContextID(ctx context.Context, category, cohort string) error
}

// AttemptLog is the per-goal progress sink.
type AttemptLog interface {
	Step(ctx context.Context, field, message string)
	Retry(ctx context.Context)
}

// OutcomeKind classifies how a goal run ended.
type OutcomeKind int

const (
	// OutcomeSuccess means the remote confirmed the submission.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRejected means the remote answered the submission with a
	// refusal. Rejections are final and never retried.
	OutcomeRejected
	// OutcomeProtocolFailed means a non-retryable failure before or during
	// a protocol step.
	OutcomeProtocolFailed
	// OutcomeRetriesExhausted means every attempt failed transiently.
	OutcomeRetriesExhausted
)

// String returns the metric label for the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetriesExhausted:
		return "retries_exhausted"
	default:
		return "protocol_failed"
	}
}

// Outcome is the terminal result of a goal run.
type Outcome struct {
	Kind   OutcomeKind
	Host   string
	Reason string
}

// Goal is one wish-list entry flattened for execution.
type Goal struct {
	Username   string
	CourseID   string
	CourseName string
	SectionID  string
	Category   enroll.Category
}

// Machine runs the selection protocol for one goal: pick a session, resolve
// the context id, resolve the section, submit. Transient failures rotate to
// the next-ranked host up to the attempt cap; a server refusal ends the run
// immediately.
type Machine struct {
	picker  HostPicker
	weights HostWeights
	client  ProtocolClient
	cache   ContextCache
	cfg     config.EnrollConfig
	logger  *zap.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewMachine constructs a Machine.
func NewMachine(picker HostPicker, weights HostWeights, client ProtocolClient, cache ContextCache, cfg config.EnrollConfig, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		picker:  picker,
		weights: weights,
		client:  client,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Run executes one goal to a terminal outcome.
func (m *Machine) Run(ctx context.Context, goal Goal, log AttemptLog) Outcome {
	cohort := enroll.CohortOf(goal.Username)
	var lastHost string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		host, cookie, err := m.picker.Pick(ctx, goal.Username)
		if err != nil {
			log.Step(ctx, fieldTaskStatus, err.Error())
			return Outcome{Kind: OutcomeProtocolFailed, Reason: err.Error()}
		}
		lastHost = host
		att := enroll.Attempt{BaseURL: m.cfg.BaseURL(host), Host: host, Cookie: cookie}

		m.logger.Debug("selection attempt",
			zap.String("user", goal.Username),
			zap.String("course", goal.CourseName),
			zap.String("host", host),
			zap.Int("attempt", attempt))

		sel, usedCache, stepErr := m.resolveContext(ctx, att, goal.Category, cohort)
		if stepErr == nil {
			log.Step(ctx, fieldContextID, sel.ID)
			sectionIDs, resolveErr := m.client.ResolveSectionIDs(ctx, att, goal.Category, enroll.SectionQuery{
				Cohort:          cohort,
				CourseID:        goal.CourseID,
				ContextID:       sel.ID,
				PinnedSectionID: goal.SectionID,
				Aux:             sel.Aux,
			})
			stepErr = resolveErr
			if stepErr == nil {
				log.Step(ctx, fieldSectionIDs, sectionIDs)
				stepErr = m.client.SubmitSelection(ctx, att, goal.CourseID, sectionIDs)
			}
			if stepErr == nil {
				log.Step(ctx, fieldSubmit, progress.SubmitSuccessMessage)
				log.Step(ctx, fieldTaskStatus, progress.SubmitSuccessMessage)
				m.weights.Reward(ctx, host)
				return Outcome{Kind: OutcomeSuccess, Host: host}
			}

			// A stale cached context id surfaces as an illegal-request
			// answer at the resolve step. Drop the entry and burn one
			// attempt on a fresh scrape.
			if usedCache && stepErr.Step == enroll.StepSectionIDs && stepErr.Reason == enroll.ReasonIllegalRequest {
				if err := m.cache.InvalidateContextID(ctx, goal.Category.Name(), cohort); err != nil {
					m.logger.Warn("context id invalidation failed", zap.Error(err))
				}
				if attempt < maxAttempts {
					log.Retry(ctx)
					continue
				}
			}
		}

		switch stepErr.Kind {
		case enroll.FailRejected:
			m.weights.Penalize(ctx, host)
			log.Step(ctx, fieldSubmit, stepErr.Reason)
			log.Step(ctx, fieldTaskStatus, stepErr.Reason)
			return Outcome{Kind: OutcomeRejected, Host: host, Reason: stepErr.Reason}
		case enroll.FailTransient:
			m.weights.Decay(ctx, host)
			if attempt < maxAttempts {
				log.Retry(ctx)
				m.sleep(m.cfg.RetryDelay)
				continue
			}
		default:
			log.Step(ctx, fieldTaskStatus, stepErr.Reason)
			return Outcome{Kind: OutcomeProtocolFailed, Host: host, Reason: stepErr.Reason}
		}
	}

	m.weights.Penalize(ctx, lastHost)
	log.Step(ctx, fieldTaskStatus, enroll.ReasonRetriesExceeded)
	return Outcome{Kind: OutcomeRetriesExhausted, Host: lastHost, Reason: enroll.ReasonRetriesExceeded}
}

// resolveContext serves the context id from cache when possible, falling back
// to a fresh index-page scrape.
func (m *Machine) resolveContext(ctx context.Context, att enroll.Attempt, cat enroll.Category, cohort string) (enroll.Context, bool, *enroll.StepError) {
	cached, err := m.cache.ContextID(ctx, cat.Name(), cohort)
	if err != nil {
		m.logger.Warn("context id cache read failed", zap.Error(err))
	}
	if cached != "" {
		return enroll.Context{ID: cached, Aux: cat.AuxFields("")}, true, nil
	}

	sel, stepErr := m.client.ResolveContext(ctx, att, cat)
	if stepErr != nil {
		return enroll.Context{}, false, stepErr
	}
	if err := m.cache.SaveContextID(ctx, cat.Name(), cohort, sel.ID); err != nil {
		m.logger.Warn("context id cache write failed", zap.Error(err))
	}
	return sel, false, nil
}
