package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/enroll"
	"github.com/rainbow59216/snatcher/internal/models"
	"github.com/rainbow59216/snatcher/pkg/config"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
	"github.com/rainbow59216/snatcher/pkg/jobs"
)

// JobTypeBooking tags booking jobs on the shared queue.
const JobTypeBooking = "booking"

const loginAttempts = 3

type fuelDecoder interface {
	Decode(fuel, username string) (string, error)
}

type tokenStore interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionToken, error)
	Transition(ctx context.Context, id string, from, to models.TokenStatus) error
}

type sessionWriter interface {
	SaveCookie(ctx context.Context, username, host, cookie string) error
}

type loginClient interface {
	Login(ctx context.Context, host, username, password string) (string, error)
}

type hostRanker interface {
	Best(ctx context.Context) (string, error)
}

type jobQueue interface {
	EnqueueAfter(job jobs.Job, delay time.Duration) error
}

type loginNotifier interface {
	NotifyLoginFailure(ctx context.Context, email, username string)
}

// BookingService is the admission gate: it validates the request, claims the
// admission token, establishes sessions and defers the job to the opening
// instant. Everything after admission runs asynchronously on the queue.
type BookingService struct {
	tokens    tokenStore
	fuel      fuelDecoder
	sessions  sessionWriter
	login     loginClient
	hosts     hostRanker
	queue     jobQueue
	notify    loginNotifier
	metrics   *MetricsService
	validator *validator.Validate
	cfg       config.EnrollConfig
	logger    *zap.Logger

	now func() time.Time
}

// NewBookingService constructs BookingService.
func NewBookingService(tokens tokenStore, fuel fuelDecoder, sessions sessionWriter, login loginClient, hosts hostRanker, queue jobQueue, notify loginNotifier, metrics *MetricsService, validate *validator.Validate, cfg config.EnrollConfig, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		tokens:    tokens,
		fuel:      fuel,
		sessions:  sessions,
		login:     login,
		hosts:     hosts,
		queue:     queue,
		notify:    notify,
		metrics:   metrics,
		validator: validate,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Book admits one booking request. On success the token is claimed, sessions
// are in place and the job is scheduled; the receipt tells the caller when
// execution starts.
func (s *BookingService) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	cat, err := enroll.ByName(req.Category)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if cat.Name() != s.cfg.OpenCategory {
		return nil, appErrors.ErrWindowClosed
	}
	if len(req.Goals) > models.MaxGoals {
		return nil, appErrors.ErrTooManyGoals
	}
	if req.Password == "" && (req.Cookie == "" || req.Host == "") {
		return nil, appErrors.ErrNoCredential
	}

	fuelID, err := s.fuel.Decode(req.Fuel, req.Username)
	if err != nil {
		return nil, appErrors.ErrInvalidFuel
	}
	token, err := s.tokens.FindByID(ctx, fuelID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.ErrInvalidFuel
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "token lookup failed")
	}
	if token.Username != req.Username {
		return nil, appErrors.ErrInvalidFuel
	}

	if err := s.tokens.Transition(ctx, fuelID, models.TokenUnused, models.TokenUsing); err != nil {
		switch token.Status {
		case models.TokenUsing:
			return nil, appErrors.ErrFuelInUse
		case models.TokenUsed:
			return nil, appErrors.ErrFuelUsed
		default:
			return nil, appErrors.ErrIllegalStatus
		}
	}

	now := s.now()
	countdown := s.cfg.Countdown(now)

	if err := s.establishSessions(ctx, req, countdown); err != nil {
		s.releaseToken(ctx, fuelID)
		s.notify.NotifyLoginFailure(ctx, req.Email, req.Username)
		return nil, err
	}

	jobID := uuid.NewString()
	job := jobs.Job{
		ID:   jobID,
		Type: JobTypeBooking,
		Payload: models.BookingJob{
			Username: req.Username,
			Email:    req.Email,
			Category: req.Category,
			FuelID:   fuelID,
			Goals:    req.Goals,
		},
	}
	if err := s.queue.EnqueueAfter(job, countdown); err != nil {
		s.releaseToken(ctx, fuelID)
		return nil, appErrors.Wrap(err, appErrors.ErrQueueStopped.Code, appErrors.ErrQueueStopped.Status, appErrors.ErrQueueStopped.Message)
	}

	s.logger.Info("booking admitted",
		zap.String("user", req.Username),
		zap.String("job_id", jobID),
		zap.Int("goals", len(req.Goals)),
		zap.Duration("countdown", countdown))

	return &models.BookingReceipt{
		JobID:     jobID,
		Countdown: countdown,
		StartsAt:  now.Add(countdown),
	}, nil
}

// Window reports the open category and how long until execution starts.
func (s *BookingService) Window() models.WindowStatus {
	countdown := s.cfg.Countdown(s.now())
	return models.WindowStatus{
		Category:  s.cfg.OpenCategory,
		Year:      s.cfg.Year,
		Term:      s.cfg.Term,
		OpensAt:   s.cfg.OpeningTime,
		Countdown: countdown,
		Open:      countdown == 0,
	}
}

// establishSessions puts at least one usable session cookie into the store.
// A pinned cookie is stored as-is. With a password, an early booking signs in
// on every host while the pressure is low; once the window is open only the
// best-ranked host is worth the latency.
func (s *BookingService) establishSessions(ctx context.Context, req *models.BookingRequest, countdown time.Duration) error {
	if req.Cookie != "" && req.Host != "" {
		if err := s.sessions.SaveCookie(ctx, req.Username, req.Host, req.Cookie); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session store failed")
		}
		return nil
	}

	if countdown > 0 {
		for attempt := 1; attempt <= loginAttempts; attempt++ {
			saved := 0
			for _, host := range s.cfg.Hosts {
				cookie, err := s.login.Login(ctx, host, req.Username, req.Password)
				if err != nil {
					s.metrics.ObserveLogin("failure")
					s.logger.Warn("login failed",
						zap.String("user", req.Username), zap.String("host", host), zap.Int("attempt", attempt), zap.Error(err))
					continue
				}
				s.metrics.ObserveLogin("success")
				if err := s.sessions.SaveCookie(ctx, req.Username, host, cookie); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session store failed")
				}
				saved++
			}
			if saved > 0 {
				return nil
			}
		}
		return appErrors.ErrLoginFailed
	}

	host, err := s.hosts.Best(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "host ranking unavailable")
	}
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		cookie, err := s.login.Login(ctx, host, req.Username, req.Password)
		if err != nil {
			s.metrics.ObserveLogin("failure")
			s.logger.Warn("login failed",
				zap.String("user", req.Username), zap.String("host", host), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		s.metrics.ObserveLogin("success")
		if err := s.sessions.SaveCookie(ctx, req.Username, host, cookie); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session store failed")
		}
		return nil
	}
	return appErrors.ErrLoginFailed
}

func (s *BookingService) releaseToken(ctx context.Context, fuelID string) {
	if err := s.tokens.Transition(ctx, fuelID, models.TokenUsing, models.TokenUnused); err != nil {
		s.logger.Error("token release failed", zap.String("token", fuelID), zap.Error(err))
	}
}
