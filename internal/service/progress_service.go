package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/models"
	"github.com/rainbow59216/snatcher/internal/progress"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

type progressSource interface {
	Export(ctx context.Context, fuelID, username string) (*models.ProgressReport, error)
	Subscribe(ctx context.Context) (<-chan *redis.Message, func())
}

// ProgressService answers progress queries for a booking identified by its
// fuel string and exposes the live event stream.
type ProgressService struct {
	source progressSource
	fuel   fuelDecoder
	logger *zap.Logger
}

// NewProgressService constructs ProgressService.
func NewProgressService(source progressSource, fuel fuelDecoder, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{source: source, fuel: fuel, logger: logger}
}

// Report projects the attempt logs behind one fuel into per-goal
// [last step, attempts] pairs, in wish-list order.
func (s *ProgressService) Report(ctx context.Context, fuel, username string) (*models.ProgressReport, error) {
	fuelID, err := s.fuel.Decode(fuel, username)
	if err != nil {
		return nil, appErrors.ErrInvalidFuel
	}
	report, err := s.source.Export(ctx, fuelID, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "progress export failed")
	}
	return report, nil
}

// Stream subscribes to live progress events, optionally filtered by
// username. The returned cancel function closes the subscription.
func (s *ProgressService) Stream(ctx context.Context, username string) (<-chan models.ProgressEvent, func()) {
	raw, cancel := s.source.Subscribe(ctx)
	out := make(chan models.ProgressEvent, 16)

	go func() {
		defer close(out)
		for msg := range raw {
			event, err := progress.ParseEvent(msg.Payload)
			if err != nil {
				s.logger.Warn("malformed progress event", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if username != "" && event.Username != username {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel
}
