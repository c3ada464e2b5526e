package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/enroll"
	"github.com/rainbow59216/snatcher/pkg/config"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

const (
	watchesKey   = "watch:entries"
	watchStopKey = "watch:stopped"
	seatsLastKey = "watch:last-counts"
)

// SeatWatch is one registered vacancy watch.
type SeatWatch struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Category   string `json:"category" validate:"required"`
	CourseName string `json:"course_name" validate:"required"`
	SectionID  string `json:"section_id" validate:"required"`
}

type seatFetcher interface {
	FetchSeatCounts(ctx context.Context, att enroll.Attempt, cat enroll.Category, cohort string, pageSize int) ([]enroll.SeatCount, error)
}

type watchSessionPicker interface {
	Pick(ctx context.Context, username string) (host, cookie string, err error)
}

type vacancyNotifier interface {
	NotifyVacancy(ctx context.Context, email, username, courseName string)
}

// WatcherService polls remaining-seat counts for registered sections on a
// cron schedule and notifies the watcher when an enrolled count drops. It is
// advisory only; it never books anything itself.
type WatcherService struct {
	client  *redis.Client
	fetcher seatFetcher
	picker  watchSessionPicker
	notify  vacancyNotifier
	cfg     config.EnrollConfig
	wcfg    config.WatcherConfig
	logger  *zap.Logger

	cron *cron.Cron
}

// NewWatcherService constructs WatcherService.
func NewWatcherService(client *redis.Client, fetcher seatFetcher, picker watchSessionPicker, notify vacancyNotifier, cfg config.EnrollConfig, wcfg config.WatcherConfig, logger *zap.Logger) *WatcherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatcherService{
		client:  client,
		fetcher: fetcher,
		picker:  picker,
		notify:  notify,
		cfg:     cfg,
		wcfg:    wcfg,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the poll loop. No-op when the watcher is disabled.
func (s *WatcherService) Start(ctx context.Context) error {
	if !s.wcfg.Enabled {
		return nil
	}
	spec := fmt.Sprintf("@every %s", s.wcfg.Interval)
	if _, err := s.cron.AddFunc(spec, func() { s.poll(ctx) }); err != nil {
		return fmt.Errorf("schedule seat watcher: %w", err)
	}
	s.cron.Start()
	s.logger.Info("seat watcher started", zap.Duration("interval", s.wcfg.Interval))
	return nil
}

// Stop halts the schedule and waits for a running poll to finish.
func (s *WatcherService) Stop() {
	<-s.cron.Stop().Done()
}

// Watch registers a vacancy watch.
func (s *WatcherService) Watch(ctx context.Context, w *SeatWatch) error {
	if _, err := enroll.ByName(w.Category); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode seat watch: %w", err)
	}
	if err := s.client.HSet(ctx, watchesKey, w.SectionID, raw).Err(); err != nil {
		return fmt.Errorf("store seat watch: %w", err)
	}
	return nil
}

// Unwatch removes a registered watch.
func (s *WatcherService) Unwatch(ctx context.Context, sectionID string) error {
	if err := s.client.HDel(ctx, watchesKey, sectionID).Err(); err != nil {
		return fmt.Errorf("remove seat watch: %w", err)
	}
	return nil
}

// Pause raises the cooperative stop flag; polling resumes after Resume.
func (s *WatcherService) Pause(ctx context.Context) error {
	return s.client.Set(ctx, watchStopKey, "1", 0).Err()
}

// Resume clears the stop flag.
func (s *WatcherService) Resume(ctx context.Context) error {
	return s.client.Del(ctx, watchStopKey).Err()
}

// poll runs one sweep. The stop flag is checked once per sweep so a pause
// takes effect at the next poll boundary.
func (s *WatcherService) poll(ctx context.Context) {
	stopped, err := s.client.Exists(ctx, watchStopKey).Result()
	if err != nil {
		s.logger.Warn("watch stop flag read failed", zap.Error(err))
		return
	}
	if stopped > 0 {
		return
	}

	entries, err := s.client.HGetAll(ctx, watchesKey).Result()
	if err != nil {
		s.logger.Warn("watch entries read failed", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	// One snapshot per (category, user) pair covers all of that user's
	// watches.
	type sweepKey struct{ category, username string }
	counts := make(map[sweepKey]map[string]int)

	for _, raw := range entries {
		var w SeatWatch
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			s.logger.Warn("malformed seat watch entry", zap.Error(err))
			continue
		}

		k := sweepKey{category: w.Category, username: w.Username}
		snapshot, ok := counts[k]
		if !ok {
			snapshot, err = s.fetchSnapshot(ctx, w)
			if err != nil {
				s.logger.Warn("seat snapshot failed",
					zap.String("user", w.Username), zap.String("category", w.Category), zap.Error(err))
				continue
			}
			counts[k] = snapshot
		}

		enrolled, ok := snapshot[w.SectionID]
		if !ok {
			continue
		}
		s.compareAndNotify(ctx, w, enrolled)
	}
}

func (s *WatcherService) fetchSnapshot(ctx context.Context, w SeatWatch) (map[string]int, error) {
	cat, err := enroll.ByName(w.Category)
	if err != nil {
		return nil, err
	}
	host, cookie, err := s.picker.Pick(ctx, w.Username)
	if err != nil {
		return nil, err
	}
	att := enroll.Attempt{BaseURL: s.cfg.BaseURL(host), Host: host, Cookie: cookie}

	seats, err := s.fetcher.FetchSeatCounts(ctx, att, cat, enroll.CohortOf(w.Username), s.wcfg.PageSize)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]int, len(seats))
	for _, seat := range seats {
		n, err := strconv.Atoi(seat.Enrolled)
		if err != nil {
			continue
		}
		snapshot[seat.SectionID] = n
	}
	return snapshot, nil
}

// compareAndNotify fires when the enrolled count for a watched section drops
// below the previous sweep's value.
func (s *WatcherService) compareAndNotify(ctx context.Context, w SeatWatch, enrolled int) {
	prev, err := s.client.HGet(ctx, seatsLastKey, w.SectionID).Result()
	if err != nil && err != redis.Nil {
		s.logger.Warn("last seat count read failed", zap.String("section", w.SectionID), zap.Error(err))
		return
	}
	if err := s.client.HSet(ctx, seatsLastKey, w.SectionID, enrolled).Err(); err != nil {
		s.logger.Warn("last seat count write failed", zap.String("section", w.SectionID), zap.Error(err))
	}
	if err == redis.Nil {
		return
	}

	last, convErr := strconv.Atoi(prev)
	if convErr != nil {
		return
	}
	if enrolled < last {
		s.logger.Info("seat vacancy detected",
			zap.String("section", w.SectionID),
			zap.String("course", w.CourseName),
			zap.Int("enrolled", enrolled),
			zap.Int("previous", last))
		s.notify.NotifyVacancy(ctx, w.Email, w.Username, w.CourseName)
	}
}
