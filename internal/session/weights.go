package session

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const weightsKey = "host:weights"

// Score adjustments. Only a confirmed submission rewards a host; every other
// non-success outcome costs it rank. Concurrent writers race benignly, since
// ZINCRBY makes the store do the read-modify-write.
const (
	rewardDelta  = 15
	penaltyDelta = -25
	decayDelta   = -20
)

// WeightTable ranks backend hosts by a soft health score kept in a Redis
// sorted set. Scores are a load-balancing hint, not a correctness value.
type WeightTable struct {
	client *redis.Client
	logger *zap.Logger
}

// NewWeightTable constructs the table.
func NewWeightTable(client *redis.Client, logger *zap.Logger) *WeightTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeightTable{client: client, logger: logger}
}

// Seed registers hosts with a zero score unless already present.
func (t *WeightTable) Seed(ctx context.Context, hosts []string) error {
	members := make([]redis.Z, 0, len(hosts))
	for _, h := range hosts {
		members = append(members, redis.Z{Score: 0, Member: h})
	}
	if len(members) == 0 {
		return nil
	}
	if err := t.client.ZAddNX(ctx, weightsKey, members...).Err(); err != nil {
		return fmt.Errorf("seed host weights: %w", err)
	}
	return nil
}

// Ranked returns an iterator yielding hosts in descending score order,
// advancing one rank per call so a retry naturally lands on the next-best
// host.
func (t *WeightTable) Ranked(ctx context.Context) *RankIterator {
	return &RankIterator{table: t, ctx: ctx}
}

// Best returns the top-ranked host.
func (t *WeightTable) Best(ctx context.Context) (string, error) {
	hosts, err := t.client.ZRevRange(ctx, weightsKey, 0, 0).Result()
	if err != nil {
		return "", fmt.Errorf("best host: %w", err)
	}
	if len(hosts) == 0 {
		return "", fmt.Errorf("no hosts registered")
	}
	return hosts[0], nil
}

// Score returns a host's current score.
func (t *WeightTable) Score(ctx context.Context, host string) (float64, error) {
	score, err := t.client.ZScore(ctx, weightsKey, host).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("host score: %w", err)
	}
	return score, nil
}

// Reward credits a host after a confirmed successful submission.
func (t *WeightTable) Reward(ctx context.Context, host string) {
	t.adjust(ctx, host, rewardDelta)
}

// Penalize debits a host after a rejection or exhausted retries.
func (t *WeightTable) Penalize(ctx context.Context, host string) {
	t.adjust(ctx, host, penaltyDelta)
}

// Decay debits a host after a soft timeout.
func (t *WeightTable) Decay(ctx context.Context, host string) {
	t.adjust(ctx, host, decayDelta)
}

func (t *WeightTable) adjust(ctx context.Context, host string, delta float64) {
	if host == "" {
		return
	}
	if err := t.client.ZIncrBy(ctx, weightsKey, delta, host).Err(); err != nil {
		t.logger.Warn("host weight adjustment failed",
			zap.String("host", host), zap.Float64("delta", delta), zap.Error(err))
	}
}

// RankIterator walks the weight table from best to worst.
type RankIterator struct {
	table *WeightTable
	ctx   context.Context
	rank  int64
}

// Next yields the host at the current rank and advances. ok is false once the
// table is exhausted or unreachable.
func (it *RankIterator) Next() (host string, ok bool) {
	hosts, err := it.table.client.ZRevRange(it.ctx, weightsKey, it.rank, it.rank).Result()
	if err != nil || len(hosts) == 0 {
		return "", false
	}
	it.rank++
	return hosts[0], true
}

// Picker binds the weight table to a user's sessions: the best-ranked host
// the user actually holds a session on wins; with no ranked match it falls
// back to a uniformly random session.
type Picker struct {
	store   *Store
	weights *WeightTable
}

// NewPicker constructs a Picker.
func NewPicker(store *Store, weights *WeightTable) *Picker {
	return &Picker{store: store, weights: weights}
}

// Pick returns the host and cookie to use for the next attempt.
func (p *Picker) Pick(ctx context.Context, username string) (host, cookie string, err error) {
	it := p.weights.Ranked(ctx)
	for {
		h, ok := it.Next()
		if !ok {
			break
		}
		has, err := p.store.Has(ctx, username, h)
		if err != nil {
			return "", "", err
		}
		if has {
			c, err := p.store.Cookie(ctx, username, h)
			if err != nil {
				return "", "", err
			}
			return h, c, nil
		}
	}

	sessions, err := p.store.All(ctx, username)
	if err != nil {
		return "", "", err
	}
	if len(sessions) == 0 {
		return "", "", fmt.Errorf("user %s holds no sessions", username)
	}

	hosts := make([]string, 0, len(sessions))
	for h := range sessions {
		hosts = append(hosts, h)
	}
	h := hosts[rand.Intn(len(hosts))]
	return h, sessions[h], nil
}
