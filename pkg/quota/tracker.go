package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota accounting.
var (
	ytQuotaUnitsUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "youtube_quota_units_used",
		Help: "Quota units consumed in the current Pacific day",
	})

	ytQuotaUnitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youtube_quota_units_total",
		Help: "Total quota units recorded by API method",
	}, []string{"method"})
)

// Tracker records quota usage in Redis.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	limit  int
	now    func() time.Time
}

// NewTracker creates a quota tracker. A dailyLimit <= 0 selects DefaultDailyLimit.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, dailyLimit int) *Tracker {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		limit:  dailyLimit,
		now:    time.Now,
	}
}

// Limit returns the configured daily budget.
func (t *Tracker) Limit() int {
	return t.limit
}

// Record adds the cost of one call to method to today's usage.
func (t *Tracker) Record(ctx context.Context, method string) error {
	now := t.now()
	day := DayOf(now)
	cost := Cost(method)

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	used := pipe.IncrBy(ctx, usedKey(day), int64(cost))
	pipe.Expire(ctx, usedKey(day), dayKeyTTL)
	pipe.HIncrBy(ctx, methodsKey(day), method, int64(cost))
	pipe.Expire(ctx, methodsKey(day), dayKeyTTL)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota usage in redis: %w", err)
	}

	ytQuotaUnitsTotal.WithLabelValues(method).Add(float64(cost))
	ytQuotaUnitsUsed.Set(float64(used.Val()))

	state := &State{Day: day, Used: int(used.Val()), Limit: t.limit}
	switch {
	case state.IsExhausted():
		t.logger.Error().
			Str("day", day).
			Int("used", state.Used).
			Int("limit", state.Limit).
			Dur("reset_in", state.TimeUntilReset(now)).
			Msg("YouTube quota exhausted - further requests will be rejected by the API")
	case state.NearLimit():
		t.logger.Warn().
			Str("day", day).
			Int("used", state.Used).
			Int("remaining", state.Remaining()).
			Msg("YouTube quota nearly exhausted")
	default:
		t.logger.Debug().
			Str("method", method).
			Int("cost", cost).
			Int("used", state.Used).
			Msg("Quota usage recorded")
	}

	return nil
}

// GetState returns today's usage. A day with no recorded calls yields a
// zero-usage state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	day := DayOf(t.now())

	used, err := t.redis.Get(ctx, usedKey(day)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get quota used: %w", err)
	}

	methods, err := t.redis.HGetAll(ctx, methodsKey(day)).Result()
	if err != nil {
		return nil, fmt.Errorf("get quota methods: %w", err)
	}

	byMethod := make(map[string]int, len(methods))
	for method, v := range methods {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse quota for %s: %w", method, err)
		}
		byMethod[method] = n
	}

	state := &State{
		Day:      day,
		Used:     used,
		Limit:    t.limit,
		ByMethod: byMethod,
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	ytQuotaUnitsUsed.Set(float64(used))
	return state, nil
}
