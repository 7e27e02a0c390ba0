package secure

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal"
)

type requestLimitCheck struct {
	redis           redis.UniversalClient
	max             int
	window          time.Duration
	ignoreWhitelist bool
}

func newRequestLimitCheck(cfg RequestLimitConfig, redisClient redis.UniversalClient) *requestLimitCheck {
	return &requestLimitCheck{
		redis:           redisClient,
		max:             cfg.MaxRequests,
		window:          cfg.RateLimit,
		ignoreWhitelist: cfg.IgnoreWhitelist,
	}
}

func (c *requestLimitCheck) Name() string { return CheckNameRequestLimit }

// Check enforces a fixed per-IP request window: INCR with a TTL set on the
// first hit. The counter self-expires, resetting the window.
func (c *requestLimitCheck) Check(r *http.Request, stream *Stream) Result {
	if c.ignoreWhitelist && stream.InWhitelist() {
		return Result{OK: true, Name: CheckNameRequestLimit, Status: StatusIgnored}
	}

	key := internal.RateLimitKey(stream.ClientIP)
	ctx := r.Context()

	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return Result{Name: CheckNameRequestLimit, Status: StatusBlocked, Err: ErrUnavailable}
	}
	if count == 1 {
		if err := c.redis.Expire(ctx, key, c.window).Err(); err != nil {
			return Result{Name: CheckNameRequestLimit, Status: StatusBlocked, Err: ErrUnavailable}
		}
	}

	if count > int64(c.max) {
		return Result{
			Name:   CheckNameRequestLimit,
			Status: StatusBlocked,
			Data:   map[string]any{"count": count, "max": c.max},
			Err:    ErrRateLimited,
		}
	}

	return Result{
		OK:     true,
		Name:   CheckNameRequestLimit,
		Status: StatusPassed,
		Data:   map[string]any{"count": count},
	}
}
