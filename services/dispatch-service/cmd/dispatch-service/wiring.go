package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/plumbdesk/dispatch/libs/config"
	"github.com/plumbdesk/dispatch/libs/httpx"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/calendar"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
	"github.com/redis/go-redis/v9"
)

// loadHorizons reads HORIZON_P1..HORIZON_P3 over the built-in defaults.
func loadHorizons() (scheduling.HorizonPolicy, error) {
	h := scheduling.DefaultHorizons()
	for _, p := range []model.Priority{model.PriorityP1, model.PriorityP2, model.PriorityP3} {
		d, err := config.Duration("HORIZON_"+string(p), h[p])
		if err != nil {
			return nil, err
		}
		h[p] = d
	}
	return h, nil
}

// loadCalendar returns the Google client when a token is configured and the
// no-op calendar otherwise.
func loadCalendar(logger *slog.Logger) (calendar.Calendar, error) {
	token := config.String("GOOGLE_CALENDAR_TOKEN", "")
	if token == "" {
		logger.Info("calendar mirroring disabled")
		return calendar.Noop{}, nil
	}
	timeout, err := config.Duration("GOOGLE_CALENDAR_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	return calendar.NewGoogleClient(calendar.GoogleConfig{
		BaseURL: config.String("GOOGLE_CALENDAR_BASE_URL", calendar.DefaultGoogleBaseURL),
		Token:   token,
		Timeout: timeout,
	})
}

// loadRateLimiter prefers the shared Redis limiter when REDIS_URL is set and
// falls back to the in-process one. A zero RATE_LIMIT disables limiting.
func loadRateLimiter(logger *slog.Logger) (httpx.Middleware, *redis.Client, error) {
	limit := config.Int("RATE_LIMIT", 0)
	if limit == 0 {
		return nil, nil, nil
	}
	window, err := config.Duration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, nil, err
	}

	redisURL := config.String("REDIS_URL", "")
	if redisURL == "" {
		return httpx.NewRateLimiter(limit, window).Middleware(), nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	rl := httpx.NewRedisRateLimiter(rdb, limit, window, "dispatch:rl:")
	return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)), rdb, nil
}
