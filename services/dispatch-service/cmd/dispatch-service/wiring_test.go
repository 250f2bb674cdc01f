package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/calendar"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

func TestLoadHorizons(t *testing.T) {
	t.Setenv("HORIZON_P1", "12h")
	h, err := loadHorizons()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h[model.PriorityP1] != 12*time.Hour {
		t.Fatalf("expected P1 override 12h, got %s", h[model.PriorityP1])
	}
	if h[model.PriorityP2] != 72*time.Hour || h[model.PriorityP3] != 168*time.Hour {
		t.Fatalf("expected defaults for P2/P3, got %v", h)
	}

	t.Setenv("HORIZON_P3", "soon")
	if _, err := loadHorizons(); err == nil {
		t.Fatal("expected error for invalid horizon")
	}
}

func TestLoadCalendarDefaultsToNoop(t *testing.T) {
	t.Setenv("GOOGLE_CALENDAR_TOKEN", "")
	cal, err := loadCalendar(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cal.(calendar.Noop); !ok {
		t.Fatalf("expected Noop calendar, got %T", cal)
	}
}

func TestLoadRateLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Setenv("RATE_LIMIT", "")
	mw, rdb, err := loadRateLimiter(logger)
	if err != nil || mw != nil || rdb != nil {
		t.Fatalf("expected limiter disabled, got mw=%v rdb=%v err=%v", mw != nil, rdb, err)
	}

	t.Setenv("RATE_LIMIT", "100")
	t.Setenv("REDIS_URL", "")
	mw, rdb, err = loadRateLimiter(logger)
	if err != nil || mw == nil || rdb != nil {
		t.Fatalf("expected in-process limiter, got mw=%v rdb=%v err=%v", mw != nil, rdb, err)
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	mw, rdb, err = loadRateLimiter(logger)
	if err != nil || mw == nil || rdb == nil {
		t.Fatalf("expected redis limiter, got mw=%v rdb=%v err=%v", mw != nil, rdb, err)
	}
	_ = rdb.Close()
}
