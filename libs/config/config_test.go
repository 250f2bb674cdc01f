package config

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("HORIZON_P1", "36h")
	d, err := Duration("HORIZON_P1", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 36*time.Hour {
		t.Fatalf("expected 36h, got %s", d)
	}

	t.Setenv("HORIZON_P1", "-1h")
	if _, err := Duration("HORIZON_P1", time.Hour); err == nil {
		t.Fatal("expected error for negative duration")
	}

	d, err = Duration("HORIZON_UNSET", 2*time.Hour)
	if err != nil || d != 2*time.Hour {
		t.Fatalf("expected fallback 2h, got %s (err=%v)", d, err)
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("AUTO_MIGRATE", "Yes")
	if !Bool("AUTO_MIGRATE", false) {
		t.Fatal("expected true")
	}
	t.Setenv("AUTO_MIGRATE", "nope")
	if Bool("AUTO_MIGRATE", true) {
		t.Fatal("expected false")
	}

	t.Setenv("BATCH", "abc")
	if got := Int("BATCH", 50); got != 50 {
		t.Fatalf("expected fallback 50, got %d", got)
	}
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8080"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	got := List("KAFKA_BROKERS", "")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected list: %v", got)
	}
}
