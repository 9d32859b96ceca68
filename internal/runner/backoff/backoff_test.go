package backoff

import (
	"testing"
	"time"
)

func TestDelayForAttempt_CapsAtConfiguredMaximum(t *testing.T) {
	cfg := Config{BaseSeconds: 2, CapSeconds: 10}
	seed := Seed("run1", "step1", 10) // 2*2^10 is far beyond the cap
	d := DelayForAttempt(10, cfg, seed)
	// capped portion is exactly 10s; jitter adds at most 10% of that.
	if d < 10*time.Second || d > 11*time.Second {
		t.Errorf("DelayForAttempt = %v, want within [10s, 11s]", d)
	}
}

func TestDelayForAttempt_GrowsExponentially(t *testing.T) {
	cfg := Config{BaseSeconds: 1, CapSeconds: 1000}
	d0 := DelayForAttempt(0, cfg, Seed("r", "s", 0))
	d1 := DelayForAttempt(1, cfg, Seed("r", "s", 1))
	d2 := DelayForAttempt(2, cfg, Seed("r", "s", 2))
	if !(d0 < d1 && d1 < d2) {
		t.Errorf("expected strictly increasing delays, got %v, %v, %v", d0, d1, d2)
	}
}

func TestDelayForAttempt_DeterministicForSameSeed(t *testing.T) {
	cfg := Config{BaseSeconds: 2, CapSeconds: 60}
	seed := Seed("run-x", "step-y", 3)
	d1 := DelayForAttempt(3, cfg, seed)
	d2 := DelayForAttempt(3, cfg, seed)
	if d1 != d2 {
		t.Errorf("same seed produced different delays: %v vs %v", d1, d2)
	}
}

func TestDelayForAttempt_DifferentSeedsDiffer(t *testing.T) {
	cfg := Config{BaseSeconds: 2, CapSeconds: 60}
	d1 := DelayForAttempt(3, cfg, Seed("run-a", "step-y", 3))
	d2 := DelayForAttempt(3, cfg, Seed("run-b", "step-y", 3))
	if d1 == d2 {
		t.Error("expected different seeds to (almost certainly) produce different jitter")
	}
}

func TestDelayForAttempt_ZeroConfigFallsBackToDefaults(t *testing.T) {
	d := DelayForAttempt(0, Config{}, Seed("r", "s", 0))
	if d < time.Duration(DefaultBaseSeconds*float64(time.Second)) {
		t.Errorf("DelayForAttempt with zero config = %v, want >= base default", d)
	}
}
