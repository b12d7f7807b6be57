package ratelimit

import (
	"testing"
	"time"
)

type testConfig struct {
	disabled bool
}

func (c testConfig) GetDisableRateLimit() bool { return c.disabled }

func TestCheckRetryRateLimit(t *testing.T) {
	recent := time.Now().Add(-1 * time.Minute)
	old := time.Now().Add(-10 * time.Minute)

	testCases := []struct {
		name          string
		disabled      bool
		lastEscalated *time.Time
		forced        bool
		shouldBlock   bool
		reason        string
	}{
		{
			name:          "disabled rate limiting",
			disabled:      true,
			lastEscalated: &recent,
			reason:        "rate_limiting_disabled",
		},
		{
			name:          "forced retry bypasses cooldown",
			lastEscalated: &recent,
			forced:        true,
			reason:        "forced_retry",
		},
		{
			name:   "no previous attempt",
			reason: "no_previous_attempt",
		},
		{
			name:          "recent attempt blocks",
			lastEscalated: &recent,
			shouldBlock:   true,
			reason:        "rate_limit_active",
		},
		{
			name:          "old attempt passes",
			lastEscalated: &old,
			reason:        "rate_limit_passed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckRetryRateLimit(testConfig{disabled: tc.disabled}, tc.lastEscalated, tc.forced)
			if result.ShouldBlock != tc.shouldBlock {
				t.Errorf("expected ShouldBlock=%v, got %v", tc.shouldBlock, result.ShouldBlock)
			}
			if result.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, result.Reason)
			}
		})
	}
}

func TestCheckRetryRateLimit_RemainingTime(t *testing.T) {
	lastEscalated := time.Now().Add(-1 * time.Minute)
	result := CheckRetryRateLimit(testConfig{}, &lastEscalated, false)

	if !result.ShouldBlock {
		t.Fatal("expected blocking result")
	}
	if result.RemainingTime <= 0 || result.RemainingTime > GetRateLimitDuration() {
		t.Errorf("remaining time out of range: %s", result.RemainingTime)
	}
	// Roughly four minutes should remain of the five minute cooldown
	if result.RemainingTime < 3*time.Minute {
		t.Errorf("remaining time suspiciously low: %s", result.RemainingTime)
	}
}
