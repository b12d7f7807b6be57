package ratelimit

import (
	"time"
)

// Config interface for rate limiting configuration
type Config interface {
	GetDisableRateLimit() bool
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	ShouldBlock   bool
	RemainingTime time.Duration
	Reason        string
}

// CheckRetryRateLimit checks if a failed email may be sent back for
// another escalation attempt. Used by both manual requeue (handlers)
// and the escalation worker.
func CheckRetryRateLimit(cfg Config, lastEscalated *time.Time, isForced bool) RateLimitResult {
	if cfg.GetDisableRateLimit() {
		return RateLimitResult{
			ShouldBlock: false,
			Reason:      "rate_limiting_disabled",
		}
	}

	// Never rate limit forced retries
	if isForced {
		return RateLimitResult{
			ShouldBlock: false,
			Reason:      "forced_retry",
		}
	}

	// Never rate limit if the email was never escalated
	if lastEscalated == nil {
		return RateLimitResult{
			ShouldBlock: false,
			Reason:      "no_previous_attempt",
		}
	}

	rateLimit := GetRateLimitDuration()
	timeSinceLastAttempt := time.Since(*lastEscalated)

	if timeSinceLastAttempt < rateLimit {
		return RateLimitResult{
			ShouldBlock:   true,
			RemainingTime: rateLimit - timeSinceLastAttempt,
			Reason:        "rate_limit_active",
		}
	}

	return RateLimitResult{
		ShouldBlock: false,
		Reason:      "rate_limit_passed",
	}
}

// GetRateLimitDuration returns the cooldown between escalation attempts
func GetRateLimitDuration() time.Duration {
	return 5 * time.Minute
}
