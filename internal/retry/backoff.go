package retry

import "time"

// ExponentialBackoff returns the delay before retry number attempt.
// The delay doubles with each attempt (base * 2^attempt) and never exceeds
// limit when limit is positive.
func ExponentialBackoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * (1 << attempt)
	if limit > 0 && (d > limit || d < base) {
		return limit
	}
	return d
}
