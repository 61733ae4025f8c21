package utils

import (
	"time"
)

// ExponentialBackoff accepts a base time.Duration and attempt number. It
// returns how long should be waited before attempting again.
func ExponentialBackoff(base time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

// CappedExponentialBackoff behaves like ExponentialBackoff but never returns
// more than max.
func CappedExponentialBackoff(base, max time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 1; i < attempt; i++ {
		if backoff >= max {
			return max
		}
		backoff *= 2
	}
	if backoff > max {
		return max
	}
	return backoff
}
