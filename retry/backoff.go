// Package retry provides the backoff calculator and the retry wrapper used
// for every strategy of the cascade.
package retry

import (
	"math"
	"time"

	"github.com/use-agent/cascade/models"
)

// Delay returns the wait before the retry that follows attempt (0-indexed
// count of retries already performed).
//
//	exponential: base * 2^attempt
//	linear:      base * (attempt+1)
//	constant:    base
//
// Unknown types fall back to exponential. Negative attempts are not
// rejected; they yield the mathematically consistent value.
func Delay(attempt int, base time.Duration, typ models.BackoffType) time.Duration {
	switch typ {
	case models.BackoffLinear:
		return time.Duration(float64(base) * float64(attempt+1))
	case models.BackoffConstant:
		return base
	default:
		return time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	}
}
