package domain

import (
	"math/rand/v2"
	"time"
)

// DefaultDelaySeconds is the inter-invite delay used when a request omits it.
const DefaultDelaySeconds = 60

// DelayRange is the inclusive range, in seconds, from which the pause between
// two invitations is drawn.
type DelayRange struct {
	Min int
	Max int
}

// DefaultDelayRange returns the delay range applied when none is supplied.
func DefaultDelayRange() DelayRange {
	return DelayRange{Min: DefaultDelaySeconds, Max: DefaultDelaySeconds}
}

// IsZero reports whether the range was left unset.
func (d DelayRange) IsZero() bool {
	return d.Min == 0 && d.Max == 0
}

// Validate checks that the bounds are non-negative and ordered.
func (d DelayRange) Validate() error {
	if d.Min < 0 {
		return NewValidationError("delayRange.min", "must not be negative", ErrValidation)
	}
	if d.Max < d.Min {
		return NewValidationError("delayRange.max", "must be greater than or equal to min", ErrValidation)
	}
	return nil
}

// Draw returns a delay drawn uniformly from the whole seconds in [Min, Max].
func (d DelayRange) Draw(r *rand.Rand) time.Duration {
	seconds := d.Min
	if d.Max > d.Min {
		seconds += r.IntN(d.Max - d.Min + 1)
	}
	return time.Duration(seconds) * time.Second
}
