package core

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrModelCallLimit is returned once a run exceeds its model call budget.
var ErrModelCallLimit = errors.New("exceeded max model calls")

// ModelLimiter bounds the number of model calls of one run. A zero budget
// is unlimited.
type ModelLimiter struct {
	budget int64
	calls  atomic.Int64
}

// NewModelLimiter creates a limiter allowing budget model calls.
func NewModelLimiter(budget int) *ModelLimiter {
	return &ModelLimiter{budget: int64(budget)}
}

// Acquire reserves one model call and fails with ErrModelCallLimit once the
// budget is spent.
func (ml *ModelLimiter) Acquire() error {
	if n := ml.calls.Add(1); ml.budget > 0 && n > ml.budget {
		return fmt.Errorf("%w: %d", ErrModelCallLimit, ml.budget)
	}
	return nil
}

// Calls returns the number of reservations made, rejected ones included.
func (ml *ModelLimiter) Calls() int { return int(ml.calls.Load()) }
