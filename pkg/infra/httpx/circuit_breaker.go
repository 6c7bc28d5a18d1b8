package httpx

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreaker shields the remote service from request storms once it
// starts failing consistently.
type CircuitBreaker interface {
	Execute(fn func() error) error
}

// defaultHalfOpenRequests bounds how many probe requests a half-open breaker
// lets through before deciding to close or re-open.
const defaultHalfOpenRequests = 3

type breakerWrapper struct {
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreaker trips after maxFailures consecutive failures and probes
// again after timeout.
func NewCircuitBreaker(name string, timeout time.Duration, maxFailures uint32) CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: defaultHalfOpenRequests,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &breakerWrapper{
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (w *breakerWrapper) Execute(fn func() error) error {
	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		return fmt.Errorf("breaker (%s): %w", w.breaker.Name(), err)
	}
	return nil
}

// NopBreaker passes calls straight through. Used when the breaker is
// disabled by configuration.
type NopBreaker struct{}

func (NopBreaker) Execute(fn func() error) error {
	return fn()
}
