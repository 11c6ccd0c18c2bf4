package tallylib

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

type circuitBreakerCallback func(context.Context) (*http.Response, error)

type circuitBreakerState uint8

const (
	circuitBreakerStateClosed circuitBreakerState = iota
	circuitBreakerStateHalfOpened
	circuitBreakerStateOpened
)

// circuitBreaker guards a single download host. It has no background
// timers: state transitions which depend on time are evaluated when
// somebody looks at the breaker.
//
// Closed breaker counts consecutive failures. If there were no failures
// for resetTimeout, the counter starts from scratch. Once the counter
// exceeds openThreshold, the breaker opens and rejects requests for
// halfOpenTimeout. Then it lets a single trial call through.
type circuitBreaker struct {
	mutex sync.Mutex
	now   func() time.Time

	state         circuitBreakerState
	failuresCount uint32
	lastFailureAt time.Time
	openedAt      time.Time
	trialInFlight bool

	openThreshold   uint32
	halfOpenTimeout time.Duration
	resetTimeout    time.Duration
}

func (c *circuitBreaker) Do(ctx context.Context, callback circuitBreakerCallback) (*http.Response, error) {
	isTrial, err := c.acquire()
	if err != nil {
		return nil, err
	}

	resp, err := callback(ctx)

	c.release(ctx, isTrial, err)

	return resp, err
}

func (c *circuitBreaker) acquire() (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch c.refresh() {
	case circuitBreakerStateOpened:
		return false, ErrCircuitBreakerOpened
	case circuitBreakerStateHalfOpened:
		if c.trialInFlight {
			return false, ErrCircuitBreakerOpened
		}

		c.trialInFlight = true

		return true, nil
	}

	return false, nil
}

func (c *circuitBreaker) release(ctx context.Context, isTrial bool, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// a caller gave up or a netloc was fine but did not like a request
	if errors.Is(err, ErrCircuitBreakerIgnore) || (err != nil && ctx.Err() != nil) {
		if isTrial {
			c.trialInFlight = false
		}

		return
	}

	switch {
	case isTrial && c.state != circuitBreakerStateHalfOpened:
	case isTrial && err != nil:
		c.open()
	case isTrial:
		c.close()
	case c.state != circuitBreakerStateClosed:
	case err == nil:
		c.failuresCount = 0
	default:
		c.failuresCount++
		c.lastFailureAt = c.now()

		if c.failuresCount > c.openThreshold {
			c.open()
		}
	}
}

// refresh applies time based transitions. Mutex has to be acquired.
func (c *circuitBreaker) refresh() circuitBreakerState {
	now := c.now()

	switch c.state {
	case circuitBreakerStateOpened:
		if now.Sub(c.openedAt) >= c.halfOpenTimeout {
			c.state = circuitBreakerStateHalfOpened
			c.trialInFlight = false
		}
	case circuitBreakerStateClosed:
		if c.failuresCount > 0 && now.Sub(c.lastFailureAt) >= c.resetTimeout {
			c.failuresCount = 0
		}
	}

	return c.state
}

func (c *circuitBreaker) open() {
	c.state = circuitBreakerStateOpened
	c.openedAt = c.now()
	c.failuresCount = 0
	c.trialInFlight = false
}

func (c *circuitBreaker) close() {
	c.state = circuitBreakerStateClosed
	c.failuresCount = 0
	c.trialInFlight = false
}

func newCircuitBreaker(openThreshold uint32, halfOpenTimeout, resetTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		now:             time.Now,
		openThreshold:   openThreshold,
		halfOpenTimeout: halfOpenTimeout,
		resetTimeout:    resetTimeout,
	}
}
