package tallylib

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type httpClient struct {
	userAgent   string
	client      *http.Client
	rateLimiter *rate.Limiter

	circuitBreakersMutex sync.Mutex
	circuitBreakers      map[string]*circuitBreaker
	cbOpenThreshold      uint32
	cbHalfOpenTimeout    time.Duration
	cbResetTimeout       time.Duration
}

func (h *httpClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.breakerFor(req.URL.Host).Do(req.Context(), func(ctx context.Context) (*http.Response, error) {
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter has failed (%v): %w", err, ErrCircuitBreakerIgnore)
		}

		resp, err := h.client.Do(req.WithContext(ctx))
		if err != nil {
			if resp != nil {
				drainBody(resp)
			}

			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
			drainBody(resp)

			return nil, fmt.Errorf("netloc has responded with %s", resp.Status)
		case resp.StatusCode >= http.StatusBadRequest:
			drainBody(resp)

			return nil, fmt.Errorf("netloc has rejected a request with %s: %w",
				resp.Status, ErrCircuitBreakerIgnore)
		}

		return resp, nil
	})

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// breakerFor returns a breaker of the given host. Datasets are
// spread over several hosts (a page and a CDN, for example) and a dead
// CDN should not block the others.
func (h *httpClient) breakerFor(host string) *circuitBreaker {
	h.circuitBreakersMutex.Lock()
	defer h.circuitBreakersMutex.Unlock()

	cb, ok := h.circuitBreakers[host]
	if !ok {
		cb = newCircuitBreaker(h.cbOpenThreshold, h.cbHalfOpenTimeout, h.cbResetTimeout)
		h.circuitBreakers[host] = cb
	}

	return cb
}

func drainBody(resp *http.Response) {
	io.Copy(ioutil.Discard, resp.Body) // nolint: errcheck
	resp.Body.Close()
}

// NewHTTPClient wraps a given client with a rate limiter and a circuit
// breaker. Each request also gets a given user agent.
//
// Rate limiter parameters are the same as for
// https://pkg.go.dev/golang.org/x/time/rate: a request is allowed each
// rateLimiterInterval with a burst of rateLimitBurst.
//
// Each host gets its own circuit breaker. circuitBreakerOpenThreshold
// is a number of consecutive failures after which the breaker opens
// and rejects every request to that host. A failure counter is reset
// if there were no failures for circuitBreakerResetTimeout. Only
// network errors, 429 and 5xx responses are failures: other 4xx mean
// that a host is alive.
//
// circuitBreakerHalfOpenTimeout is a time the breaker stays open. After
// that it lets exactly one trial request through: if it succeeds, the
// breaker is closed again, otherwise it goes back to open state.
func NewHTTPClient(client *http.Client,
	userAgent string,
	rateLimiterInterval time.Duration,
	rateLimitBurst int,
	circuitBreakerOpenThreshold uint32,
	circuitBreakerHalfOpenTimeout, circuitBreakerResetTimeout time.Duration) HTTPClient {
	if client == nil {
		client = &http.Client{}
	}

	return &httpClient{
		userAgent:         userAgent,
		client:            client,
		rateLimiter:       rate.NewLimiter(rate.Every(rateLimiterInterval), rateLimitBurst),
		circuitBreakers:   map[string]*circuitBreaker{},
		cbOpenThreshold:   circuitBreakerOpenThreshold,
		cbHalfOpenTimeout: circuitBreakerHalfOpenTimeout,
		cbResetTimeout:    circuitBreakerResetTimeout,
	}
}
