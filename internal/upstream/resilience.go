package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Policy controls how many times a request is retried and how long to wait
// between attempts. MaxRetries of zero means a single attempt.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NoRetry performs exactly one attempt.
var NoRetry = Policy{MaxRetries: 0, InitialInterval: time.Millisecond}

var (
	ErrRateLimited   = errors.New("rate limited")
	ErrCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidPolicy = errors.New("invalid retry policy")
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "upstream returned " + e.Status
	}
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

// NewBreaker returns a circuit breaker with the settings shared by all
// outbound clients. Client errors other than 429 are caused by the request
// itself and do not count against the upstream.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      30 * time.Second,
		IsSuccessful: isBreakerSuccess,
	})
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < 500
}

// Do executes the request built by buildRequest through the circuit breaker,
// retrying according to policy. The caller owns the returned body.
func Do(
	ctx context.Context,
	client *http.Client,
	policy Policy,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	if policy.MaxRetries < 0 || policy.InitialInterval <= 0 {
		return nil, errInvalidPolicy
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			discard(resp)
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, ErrRateLimited
			}
			return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		// Client errors other than 429 will not change on retry.
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return nil, err
		}

		if attempt >= policy.MaxRetries {
			return nil, err
		}

		delay := policy.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > policy.MaxInterval && policy.MaxInterval > 0 {
			delay = policy.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
