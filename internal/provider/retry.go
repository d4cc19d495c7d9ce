package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

var (
	retryAfterTryAgainRegex = regexp.MustCompile(`(?i)try again in (\d+)\s*(second|minute|hour)s?`)
	retryAfterWaitRegex     = regexp.MustCompile(`(?i)wait (\d+)\s*(second|minute|hour)s?`)
)

// errorType classifies a provider error for retry decisions.
type errorType int

const (
	errTransient errorType = iota
	errQuota
	errInvalid
	errAuth
	errUnknown
)

// RetryConfig tunes retryOpenStream's backoff and circuit breaker.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	MaxQuotaWait      time.Duration

	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultRetryConfig matches the teacher's AI supervisor defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		MaxQuotaWait:      15 * time.Minute,
		FailureThreshold:  5,
		SuccessThreshold:  2,
		OpenTimeout:       30 * time.Second,
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("provider: circuit breaker is open")

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// circuitBreaker prevents hammering a provider that is already failing;
// opening the stream is the only thing it guards (mid-stream errors
// surface to the caller directly, since a stream can't be transparently
// resumed once events have been consumed).
type circuitBreaker struct {
	mu sync.Mutex

	state            circuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

func newCircuitBreaker(cfg RetryConfig) *circuitBreaker {
	return &circuitBreaker{
		state:            circuitClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		openTimeout:      cfg.OpenTimeout,
	}
}

func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitOpen:
		if time.Since(cb.lastFailureTime) > cb.openTimeout {
			cb.state = circuitHalfOpen
			cb.successCount = 0
			return nil
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		cb.failureCount = 0
	case circuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = circuitClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

func (cb *circuitBreaker) recordFailure(et errorType) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()
	increment := 1
	if et == errQuota {
		increment = 3
	}

	switch cb.state {
	case circuitClosed:
		cb.failureCount += increment
		if cb.failureCount >= cb.failureThreshold {
			cb.state = circuitOpen
			cb.successCount = 0
		}
	case circuitHalfOpen:
		cb.state = circuitOpen
		cb.successCount = 0
	}
}

// classifyError inspects err for an Anthropic API status code first,
// falling back to string matching for transport-level failures.
func classifyError(err error) (errorType, time.Duration) {
	if err == nil {
		return errUnknown, 0
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return errQuota, parseRetryAfter(apiErr)
		case apiErr.StatusCode >= 500 && apiErr.StatusCode < 600:
			return errTransient, 0
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return errAuth, 0
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return errInvalid, 0
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return errQuota, parseRetryAfterFromMessage(msg)
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return errTransient, 0
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") || errors.Is(err, context.DeadlineExceeded):
		return errTransient, 0
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized"):
		return errAuth, 0
	case strings.Contains(msg, "400") || strings.Contains(msg, "bad request"):
		return errInvalid, 0
	}
	return errUnknown, 0
}

func parseRetryAfter(apiErr *anthropic.Error) time.Duration {
	if apiErr.Response != nil {
		if ra := apiErr.Response.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	if rawJSON := apiErr.RawJSON(); rawJSON != "" {
		if wait := parseRetryAfterFromMessage(rawJSON); wait > 0 {
			return wait
		}
	}
	return 1 * time.Hour
}

func parseRetryAfterFromMessage(msg string) time.Duration {
	for _, re := range []*regexp.Regexp{retryAfterTryAgainRegex, retryAfterWaitRegex} {
		if m := re.FindStringSubmatch(msg); len(m) == 3 {
			value, _ := strconv.Atoi(m[1])
			switch strings.ToLower(m[2]) {
			case "second":
				return time.Duration(value) * time.Second
			case "minute":
				return time.Duration(value) * time.Minute
			case "hour":
				return time.Duration(value) * time.Hour
			}
		}
	}
	return 0
}

// retryOpenStream retries the stream-open call open() with exponential
// backoff and circuit-breaker gating, mirroring the teacher's
// retryWithBackoff shape but bounded to the connection-open step: once
// a Stream is returned, event delivery is the caller's problem.
func retryOpenStream(ctx context.Context, cfg RetryConfig, cb *circuitBreaker, open func(context.Context) (Stream, error)) (Stream, error) {
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := cb.allow(); err != nil {
			return nil, fmt.Errorf("provider: stream open blocked: %w", err)
		}

		stream, err := open(ctx)
		if err == nil {
			cb.recordSuccess()
			return stream, nil
		}
		lastErr = err

		et, quotaWait := classifyError(err)
		if et == errAuth || et == errInvalid {
			return nil, err
		}
		cb.recordFailure(et)

		if attempt == cfg.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("provider: context canceled: %w", ctx.Err())
		}

		wait := backoff
		if et == errQuota {
			if quotaWait > cfg.MaxQuotaWait {
				return nil, fmt.Errorf("provider: quota wait %v exceeds max %v: %w", quotaWait, cfg.MaxQuotaWait, err)
			}
			wait = quotaWait
		}

		select {
		case <-time.After(wait):
			if et != errQuota {
				backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
				if backoff > cfg.MaxBackoff {
					backoff = cfg.MaxBackoff
				}
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("provider: context canceled during backoff: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("provider: stream open failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
