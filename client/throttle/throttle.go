package throttle

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// requestIDHeader is read only to label log lines.
const requestIDHeader = "X-Request-ID"

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter. logFn lazily resolves the logger at request
// time; a nil-returning logFn disables the exhaustion log lines.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	// Reserve rather than Allow+Wait so one token is taken per request.
	res := t.limiter.Reserve()
	if !res.OK() {
		return nil, fmt.Errorf("%w: burst %d", ErrWaitingFailed, t.cfg.Burst)
	}

	delay := res.Delay()
	if delay > 0 {
		if logger := t.logFn(); logger != nil {
			logger.Info("throttle tokens exhausted",
				"request_id", r.Header.Get(requestIDHeader),
				"rate", t.cfg.RPS, "burst", t.cfg.Burst,
				"delay", delay.String(), "path", r.URL.Path)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			res.Cancel()
			return nil, fmt.Errorf("%w: %w: %w", ErrWaitingFailed, ErrContextEnded, ctx.Err())
		}
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
