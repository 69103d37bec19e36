package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// retryPolicy bounds attempts and exponential backoff for one runtime.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func newRetryPolicy(attempts int, base, maxDelay time.Duration, defAttempts int, defBase, defMax time.Duration) retryPolicy {
	if attempts <= 0 {
		attempts = defAttempts
	}
	if base <= 0 {
		base = defBase
	}
	if maxDelay <= 0 {
		maxDelay = defMax
	}
	return retryPolicy{attempts: attempts, baseDelay: base, maxDelay: maxDelay}
}

// delay is the jittered backoff before retry number attempt (1-based).
func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.baseDelay << (attempt - 1)
	d = withJitter(d)
	if p.maxDelay > 0 && d > p.maxDelay {
		d = p.maxDelay
	}
	return d
}

// classifier turns a decoded non-2xx response into a typed error.
type classifier func(apiErr *APIError, resp *http.Response) error

// send performs newReq until it gets a 2xx response, retrying transient
// network failures, 429 and 5xx. The caller owns the returned body.
func send(ctx context.Context, hc *http.Client, p retryPolicy, newReq func() (*http.Request, error), classify classifier) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := hc.Do(req)
		if err != nil {
			lastErr = &UnreachableError{Host: req.URL.Host, Err: redactURL(err, req.URL)}
			if ctx.Err() == nil && isRetryableNetErr(err) && attempt < p.attempts {
				if err := sleepCtx(ctx, p.delay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		apiErr := decodeAPIError(resp)
		_ = resp.Body.Close()
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == p.attempts {
			return nil, classify(apiErr, resp)
		}
		lastErr = apiErr
		wait := p.delay(attempt)
		if ra, ok := retryAfter(resp); ok {
			wait = ra
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// decodeAPIError extracts message, code and request id from an error body.
// Both {"error":{"message":..}} and {"error":".."} shapes are understood.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}
	for _, path := range []string{"error.message", "message", "error"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
			apiErr.Message = r.Str
			break
		}
	}
	for _, path := range []string{"error.code", "code", "error.status"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
			apiErr.Code = r.Str
			break
		}
	}
	return apiErr
}

// classifyAPIError maps an APIError to a ProviderError kind. Unclassified
// responses are returned as the bare APIError.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	msg := strings.ToLower(apiErr.Message)
	kind := FailureUnknown
	var wait time.Duration
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		kind = FailureAuth
	case sc == http.StatusTooManyRequests:
		kind = FailureRateLimit
		wait, _ = retryAfter(resp)
	case sc == http.StatusNotFound:
		if apiErr.Code == "model_not_found" || (strings.Contains(msg, "model") && strings.Contains(msg, "not found")) {
			kind = FailureModel
		}
	case sc == http.StatusBadRequest:
		kind = FailureRequest
	case apiErr.Code == "quota_exceeded" || strings.Contains(msg, "quota") || strings.Contains(msg, "billing"):
		kind = FailureQuota
	case sc >= 500:
		kind = FailureUpstream
	}
	if kind == FailureUnknown {
		return apiErr
	}
	return &ProviderError{APIError: apiErr, Kind: kind, RetryAfter: wait}
}

// redactURL drops the query string from a transport error so credentials
// passed as parameters never reach logs.
func redactURL(err error, u *url.URL) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	clean := *u
	clean.RawQuery = ""
	clean.User = nil
	return &url.Error{Op: ue.Op, URL: clean.String(), Err: ue.Err}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryAfter reads a Retry-After header given as seconds or an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "Openrouter-Request-Id", "X-Goog-Request-Id", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter applies +/- 20% jitter to d.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	f := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * f)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
