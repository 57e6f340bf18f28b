package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// Generation backends recover from transient faults quickly or not at all,
// so the budget is a few short attempts rather than a long retry loop.
const (
	maxAttempts = 4
	backoffUnit = 500 * time.Millisecond
)

// httpStatusError is a non-2xx reply from a generation backend.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

// transient reports whether a status is worth another attempt: server
// errors and rate limiting, never client errors.
func transient(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// doWithRetry issues the request up to maxAttempts times, backing off
// quadratically with jitter between attempts. buildReq runs once per
// attempt because a consumed request body cannot be replayed.
func doWithRetry(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			base := time.Duration(attempt*attempt) * backoffUnit
			wait := base + time.Duration(rand.Int64N(int64(base/2+1)))
			logger.Warn("Retrying generator request",
				"attempt", attempt, "backoff", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if transient(resp.StatusCode) {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &httpStatusError{status: resp.StatusCode, body: string(body)}
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("generator request failed after %d attempts: %w", maxAttempts, lastErr)
}
