package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"shopfinder/pkg/models"
	"shopfinder/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Fetcher issues HTTP GETs with a bounded retry policy. Site-level
// rejections (403) terminate immediately; rate limiting (429) backs off
// exponentially; server and network failures back off linearly. All other
// client errors are terminal for the target.
type Fetcher struct {
	client            *http.Client
	identity          RequestIdentity
	attemptBudget     int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
	maxBodyBytes      int64
	log               *logrus.Entry

	totalAttempts atomic.Int64
}

// NewFetcher wires a fetcher around the shared client.
func NewFetcher(client *http.Client, identity RequestIdentity, attemptBudget int, initialRetryDelay, maxRetryDelay time.Duration, maxBodyBytes int64, log *logrus.Entry) *Fetcher {
	if attemptBudget <= 0 {
		attemptBudget = 3
	}
	if initialRetryDelay <= 0 {
		initialRetryDelay = time.Second
	}
	if maxRetryDelay < initialRetryDelay {
		maxRetryDelay = 30 * time.Second
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 2 * 1024 * 1024
	}
	return &Fetcher{
		client:            client,
		identity:          identity,
		attemptBudget:     attemptBudget,
		initialRetryDelay: initialRetryDelay,
		maxRetryDelay:     maxRetryDelay,
		maxBodyBytes:      maxBodyBytes,
		log:               log,
	}
}

// TotalAttempts reports the number of network attempts issued so far,
// including retries.
func (f *Fetcher) TotalAttempts() int64 {
	return f.totalAttempts.Load()
}

// Fetch retrieves rawURL, applying the retry policy. The returned outcome
// always carries the classified status and attempt count; err is non-nil
// whenever Status != StatusSuccess.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (models.FetchOutcome, error) {
	outcome := models.FetchOutcome{FinalURL: rawURL}
	var lastErr error

	for attempt := 1; attempt <= f.attemptBudget; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return outcome, lastErr
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return outcome, utils.WrapErrorf(utils.ErrRequestCreation, "%s: %v", rawURL, err)
		}
		req.Header.Set("User-Agent", f.identity.UserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		outcome.Attempts = attempt
		f.totalAttempts.Add(1)

		resp, err := f.client.Do(req)
		if err != nil {
			outcome.Status = classifyTransportError(err)
			lastErr = err
			f.log.WithFields(logrus.Fields{"url": rawURL, "attempt": attempt, "status": outcome.Status}).
				Debugf("Fetch attempt failed: %v", err)
			if !f.sleepBeforeRetry(ctx, attempt, outcome.Status) {
				break
			}
			continue
		}

		code := resp.StatusCode
		outcome.HTTPCode = code
		outcome.FinalURL = resp.Request.URL.String()

		switch {
		case code >= 200 && code < 300:
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
			resp.Body.Close()
			if readErr != nil {
				outcome.Status = models.StatusNetworkError
				lastErr = utils.WrapErrorf(utils.ErrResponseBodyRead, "%s: %v", rawURL, readErr)
				if !f.sleepBeforeRetry(ctx, attempt, outcome.Status) {
					break
				}
				continue
			}
			outcome.Status = models.StatusSuccess
			outcome.Body = body
			return outcome, nil

		case code == http.StatusForbidden:
			drainAndClose(resp.Body)
			outcome.Status = models.StatusBlocked
			return outcome, utils.WrapErrorf(utils.ErrBlocked, "%s", rawURL)

		case code == http.StatusTooManyRequests:
			drainAndClose(resp.Body)
			outcome.Status = models.StatusRateLimited
			lastErr = utils.WrapErrorf(utils.ErrRateLimited, "%s", rawURL)
			if !f.sleepBeforeRetry(ctx, attempt, outcome.Status) {
				break
			}
			continue

		case code >= 500:
			drainAndClose(resp.Body)
			outcome.Status = models.StatusServerError
			lastErr = utils.WrapErrorf(utils.ErrServerHTTPError, "status %d for %s", code, rawURL)
			if !f.sleepBeforeRetry(ctx, attempt, outcome.Status) {
				break
			}
			continue

		default:
			drainAndClose(resp.Body)
			outcome.Status = models.StatusClientError
			return outcome, utils.WrapErrorf(utils.ErrClientHTTPError, "status %d for %s", code, rawURL)
		}
		break
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no attempt issued for %s", rawURL)
	}
	return outcome, fmt.Errorf("%w: %w", utils.ErrAttemptsExhausted, lastErr)
}

// sleepBeforeRetry waits the backoff delay for the next attempt. Returns
// false when the budget is spent or the context is cancelled, meaning the
// caller must stop retrying.
func (f *Fetcher) sleepBeforeRetry(ctx context.Context, attempt int, status models.FetchStatus) bool {
	if attempt >= f.attemptBudget {
		return false
	}

	var delay time.Duration
	if status == models.StatusRateLimited {
		delay = f.initialRetryDelay << (attempt - 1)
	} else {
		delay = f.initialRetryDelay * time.Duration(attempt)
	}
	if delay > f.maxRetryDelay {
		delay = f.maxRetryDelay
	}
	// +/-10% jitter to avoid synchronized retries across workers
	jitter := time.Duration(rand.Int63n(int64(delay)/5+1)) - delay/10
	delay += jitter

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func classifyTransportError(err error) models.FetchStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.StatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.StatusTimeout
	}
	return models.StatusNetworkError
}

// drainAndClose consumes the remaining body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	body.Close()
}
