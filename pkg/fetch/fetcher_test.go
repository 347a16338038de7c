package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"shopfinder/pkg/models"
	"shopfinder/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// testClient returns an http.Client suitable for testing
func testClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func testFetcher(attemptBudget int) *Fetcher {
	return NewFetcher(testClient(), StaticIdentity("test-agent"), attemptBudget,
		10*time.Millisecond, 50*time.Millisecond, 1<<20, testLogger())
}

// mockServer creates an httptest.Server that returns status codes in
// sequence, repeating the last one. Returns the server and an attempt counter.
func mockServer(t *testing.T, statusCodes []int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	attemptCount := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := int(attemptCount.Add(1)) - 1
		if idx >= len(statusCodes) {
			idx = len(statusCodes) - 1
		}
		w.WriteHeader(statusCodes[idx])
		if statusCodes[idx] == http.StatusOK {
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(server.Close)
	return server, attemptCount
}

func TestFetch_Success(t *testing.T) {
	server, attempts := mockServer(t, []int{200}, "hello world")

	outcome, err := testFetcher(3).Fetch(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if outcome.Status != models.StatusSuccess {
		t.Errorf("expected success status, got %s", outcome.Status)
	}
	if string(outcome.Body) != "hello world" {
		t.Errorf("unexpected body: %q", outcome.Body)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetch_Blocked403_NoRetry(t *testing.T) {
	server, attempts := mockServer(t, []int{403}, "")

	outcome, err := testFetcher(3).Fetch(context.Background(), server.URL)

	if !errors.Is(err, utils.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got: %v", err)
	}
	if outcome.Status != models.StatusBlocked {
		t.Errorf("expected blocked status, got %s", outcome.Status)
	}
	if attempts.Load() != 1 {
		t.Errorf("403 must not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetch_RateLimited_ExhaustsBudget(t *testing.T) {
	server, attempts := mockServer(t, []int{429}, "")

	outcome, err := testFetcher(3).Fetch(context.Background(), server.URL)

	if !errors.Is(err, utils.ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got: %v", err)
	}
	if !errors.Is(err, utils.ErrRateLimited) {
		t.Fatalf("expected wrapped ErrRateLimited, got: %v", err)
	}
	if outcome.Status != models.StatusRateLimited {
		t.Errorf("expected rate_limited status, got %s", outcome.Status)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_ServerErrorThenSuccess(t *testing.T) {
	// 500 -> 500 -> 200 (succeeds on 3rd attempt)
	server, attempts := mockServer(t, []int{500, 500, 200}, "recovered")

	outcome, err := testFetcher(3).Fetch(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("expected no error after retry, got: %v", err)
	}
	if outcome.Status != models.StatusSuccess {
		t.Errorf("expected success, got %s", outcome.Status)
	}
	if outcome.Attempts != 3 || attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got outcome=%d server=%d", outcome.Attempts, attempts.Load())
	}
}

func TestFetch_ClientErrorTerminal(t *testing.T) {
	server, attempts := mockServer(t, []int{404}, "")

	outcome, err := testFetcher(3).Fetch(context.Background(), server.URL)

	if !errors.Is(err, utils.ErrClientHTTPError) {
		t.Fatalf("expected ErrClientHTTPError, got: %v", err)
	}
	if outcome.Status != models.StatusClientError {
		t.Errorf("expected client_error status, got %s", outcome.Status)
	}
	if attempts.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", attempts.Load())
	}
	if got := utils.CategorizeError(err); got != "HTTP_404" {
		t.Errorf("expected category HTTP_404, got %s", got)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server, _ := mockServer(t, []int{500}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := testFetcher(3).Fetch(ctx, server.URL)

	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if outcome.Status == models.StatusSuccess {
		t.Error("cancelled fetch must not succeed")
	}
}

func TestFetch_AttemptCounterAccumulates(t *testing.T) {
	server, _ := mockServer(t, []int{500, 200}, "ok")
	f := testFetcher(3)

	f.Fetch(context.Background(), server.URL)
	f.Fetch(context.Background(), server.URL)

	// First call: 500 then 200 (2 attempts); second call repeats last code
	// (200, 1 attempt).
	if got := f.TotalAttempts(); got != 3 {
		t.Errorf("expected 3 total attempts, got %d", got)
	}
}
