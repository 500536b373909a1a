// Package jobclient talks to the remote simulation job-control API.
//
// Every call runs under its own deadline. A call that exceeds it fails with
// a *TimeoutError; a non-success response fails with a *StatusError. Callers
// treat every failure as transient.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds each request when the caller passes zero.
const DefaultTimeout = 20 * time.Second

// Job states reported by the remote service.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "error"
)

// JobStatus is the remote job snapshot. It is only observed here.
type JobStatus struct {
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	ScenarioID string `json:"scenarioId,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Running reports whether the remote job is in flight.
func (s *JobStatus) Running() bool { return s != nil && s.Status == StatusRunning }

// statusResponse is the GET status envelope.
type statusResponse struct {
	DatasetGeneratedAt string     `json:"datasetGeneratedAt"`
	Job                *JobStatus `json:"job"`
}

// TriggerResult describes the outcome of a trigger call that did not fail.
type TriggerResult struct {
	Triggered      bool
	AlreadyRunning bool
	Job            *JobStatus
}

// Options configures a Client.
type Options struct {
	BaseURL            string
	ScenarioID         string
	Timeout            time.Duration
	RequestsPerMinute  int
	StatusPollAttempts uint
	HTTPClient         *http.Client
	Logger             *slog.Logger
}

// Client is the HTTP client for the job-control API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	scenario   string
	timeout    time.Duration
	attempts   uint
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a job-control client with rate limiting.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		// Deadlines come from per-call contexts, not the transport.
		hc = &http.Client{}
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}
	attempts := opts.StatusPollAttempts
	if attempts == 0 {
		attempts = 2
	}
	return &Client{
		httpClient: hc,
		baseURL:    opts.BaseURL,
		scenario:   opts.ScenarioID,
		timeout:    timeout,
		attempts:   attempts,
		limiter:    rate.NewLimiter(limit, 2),
		logger:     logger,
	}
}

// Status fetches the current job snapshot. It returns nil, nil when the
// service reports no job for the scenario.
func (c *Client) Status(ctx context.Context) (*JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body []byte
	err := retry.Do(
		func() error {
			var doErr error
			body, doErr = c.do(ctx, http.MethodGet, "/status", nil, http.StatusOK)
			if doErr != nil && !retryable(doErr) {
				return retry.Unrecoverable(doErr)
			}
			return doErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(250*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Retrying job status poll", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, c.classify(ctx, "status", err)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return resp.Job, nil
}

// Trigger asks the service to start a refresh. A 409 "already running"
// reply is reported through TriggerResult, not as an error.
func (c *Client) Trigger(ctx context.Context, label string) (TriggerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"reason": label})
	if err != nil {
		return TriggerResult{}, fmt.Errorf("encode trigger body: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/trigger", payload, http.StatusOK, http.StatusAccepted)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusConflict {
			return TriggerResult{AlreadyRunning: true, Job: decodeJob(se.body)}, nil
		}
		return TriggerResult{}, c.classify(ctx, "trigger", err)
	}
	return TriggerResult{Triggered: true, Job: decodeJob(body)}, nil
}

// do performs one rate-limited request and returns the body of an accepted
// response.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, accept ...int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		// The next token would arrive after the call's deadline.
		return nil, &TimeoutError{Op: "rate limit wait", After: c.timeout}
	}

	u := c.baseURL + path + "?" + url.Values{"scenario": {c.scenario}}.Encode()

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			return body, nil
		}
	}
	return nil, newStatusError(resp.StatusCode, body)
}

// classify turns a deadline hit into a *TimeoutError and leaves other
// errors untouched.
func (c *Client) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, After: c.timeout}
	}
	return err
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, ErrTimeout) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, context.Canceled)
}

// decodeJob extracts a job snapshot from either {job:{...}} or a bare job
// object. Unreadable bodies yield nil.
func decodeJob(body []byte) *JobStatus {
	if len(body) == 0 {
		return nil
	}
	var env statusResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Job != nil {
		return env.Job
	}
	var job JobStatus
	if err := json.Unmarshal(body, &job); err == nil && job.Status != "" {
		return &job
	}
	return nil
}
