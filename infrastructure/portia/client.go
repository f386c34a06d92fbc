// Package portia provides a record source backed by the Portia Cloud HTTP
// API. Transport failures of a single query are retried with backoff behind
// a circuit breaker; the client never paginates beyond one response page.
package portia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/rundigest/domain/plan"
	"github.com/felixgeelhaar/rundigest/domain/source"
	"github.com/felixgeelhaar/rundigest/infrastructure/logging"
)

// Config configures the API client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.portialabs.ai.
	BaseURL string
	// APIKey authenticates requests.
	APIKey string
	// OrgID scopes requests to one organization.
	OrgID string
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// MaxRetries is the maximum number of retry attempts per query.
	MaxRetries int
	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration
	// CircuitBreakerThreshold is consecutive failures before opening.
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "https://api.portialabs.ai",
		Timeout:                 30 * time.Second,
		MaxRetries:              3,
		RetryDelay:              1 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		UserAgent:               "rundigest/1.0",
	}
}

// Client is a Portia Cloud API record source.
type Client struct {
	config  Config
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[[]byte]
	retrier retry.Retry[[]byte]
}

// NewClient creates a new API client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", source.ErrRejected)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", source.ErrRejected)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 1 * time.Second
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "rundigest/1.0"
	}

	threshold := config.CircuitBreakerThreshold
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		breaker: circuitbreaker.New[[]byte](circuitbreaker.Config{
			MaxRequests: 10,
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is validated
			},
		}),
		retrier: retry.New[[]byte](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  config.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// Don't retry on client errors (4xx) - only server errors (5xx)
			NonRetryableErrors: []error{source.ErrRejected, plan.ErrPlanNotFound, plan.ErrRunNotFound},
		}),
	}, nil
}

// runDTO is the wire representation of one plan run.
type runDTO struct {
	ID          string         `json:"id"`
	PlanID      string         `json:"plan_id"`
	State       string         `json:"state"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	DurationMs  *int64         `json:"duration_ms"`
	Metadata    map[string]any `json:"metadata"`
}

// planDTO is the wire representation of one plan.
type planDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// listEnvelope wraps paginated list responses.
type listEnvelope[T any] struct {
	Results []T `json:"results"`
}

// ListRuns returns runs matching the query.
func (c *Client) ListRuns(ctx context.Context, query source.RunQuery) ([]plan.Run, error) {
	params := url.Values{}
	if query.PlanID != "" {
		params.Set("plan_id", query.PlanID)
	}
	if query.State != "" {
		params.Set("state", strings.ToUpper(string(query.State)))
	}
	if !query.Since.IsZero() {
		params.Set("created_at__gte", query.Since.UTC().Format(time.RFC3339))
	}
	if !query.Until.IsZero() {
		params.Set("created_at__lt", query.Until.UTC().Format(time.RFC3339))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	body, err := c.get(ctx, "/api/v0/plan-runs/", params, nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope[runDTO]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode plan runs: %w", err)
	}

	runs := make([]plan.Run, 0, len(envelope.Results))
	for _, dto := range envelope.Results {
		runs = append(runs, dto.toDomain())
	}
	return runs, nil
}

// ListPlans returns up to limit plans.
func (c *Client) ListPlans(ctx context.Context, limit int) ([]plan.Plan, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/api/v0/plans/", params, nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope[planDTO]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}

	plans := make([]plan.Plan, 0, len(envelope.Results))
	for _, dto := range envelope.Results {
		plans = append(plans, dto.toDomain())
	}
	return plans, nil
}

// GetPlan retrieves a plan by ID.
func (c *Client) GetPlan(ctx context.Context, id string) (plan.Plan, error) {
	if id == "" {
		return plan.Plan{}, plan.ErrInvalidPlanID
	}

	body, err := c.get(ctx, "/api/v0/plans/"+url.PathEscape(id)+"/", nil, plan.ErrPlanNotFound)
	if err != nil {
		return plan.Plan{}, err
	}

	var dto planDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return plan.Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return dto.toDomain(), nil
}

// GetRun retrieves a run by ID.
func (c *Client) GetRun(ctx context.Context, id string) (plan.Run, error) {
	if id == "" {
		return plan.Run{}, plan.ErrInvalidRunID
	}

	body, err := c.get(ctx, "/api/v0/plan-runs/"+url.PathEscape(id)+"/", nil, plan.ErrRunNotFound)
	if err != nil {
		return plan.Run{}, err
	}

	var dto runDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return plan.Run{}, fmt.Errorf("decode plan run: %w", err)
	}
	return dto.toDomain(), nil
}

// get executes one GET query with circuit breaker and retry. notFound, when
// non-nil, is the sentinel returned for 404 responses.
func (c *Client) get(ctx context.Context, path string, params url.Values, notFound error) ([]byte, error) {
	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	started := time.Now()
	body, err := c.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return c.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
			return c.doRequest(ctx, endpoint, notFound)
		})
	})

	event := logging.Debug()
	if err != nil {
		event = logging.Warn()
	}
	event.
		Add(logging.Component("portia")).
		Add(logging.Str("endpoint", path)).
		Add(logging.Duration(time.Since(started))).
		Add(logging.ErrorField(err)).
		Msg("api query")

	return body, err
}

// doRequest executes one HTTP attempt.
func (c *Client) doRequest(ctx context.Context, endpoint string, notFound error) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Api-Key "+c.config.APIKey)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.config.OrgID != "" {
		req.Header.Set("X-Org-Id", c.config.OrgID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", source.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return nil, notFound
	case resp.StatusCode >= 500:
		// Server error - should retry
		return nil, fmt.Errorf("%w: status %d: %s", source.ErrUnavailable, resp.StatusCode, truncate(body, 256))
	default:
		// Client error - should not retry
		return nil, fmt.Errorf("%w: status %d: %s", source.ErrRejected, resp.StatusCode, truncate(body, 256))
	}
}

// truncate bounds response bodies quoted in error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// toDomain converts a run DTO, normalizing platform state casing.
func (d runDTO) toDomain() plan.Run {
	return plan.Run{
		ID:          d.ID,
		PlanID:      d.PlanID,
		State:       plan.State(strings.ToLower(d.State)),
		CreatedAt:   d.CreatedAt,
		CompletedAt: d.CompletedAt,
		DurationMs:  d.DurationMs,
		Metadata:    d.Metadata,
	}
}

// toDomain converts a plan DTO.
func (d planDTO) toDomain() plan.Plan {
	return plan.Plan{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Ensure Client implements the source interfaces.
var (
	_ source.Source    = (*Client)(nil)
	_ source.RunGetter = (*Client)(nil)
)
