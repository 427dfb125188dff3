package vortexa

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
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "crudetrack/internal/errors"
	"crudetrack/pkg/contracts/domain"
)

const (
	defaultBaseURL         = "https://api.vortexa.com/v6"
	searchPath             = "/cargo-movements/search"
	defaultPageSize        = 500
	defaultTimeout         = 60 * time.Second
	defaultRateLimitPerSec = 2
	defaultRateLimitBurst  = 2
	defaultMaxRetries      = 3
	defaultRetryBackoff    = time.Second
	defaultUserAgent       = "crudetrack/1.0"
	timeLayout             = "2006-01-02T15:04:05.000Z"
	redacted               = "REDACTED"
)

// Activity filter values accepted by the search endpoint
const (
	ActivityAny = "any_activity"
)

// UnitBarrels requests cargo quantities in barrels
const UnitBarrels = "b"

// Config configures the movements client
type Config struct {
	BaseURL         string
	APIKey          string
	PageSize        int
	Timeout         time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
	MaxRetries      int
	RetryBackoff    time.Duration
	UserAgent       string
}

// Query describes one cargo-movements search
type Query struct {
	TimeMin  time.Time
	TimeMax  time.Time
	Activity string
	Unit     string
	Columns  []string
}

// Client searches cargo movements on the Vortexa API
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a movements client. The API key is required.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.NewValidationError("fetch", "vortexa: api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		logger:  logger.With(slog.String("component", "vortexa_client")),
	}, nil
}

// searchRequest is the JSON body of a search call
type searchRequest struct {
	FilterActivity string `json:"filter_activity"`
	FilterTimeMin  string `json:"filter_time_min"`
	FilterTimeMax  string `json:"filter_time_max"`
	Unit           string `json:"cm_unit"`
	Size           int    `json:"size"`
}

type searchResponse struct {
	Data        []map[string]any `json:"data"`
	Total       int              `json:"total"`
	NextRequest json.RawMessage  `json:"next_request"`
}

// Search runs the query, following the service's pagination cursor until
// every page is read, and projects the result onto q.Columns.
func (c *Client) Search(ctx context.Context, q Query) (*domain.Table, error) {
	if len(q.Columns) == 0 {
		q.Columns = DefaultColumns
	}
	if q.Activity == "" {
		q.Activity = ActivityAny
	}
	if q.Unit == "" {
		q.Unit = UnitBarrels
	}
	if !q.TimeMax.After(q.TimeMin) {
		return nil, apperrors.NewValidationError("fetch", fmt.Sprintf("vortexa: empty time window %s..%s",
			q.TimeMin.Format(time.DateOnly), q.TimeMax.Format(time.DateOnly)))
	}

	body, err := json.Marshal(searchRequest{
		FilterActivity: q.Activity,
		FilterTimeMin:  q.TimeMin.UTC().Format(timeLayout),
		FilterTimeMax:  q.TimeMax.UTC().Format(timeLayout),
		Unit:           q.Unit,
		Size:           c.config.PageSize,
	})
	if err != nil {
		return nil, apperrors.NewQueryError("vortexa: encode search request", err)
	}

	c.logger.InfoContext(ctx, "Searching cargo movements",
		slog.String("time_min", q.TimeMin.Format(time.DateOnly)),
		slog.String("time_max", q.TimeMax.Format(time.DateOnly)),
		slog.String("activity", q.Activity),
		slog.String("unit", q.Unit))

	var records []map[string]any
	for page := 1; ; page++ {
		resp, err := c.doSearch(ctx, body)
		if err != nil {
			return nil, err
		}
		records = append(records, resp.Data...)

		c.logger.DebugContext(ctx, "Fetched page",
			slog.Int("page", page),
			slog.Int("page_records", len(resp.Data)),
			slog.Int("records", len(records)),
			slog.Int("total", resp.Total))

		if len(resp.Data) == 0 || isNullJSON(resp.NextRequest) {
			break
		}
		if resp.Total > 0 && len(records) >= resp.Total {
			break
		}
		body = resp.NextRequest
	}

	c.logger.InfoContext(ctx, "Cargo movements fetched", slog.Int("records", len(records)))
	return Project(records, q.Columns), nil
}

func (c *Client) doSearch(ctx context.Context, body []byte) (*searchResponse, error) {
	attempts := c.config.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		payload, status, retryAfter, err := c.post(ctx, body)
		if err == nil {
			var resp searchResponse
			dec := json.NewDecoder(bytes.NewReader(payload))
			dec.UseNumber()
			if err := dec.Decode(&resp); err != nil {
				return nil, apperrors.NewQueryError("vortexa: decode search response", err)
			}
			return &resp, nil
		}
		lastErr = err

		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, apperrors.NewQueryError(fmt.Sprintf("vortexa: search returned %d", status), apperrors.ErrUnauthorized)
		}
		if !retryable(status) || attempt == attempts-1 {
			break
		}

		delay := retryAfter
		if delay <= 0 {
			delay = c.config.RetryBackoff * time.Duration(1<<attempt)
		}
		c.logger.WarnContext(ctx, "Retrying search",
			slog.Int("status", status),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay))
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, apperrors.NewQueryError("vortexa: search cancelled", err)
		}
	}
	return nil, apperrors.NewQueryError("vortexa: search failed", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, int, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, 0, err
	}

	endpoint, err := c.searchURL()
	if err != nil {
		return nil, 0, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactAPIKey(urlErr.URL)
		}
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, parseRetryAfter(resp), fmt.Errorf("vortexa: status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}
	return payload, resp.StatusCode, 0, nil
}

func (c *Client) searchURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + searchPath)
	if err != nil {
		return "", fmt.Errorf("vortexa: invalid base url: %w", err)
	}
	params := u.Query()
	params.Set("apikey", c.config.APIKey)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// redactAPIKey masks the apikey query parameter of a request URL
func redactAPIKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	params := u.Query()
	if params.Has("apikey") {
		params.Set("apikey", redacted)
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500 || status == 0
}

func parseRetryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at)
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == "{}"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
