// Package rtms fetches transaction records from the MOLIT real transaction price API.
package rtms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/UnknownOlympus/realty-atlas/internal/resilience"
)

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 1000

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpstreamError is returned when a page could not be fetched within the retry policy.
type UpstreamError struct {
	Endpoint string
	Page     int
	Code     string // Code is the last application result code, empty for transport failures.
	Message  string // Message is the last application result message.
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rtms %s page %d failed: %s (code %s)", e.Endpoint, e.Page, e.Message, e.Code)
	}
	return fmt.Sprintf("rtms %s page %d failed: %v", e.Endpoint, e.Page, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// resultError is the retryable error raised for a non-success header result code.
type resultError struct {
	code    string
	message string
}

func (e *resultError) Error() string {
	return fmt.Sprintf("api result %s: %s", e.code, e.message)
}

// Client fetches all pages of one (endpoint, region, month) query.
type Client struct {
	client     HTTPClient
	baseURL    string
	serviceKey string
	pageSize   int
	policy     resilience.Policy
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// Config holds the client settings.
type Config struct {
	BaseURL    string            // BaseURL defaults to DefaultBaseURL.
	ServiceKey string            // ServiceKey is the raw (decoded) data.go.kr credential.
	PageSize   int               // PageSize defaults to DefaultPageSize.
	Timeout    time.Duration     // Timeout of one HTTP request, 30s by default.
	Policy     resilience.Policy // Policy is applied per page.
}

// NewClient creates a Client with its own http.Client.
func NewClient(cfg Config, log *slog.Logger, appMetrics *metrics.Metrics) *Client {
	const defaultTimeout = 30 * time.Second
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return NewClientWithHTTP(&http.Client{Timeout: cfg.Timeout}, cfg, log, appMetrics)
}

// NewClientWithHTTP allows injecting a custom HTTP client.
func NewClientWithHTTP(client HTTPClient, cfg Config, log *slog.Logger, appMetrics *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return &Client{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		pageSize:   cfg.PageSize,
		policy:     cfg.Policy,
		log:        log,
		metrics:    appMetrics,
	}
}

// FetchAll returns every item of the endpoint for the region code and YYYYMM month.
// Pages are requested until the accumulated count reaches the reported total or a page
// comes back empty. Each page is retried on its own; a page that keeps failing ends the
// call with an *UpstreamError.
func (c *Client) FetchAll(
	ctx context.Context,
	endpoint Endpoint,
	lawdCode, yearMonth string,
) ([]models.RawItem, error) {
	var results []models.RawItem

	for pageNo := 1; ; pageNo++ {
		pg, err := c.fetchPage(ctx, endpoint, lawdCode, yearMonth, pageNo)
		if err != nil {
			return nil, err
		}

		results = append(results, pg.items...)
		c.log.DebugContext(ctx, "Fetched RTMS page",
			"endpoint", endpoint.Variant, "lawd_cd", lawdCode, "month", yearMonth,
			"page", pageNo, "items", len(pg.items), "total", pg.totalCount)

		if len(results) >= pg.totalCount || len(pg.items) == 0 {
			break
		}
	}

	return results, nil
}

func (c *Client) fetchPage(
	ctx context.Context,
	endpoint Endpoint,
	lawdCode, yearMonth string,
	pageNo int,
) (page, error) {
	policy := c.policy
	onRetry := resilience.RetryLogger(c.log, "rtms "+string(endpoint.Variant))
	policy.OnRetry = func(attempt int, err error) {
		if c.metrics != nil {
			c.metrics.RTMSRetries.WithLabelValues(string(endpoint.Variant)).Inc()
		}
		onRetry(attempt, err)
	}

	pg, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (page, error) {
		return c.callPage(ctx, endpoint, lawdCode, yearMonth, pageNo)
	})
	if err != nil {
		upErr := &UpstreamError{Endpoint: string(endpoint.Variant), Page: pageNo, Err: err}
		if rerr, ok := asResultError(err); ok {
			upErr.Code, upErr.Message = rerr.code, rerr.message
		}
		return page{}, upErr
	}

	if c.metrics != nil {
		c.metrics.RTMSPages.WithLabelValues(string(endpoint.Variant)).Inc()
	}

	return pg, nil
}

// callPage performs one HTTP request. Transport failures, non-2xx statuses and non-success
// result codes are retryable; a body that is not an envelope is not.
func (c *Client) callPage(
	ctx context.Context,
	endpoint Endpoint,
	lawdCode, yearMonth string,
	pageNo int,
) (page, error) {
	params := url.Values{}
	params.Set("LAWD_CD", lawdCode)
	params.Set("DEAL_YMD", yearMonth)
	params.Set("pageNo", strconv.Itoa(pageNo))
	params.Set("numOfRows", strconv.Itoa(c.pageSize))

	// The credential is escaped on its own so it is encoded exactly once.
	reqURL := c.baseURL + endpoint.Path + "?serviceKey=" + url.QueryEscape(c.serviceKey) + "&" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("failed to execute RTMS request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page{}, resilience.Retryable(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return page{}, resilience.Retryable(
			fmt.Errorf("rtms API returned status %d: %s", resp.StatusCode, truncate(string(body))),
		)
	}

	pg, err := decodePage(body)
	if err != nil {
		c.log.ErrorContext(ctx, "Unexpected RTMS response", "endpoint", endpoint.Variant, "body", truncate(string(body)))
		return page{}, err
	}

	if !pg.ok() {
		msg := pg.message
		if msg == "" {
			msg = "API Error"
		}
		return page{}, resilience.Retryable(&resultError{code: pg.code, message: msg})
	}

	return pg, nil
}

func asResultError(err error) (*resultError, bool) {
	var rerr *resultError
	ok := errors.As(err, &rerr)
	return rerr, ok
}

func truncate(s string) string {
	const maxLen = 512
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
