package openfoodfacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/jsonnode"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds a single response; the full category list is the largest payload
const maxBodyBytes = 256 << 20

// ClientConfig holds the transport settings of the source client
type ClientConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// MaxAttempts is the number of tries for transient failures (5xx, 429, transport errors)
	MaxAttempts int
}

// Client fetches list pages and single elements from the Open Food Facts API
type Client struct {
	httpClient  *http.Client
	userAgent   string
	rateLimiter *rate.Limiter
	maxAttempts int
	log         *zap.SugaredLogger
}

// NewClient creates a new source client
func NewClient(cfg ClientConfig, log *zap.SugaredLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PurBeurre/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent:   cfg.UserAgent,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxAttempts: cfg.MaxAttempts,
		log:         log.Named("openfoodfacts"),
	}
}

// FetchList fetches one page of an entity list. The page is ignored for non-paginated entities.
func (c *Client) FetchList(ctx context.Context, spec domain.EntitySpec, page int) (*domain.ListPage, error) {
	reqURL := spec.ListURLFor(page)
	c.log.Infow("fetching list", "entity", spec.Name, "page", page, "url", reqURL)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	root, err := jsonnode.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, reqURL, err)
	}
	collection, ok := root.Get(spec.ListKey)
	if !ok || collection.Kind() != jsonnode.KindArray {
		return nil, fmt.Errorf("%w: %s: missing %q array", domain.ErrDecode, reqURL, spec.ListKey)
	}
	raw, _, _, err := jsonparser.Get(body, spec.ListKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, reqURL, err)
	}

	result := &domain.ListPage{
		Records: collection.Items(),
		Raw:     append([]byte(nil), raw...),
		Last:    true,
	}
	if spec.Paginated {
		result.Last = lastPage(root, len(result.Records))
	}

	c.log.Debugw("list fetched", "entity", spec.Name, "page", page, "records", len(result.Records), "last", result.Last)
	return result, nil
}

// FetchElement fetches a single record by identifier
func (c *Client) FetchElement(ctx context.Context, spec domain.EntitySpec, id string) (*domain.Element, error) {
	reqURL := spec.ElementURLFor(id)
	if reqURL == "" {
		return nil, fmt.Errorf("%w: %s has no element endpoint", domain.ErrInvalidRequest, spec.Name)
	}
	c.log.Infow("fetching element", "entity", spec.Name, "id", id, "url", reqURL)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	root, err := jsonnode.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, reqURL, err)
	}
	record, ok := root.Get(spec.ElementKey)
	if !ok {
		// The API answers 200 with status 0 for unknown codes
		if status, ok := root.Get("status"); ok {
			if n, _ := status.Number(); n == 0 {
				return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, spec.Name, id)
			}
		}
		return nil, fmt.Errorf("%w: %s: missing %q", domain.ErrDecode, reqURL, spec.ElementKey)
	}
	if record.Kind() != jsonnode.KindObject {
		return nil, fmt.Errorf("%w: %s: %q is a %s", domain.ErrDecode, reqURL, spec.ElementKey, record.Kind())
	}
	raw, _, _, err := jsonparser.Get(body, spec.ElementKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, reqURL, err)
	}

	return &domain.Element{Record: record, Raw: append([]byte(nil), raw...)}, nil
}

// lastPage applies the source's pagination contract: skip + page_size >= count.
// Payloads without pagination fields end on an empty page.
func lastPage(root jsonnode.Node, records int) bool {
	skip, okSkip := numberMember(root, "skip")
	size, okSize := numberMember(root, "page_size")
	count, okCount := numberMember(root, "count")
	if !okSkip || !okSize || !okCount {
		return records == 0
	}
	return skip+size >= count
}

func numberMember(root jsonnode.Node, key string) (float64, bool) {
	v, ok := root.Get(key)
	if !ok {
		return 0, false
	}
	return v.Number()
}

// get executes a rate limited GET and returns the body of a 2xx response.
// Transient failures are retried up to maxAttempts with exponential backoff.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, exponentialBackoff(attempt-1)); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrFetch, err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			c.log.Warnw("request failed", "url", reqURL, "attempt", attempt, "error", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		body, readErr := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("%w: %s: status %d", domain.ErrFetch, reqURL, resp.StatusCode)
			c.log.Warnw("unexpected status", "url", reqURL, "attempt", attempt, "status", resp.StatusCode)
			if !retryable(resp.StatusCode) {
				return nil, lastErr
			}
			continue
		}
		if readErr != nil {
			lastErr = fmt.Errorf("%w: %s: read body: %v", domain.ErrFetch, reqURL, readErr)
			continue
		}
		return body, nil
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	return resp, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempt 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func readLimitedBody(body io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, limit))
}
