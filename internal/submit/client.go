// Package submit talks to the job tracker. Client is the transport; an
// Episode wraps it with the per-page-load dedup set and failure policy.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/util"
)

const DefaultAPIKeyHeader = "X-API-Key"

type Options struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	Limiter      *util.HostLimiter
	HTTPClient   *http.Client
}

type Client struct {
	base    *url.URL
	apiKey  string
	header  string
	timeout time.Duration
	hc      *http.Client
	limiter *util.HostLimiter
}

// HTTPError is a non-2xx reply.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tracker status %d: %s", e.Status, e.Body)
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("submit: invalid base url %q", opts.BaseURL)
	}
	c := &Client{
		base:    base,
		apiKey:  strings.TrimSpace(opts.APIKey),
		header:  opts.APIKeyHeader,
		timeout: opts.Timeout,
		hc:      opts.HTTPClient,
		limiter: opts.Limiter,
	}
	if c.header == "" {
		c.header = DefaultAPIKeyHeader
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) CreateJob(ctx context.Context, job domain.JobRecord) (CreateResponse, error) {
	var out CreateResponse
	err := c.do(ctx, http.MethodPost, "/jobs", nil, job, &out)
	return out, err
}

func (c *Client) UpdateDescription(ctx context.Context, req DescriptionRequest) (bool, error) {
	var out UpdateResponse
	if err := c.do(ctx, http.MethodPut, "/jobs/description", nil, req, &out); err != nil {
		return false, err
	}
	return out.Updated, nil
}

func (c *Client) NeedingDescriptions(ctx context.Context, limit int) ([]domain.HarvestQueueEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out ListResponse[domain.HarvestQueueEntry]
	if err := c.do(ctx, http.MethodGet, "/jobs/needing-descriptions", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *Client) NeedingAvailabilityCheck(ctx context.Context, source string) ([]domain.CheckEntry, error) {
	q := url.Values{}
	if source != "" {
		q.Set("source", source)
	}
	var out ListResponse[domain.CheckEntry]
	if err := c.do(ctx, http.MethodGet, "/jobs/needing-availability-check", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *Client) MarkUnavailable(ctx context.Context, id int64, reason string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/mark-unavailable", id), nil, MarkUnavailableRequest{Reason: reason}, nil)
}

func (c *Client) MarkUnavailableByURL(ctx context.Context, jobURL, reason string) error {
	return c.do(ctx, http.MethodPost, "/jobs/mark-unavailable", nil, MarkUnavailableByURLRequest{URL: jobURL, Reason: reason}, nil)
}

func (c *Client) MarkChecked(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/mark-checked", id), nil, nil, nil)
}

// CheckAvailability asks the tracker to run its own bulk check for source.
func (c *Client) CheckAvailability(ctx context.Context, source string) (int64, error) {
	var out CheckAvailabilityResponse
	err := c.do(ctx, http.MethodPost, "/jobs/check-availability", nil, CheckAvailabilityRequest{Source: source}, &out)
	return out.Queued, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	if err := c.limiter.WaitURL(ctx, u.String()); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "JobHarvest/1.0 (+local)")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(c.header, c.apiKey)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return &HTTPError{Status: res.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
