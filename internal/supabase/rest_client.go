package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"qms-mcp/internal/entity"
	"qms-mcp/internal/record"
)

const (
	defaultPageSize   = 1000
	defaultMaxRetries = 4
	defaultTimeout    = 90 * time.Second
)

// StatusError is a non-2xx response from the REST endpoint.
type StatusError struct {
	Table string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("Supabase authentication failed (%d) for %s. Please check SUPABASE_KEY.", e.Code, e.Table)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("Supabase rate limit exceeded (429) for %s.", e.Table)
	}
	if e.Body != "" {
		return fmt.Sprintf("Supabase returned status %d for %s: %s", e.Code, e.Table, e.Body)
	}
	return fmt.Sprintf("Supabase returned status %d for %s", e.Code, e.Table)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type restClient struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time

	newBackOff func() backoff.BackOff
}

// NewRestClient returns a client that pages through PostgREST with Range headers.
func NewRestClient(cfg Config) Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &restClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

func (c *restClient) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.RequestDelay > 0 {
		if wait := c.cfg.RequestDelay - time.Since(c.lastRequest); wait > 0 {
			log.Debug().Dur("wait", wait).Msg("Throttling Supabase request")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *restClient) authenticateRequest(req *http.Request) {
	if c.cfg.APIKey == "" {
		return
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
}

func (c *restClient) Fetch(ctx context.Context, spec entity.Spec) ([]record.Record, error) {
	if spec.Table == "" {
		return nil, fmt.Errorf("kind %s has no table", spec.Kind)
	}

	var rows []record.Record
	for offset := 0; ; offset += c.cfg.PageSize {
		page, total, err := c.fetchPage(ctx, spec, offset)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)

		if len(page) < c.cfg.PageSize || (total >= 0 && len(rows) >= total) {
			break
		}
	}

	log.Debug().Str("table", spec.Table).Int("rows", len(rows)).Msg("Fetched collection")
	return rows, nil
}

// fetchPage reads one Range window. total is -1 when the server did not report it.
func (c *restClient) fetchPage(ctx context.Context, spec entity.Spec, offset int) ([]record.Record, int, error) {
	params := url.Values{}
	params.Set("select", spec.Select)
	pageURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.cfg.BaseURL, spec.Table, params.Encode())

	var (
		rows  []record.Record
		total = -1
	)
	op := func() error {
		if err := c.throttle(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.authenticateRequest(req)
		req.Header.Set("Accept", "application/json")
		if c.cfg.Schema != "" {
			req.Header.Set("Accept-Profile", c.cfg.Schema)
		}
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+c.cfg.PageSize-1))

		log.Trace().Str("url", pageURL).Int("offset", offset).Msg("Supabase request")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		// 416 means the offset is past the end of the table.
		if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
			rows, total = nil, offset
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			serr := &StatusError{Table: spec.Table, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			if !serr.Retryable() {
				return backoff.Permanent(serr)
			}
			log.Warn().Str("table", spec.Table).Int("status", resp.StatusCode).Msg("Retrying Supabase request")
			return serr
		}

		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		var page []map[string]any
		if err := dec.Decode(&page); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", spec.Table, err))
		}
		rows = make([]record.Record, len(page))
		for i, m := range page {
			rows[i] = record.Record(m)
		}
		total = parseTotal(resp.Header.Get("Content-Range"))
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.cfg.MaxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			return nil, 0, serr
		}
		return nil, 0, fmt.Errorf("fetch %s: %w", spec.Table, err)
	}
	return rows, total, nil
}

// parseTotal reads the total from a Content-Range header ("0-999/5000").
// An unknown total ("0-999/*") or a malformed header yields -1.
func parseTotal(h string) int {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return -1
	}
	return n
}
