// Package source implements the HTTP client for the external accounting
// system, the authoritative side of the synchronization. All requests are
// paced so the client stays under the API's rate limit; declared batch
// phases run with a relaxed interval.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/domain/costcenter"
	"github.com/accounting-ledger-sync/internal/domain/document"
)

// ErrRemote wraps a non-2xx response from the source API
type ErrRemote struct {
	StatusCode int
	Body       string
}

func (e ErrRemote) Error() string {
	return fmt.Sprintf("source api error %d: %s", e.StatusCode, e.Body)
}

// Is implements the errors.Is interface for ErrRemote
func (e ErrRemote) Is(target error) bool {
	t, ok := target.(ErrRemote)
	if !ok {
		return false
	}
	if t.StatusCode == 0 {
		return true
	}
	return e.StatusCode == t.StatusCode
}

// pacer enforces a minimum interval between outgoing requests. Batch phases
// use the relaxed interval; both share one clock so mixed callers never
// burst.
type pacer struct {
	mu            sync.Mutex
	last          time.Time
	interval      time.Duration
	batchInterval time.Duration
}

func (p *pacer) wait(ctx context.Context, batch bool) error {
	p.mu.Lock()
	interval := p.interval
	if batch {
		interval = p.batchInterval
	}
	wait := interval - time.Since(p.last)
	p.last = time.Now().Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client talks to the source accounting system
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	pacer      *pacer
	poolSize   int
	logger     *slog.Logger
}

// NewClient creates a source API client from configuration
func NewClient(logger *slog.Logger, cfg *config.SourceConfig, workerPoolSize int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		pacer: &pacer{
			interval:      cfg.RequestInterval,
			batchInterval: cfg.BatchInterval,
		},
		poolSize: workerPoolSize,
		logger:   logger,
	}
}

// get performs one paced GET request and returns the response body.
// A 404 yields (nil, nil) so callers can treat absence as a value.
func (c *Client) get(ctx context.Context, path string, params url.Values, batch bool) ([]byte, error) {
	if err := c.pacer.wait(ctx, batch); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build source request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrRemote{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

func kindPath(kind document.Kind) string {
	return "/" + string(kind) + "s"
}

// ListBookedDocuments fetches booked/paid documents of one kind, optionally
// filtered by update timestamp and capped by limit (0 = no cap). Pagination
// is followed until the server runs out of items or the cap is reached.
func (c *Client) ListBookedDocuments(ctx context.Context, kind document.Kind, updatedAfter *time.Time, limit int) ([]*document.CachedDocument, error) {
	var docs []*document.CachedDocument
	offset := 0

	for {
		pageSize := c.pageSize
		if limit > 0 && limit-len(docs) < pageSize {
			pageSize = limit - len(docs)
		}

		params := url.Values{}
		params.Set("status", "booked")
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))
		if updatedAfter != nil {
			params.Set("updatedAfter", updatedAfter.UTC().Format(time.RFC3339))
		}

		body, err := c.get(ctx, kindPath(kind), params, false)
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
		}
		if body == nil {
			break
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s list: %w", kind, err)
		}

		for _, raw := range page.Objects {
			doc, err := c.decodeDocument(raw, kind)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}

		if len(page.Objects) < pageSize || (limit > 0 && len(docs) >= limit) {
			break
		}
		offset += len(page.Objects)
	}

	return docs, nil
}

// GetDocument fetches one document by id. Returns (nil, nil) when the
// source no longer knows the id; the reconciler relies on that distinction.
func (c *Client) GetDocument(ctx context.Context, kind document.Kind, id string) (*document.CachedDocument, error) {
	body, err := c.get(ctx, kindPath(kind)+"/"+id, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	if body == nil {
		return nil, nil
	}

	return c.decodeDocument(body, kind)
}

func (c *Client) decodeDocument(raw json.RawMessage, kind document.Kind) (*document.CachedDocument, error) {
	var payload documentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	payload.raw = raw

	doc, err := payload.toCached(kind)
	if err != nil {
		return nil, fmt.Errorf("invalid %s payload %s: %w", kind, payload.ID, err)
	}

	return doc, nil
}

// GetPositions fetches the line items of one document
func (c *Client) GetPositions(ctx context.Context, kind document.Kind, id string) ([]*document.Position, error) {
	return c.getPositions(ctx, kind, id, false)
}

func (c *Client) getPositions(ctx context.Context, kind document.Kind, id string, batch bool) ([]*document.Position, error) {
	body, err := c.get(ctx, kindPath(kind)+"/"+id+"/positions", nil, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions of %s %s: %w", kind, id, err)
	}
	if body == nil {
		return nil, nil
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode positions of %s %s: %w", kind, id, err)
	}

	positions := make([]*document.Position, 0, len(page.Objects))
	for _, raw := range page.Objects {
		var payload positionPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode position of %s %s: %w", kind, id, err)
		}
		positions = append(positions, payload.toPosition(id))
	}

	return positions, nil
}

// ListCostCenters fetches every cost center defined in the source system
func (c *Client) ListCostCenters(ctx context.Context) ([]*costcenter.CostCenter, error) {
	var centers []*costcenter.CostCenter
	offset := 0

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		body, err := c.get(ctx, "/cost-centers", params, false)
		if err != nil {
			return nil, fmt.Errorf("failed to list cost centers: %w", err)
		}
		if body == nil {
			break
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode cost center list: %w", err)
		}

		for _, raw := range page.Objects {
			var payload costCenterPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("failed to decode cost center: %w", err)
			}
			centers = append(centers, payload.toCostCenter())
		}

		if len(page.Objects) < c.pageSize {
			break
		}
		offset += len(page.Objects)
	}

	return centers, nil
}
