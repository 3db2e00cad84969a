package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/pkg/middleware/requestid"
)

// ProviderError describes a non-2xx answer from a collaborator service.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Provider, e.Operation, e.StatusCode)
}

// ProviderObserver receives one observation per outbound call.
type ProviderObserver interface {
	ObserveProviderCall(provider, operation string, err error, duration time.Duration)
}

type authKey struct{}

// WithAuthorization stores the caller's Authorization header so provider calls can forward it.
func WithAuthorization(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, header)
}

// AuthorizationFrom returns the forwarded Authorization header, if any.
func AuthorizationFrom(ctx context.Context) string {
	header, _ := ctx.Value(authKey{}).(string)
	return header
}

// ProviderClient performs JSON GETs against one collaborator service.
type ProviderClient struct {
	name     string
	baseURL  string
	client   *http.Client
	observer ProviderObserver
	logger   *zap.Logger
}

// NewProviderClient constructs a client bound to baseURL with a per-call timeout.
func NewProviderClient(name, baseURL string, timeout time.Duration, observer ProviderObserver, logger *zap.Logger) *ProviderClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderClient{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		observer: observer,
		logger:   logger,
	}
}

// Name returns the provider label used in logs and metrics.
func (c *ProviderClient) Name() string {
	return c.name
}

func (c *ProviderClient) getJSON(ctx context.Context, operation, path string, query url.Values, dest interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveProviderCall(c.name, operation, err, time.Since(start))
		}
	}()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", c.name, operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if auth := AuthorizationFrom(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.Header, reqID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.name, operation, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &ProviderError{Provider: c.name, Operation: operation, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s %s: decode response: %w", c.name, operation, err)
	}

	c.logger.Debug("provider call",
		zap.String("provider", c.name),
		zap.String("operation", operation),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

// isNotFound reports whether err is a provider 404.
func isNotFound(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound
}

func dateRangeQuery(query url.Values, start, end string) url.Values {
	if query == nil {
		query = url.Values{}
	}
	if start != "" {
		query.Set("startDate", start)
	}
	if end != "" {
		query.Set("endDate", end)
	}
	return query
}
