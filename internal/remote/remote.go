// Package remote talks to the team settings backend and downloads roster
// sheets over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
)

// maxBody caps how much of a settings response is read.
const maxBody = 1 << 20

var (
	// ErrUnexpectedStatus is returned for any non-success response other than 404.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrBodyTooLarge is returned by a FetchCSV body read past
	// roster.MaxImportSize.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Client fetches team settings and quota rules from
// {base}/teams/{key}/settings and {base}/teams/{key}/constraints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. An empty baseURL disables settings lookups; CSV
// downloads still work.
func New(baseURL string, timeout time.Duration, logger *slog.Logger, tp trace.TracerProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tp)),
		},
		logger: logger,
	}
}

// Enabled reports whether a settings backend is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// LoadSettings returns the purse overrides for teamKey, or nil when the
// backend has none.
func (c *Client) LoadSettings(ctx context.Context, teamKey string) (*budget.Patch, error) {
	body, err := c.get(ctx, teamKey, "settings")
	if err != nil || body == nil {
		return nil, err
	}
	var p budget.Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return &p, nil
}

// LoadConstraints returns the quota rules for teamKey, or nil when the
// backend has none.
func (c *Client) LoadConstraints(ctx context.Context, teamKey string) (rules.RuleSet, error) {
	body, err := c.get(ctx, teamKey, "constraints")
	if err != nil || body == nil {
		return nil, err
	}
	rs, err := rules.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("decoding constraints: %w", err)
	}
	return rs, nil
}

// FetchCSV downloads a roster sheet. The caller closes the body. Reading
// more than roster.MaxImportSize bytes fails with ErrBodyTooLarge.
func (c *Client) FetchCSV(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: %w: %s", rawURL, ErrUnexpectedStatus, resp.Status)
	}
	return cappedBody{
		Reader: io.MultiReader(io.LimitReader(resp.Body, roster.MaxImportSize), overflow{resp.Body}),
		Closer: resp.Body,
	}, nil
}

type cappedBody struct {
	io.Reader
	io.Closer
}

// overflow fails once a byte is available past the limit.
type overflow struct{ r io.Reader }

func (o overflow) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := o.r.Read(p[:1])
	if n > 0 {
		return 0, ErrBodyTooLarge
	}
	return 0, err
}

// get returns the response body, or nil for a 404 or a JSON null.
func (c *Client) get(ctx context.Context, teamKey, resource string) ([]byte, error) {
	if !c.Enabled() {
		return nil, nil
	}
	u := c.baseURL + "/teams/" + url.PathEscape(teamKey) + "/" + resource

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", resource, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "remote request completed",
		slog.String("url", u),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetching %s: %w: %s", resource, ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", resource, err)
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	return body, nil
}
