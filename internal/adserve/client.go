// Package adserve talks to the EmpowerLocal ad network: it builds the zone
// request URL, performs the single GET round-trip and normalises whatever
// comes back into a Response. Nothing in this package returns an error for a
// failed fetch; failures become a Response with status ERROR_IN_FETCH.
package adserve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"text/template"

	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/config"
)

const endpointTemplate = "{{.BaseURL}};ID={{.PlacementID}};size={{.Size}};setID={{.ZoneID}};" +
	"referrer={{.Referrer}};kw={{.Keyword}};type=json;click={{.ClickMacro}}"

type endpointParams struct {
	BaseURL     string
	PlacementID string
	Size        string
	ZoneID      string
	Referrer    string
	Keyword     string
	ClickMacro  string
}

// Client fetches ad payloads. It is safe for concurrent use.
type Client struct {
	http     *http.Client
	endpoint *template.Template
	cfg      config.AdServeConfig
	logger   *slog.Logger
}

// NewClient builds a Client for the configured endpoint. A nil httpClient
// gets one with no timeout; requests are bounded only by the caller's ctx.
func NewClient(cfg config.AdServeConfig, httpClient *http.Client) (*Client, error) {
	tmpl, err := template.New("adserve").Parse(endpointTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing adserve endpoint template: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:     httpClient,
		endpoint: tmpl,
		cfg:      cfg,
		logger:   slog.Default().With("component", "adserve-client"),
	}, nil
}

// URL renders the request URL for req.
func (c *Client) URL(req Request) (string, error) {
	var sb strings.Builder
	err := c.endpoint.Execute(&sb, endpointParams{
		BaseURL:     c.cfg.BaseURL,
		PlacementID: c.cfg.PlacementID,
		Size:        c.cfg.Size,
		ZoneID:      req.ZoneID,
		Referrer:    req.ReferrerURL,
		Keyword:     req.Keyword,
		ClickMacro:  c.cfg.ClickMacro,
	})
	if err != nil {
		return "", fmt.Errorf("resolving adserve endpoint: %w", err)
	}
	return sb.String(), nil
}

// Fetch performs one unauthenticated GET and decodes the body. The HTTP
// status code is not inspected: any body that decodes is returned as-is.
// No retry is attempted.
func (c *Client) Fetch(ctx context.Context, req Request) Response {
	target, err := c.URL(req)
	if err != nil {
		return c.fetchError(req, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return c.fetchError(req, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.fetchError(req, fmt.Errorf("requesting ad: %w", err))
	}
	defer resp.Body.Close()

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.fetchError(req, fmt.Errorf("decoding ad payload (http %d): %w", resp.StatusCode, err))
	}
	return payload
}

func (c *Client) fetchError(req Request, err error) Response {
	c.logger.Error("ad fetch failed", "zone_id", req.ZoneID, "keyword", req.Keyword, "error", err)
	return Response{Status: StatusFetchError, Message: err.Error()}
}
