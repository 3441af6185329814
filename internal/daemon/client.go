// Package daemon is the HTTP client for the local inference daemon.
// The daemon owns VRAM: models become resident via a generate call with
// a positive keep_alive and are evicted with keep_alive 0.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	tagsPath     = "/api/tags"
	generatePath = "/api/generate"

	// keepAlive sent on load; the daemon keeps the model warm this long
	// after the last request.
	keepAliveWarm = "10m"
)

// Client talks to one inference daemon.
type Client struct {
	base         string
	http         *http.Client
	probeTimeout time.Duration
}

// NewClient builds a client for the daemon at base, e.g.
// "http://127.0.0.1:11434". probeTimeout bounds tags/load/unload calls;
// generate calls take their ceiling from the caller's context.
func NewClient(base string, probeTimeout time.Duration) *Client {
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Client{
		base:         base,
		http:         &http.Client{},
		probeTimeout: probeTimeout,
	}
}

// GenerateOptions mirror the daemon's per-request options block.
type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	Adapter     string  `json:"adapter,omitempty"`
}

type generatePayload struct {
	Model     string           `json:"model"`
	Prompt    string           `json:"prompt"`
	Stream    bool             `json:"stream"`
	Options   *GenerateOptions `json:"options,omitempty"`
	KeepAlive any              `json:"keep_alive,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Tags lists the model names the daemon currently reports.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+tagsPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon tags: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon tags: status %d", resp.StatusCode)
	}
	var tr tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("daemon tags: decode: %w", err)
	}
	names := make([]string, 0, len(tr.Models))
	for _, m := range tr.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Load makes model resident with an empty-prompt generate call.
// adapter, when non-empty, is passed through as options.adapter.
func (c *Client) Load(ctx context.Context, model, adapter string) error {
	p := generatePayload{Model: model, KeepAlive: keepAliveWarm}
	if adapter != "" {
		p.Options = &GenerateOptions{Adapter: adapter}
	}
	_, err := c.generate(ctx, p)
	if err != nil {
		return fmt.Errorf("load %s: %w", model, err)
	}
	return nil
}

// Unload asks the daemon to evict model (keep_alive 0).
func (c *Client) Unload(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	if _, err := c.generate(ctx, generatePayload{Model: model, KeepAlive: 0}); err != nil {
		return fmt.Errorf("unload %s: %w", model, err)
	}
	return nil
}

// Generate runs a non-streaming completion and returns the response text.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts *GenerateOptions) (string, error) {
	out, err := c.generate(ctx, generatePayload{
		Model:     model,
		Prompt:    prompt,
		Options:   opts,
		KeepAlive: keepAliveWarm,
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", model, err)
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, p generatePayload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return gr.Response, nil
}
