package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/chargectl/core/logger"
)

// Client talks to the Home Assistant REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     logger.Logger
}

// NewClient creates a REST client. A nil logger disables logging.
func NewClient(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	if log == nil {
		log = nopLogger{}
	}
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     log,
	}
}

// Template renders a template and returns the trimmed result.
func (c *Client) Template(ctx context.Context, tpl string) (string, error) {
	body, err := c.post(ctx, "/api/template", map[string]string{"template": tpl})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// CallService invokes domain.service with data.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	c.log.Debugw("call service", map[string]any{"domain": domain, "service": service, "data": data})
	if _, err := c.post(ctx, "/api/services/"+domain+"/"+service, data); err != nil {
		return fmt.Errorf("call %s.%s: %w", domain, service, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	return body, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
