// Package webhook delivers session reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/config"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBody bounds how much of an endpoint's reply is retained.
const maxResponseBody = 1024 * 1024

// Client posts session reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// Delivery is the outcome of one webhook attempt.
type Delivery struct {
	// Endpoint is the webhook name, or its URL when unnamed.
	Endpoint string

	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error

	// Skipped is true when the trigger condition did not fire.
	Skipped bool
}

// Success returns true if the webhook was delivered (2xx status).
func (d *Delivery) Success() bool {
	return d.Error == nil && d.StatusCode >= 200 && d.StatusCode < 300
}

// DeliverAll sends the report to every configured endpoint whose trigger
// fires. Endpoints are attempted in order; a failed delivery never stops
// the rest.
func (c *Client) DeliverAll(ctx context.Context, report *output.Report, hooks []config.WebhookConfig) []Delivery {
	deliveries := make([]Delivery, 0, len(hooks))
	for i := range hooks {
		hook := &hooks[i]
		name := hook.Name
		if name == "" {
			name = hook.URL
		}

		if !shouldFire(hook.Trigger, report) {
			deliveries = append(deliveries, Delivery{Endpoint: name, Skipped: true})
			continue
		}

		d := c.send(ctx, report, hook)
		d.Endpoint = name
		deliveries = append(deliveries, d)
	}
	return deliveries
}

// shouldFire evaluates a trigger against the report.
func shouldFire(trigger config.WebhookTrigger, report *output.Report) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return report.HasIssues()
	}
}

// send posts the report to one endpoint.
func (c *Client) send(ctx context.Context, report *output.Report, hook *config.WebhookConfig) Delivery {
	start := time.Now()
	var d Delivery

	payload, err := json.Marshal(report)
	if err != nil {
		d.Error = fmt.Errorf("marshaling report: %w", err)
		d.Duration = time.Since(start)
		return d
	}

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		d.Error = fmt.Errorf("creating request: %w", err)
		d.Duration = time.Since(start)
		return d
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "astroreport-webhook")
	if hook.Token != "" {
		req.Header.Set("Authorization", "Bearer "+hook.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		d.Error = fmt.Errorf("request failed: %w", err)
		d.Duration = time.Since(start)
		return d
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		d.Error = fmt.Errorf("reading response: %w", err)
		d.Duration = time.Since(start)
		return d
	}

	d.StatusCode = resp.StatusCode
	d.Body = string(body)
	d.Duration = time.Since(start)

	if d.StatusCode >= 400 {
		d.Error = fmt.Errorf("webhook returned status %d", d.StatusCode)
	}

	return d
}
