package landmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edgecoach/engine/internal/httpx"
	"github.com/edgecoach/engine/internal/metrics"
)

// Extractor produces landmark detections from encoded image bytes.
type Extractor interface {
	Detect(ctx context.Context, image []byte) (*Detections, error)
}

// Client calls the landmark-extractor sidecar over HTTP. In-flight calls
// are bounded by a semaphore independent of the number of open
// connections, since the sidecar runs a fixed set of model instances.
type Client struct {
	url    string
	client *http.Client
	sem    chan struct{}
}

// NewClient creates a sidecar client with connection pooling and a cap on
// concurrent detections.
func NewClient(url string, poolSize, maxInflight int) *Client {
	if maxInflight <= 0 {
		maxInflight = 4
	}
	return &Client{
		url:    url,
		client: httpx.NewPooledClient(poolSize, 10*time.Second),
		sem:    make(chan struct{}, maxInflight),
	}
}

// Detect sends one encoded frame to the sidecar and returns its detections.
func (c *Client) Detect(ctx context.Context, image []byte) (*Detections, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/detect", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("landmark", "http").Inc()
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("landmark", "status").Inc()
		return nil, fmt.Errorf("detect status %d: %s", resp.StatusCode, body)
	}

	var result Detections
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}

	metrics.StageDuration.WithLabelValues("landmark").Observe(time.Since(start).Seconds())
	return &result, nil
}

// Warmup sends a tiny request to verify the sidecar is responsive.
func (c *Client) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/health", nil)
	if err != nil {
		return fmt.Errorf("create warmup request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("landmark warmup: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("landmark warmup status %d", resp.StatusCode)
	}
	return nil
}
