// Package transcribe turns streamed audio chunks into transcript text via
// a whisper-compatible HTTP sidecar.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/edgecoach/engine/internal/httpx"
	"github.com/edgecoach/engine/internal/metrics"
)

// Transcriber produces transcript text from an audio chunk.
type Transcriber interface {
	Transcribe(ctx context.Context, chunk *Chunk) (*Result, error)
}

// Result holds the transcription output.
type Result struct {
	Text      string  `json:"text"`
	LatencyMs float64 `json:"latency_ms"`
}

// Client sends audio as multipart WAV to any whisper-compatible HTTP
// endpoint. Backends only vary by endpoint path, so one client type covers
// whisper.cpp (/inference) and python whisper servers (/transcribe).
type Client struct {
	url      string
	endpoint string
	label    string
	client   *http.Client
}

// NewClient creates a client for whisper.cpp (/inference endpoint).
func NewClient(url string, poolSize int) *Client {
	return &Client{
		url:      url,
		endpoint: "/inference",
		label:    "whisper",
		client:   httpx.NewPooledClient(poolSize, 30*time.Second),
	}
}

// Warmup sends a tiny silent clip to verify the server is responsive.
func (c *Client) Warmup(ctx context.Context) error {
	silence := &Chunk{Samples: make([]float32, 16000), SampleRate: 16000}
	body, contentType, err := buildMultipartWAV(silence)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.url+c.endpoint, body)
	if err != nil {
		return fmt.Errorf("create warmup request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s warmup: %w", c.label, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s warmup status %d", c.label, resp.StatusCode)
	}
	return nil
}

// Transcribe sends the chunk as multipart WAV and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, chunk *Chunk) (*Result, error) {
	start := time.Now()

	body, contentType, err := buildMultipartWAV(chunk)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.label, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("transcribe", "http").Inc()
		return nil, fmt.Errorf("%s request: %w", c.label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		metrics.Errors.WithLabelValues("transcribe", "status").Inc()
		return nil, fmt.Errorf("%s status %d: %s", c.label, resp.StatusCode, string(respBody))
	}

	var result whisperResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.label, err)
	}

	latency := time.Since(start)
	metrics.StageDuration.WithLabelValues("transcribe").Observe(latency.Seconds())
	metrics.AudioChunks.Inc()

	return &Result{
		Text:      result.Text,
		LatencyMs: float64(latency.Milliseconds()),
	}, nil
}

type whisperResponse struct {
	Text string `json:"text"`
}

func buildMultipartWAV(chunk *Chunk) (*bytes.Buffer, string, error) {
	wavData := encodeWAV(chunk.Samples, chunk.SampleRate)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}

	if _, err = part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}

	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}

	return &body, writer.FormDataContentType(), nil
}
