// Package remote talks to the recognition/AI collaborator service.
//
// The service exposes three endpoints:
//
//	GET  /                       health and model info
//	POST /extract-text           multipart "file" -> {text, confidence}
//	POST /ai-structured-extract  multipart "file" -> {product_name, order_id, ...}
//
// Every call is bounded by Config.Timeout and the caller's context.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

const maxResponseBytes = 8 << 20

type Config struct {
	BaseURL string        // default "http://localhost:8000"
	Timeout time.Duration // default 60s
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Health is the body of GET /.
type Health struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Models  map[string]string `json:"models"`
}

// Ping checks that the collaborator is up.
func (c *Client) Ping(ctx context.Context) (Health, error) {
	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return Health{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("%w: %v", common.ErrAIServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var h Health
	if resp.StatusCode/100 != 2 {
		return h, fmt.Errorf("%w: status %d", common.ErrAIServiceUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&h); err != nil {
		return h, fmt.Errorf("decode health: %w", err)
	}
	return h, nil
}

// postFile uploads data as the multipart field "file" and returns the raw response body.
func (c *Client) postFile(ctx context.Context, path, filename string, data []byte) ([]byte, int, error) {
	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	start := time.Now()
	if filename == "" {
		filename = "document" + mimetype.Detect(data).Extension()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, 0, fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, 0, fmt.Errorf("write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, 0, fmt.Errorf("close multipart: %w", err)
	}

	url := c.cfg.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", reqID)

	c.logger.Info("remote.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", body.Len(),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("remote.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("remote.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	c.logger.Info("remote.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}
