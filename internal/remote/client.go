// Package remote talks to the dashboard backend: listing what it holds,
// uploading screenshots, restoring lost blobs and reassigning features.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/competitorlens/lens-cli/internal/resilience"
)

// ClientOptions configures the API client.
type ClientOptions struct {
	BaseURL string
	APIKey  string
	// Timeout covers one request including the body. Uploads go through a
	// public PaaS ingress, so seconds-scale is the right order. Default: 60s.
	Timeout time.Duration
	// MinDelay is the spacing between consecutive requests. Default: 500ms.
	MinDelay time.Duration
	Retry    resilience.RetryConfig
}

// Client is the HTTP client for the dashboard API. Every response body is a
// {success, data} envelope; success=false is an error regardless of status.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, eris.New("remote: base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = 500 * time.Millisecond
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
		opts.Retry.OnRetry = resilience.RetryLogger("dashboard", "request")
	}
	return &Client{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(opts.MinDelay), 1),
		retry:   opts.Retry,
	}, nil
}

// Competitor is the remote representation of a competitor.
type Competitor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Feature is the remote representation of a feature.
type Feature struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Screenshot is the remote representation of a screenshot record.
type Screenshot struct {
	ID           string  `json:"id"`
	CompetitorID string  `json:"competitorId"`
	FeatureID    *string `json:"featureId"`
	FileName     string  `json:"fileName"`
	FilePath     string  `json:"filePath"`
	FileSize     int64   `json:"fileSize"`
	URL          string  `json:"url"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) ListCompetitors(ctx context.Context) ([]Competitor, error) {
	var out []Competitor
	err := c.getJSON(ctx, "/competitors", &out)
	return out, err
}

func (c *Client) ListFeatures(ctx context.Context) ([]Feature, error) {
	var out []Feature
	err := c.getJSON(ctx, "/features", &out)
	return out, err
}

// ListScreenshots pages nothing: the backend caps the response itself, the
// limit just has to be high enough to cover the full set.
func (c *Client) ListScreenshots(ctx context.Context, limit int) ([]Screenshot, error) {
	var out []Screenshot
	err := c.getJSON(ctx, fmt.Sprintf("/screenshots?limit=%d", limit), &out)
	return out, err
}

// UploadRequest carries one screenshot upload.
type UploadRequest struct {
	CompetitorID string
	FeatureID    *string
	FileName     string
	Caption      string
	IsOnboarding bool
	Body         io.Reader
}

// Upload sends one screenshot as multipart form data and returns the created
// record.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Screenshot, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("screenshot", req.FileName)
	if err != nil {
		return nil, eris.Wrap(err, "remote: create form file")
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return nil, eris.Wrap(err, "remote: read upload body")
	}
	fields := map[string]string{
		"competitorId": req.CompetitorID,
		"caption":      req.Caption,
		"isOnboarding": fmt.Sprintf("%t", req.IsOnboarding),
	}
	if req.FeatureID != nil {
		fields["featureId"] = *req.FeatureID
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, eris.Wrapf(err, "remote: write field %s", k)
		}
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "remote: close multipart writer")
	}

	// The multipart body is buffered up front so every retry attempt can
	// resend it from the start.
	payload := buf.Bytes()
	var out Screenshot
	err = c.do(ctx, http.MethodPost, "/screenshots", payload, w.FormDataContentType(), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreRequest re-attaches a blob to an existing remote record whose file
// went missing.
type RestoreRequest struct {
	ScreenshotID string `json:"screenshotId"`
	FileName     string `json:"fileName"`
	Data         []byte `json:"data"` // base64 by encoding/json
}

func (c *Client) Restore(ctx context.Context, req RestoreRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "remote: marshal restore request")
	}
	return c.do(ctx, http.MethodPost, "/screenshots/restore", payload, "application/json", nil)
}

// ReassignFeature repoints a remote screenshot at another feature. A nil
// featureID clears the assignment.
func (c *Client) ReassignFeature(ctx context.Context, screenshotID string, featureID *string) error {
	payload, err := json.Marshal(map[string]*string{"featureId": featureID})
	if err != nil {
		return eris.Wrap(err, "remote: marshal reassign request")
	}
	return c.do(ctx, http.MethodPut, "/screenshots/"+screenshotID+"/feature", payload, "application/json", nil)
}

// BlobExists reports whether the stored file behind a screenshot record is
// actually servable. Records whose blob was lost answer 404.
func (c *Client) BlobExists(ctx context.Context, sc Screenshot) (bool, error) {
	url := sc.URL
	if url == "" {
		url = c.baseURL + "/screenshots/" + sc.ID + "/file"
	}
	exists, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (bool, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, eris.Wrap(err, "remote: limiter wait")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false, eris.Wrap(err, "remote: build blob check")
		}
		c.auth(req)
		resp, err := c.http.Do(req)
		if err != nil {
			return false, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			return true, nil
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return false, resilience.NewTransientError(
				eris.Errorf("remote: blob check status %d", resp.StatusCode), resp.StatusCode)
		default:
			return false, eris.Errorf("remote: blob check status %d", resp.StatusCode)
		}
	})
	return exists, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// do runs one API call through the rate limiter, the retry policy and the
// envelope decoder.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	url := c.baseURL + path
	_, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, eris.Wrap(err, "remote: limiter wait")
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return struct{}{}, eris.Wrapf(err, "remote: build %s %s", method, path)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		c.auth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return struct{}{}, resilience.NewTransientError(eris.Wrap(err, "remote: read response"), 0)
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			zap.L().Warn("transient response from dashboard",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
			)
			return struct{}{}, resilience.NewTransientError(
				eris.Errorf("remote: %s %s status %d", method, path, resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return struct{}{}, eris.Errorf("remote: %s %s status %d: %s", method, path, resp.StatusCode, truncate(raw, 200))
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return struct{}{}, eris.Wrapf(err, "remote: decode envelope from %s", path)
		}
		if !env.Success {
			return struct{}{}, eris.Errorf("remote: %s %s rejected: %s", method, path, env.Error)
		}
		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return struct{}{}, eris.Wrapf(err, "remote: decode data from %s", path)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
