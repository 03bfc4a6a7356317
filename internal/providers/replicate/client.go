// Package replicate submits and inspects predictions on the Replicate HTTP API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/normalize"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = fmt.Errorf("replicate: api token is required: %w", domain.ErrProviderNotConfigured)

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Replicate predictions API.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type predictionRequest struct {
	Version             string         `json:"version,omitempty"`
	Input               map[string]any `json:"input"`
	Webhook             string         `json:"webhook,omitempty"`
	WebhookEventsFilter []string       `json:"webhook_events_filter,omitempty"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Model  string          `json:"model"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

type errorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("replicate: invalid base url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Name identifies the provider in job records.
func (c *Client) Name() string {
	return normalize.ProviderReplicate
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// Submit creates a prediction. Models given as owner/name use the model
// endpoint; owner/name:version and bare version ids use /predictions.
func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, errors.New("replicate: model is required")
	}
	payload := predictionRequest{
		Input:   req.Input,
		Webhook: strings.TrimSpace(req.WebhookURL),
	}
	if payload.Webhook != "" {
		payload.WebhookEventsFilter = req.WebhookEvents
	}
	var endpoint string
	if _, version, ok := strings.Cut(model, ":"); ok {
		payload.Version = version
		endpoint = c.baseURL + "/predictions"
	} else if strings.Contains(model, "/") {
		endpoint = c.baseURL + "/models/" + model + "/predictions"
	} else {
		payload.Version = model
		endpoint = c.baseURL + "/predictions"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	decoded, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, fmt.Errorf("replicate: empty prediction id: %w", domain.ErrProviderFailure)
	}
	c.logger.Debug().
		Str("model", model).
		Str("job_id", decoded.ID).
		Str("status", decoded.Status).
		Msg("replicate: prediction created")
	return toPrediction(decoded), nil
}

// Fetch returns the current state of a prediction.
func (c *Client) Fetch(ctx context.Context, jobID string) (*domain.Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("replicate: prediction id is required")
	}
	decoded, err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	return toPrediction(decoded), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*predictionResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("replicate: %w", domain.ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return nil, fmt.Errorf("replicate: %s (status %d): %w", detail.Detail, resp.StatusCode, domain.ErrProviderFailure)
		}
		return nil, fmt.Errorf("replicate: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}
	var decoded predictionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &decoded, nil
}

func toPrediction(r *predictionResponse) *domain.Prediction {
	p := &domain.Prediction{ID: r.ID, Status: r.Status, Error: normalize.ErrorText(r.Error)}
	if len(r.Output) > 0 && string(r.Output) != "null" {
		p.Output = r.Output
	}
	return p
}

var _ domain.Provider = (*Client)(nil)
