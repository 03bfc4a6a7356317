// Package dashscope drives asynchronous generation tasks on Alibaba DashScope.
package dashscope

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

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("dashscope: api key is required: %w", domain.ErrProviderNotConfigured)

// Options configures the DashScope client.
type Options struct {
	APIKey         string
	BaseURL        string
	Endpoint       string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client submits tasks in async mode and polls them by task id. DashScope has
// no completion callback, so jobs it runs are reconciled by polling only.
type Client struct {
	apiKey     string
	baseURL    string
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

const defaultModel = "wan2.5-t2v-preview"

// Keys of the provider-agnostic input map that DashScope expects under
// "parameters" rather than "input".
var parameterKeys = map[string]string{
	"size":                    "size",
	"duration":                "duration",
	"seed":                    "seed",
	"enable_prompt_expansion": "prompt_extend",
	"prompt_extend":           "prompt_extend",
	"watermark":               "watermark",
}

type taskRequest struct {
	Model      string         `json:"model"`
	Input      map[string]any `json:"input"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type taskResponse struct {
	Output    json.RawMessage `json:"output"`
	RequestID string          `json:"request_id"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
}

type taskOutput struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	endpoint := strings.Trim(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = "services/aigc/video-generation/video-synthesis"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		endpoint:   endpoint,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) Name() string {
	return normalize.ProviderDashScope
}

// DefaultModel is used for clips submitted without an explicit model.
func (c *Client) DefaultModel() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit creates an async task. Webhook settings are ignored.
func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	payload := taskRequest{Model: model, Input: map[string]any{}, Parameters: map[string]any{}}
	for k, v := range req.Input {
		if target, ok := parameterKeys[k]; ok {
			payload.Parameters[target] = v
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		payload.Input[k] = v
	}
	if len(payload.Parameters) == 0 {
		payload.Parameters = nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dashscope: encode request: %w", err)
	}
	decoded, out, err := c.do(ctx, http.MethodPost, c.baseURL+"/"+c.endpoint, body)
	if err != nil {
		return nil, err
	}
	if out.TaskID == "" {
		return nil, fmt.Errorf("dashscope: empty task id: %w", domain.ErrProviderFailure)
	}
	c.logger.Debug().
		Str("model", model).
		Str("job_id", out.TaskID).
		Str("request_id", decoded.RequestID).
		Msg("dashscope: task created")
	return &domain.Prediction{ID: out.TaskID, Status: out.TaskStatus}, nil
}

// Fetch returns the task state. The whole output object is kept as the raw
// output; the result URL lives in output.video_url or output.results[].url.
func (c *Client) Fetch(ctx context.Context, taskID string) (*domain.Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("dashscope: task id is required")
	}
	decoded, out, err := c.do(ctx, http.MethodGet, c.baseURL+"/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}
	pred := &domain.Prediction{ID: taskID, Status: out.TaskStatus}
	if out.Message != "" {
		pred.Error = strings.TrimSpace(fmt.Sprintf("%s %s", out.Code, out.Message))
	}
	if normalize.Status(normalize.ProviderDashScope, out.TaskStatus) == domain.JobStatusSucceeded {
		pred.Output = decoded.Output
	}
	return pred, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*taskResponse, *taskOutput, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("dashscope: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-DashScope-Async", "enable")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("dashscope: http request: %w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("dashscope: read response: %w", err)
	}
	var decoded taskResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Message != "" {
			return nil, nil, fmt.Errorf("dashscope: %s (%s): %w", decoded.Message, decoded.Code, domain.ErrProviderFailure)
		}
		return nil, nil, fmt.Errorf("dashscope: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}
	if decodeErr != nil {
		return nil, nil, fmt.Errorf("dashscope: decode response: %w", decodeErr)
	}
	if decoded.Code != "" {
		return nil, nil, fmt.Errorf("dashscope: %s (%s): %w", decoded.Message, decoded.Code, domain.ErrProviderFailure)
	}
	var out taskOutput
	if len(decoded.Output) > 0 {
		if err := json.Unmarshal(decoded.Output, &out); err != nil {
			return nil, nil, fmt.Errorf("dashscope: decode output: %w", err)
		}
	}
	return &decoded, &out, nil
}

var _ domain.Provider = (*Client)(nil)
