package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"listingfilter/internal/config"
)

const chatCompletionOp = "chat completion"

// OpenAIClient handles OpenAI-compatible chat completion calls
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser
	extraBody   map[string]any
	logger      *slog.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client with auto-detection of provider
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	c := &OpenAIClient{
		config:      cfg,
		chunkParser: chunkParserFor(cfg.APIBase),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With("component", "openai", "provider", providerName(cfg.APIBase)),
	}

	if cfg.ChatExtraBody != "" {
		if err := json.Unmarshal([]byte(cfg.ChatExtraBody), &c.extraBody); err != nil {
			c.logger.Warn("failed to parse OPENAI_CHAT_EXTRA_BODY, ignoring it", "error", err)
			c.extraBody = nil
		}
	}
	return c
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ExtraBody      map[string]any  `json:"-"` // merged into the top level of the request body
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// applyDefaults fills unset request fields from config
func (c *OpenAIClient) applyDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil && c.extraBody != nil {
		req.ExtraBody = c.extraBody
	}
}

// post sends req to /chat/completions and returns the response for a 2xx status
func (c *OpenAIClient) post(ctx context.Context, req ChatCompletionRequest, accept string) (*http.Response, error) {
	if !c.config.Enabled {
		return nil, &RemoteServiceError{Op: chatCompletionOp, Err: ErrClientDisabled}
	}
	c.applyDefaults(&req)

	reqBody, err := marshalRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	c.logger.Debug("sending chat completion", "model", req.Model, "messages", len(req.Messages), "stream", req.Stream, "bytes", len(reqBody))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &RemoteServiceError{Op: chatCompletionOp, Err: fmt.Errorf("failed to send request: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RemoteServiceError{
			Op:         chatCompletionOp,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return resp, nil
}

// marshalRequest encodes req with its ExtraBody keys merged into the top level.
// Extra keys never replace fields the request already sets.
func marshalRequest(req ChatCompletionRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil || len(req.ExtraBody) == 0 {
		return data, err
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	for k, v := range req.ExtraBody {
		if _, ok := body[k]; !ok {
			body[k] = v
		}
	}
	return json.Marshal(body)
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false
	resp, err := c.post(ctx, req, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteServiceError{Op: chatCompletionOp, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &RemoteServiceError{Op: chatCompletionOp, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	c.logger.Debug("chat completion done", "model", result.Model, "choices", len(result.Choices), "total_tokens", result.Usage.TotalTokens)
	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	req.Stream = true
	resp, err := c.post(ctx, req, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Process SSE lines: "data: {...}" until "data: [DONE]" or EOF
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return &RemoteServiceError{Op: chatCompletionOp, Err: fmt.Errorf("failed to read stream: %w", err)}
		}

		trimmed := bytes.TrimSpace(line)
		if data, ok := bytes.CutPrefix(trimmed, []byte("data:")); ok {
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, []byte("[DONE]")) {
				return nil
			}

			chunk, perr := c.chunkParser.ParseChunk(data)
			if perr != nil {
				c.logger.Warn("failed to parse stream chunk", "error", perr)
			} else if cbErr := callback(chunk); cbErr != nil {
				return fmt.Errorf("callback error: %w", cbErr)
			}
		}

		if err == io.EOF {
			return nil
		}
	}
}
