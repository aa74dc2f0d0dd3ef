package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"listingfilter/internal/config"
	"listingfilter/internal/model"
)

const (
	systemPrompt = "You are a helpful assistant."

	conditionPrompt = "Given the following JSON array:\n\n```json\n%s\n```\n\nI want to select the values that match the condition: %s."

	bracketReplyPrompt = "Reply with the ids of the items that perfectly match the condition, and nothing else. " +
		"Format them as a JSON array of numbers, for example [1, 4]. Do not add any explanation text."

	jsonReplyPrompt = "Reply with a JSON object of the form {\"ids\": [1, 4]} listing the ids of the items that perfectly match the condition. " +
		"Do not add any explanation text."
)

// errStreamFinished stops reading a stream once a chunk reports a finish reason
var errStreamFinished = errors.New("stream finished")

// Dispatcher builds the filter prompt and sends it to the chat-completion API
type Dispatcher struct {
	client      ChatClient
	replyFormat string
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher; replyFormat is config.ReplyFormatBrackets or config.ReplyFormatJSON.
func NewDispatcher(client ChatClient, replyFormat string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:      client,
		replyFormat: replyFormat,
		logger:      logger.With("component", "dispatcher"),
	}
}

// BuildMessages assembles the conversation sent for query
func (d *Dispatcher) BuildMessages(query string, listings []model.Listing) ([]ChatMessage, error) {
	if listings == nil {
		listings = []model.Listing{}
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize dataset: %w", err)
	}

	instruction := bracketReplyPrompt
	if d.replyFormat == config.ReplyFormatJSON {
		instruction = jsonReplyPrompt
	}

	return []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(conditionPrompt, data, strings.TrimSpace(query))},
		{Role: "user", Content: instruction},
	}, nil
}

func (d *Dispatcher) request(query string, listings []model.Listing) (ChatCompletionRequest, error) {
	if d.client == nil || !d.client.IsEnabled() {
		return ChatCompletionRequest{}, &RemoteServiceError{Op: chatCompletionOp, Err: ErrClientDisabled}
	}

	messages, err := d.BuildMessages(query, listings)
	if err != nil {
		return ChatCompletionRequest{}, err
	}
	req := ChatCompletionRequest{Messages: messages}
	if d.replyFormat == config.ReplyFormatJSON {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return req, nil
}

// Dispatch sends query and the dataset to the model and returns the first choice's content.
// Every failure of the remote call is reported as a *RemoteServiceError.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, listings []model.Listing) (string, error) {
	req, err := d.request(query, listings)
	if err != nil {
		return "", err
	}

	resp, err := d.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", asRemoteServiceError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &RemoteServiceError{Op: chatCompletionOp, Err: errors.New("no choices returned by model")}
	}

	reply := resp.Choices[0].Message.Content
	d.logger.Debug("model reply received", "query", query, "reply", reply)
	return reply, nil
}

// DispatchStream is Dispatch over a streamed completion. onChunk sees every chunk as it arrives;
// the accumulated content is returned once a chunk carries a finish reason or the stream ends.
func (d *Dispatcher) DispatchStream(ctx context.Context, query string, listings []model.Listing, onChunk StreamCallback) (string, error) {
	req, err := d.request(query, listings)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	var callbackErr error
	chunks := 0
	err = d.client.ChatCompletionStream(ctx, req, func(chunk *StreamChunk) error {
		chunks++
		content.WriteString(chunk.Content)
		if onChunk != nil {
			if callbackErr = onChunk(chunk); callbackErr != nil {
				return callbackErr
			}
		}
		if chunk.Done {
			return errStreamFinished
		}
		return nil
	})
	if callbackErr != nil {
		// the consumer stopped the stream; not a remote failure
		return "", callbackErr
	}
	if err != nil && !errors.Is(err, errStreamFinished) {
		return "", asRemoteServiceError(err)
	}

	d.logger.Debug("model reply streamed", "query", query, "chunks", chunks, "reply", content.String())
	return content.String(), nil
}

// asRemoteServiceError keeps an existing *RemoteServiceError or wraps err in one
func asRemoteServiceError(err error) error {
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return err
	}
	return &RemoteServiceError{Op: chatCompletionOp, Err: err}
}
