package service

import (
	"errors"
	"fmt"

	"listingfilter/internal/utils"
)

var (
	// ErrClientDisabled is returned when no API key is configured
	ErrClientDisabled = errors.New("chat completion API is not enabled (missing API key)")
	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = errors.New("session not found")
)

// RemoteServiceError reports a failed call to the chat-completion API:
// transport failure, timeout, non-2xx status or an unusable response body.
type RemoteServiceError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: API request failed with status %d: %s", e.Op, e.StatusCode, utils.Truncate(e.Body, 200))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// MalformedReplyError reports a model reply from which no ids could be recovered.
// It is not fatal: callers apply an empty selection.
type MalformedReplyError struct {
	Reply  string
	Reason string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("malformed reply (%s): %q", e.Reason, utils.Truncate(e.Reply, 100))
}

// IsRemoteServiceError reports whether err is or wraps a *RemoteServiceError
func IsRemoteServiceError(err error) bool {
	var rse *RemoteServiceError
	return errors.As(err, &rse)
}

// IsMalformedReply reports whether err is or wraps a *MalformedReplyError
func IsMalformedReply(err error) bool {
	var mre *MalformedReplyError
	return errors.As(err, &mre)
}
