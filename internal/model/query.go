package model

import "time"

// SearchRequest represents a free-text filter request
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse represents the listings selected for a query
type SearchResponse struct {
	Query      string    `json:"query"`
	IDs        []int64   `json:"ids"` // nil when the query was empty (show all)
	Results    []Listing `json:"results"`
	Total      int       `json:"total"`
	ReplyError string    `json:"reply_error,omitempty"` // reply had no usable ids
	Took       int64     `json:"took_ms"`               // Response time in milliseconds
}

// ListingsResponse represents the full dataset
type ListingsResponse struct {
	Results []Listing `json:"results"`
	Total   int       `json:"total"`
}

// SubmitQueryRequest represents a fire-and-forget query submission for a session
type SubmitQueryRequest struct {
	Query string `json:"query"`
}

// SessionState is the externally visible state of a display session
type SessionState struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	Selection    []int64   `json:"selection"` // null means no filter is active
	Loading      bool      `json:"loading"`
	SubmittedSeq uint64    `json:"submitted_seq"`
	AppliedSeq   uint64    `json:"applied_seq"`
	LastError    string    `json:"last_error,omitempty"`
	ReplyError   string    `json:"reply_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionView is a session state together with the listings it selects
type SessionView struct {
	SessionState
	Results []Listing `json:"results"`
	Total   int       `json:"total"`
}
