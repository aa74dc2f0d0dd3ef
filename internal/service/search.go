package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"listingfilter/internal/model"
	"listingfilter/internal/repository"
)

// SearchService answers one-shot filter queries against the dataset
type SearchService struct {
	dataset    *repository.Dataset
	dispatcher StreamDispatcher
	extractor  IDExtractor
	logger     *slog.Logger
}

// NewSearchService creates a new search service
func NewSearchService(dataset *repository.Dataset, dispatcher StreamDispatcher, extractor IDExtractor, logger *slog.Logger) *SearchService {
	return &SearchService{
		dataset:    dataset,
		dispatcher: dispatcher,
		extractor:  extractor,
		logger:     logger.With("component", "search"),
	}
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Search dispatches query, extracts the ids and returns the selected listings.
// An empty query returns every listing without calling the model.
func (s *SearchService) Search(ctx context.Context, query string) (*model.SearchResponse, error) {
	startTime := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return s.respond(query, nil, nil, startTime), nil
	}

	reply, err := s.dispatcher.Dispatch(ctx, query, s.dataset.All())
	if err != nil {
		s.logger.Error("search dispatch failed", "query", query, "error", err)
		return nil, err
	}

	ids, replyErr := s.extractor.Extract(reply)
	return s.respond(query, ids, replyErr, startTime), nil
}

// SearchStream is Search with progress events: "parsing", then "thinking"/"content" per
// streamed chunk, then "ids". The final response is returned, not emitted.
func (s *SearchService) SearchStream(ctx context.Context, query string, callback SearchEventCallback) (*model.SearchResponse, error) {
	startTime := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return s.respond(query, nil, nil, startTime), nil
	}

	if err := callback("parsing", map[string]any{
		"status": "Asking the model for matching listings...",
	}); err != nil {
		return nil, err
	}

	reply, err := s.dispatcher.DispatchStream(ctx, query, s.dataset.All(), func(chunk *StreamChunk) error {
		if chunk.ThinkingContent != "" {
			if err := callback("thinking", map[string]any{"content": chunk.ThinkingContent}); err != nil {
				return err
			}
		}
		if chunk.Content != "" {
			return callback("content", map[string]any{"content": chunk.Content})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("streaming search dispatch failed", "query", query, "error", err)
		return nil, err
	}

	ids, replyErr := s.extractor.Extract(reply)
	if err := callback("ids", map[string]any{"ids": ids}); err != nil {
		return nil, err
	}
	return s.respond(query, ids, replyErr, startTime), nil
}

// Listings returns the whole dataset
func (s *SearchService) Listings() []model.Listing {
	return SelectListings(s.dataset.All(), nil)
}

// GetListing retrieves a single listing by id
func (s *SearchService) GetListing(id int64) (model.Listing, error) {
	return s.dataset.Get(id)
}

func (s *SearchService) respond(query string, ids []int64, replyErr error, startTime time.Time) *model.SearchResponse {
	results := SelectListings(s.dataset.All(), ids)
	resp := &model.SearchResponse{
		Query:   query,
		IDs:     ids,
		Results: results,
		Total:   len(results),
		Took:    time.Since(startTime).Milliseconds(),
	}
	if replyErr != nil {
		resp.ReplyError = replyErr.Error()
		s.logger.Warn("model reply had no usable ids", "query", query, "error", replyErr)
	}
	s.logger.Info("search completed", "query", query, "ids", ids, "total", resp.Total, "took_ms", resp.Took)
	return resp
}
