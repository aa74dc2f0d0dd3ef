package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"listingfilter/internal/model"
	"listingfilter/internal/repository"
)

// Session owns one viewer's selection. State changes only through SubmitQuery,
// ClearQuery and dispatch completions, and a completion is applied only when its
// sequence number is newer than the last one applied.
type Session struct {
	id         string
	dispatcher QueryDispatcher
	extractor  IDExtractor
	dataset    *repository.Dataset
	logger     *slog.Logger
	baseCtx    context.Context
	timeout    time.Duration
	now        func() time.Time

	mu        sync.Mutex
	query     string
	selection []int64 // nil: no filter
	submitted uint64
	applied   uint64
	lastErr   string
	replyErr  string
	updatedAt time.Time

	inflight sync.WaitGroup
}

// SessionOptions configures a session
type SessionOptions struct {
	// Context bounds every dispatch the session starts
	Context context.Context
	// DispatchTimeout limits a single dispatch; zero means no limit beyond Context
	DispatchTimeout time.Duration
	Logger          *slog.Logger
}

// NewSession creates a session with no active filter
func NewSession(id string, dispatcher QueryDispatcher, extractor IDExtractor, dataset *repository.Dataset, opts SessionOptions) *Session {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:         id,
		dispatcher: dispatcher,
		extractor:  extractor,
		dataset:    dataset,
		logger:     logger.With("session", id),
		baseCtx:    ctx,
		timeout:    opts.DispatchTimeout,
		now:        time.Now,
	}
	s.updatedAt = s.now()
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// SubmitQuery starts a dispatch for text and returns immediately; the result shows up in
// CurrentSelection. An empty or whitespace-only text clears the filter instead.
func (s *Session) SubmitQuery(text string) {
	query := strings.TrimSpace(text)
	if query == "" {
		s.ClearQuery()
		return
	}

	s.mu.Lock()
	s.submitted++
	seq := s.submitted
	s.query = query
	s.updatedAt = s.now()
	s.inflight.Add(1)
	s.mu.Unlock()

	s.logger.Info("query submitted", "seq", seq, "query", query)
	go s.dispatch(seq, query)
}

// ClearQuery drops the filter so every listing shows. Dispatches still in flight become stale.
func (s *Session) ClearQuery() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitted++
	s.applied = s.submitted
	s.query = ""
	s.selection = nil
	s.lastErr = ""
	s.replyErr = ""
	s.updatedAt = s.now()

	s.logger.Info("query cleared", "seq", s.applied)
}

// CurrentSelection returns a copy of the selected ids. ok is false when no filter is active.
func (s *Session) CurrentSelection() (ids []int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection == nil {
		return nil, false
	}
	return append([]int64{}, s.selection...), true
}

// Loading reports whether the newest submission is still unresolved
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted > s.applied
}

// State returns a snapshot of the session
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var selection []int64
	if s.selection != nil {
		selection = append([]int64{}, s.selection...)
	}
	return model.SessionState{
		ID:           s.id,
		Query:        s.query,
		Selection:    selection,
		Loading:      s.submitted > s.applied,
		SubmittedSeq: s.submitted,
		AppliedSeq:   s.applied,
		LastError:    s.lastErr,
		ReplyError:   s.replyErr,
		UpdatedAt:    s.updatedAt,
	}
}

// View returns the session state together with the listings it selects
func (s *Session) View() model.SessionView {
	state := s.State()
	results := SelectListings(s.dataset.All(), state.Selection)
	return model.SessionView{SessionState: state, Results: results, Total: len(results)}
}

// Wait blocks until every dispatch started by the session has completed
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) dispatch(seq uint64, query string) {
	defer s.inflight.Done()

	ctx := s.baseCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	reply, err := s.dispatcher.Dispatch(ctx, query, s.dataset.All())
	if err != nil {
		s.complete(seq, nil, err, nil, start)
		return
	}
	ids, replyErr := s.extractor.Extract(reply)
	s.complete(seq, ids, nil, replyErr, start)
}

// complete applies a finished dispatch unless a newer one has already been applied
func (s *Session) complete(seq uint64, ids []int64, remoteErr, replyErr error, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	took := s.now().Sub(start)
	if seq <= s.applied {
		s.logger.Debug("stale dispatch discarded", "seq", seq, "applied", s.applied, "took", took)
		return
	}
	s.applied = seq
	s.updatedAt = s.now()

	if remoteErr != nil {
		// keep the previous selection
		s.lastErr = remoteErr.Error()
		s.logger.Error("dispatch failed", "seq", seq, "error", remoteErr, "took", took)
		return
	}

	s.selection = ids
	s.lastErr = ""
	s.replyErr = ""
	if replyErr != nil {
		s.replyErr = replyErr.Error()
		s.logger.Warn("model reply had no usable ids", "seq", seq, "error", replyErr)
	}
	s.logger.Info("dispatch applied", "seq", seq, "ids", ids, "took", took)
}
