package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"listingfilter/internal/repository"
)

// SessionStore keeps the live display sessions by id
type SessionStore struct {
	ctx        context.Context
	dispatcher QueryDispatcher
	extractor  IDExtractor
	dataset    *repository.Dataset
	timeout    time.Duration
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store. ctx bounds every dispatch started by its sessions.
func NewSessionStore(
	ctx context.Context,
	dispatcher QueryDispatcher,
	extractor IDExtractor,
	dataset *repository.Dataset,
	dispatchTimeout time.Duration,
	logger *slog.Logger,
) *SessionStore {
	return &SessionStore{
		ctx:        ctx,
		dispatcher: dispatcher,
		extractor:  extractor,
		dataset:    dataset,
		timeout:    dispatchTimeout,
		logger:     logger.With("component", "sessions"),
		sessions:   make(map[string]*Session),
	}
}

// Create registers a new session with no active filter
func (st *SessionStore) Create() *Session {
	id := uuid.NewString()
	s := NewSession(id, st.dispatcher, st.extractor, st.dataset, SessionOptions{
		Context:         st.ctx,
		DispatchTimeout: st.timeout,
		Logger:          st.logger,
	})

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	st.logger.Info("session created", "session", id)
	return s
}

// Get returns the session with the given id
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete forgets a session. Its in-flight dispatches still finish but nobody observes them.
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(st.sessions, id)
	st.logger.Info("session deleted", "session", id)
	return nil
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Wait blocks until every live session has no dispatch in flight
func (st *SessionStore) Wait() {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	for _, s := range sessions {
		s.Wait()
	}
}
