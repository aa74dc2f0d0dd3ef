package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"listingfilter/internal/config"
	"listingfilter/internal/logging"
	"listingfilter/internal/model"
	"listingfilter/internal/repository"
)

type fakeReply struct {
	text string
	err  error
}

// fakeDispatcher blocks every Dispatch until the test replies to its query
type fakeDispatcher struct {
	mu      sync.Mutex
	replies map[string]chan fakeReply
	calls   int
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{replies: make(map[string]chan fakeReply)}
}

func (f *fakeDispatcher) ch(query string) chan fakeReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.replies[query]
	if !ok {
		c = make(chan fakeReply, 1)
		f.replies[query] = c
	}
	return c
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, query string, _ []model.Listing) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	select {
	case r := <-f.ch(query):
		return r.text, r.err
	case <-ctx.Done():
		return "", &RemoteServiceError{Op: chatCompletionOp, Err: ctx.Err()}
	}
}

func (f *fakeDispatcher) reply(query, text string, err error) {
	f.ch(query) <- fakeReply{text: text, err: err}
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type dispatchFunc func(ctx context.Context, query string) (string, error)

func (f dispatchFunc) Dispatch(ctx context.Context, query string, _ []model.Listing) (string, error) {
	return f(ctx, query)
}

func newTestSession(t *testing.T, d QueryDispatcher, timeout time.Duration) *Session {
	t.Helper()
	dataset, err := repository.NewDataset(testListings)
	require.NoError(t, err)
	return NewSession("test", d, NewExtractor(config.ReplyFormatBrackets), dataset, SessionOptions{
		DispatchTimeout: timeout,
		Logger:          logging.Discard(),
	})
}

func TestSession_Initial(t *testing.T) {
	s := newTestSession(t, newFakeDispatcher(), 0)

	ids, ok := s.CurrentSelection()
	assert.False(t, ok)
	assert.Nil(t, ids)
	assert.False(t, s.Loading())

	view := s.View()
	assert.Equal(t, "test", view.ID)
	assert.Equal(t, 3, view.Total)
	assert.Nil(t, view.Selection)
}

func TestSession_AppliesReply(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery("  more than 3 rooms ")
	assert.True(t, s.Loading())
	assert.Equal(t, "more than 3 rooms", s.State().Query)

	fd.reply("more than 3 rooms", "Here you go: [2, 3]", nil)
	s.Wait()

	ids, ok := s.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3}, ids)
	assert.False(t, s.Loading())

	view := s.View()
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, int64(2), view.Results[0].ID)
	assert.Empty(t, view.LastError)
	assert.Empty(t, view.ReplyError)
}

func TestSession_StaleReplyDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery("first")
	s.SubmitQuery("second")
	assert.True(t, s.Loading())
	assert.Equal(t, uint64(2), s.State().SubmittedSeq)

	fd.reply("second", "[2]", nil)
	require.Eventually(t, func() bool {
		return s.State().AppliedSeq == 2
	}, time.Second, 5*time.Millisecond)
	assert.False(t, s.Loading())

	fd.reply("first", "[1, 3]", nil)
	s.Wait()

	ids, ok := s.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, []int64{2}, ids)
	assert.Equal(t, "second", s.State().Query)
	assert.Equal(t, uint64(2), s.State().AppliedSeq)
}

func TestSession_OlderReplyWhileNewerPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery("first")
	s.SubmitQuery("second")

	fd.reply("first", "[1]", nil)
	require.Eventually(t, func() bool {
		return s.State().AppliedSeq == 1
	}, time.Second, 5*time.Millisecond)

	// the older result may show while the newer one is pending
	ids, ok := s.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, []int64{1}, ids)
	assert.True(t, s.Loading())

	fd.reply("second", "[3]", nil)
	s.Wait()

	ids, _ = s.CurrentSelection()
	assert.Equal(t, []int64{3}, ids)
	assert.False(t, s.Loading())
}

func TestSession_ClearQuery(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery("cheap")
	fd.reply("cheap", "[2]", nil)
	s.Wait()

	s.SubmitQuery("pricey")
	s.ClearQuery()
	assert.False(t, s.Loading())

	ids, ok := s.CurrentSelection()
	assert.False(t, ok)
	assert.Nil(t, ids)

	// the in-flight reply arrives after the clear and is ignored
	fd.reply("pricey", "[3]", nil)
	s.Wait()

	_, ok = s.CurrentSelection()
	assert.False(t, ok)
	state := s.State()
	assert.Empty(t, state.Query)
	assert.Equal(t, uint64(3), state.SubmittedSeq)
	assert.Equal(t, uint64(3), state.AppliedSeq)
	assert.Equal(t, 3, s.View().Total)
}

func TestSession_BlankQueryClears(t *testing.T) {
	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery(" \t\n")
	s.Wait()

	_, ok := s.CurrentSelection()
	assert.False(t, ok)
	assert.False(t, s.Loading())
	assert.Zero(t, fd.callCount())
	assert.Equal(t, uint64(1), s.State().AppliedSeq)
}

func TestSession_RemoteErrorKeepsSelection(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery("a")
	fd.reply("a", "[1]", nil)
	s.Wait()

	s.SubmitQuery("b")
	fd.reply("b", "", &RemoteServiceError{Op: chatCompletionOp, StatusCode: 503, Body: "overloaded"})
	s.Wait()

	ids, ok := s.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, []int64{1}, ids)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Contains(t, state.LastError, "503")
	assert.Equal(t, "b", state.Query)

	// a later success clears the error
	s.SubmitQuery("c")
	fd.reply("c", "[3]", nil)
	s.Wait()
	assert.Empty(t, s.State().LastError)
}

func TestSession_MalformedReply(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fd := newFakeDispatcher()
	s := newTestSession(t, fd, 0)

	s.SubmitQuery("gardens")
	fd.reply("gardens", "Sorry, I cannot tell.", nil)
	s.Wait()

	ids, ok := s.CurrentSelection()
	require.True(t, ok)
	assert.Empty(t, ids)

	view := s.View()
	assert.NotEmpty(t, view.ReplyError)
	assert.Empty(t, view.LastError)
	assert.Zero(t, view.Total)
}

func TestSession_DispatchTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newTestSession(t, newFakeDispatcher(), 20*time.Millisecond)

	s.SubmitQuery("never answered")
	s.Wait()

	state := s.State()
	assert.False(t, state.Loading)
	assert.Contains(t, state.LastError, context.DeadlineExceeded.Error())
	assert.Nil(t, state.Selection)
}

func TestSession_ConcurrentSubmits(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := dispatchFunc(func(ctx context.Context, query string) (string, error) {
		n, err := strconv.Atoi(strings.TrimPrefix(query, "q"))
		if err != nil {
			return "", errors.New("unexpected query")
		}
		time.Sleep(time.Duration(n%4) * time.Millisecond)
		return fmt.Sprintf("[%d]", n), nil
	})
	s := newTestSession(t, d, 0)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SubmitQuery(fmt.Sprintf("q%d", i))
		}(i)
	}
	wg.Wait()
	s.Wait()

	state := s.State()
	assert.Equal(t, uint64(20), state.SubmittedSeq)
	assert.Equal(t, uint64(20), state.AppliedSeq)
	assert.False(t, state.Loading)

	// the newest submission wins no matter the completion order
	want, err := strconv.Atoi(strings.TrimPrefix(state.Query, "q"))
	require.NoError(t, err)
	assert.Equal(t, []int64{int64(want)}, state.Selection)
}

func TestSessionStore(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dataset, err := repository.NewDataset(testListings)
	require.NoError(t, err)
	fd := newFakeDispatcher()
	store := NewSessionStore(context.Background(), fd, NewExtractor(config.ReplyFormatBrackets), dataset, time.Second, logging.Discard())

	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, store.Len())

	got, err := store.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	a.SubmitQuery("one")
	b.SubmitQuery("two")
	fd.reply("one", "[1]", nil)
	fd.reply("two", "[2]", nil)
	store.Wait()

	idsA, _ := a.CurrentSelection()
	idsB, _ := b.CurrentSelection()
	assert.Equal(t, []int64{1}, idsA)
	assert.Equal(t, []int64{2}, idsB)

	require.NoError(t, store.Delete(a.ID()))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(a.ID()), ErrSessionNotFound)
}

func TestSessionStore_ContextCancelsDispatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dataset, err := repository.NewDataset(testListings)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	store := NewSessionStore(ctx, newFakeDispatcher(), NewExtractor(config.ReplyFormatBrackets), dataset, 0, logging.Discard())

	s := store.Create()
	s.SubmitQuery("hang")
	cancel()
	store.Wait()

	assert.Contains(t, s.State().LastError, context.Canceled.Error())
	assert.False(t, s.Loading())
}
