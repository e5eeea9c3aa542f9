package poller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/scoreboard/internal/client"
	"github.com/jjudge-oj/scoreboard/types"
)

const waitTimeout = 2 * time.Second

var contestStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	resets  []time.Duration
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets = append(t.resets, d)
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) state() (resets []time.Duration, stopped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.resets...), t.stopped
}

type fakeClock struct {
	mu       sync.Mutex
	now      time.Time
	ticker   *fakeTicker
	interval time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &fakeTicker{ch: make(chan time.Time)}
	c.interval = d
	return c.ticker
}

func (c *fakeClock) Ticker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker
}

// tick blocks until the poller has consumed the tick.
func (c *fakeClock) tick(t *testing.T) {
	t.Helper()
	select {
	case c.Ticker().ch <- c.Now():
	case <-time.After(waitTimeout):
		t.Fatal("tick not consumed")
	}
}

type reply struct {
	snapshot types.StandingsSnapshot
	err      error
}

type fetchCall struct {
	ctx       context.Context
	contestID int
	page      int
	reply     chan reply
}

func (c fetchCall) respond(snapshot types.StandingsSnapshot, err error) {
	c.reply <- reply{snapshot: snapshot, err: err}
}

// scriptedFetcher hands every request to the test and waits for its reply.
// It ignores cancellation so superseded responses still arrive.
type scriptedFetcher struct {
	calls chan fetchCall
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{calls: make(chan fetchCall, 16)}
}

func (f *scriptedFetcher) FetchStandings(ctx context.Context, contestID, page int) (types.StandingsSnapshot, error) {
	call := fetchCall{ctx: ctx, contestID: contestID, page: page, reply: make(chan reply, 1)}
	f.calls <- call
	r := <-call.reply
	return r.snapshot, r.err
}

func (f *scriptedFetcher) expectCall(t *testing.T) fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("expected a fetch")
		return fetchCall{}
	}
}

func (f *scriptedFetcher) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected fetch of page %d", call.page)
	case <-time.After(50 * time.Millisecond):
	}
}

type viewLog struct {
	mu    sync.Mutex
	views []View
}

func (l *viewLog) record(v View) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.views = append(l.views, v)
}

func (l *viewLog) all() []View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]View(nil), l.views...)
}

type harness struct {
	poller  *Poller
	fetcher *scriptedFetcher
	clock   *fakeClock
	log     *viewLog
	cancel  context.CancelFunc
	done    chan error
}

func startPoller(t *testing.T, resolve Resolver, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		fetcher: newScriptedFetcher(),
		clock:   newFakeClock(contestStart.Add(10 * time.Minute)),
		log:     &viewLog{},
		done:    make(chan error, 1),
	}
	opts = append([]Option{WithClock(h.clock), OnChange(h.log.record)}, opts...)
	h.poller = New(h.fetcher, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.done <- h.poller.Run(ctx, resolve)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) waitStatus(t *testing.T, status Status) View {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.poller.View().Status == status
	}, waitTimeout, 5*time.Millisecond)
	return h.poller.View()
}

func snapshotFor(page int, title string) types.StandingsSnapshot {
	return types.StandingsSnapshot{
		ContestID:       7,
		ContestTitle:    title,
		StartTime:       contestStart,
		DurationSeconds: 3600,
		Page:            page,
		Standings:       []types.UserStanding{},
	}
}

func TestNoFetchBeforeContestIDResolves(t *testing.T) {
	ids := make(chan int)
	h := startPoller(t, func(ctx context.Context) (int, error) {
		select {
		case id := <-ids:
			return id, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	h.fetcher.expectNoCall(t)
	assert.Equal(t, StatusIdle, h.poller.View().Status)

	ids <- 7
	call := h.fetcher.expectCall(t)
	assert.Equal(t, 7, call.contestID)
	assert.Equal(t, 1, call.page)
	h.fetcher.expectNoCall(t)
}

func TestSetPageBeforeResolutionDoesNotBlock(t *testing.T) {
	ids := make(chan int)
	h := startPoller(t, func(ctx context.Context) (int, error) {
		select {
		case id := <-ids:
			return id, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	accepted := make(chan bool, 2)
	go func() {
		accepted <- h.poller.SetPage(context.Background(), 2)
		accepted <- h.poller.SetPage(context.Background(), 4)
	}()
	for i := 0; i < 2; i++ {
		select {
		case ok := <-accepted:
			assert.True(t, ok)
		case <-time.After(waitTimeout):
			t.Fatal("SetPage blocked while the contest id was resolving")
		}
	}
	h.fetcher.expectNoCall(t)

	ids <- 7
	call := h.fetcher.expectCall(t)
	assert.Equal(t, 4, call.page)
	assert.Equal(t, 4, h.poller.View().Page)
	h.fetcher.expectNoCall(t)
}

func TestImmediateFetchThenEveryInterval(t *testing.T) {
	h := startPoller(t, StaticID(7))

	first := h.fetcher.expectCall(t)
	assert.Equal(t, StatusLoading, h.poller.View().Status)
	first.respond(snapshotFor(1, "first"), nil)
	view := h.waitStatus(t, StatusSuccess)
	assert.Equal(t, "first", view.Data.ContestTitle)
	assert.Equal(t, DefaultInterval, h.clock.interval)

	for i := 0; i < 3; i++ {
		h.clock.tick(t)
		call := h.fetcher.expectCall(t)
		assert.Equal(t, 1, call.page)
		call.respond(snapshotFor(1, "refresh"), nil)
	}
	require.Eventually(t, func() bool {
		v := h.poller.View()
		return v.Status == StatusSuccess && v.Data.ContestTitle == "refresh"
	}, waitTimeout, 5*time.Millisecond)
	h.fetcher.expectNoCall(t)
}

func TestErrorsKeepTheFixedInterval(t *testing.T) {
	h := startPoller(t, StaticID(7))

	h.fetcher.expectCall(t).respond(snapshotFor(1, "ok"), nil)
	h.waitStatus(t, StatusSuccess)

	h.clock.tick(t)
	h.fetcher.expectCall(t).respond(types.StandingsSnapshot{}, &client.Error{
		Kind:    client.KindNotFound,
		Status:  http.StatusNotFound,
		Message: client.MsgContestNotFound,
	})
	view := h.waitStatus(t, StatusError)
	assert.Equal(t, "Contest not found", view.Err)
	assert.Nil(t, view.Data, "errors replace the previous standings")

	h.clock.tick(t)
	h.fetcher.expectCall(t).respond(types.StandingsSnapshot{}, errors.New("boom"))
	require.Eventually(t, func() bool {
		return h.poller.View().Err == client.MsgLoadFailed
	}, waitTimeout, 5*time.Millisecond)

	h.clock.tick(t)
	h.fetcher.expectCall(t).respond(snapshotFor(1, "recovered"), nil)
	view = h.waitStatus(t, StatusSuccess)
	assert.Empty(t, view.Err)
}

func TestStopsAfterFetchCrossingContestEnd(t *testing.T) {
	h := startPoller(t, StaticID(7))

	h.fetcher.expectCall(t).respond(snapshotFor(1, "live"), nil)
	h.waitStatus(t, StatusSuccess)
	assert.False(t, h.poller.View().Final)

	h.clock.Set(contestStart.Add(59 * time.Minute))
	h.clock.tick(t)
	h.fetcher.expectCall(t).respond(snapshotFor(1, "almost"), nil)
	require.Eventually(t, func() bool { return h.poller.View().Data.ContestTitle == "almost" }, waitTimeout, 5*time.Millisecond)
	assert.False(t, h.poller.View().Final)

	h.clock.Set(contestStart.Add(61 * time.Minute))
	h.clock.tick(t)
	h.fetcher.expectCall(t).respond(snapshotFor(1, "final"), nil)
	require.Eventually(t, func() bool { return h.poller.View().Final }, waitTimeout, 5*time.Millisecond)
	assert.Equal(t, "final", h.poller.View().Data.ContestTitle)

	_, stopped := h.clock.Ticker().state()
	assert.True(t, stopped)
	h.clock.tick(t)
	h.fetcher.expectNoCall(t)
}

func TestSetPageFetchesImmediatelyAndReanchorsInterval(t *testing.T) {
	h := startPoller(t, StaticID(7))

	h.fetcher.expectCall(t).respond(snapshotFor(1, "page one"), nil)
	h.waitStatus(t, StatusSuccess)

	require.True(t, h.poller.SetPage(context.Background(), 3))
	call := h.fetcher.expectCall(t)
	assert.Equal(t, 3, call.page)

	view := h.poller.View()
	assert.Equal(t, 3, view.Page)
	assert.Equal(t, StatusLoading, view.Status)
	assert.Nil(t, view.Data)

	resets, _ := h.clock.Ticker().state()
	assert.Equal(t, []time.Duration{DefaultInterval}, resets)

	call.respond(snapshotFor(3, "page three"), nil)
	view = h.waitStatus(t, StatusSuccess)
	assert.Equal(t, 3, view.Data.Page)

	h.clock.tick(t)
	assert.Equal(t, 3, h.fetcher.expectCall(t).page)
}

func TestSupersededResponsesAreDiscarded(t *testing.T) {
	h := startPoller(t, StaticID(7))

	h.fetcher.expectCall(t).respond(snapshotFor(1, "initial"), nil)
	h.waitStatus(t, StatusSuccess)

	h.clock.tick(t)
	slow := h.fetcher.expectCall(t)
	h.clock.tick(t)
	fast := h.fetcher.expectCall(t)

	assert.Error(t, slow.ctx.Err(), "superseded request is cancelled")
	assert.NoError(t, fast.ctx.Err())

	fast.respond(snapshotFor(1, "fresh"), nil)
	slow.respond(snapshotFor(1, "stale"), nil)

	require.Eventually(t, func() bool {
		v := h.poller.View()
		return v.Status == StatusSuccess && v.Data.ContestTitle == "fresh"
	}, waitTimeout, 5*time.Millisecond)
	h.fetcher.expectNoCall(t)

	for _, v := range h.log.all() {
		if v.Data != nil {
			assert.NotEqual(t, "stale", v.Data.ContestTitle)
		}
	}
}

func TestCancelStopsPolling(t *testing.T) {
	h := startPoller(t, StaticID(7))
	inflight := h.fetcher.expectCall(t)

	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(waitTimeout):
		t.Fatal("poller did not stop")
	}

	assert.Error(t, inflight.ctx.Err())
	_, stopped := h.clock.Ticker().state()
	assert.True(t, stopped)
	assert.False(t, h.poller.SetPage(canceledContext(), 2))

	inflight.respond(snapshotFor(1, "late"), nil)
	assert.NotEqual(t, StatusSuccess, h.poller.View().Status)
}

func TestResolverError(t *testing.T) {
	fetcher := newScriptedFetcher()
	p := New(fetcher, WithClock(newFakeClock(contestStart)))

	err := p.Run(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("Invalid contest ID format")
	})
	assert.Error(t, err)
	assert.Equal(t, StatusError, p.View().Status)
	assert.Equal(t, "Invalid contest ID format", p.View().Err)
	fetcher.expectNoCall(t)
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
