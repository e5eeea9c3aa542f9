// Package poller keeps a view of a contest's standings fresh by fetching it
// on a fixed interval.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/internal/client"
	"github.com/jjudge-oj/scoreboard/types"
)

// DefaultInterval is the refresh period.
const DefaultInterval = 15 * time.Second

// Status is the state of the view.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// View is what a renderer shows. Data is the last successful snapshot of
// the current page while a refresh is loading, and nil after an error.
type View struct {
	Status    Status
	ContestID int
	Page      int
	Data      *types.StandingsSnapshot
	Err       string

	// Final is set once the contest has ended and no further refresh will
	// be scheduled.
	Final bool
}

// Fetcher loads one page of standings; *client.Client implements it.
type Fetcher interface {
	FetchStandings(ctx context.Context, contestID, page int) (types.StandingsSnapshot, error)
}

// Resolver yields the contest id. It may block; no fetch is issued before
// it returns.
type Resolver func(ctx context.Context) (int, error)

// StaticID resolves to a known contest id.
func StaticID(id int) Resolver {
	return func(context.Context) (int, error) {
		return id, nil
	}
}

// Option customises a Poller.
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithPage sets the initial page.
func WithPage(page int) Option {
	return func(p *Poller) {
		if page > 0 {
			p.view.Page = page
		}
	}
}

// OnChange registers a callback invoked with every new view. It runs on the
// polling goroutine and must not block for long.
func OnChange(fn func(View)) Option {
	return func(p *Poller) {
		p.onChange = fn
	}
}

// Poller refreshes one contest's standings page. Every dispatched fetch
// carries a sequence number; only the result of the latest one is applied
// and superseded requests are cancelled.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	clock    Clock
	logger   *zap.Logger
	onChange func(View)

	pages chan int

	mu   sync.RWMutex
	view View
}

// New builds a poller that starts on page 1.
func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		clock:    realClock{},
		logger:   zap.NewNop(),
		pages:    make(chan int, 1),
		view:     View{Status: StatusIdle, Page: 1},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// View returns the current view.
func (p *Poller) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// SetPage switches to another page: the new page is fetched immediately and
// the refresh interval restarts from now. It never blocks. A page set before
// Run has resolved the contest is used for the first fetch, and when several
// changes queue up before Run picks them up only the latest is kept. It
// returns false if ctx is already done.
func (p *Poller) SetPage(ctx context.Context, page int) bool {
	if page < 1 {
		page = 1
	}
	if ctx.Err() != nil {
		return false
	}
	for {
		select {
		case p.pages <- page:
			return true
		default:
		}
		select {
		case <-p.pages:
		default:
		}
	}
}

type result struct {
	seq          uint64
	page         int
	dispatchedAt time.Time
	snapshot     types.StandingsSnapshot
	err          error
}

// Run resolves the contest id, then polls until ctx is cancelled. Once the
// contest has ended it applies the first snapshot fetched after the end and
// stops ticking; page changes are still served until ctx is done.
func (p *Poller) Run(ctx context.Context, resolve Resolver) error {
	contestID, err := resolve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.update(func(v *View) {
			v.Status = StatusError
			v.Data = nil
			v.Err = err.Error()
		})
		return err
	}

	var (
		results  = make(chan result)
		seq      uint64
		cancelIn context.CancelFunc = func() {}
		final    bool
		end      time.Time
	)
	defer func() {
		cancelIn()
	}()

	dispatch := func(page int) {
		cancelIn()
		seq++
		var fetchCtx context.Context
		fetchCtx, cancelIn = context.WithCancel(ctx)
		go p.fetch(ctx, fetchCtx, results, result{seq: seq, page: page, dispatchedAt: p.clock.Now()}, contestID)
	}

	page := p.View().Page
	select {
	case page = <-p.pages:
	default:
	}
	p.update(func(v *View) {
		v.ContestID = contestID
		v.Page = page
		v.Status = StatusLoading
	})
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	dispatch(page)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C():
			if final {
				continue
			}
			p.update(func(v *View) {
				v.Status = StatusLoading
			})
			dispatch(p.View().Page)

		case page := <-p.pages:
			p.update(func(v *View) {
				v.Page = page
				v.Status = StatusLoading
				v.Data = nil
				v.Err = ""
			})
			if !final {
				ticker.Reset(p.interval)
			}
			dispatch(page)

		case r := <-results:
			if r.seq != seq {
				p.logger.Debug("discarding superseded standings response", zap.Uint64("seq", r.seq), zap.Uint64("latest", seq))
				continue
			}
			if r.err == nil {
				end = r.snapshot.EndTime()
			}
			ended := !end.IsZero() && r.dispatchedAt.After(end)
			if ended && !final {
				final = true
				ticker.Stop()
				p.logger.Info("contest ended, polling stopped", zap.Int("contest_id", contestID))
			}
			p.apply(r, final)
		}
	}
}

func (p *Poller) fetch(runCtx, ctx context.Context, out chan<- result, r result, contestID int) {
	r.snapshot, r.err = p.fetcher.FetchStandings(ctx, contestID, r.page)
	if r.err != nil && errors.Is(r.err, context.Canceled) {
		return
	}
	select {
	case out <- r:
	case <-runCtx.Done():
	}
}

func (p *Poller) apply(r result, final bool) {
	p.update(func(v *View) {
		v.Final = final
		if r.err != nil {
			v.Status = StatusError
			v.Data = nil
			v.Err = errorMessage(r.err)
			p.logger.Debug("standings refresh failed", zap.Int("page", r.page), zap.Error(r.err))
			return
		}
		snapshot := r.snapshot
		v.Status = StatusSuccess
		v.Data = &snapshot
		v.Err = ""
	})
}

func (p *Poller) update(fn func(*View)) {
	p.mu.Lock()
	fn(&p.view)
	view := p.view
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(view)
	}
}

func errorMessage(err error) string {
	var clientErr *client.Error
	if errors.As(err, &clientErr) {
		return clientErr.Message
	}
	return client.MsgLoadFailed
}
