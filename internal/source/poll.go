package source

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// errRateLimited signals a fetch that must be retried at a longer interval.
var errRateLimited = errors.New("source: upstream rate limited")

// fetchFunc performs one poll cycle. It returns errRateLimited on HTTP 429
// so the poll loop can back off; any other non-nil error is logged and the
// loop continues with the previous snapshot, per the "log and continue"
// network-error contract.
type fetchFunc func(ctx context.Context) error

// poller runs fetchFunc on a ticker whose interval is controlled by a
// pollRateLimiter, shared by every HTTP-polled ADS-B/EAM.watch source.
type poller struct {
	name    string
	fetch   fetchFunc
	rl      *pollRateLimiter
	log     zerolog.Logger
	cap     time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
	lastErr   atomic.Value // string
	lastPoll  atomic.Value // time.Time
	polls     atomic.Int64
}

func newPoller(name string, base, cap time.Duration, fetch fetchFunc, log zerolog.Logger) *poller {
	p := &poller{
		name:  name,
		fetch: fetch,
		rl:    newPollRateLimiter(base, cap),
		log:   log.With().Str("source", name).Logger(),
		cap:   cap,
	}
	p.lastErr.Store("")
	p.lastPoll.Store(time.Time{})
	return p
}

func (p *poller) start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(runCtx)
	return nil
}

func (p *poller) loop(ctx context.Context) {
	defer close(p.done)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := p.fetch(ctx)
		p.polls.Add(1)
		p.lastPoll.Store(time.Now().UTC())

		switch {
		case err == nil:
			p.connected.Store(true)
			p.lastErr.Store("")
			p.rl.OnSuccess()
		case errors.Is(err, errRateLimited):
			p.connected.Store(true)
			p.lastErr.Store(err.Error())
			p.rl.OnRateLimited()
			p.log.Warn().Dur("new_interval", p.rl.Interval()).Msg("rate limited, backing off")
		case ctx.Err() != nil:
			return
		default:
			p.connected.Store(false)
			p.lastErr.Store(err.Error())
			p.log.Warn().Err(err).Msg("poll failed, continuing with previous snapshot")
		}

		timer.Reset(p.rl.Interval())
	}
}

func (p *poller) stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("source: stop timed out after 5s")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifyHTTPStatus maps a response status to errRateLimited for 429s.
func classifyHTTPStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return errRateLimited
	}
	if resp.StatusCode >= 400 {
		return errors.New("source: upstream returned " + resp.Status)
	}
	return nil
}
