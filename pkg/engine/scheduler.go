package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/glasspane/glasspane/pkg/host"
)

// TickSource names which cadence produced a reconciliation tick.
type TickSource string

const (
	// TickFrame is the active cadence, bound to the display frame clock.
	TickFrame TickSource = "frame"

	// TickIdle is the coarse interval cadence.
	TickIdle TickSource = "idle"
)

// schedulerEntry holds one container's live clock subscriptions.
type schedulerEntry struct {
	cancelFrame func()
	cancelIdle  func()
}

func (e *schedulerEntry) cancel() {
	if e.cancelFrame != nil {
		e.cancelFrame()
	}
	if e.cancelIdle != nil {
		e.cancelIdle()
	}
}

// Scheduler runs the dual-cadence reconciliation loop. Both clock sources
// may fire on arbitrary goroutines; every tick is marshaled onto the UI
// thread before the engine touches any node, carrying only the container
// identity as a non-owning reference. The callback re-validates liveness
// after marshaling; a container closed in between is a normal, silently
// dropped cancellation.
type Scheduler struct {
	hst  host.Host
	opts Options

	// onTick runs on the UI thread. It owns cadence gating, debounce,
	// and self-cancellation.
	onTick func(id string, now time.Time, src TickSource)

	log zerolog.Logger
}

// NewScheduler builds a scheduler delivering ticks to onTick.
func NewScheduler(hst host.Host, opts Options, onTick func(id string, now time.Time, src TickSource), log zerolog.Logger) *Scheduler {
	return &Scheduler{
		hst:    hst,
		opts:   opts,
		onTick: onTick,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start subscribes the container to both cadences. Must run on the UI
// thread.
func (s *Scheduler) Start(cc *containerContext) {
	if cc.sched != nil {
		return
	}
	// The closures capture only the identity, never the context record;
	// the record may be evicted before a marshaled tick arrives.
	id := cc.id
	entry := &schedulerEntry{}
	entry.cancelFrame = s.hst.FrameClock().Subscribe(func(now time.Time) {
		s.hst.Dispatch(func() {
			s.onTick(id, now, TickFrame)
		})
	})
	entry.cancelIdle = s.hst.Timer(s.opts.IdleInterval, func() {
		s.hst.Dispatch(func() {
			s.onTick(id, time.Now(), TickIdle)
		})
	})
	cc.sched = entry
	s.log.Debug().Str("container", id).Msg("scheduler started")
}

// Stop cancels the container's subscriptions. Idempotent; must run on the
// UI thread. Already-marshaled ticks arriving afterwards no-op in onTick.
func (s *Scheduler) Stop(cc *containerContext) {
	if cc.sched == nil {
		return
	}
	cc.sched.cancel()
	cc.sched = nil
	s.log.Debug().Str("container", cc.id).Msg("scheduler stopped")
}
