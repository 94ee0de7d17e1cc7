package host

import (
	"fmt"
	"sync"
	"time"
)

// MemoryHost is a complete in-memory Host implementation. It backs the
// engine's test suites and the simulation harness; there is no real
// compositor behind it.
//
// The UI thread is whichever goroutine calls Flush (or RunLoop) and the
// driver methods below. Driver methods (CreateContainer, AssignRoot,
// Close, ...) must be called from that goroutine, mirroring the
// single-threaded discipline of a real host. Dispatch and the clock/timer
// sources are safe from any goroutine.
type MemoryHost struct {
	processName string
	capability  BackdropCapability

	mu    sync.Mutex
	queue []func()

	containers []*MemoryContainer
	sink       HookSink
	clock      *ManualFrameClock
	timers     []*memoryTimer

	nextID    int
	mutations int
}

// MemoryOption configures a MemoryHost.
type MemoryOption func(*MemoryHost)

// WithProcessName sets the reported process identity.
func WithProcessName(name string) MemoryOption {
	return func(h *MemoryHost) { h.processName = name }
}

// WithoutBackdrop makes the probe report the backdrop primitive
// unsupported.
func WithoutBackdrop() MemoryOption {
	return func(h *MemoryHost) { h.capability = BackdropCapability{} }
}

// NewMemoryHost creates an in-memory host with backdrop support enabled.
func NewMemoryHost(opts ...MemoryOption) *MemoryHost {
	h := &MemoryHost{
		processName: "memoryhost",
		capability:  BackdropCapability{Supported: true, Material: "under-window"},
		clock:       NewManualFrameClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessName implements Host.
func (h *MemoryHost) ProcessName() string { return h.processName }

// ProbeBackdrop implements Host.
func (h *MemoryHost) ProbeBackdrop() BackdropCapability { return h.capability }

// NewBackdrop implements Host. Backdrop nodes always carry a compositing
// layer so the engine can assert rendering depth on them.
func (h *MemoryHost) NewBackdrop(spec BackdropSpec) (Node, error) {
	if !h.capability.Supported {
		return nil, fmt.Errorf("backdrop primitive unsupported")
	}
	n := h.newNode("BackdropNode", spec.Frame, true)
	n.opacity = float64(spec.Intensity) / 100
	return n, nil
}

// Dispatch implements Host.
func (h *MemoryHost) Dispatch(fn func()) {
	h.mu.Lock()
	h.queue = append(h.queue, fn)
	h.mu.Unlock()
}

// Flush runs all currently queued UI-thread work, including work enqueued
// by the callbacks themselves, until the queue drains. It returns the
// number of callbacks executed.
func (h *MemoryHost) Flush() int {
	ran := 0
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return ran
		}
		fn := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()
		fn()
		ran++
	}
}

// RunLoop pumps the dispatch queue until the done channel closes. Used by
// the simulation harness; tests call Flush directly.
func (h *MemoryHost) RunLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
			if h.Flush() == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

// FrameClock implements Host.
func (h *MemoryHost) FrameClock() FrameClock { return h.clock }

// Clock returns the manual frame clock for test and simulation driving.
func (h *MemoryHost) Clock() *ManualFrameClock { return h.clock }

// Timer implements Host. Memory timers never fire on their own; the
// driver advances them with FireTimers.
func (h *MemoryHost) Timer(interval time.Duration, fn func()) (stop func()) {
	t := &memoryTimer{interval: interval, fn: fn}
	h.mu.Lock()
	h.timers = append(h.timers, t)
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, other := range h.timers {
				if other == t {
					h.timers = append(h.timers[:i], h.timers[i+1:]...)
					return
				}
			}
		})
	}
}

// FireTimers fires every registered interval timer once, simulating one
// elapsed interval.
func (h *MemoryHost) FireTimers() {
	h.mu.Lock()
	timers := make([]*memoryTimer, len(h.timers))
	copy(timers, h.timers)
	h.mu.Unlock()
	for _, t := range timers {
		t.fn()
	}
}

// TimerCount returns the number of live interval timers.
func (h *MemoryHost) TimerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// SetHookSink implements Host.
func (h *MemoryHost) SetHookSink(sink HookSink) { h.sink = sink }

// Containers implements Host. Closed containers are not enumerated.
func (h *MemoryHost) Containers() []Container {
	out := make([]Container, 0, len(h.containers))
	for _, c := range h.containers {
		if c.live {
			out = append(out, c)
		}
	}
	return out
}

// MutationCount returns the total number of tree and appearance mutations
// performed through the host since creation.
func (h *MemoryHost) MutationCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mutations
}

func (h *MemoryHost) countMutation() {
	h.mu.Lock()
	h.mutations++
	h.mu.Unlock()
}

func (h *MemoryHost) emit(ev Event) Decision {
	if h.sink == nil {
		return Continue
	}
	return h.sink.Dispatch(ev)
}

func (h *MemoryHost) nextIdentity(prefix string) string {
	h.mu.Lock()
	h.nextID++
	id := fmt.Sprintf("%s-%d", prefix, h.nextID)
	h.mu.Unlock()
	return id
}

type memoryTimer struct {
	interval time.Duration
	fn       func()
}

// ManualFrameClock is a FrameClock advanced explicitly by the test or
// simulation driver.
type ManualFrameClock struct {
	mu   sync.Mutex
	subs map[int]func(time.Time)
	next int
}

// NewManualFrameClock creates an empty manual clock.
func NewManualFrameClock() *ManualFrameClock {
	return &ManualFrameClock{subs: make(map[int]func(time.Time))}
}

// Subscribe implements FrameClock.
func (c *ManualFrameClock) Subscribe(fn func(now time.Time)) (cancel func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Tick delivers one frame tick to every subscriber.
func (c *ManualFrameClock) Tick(now time.Time) {
	c.mu.Lock()
	fns := make([]func(time.Time), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(now)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (c *ManualFrameClock) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
