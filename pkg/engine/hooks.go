package engine

import (
	"github.com/rs/zerolog"

	"github.com/glasspane/glasspane/pkg/host"
)

// HookFunc is one interception callback. Before-phase hooks may return
// Suppress for suppressible operations; after-phase returns are ignored.
type HookFunc func(ev host.Event) host.Decision

type hookKey struct {
	op    host.Op
	phase host.Phase
}

// Registry maps (operation, phase) to ordered callback lists. The host
// adapter invokes Dispatch synchronously on the UI thread around its own
// operations; no runtime method replacement is involved.
type Registry struct {
	hooks map[hookKey][]HookFunc
	log   zerolog.Logger
}

// NewRegistry creates an empty hook registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		hooks: make(map[hookKey][]HookFunc),
		log:   log.With().Str("component", "hooks").Logger(),
	}
}

// Register appends fn to the callback list for (op, phase). Callbacks run
// in registration order.
func (r *Registry) Register(op host.Op, phase host.Phase, fn HookFunc) {
	key := hookKey{op: op, phase: phase}
	r.hooks[key] = append(r.hooks[key], fn)
}

// Dispatch implements host.HookSink. A panic in any callback is contained
// here; a failure escaping into the host would terminate its process.
// Suppress wins when any callback requests it.
func (r *Registry) Dispatch(ev host.Event) (decision host.Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("op", string(ev.Op)).
				Str("phase", string(ev.Phase)).
				Interface("panic", rec).
				Msg("hook panicked; contained")
			decision = host.Continue
		}
	}()

	for _, fn := range r.hooks[hookKey{op: ev.Op, phase: ev.Phase}] {
		if fn(ev) == host.Suppress {
			decision = host.Suppress
		}
	}
	return decision
}
