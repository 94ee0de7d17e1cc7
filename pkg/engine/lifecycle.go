package engine

import (
	"github.com/glasspane/glasspane/pkg/telemetry"
)

// transition moves cc to next when the lifecycle permits it. A refused
// transition is a logic error on the caller's side and is logged rather
// than panicking, since it is recoverable by a later hook.
func (e *Engine) transition(cc *containerContext, next ContainerState) bool {
	if cc.state == next {
		return false
	}
	if !cc.state.CanTransition(next) {
		e.log.Warn().
			Str("container", cc.id).
			Str("from", string(cc.state)).
			Str("to", string(next)).
			Msg("refused lifecycle transition")
		return false
	}
	e.log.Debug().
		Str("container", cc.id).
		Str("from", string(cc.state)).
		Str("to", string(next)).
		Msg("lifecycle transition")
	cc.state = next
	return true
}

// manage brings an unmanaged or suspended container under management:
// snapshot, overlay, transparency, a full classification pass, and a
// scheduler entry. It is a no-op when the container has no root node yet;
// the root-assigned hook retries it.
func (e *Engine) manage(cc *containerContext) {
	if cc.state != StateUnmanaged && cc.state != StateSuspendedFullscreen {
		return
	}
	// Conditions may have changed between the scheduling hook and now.
	if !e.filter.Container(cc.container, e.settings.Enabled && e.capability.Supported).Eligible {
		return
	}

	// The snapshot is captured exactly once, before the first mutation,
	// so repeated suspend and resume cycles restore the same appearance.
	if cc.snapshot == nil {
		snap := &appearanceSnapshot{
			background: cc.container.Background(),
			opaque:     cc.container.Opaque(),
		}
		if root := cc.container.Root(); root != nil && root.Valid() {
			snap.rootPaint = root.Background()
		}
		cc.snapshot = snap
	}

	created := cc.overlay == nil
	overlay, err := e.overlays.GetOrCreate(cc, e.capability)
	if err != nil {
		e.log.Debug().Str("container", cc.id).Err(err).Msg("overlay unavailable")
		return
	}
	if overlay == nil {
		// Root not assigned yet. Creation retries on a later hook.
		return
	}

	resumed := cc.state == StateSuspendedFullscreen
	if !e.transition(cc, StateManaged) {
		return
	}
	cc.stopSettle()

	e.applyTransparency(cc)
	if root := cc.container.Root(); root != nil && root.Valid() {
		e.classifier.Classify(root, ModeFull, overlay.ID())
	}
	e.overlays.EnsurePosition(cc)
	e.overlays.Resize(cc)
	e.overlays.ApplyIntensity(cc)
	e.scheduler.Start(cc)

	e.metrics.SetManagedContainers(e.countState(StateManaged))
	if created {
		e.publish(telemetry.EventTypeOverlayCreated, cc.id, "overlay inserted at tree bottom")
	}
	if resumed {
		e.publish(telemetry.EventTypeContainerResumed, cc.id, "management resumed after fullscreen")
	} else {
		e.publish(telemetry.EventTypeContainerManaged, cc.id, "container under management")
	}
}

// suspend pauses management for a fullscreen presentation. The overlay is
// removed and the original appearance restored; the context survives so
// the settle timer can resume it.
func (e *Engine) suspend(cc *containerContext) {
	if !e.transition(cc, StateSuspendedFullscreen) {
		return
	}
	cc.stopSettle()
	e.scheduler.Stop(cc)
	e.overlays.Remove(cc)
	e.metrics.SetManagedContainers(e.countState(StateManaged))
	e.publish(telemetry.EventTypeContainerSuspended, cc.id, "management suspended for fullscreen")
}

// scheduleResume arms a settle timer after a fullscreen exit. The host's
// own transition animation fights tree mutations, so the resume waits out
// the settle delay and re-validates on the UI thread. The timer callback
// runs off-thread and only carries immutable captures; the timer itself
// is canceled by the dispatched closure, and the generation check keeps a
// fire that raced a cancel-and-rearm from collapsing the new delay.
func (e *Engine) scheduleResume(cc *containerContext) {
	cc.stopSettle()
	cc.settleGen++
	id := cc.id
	gen := cc.settleGen
	cc.cancelSettle = e.hst.Timer(e.opts.SettleDelay, func() {
		e.hst.Dispatch(func() {
			cc, ok := e.contexts[id]
			if !ok || cc.state != StateSuspendedFullscreen || cc.settleGen != gen {
				return
			}
			cc.stopSettle()
			e.manage(cc)
		})
	})
}

// unmanage tears a container down to the unmanaged state, restoring its
// original appearance. It runs when the engine is disabled or when a
// container turns ineligible while managed.
func (e *Engine) unmanage(cc *containerContext) {
	if !e.transition(cc, StateUnmanaged) {
		return
	}
	cc.stopSettle()
	e.scheduler.Stop(cc)
	e.overlays.Remove(cc)
	e.metrics.SetManagedContainers(e.countState(StateManaged))
	e.publish(telemetry.EventTypeOverlayRemoved, cc.id, "overlay removed, appearance restored")
}

// closeContainer runs the terminal teardown exactly once. The context is
// evicted from the registry so a marshaled tick arriving later finds
// nothing and quietly drops.
func (e *Engine) closeContainer(cc *containerContext) {
	if cc.state.Terminal() {
		return
	}
	cc.stopSettle()
	e.scheduler.Stop(cc)
	if cc.container.Live() {
		e.overlays.Remove(cc)
	} else {
		cc.overlay = nil
	}
	cc.state = StateClosed
	delete(e.contexts, cc.id)
	e.metrics.SetManagedContainers(e.countState(StateManaged))
	e.publish(telemetry.EventTypeContainerClosed, cc.id, "container closed")
}

func (cc *containerContext) stopSettle() {
	if cc.cancelSettle != nil {
		cc.cancelSettle()
		cc.cancelSettle = nil
	}
}
