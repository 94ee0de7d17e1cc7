// Package engine implements the overlay reconciliation core of Glasspane.
//
// # Overview
//
// Glasspane keeps a translucent backdrop overlay pinned behind the content
// of eligible top-level containers in a host process, continuously undoing
// the opaque fills the host repaints. The engine works through a hook and
// reconcile cycle:
//
//  1. Eligibility - Decide which containers are legitimate targets (Filter)
//  2. Capability - Probe the backdrop primitive once per process (probe)
//  3. Overlay    - Create and pin the backdrop node (OverlayManager)
//  4. Classify   - Walk the tree clearing fills, hiding stock backdrops,
//     and skipping excluded subtrees (Classifier)
//  5. Hooks      - React to container and node lifecycle events (Registry)
//  6. Schedule   - Re-run passes on a dual cadence (Scheduler)
//
// # Lifecycle
//
// Each tracked container is a containerContext moving through
// ContainerState: unmanaged, managed, suspended-fullscreen, closed.
// Management captures an appearance snapshot first, so disable, suspend,
// and close all restore exactly what the container looked like before.
//
// # Concurrency
//
// The engine is single-threaded. All state lives on the host's UI thread;
// clock callbacks fire elsewhere and marshal onto it via host.Dispatch,
// carrying container IDs rather than references. A tick that arrives
// after its container closed finds no context and drops. There are no
// locks anywhere in this package.
//
// # Errors
//
// Mutations the host declines are captured as classified *Error values
// (capability, mutation, stale, internal), recorded, and skipped. A
// failing node never aborts the pass; the next pass retries.
package engine
