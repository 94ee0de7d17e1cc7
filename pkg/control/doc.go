// Package control carries runtime signals between the glasspane CLI and
// attached engines over redis pub/sub.
//
// Signals are small JSON payloads: enable, disable, toggle,
// set-intensity, toggle-chrome. A signal optionally names a target
// process; unscoped signals reach every engine. Delivery is at-most-once
// and fire-and-forget, which fits the domain: a missed toggle is
// repaired by the next one, and engines re-read persisted settings at
// attach.
package control
