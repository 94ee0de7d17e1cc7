package engine

import (
	"sync"

	"github.com/glasspane/glasspane/pkg/host"
)

// capabilityProbe caches the backdrop capability for the process lifetime.
// The capability is an OS/platform property and cannot change at runtime,
// so the probe runs exactly once; there is no periodic re-probing.
type capabilityProbe struct {
	once   sync.Once
	result host.BackdropCapability
}

// Result probes on first use and returns the cached result afterwards.
func (p *capabilityProbe) Result(h host.Host) host.BackdropCapability {
	p.once.Do(func() {
		p.result = h.ProbeBackdrop()
	})
	return p.result
}
