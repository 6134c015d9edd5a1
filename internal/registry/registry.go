// Package registry is the single mutable source of truth for a cycle: it
// loads the persisted zone records, applies the demand model to every zone,
// exposes the actuation-eligible subset, and writes the updated records back
// once the cycle is done.
package registry

import (
	"github.com/gardenops/cimis-irrigation/internal/demand"
	"github.com/gardenops/cimis-irrigation/internal/model"
)

// Registry holds the zones of one cycle in persisted order. The order is
// stable across cycles so log output and actuation order are deterministic.
type Registry struct {
	path  string
	zones []*model.Zone
}

// Zones returns all zones in persisted order.
func (r *Registry) Zones() []*model.Zone {
	return r.zones
}

// ApplyDemand runs one full demand pass over all zones with one snapshot.
// Demand values are only comparable after a full pass.
func (r *Registry) ApplyDemand(m *demand.Model) {
	for _, z := range r.zones {
		m.Compute(z)
	}
}

// Eligible returns, in registry order, the zones that need water and have
// online hardware. Zones with relay or controller id <= 0 are excluded
// regardless of demand.
func (r *Registry) Eligible() []*model.Zone {
	var out []*model.Zone
	for _, z := range r.zones {
		if z.Demand > 0 && z.HardwareOnline() {
			out = append(out, z)
		}
	}
	return out
}
