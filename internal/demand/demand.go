// Package demand implements the SLIDE-style irrigation demand model: weather
// totals and the prior irrigation record of a zone are converted into the
// gallons needed to cover the zone's evapotranspiration deficit.
package demand

import (
	"math"
	"time"

	"github.com/gardenops/cimis-irrigation/internal/model"
)

const (
	// AreaToGallons converts inches of water over one square foot to gallons.
	AreaToGallons = 0.623

	// DefaultRunoffFactor discounts precipitation not absorbed by the soil.
	DefaultRunoffFactor = 0.5

	// DefaultEfficiency models drip-system losses on applied irrigation.
	DefaultEfficiency = 0.7

	// RecentIrrigationDays bounds how far back a prior irrigation event still
	// counts toward the current deficit.
	RecentIrrigationDays = 7
)

// Params are the tunable coefficients of the model.
type Params struct {
	RunoffFactor float64
	Efficiency   float64
}

// DefaultParams returns the coefficients used by the deployed system.
func DefaultParams() Params {
	return Params{RunoffFactor: DefaultRunoffFactor, Efficiency: DefaultEfficiency}
}

// Model computes per-zone demand against one weather snapshot. The effective
// precipitation term is shared across zones within a cycle, so it is computed
// once at construction.
type Model struct {
	snap      model.WeatherSnapshot
	params    Params
	effPrecip float64 // gallons-equivalent, identical for every zone
}

func NewModel(snap model.WeatherSnapshot, p Params) *Model {
	return &Model{
		snap:      snap,
		params:    p,
		effPrecip: snap.Precip * p.RunoffFactor * AreaToGallons,
	}
}

// EffectivePrecipitation returns the shared precipitation credit in gallons.
func (m *Model) EffectivePrecipitation() float64 {
	return m.effPrecip
}

// Compute fills in z.DaysSince and z.Demand from the snapshot and the zone's
// prior irrigation record. Negative results clamp to exactly 0, the sentinel
// for "skip this zone".
func (m *Model) Compute(z *model.Zone) float64 {
	z.DaysSince = daysBetween(z.LastDate, m.snap.End)

	effIrr := 0.0
	if z.DaysSince <= RecentIrrigationDays {
		effIrr = z.LastGallons * m.params.Efficiency
	}

	gross := m.snap.ETo * z.PF * z.LA * AreaToGallons
	d := gross - m.effPrecip - effIrr
	if d <= 0 {
		d = 0
	}
	z.Demand = d
	return d
}

// daysBetween returns whole days from 'from' to 'to', truncated toward zero.
func daysBetween(from, to time.Time) int {
	return int(math.Trunc(to.Sub(from).Hours() / 24))
}
