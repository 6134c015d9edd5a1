package model

import "time"

// Zone represents one physically distinct irrigation area: a garden section
// with its own emitter line, driven by one relay on one controller module.
type Zone struct {
	Name        string  // unique within a registry
	PF          float64 // plant factor, dimensionless multiplier
	LA          float64 // landscape area in square feet
	Relay       int     // relay number on the controller, 0 = not installed
	Controller  int     // controller module number, 0 = offline
	LastDate    time.Time
	LastGallons float64

	// DaysSince and Demand are recomputed every demand pass and are only
	// meaningful after a full pass over all zones with one snapshot.
	DaysSince int
	Demand    float64 // gallons, 0 means no irrigation needed this cycle
}

// HardwareOnline reports whether the zone has a usable relay assignment.
// Zero or negative ids mark hardware that is not installed or offline.
func (z *Zone) HardwareOnline() bool {
	return z.Relay > 0 && z.Controller > 0
}
