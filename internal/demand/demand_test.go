package demand

import (
	"math"
	"testing"
	"time"

	"github.com/gardenops/cimis-irrigation/internal/model"
)

var windowEnd = time.Date(2024, 7, 13, 0, 0, 0, 0, time.Local)

func snapshot(eto, precip float64) model.WeatherSnapshot {
	return model.WeatherSnapshot{
		ETo:    eto,
		Precip: precip,
		Start:  windowEnd.AddDate(0, 0, -7),
		End:    windowEnd,
	}
}

func zone(lastGallons float64, daysAgo int) *model.Zone {
	return &model.Zone{
		Name:        "herb-bed",
		PF:          1.0,
		LA:          96,
		Relay:       2,
		Controller:  1,
		LastDate:    windowEnd.AddDate(0, 0, -daysAgo),
		LastGallons: lastGallons,
	}
}

func TestComputeNoPriorIrrigation(t *testing.T) {
	// 0.25 in/day over 7 days, PF=1.0, LA=96: gross = 1.75*96*0.623.
	m := NewModel(snapshot(1.75, 0), DefaultParams())
	got := m.Compute(zone(0, 30))

	want := 1.75 * 1.0 * 96 * AreaToGallons
	if math.Abs(got-want) > 0.01 {
		t.Errorf("Compute() = %.3f, want %.3f", got, want)
	}
	if math.Abs(got-104.67) > 0.01 {
		t.Errorf("Compute() = %.3f, want about 104.67", got)
	}
}

func TestComputeRecentIrrigationCredited(t *testing.T) {
	// 50 gal applied 3 days ago credits 50*0.7 = 35 gal.
	m := NewModel(snapshot(1.75, 0), DefaultParams())
	got := m.Compute(zone(50, 3))

	if math.Abs(got-69.67) > 0.01 {
		t.Errorf("Compute() = %.3f, want about 69.67", got)
	}
}

func TestComputeOldIrrigationIgnored(t *testing.T) {
	m := NewModel(snapshot(1.75, 0), DefaultParams())

	none := m.Compute(zone(0, 30))
	huge := m.Compute(zone(100000, 8))
	if none != huge {
		t.Errorf("irrigation older than %d days must contribute 0: got %.3f, want %.3f",
			RecentIrrigationDays, huge, none)
	}

	z := zone(50, 7)
	exactly7 := m.Compute(z)
	if want := none - 35; math.Abs(exactly7-want) > 0.001 {
		t.Errorf("irrigation exactly 7 days ago must still count: got %.3f, want %.3f", exactly7, want)
	}
	if z.DaysSince != 7 {
		t.Errorf("DaysSince = %d, want 7", z.DaysSince)
	}
}

func TestComputeEffectivePrecipitation(t *testing.T) {
	m := NewModel(snapshot(1.75, 2), DefaultParams())

	// 2 in over the window: 2 * 0.5 * 0.623 gallons-equivalent.
	if want := 2 * 0.5 * AreaToGallons; math.Abs(m.EffectivePrecipitation()-want) > 1e-9 {
		t.Errorf("EffectivePrecipitation() = %.4f, want %.4f", m.EffectivePrecipitation(), want)
	}

	got := m.Compute(zone(0, 30))
	if want := 1.75*96*AreaToGallons - 0.623; math.Abs(got-want) > 0.001 {
		t.Errorf("Compute() = %.3f, want %.3f", got, want)
	}
}

func TestComputeClampsToZero(t *testing.T) {
	// Heavy rain over a tiny zone: credit exceeds gross demand.
	m := NewModel(snapshot(0.01, 2), DefaultParams())
	z := zone(0, 30)
	z.LA = 1

	if got := m.Compute(z); got != 0 {
		t.Errorf("Compute() = %v, want exactly 0", got)
	}
	if z.Demand != 0 {
		t.Errorf("z.Demand = %v, want exactly 0", z.Demand)
	}
}

func TestComputeNeverNegative(t *testing.T) {
	cases := []struct {
		name        string
		eto, precip float64
		gallons     float64
		daysAgo     int
	}{
		{"all zero", 0, 0, 0, 30},
		{"rain only", 0, 5, 0, 30},
		{"huge recent irrigation", 0.5, 0, 10000, 1},
		{"rain and irrigation", 0.2, 3, 500, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel(snapshot(tc.eto, tc.precip), DefaultParams())
			if got := m.Compute(zone(tc.gallons, tc.daysAgo)); got < 0 {
				t.Errorf("Compute() = %v, want >= 0", got)
			}
		})
	}
}

func TestComputeMonotonicity(t *testing.T) {
	prev := -1.0
	for _, eto := range []float64{0.5, 1.0, 1.5, 2.0, 2.5} {
		m := NewModel(snapshot(eto, 0.5), DefaultParams())
		d := m.Compute(zone(10, 2))
		if d < prev {
			t.Errorf("demand must not decrease in ETo: eto=%.1f demand=%.3f < previous %.3f", eto, d, prev)
		}
		prev = d
	}

	prev = math.Inf(1)
	for _, precip := range []float64{0, 0.5, 1.0, 2.0, 4.0} {
		m := NewModel(snapshot(1.75, precip), DefaultParams())
		d := m.Compute(zone(10, 2))
		if d > prev {
			t.Errorf("demand must not increase in precipitation: precip=%.1f demand=%.3f > previous %.3f", precip, d, prev)
		}
		prev = d
	}
}
