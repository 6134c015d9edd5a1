package model

import "time"

// WeatherSnapshot aggregates ETo and precipitation (both inches) over one
// contiguous lookback window ending the prior calendar day. Today's data is
// excluded because the provider does not finalize it until end of day.
type WeatherSnapshot struct {
	ETo    float64 // summed reference evapotranspiration, inches
	Precip float64 // summed precipitation, inches
	Start  time.Time
	End    time.Time
}
