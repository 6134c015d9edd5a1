// Package telemetry records cycle outcomes: per-zone points in InfluxDB and
// process-level prometheus counters.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/gardenops/cimis-irrigation/internal/sequencer"
)

// InfluxConfig carries the connection settings for the cycle writer.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string // defaults to "irrigation_cycle"
}

// CycleWriter persists one point per actuated zone after a cycle completes.
type CycleWriter struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
}

func NewCycleWriter(cfg InfluxConfig) (*CycleWriter, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "irrigation_cycle"
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &CycleWriter{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: measurement,
	}, nil
}

// WriteResults records the actuated zones of one cycle. Telemetry is
// best-effort: failures are logged and returned but never abort a cycle that
// already dispensed water.
func (w *CycleWriter) WriteResults(ctx context.Context, cycleID string, at time.Time, results []sequencer.Result) error {
	var firstErr error
	for _, r := range results {
		if !r.Actuated() {
			continue
		}
		tags := map[string]string{
			"zone":       r.Zone.Name,
			"controller": strconv.Itoa(r.Zone.Controller),
			"relay":      strconv.Itoa(r.Zone.Relay),
			"cycle_id":   cycleID,
		}
		fields := map[string]interface{}{
			"demand_gal":  r.Zone.Demand,
			"duration_ms": r.Duration.Milliseconds(),
			"confirmed":   r.State == sequencer.Confirmed,
		}
		point := influxdb2.NewPoint(w.measurement, tags, fields, at)
		if err := w.writeAPI.WritePoint(ctx, point); err != nil {
			log.Printf("telemetry: influx write for zone %q: %v", r.Zone.Name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *CycleWriter) Close() {
	w.client.Close()
}
