// Package irrigation_controller wires one irrigation cycle together: weather
// snapshot in, demand over the registry, sequenced actuation, persisted
// volumes out.
package irrigation_controller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gardenops/cimis-irrigation/internal/config"
	"github.com/gardenops/cimis-irrigation/internal/demand"
	"github.com/gardenops/cimis-irrigation/internal/model"
	"github.com/gardenops/cimis-irrigation/internal/registry"
	"github.com/gardenops/cimis-irrigation/internal/sequencer"
	"github.com/gardenops/cimis-irrigation/internal/telemetry"
	"github.com/gardenops/cimis-irrigation/internal/weather"
	"github.com/gardenops/cimis-irrigation/pkg/mqttbus"
)

// WeatherSource provides the raw provider document for a date window,
// from cache or network.
type WeatherSource interface {
	FetchOrLoad(ctx context.Context, start, end time.Time) ([]byte, bool, error)
}

// Controller runs complete irrigation cycles. It owns no mutable cycle state
// itself; each cycle loads a fresh registry and produces fresh results.
type Controller struct {
	cfg       *config.Config
	source    WeatherSource
	seq       *sequencer.Sequencer
	writer    *telemetry.CycleWriter // nil when telemetry is disabled
	connected func() bool
	now       func() time.Time
}

func New(cfg *config.Config, source WeatherSource, seq *sequencer.Sequencer,
	writer *telemetry.CycleWriter, connected func() bool) *Controller {
	return &Controller{
		cfg:       cfg,
		source:    source,
		seq:       seq,
		writer:    writer,
		connected: connected,
		now:       time.Now,
	}
}

// RunCycle executes one full cycle. Any returned error is fatal for the
// cycle: nothing was persisted and the caller should exit nonzero and rely
// on the next scheduled invocation.
func (c *Controller) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	now := c.now()

	// The window ends the prior calendar day; today's provider data is
	// still unfinalized.
	end := now.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -c.cfg.Station.LookbackDays)
	log.Printf("controller: cycle %s window %s..%s", cycleID,
		start.Format(weather.DateParam), end.Format(weather.DateParam))

	raw, cached, err := c.source.FetchOrLoad(ctx, start, end)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", cycleID, err)
	}
	eto, precip, err := weather.Summarize(raw)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", cycleID, err)
	}
	snap := model.WeatherSnapshot{ETo: eto, Precip: precip, Start: start, End: end}
	log.Printf("controller: cycle %s eto=%.2fin precip=%.2fin cached=%t", cycleID, eto, precip, cached)

	reg, err := registry.Load(c.cfg.Zones.File)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", cycleID, err)
	}

	mdl := demand.NewModel(snap, demand.Params{
		RunoffFactor: c.cfg.Demand.RunoffFactor,
		Efficiency:   c.cfg.Demand.IrrigationEfficiency,
	})
	reg.ApplyDemand(mdl)

	total := 0.0
	for _, z := range reg.Zones() {
		total += z.Demand
		log.Printf("demand: zone=%q pf=%.2f la=%.0f days_since=%d demand=%.3fgal",
			z.Name, z.PF, z.LA, z.DaysSince, z.Demand)
	}
	telemetry.DemandGallons.Set(total)

	tasks := c.buildTasks(reg.Eligible())
	if len(tasks) == 0 {
		log.Printf("controller: cycle %s: no zones need actuation", cycleID)
		telemetry.CyclesRun.Inc()
		return nil
	}

	// Entry gate: refuse partial actuation without a reliable ack path.
	if !c.connected() {
		return fmt.Errorf("cycle %s: %w: not connected at actuation gate", cycleID, mqttbus.ErrConnect)
	}

	results := c.seq.Run(ctx, tasks)

	actuated := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Actuated() {
			actuated[r.Zone.Name] = true
			telemetry.CommandsSent.Inc()
		}
		switch r.State {
		case sequencer.Confirmed:
			telemetry.AcksConfirmed.Inc()
		case sequencer.TimedOut:
			telemetry.Timeouts.Inc()
		}
	}

	// The volume was physically dispensed for every published command,
	// confirmed or not, so all of them must be recorded.
	if err := reg.Save(now, actuated); err != nil {
		return fmt.Errorf("cycle %s: %w", cycleID, err)
	}

	if c.writer != nil {
		if err := c.writer.WriteResults(ctx, cycleID, now, results); err != nil {
			log.Printf("controller: cycle %s: telemetry write failed: %v", cycleID, err)
		}
	}

	telemetry.CyclesRun.Inc()
	log.Printf("controller: cycle %s done: %d commanded, %d confirmed", cycleID,
		len(actuated), countState(results, sequencer.Confirmed))
	return nil
}

// buildTasks maps eligible zones to commands. A controller id with no
// configured command topic is unreachable hardware and is skipped like an
// offline relay.
func (c *Controller) buildTasks(eligible []*model.Zone) []sequencer.Task {
	tasks := make([]sequencer.Task, 0, len(eligible))
	for _, z := range eligible {
		topic, ok := c.cfg.MQTT.Controllers[z.Controller]
		if !ok {
			log.Printf("controller: zone %q: no command topic for controller %d, skipping", z.Name, z.Controller)
			continue
		}
		ms := z.Demand / c.cfg.Actuation.FlowGalPerSec * 1000
		tasks = append(tasks, sequencer.Task{
			Zone:     z,
			Topic:    topic,
			Duration: time.Duration(ms) * time.Millisecond,
		})
	}
	return tasks
}

func countState(results []sequencer.Result, s sequencer.ZoneState) int {
	n := 0
	for _, r := range results {
		if r.State == s {
			n++
		}
	}
	return n
}
