package telemetry

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle and actuation counters. One-shot runs increment them too, but they
// are mainly useful in interval mode where /metrics is served.
var (
	CyclesRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_cycles_total",
		Help: "Completed irrigation cycles.",
	})
	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_cycle_errors_total",
		Help: "Cycles aborted by a fatal error.",
	})
	CommandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_commands_sent_total",
		Help: "Relay commands published.",
	})
	AcksConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_acks_confirmed_total",
		Help: "Commands confirmed by an actuator acknowledgment.",
	})
	Timeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_ack_timeouts_total",
		Help: "Commands that saw no acknowledgment before the deadline.",
	})
	DemandGallons = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "irrigation_cycle_demand_gallons",
		Help: "Total computed demand of the most recent cycle.",
	})
)

// ServeMetrics exposes /metrics on addr in the background and returns the
// server so the caller can shut it down.
func ServeMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("telemetry: metrics server: %v", err)
		}
	}()
	return srv
}
