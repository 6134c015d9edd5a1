package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gardenops/cimis-irrigation/internal/config"
	controller "github.com/gardenops/cimis-irrigation/internal/services/irrigation-controller"
	"github.com/gardenops/cimis-irrigation/internal/sequencer"
	"github.com/gardenops/cimis-irrigation/internal/telemetry"
	"github.com/gardenops/cimis-irrigation/internal/weather"
	"github.com/gardenops/cimis-irrigation/pkg/mqttbus"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientID := cfg.MQTT.ClientID
	if host, err := os.Hostname(); err == nil {
		clientID = fmt.Sprintf("%s-%s", clientID, host)
	}
	client, err := mqttbus.Connect(ctx, &mqttbus.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		ClientID: clientID,
	})
	if err != nil {
		return err
	}
	defer mqttbus.Close(client)

	// The ack subscription must be live before any command goes out.
	acks := sequencer.NewAckStream(0)
	ackConsumer := mqttbus.NewConsumer(client, cfg.MQTT.AckTopic, byte(cfg.MQTT.QoS), acks.HandleMessage)
	if err := ackConsumer.Subscribe(); err != nil {
		return fmt.Errorf("%w: %w", mqttbus.ErrConnect, err)
	}

	seq := sequencer.New(
		mqttbus.NewPublisher(client),
		acks,
		byte(cfg.MQTT.QoS),
		time.Duration(cfg.Actuation.GraceMS)*time.Millisecond,
	)

	source := weather.NewStore(cfg.Cache.Dir, weather.NewClient(cfg.Station.ID, cfg.Station.AppKey))

	var writer *telemetry.CycleWriter
	if cfg.Influx.Enabled {
		writer, err = telemetry.NewCycleWriter(telemetry.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		})
		if err != nil {
			return err
		}
		defer writer.Close()
	}

	ctrl := controller.New(cfg, source, seq, writer, client.IsConnected)

	if cfg.Run.IntervalMinutes == 0 {
		if err := ctrl.RunCycle(ctx); err != nil {
			telemetry.CycleErrors.Inc()
			return err
		}
		return nil
	}

	return runInterval(ctx, cancel, cfg, ctrl)
}

// runInterval re-runs the cycle on a fixed period. A failed cycle is logged
// and retried on the next tick; only a signal stops the loop.
func runInterval(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, ctrl *controller.Controller) error {
	if cfg.Metrics.Enabled {
		srv := telemetry.ServeMetrics(cfg.Metrics.Addr)
		defer srv.Close()
		log.Printf("metrics listening on %s", cfg.Metrics.Addr)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	interval := time.Duration(cfg.Run.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("running every %s", interval)
	runOnce := func() {
		if err := ctrl.RunCycle(ctx); err != nil {
			telemetry.CycleErrors.Inc()
			log.Printf("cycle failed: %v", err)
		}
	}
	runOnce()

	for {
		select {
		case <-ticker.C:
			runOnce()
		case sig := <-sigc:
			log.Printf("received %s, shutting down", sig)
			cancel()
			return nil
		}
	}
}
