// Package config loads the controller configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Station   StationConfig   `yaml:"station"`
	Cache     CacheConfig     `yaml:"cache"`
	Zones     ZonesConfig     `yaml:"zones"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Actuation ActuationConfig `yaml:"actuation"`
	Demand    DemandConfig    `yaml:"demand"`
	Influx    InfluxConfig    `yaml:"influx"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Run       RunConfig       `yaml:"run"`
}

// StationConfig identifies the CIMIS weather station and API credentials.
type StationConfig struct {
	ID           string `yaml:"id"`
	AppKey       string `yaml:"app_key"` // overridable via CIMIS_APP_KEY
	LookbackDays int    `yaml:"lookback_days"`
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
}

type ZonesConfig struct {
	File string `yaml:"file"`
}

// MQTTConfig holds broker settings plus the topic layout: one command topic
// per controller id and one shared acknowledgment topic.
type MQTTConfig struct {
	Host        string         `yaml:"host"`
	Port        int            `yaml:"port"`
	Username    string         `yaml:"username"`
	Password    string         `yaml:"password"` // overridable via MQTT_PASSWORD
	ClientID    string         `yaml:"client_id"`
	QoS         int            `yaml:"qos"`
	AckTopic    string         `yaml:"ack_topic"`
	Controllers map[int]string `yaml:"controllers"`
}

// ActuationConfig converts demand to valve-open time. FlowGalPerSec must
// come from the deployed emitter flow rate; the default 1 gal/s is a
// conservative placeholder for bench setups.
type ActuationConfig struct {
	FlowGalPerSec float64 `yaml:"flow_gal_per_sec"`
	GraceMS       int     `yaml:"grace_ms"`
}

type DemandConfig struct {
	RunoffFactor         float64 `yaml:"runoff_factor"`
	IrrigationEfficiency float64 `yaml:"irrigation_efficiency"`
}

type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"` // overridable via INFLUX_TOKEN
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RunConfig selects one-shot (interval 0) or fixed-interval operation.
type RunConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// Load reads, defaults, overrides, and validates the configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Station: StationConfig{LookbackDays: 7},
		Cache:   CacheConfig{Dir: "cache"},
		Zones:   ZonesConfig{File: "zones.json"},
		MQTT: MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "irrig-calculator",
			QoS:      1,
			AckTopic: "/relay_done",
		},
		Actuation: ActuationConfig{FlowGalPerSec: 1.0, GraceMS: 1000},
		Demand:    DemandConfig{RunoffFactor: 0.5, IrrigationEfficiency: 0.7},
		Metrics:   MetricsConfig{Addr: ":2112"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CIMIS_APP_KEY"); v != "" {
		cfg.Station.AppKey = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		cfg.Influx.Token = v
	}
}

func (c *Config) validate() error {
	if c.Station.ID == "" {
		return fmt.Errorf("config: station.id is required")
	}
	if c.Station.AppKey == "" {
		return fmt.Errorf("config: station.app_key is required (or set CIMIS_APP_KEY)")
	}
	if c.Station.LookbackDays <= 0 {
		return fmt.Errorf("config: station.lookback_days must be positive")
	}
	if c.Zones.File == "" {
		return fmt.Errorf("config: zones.file is required")
	}
	if c.MQTT.Host == "" || c.MQTT.Port <= 0 {
		return fmt.Errorf("config: mqtt.host and mqtt.port are required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("config: mqtt.qos must be 0, 1 or 2")
	}
	if c.MQTT.AckTopic == "" {
		return fmt.Errorf("config: mqtt.ack_topic is required")
	}
	if c.Actuation.FlowGalPerSec <= 0 {
		return fmt.Errorf("config: actuation.flow_gal_per_sec must be positive")
	}
	if c.Demand.RunoffFactor <= 0 || c.Demand.RunoffFactor > 1 {
		return fmt.Errorf("config: demand.runoff_factor must be in (0, 1]")
	}
	if c.Demand.IrrigationEfficiency <= 0 || c.Demand.IrrigationEfficiency > 1 {
		return fmt.Errorf("config: demand.irrigation_efficiency must be in (0, 1]")
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Token == "" || c.Influx.Org == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("config: influx enabled but url/token/org/bucket incomplete")
	}
	if c.Run.IntervalMinutes < 0 {
		return fmt.Errorf("config: run.interval_minutes must not be negative")
	}
	return nil
}
