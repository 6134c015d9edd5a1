package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
station:
  id: "170"
  app_key: "file-key"
  lookback_days: 10
cache:
  dir: /var/cache/cimis
zones:
  file: /etc/irrig/zones.json
mqtt:
  host: broker.lan
  port: 8883
  username: irrig
  password: file-pass
  qos: 2
  controllers:
    1: /controller_1
    2: /controller_2
actuation:
  flow_gal_per_sec: 0.25
  grace_ms: 2000
run:
  interval_minutes: 1440
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Station.ID != "170" || cfg.Station.AppKey != "file-key" || cfg.Station.LookbackDays != 10 {
		t.Errorf("station = %+v", cfg.Station)
	}
	if cfg.MQTT.Host != "broker.lan" || cfg.MQTT.Port != 8883 || cfg.MQTT.QoS != 2 {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if got := cfg.MQTT.Controllers[2]; got != "/controller_2" {
		t.Errorf("controllers[2] = %q", got)
	}
	if cfg.Actuation.FlowGalPerSec != 0.25 || cfg.Actuation.GraceMS != 2000 {
		t.Errorf("actuation = %+v", cfg.Actuation)
	}
	if cfg.Run.IntervalMinutes != 1440 {
		t.Errorf("interval_minutes = %d", cfg.Run.IntervalMinutes)
	}

	// Defaults fill what the file leaves out.
	if cfg.MQTT.AckTopic != "/relay_done" {
		t.Errorf("ack_topic default = %q", cfg.MQTT.AckTopic)
	}
	if cfg.Demand.RunoffFactor != 0.5 || cfg.Demand.IrrigationEfficiency != 0.7 {
		t.Errorf("demand defaults = %+v", cfg.Demand)
	}
	if cfg.Metrics.Addr != ":2112" {
		t.Errorf("metrics.addr default = %q", cfg.Metrics.Addr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CIMIS_APP_KEY", "env-key")
	t.Setenv("MQTT_PASSWORD", "env-pass")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Station.AppKey != "env-key" {
		t.Errorf("app_key = %q, want env override", cfg.Station.AppKey)
	}
	if cfg.MQTT.Password != "env-pass" {
		t.Errorf("mqtt password = %q, want env override", cfg.MQTT.Password)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	valid := "station: {id: \"170\", app_key: k}\n"
	cases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing station id", "station: {app_key: k}", "station.id"},
		{"missing app key", "station: {id: \"170\"}", "app_key"},
		{"zero lookback", "station: {id: \"170\", app_key: k, lookback_days: -1}", "lookback_days"},
		{"bad qos", valid + "mqtt: {qos: 5}", "qos"},
		{"empty ack topic", valid + "mqtt: {ack_topic: \"\"}", "ack_topic"},
		{"zero flow", valid + "actuation: {flow_gal_per_sec: 0}", "flow_gal_per_sec"},
		{"runoff out of range", valid + "demand: {runoff_factor: 1.5}", "runoff_factor"},
		{"influx incomplete", valid + "influx: {enabled: true, url: http://influx:8086}", "influx"},
		{"negative interval", valid + "run: {interval_minutes: -5}", "interval_minutes"},
		{"not yaml", "station: [unclosed", "parse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on missing file, want error")
	}
}
