package observability

import (
	"time"

	"jobprep/internal/config"
)

// Settings is the resolved observability configuration.
type Settings struct {
	Enabled            bool
	ServiceName        string
	ServiceVersion     string
	ServiceInstance    string
	ConsoleOutput      bool
	PrettyPrint        bool
	SampleRate         float64
	CollectionInterval time.Duration
	Prometheus         config.PrometheusConfig
	OTLP               config.OTLPConfig
}

// SettingsFrom builds Settings from the loaded config.
func SettingsFrom(cfg *config.Config, version string) Settings {
	if cfg == nil {
		return Settings{
			Enabled:            false,
			ServiceName:        "jobprep",
			ServiceVersion:     version,
			ServiceInstance:    "jobprep-1",
			SampleRate:         1.0,
			CollectionInterval: 15 * time.Second,
			Prometheus:         config.PrometheusConfig{Endpoint: "/metrics"},
		}
	}

	obs := cfg.Observability
	interval := obs.Metrics.CollectionInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return Settings{
		Enabled:            obs.Enabled,
		ServiceName:        obs.ServiceName,
		ServiceVersion:     version,
		ServiceInstance:    obs.ServiceInstance,
		ConsoleOutput:      obs.ConsoleOutput,
		PrettyPrint:        obs.PrettyPrint,
		SampleRate:         obs.SampleRate,
		CollectionInterval: interval,
		Prometheus:         obs.Prometheus,
		OTLP:               obs.OTLP,
	}
}
