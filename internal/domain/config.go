package domain

import "time"

// Config holds the complete Shrike configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Pipeline settings (brand list, weights, lookup behavior)
	Pipeline PipelineConfig `json:"pipeline"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// PipelineConfig holds analysis pipeline settings.
type PipelineConfig struct {
	// BrandsFile is an optional JSON file (array of strings) overriding the
	// built-in brand list. Load failures fall back to the built-in list.
	BrandsFile string `json:"brandsFile"`

	// WeightsFile is an optional JSON file (kind -> integer weight) applied
	// as a bulk override on top of the reference weight table.
	WeightsFile string `json:"weightsFile"`

	// LookupTimeout bounds each registration lookup.
	LookupTimeout time.Duration `json:"lookupTimeout"`

	// WorkerConcurrency caps concurrent analyses in a batch.
	WorkerConcurrency int `json:"workerConcurrency"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the default configuration: SQLite repository,
// in-memory LRU cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Pipeline: PipelineConfig{
			LookupTimeout:     10 * time.Second,
			WorkerConcurrency: 8,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./shrike.db",
		},
		Cache: CacheConfig{
			Type:            "memory",
			LocalMaxSize:    10000,
			RegistrationTTL: time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "shrike",
		},
	}
}
