package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Engine settings (fan-out concurrency and deadlines)
	Engine EngineConfig `json:"engine"`

	// Component configurations
	Store      StoreConfig      `json:"store"`
	Repository RepositoryConfig `json:"repository"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// GeoIPPath optionally points at a MaxMind mmdb file. When set,
	// the geo detector resolves countries from it; otherwise only
	// caller-supplied countries are used.
	GeoIPPath string `json:"geoipPath,omitempty"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig holds assessment orchestration settings.
type EngineConfig struct {
	// DetectorTimeout bounds each detector call. A detector that
	// exceeds it is treated as "no signal". Recommended 200 to 500ms.
	DetectorTimeout time.Duration `json:"detectorTimeout"`

	// AssessTimeout bounds the whole assessment. On expiry the
	// fail-safe default assessment is returned. Recommended 1 to 2s.
	AssessTimeout time.Duration `json:"assessTimeout"`

	// MaxConcurrent bounds the detector fan-out per assessment.
	MaxConcurrent int `json:"maxConcurrent"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns the development configuration: in-process
// store, SQLite archive, channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Engine: EngineConfig{
			DetectorTimeout: 300 * time.Millisecond,
			AssessTimeout:   1500 * time.Millisecond,
			MaxConcurrent:   8,
		},
		Store: StoreConfig{
			Type:          "memory",
			MemoryMaxKeys: 100000,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
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
			ServiceName: "harrier",
		},
	}
}

// ProductionConfig returns the production configuration: Redis store,
// PostgreSQL archive, NATS bus.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Store = StoreConfig{
		Type:      "redis",
		RedisAddr: "localhost:6379",
	}
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
