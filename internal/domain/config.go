package domain

// Config holds the complete server configuration. Fields are populated from
// PAYTAX_* environment variables.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Repository RepositoryConfig `envPrefix:"DB_"`
	Cache      CacheConfig      `envPrefix:"CACHE_"`
	Logging    LoggingConfig    `envPrefix:"LOG_"`
	Tracing    TracingConfig    `envPrefix:"TRACING_"`

	// PolicyFile optionally overrides the built-in tax policy
	PolicyFile string `env:"POLICY_FILE"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `env:"HOST" envDefault:"0.0.0.0"`
	Port         int    `env:"PORT" envDefault:"8080"`
	ReadTimeout  int    `env:"READ_TIMEOUT" envDefault:"30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT" envDefault:"30"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`  // debug, info, warn, error
	Format string `env:"FORMAT" envDefault:"json"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `env:"ENABLED" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"paytax"`
	// Endpoint is the OTLP/HTTP collector URL, e.g. http://localhost:4318
	Endpoint string `env:"ENDPOINT"`
}
