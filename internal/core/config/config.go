package config

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	HTTP      HTTPConfig       `yaml:"http"`
	Cache     CacheConfig      `yaml:"cache"`
	Breaker   BreakerConfig    `yaml:"breaker"`
	Retry     RetryConfig      `yaml:"retry"`
	DataTypes []DataTypeConfig `yaml:"data_types"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// HTTPConfig holds outbound HTTP settings for source connectors.
type HTTPConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// CacheConfig holds tiered cache settings.
type CacheConfig struct {
	Dir                  string `yaml:"dir"`
	DefaultTTLSeconds    int    `yaml:"default_ttl_seconds"`
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
}

// RetryConfig holds backoff settings for one source attempt.
type RetryConfig struct {
	InitialDelaySeconds float64 `yaml:"initial_delay_seconds"`
	Multiplier          float64 `yaml:"multiplier"`
	MaxDelaySeconds     float64 `yaml:"max_delay_seconds"`
	MaxRetries          int     `yaml:"max_retries"`
	Jitter              *bool   `yaml:"jitter"` // nil = enabled
}

// DataTypeConfig holds the ranked fallback chain for one data type.
type DataTypeConfig struct {
	Name    string         `yaml:"name"`
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig holds settings for one upstream source.
type SourceConfig struct {
	Name         string            `yaml:"name"`
	Priority     int               `yaml:"priority"`
	Capabilities []string          `yaml:"capabilities"`
	URL          string            `yaml:"url"`
	Headers      map[string]string `yaml:"headers"`
}
