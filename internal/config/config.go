package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LayoutPath        string        `mapstructure:"layout_path" yaml:"layout_path"`
	TownCapacity      int           `mapstructure:"town_capacity" yaml:"town_capacity"`
	SessionSecret     string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionIssuer     string        `mapstructure:"session_issuer" yaml:"session_issuer"`
	SessionTTL        time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	LiveKitAPIKey     string        `mapstructure:"livekit_api_key" yaml:"livekit_api_key"`
	LiveKitAPISecret  string        `mapstructure:"livekit_api_secret" yaml:"livekit_api_secret"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "townsquare.db",
		TownCapacity:      50,
		SessionSecret:     "change-me",
		SessionIssuer:     "townsquare",
		SessionTTL:        24 * time.Hour,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}
