package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains settings for the reference document server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// JWTSecret protects the document API. Leaving it empty disables
	// authentication, which is only acceptable for local development.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// StorageConfig contains settings for the local durable store.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RemoteConfig contains settings for the remote document store. An empty
// base URL means the session runs local-only until a remote is attached.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Token   string `mapstructure:"token"`
	// DatabaseURL selects the Postgres backend variant instead of the
	// HTTP one when set.
	DatabaseURL string `mapstructure:"database_url"`
}

// SchedulerConfig contains interval scheduler settings.
type SchedulerConfig struct {
	RepetitionCeiling int `mapstructure:"repetition_ceiling" validate:"omitempty,gte=1"`
}
