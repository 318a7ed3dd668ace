package config

import "time"

// ObserverConfig is the root configuration for an observer instance.
type ObserverConfig struct {
	Instance    InstanceConfig    `yaml:"instance"`
	API         APIConfig         `yaml:"api"`
	Task        TaskConfig        `yaml:"task"`
	Connections ConnectionsConfig `yaml:"connections"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Health      HealthConfig      `yaml:"health"`
}

// InstanceConfig identifies this observer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds race-service REST API settings, used to fetch task
// metadata (game ids, start/target pages) before connecting.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// TaskConfig identifies the task to observe.
type TaskConfig struct {
	ID        string `yaml:"id"`
	SocketURL string `yaml:"socket_url"` // base websocket URL, game id is appended as a path segment

	// GameIDs, when set, skips the API metadata fetch.
	GameIDs []string `yaml:"game_ids"`
}

// ConnectionsConfig holds per-game socket supervisor settings.
type ConnectionsConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	BufferSize     int           `yaml:"buffer_size"`
}

// ArchiveConfig holds the optional raw-event journal settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DB            DBConfig      `yaml:"db"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
