package config

type configDefinition struct {
	Port       int                `koanf:"port"`
	ApiSecret  string             `koanf:"api_secret"`
	Database   DatabaseDefinition `koanf:"database"`
	Cache      cache              `koanf:"cache"`
	Logging    logging            `koanf:"logging"`
	Sentry     sentry             `koanf:"sentry"`
	Pyroscope  pyroscope          `koanf:"pyroscope"`
	Prometheus Prometheus         `koanf:"prometheus"`
}

type DatabaseDefinition struct {
	// Driver is "sqlite" (embedded, default) or "mysql".
	Driver   string `koanf:"driver"`
	Path     string `koanf:"path"` // sqlite database file
	Addr     string `koanf:"address"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Db       string `koanf:"db"`
	MaxPool  int    `koanf:"max_pool"`
}

type cache struct {
	// FlushIntervalMs is the quiescence window of the background flush.
	FlushIntervalMs int `koanf:"flush_interval_ms"`
	// ReadTtlMinutes is how long read results stay in the in-memory cache.
	ReadTtlMinutes int `koanf:"read_ttl_minutes"`
	// LockStripes sizes the striped mutex guarding cache fills.
	LockStripes int `koanf:"lock_stripes"`
}

type logging struct {
	Debug      bool `koanf:"debug"`
	SaveLogs   bool `koanf:"save_logs"`
	MaxSize    int  `koanf:"max_size"`
	MaxBackups int  `koanf:"max_backups"`
	MaxAge     int  `koanf:"max_age"`
	Compress   bool `koanf:"compress"`
}

type sentry struct {
	DSN              string  `koanf:"dsn"`
	SampleRate       float64 `koanf:"sample_rate"`
	EnableTracing    bool    `koanf:"enable_tracing"`
	TracesSampleRate float64 `koanf:"traces_sample_rate"`
}

type pyroscope struct {
	ApplicationName      string `koanf:"application_name"`
	ServerAddress        string `koanf:"server_address"`
	ApiKey               string `koanf:"api_key"`
	Logger               bool   `koanf:"logger"`
	MutexProfileFraction int    `koanf:"mutex_profile_fraction"`
	BlockProfileRate     int    `koanf:"block_profile_rate"`
}

type Prometheus struct {
	Enabled    bool      `koanf:"enabled"`
	Token      string    `koanf:"token"`
	BucketSize []float64 `koanf:"bucket_size"`
}

var Config = configDefinition{
	Port: 9200,
	Database: DatabaseDefinition{
		Driver:  "sqlite",
		Path:    "stash.db",
		MaxPool: 25,
	},
	Cache: cache{
		FlushIntervalMs: 500,
		ReadTtlMinutes:  60,
		LockStripes:     128,
	},
	Logging: logging{
		SaveLogs:   true,
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     30,
	},
	Sentry: sentry{
		SampleRate:       1.0,
		TracesSampleRate: 1.0,
	},
	Pyroscope: pyroscope{
		ApplicationName:      "stash",
		MutexProfileFraction: 5,
		BlockProfileRate:     5,
	},
}

func (c *configDefinition) GetPrometheus() Prometheus {
	return c.Prometheus
}
