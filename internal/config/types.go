package config

// Config is the operator-facing process configuration (pricewatch.json or
// .yaml). It configures logging, the control API listener and the storage
// backend. Tracker settings (API key, webhook, tracked SKUs, ...) are NOT
// here: they live in the persistence store and are mutated through the
// control API.
type Config struct {
	// DataDir holds the persisted documents (config/state/history).
	DataDir string `json:"data_dir,omitempty"`

	Logging LoggingConfig `json:"logging"`
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ServerConfig controls the HTTP control API.
//
// Timeouts are Go duration strings (e.g. "10s", "1m").
type ServerConfig struct {
	Addr         string `json:"addr,omitempty"` // default: "127.0.0.1:5000"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
}

// StorageConfig selects the persistence backend.
//
// Driver values:
//   - "file" (default): JSON documents under data_dir
//   - "sqlite": single database file under data_dir
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// WithDefaults returns a copy with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:5000"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	return c
}

// Default is the configuration used when no config file exists at all.
func Default() Config {
	return Config{Logging: LoggingConfig{Console: true}}.WithDefaults()
}
