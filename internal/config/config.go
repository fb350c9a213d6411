package config

import (
	"time"
)

type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Run         RunConfig         `yaml:"run"`
	Replication ReplicationConfig `yaml:"replication"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Journal     JournalConfig     `yaml:"journal"`
}

type BackendConfig struct {
	Driver    string        `yaml:"driver"` // "cli", "api"
	Node      string        `yaml:"node"`   // defaults to the short hostname
	Sudo      bool          `yaml:"sudo"`
	Timeout   time.Duration `yaml:"timeout"`   // per backend call
	RateLimit float64       `yaml:"rateLimit"` // calls per second, 0 = unlimited
	Retries   int           `yaml:"retries"`   // attempts for transient failures
	SSH       SSHConfig     `yaml:"ssh"`
	API       APIConfig     `yaml:"api"`
}

// SSHConfig runs the cli driver on a remote node when Host is set.
type SSHConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	KeyFile    string `yaml:"keyFile"`
	KnownHosts string `yaml:"knownHosts"` // empty disables host key checking
}

type APIConfig struct {
	Host      string `yaml:"host"` // e.g. https://pve.example.com:8006
	TokenID   string `yaml:"tokenID"`
	Secret    string `yaml:"secret"`
	VerifySSL bool   `yaml:"verifySSL"`
}

type SnapshotConfig struct {
	Label          string            `yaml:"label"`
	Keep           int               `yaml:"keep"`
	Format         string            `yaml:"format"` // "default", "iso", "calendar"
	IncludeVMState bool              `yaml:"includeVMState"`
	Description    string            `yaml:"description"`
	Timezone       string            `yaml:"timezone"` // IANA name, "UTC" or "Local"
	Cadence        map[string]string `yaml:"cadence"`  // label → cron expression
}

type RunConfig struct {
	Concurrency int    `yaml:"concurrency"`
	LockFile    string `yaml:"lockFile"`
	ReportFile  string `yaml:"reportFile"`
}

type ReplicationConfig struct {
	Destination string `yaml:"destination"` // empty disables replication
	Name        string `yaml:"name"`
	MaxSnap     int    `yaml:"maxSnap"`
	Command     string `yaml:"command"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "text"
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile collector path
}

type JournalConfig struct {
	Path string `yaml:"path"` // sqlite file, empty disables the journal
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Driver:  "cli",
			Timeout: 5 * time.Minute,
			Retries: 3,
			SSH:     SSHConfig{Port: 22, User: "root"},
		},
		Snapshot: SnapshotConfig{
			Label:       "daily",
			Keep:        30,
			Format:      "default",
			Description: "autosnap",
			Timezone:    "UTC",
		},
		Run: RunConfig{
			Concurrency: 1,
			LockFile:    "/run/autosnap.pid",
		},
		Replication: ReplicationConfig{
			Name:    "autosnap",
			MaxSnap: 1,
			Command: "pve-zsync",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
