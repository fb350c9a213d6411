package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/raoulx24/autosnap/internal/retention"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// ErrInvalid marks a contradictory or malformed configuration. It is fatal
// before any workload is touched.
var ErrInvalid = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks every section and fills derived defaults such as the node
// name.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case "cli":
	case "api":
		if c.Backend.API.Host == "" || c.Backend.API.TokenID == "" || c.Backend.API.Secret == "" {
			return invalid("api driver requires backend.api.host, tokenID and secret")
		}
	default:
		return invalid("unknown backend driver %q", c.Backend.Driver)
	}
	if c.Backend.Node == "" {
		host, err := os.Hostname()
		if err != nil {
			return invalid("backend.node not set and hostname unavailable: %v", err)
		}
		c.Backend.Node, _, _ = strings.Cut(host, ".")
	}
	if c.Backend.Timeout <= 0 {
		return invalid("backend.timeout must be positive")
	}
	if c.Backend.RateLimit < 0 {
		return invalid("backend.rateLimit must not be negative")
	}
	if c.Backend.Retries < 1 {
		c.Backend.Retries = 1
	}
	if c.Backend.SSH.Host != "" && c.Backend.SSH.KeyFile == "" {
		return invalid("backend.ssh.keyFile is required with backend.ssh.host")
	}

	if !c.Label().Valid() {
		return invalid("label %q must be lowercase letters only", c.Snapshot.Label)
	}
	if c.Snapshot.Keep < 0 {
		return invalid("keep must not be negative, got %d", c.Snapshot.Keep)
	}
	if _, err := c.Format(); err != nil {
		return invalid("%v", err)
	}
	if _, err := c.Location(); err != nil {
		return invalid("%v", err)
	}
	if _, err := c.Cadences(); err != nil {
		return invalid("%v", err)
	}

	if c.Run.Concurrency < 1 {
		return invalid("run.concurrency must be at least 1, got %d", c.Run.Concurrency)
	}
	if c.Replication.Destination != "" && c.Replication.MaxSnap < 1 {
		return invalid("replication.maxSnap must be at least 1")
	}
	return nil
}

// Label returns the active retention label.
func (c *Config) Label() snapshot.Label {
	return snapshot.Label(strings.ToLower(c.Snapshot.Label))
}

// Format returns the name format used for new snapshots.
func (c *Config) Format() (snapshot.Format, error) {
	return snapshot.ParseFormat(c.Snapshot.Format)
}

// Location returns the zone snapshot names are rendered in.
func (c *Config) Location() (*time.Location, error) {
	switch c.Snapshot.Timezone {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Snapshot.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	return loc, nil
}

// Cadences parses the per-label cron guards. Keys must name a built-in
// label or the active one.
func (c *Config) Cadences() (map[snapshot.Label]*retention.Cadence, error) {
	out := make(map[snapshot.Label]*retention.Cadence, len(c.Snapshot.Cadence))
	for label, spec := range c.Snapshot.Cadence {
		l := snapshot.Label(strings.ToLower(label))
		if !l.Valid() {
			return nil, fmt.Errorf("cadence label %q must be letters only", label)
		}
		if l != c.Label() && !slices.Contains(snapshot.KnownLabels, l) {
			return nil, fmt.Errorf("cadence label %q is neither a built-in label nor the active label %q", label, c.Label())
		}
		cad, err := retention.ParseCadence(spec)
		if err != nil {
			return nil, fmt.Errorf("cadence for %s: %w", label, err)
		}
		out[l] = cad
	}
	return out, nil
}
