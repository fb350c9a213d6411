package retention

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Cadence guards snapshot creation with a cron schedule: a label is due
// only once per scheduled slot, so repeated invocations inside one slot do
// not pile up snapshots.
type Cadence struct {
	spec     string
	schedule cron.Schedule
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCadence parses a standard 5-field cron expression or a descriptor
// such as @daily.
func ParseCadence(spec string) (*Cadence, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing cadence %q: %w", spec, err)
	}
	return &Cadence{spec: spec, schedule: s}, nil
}

func (c *Cadence) String() string { return c.spec }

// Due reports whether a new snapshot should be taken at now given the
// newest existing one. A nil cadence or no previous snapshot is always due.
func (c *Cadence) Due(now, newest time.Time) bool {
	if c == nil || newest.IsZero() {
		return true
	}
	return !c.schedule.Next(newest).After(now)
}
