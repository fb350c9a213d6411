package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Prefix starts every name autosnap creates.
const Prefix = "auto"

var (
	ErrUnsupportedFormat = errors.New("unsupported name format")
	ErrInvalidLabel      = errors.New("invalid label")
	ErrUnrepresentable   = errors.New("instant not representable in format")
)

// Format selects the timestamp encoding appended to the label.
type Format int

const (
	// FormatDefault is yyMMddHHmmss, 12 digits.
	FormatDefault Format = iota
	// FormatISO is _YYYY_MM_DDTHH_mm_ss.
	FormatISO
	// FormatCalendar is YYYYMMDDHHmmss, 14 digits.
	FormatCalendar
)

func (f Format) String() string {
	switch f {
	case FormatDefault:
		return "default"
	case FormatISO:
		return "iso"
	case FormatCalendar:
		return "calendar"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a config or flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return FormatDefault, nil
	case "iso", "iso8601":
		return FormatISO, nil
	case "calendar":
		return FormatCalendar, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// grammar describes one fixed-width encoding. The grammars are disjoint:
// iso starts with '_', default and calendar are digit runs of different
// lengths directly after an alphabetic label.
type grammar struct {
	format  Format
	layout  string
	minYear int
	maxYear int
	match   func(enc string) bool
}

// decodeOrder is the fixed priority in which TryDecode tries formats.
var decodeOrder = []grammar{
	{
		format:  FormatISO,
		layout:  "_2006_01_02T15_04_05",
		minYear: 0,
		maxYear: 9999,
		match:   matchISO,
	},
	{
		format:  FormatCalendar,
		layout:  "20060102150405",
		minYear: 0,
		maxYear: 9999,
		match:   func(enc string) bool { return len(enc) == 14 && allDigits(enc) },
	},
	{
		format: FormatDefault,
		layout: "060102150405",
		// two-digit years parse into 1969..2068
		minYear: 1969,
		maxYear: 2068,
		match:   func(enc string) bool { return len(enc) == 12 && allDigits(enc) },
	},
}

func grammarFor(f Format) (grammar, bool) {
	for _, g := range decodeOrder {
		if g.format == f {
			return g, true
		}
	}
	return grammar{}, false
}

// Codec encodes and decodes snapshot names in a fixed time zone.
type Codec struct {
	loc    *time.Location
	labels map[Label]struct{}
}

// NewCodec returns a codec that recognizes the built-in labels plus extra.
// A nil location means UTC. A zone with DST repeats an hour of wall clock
// time at fall-back, so names taken in that hour do not round trip.
func NewCodec(loc *time.Location, extra ...Label) *Codec {
	if loc == nil {
		loc = time.UTC
	}
	labels := make(map[Label]struct{}, len(KnownLabels)+len(extra))
	for _, l := range KnownLabels {
		labels[l] = struct{}{}
	}
	for _, l := range extra {
		if l.Valid() {
			labels[l] = struct{}{}
		}
	}
	return &Codec{loc: loc, labels: labels}
}

// Location returns the zone names are rendered in.
func (c *Codec) Location() *time.Location { return c.loc }

// Encode renders the snapshot name for label at instant, truncated to seconds.
func (c *Codec) Encode(label Label, instant time.Time, f Format) (string, error) {
	g, ok := grammarFor(f)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if !label.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	t := instant.In(c.loc)
	if y := t.Year(); y < g.minYear || y > g.maxYear {
		return "", fmt.Errorf("%w: year %d in %s", ErrUnrepresentable, y, f)
	}
	return Prefix + string(label) + t.Format(g.layout), nil
}

// TryDecode returns the managed view of raw, or false if raw is not a name
// autosnap would have produced for a recognized label.
func (c *Codec) TryDecode(raw string) (Managed, bool) {
	rest, ok := strings.CutPrefix(raw, Prefix)
	if !ok {
		return Managed{}, false
	}

	for _, g := range decodeOrder {
		width := len(g.layout)
		if len(rest) <= width {
			continue
		}
		label := Label(rest[:len(rest)-width])
		enc := rest[len(rest)-width:]
		if !g.match(enc) {
			continue
		}
		if _, known := c.labels[label]; !known {
			continue
		}
		t, err := time.ParseInLocation(g.layout, enc, c.loc)
		if err != nil {
			continue
		}
		return Managed{Name: raw, Label: label, Format: g.format, Instant: t}, true
	}
	return Managed{}, false
}

// Group decodes a backend listing and partitions the managed names by
// label. Each group keeps listing order; unmanaged names are dropped.
func (c *Codec) Group(names []string) map[Label][]Managed {
	groups := make(map[Label][]Managed)
	for i, n := range names {
		m, ok := c.TryDecode(n)
		if !ok {
			continue
		}
		m.Position = i
		groups[m.Label] = append(groups[m.Label], m)
	}
	return groups
}

func matchISO(enc string) bool {
	// _YYYY_MM_DDTHH_mm_ss
	if len(enc) != 20 {
		return false
	}
	for i := 0; i < len(enc); i++ {
		switch i {
		case 0, 5, 8, 14, 17:
			if enc[i] != '_' {
				return false
			}
		case 11:
			if enc[i] != 'T' {
				return false
			}
		default:
			if enc[i] < '0' || enc[i] > '9' {
				return false
			}
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
