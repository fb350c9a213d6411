// Package report summarizes a run for humans and machines and derives the
// process exit code.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raoulx24/autosnap/internal/fs"
	"github.com/raoulx24/autosnap/internal/worker"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitFailures = 1 // at least one workload failed
	ExitFatal    = 2 // the run could not start
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Report is the outcome of one invocation.
type Report struct {
	RunID     string    `json:"runId"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Mode      string    `json:"mode"`
	Label     string    `json:"label"`
	Keep      int       `json:"keep"`
	DryRun    bool      `json:"dryRun"`
	Workloads []Outcome `json:"workloads"`
}

// Outcome is the serializable form of a worker.Result.
type Outcome struct {
	ID         int                `json:"id"`
	Kind       string             `json:"kind"`
	Name       string             `json:"name,omitempty"`
	Phase      string             `json:"phase"`
	Failed     bool               `json:"failed"`
	Created    string             `json:"created,omitempty"`
	Deleted    []string           `json:"deleted,omitempty"`
	Kept       []string           `json:"kept,omitempty"`
	Skipped    string             `json:"skipped,omitempty"`
	Replicated bool               `json:"replicated,omitempty"`
	Planned    []worker.Operation `json:"planned,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
}

// New builds the report of run. finished is when the last workload ended.
func New(run worker.Run, finished time.Time, results []worker.Result) *Report {
	r := &Report{
		RunID:     run.ID,
		Started:   run.Now,
		Finished:  finished,
		Mode:      run.Mode.String(),
		Label:     string(run.Label),
		Keep:      run.Keep,
		DryRun:    run.DryRun,
		Workloads: make([]Outcome, 0, len(results)),
	}
	for _, res := range results {
		o := Outcome{
			ID:         res.Workload.ID,
			Kind:       res.Workload.Kind.String(),
			Name:       res.Workload.Name,
			Phase:      string(res.Phase),
			Failed:     res.Failed(),
			Created:    res.Created,
			Deleted:    res.Deleted,
			Kept:       res.Kept,
			Skipped:    res.Skipped,
			Replicated: res.Replicated,
			Planned:    res.Planned,
		}
		for _, err := range res.Errors {
			o.Errors = append(o.Errors, err.Error())
		}
		r.Workloads = append(r.Workloads, o)
	}
	return r
}

// Failures counts failed workloads.
func (r *Report) Failures() int {
	n := 0
	for _, o := range r.Workloads {
		if o.Failed {
			n++
		}
	}
	return n
}

// ExitCode is ExitOK when every workload succeeded, ExitFailures otherwise.
func (r *Report) ExitCode() int {
	if r.Failures() > 0 {
		return ExitFailures
	}
	return ExitOK
}

// WriteText prints one line per workload to out, planned commands under
// each, and every error to errOut. mute suppresses out entirely.
func (r *Report) WriteText(out, errOut io.Writer, mute bool) {
	for _, o := range r.Workloads {
		for _, e := range o.Errors {
			fmt.Fprintf(errOut, "autosnap: %s %d: %s\n", o.Kind, o.ID, e)
		}
		if mute {
			continue
		}
		fmt.Fprintln(out, o.line(r.DryRun))
		for _, p := range o.Planned {
			fmt.Fprintf(out, "  would run: %s\n", p.Command)
		}
	}
	if mute {
		return
	}
	fmt.Fprintf(out, "%d workload(s), %d failed\n", len(r.Workloads), r.Failures())
}

func (o Outcome) line(dryRun bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d", o.Kind, o.ID)
	if o.Name != "" {
		fmt.Fprintf(&b, " (%s)", o.Name)
	}
	if o.Failed {
		fmt.Fprintf(&b, ": failed at %s", o.Phase)
	} else {
		b.WriteString(": ok")
	}

	verb := "created"
	if dryRun {
		verb = "would create"
	}
	switch {
	case o.Created != "":
		fmt.Fprintf(&b, ", %s %s", verb, o.Created)
	case o.Skipped != "":
		fmt.Fprintf(&b, ", create skipped (%s)", o.Skipped)
	}
	if len(o.Deleted) > 0 {
		verb = "deleted"
		if dryRun {
			verb = "would delete"
		}
		fmt.Fprintf(&b, ", %s %d", verb, len(o.Deleted))
	}
	if o.Replicated {
		b.WriteString(", replicated")
	}
	return b.String()
}

// WriteJSON atomically writes the report to path.
func (r *Report) WriteJSON(ctx context.Context, filesystem fs.FS, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := filesystem.WriteFileAtomic(ctx, path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
