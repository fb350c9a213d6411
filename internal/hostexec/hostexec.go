// Package hostexec runs hypervisor management commands locally or on a
// remote node, with optional sudo, throttling and retries.
package hostexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/time/rate"

	"github.com/raoulx24/autosnap/internal/retry"
)

// RunFunc executes argv and returns its stdout. A non-zero exit yields an
// *ExitError carrying stderr.
type RunFunc func(ctx context.Context, argv ...string) (stdout string, err error)

// ExitError reports a command that ran but failed.
type ExitError struct {
	Argv   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", Format(e.Argv), e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", Format(e.Argv), e.Code, msg)
}

// NewLocal returns a RunFunc that executes commands on this host.
func NewLocal() RunFunc {
	return func(ctx context.Context, argv ...string) (string, error) {
		if len(argv) == 0 {
			return "", errors.New("empty command")
		}
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		if ctx.Err() != nil {
			return stdout.String(), fmt.Errorf("%s: %w", argv[0], ctx.Err())
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return stdout.String(), &ExitError{Argv: argv, Code: exitErr.ExitCode(), Stderr: stderr.String()}
			}
			return stdout.String(), fmt.Errorf("running %s: %w", argv[0], err)
		}
		return stdout.String(), nil
	}
}

// WithSudo prefixes every command with non-interactive sudo.
func WithSudo(run RunFunc) RunFunc {
	return func(ctx context.Context, argv ...string) (string, error) {
		return run(ctx, append([]string{"sudo", "-n"}, argv...)...)
	}
}

// WithRateLimit waits on limiter before every command.
func WithRateLimit(run RunFunc, limiter *rate.Limiter) RunFunc {
	if limiter == nil {
		return run
	}
	return func(ctx context.Context, argv ...string) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
		return run(ctx, argv...)
	}
}

// WithRetry re-runs commands that fail on hypervisor lock contention.
func WithRetry(run RunFunc, p retry.Policy) RunFunc {
	if p.Transient == nil {
		p.Transient = IsTransient
	}
	return func(ctx context.Context, argv ...string) (string, error) {
		if len(argv) == 0 {
			return "", errors.New("empty command")
		}
		var out string
		err := retry.Do(ctx, p, argv[0], func() error {
			var err error
			out, err = run(ctx, argv...)
			return err
		})
		return out, err
	}
}

// transientMarkers are stderr fragments Proxmox tools print when a config
// lock is held by another task.
var transientMarkers = []string{
	"got timeout",
	"can't lock file",
	"resource temporarily unavailable",
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	stderr := strings.ToLower(exitErr.Stderr)
	for _, m := range transientMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

// Format renders argv as a shell command line.
func Format(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = quote(a)
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=@,+", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
