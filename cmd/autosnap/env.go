package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/config"
	"github.com/raoulx24/autosnap/internal/hostexec"
	"github.com/raoulx24/autosnap/internal/logging"
	"github.com/raoulx24/autosnap/internal/pve"
	"github.com/raoulx24/autosnap/internal/replication"
	"github.com/raoulx24/autosnap/internal/retry"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// environment bundles the capabilities a run consumes.
type environment struct {
	inventory backend.InventoryProvider
	backends  backend.Registry
	transport backend.ReplicationTransport
	close     func() error
}

func (e *environment) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// buildEnvironment is replaced in tests.
var buildEnvironment = newEnvironment

func newEnvironment(cfg *config.Config, log logging.Logger) (*environment, error) {
	var limiter *rate.Limiter
	if cfg.Backend.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Backend.RateLimit), 1)
	}

	run, closer, err := commandRunner(cfg, limiter)
	if err != nil {
		return nil, err
	}
	env := &environment{close: closer}
	desc := cfg.Snapshot.Description

	switch cfg.Backend.Driver {
	case "api":
		a := cfg.Backend.API
		client := pve.NewClient(pve.APIConfig{
			Host:      a.Host,
			TokenID:   a.TokenID,
			Secret:    a.Secret,
			Node:      cfg.Backend.Node,
			VerifySSL: a.VerifySSL,
			Limiter:   limiter,
		}, log.With("component", "pve-api"))
		env.inventory = pve.NewAPIInventory(client)
		env.backends = backend.Registry{
			snapshot.Container:      pve.NewGuestAPI(client, snapshot.Container, desc),
			snapshot.VirtualMachine: pve.NewGuestAPI(client, snapshot.VirtualMachine, desc),
		}
	default:
		env.inventory = pve.NewCLIInventory(run, cfg.Backend.Node)
		env.backends = backend.Registry{
			snapshot.Container:      pve.NewContainerCLI(run, desc),
			snapshot.VirtualMachine: pve.NewVMCLI(run, desc),
		}
	}

	if r := cfg.Replication; r.Destination != "" {
		env.transport = replication.NewZSync(run, replication.Options{
			Command: r.Command,
			Name:    r.Name,
			MaxSnap: r.MaxSnap,
		})
	}
	return env, nil
}

// commandRunner executes hypervisor commands locally or over SSH, wrapped
// with sudo, throttling and retries as configured.
func commandRunner(cfg *config.Config, limiter *rate.Limiter) (hostexec.RunFunc, func() error, error) {
	run := hostexec.NewLocal()
	closer := func() error { return nil }

	if s := cfg.Backend.SSH; s.Host != "" {
		client, err := hostexec.NewSSHClient(hostexec.SSHConfig{
			Host:       s.Host,
			Port:       s.Port,
			User:       s.User,
			KeyFile:    s.KeyFile,
			KnownHosts: s.KnownHosts,
		})
		if err != nil {
			return nil, nil, err
		}
		run = client.Run
		closer = client.Close
	}

	if cfg.Backend.Sudo {
		run = hostexec.WithSudo(run)
	}
	if cfg.Backend.Driver != "api" {
		run = hostexec.WithRateLimit(run, limiter)
	}
	run = hostexec.WithRetry(run, retry.Policy{Attempts: cfg.Backend.Retries, Base: 2 * time.Second})
	return run, closer, nil
}
