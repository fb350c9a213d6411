package pve

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/hostexec"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// CLIInventory lists guests with pvesh.
type CLIInventory struct {
	run  hostexec.RunFunc
	node string
}

func NewCLIInventory(run hostexec.RunFunc, node string) *CLIInventory {
	return &CLIInventory{run: run, node: node}
}

func (i *CLIInventory) List(ctx context.Context) ([]snapshot.Workload, error) {
	out, err := i.run(ctx, "pvesh", "get", "/cluster/resources", "--type", "vm", "--output-format", "json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrInventoryUnavailable, err)
	}
	var resources []Resource
	if err := json.Unmarshal([]byte(out), &resources); err != nil {
		return nil, fmt.Errorf("%w: parsing pvesh output: %w", backend.ErrInventoryUnavailable, err)
	}
	return workloads(resources, i.node), nil
}

// GuestCLI drives pct (containers) or qm (VMs).
type GuestCLI struct {
	tool        string
	run         hostexec.RunFunc
	description string
	vmState     bool
}

// NewContainerCLI returns the pct backend. Containers have no RAM state.
func NewContainerCLI(run hostexec.RunFunc, description string) *GuestCLI {
	return &GuestCLI{tool: "pct", run: run, description: description}
}

// NewVMCLI returns the qm backend.
func NewVMCLI(run hostexec.RunFunc, description string) *GuestCLI {
	return &GuestCLI{tool: "qm", run: run, description: description, vmState: true}
}

func (g *GuestCLI) List(ctx context.Context, id int) ([]string, error) {
	out, err := g.run(ctx, g.tool, "listsnapshot", strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrBackendUnavailable, err)
	}
	return parseSnapshotList(out), nil
}

func (g *GuestCLI) Create(ctx context.Context, id int, name string, includeState bool) error {
	if _, err := g.run(ctx, g.CreateCommand(id, name, includeState)...); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrCreate, err)
	}
	return nil
}

func (g *GuestCLI) Delete(ctx context.Context, id int, name string) error {
	if _, err := g.run(ctx, g.DeleteCommand(id, name)...); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrDelete, err)
	}
	return nil
}

// CreateCommand is the argv Create runs.
func (g *GuestCLI) CreateCommand(id int, name string, includeState bool) []string {
	argv := []string{g.tool, "snapshot", strconv.Itoa(id), name}
	if g.description != "" {
		argv = append(argv, "--description", g.description)
	}
	if g.vmState && includeState {
		argv = append(argv, "--vmstate", "1")
	}
	return argv
}

// DeleteCommand is the argv Delete runs.
func (g *GuestCLI) DeleteCommand(id int, name string) []string {
	return []string{g.tool, "delsnapshot", strconv.Itoa(id), name}
}

// parseSnapshotList extracts names from the tree printed by listsnapshot:
//
//	`-> autodaily240101000000   2024-01-01 00:00:00   autosnap
//	  `-> current                                     You are here!
func parseSnapshotList(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.ReplaceAll(line, "`->", "")
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == currentSnapshot {
			continue
		}
		names = append(names, fields[0])
	}
	return names
}
