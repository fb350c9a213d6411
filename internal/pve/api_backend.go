package pve

import (
	"context"
	"fmt"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// APIInventory lists guests through /cluster/resources.
type APIInventory struct {
	client *Client
}

func NewAPIInventory(client *Client) *APIInventory {
	return &APIInventory{client: client}
}

func (i *APIInventory) List(ctx context.Context) ([]snapshot.Workload, error) {
	resources, err := i.client.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrInventoryUnavailable, err)
	}
	return workloads(resources, i.client.node), nil
}

// GuestAPI is the snapshot backend for one guest kind over the REST API.
type GuestAPI struct {
	client      *Client
	kind        snapshot.Kind
	description string
}

func NewGuestAPI(client *Client, kind snapshot.Kind, description string) *GuestAPI {
	return &GuestAPI{client: client, kind: kind, description: description}
}

func (g *GuestAPI) List(ctx context.Context, id int) ([]string, error) {
	entries, err := g.client.Snapshots(ctx, guestType(g.kind), id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrBackendUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == currentSnapshot {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

func (g *GuestAPI) Create(ctx context.Context, id int, name string, includeState bool) error {
	vmState := includeState && g.kind == snapshot.VirtualMachine
	upid, err := g.client.CreateSnapshot(ctx, guestType(g.kind), id, name, g.description, vmState)
	if err == nil {
		err = g.client.WaitForTask(ctx, upid)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", backend.ErrCreate, err)
	}
	return nil
}

func (g *GuestAPI) Delete(ctx context.Context, id int, name string) error {
	upid, err := g.client.DeleteSnapshot(ctx, guestType(g.kind), id, name)
	if err == nil {
		err = g.client.WaitForTask(ctx, upid)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", backend.ErrDelete, err)
	}
	return nil
}
