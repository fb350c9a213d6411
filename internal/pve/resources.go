// Package pve implements the backend capabilities against Proxmox VE, either
// through its command line tools or its REST API.
package pve

import (
	"slices"
	"strings"

	"github.com/raoulx24/autosnap/internal/snapshot"
)

// Resource is one entry of /cluster/resources with type=vm.
type Resource struct {
	ID       string `json:"id"` // "qemu/100", "lxc/101"
	VMID     int    `json:"vmid"`
	Type     string `json:"type"` // "qemu", "lxc"
	Node     string `json:"node"`
	Name     string `json:"name"`
	Status   string `json:"status"` // "running", "stopped"
	Tags     string `json:"tags,omitempty"`
	Template int    `json:"template,omitempty"`
}

// SnapshotEntry is one snapshot as listed by the API.
type SnapshotEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SnapTime    int64  `json:"snaptime,omitempty"`
	Parent      string `json:"parent,omitempty"`
	VMState     int    `json:"vmstate,omitempty"`
}

// currentSnapshot is the pseudo entry marking the live state.
const currentSnapshot = "current"

func kindOf(typ string) (snapshot.Kind, bool) {
	switch typ {
	case "lxc":
		return snapshot.Container, true
	case "qemu":
		return snapshot.VirtualMachine, true
	}
	return 0, false
}

func guestType(kind snapshot.Kind) string {
	if kind == snapshot.Container {
		return "lxc"
	}
	return "qemu"
}

// workloads keeps the guests on node, drops templates and converts them.
func workloads(resources []Resource, node string) []snapshot.Workload {
	var out []snapshot.Workload
	for _, r := range resources {
		if r.Node != node || r.Template == 1 {
			continue
		}
		kind, ok := kindOf(r.Type)
		if !ok {
			continue
		}
		out = append(out, snapshot.Workload{
			ID:      r.VMID,
			Kind:    kind,
			Name:    r.Name,
			Node:    r.Node,
			Running: r.Status == "running",
			Tags:    splitTags(r.Tags),
		})
	}
	return out
}

// splitTags accepts the separators Proxmox allows in the tags property.
func splitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == ' '
	})
	slices.Sort(fields)
	return slices.Compact(fields)
}
