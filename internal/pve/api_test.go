package pve

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(APIConfig{
		Host:         server.URL,
		TokenID:      "root@pam!autosnap",
		Secret:       "s3cret",
		Node:         "pve1",
		PollInterval: time.Millisecond,
	}, nil)
}

func envelope(data any) []byte {
	b, _ := json.Marshal(struct {
		Data any `json:"data"`
	}{Data: data})
	return b
}

func TestClient_AuthHeader(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PVEAPIToken=root@pam!autosnap=s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write(envelope([]Resource{}))
	})
	_, err := client.Resources(context.Background())
	require.NoError(t, err)
}

func TestClient_ErrorStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	})
	_, err := client.Resources(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 403")
}

func TestAPIInventory_List(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api2/json/cluster/resources", r.URL.Path)
		assert.Equal(t, "vm", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"data":` + resourcesJSON + `}`))
	})

	got, err := NewAPIInventory(client).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100, got[0].ID)
	assert.Equal(t, 101, got[1].ID)
}

func TestAPIInventory_Unavailable(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := NewAPIInventory(client).List(context.Background())
	assert.ErrorIs(t, err, backend.ErrInventoryUnavailable)
}

func TestGuestAPI_List(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api2/json/nodes/pve1/lxc/101/snapshot", r.URL.Path)
		_, _ = w.Write(envelope([]SnapshotEntry{
			{Name: "autodaily240101000000", Description: "autosnap"},
			{Name: "current", Description: "You are here!"},
		}))
	})

	names, err := NewGuestAPI(client, snapshot.Container, "autosnap").List(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, []string{"autodaily240101000000"}, names)
}

func TestGuestAPI_CreateWaitsForTask(t *testing.T) {
	var polls atomic.Int32
	var form url.Values
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api2/json/nodes/pve1/qemu/100/snapshot":
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			_, _ = w.Write(envelope("UPID:pve1:0001:snapshot"))
		case r.Method == http.MethodGet:
			if polls.Add(1) < 3 {
				_, _ = w.Write(envelope(TaskStatus{Status: "running"}))
				return
			}
			_, _ = w.Write(envelope(TaskStatus{Status: "stopped", ExitStatus: "OK"}))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	err := NewGuestAPI(client, snapshot.VirtualMachine, "autosnap").Create(context.Background(), 100, "autodaily240101000000", true)
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
	assert.Equal(t, "autodaily240101000000", form.Get("snapname"))
	assert.Equal(t, "autosnap", form.Get("description"))
	assert.Equal(t, "1", form.Get("vmstate"))
}

func TestGuestAPI_ContainerNeverSendsVMState(t *testing.T) {
	var form url.Values
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			_, _ = w.Write(envelope(""))
			return
		}
		t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
	})

	require.NoError(t, NewGuestAPI(client, snapshot.Container, "").Create(context.Background(), 101, "x", true))
	assert.Empty(t, form.Get("vmstate"))
}

func TestGuestAPI_DeleteTaskFailure(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			assert.Equal(t, "/api2/json/nodes/pve1/qemu/100/snapshot/autodaily240101000000", r.URL.Path)
			_, _ = w.Write(envelope("UPID:pve1:0002:delsnapshot"))
			return
		}
		_, _ = w.Write(envelope(TaskStatus{Status: "stopped", ExitStatus: "snapshot is locked"}))
	})

	err := NewGuestAPI(client, snapshot.VirtualMachine, "").Delete(context.Background(), 100, "autodaily240101000000")
	assert.ErrorIs(t, err, backend.ErrDelete)
	assert.Contains(t, err.Error(), "snapshot is locked")
}

func TestWaitForTask_ContextDone(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(envelope(TaskStatus{Status: "running"}))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.WaitForTask(ctx, "UPID:pve1:0003")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
