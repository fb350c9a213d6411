package pve

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/raoulx24/autosnap/internal/logging"
)

// APIConfig addresses a Proxmox VE node over HTTPS with an API token.
type APIConfig struct {
	Host      string // https://pve1:8006
	TokenID   string // user@realm!name
	Secret    string
	Node      string
	VerifySSL bool
	// PollInterval is how often task status is checked. Defaults to 2s.
	PollInterval time.Duration
	// Limiter throttles requests when set.
	Limiter *rate.Limiter
}

// Client is an HTTP client for the subset of the Proxmox VE API autosnap
// needs. Authentication uses API tokens.
type Client struct {
	baseURL    string
	tokenID    string
	secret     string
	node       string
	poll       time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	log        logging.Logger
}

func NewClient(cfg APIConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifySSL,
		},
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Host, "/"),
		tokenID: cfg.TokenID,
		secret:  cfg.Secret,
		node:    cfg.Node,
		poll:    poll,
		limiter: cfg.Limiter,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		log: log,
	}
}

// do executes a request and returns the "data" member of the response.
func (c *Client) do(ctx context.Context, method, path string, body url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	apiURL := fmt.Sprintf("%s/api2/json%s", c.baseURL, path)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = strings.NewReader(body.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s=%s", c.tokenID, c.secret))
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.log.Debug("api request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return envelope.Data, nil
}

// Resources returns every guest in the cluster.
func (c *Client) Resources(ctx context.Context) ([]Resource, error) {
	data, err := c.do(ctx, http.MethodGet, "/cluster/resources?type=vm", nil)
	if err != nil {
		return nil, err
	}
	var out []Resource
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal resources: %w", err)
	}
	return out, nil
}

// Snapshots lists the snapshots of a guest, including the "current" entry.
func (c *Client) Snapshots(ctx context.Context, typ string, vmid int) ([]SnapshotEntry, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/snapshot", c.node, typ, vmid)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out []SnapshotEntry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal snapshots: %w", err)
	}
	return out, nil
}

// CreateSnapshot starts a snapshot task and returns its UPID.
func (c *Client) CreateSnapshot(ctx context.Context, typ string, vmid int, name, description string, vmState bool) (string, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/snapshot", c.node, typ, vmid)
	params := url.Values{"snapname": {name}}
	if description != "" {
		params.Set("description", description)
	}
	if vmState {
		params.Set("vmstate", "1")
	}
	data, err := c.do(ctx, http.MethodPost, path, params)
	if err != nil {
		return "", err
	}
	return unmarshalUPID(data)
}

// DeleteSnapshot starts a snapshot removal task and returns its UPID.
func (c *Client) DeleteSnapshot(ctx context.Context, typ string, vmid int, name string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/snapshot/%s", c.node, typ, vmid, url.PathEscape(name))
	data, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return "", err
	}
	return unmarshalUPID(data)
}

// TaskStatus is the state of an asynchronous task.
type TaskStatus struct {
	Status     string `json:"status"` // "running", "stopped"
	ExitStatus string `json:"exitstatus,omitempty"`
}

func (c *Client) TaskStatus(ctx context.Context, upid string) (*TaskStatus, error) {
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", c.node, url.PathEscape(upid))
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var status TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal task status: %w", err)
	}
	return &status, nil
}

// WaitForTask polls a task until it stops or ctx is done.
func (c *Client) WaitForTask(ctx context.Context, upid string) error {
	if upid == "" {
		return nil
	}
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			status, err := c.TaskStatus(ctx, upid)
			if err != nil {
				return fmt.Errorf("check task status: %w", err)
			}
			if status.Status == "stopped" {
				if status.ExitStatus != "OK" {
					return fmt.Errorf("task %s failed: %s", upid, status.ExitStatus)
				}
				return nil
			}
		}
	}
}

func unmarshalUPID(data json.RawMessage) (string, error) {
	var upid string
	if err := json.Unmarshal(data, &upid); err != nil {
		return "", fmt.Errorf("unmarshal UPID: %w", err)
	}
	return upid, nil
}
