package hostexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig addresses a remote hypervisor node.
type SSHConfig struct {
	Host       string
	Port       int
	User       string
	KeyFile    string
	KnownHosts string // empty disables host key verification
}

// SSHClient executes commands over one lazily dialed SSH connection; each
// command gets its own session.
type SSHClient struct {
	addr   string
	config *ssh.ClientConfig

	mu   sync.Mutex
	conn *ssh.Client
}

// NewSSHClient reads the private key and prepares the client config.
func NewSSHClient(cfg SSHConfig) (*SSHClient, error) {
	key, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts: %w", err)
		}
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	return &SSHClient{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         15 * time.Second,
		},
	}, nil
}

func (c *SSHClient) client() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := ssh.Dial("tcp", c.addr, c.config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", c.addr, err)
	}
	c.conn = conn
	return conn, nil
}

// Run is a RunFunc.
func (c *SSHClient) Run(ctx context.Context, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}
	conn, err := c.client()
	if err != nil {
		return "", err
	}
	session, err := conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("unable to create SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(Format(argv)) }()

	select {
	case <-ctx.Done():
		// session.Run may still be writing to stdout, so it is not read here.
		_ = session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("%s on %s: %w", argv[0], c.addr, ctx.Err())
	case err := <-done:
		if err == nil {
			return stdout.String(), nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{Argv: argv, Code: exitErr.ExitStatus(), Stderr: stderr.String()}
		}
		return stdout.String(), fmt.Errorf("remote command failed: %w", err)
	}
}

// Close tears down the connection if one was opened.
func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
