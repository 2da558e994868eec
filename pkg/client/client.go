// Package client provides a client for connecting to the nudged daemon.
// It speaks the newline-delimited JSON control protocol over the daemon's
// Unix socket and adds daemon lifecycle helpers on top.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/adrg/xdg"

	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
	"github.com/nudgeproject/nudge/pkg/nudge/config"
)

// Client is a connection to the nudged daemon.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
	mu   sync.Mutex
}

// DefaultSocketPath returns the default Unix socket path for nudged.
func DefaultSocketPath() string {
	return filepath.Join(xdg.DataHome, "nudge", "nudged.sock")
}

// DefaultPIDPath returns the default PID file path for nudged.
func DefaultPIDPath() string {
	return filepath.Join(xdg.DataHome, "nudge", "nudged.pid")
}

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // Path to nudged binary (auto-discovered if empty)
	Socket string // Unix socket path
	PID    string // PID file path
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = DefaultPIDPath()
	}
	return p
}

// Connect establishes a connection to the nudged daemon.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the nudged daemon with a custom context.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	// Check if socket exists
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// roundTrip sends one request and reads one response. The context deadline,
// if any, bounds the whole exchange.
func (c *Client) roundTrip(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	if err := c.enc.Encode(req); err != nil {
		return nil, err
	}

	var resp protocol.Response
	if err := c.dec.Decode(&resp); err != nil {
		return nil, err
	}

	if !resp.OK {
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}
		return nil, errors.New("daemon refused request")
	}
	return &resp, nil
}

// Status returns the daemon's current status.
func (c *Client) Status(ctx context.Context) (*protocol.Status, error) {
	resp, err := c.roundTrip(ctx, &protocol.Request{Op: protocol.OpStatus})
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	if resp.Status == nil {
		return nil, errors.New("daemon returned no status")
	}
	return resp.Status, nil
}

// Processes returns the most recent cycle's process snapshot. A positive
// limit caps the number of rows returned, heaviest consumers first.
func (c *Client) Processes(ctx context.Context, limit int) (*protocol.Snapshot, error) {
	resp, err := c.roundTrip(ctx, &protocol.Request{Op: protocol.OpProcesses, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("processes request failed: %w", err)
	}
	if resp.Snapshot == nil {
		return nil, errors.New("daemon returned no snapshot")
	}
	return resp.Snapshot, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	if _, err := c.roundTrip(ctx, &protocol.Request{Op: protocol.OpShutdown}); err != nil {
		return fmt.Errorf("shutdown request failed: %w", err)
	}
	return nil
}

// Follow subscribes to niceness-change events, optionally filtered by
// process name globs and action names. The returned channel receives events
// until the context is cancelled or the daemon goes away. The connection is
// dedicated to the stream afterwards; no other methods may be called on
// this client.
func (c *Client) Follow(ctx context.Context, names, actions []string) (<-chan protocol.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := &protocol.Request{Op: protocol.OpFollow, Names: names, Actions: actions}
	if err := c.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("follow request failed: %w", err)
	}

	var ack protocol.Response
	if err := c.dec.Decode(&ack); err != nil {
		return nil, fmt.Errorf("follow request failed: %w", err)
	}
	if !ack.OK {
		return nil, errors.New(ack.Error)
	}

	events := make(chan protocol.Event, 100)
	go func() {
		defer close(events)
		for {
			var resp protocol.Response
			if err := c.dec.Decode(&resp); err != nil {
				return // Stream closed or error
			}
			if resp.Event == nil {
				continue
			}
			select {
			case events <- *resp.Event:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Unblock the decode loop when the caller gives up
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()

	return events, nil
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts the nudged daemon in the background.
// Idempotent: returns nil if daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if IsDaemonRunning(paths.PID) {
		return nil // Already running, nothing to do
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find nudged: %w", err)
	}

	// Derive status path from socket path
	statusPath := strings.TrimSuffix(paths.Socket, ".sock") + ".status"

	// Clean up stale status file before starting
	_ = os.Remove(statusPath)

	// Use exec.Command (not CommandContext) intentionally: daemon must outlive caller
	cmd := exec.Command(binary) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Detach so daemon outlives caller
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll for socket OR status file
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		// Check socket first (success fast path)
		if _, err := os.Stat(paths.Socket); err == nil {
			return nil
		}

		// Check status file for explicit ready or error
		if status, err := readStatusFile(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via the control socket.
// Idempotent: returns nil if daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !IsDaemonRunning(paths.PID) {
		return nil // Not running, nothing to do
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	// Wait for daemon to stop
	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the nudged binary path.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	// Use configured path if provided
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	// Try same directory as current executable
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "nudged")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Try standard Go binary locations (GOBIN > GOPATH/bin > $HOME/go/bin)
	if goBinPath := config.DefaultBinaryPath(); goBinPath != "" {
		return goBinPath, nil
	}

	// Try PATH
	if path, err := exec.LookPath("nudged"); err == nil {
		return path, nil
	}

	return "", errors.New("nudged not found")
}

// IsDaemonRunning checks if the daemon is running based on the PID file.
func IsDaemonRunning(pidPath string) bool {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return false
	}

	// Check if process exists
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// readPIDFile reads a PID from a file.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

// statusFile represents the daemon startup status file.
type statusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

// readStatusFile reads and parses the daemon status file.
func readStatusFile(path string) (*statusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status statusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
