package daemon_test

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nudgeproject/nudge/pkg/daemon"
	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
	"github.com/nudgeproject/nudge/pkg/nudge/controller"
)

// startServer brings up a control server over an idle controller and
// returns the service plus the socket path. Everything is torn down with
// the test.
func startServer(t *testing.T) (*daemon.Service, string) {
	t.Helper()
	tmpDir := t.TempDir()
	socketPath := filepath.Join(tmpDir, "nudged.sock")

	svc, _ := newTestService(testConfig(), newFakeSource())

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: socketPath,
		DataDir:    filepath.Join(tmpDir, "data"),
	}, svc)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	// The listener is bound before NewServer returns, so clients can dial
	// as soon as Serve is accepting.
	go func() {
		_ = srv.Serve()
	}()
	t.Cleanup(func() {
		_ = srv.Close()
		svc.Close()
	})

	return svc, socketPath
}

func dialDaemon(t *testing.T, socketPath string) (*json.Encoder, *json.Decoder) {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return json.NewEncoder(conn), json.NewDecoder(conn)
}

func TestNewServer(t *testing.T) {
	tmpDir := t.TempDir()
	svc, _ := newTestService(testConfig(), newFakeSource())
	defer svc.Close()

	cfg := daemon.Config{
		SocketPath: filepath.Join(tmpDir, "nudged.sock"),
		DataDir:    filepath.Join(tmpDir, "data"),
	}

	srv, err := daemon.NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer srv.Close()

	if srv == nil {
		t.Fatal("Expected non-nil server")
	}
}

func TestServerStatusOp(t *testing.T) {
	_, socketPath := startServer(t)
	enc, dec := dialDaemon(t, socketPath)

	if err := enc.Encode(&protocol.Request{Op: protocol.OpStatus}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var resp protocol.Response
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !resp.OK {
		t.Fatalf("Expected OK response, got error %q", resp.Error)
	}
	if resp.Status == nil {
		t.Fatal("Expected status payload")
	}
	if resp.Status.PID != os.Getpid() {
		t.Errorf("Expected pid %d, got %d", os.Getpid(), resp.Status.PID)
	}
	if resp.Status.Alpha != 200 {
		t.Errorf("Expected alpha 200, got %d", resp.Status.Alpha)
	}
}

func TestServerProcessesOp(t *testing.T) {
	_, socketPath := startServer(t)
	enc, dec := dialDaemon(t, socketPath)

	if err := enc.Encode(&protocol.Request{Op: protocol.OpProcesses, Limit: 10}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var resp protocol.Response
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !resp.OK {
		t.Fatalf("Expected OK response, got error %q", resp.Error)
	}
	if resp.Snapshot == nil {
		t.Fatal("Expected snapshot payload")
	}
	if len(resp.Snapshot.Processes) != 0 {
		t.Errorf("Expected no processes from idle controller, got %d", len(resp.Snapshot.Processes))
	}
}

func TestServerUnknownOp(t *testing.T) {
	_, socketPath := startServer(t)
	enc, dec := dialDaemon(t, socketPath)

	if err := enc.Encode(&protocol.Request{Op: "bogus"}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var resp protocol.Response
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if resp.OK {
		t.Error("Expected error response for unknown op")
	}
	if !strings.Contains(resp.Error, "unknown op") {
		t.Errorf("Expected unknown op error, got %q", resp.Error)
	}
}

func TestServerMultipleRequestsPerConnection(t *testing.T) {
	_, socketPath := startServer(t)
	enc, dec := dialDaemon(t, socketPath)

	for i := 0; i < 3; i++ {
		if err := enc.Encode(&protocol.Request{Op: protocol.OpStatus}); err != nil {
			t.Fatalf("Encode %d failed: %v", i, err)
		}
		var resp protocol.Response
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("Decode %d failed: %v", i, err)
		}
		if !resp.OK || resp.Status == nil {
			t.Fatalf("Request %d: expected OK status response", i)
		}
	}
}

func TestServerFollowStreamsEvents(t *testing.T) {
	svc, socketPath := startServer(t)
	enc, dec := dialDaemon(t, socketPath)

	if err := enc.Encode(&protocol.Request{Op: protocol.OpFollow, Names: []string{"post*"}}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// The first response acknowledges the subscription
	var ack protocol.Response
	if err := dec.Decode(&ack); err != nil {
		t.Fatalf("Decode ack failed: %v", err)
	}
	if !ack.OK {
		t.Fatalf("Expected subscription ack, got error %q", ack.Error)
	}
	if ack.Event != nil {
		t.Fatal("Ack should not carry an event")
	}

	// The name filter drops ffmpeg and passes postgres
	svc.NotifyEvent(controller.Event{
		Time: time.Now(), PID: 100, Name: "ffmpeg", Action: "lower", OldNice: 0, NewNice: -5,
	})
	svc.NotifyEvent(controller.Event{
		Time: time.Now(), PID: 200, Name: "postgres", Action: "raise", OldNice: 0, NewNice: 5,
	})

	var resp protocol.Response
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("Decode event failed: %v", err)
	}
	if resp.Event == nil {
		t.Fatal("Expected event payload")
	}
	if resp.Event.Name != "postgres" {
		t.Errorf("Expected postgres event, got %q", resp.Event.Name)
	}
	if resp.Event.Action != "raise" {
		t.Errorf("Expected raise action, got %q", resp.Event.Action)
	}
	if resp.Event.NewNice != 5 {
		t.Errorf("Expected new nice 5, got %d", resp.Event.NewNice)
	}
}

func TestServerShutdownOp(t *testing.T) {
	svc, socketPath := startServer(t)
	enc, dec := dialDaemon(t, socketPath)

	if err := enc.Encode(&protocol.Request{Op: protocol.OpShutdown}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var resp protocol.Response
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !resp.OK {
		t.Fatalf("Expected OK response, got error %q", resp.Error)
	}

	select {
	case <-svc.ShutdownRequested():
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown was not signalled")
	}
}

func TestServerCloseRemovesSocket(t *testing.T) {
	tmpDir := t.TempDir()
	socketPath := filepath.Join(tmpDir, "nudged.sock")

	svc, _ := newTestService(testConfig(), newFakeSource())
	defer svc.Close()

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: socketPath,
		DataDir:    filepath.Join(tmpDir, "data"),
	}, svc)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	go func() {
		_ = srv.Serve()
	}()

	// A connected follow client must not block Close
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(&protocol.Request{Op: protocol.OpFollow}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var ack protocol.Response
	if err := json.NewDecoder(conn).Decode(&ack); err != nil {
		t.Fatalf("Decode ack failed: %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("Socket file should have been removed on Close")
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}
