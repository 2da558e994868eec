package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
	"github.com/nudgeproject/nudge/pkg/nudge/logging"
)

// Config holds daemon configuration.
type Config struct {
	SocketPath string
	DataDir    string
}

// Server is the nudged control server. It speaks newline-delimited JSON
// over a Unix socket; see the protocol package for the wire types.
type Server struct {
	cfg      Config
	svc      *Service
	listener net.Listener
	logger   *logging.Logger
	done     chan struct{}

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool

	wg sync.WaitGroup
}

// NewServer creates a new daemon server.
func NewServer(cfg Config, svc *Service) (*Server, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}

	// Ensure socket directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0755); err != nil {
		return nil, err
	}

	// Create Unix socket listener
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		svc:      svc,
		listener: listener,
		logger:   logging.Get("daemon"),
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Serve accepts control connections. Blocks until stopped.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if !s.addConn(conn) {
			conn.Close()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.removeConn(conn)
			s.handle(conn)
		}()
	}
}

// Close stops the server, terminates open connections, and cleans up.
// Safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	close(s.done)
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	err := s.listener.Close()
	s.wg.Wait()

	if rmErr := os.RemoveAll(s.cfg.SocketPath); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func (s *Server) addConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) removeConn(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handle serves one connection: requests in, responses out, in order.
func (s *Server) handle(conn net.Conn) {
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req protocol.Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("dropping connection", "error", err)
			}
			return
		}

		switch req.Op {
		case protocol.OpStatus:
			if err := enc.Encode(&protocol.Response{OK: true, Status: s.svc.Status()}); err != nil {
				return
			}

		case protocol.OpProcesses:
			if err := enc.Encode(&protocol.Response{OK: true, Snapshot: s.svc.Processes(req.Limit)}); err != nil {
				return
			}

		case protocol.OpFollow:
			// The acknowledged connection becomes a one-way event stream.
			s.follow(enc, req.Names, req.Actions)
			return

		case protocol.OpShutdown:
			_ = enc.Encode(&protocol.Response{OK: true})
			s.logger.Info("shutdown requested over control socket")
			s.svc.Shutdown()
			return

		default:
			if err := enc.Encode(&protocol.Response{Error: "unknown op: " + req.Op}); err != nil {
				return
			}
		}
	}
}

// follow streams niceness-change events until the subscription ends or the
// client goes away.
func (s *Server) follow(enc *json.Encoder, names, actions []string) {
	sub := s.svc.Follow(names, actions)
	if sub == nil {
		_ = enc.Encode(&protocol.Response{Error: "daemon shutting down"})
		return
	}
	defer s.svc.Unfollow(sub.ID)

	if err := enc.Encode(&protocol.Response{OK: true}); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			resp := &protocol.Response{
				OK: true,
				Event: &protocol.Event{
					Time:    event.Time,
					PID:     event.PID,
					Name:    event.Name,
					Action:  event.Action,
					OldNice: event.OldNice,
					NewNice: event.NewNice,
				},
			}
			if err := enc.Encode(resp); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
