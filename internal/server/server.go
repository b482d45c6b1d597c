/*
file: lucidkv/internal/server/server.go

Server owns the TCP listener and per-connection goroutine loop, grounded
on the teacher's main.go/handleOneConnection pair (accept loop with a
WaitGroup, signal-driven graceful shutdown, one goroutine per
connection, bufio-backed framing). Generalized onto internal/resp's
Reader/Writer and internal/session.Session instead of the teacher's
Value/Client, and onto golang.org/x/sync/errgroup for the accept loop
and its shutdown watcher (active expiration runs inside store.Database
and the cluster raft/bus workers run on their own; Server supervises
neither).
*/
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lucidkv/lucidkv/internal/command"
	"github.com/lucidkv/lucidkv/internal/metrics"
	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
)

// Server implements command.Server (RequirePass/StartTime/ClusterEnabled)
// and drives the accept loop.
type Server struct {
	Addr        string
	Dispatcher  *command.Dispatcher
	Hub         *session.Hub
	Password    string
	ClusterMode bool

	log       zerolog.Logger
	startedAt time.Time

	listener net.Listener
	wg       sync.WaitGroup

	mu      sync.Mutex
	clients map[*session.Session]net.Conn
}

// New builds a Server that implements command.Server (RequirePass,
// StartTime, ClusterEnabled) on its own, independent of any Dispatcher
// -- callers construct a Server first, pass it as the command.Server
// seam to command.NewDispatcher, then assign the resulting Dispatcher
// back onto Server.Dispatcher before calling Run, breaking the
// otherwise-circular construction order.
func New(addr string, hub *session.Hub, password string, clusterMode bool, log zerolog.Logger) *Server {
	return &Server{
		Addr:        addr,
		Hub:         hub,
		Password:    password,
		ClusterMode: clusterMode,
		log:         log.With().Str("component", "server").Logger(),
		clients:     make(map[*session.Session]net.Conn),
	}
}

func (s *Server) RequirePass() string    { return s.Password }
func (s *Server) StartTime() time.Time   { return s.startedAt }
func (s *Server) ClusterEnabled() bool   { return s.ClusterMode }

// Run listens on s.Addr and serves connections until ctx is cancelled,
// at which point it stops accepting, closes every open connection, and
// waits for their goroutines to exit before returning.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.Addr, err)
	}
	s.listener = ln
	s.startedAt = time.Now()
	s.log.Info().Str("addr", s.Addr).Msg("listening")

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("shutdown signal received, closing listener")
		_ = ln.Close()
		s.closeAllConnections()
		return nil
	})

	group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-gctx.Done():
					return nil
				default:
					return fmt.Errorf("server: accept: %w", err)
				}
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConnection(conn)
			}()
		}
	})

	err = group.Wait()
	s.wg.Wait()
	s.log.Info().Msg("all connections closed, shutdown complete")
	return err
}

func (s *Server) closeAllConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.clients {
		_ = conn.Close()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	writer := resp.NewWriter(conn)
	sess := session.New(conn, writer)

	s.mu.Lock()
	s.clients[sess] = conn
	s.mu.Unlock()
	metrics.ConnectedClients.Inc()

	s.log.Debug().Str("remote", conn.RemoteAddr().String()).Str("session", sess.ID).Msg("connection accepted")

	defer func() {
		s.mu.Lock()
		delete(s.clients, sess)
		s.mu.Unlock()
		metrics.ConnectedClients.Dec()
		s.Hub.UnsubscribeAll(sess)
		if s.Dispatcher.Monitors != nil {
			s.Dispatcher.Monitors.Detach(sess)
		}
		_ = conn.Close()
		s.log.Debug().Str("session", sess.ID).Msg("connection closed")
	}()

	reader := resp.NewReader(conn)

	for {
		frame, err := reader.ReadValue()
		if err != nil {
			return
		}
		args, ok := frameToArgs(frame)
		if !ok {
			_ = sess.WriteValue(resp.Error("ERR Protocol error: expected array of bulk strings"))
			continue
		}
		if len(args) == 0 {
			continue
		}

		reply := s.Dispatcher.Dispatch(sess, args)
		if reply.Kind == resp.KindNoReply {
			continue
		}
		if err := sess.WriteValue(reply); err != nil {
			return
		}
	}
}

// frameToArgs converts one parsed command frame (a RESP array of bulk
// strings, per spec.md §4.1) into the dispatcher's [][]byte argument
// vector.
func frameToArgs(v resp.Value) ([][]byte, bool) {
	if v.Kind != resp.KindArray {
		return nil, false
	}
	args := make([][]byte, len(v.Array))
	for i, item := range v.Array {
		if item.Kind != resp.KindBulkString {
			return nil, false
		}
		args[i] = item.Bulk
	}
	return args, true
}
