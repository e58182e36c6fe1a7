// Package relay implements the central relay core: connection acceptance,
// the login/registration handshake, the steady-state command loop, the
// pending-request ledger and the concurrent registries of identities and
// live sessions.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/frtem2008/Server-finale-2.0/internal/logger"
	"github.com/frtem2008/Server-finale-2.0/internal/ratelimiter"
	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
	"github.com/frtem2008/Server-finale-2.0/pkg/metrics"
)

// Server owns the listening socket, spawns one handler goroutine per
// accepted connection, and serializes access to the identity registry and
// the request ledger. Operator-facing actions (disconnect, message,
// listings) also go through here.
type Server struct {
	listenAddr string
	store      audit.Store
	registry   *Registry
	ledger     *Ledger
	sessions   *sessionTable
	metrics    *metrics.RelayMetrics
	limiter    *ratelimiter.RateLimiter

	startedAt time.Time

	mu       sync.Mutex
	listener net.Listener

	wg sync.WaitGroup
}

// NewServer builds a server around the given audit store: the registered-id
// set and the correlation-id seed are loaded from it before the server can
// accept anything.
//
// A nil metrics collector disables metrics with no further branching.
func NewServer(listenAddr string, store audit.Store, m *metrics.RelayMetrics) (*Server, error) {
	registry, err := NewRegistry(store)
	if err != nil {
		return nil, fmt.Errorf("init identity registry: %w", err)
	}
	ledger, err := NewLedger(store)
	if err != nil {
		return nil, fmt.Errorf("init request ledger: %w", err)
	}

	return &Server{
		listenAddr: listenAddr,
		store:      store,
		registry:   registry,
		ledger:     ledger,
		sessions:   newSessionTable(),
		metrics:    m,
		limiter:    ratelimiter.New(0, 0),
	}, nil
}

// SetAcceptLimit caps how fast new connections are accepted. A perSecond of
// 0 removes the cap. Must be called before Serve.
func (s *Server) SetAcceptLimit(perSecond, burst uint) {
	s.limiter = ratelimiter.New(perSecond, burst)
}

// Registry exposes the identity registry for diagnostics.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Ledger exposes the request ledger for diagnostics.
func (s *Server) Ledger() *Ledger {
	return s.ledger
}

// Addr returns the bound listener address, usable once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the context is cancelled or Stop is
// called, then broadcasts SYS$SHUTDOWN, terminates every session and waits
// for their handlers.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.writeOnOff("On")
	logger.Event(logger.CategoryServerState, "Server started on %s", listener.Addr())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				if !errors.Is(err, net.ErrClosed) {
					logger.Debug("Error accepting connection: %v", err)
					continue
				}
			}
			break
		}

		if !s.limiter.Allow() {
			logger.Warn("Connection from %s rejected: accept rate exceeded", conn.RemoteAddr())
			conn.Close()
			s.metrics.RecordReject("accept_rate")
			continue
		}

		sess := NewSession(conn)
		s.sessions.add(sess)
		s.metrics.SetConnectedSessions(s.sessions.len())

		handlerCtx, cancel := context.WithCancel(ctx)
		sess.cancel = cancel

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(handlerCtx, sess)
		}()
	}

	s.shutdownSessions()
	s.wg.Wait()
	s.writeOnOff("Off")
	logger.Event(logger.CategoryServerState, "Shutdown complete")
	return nil
}

// Stop closes the listener, which makes Serve unwind through its shutdown
// sequence. Safe to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

// shutdownSessions pushes SYS$SHUTDOWN to every live session and terminates
// each one.
func (s *Server) shutdownSessions() {
	logger.Event(logger.CategoryDisconnection, "Shutting down...")
	for _, sess := range s.sessions.snapshot() {
		if err := sess.WriteLine("SYS$SHUTDOWN"); err != nil && !errors.Is(err, ErrSessionClosed) {
			logger.Debug("Shutdown push to %s failed: %v", sess, err)
		}
		s.terminate(sess)
	}
}

// terminate runs the full teardown for a session exactly once: disconnect
// audit line, removal from the live table, socket close, handler
// cancellation and online-set recomputation. Terminating a session that is
// already terminated is a no-op.
func (s *Server) terminate(sess *Session) {
	if !sess.terminated.CompareAndSwap(false, true) {
		return
	}

	id := sess.ID()
	if id == 0 {
		logger.Event(logger.CategoryDisconnection, "Unauthorized client from %s disconnected", sess.RemoteIP())
	} else {
		logger.Event(logger.CategoryDisconnection, "Client with id %d disconnected", id)
	}
	s.writeConnection(id, false)

	s.sessions.remove(sess)
	if err := sess.Close(); err != nil {
		logger.Error("Failed to close session %s: %v", sess, err)
	}
	if sess.cancel != nil {
		sess.cancel()
	}
	s.refreshOnline()
}

// refreshOnline recomputes the derived online set from the live-session
// table and updates the session gauge.
func (s *Server) refreshOnline() {
	s.registry.SetOnline(s.sessions.onlineIDs())
	s.metrics.SetConnectedSessions(s.sessions.len())
}

// Disconnect pushes SYS$DISCONNECT to the session bound to id and
// terminates it.
func (s *Server) Disconnect(id int) error {
	sess := s.sessions.get(id)
	if sess == nil {
		return fmt.Errorf("client with id %d isn't connected", id)
	}
	if err := sess.WriteLine("SYS$DISCONNECT"); err != nil && !errors.Is(err, ErrSessionClosed) {
		logger.Debug("Disconnect push to %s failed: %v", sess, err)
	}
	s.terminate(sess)
	return nil
}

// DisconnectAll disconnects every live session and returns how many were
// dropped.
func (s *Server) DisconnectAll() int {
	snapshot := s.sessions.snapshot()
	for _, sess := range snapshot {
		if err := sess.WriteLine("SYS$DISCONNECT"); err != nil && !errors.Is(err, ErrSessionClosed) {
			logger.Debug("Disconnect push to %s failed: %v", sess, err)
		}
		s.terminate(sess)
	}
	return len(snapshot)
}

// Message pushes SYS$MSG$<text> to the live session bound to id.
func (s *Server) Message(id int, text string) error {
	sess := s.sessions.get(id)
	if sess == nil {
		return fmt.Errorf("client with id %d isn't connected", id)
	}
	return sess.WriteLine("SYS$MSG$" + text)
}

// Connections returns a printable description of every live session.
func (s *Server) Connections() []string {
	snapshot := s.sessions.snapshot()
	out := make([]string, 0, len(snapshot))
	for _, sess := range snapshot {
		out = append(out, sess.String())
	}
	return out
}

// RegisteredIDs lists every registered id, ascending.
func (s *Server) RegisteredIDs() []int {
	return s.registry.RegisteredIDs()
}

// writeConnection appends a connection ("c") or disconnection ("d") event
// for the id to the durable connections log.
func (s *Server) writeConnection(id int, connected bool) {
	marker := "d"
	if connected {
		marker = "c"
	}
	line := fmt.Sprintf("%s$%d$%s", formatDate(time.Now()), id, marker)
	if err := s.store.AppendLine(audit.CategoryConnections, line); err != nil {
		logger.Error("Failed to write connection event: %v", err)
	}
}

// writeOnOff appends a server lifecycle event ("On"/"Off") to the durable
// on-off log.
func (s *Server) writeOnOff(state string) {
	line := formatDate(time.Now()) + fieldSep + state
	if err := s.store.AppendLine(audit.CategoryOnOff, line); err != nil {
		logger.Error("Failed to write on-off event: %v", err)
	}
}

// reply writes a protocol response to the session, logging (but otherwise
// ignoring) transport failures: a dead peer is detected by its own read
// loop.
func (s *Server) reply(sess *Session, line string) {
	if err := sess.WriteLine(line); err != nil && !errors.Is(err, ErrSessionClosed) {
		logger.Debug("Reply to %s failed: %v", sess, err)
	}
}
