package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrSessionClosed is returned by every operation on a closed session.
var ErrSessionClosed = errors.New("relay: session closed")

// Role is the identity class a session logs in under. It is fixed for the
// lifetime of the session once login succeeds.
type Role int

const (
	RoleUnauthorized Role = iota
	RoleAdmin
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleClient:
		return "Client"
	default:
		return "Unauthorized"
	}
}

// roleFromTag maps a login role tag to a Role. Any tag other than "A" logs
// in as a client, mirroring the historical wire behavior.
func roleFromTag(tag string) Role {
	if tag == "A" {
		return RoleAdmin
	}
	return RoleClient
}

// Session wraps one accepted connection with blocking line-read and
// line-write primitives.
//
// Reads are owned by the session's handler goroutine; writes can come from
// any goroutine (forwarded commands, operator pushes) and are serialized by
// a write mutex so every line reaches the peer as one atomic write.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	closed  atomic.Bool

	// cancel stops the handler goroutine; set by the coordinator before the
	// handler starts.
	cancel context.CancelFunc

	// terminated flags that the coordinator already ran the full teardown
	// (audit line, table removal) for this session.
	terminated atomic.Bool

	mu   sync.RWMutex
	id   int
	role Role
}

// NewSession wraps an accepted connection. The session starts out
// unauthorized with no id.
func NewSession(conn net.Conn) *Session {
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// ReadLine blocks until a full newline-terminated line arrives or the peer
// disconnects. The trailing newline (and any carriage return) is stripped.
func (s *Session) ReadLine() (string, error) {
	if s.closed.Load() {
		return "", ErrSessionClosed
	}

	line, err := s.reader.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// Last line without a newline.
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	if s.closed.Load() {
		return "", ErrSessionClosed
	}
	return "", fmt.Errorf("read line: %w", err)
}

// WriteLine appends a newline and flushes the text to the peer immediately.
func (s *Session) WriteLine(line string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Close releases the underlying connection. Safe to call more than once;
// a close also unblocks any in-flight ReadLine.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// promote binds the session to its identity after a successful login.
func (s *Session) promote(id int, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.role = role
}

// ID returns the bound identity, 0 while unauthorized.
func (s *Session) ID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Role returns the session role, RoleUnauthorized until login completes.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// RemoteIP returns the peer's IP address without the port.
func (s *Session) RemoteIP() string {
	addr := s.conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (s *Session) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.role {
	case RoleAdmin:
		return fmt.Sprintf("Admin{id=%d}(%s)", s.id, s.RemoteIP())
	case RoleClient:
		return fmt.Sprintf("Client{id=%d}(%s)", s.id, s.RemoteIP())
	default:
		return fmt.Sprintf("Unauthorized client(%s)", s.RemoteIP())
	}
}
