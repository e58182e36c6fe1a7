// Package client is a small peer library for the relay wire protocol. It
// covers the login handshake and the steady-state lines for both peer
// roles, and is also what the integration tests drive the server with.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Login failures the server reports as retryable or fatal.
var (
	// ErrIDExists means a registration used an id somebody already owns.
	ErrIDExists = errors.New("client: id already registered")
	// ErrIDOnline means a login raced another live session for the id.
	ErrIDOnline = errors.New("client: id already online")
	// ErrIDFree means a login used an id nobody registered.
	ErrIDFree = errors.New("client: id not registered")
	// ErrLoginSyntax means the server rejected the login line shape and
	// dropped the connection.
	ErrLoginSyntax = errors.New("client: malformed login line")
)

// Peer is one connection to the relay. Reads belong to a single consumer
// goroutine; writes are serialized internally.
type Peer struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	mu sync.Mutex
	id int
}

// Dial connects to the relay at addr without logging in.
func Dial(addr string) (*Peer, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return &Peer{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close drops the connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}

// ID returns the identity this peer logged in with, 0 before login.
func (p *Peer) ID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// LoginAdmin logs in as an admin under an already registered id.
func (p *Peer) LoginAdmin(id int) error { return p.hello("A", id) }

// LoginClient logs in as a client under an already registered id.
func (p *Peer) LoginClient(id int) error { return p.hello("C", id) }

// RegisterAdmin claims a fresh id and logs in as an admin in one exchange.
func (p *Peer) RegisterAdmin(id int) error { return p.hello("A", -id) }

// RegisterClient claims a fresh id and logs in as a client in one exchange.
func (p *Peer) RegisterClient(id int) error { return p.hello("C", -id) }

// hello performs one login exchange: <roleTag>$<signedID>, then the
// server's verdict. Retryable rejections come back as typed errors on a
// connection that is still usable for another attempt.
func (p *Peer) hello(roleTag string, signedID int) error {
	if err := p.SendLine(roleTag + "$" + strconv.Itoa(signedID)); err != nil {
		return err
	}
	reply, err := p.ReadLine()
	if err != nil {
		return fmt.Errorf("read login reply: %w", err)
	}

	fields := strings.Split(reply, "$")
	if len(fields) < 2 || fields[0] != "LOGIN" {
		return fmt.Errorf("client: unexpected login reply %q", reply)
	}

	switch fields[1] {
	case "CONNECT":
		if len(fields) != 4 {
			return fmt.Errorf("client: unexpected login reply %q", reply)
		}
		id, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("client: unexpected login reply %q", reply)
		}
		p.mu.Lock()
		p.id = id
		p.mu.Unlock()
		return nil

	case "INVALID_ID":
		if len(fields) != 4 {
			return fmt.Errorf("client: unexpected login reply %q", reply)
		}
		switch fields[2] {
		case "EXISTS":
			return ErrIDExists
		case "ONLINE":
			return ErrIDOnline
		case "FREE":
			return ErrIDFree
		}
		return fmt.Errorf("client: unexpected login rejection %q", reply)

	case "INVALID_SYNTAX":
		return ErrLoginSyntax
	}
	return fmt.Errorf("client: unexpected login reply %q", reply)
}

// SendCommand issues an admin command to the client with the target id.
// Args may itself contain "$".
func (p *Peer) SendCommand(targetID int, cmd, args string) error {
	return p.SendLine(fmt.Sprintf("A$%d$%s$%s", targetID, cmd, args))
}

// Report sends a client's execution report for the given correlation id.
func (p *Peer) Report(correlationID int64, status string) error {
	return p.SendLine(fmt.Sprintf("C$%d$%d$%s", p.ID(), correlationID, status))
}

// QueryInfo issues an A$INFO$<sub> query. The caller reads the response
// with ReadLine.
func (p *Peer) QueryInfo(sub string) error {
	return p.SendLine("A$INFO$" + sub)
}

// SendLine writes one raw protocol line.
func (p *Peer) SendLine(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := p.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// ReadLine blocks until the next line from the relay.
func (p *Peer) ReadLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	return "", err
}

// ReadLineTimeout is ReadLine with a read deadline, for callers that must
// not hang on a silent relay.
func (p *Peer) ReadLineTimeout(d time.Duration) (string, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return "", err
	}
	defer p.conn.SetReadDeadline(time.Time{})
	return p.ReadLine()
}

// Command is a parsed forwarded command as a client receives it:
// <correlationId>$<cmd>$<args>.
type Command struct {
	CorrelationID int64
	Cmd           string
	Args          string
}

// ParseCommand parses a forwarded command line.
func ParseCommand(line string) (Command, error) {
	fields := strings.SplitN(line, "$", 3)
	if len(fields) != 3 {
		return Command{}, fmt.Errorf("client: malformed command %q", line)
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Command{}, fmt.Errorf("client: malformed command %q", line)
	}
	return Command{CorrelationID: id, Cmd: fields[1], Args: fields[2]}, nil
}

// Outcome is a parsed forwarded report as an admin receives it:
// <clientId>$<cmd>$<args>$<status>. Because args may contain "$", the
// status is taken from the last field.
type Outcome struct {
	ClientID int
	Cmd      string
	Args     string
	Status   string
}

// ParseOutcome parses a forwarded report line.
func ParseOutcome(line string) (Outcome, error) {
	fields := strings.Split(line, "$")
	if len(fields) < 4 {
		return Outcome{}, fmt.Errorf("client: malformed outcome %q", line)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("client: malformed outcome %q", line)
	}
	return Outcome{
		ClientID: id,
		Cmd:      fields[1],
		Args:     strings.Join(fields[2:len(fields)-1], "$"),
		Status:   fields[len(fields)-1],
	}, nil
}
