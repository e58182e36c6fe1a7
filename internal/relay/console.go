package relay

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/frtem2008/Server-finale-2.0/internal/logger"
)

// Console reads operator commands (all prefixed "$") from a reader,
// normally stdin, and applies them to the server. $shutdown invokes the
// injected shutdown function, which cancels the server's root context.
type Console struct {
	server   *Server
	in       io.Reader
	shutdown func()
}

func NewConsole(server *Server, in io.Reader, shutdown func()) *Console {
	return &Console{server: server, in: in, shutdown: shutdown}
}

// Run loops until the input is exhausted, the context is cancelled or the
// operator asks for shutdown.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if c.dispatch(line) {
			return
		}
	}
}

// dispatch executes one operator command, returning true when the console
// should stop.
func (c *Console) dispatch(line string) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case "$help":
		c.printHelp()

	case "$shutdown":
		logger.Event(logger.CategoryServerState, "Shutdown requested from console")
		c.shutdown()
		return true

	case "$connections":
		conns := c.server.Connections()
		if len(conns) == 0 {
			logger.Info("No active connections")
			break
		}
		for _, conn := range conns {
			logger.Info("%s", conn)
		}
		logger.Info("Total: %d connection(s)", len(conns))

	case "$idlist":
		ids := c.server.RegisteredIDs()
		if len(ids) == 0 {
			logger.Info("No registered ids")
			break
		}
		logger.Info("Registered ids: %s", formatIDList(ids))

	case "$disconnect":
		if len(fields) == 1 {
			n := c.server.DisconnectAll()
			logger.Info("Disconnected %d client(s)", n)
			break
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			logger.Event(logger.CategoryWrongData, "Invalid id: %q", fields[1])
			break
		}
		if err := c.server.Disconnect(id); err != nil {
			logger.Event(logger.CategoryWrongData, "Client with id %d isn't connected", id)
		}

	case "$msg":
		if len(fields) < 3 {
			logger.Event(logger.CategoryWrongData, "Usage: $msg <id> <text>")
			break
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			logger.Event(logger.CategoryWrongData, "Invalid id: %q", fields[1])
			break
		}
		text := strings.Join(fields[2:], " ")
		if err := c.server.Message(id, text); err != nil {
			logger.Event(logger.CategoryWrongData, "Client with id %d isn't connected", id)
		}

	default:
		logger.Event(logger.CategoryWrongData, "Invalid command: %q", line)
		logger.Info("Type $help to list available commands")
	}

	return false
}

func (c *Console) printHelp() {
	logger.Info("Available commands:")
	logger.Info("  $help              show this help")
	logger.Info("  $connections       list active connections")
	logger.Info("  $idlist            list registered ids")
	logger.Info("  $disconnect [id]   disconnect one client, or all of them")
	logger.Info("  $msg <id> <text>   push a text message to a client")
	logger.Info("  $shutdown          stop the server")
}
