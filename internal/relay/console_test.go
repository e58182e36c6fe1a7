package relay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_ShutdownCommand(t *testing.T) {
	srv, _, _ := startTestServer(t)

	called := false
	console := NewConsole(srv, strings.NewReader(""), func() { called = true })

	assert.True(t, console.dispatch("$shutdown"))
	assert.True(t, called)
}

func TestConsole_DisconnectAll(t *testing.T) {
	srv, _, addr := startTestServer(t)

	p := dialPeer(t, addr)
	require.NoError(t, p.RegisterClient(1))

	console := NewConsole(srv, strings.NewReader(""), func() {})
	assert.False(t, console.dispatch("$disconnect"))

	line, err := p.ReadLineTimeout(testTimeout)
	require.NoError(t, err)
	assert.Equal(t, "SYS$DISCONNECT", line)
}

func TestConsole_DisconnectSingle(t *testing.T) {
	srv, _, addr := startTestServer(t)

	p := dialPeer(t, addr)
	require.NoError(t, p.RegisterClient(7))

	console := NewConsole(srv, strings.NewReader(""), func() {})
	console.dispatch("$disconnect 7")

	line, err := p.ReadLineTimeout(testTimeout)
	require.NoError(t, err)
	assert.Equal(t, "SYS$DISCONNECT", line)

	// Disconnecting again is reported, not fatal.
	assert.False(t, console.dispatch("$disconnect 7"))
	assert.False(t, console.dispatch("$disconnect nope"))
}

func TestConsole_MessageCommand(t *testing.T) {
	srv, _, addr := startTestServer(t)

	p := dialPeer(t, addr)
	require.NoError(t, p.RegisterClient(2))

	console := NewConsole(srv, strings.NewReader(""), func() {})
	console.dispatch("$msg 2 update your agent")

	line, err := p.ReadLineTimeout(testTimeout)
	require.NoError(t, err)
	assert.Equal(t, "SYS$MSG$update your agent", line)
}

func TestConsole_RunStopsAtShutdown(t *testing.T) {
	srv, _, _ := startTestServer(t)

	input := strings.NewReader("$help\n\n$idlist\n$shutdown\n$msg 1 never reached\n")
	called := make(chan struct{})
	console := NewConsole(srv, input, func() { close(called) })

	done := make(chan struct{})
	go func() {
		console.Run(context.Background())
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(testTimeout):
		t.Fatal("shutdown was never invoked")
	}
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("console kept running past $shutdown")
	}
}

func TestConsole_UnknownCommand(t *testing.T) {
	srv, _, _ := startTestServer(t)

	console := NewConsole(srv, strings.NewReader(""), func() {})
	assert.False(t, console.dispatch("$bogus"))
	assert.False(t, console.dispatch("not even prefixed"))
}
