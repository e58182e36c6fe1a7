// filerecv accepts one TCP connection and saves the incoming
// length-prefixed payload to disk.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/frtem2008/Server-finale-2.0/internal/logger"
	"github.com/frtem2008/Server-finale-2.0/pkg/transfer"
)

func main() {
	addr := flag.String("addr", ":26781", "listen address")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-addr host:port] <output-file>\n", os.Args[0])
		os.Exit(2)
	}
	path := flag.Arg(0)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error("Failed to listen on %s: %v", *addr, err)
		os.Exit(1)
	}
	defer ln.Close()
	logger.Info("Waiting for a sender on %s", ln.Addr())

	conn, err := ln.Accept()
	if err != nil {
		logger.Error("Failed to accept: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	n, err := transfer.ReceiveFile(conn, path)
	if err != nil {
		logger.Error("Failed to receive into %s: %v", path, err)
		os.Exit(1)
	}
	logger.Event(logger.CategoryFileCreation, "Saved %d bytes from %s to %s",
		n, conn.RemoteAddr(), path)
}
