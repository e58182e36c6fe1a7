// filesend streams one file to a listening filerecv over TCP.
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
	addr := flag.String("addr", "localhost:26781", "receiver address")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-addr host:port] <file>\n", os.Args[0])
		os.Exit(2)
	}
	path := flag.Arg(0)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		logger.Error("Failed to connect to %s: %v", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := transfer.SendFile(conn, path); err != nil {
		logger.Error("Failed to send %s: %v", path, err)
		os.Exit(1)
	}
	logger.Info("Sent %s to %s", path, *addr)
}
