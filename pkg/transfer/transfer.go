// Package transfer implements the side-channel file transfer that peers
// use next to the relay: an 8-byte big-endian length prefix followed by
// exactly that many raw bytes.
package transfer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// headerSize is the length-prefix size in bytes.
const headerSize = 8

// Send streams size bytes from r to w behind a length prefix.
func Send(w io.Writer, r io.Reader, size int64) error {
	if size < 0 {
		return fmt.Errorf("transfer: negative size %d", size)
	}

	var hdr [headerSize]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(size))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := io.CopyN(w, r, size); err != nil {
		return fmt.Errorf("stream payload: %w", err)
	}
	return nil
}

// Receive reads one length-prefixed payload from r into w and returns the
// payload size.
func Receive(r io.Reader, w io.Writer) (int64, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("read length prefix: %w", err)
	}
	size := int64(binary.BigEndian.Uint64(hdr[:]))
	if size < 0 {
		return 0, fmt.Errorf("transfer: length prefix overflows: %d", size)
	}

	n, err := io.CopyN(w, r, size)
	if err != nil {
		return n, fmt.Errorf("stream payload: %w", err)
	}
	return n, nil
}

// SendFile streams a file from disk, prefix included.
func SendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return Send(w, f, info.Size())
}

// ReceiveFile saves one incoming payload under path, creating parent
// directories as needed. Returns the payload size.
func ReceiveFile(r io.Reader, path string) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	n, err := Receive(r, f)
	if err != nil {
		return n, err
	}
	if err := f.Sync(); err != nil {
		return n, fmt.Errorf("sync %s: %w", path, err)
	}
	return n, nil
}
