// Package protocol implements the base-protocol framing used between the
// editor and the server.
//
// Messages are framed HTTP-style: an ASCII header block terminated by an
// empty line, then exactly Content-Length bytes of JSON body. The receiver
// reads the headers first to learn the body length, then reads exactly
// that many bytes. This is how frame boundaries survive a raw byte stream.
//
// Frame format:
//
//	Content-Length: 123\r\n
//	\r\n
//	{"jsonrpc":"2.0", ... 123 bytes ... }
//
// Content-Type headers may appear and are ignored.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxBodySize rejects frames with an absurd declared length before any
// allocation happens. A malicious or corrupted peer must not be able to
// make us allocate gigabytes off a single header line.
const MaxBodySize = 128 << 20 // 128 MiB

const headerContentLength = "content-length"

// WriteFrame writes one complete frame (header block + body) to w.
// The caller must hold a write lock if multiple goroutines share the same
// writer, otherwise frames from concurrent replies will interleave and
// corrupt the stream.
func WriteFrame(w io.Writer, body []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one complete frame from r and returns the body bytes.
// Header parsing is tolerant: header names are case-insensitive and
// unknown headers (Content-Type in particular) are skipped. A frame with
// no valid Content-Length is a protocol error.
//
// Reads must be sequential (a single reader per connection), so ReadFrame
// takes a *bufio.Reader the caller owns.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	contentLength := -1

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // End of header block
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line: %q", line)
		}
		if strings.ToLower(strings.TrimSpace(name)) != headerContentLength {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid Content-Length %q: %w", value, err)
		}
		contentLength = n
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("frame missing Content-Length header")
	}
	if contentLength > MaxBodySize {
		return nil, fmt.Errorf("frame body of %d bytes exceeds limit", contentLength)
	}

	// io.ReadFull guarantees exactly contentLength bytes, never a short read.
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}
