// Package transport moves framed protocol messages over a byte stream,
// typically the stdin/stdout pair connecting the server to its editor.
//
// Reading is single-threaded: only the dispatch loop calls ReadMessage, and
// frame boundaries require sequential reads anyway. Writing is contended
// (any number of in-flight handlers may emit replies concurrently), so every
// write goes through one mutex:
//
//	handler-1 ──WriteReply──┐
//	handler-2 ──WriteCall───┼──(sending lock)──→ single byte stream ──→ editor
//	dispatch  ──WriteError──┘
package transport

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"mini-lsp/message"
	"mini-lsp/protocol"
)

// ErrClosed is returned by writes after the transport has been closed.
var ErrClosed = errors.New("transport closed")

// Transport frames and unframes messages on a reader/writer pair.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	sending sync.Mutex // Serializes all frame writes; interleaved frames corrupt the stream
	closed  atomic.Bool
}

// New creates a transport over the given streams. closer may be nil when
// the caller owns stream lifetime (e.g. stdio).
func New(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
		closer: c,
	}
}

// Pipe returns two transports connected back-to-back in memory, for tests
// and in-process peers. Closing either side unblocks the other's reader.
func Pipe() (*Transport, *Transport) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := New(ar, aw, multiCloser{aw, ar})
	b := New(br, bw, multiCloser{bw, br})
	return a, b
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadMessage reads and classifies the next inbound message.
// Not safe for concurrent use; single dispatch loop only.
func (t *Transport) ReadMessage() (*message.Message, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	body, err := protocol.ReadFrame(t.reader)
	if err != nil {
		return nil, err
	}
	return message.Classify(body)
}

// WriteCall writes an outbound call with the given locally assigned id.
func (t *Transport) WriteCall(id int64, method string, params any) error {
	body, err := message.EncodeCall(id, method, params)
	if err != nil {
		return err
	}
	return t.writeFrame(body)
}

// WriteNotification writes a fire-and-forget outbound notification.
func (t *Transport) WriteNotification(method string, params any) error {
	body, err := message.EncodeNotification(method, params)
	if err != nil {
		return err
	}
	return t.writeFrame(body)
}

// WriteReply writes a successful reply to an inbound call.
func (t *Transport) WriteReply(id message.ID, result any) error {
	body, err := message.EncodeReply(id, result)
	if err != nil {
		return err
	}
	return t.writeFrame(body)
}

// WriteError writes an error reply to an inbound call.
func (t *Transport) WriteError(id message.ID, rpcErr *message.Error) error {
	body, err := message.EncodeError(id, rpcErr)
	if err != nil {
		return err
	}
	return t.writeFrame(body)
}

func (t *Transport) writeFrame(body []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	t.sending.Lock()
	defer t.sending.Unlock()
	return protocol.WriteFrame(t.writer, body)
}

// Close tears the transport down. Subsequent writes fail with ErrClosed;
// a blocked ReadMessage is unblocked when the underlying streams close.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool {
	return t.closed.Load()
}
