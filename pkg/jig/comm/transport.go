package comm

import (
	"io"
	"os"
	"sync"
	"time"
)

// Transport is a duplex byte stream to the jig with explicit lifecycle.
type Transport interface {
	// Open acquires the underlying device.
	Open() error
	// Write writes p and returns the number of bytes actually written.
	Write(p []byte) (int, error)
	// ReadAvailable returns whatever has been received, possibly nothing.
	// It must not block longer than the configured read timeout. A
	// transaction may overrun its timeout by one read, so a read timeout
	// no longer than the poll interval keeps the overrun within one poll.
	ReadAvailable() ([]byte, error)
	// Close releases the underlying device.
	Close() error
}

// Flusher is implemented by transports able to discard stale input.
type Flusher interface {
	Flush() error
}

// OpenFunc opens the underlying stream of a StreamTransport.
type OpenFunc func() (io.ReadWriteCloser, error)

// DefaultReadTimeout is the default per-read timeout.
const DefaultReadTimeout = 500 * time.Millisecond

// DefaultReadSize is the default size of the read buffer.
const DefaultReadSize = 4096

// StreamTransport implements Transport on an io.ReadWriteCloser.
type StreamTransport struct {
	Opener      OpenFunc
	ReadTimeout time.Duration
	ReadSize    int

	stream io.ReadWriteCloser
	lock   sync.Mutex
}

type readDeadliner interface {
	SetReadDeadline(time.Time) error
}

type inputResetter interface {
	ResetInputBuffer() error
}

// NewStreamTransport creates a StreamTransport.
func NewStreamTransport(opener OpenFunc) *StreamTransport {
	return &StreamTransport{
		Opener:      opener,
		ReadTimeout: DefaultReadTimeout,
		ReadSize:    DefaultReadSize,
	}
}

// Open implements Transport. An already open stream is closed first.
func (t *StreamTransport) Open() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stream != nil {
		t.stream.Close()
		t.stream = nil
	}
	s, err := t.Opener()
	if err != nil {
		return err
	}
	t.stream = s
	return nil
}

// Write implements Transport.
func (t *StreamTransport) Write(p []byte) (int, error) {
	s := t.current()
	if s == nil {
		return 0, ErrClosed
	}
	return s.Write(p)
}

// ReadAvailable implements Transport.
// Streams supporting read deadlines get one per call, others are expected
// to enforce a read timeout themselves (e.g. serial ports).
func (t *StreamTransport) ReadAvailable() ([]byte, error) {
	s := t.current()
	if s == nil {
		return nil, ErrClosed
	}
	if d, ok := s.(readDeadliner); ok && t.ReadTimeout > 0 {
		if err := d.SetReadDeadline(time.Now().Add(t.ReadTimeout)); err != nil {
			return nil, err
		}
	}
	size := t.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)
	n, err := s.Read(buf)
	if err != nil {
		if os.IsTimeout(err) || (err == io.EOF && n == 0) {
			err = nil
		}
	}
	return buf[:n], err
}

// Flush implements Flusher if the stream can discard its input.
func (t *StreamTransport) Flush() error {
	s := t.current()
	if s == nil {
		return ErrClosed
	}
	if r, ok := s.(inputResetter); ok {
		return r.ResetInputBuffer()
	}
	return nil
}

// Close implements Transport.
func (t *StreamTransport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stream == nil {
		return nil
	}
	err := t.stream.Close()
	t.stream = nil
	return err
}

func (t *StreamTransport) current() io.ReadWriteCloser {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.stream
}
