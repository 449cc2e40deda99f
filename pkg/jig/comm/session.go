package comm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

const (
	// DefaultTimeout is the default time to wait for a reply.
	DefaultTimeout = time.Second
	// DefaultPollInterval is the default interval between reads.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultKey is the default reply key holding the result.
	DefaultKey = "result"
)

// Session runs request/response transactions over a Transport.
// A transaction owns the transport from open to close, so concurrent
// calls on one Session are serialized.
type Session struct {
	Transport    Transport
	PollInterval time.Duration

	buf     FrameBuffer
	lastErr error
	lock    sync.Mutex
}

// NewSession creates a Session on the transport.
func NewSession(t Transport) *Session {
	return &Session{Transport: t, PollInterval: DefaultPollInterval}
}

// LastError returns the error of the most recent operation, nil if it
// succeeded.
func (s *Session) LastError() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastErr
}

// Execute opens the transport, sends req, waits for a reply up to
// timeout, closes the transport and returns the value of key in the reply.
func (s *Session) Execute(ctx context.Context, req Request, key string, timeout time.Duration) Result {
	s.lock.Lock()
	defer s.lock.Unlock()
	frame, err := s.transact(ctx, req, timeout)
	if err != nil {
		return Result{Err: err}
	}
	resp, err := DecodeResponse(frame)
	if err != nil {
		return Result{Err: s.fail(fmt.Errorf("%w: %v", ErrNoFrame, err))}
	}
	res := resp.Result(key)
	if res.Err != nil {
		s.fail(res.Err)
	}
	return res
}

// ExecuteRaw is the same as Execute except the whole reply is returned
// as text.
func (s *Session) ExecuteRaw(ctx context.Context, req Request, timeout time.Duration) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.transact(ctx, req, timeout)
}

// Open opens the transport and discards anything buffered.
// It's only needed when driving a transaction step by step with Send and
// PollFrame; Execute and Batch manage the transport themselves.
func (s *Session) Open() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastErr = nil
	return s.open()
}

// Send writes req to an opened transport.
func (s *Session) Send(req Request) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastErr = nil
	return s.send(req)
}

// PollFrame waits for the next frame on an opened transport.
func (s *Session) PollFrame(ctx context.Context, timeout time.Duration) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastErr = nil
	frame, err := s.pollFrame(ctx, timeout)
	if err != nil {
		return "", s.fail(err)
	}
	return frame, nil
}

// Flush drops buffered input, both in the transport and in the session.
func (s *Session) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.buf.Reset()
	if f, ok := s.Transport.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close closes the transport.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.close()
}

func (s *Session) transact(ctx context.Context, req Request, timeout time.Duration) (string, error) {
	s.lastErr = nil
	if err := s.open(); err != nil {
		return "", err
	}
	defer s.close()
	if err := s.send(req); err != nil {
		return "", err
	}
	frame, err := s.pollFrame(ctx, timeout)
	if err != nil {
		return "", s.fail(err)
	}
	return frame, nil
}

func (s *Session) open() error {
	s.buf.Reset()
	if err := s.Transport.Open(); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrOpen, err))
	}
	return nil
}

func (s *Session) close() error {
	err := s.Transport.Close()
	if err != nil {
		glog.Warningf("close transport error: %v", err)
		if s.lastErr == nil {
			s.lastErr = err
		}
	}
	return err
}

func (s *Session) send(req Request) error {
	b, err := req.Bytes()
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrWrite, err))
	}
	if f, ok := s.Transport.(Flusher); ok {
		if err := f.Flush(); err != nil {
			glog.Warningf("flush input error: %v", err)
		}
	}
	glog.V(2).Infof("TX %s", bytes.TrimSpace(b))
	n, err := s.Transport.Write(b)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrWrite, err))
	}
	if n != len(b) {
		return s.fail(fmt.Errorf("%w: %d of %d bytes written", ErrWrite, n, len(b)))
	}
	return nil
}

func (s *Session) pollFrame(ctx context.Context, timeout time.Duration) (string, error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	start := time.Now()
	for elapsed := time.Duration(0); elapsed < timeout; elapsed = time.Since(start) {
		chunk, err := s.Transport.ReadAvailable()
		if err != nil {
			glog.Warningf("read error: %v", err)
		}
		if len(chunk) > 0 {
			s.buf.Append(chunk)
			if s.buf.DecodeErr() {
				glog.Warningf("%v: non ASCII bytes dropped", ErrDecode)
			}
		}
		if frame, ok := s.buf.TryExtract(); ok {
			glog.V(2).Infof("RX %s", frame)
			return frame, nil
		}
		glog.V(4).Infof("no frame after %v, %d bytes buffered", elapsed, s.buf.Len())
		if wait := timeout - time.Since(start); wait < interval {
			interval = wait
		}
		if interval <= 0 {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return "", err
		}
	}
	return "", ErrNoFrame
}

func (s *Session) fail(err error) error {
	s.lastErr = err
	if errors.Is(err, ErrOpen) || errors.Is(err, ErrWrite) {
		glog.Errorf("transaction aborted: %v", err)
	} else {
		glog.Warningf("transaction failed: %v", err)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
