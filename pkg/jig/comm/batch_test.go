package comm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// delayedTransport releases each reply at a fixed offset from the request.
type delayedTransport struct {
	fakeTransport
	replies []delayedReply

	sentAt time.Time
	next   int
	mu     sync.Mutex
}

type delayedReply struct {
	after time.Duration
	text  string
}

func (d *delayedTransport) Write(p []byte) (int, error) {
	n, err := d.fakeTransport.Write(p)
	d.mu.Lock()
	d.sentAt, d.next = time.Now(), 0
	d.mu.Unlock()
	return n, err
}

func (d *delayedTransport) ReadAvailable() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next < len(d.replies) && time.Since(d.sentAt) >= d.replies[d.next].after {
		d.next++
		return []byte(d.replies[d.next-1].text), nil
	}
	return d.fakeTransport.ReadAvailable()
}

func TestBatch(t *testing.T) {
	tr := &fakeTransport{reply: replyWith(`{"n":1}`, "\r\n", `{"n":2}`, `{"n":3}`)}
	s := newTestSession(tr)
	frames, err := s.Batch(context.Background(), Request{"Cmd": "Watch"}, 3, time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, frames)
	require.Equal(t, 1, tr.opens)
	require.Len(t, tr.written, 1)
	require.Equal(t, 1, tr.closes)
}

func TestBatchMissingSlot(t *testing.T) {
	timeout := 100 * time.Millisecond
	tr := &delayedTransport{replies: []delayedReply{
		{0, `{"n":1}`},
		{timeout * 3 / 2, `{"n":3}`},
	}}
	s := NewSession(tr)
	s.PollInterval = 5 * time.Millisecond
	frames, err := s.Batch(context.Background(), Request{"Cmd": "Watch"}, 3, timeout)
	require.Equal(t, []string{`{"n":1}`, "", `{"n":3}`}, frames)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	require.Equal(t, []int{1}, batchErr.Slots)
	require.True(t, errors.Is(err, ErrNoFrame))
	require.EqualError(t, err, "1 slots failed:\n[1] no json found")
	require.Equal(t, 1, tr.closes)
}

func TestBatchOpenError(t *testing.T) {
	tr := &fakeTransport{openErr: errors.New("busy")}
	s := newTestSession(tr)
	frames, err := s.Batch(context.Background(), Request{"Cmd": "Watch"}, 2, time.Second)
	require.True(t, errors.Is(err, ErrOpen))
	require.Equal(t, []string{"", ""}, frames)
}

func TestBatchWriteError(t *testing.T) {
	tr := &fakeTransport{shortWrite: true}
	s := newTestSession(tr)
	frames, err := s.Batch(context.Background(), Request{"Cmd": "Watch"}, 2, time.Second)
	require.True(t, errors.Is(err, ErrWrite))
	require.Equal(t, []string{"", ""}, frames)
	require.Equal(t, 1, tr.closes)
}

func TestBatchZeroCount(t *testing.T) {
	tr := &fakeTransport{reply: replyWith(`{"n":1}`)}
	s := newTestSession(tr)
	frames, err := s.Batch(context.Background(), Request{"Cmd": "Watch"}, 0, time.Second)
	require.NoError(t, err)
	require.Empty(t, frames)
	require.Len(t, tr.written, 1)
}
