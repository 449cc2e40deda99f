package comm

import (
	"context"
	"time"
)

// Batch sends req once and collects count replies while holding the
// transport open. Each reply is waited for up to timeout, and a slot
// without a reply is left as an empty string. The returned slice always
// has count elements.
//
// The error is the open or write error if the request could not be sent,
// a *BatchError if some slots have no reply, or nil.
func (s *Session) Batch(ctx context.Context, req Request, count int, timeout time.Duration) ([]string, error) {
	if count < 0 {
		count = 0
	}
	frames := make([]string, count)

	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastErr = nil
	if err := s.open(); err != nil {
		return frames, err
	}
	defer s.close()
	if err := s.send(req); err != nil {
		return frames, err
	}

	var errs BatchError
	for n := range frames {
		frame, err := s.pollFrame(ctx, timeout)
		if err != nil {
			errs.add(n, s.fail(err))
			continue
		}
		frames[n] = frame
	}
	return frames, errs.aggregate()
}
