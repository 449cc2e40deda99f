package comm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOpen indicates the transport can't be opened.
	ErrOpen = errors.New("transport open error")
	// ErrWrite indicates the request was not written completely.
	ErrWrite = errors.New("cannot write data")
	// ErrDecode indicates non UTF-8 bytes were received and dropped.
	// It is never fatal, the remaining ASCII text is still parsed.
	ErrDecode = errors.New("decoding error")
	// ErrNoFrame indicates no JSON object was received before timeout.
	ErrNoFrame = errors.New("no json found")
	// ErrKeyMiss indicates the reply doesn't contain the requested key.
	ErrKeyMiss = errors.New("no result for key")
	// ErrClosed indicates the transport is not open.
	ErrClosed = errors.New("transport not open")
)

// KeyMissError is returned when a decoded reply doesn't have the key.
type KeyMissError struct {
	Key string
}

// Error implements error.
func (e *KeyMissError) Error() string {
	return fmt.Sprintf("no result for %s key", e.Key)
}

// Is makes errors.Is(err, ErrKeyMiss) work.
func (e *KeyMissError) Is(target error) bool {
	return target == ErrKeyMiss
}

// BatchError reports the slots of a batch which didn't get a frame.
type BatchError struct {
	Slots  []int
	Errors []error
}

func (e *BatchError) add(slot int, err error) {
	e.Slots = append(e.Slots, slot)
	e.Errors = append(e.Errors, err)
}

// Error implements error.
func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	msg := make([]string, len(e.Errors)+1)
	msg[0] = fmt.Sprintf("%d slots failed:", len(e.Errors))
	for n, err := range e.Errors {
		msg[n+1] = fmt.Sprintf("[%d] %v", e.Slots[n], err)
	}
	return strings.Join(msg, "\n")
}

// Unwrap exposes the slot errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return e.Errors
}

func (e *BatchError) aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
