package comm

import (
	"encoding/json"
	"io"
)

// EOL terminates every request on the wire.
const EOL = "\r\n"

// Request is a command sent to the jig.
type Request map[string]interface{}

// Bytes returns encoded bytes for sending.
func (r Request) Bytes() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, EOL...), nil
}

// WriteTo writes encoded bytes in a single Write call.
func (r Request) WriteTo(w io.Writer) (int64, error) {
	b, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// ParseRequest decodes a request from JSON text, e.g. typed into a shell.
func ParseRequest(text string) (Request, error) {
	var r Request
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, err
	}
	return r, nil
}
