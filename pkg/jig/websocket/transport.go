// Package websocket reaches jigs behind a serial-to-websocket bridge.
package websocket

import (
	"io"
	"time"

	"golang.org/x/net/websocket"

	"github.com/robotalks/jig.go/pkg/jig/comm"
)

// DefaultOrigin is sent when no origin is configured.
const DefaultOrigin = "http://localhost/"

// Config specifies the bridge endpoint.
type Config struct {
	URL         string
	Origin      string
	ReadTimeout time.Duration
}

// Dial connects to the bridge. Messages are sent as binary frames so the
// bridge forwards request bytes untouched.
func Dial(cfg Config) (*websocket.Conn, error) {
	origin := cfg.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	conn, err := websocket.Dial(cfg.URL, "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// NewTransport creates a Transport dialing the bridge on every
// transaction. Reads are bounded with read deadlines on the connection.
func NewTransport(cfg Config) *comm.StreamTransport {
	t := comm.NewStreamTransport(func() (io.ReadWriteCloser, error) {
		return Dial(cfg)
	})
	if cfg.ReadTimeout > 0 {
		t.ReadTimeout = cfg.ReadTimeout
	}
	return t
}
