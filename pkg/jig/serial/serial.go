// Package serial connects to jigs over a local serial port.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/robotalks/jig.go/pkg/jig/comm"
)

// DefaultBaudRate is the baud rate jig firmware runs at.
const DefaultBaudRate = 115200

// Config holds configuration for opening a serial port.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Open opens the serial port as 8N1 with the read timeout applied.
func Open(cfg Config) (serial.Port, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = comm.DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

// NewTransport creates a Transport which opens the port on every
// transaction. serial.Port reports a read timeout as a zero length read,
// which the stream transport treats as no data.
func NewTransport(cfg Config) *comm.StreamTransport {
	t := comm.NewStreamTransport(func() (io.ReadWriteCloser, error) {
		return Open(cfg)
	})
	if cfg.ReadTimeout > 0 {
		t.ReadTimeout = cfg.ReadTimeout
	}
	return t
}
