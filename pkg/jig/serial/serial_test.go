package serial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/jig.go/pkg/jig/comm"
)

func TestOpenRequiresPort(t *testing.T) {
	_, err := Open(Config{})
	require.EqualError(t, err, "serial port path is required")
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(Config{Port: "/dev/jig-does-not-exist"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "/dev/jig-does-not-exist")
}

func TestTransportOpenError(t *testing.T) {
	tr := NewTransport(Config{Port: "/dev/jig-does-not-exist", ReadTimeout: 100 * time.Millisecond})
	require.Equal(t, 100*time.Millisecond, tr.ReadTimeout)

	s := comm.NewSession(tr)
	res := s.Execute(context.Background(), comm.Request{"Cmd": "Ping"}, comm.DefaultKey, time.Second)
	require.True(t, errors.Is(res.Err, comm.ErrOpen))
	require.True(t, errors.Is(s.LastError(), comm.ErrOpen))
}
