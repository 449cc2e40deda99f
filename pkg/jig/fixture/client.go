// Package fixture implements the command set of the microphone board test jig.
package fixture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/jig.go/pkg/jig/comm"
)

// Commands understood by the jig firmware.
const (
	CmdPing            = "Ping"
	CmdPowerOn         = "PwrOn"
	CmdPowerOff        = "PwrOff"
	CmdGet             = "Get"
	CmdTestEncoder     = "TestEncoder"
	CmdTestLightSensor = "TestLightSns"
)

// Values measured by CmdGet, in millivolts.
const (
	Supply5V       = "5vV"
	Supply3V3      = "3v3V"
	Supply3V3Input = "3v3InV"
)

// StatusOK is the status of a successful command.
const StatusOK = "ok"

// StatusError is returned when the jig reports a status other than ok.
type StatusError struct {
	Cmd    string
	Status string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %q", e.Cmd, e.Status)
}

// Command builds a request, with Params only if params are provided.
func Command(name string, params ...string) comm.Request {
	req := comm.Request{"Cmd": name}
	if len(params) > 0 {
		req["Params"] = params
	}
	return req
}

// Client issues commands to the jig, one transaction per command.
type Client struct {
	Session *comm.Session
	Timeout time.Duration
	Key     string
}

// NewClient creates a Client with default timeout and result key.
func NewClient(s *comm.Session) *Client {
	return &Client{Session: s, Timeout: comm.DefaultTimeout, Key: comm.DefaultKey}
}

// Do sends a command and returns the value under the result key.
func (c *Client) Do(ctx context.Context, req comm.Request) comm.Result {
	return c.Session.Execute(ctx, req, c.Key, c.Timeout)
}

// Run sends a command expecting an ok status.
func (c *Client) Run(ctx context.Context, cmd string, params ...string) error {
	res := c.Do(ctx, Command(cmd, params...))
	if res.Err != nil {
		return res.Err
	}
	if status := res.String(); !strings.EqualFold(status, StatusOK) {
		return &StatusError{Cmd: cmd, Status: status}
	}
	return nil
}

// Ping checks the jig is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.Run(ctx, CmdPing)
}

// PowerOn powers the device under test.
func (c *Client) PowerOn(ctx context.Context) error {
	return c.Run(ctx, CmdPowerOn)
}

// PowerOff removes power from the device under test.
func (c *Client) PowerOff(ctx context.Context) error {
	return c.Run(ctx, CmdPowerOff)
}

// TestEncoder runs the rotary encoder self test.
func (c *Client) TestEncoder(ctx context.Context) error {
	return c.Run(ctx, CmdTestEncoder)
}

// TestLightSensor runs the light sensor self test.
func (c *Client) TestLightSensor(ctx context.Context) error {
	return c.Run(ctx, CmdTestLightSensor)
}

// Measure reads a named value. The jig replies with the value under
// the name itself rather than the result key.
func (c *Client) Measure(ctx context.Context, name string) comm.Result {
	return c.Session.Execute(ctx, Command(CmdGet, name), name, c.Timeout)
}

// MeasureAll reads named values one by one. A failed measurement doesn't
// stop the others.
func (c *Client) MeasureAll(ctx context.Context, names ...string) map[string]comm.Result {
	results := make(map[string]comm.Result, len(names))
	for _, name := range names {
		res := c.Measure(ctx, name)
		if res.Err != nil {
			glog.Warningf("measure %s: %v", name, res.Err)
		}
		results[name] = res
	}
	return results
}

// Watch sends a request and collects count replies, e.g. the events
// reported while an operator presses buttons. A slot without a reply
// is nil.
func (c *Client) Watch(ctx context.Context, req comm.Request, count int) ([]comm.Response, error) {
	frames, err := c.Session.Batch(ctx, req, count, c.Timeout)
	replies := make([]comm.Response, len(frames))
	for n, frame := range frames {
		if frame == "" {
			continue
		}
		resp, decodeErr := comm.DecodeResponse(frame)
		if decodeErr != nil {
			glog.Warningf("watch slot %d: %v", n, decodeErr)
			continue
		}
		replies[n] = resp
	}
	return replies, err
}
