package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/jig.go/pkg/jig/comm"
)

// jigSim answers requests like the jig firmware does.
type jigSim struct {
	status  string
	values  map[string]int
	events  []string
	lock    sync.Mutex
	pending [][]byte
	open    bool
	reqs    []map[string]interface{}
}

func newJigSim() *jigSim {
	return &jigSim{
		status: "Ok",
		values: map[string]int{Supply5V: 4980, Supply3V3: 3301},
	}
}

func (j *jigSim) Open() error {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.open = true
	return nil
}

func (j *jigSim) Close() error {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.open = false
	j.pending = nil
	return nil
}

func (j *jigSim) Write(p []byte) (int, error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	var req map[string]interface{}
	if err := json.Unmarshal(p, &req); err != nil {
		return 0, err
	}
	j.reqs = append(j.reqs, req)
	reply := map[string]interface{}{}
	switch req["Cmd"] {
	case CmdGet:
		for _, param := range req["Params"].([]interface{}) {
			if val, ok := j.values[param.(string)]; ok {
				reply[param.(string)] = val
			}
		}
		if len(reply) == 0 {
			reply["Result"] = "Error"
		}
	case "Watch":
		for _, evt := range j.events {
			j.pending = append(j.pending, []byte(evt+"\r\n"))
		}
		return len(p), nil
	default:
		reply["Result"] = j.status
	}
	b, _ := json.Marshal(reply)
	j.pending = append(j.pending, append(b, '\r', '\n'))
	return len(p), nil
}

func (j *jigSim) ReadAvailable() ([]byte, error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	if !j.open {
		return nil, comm.ErrClosed
	}
	if len(j.pending) == 0 {
		return nil, nil
	}
	chunk := j.pending[0]
	j.pending = j.pending[1:]
	return chunk, nil
}

func newTestClient(jig *jigSim) *Client {
	s := comm.NewSession(jig)
	s.PollInterval = 5 * time.Millisecond
	c := NewClient(s)
	c.Timeout = 100 * time.Millisecond
	return c
}

func TestCommand(t *testing.T) {
	require.Equal(t, comm.Request{"Cmd": "Ping"}, Command(CmdPing))
	require.Equal(t, comm.Request{"Cmd": "Get", "Params": []string{"5vV"}}, Command(CmdGet, Supply5V))
}

func TestStatusCommands(t *testing.T) {
	ctx := context.Background()
	jig := newJigSim()
	c := newTestClient(jig)
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.PowerOn(ctx))
	require.NoError(t, c.TestEncoder(ctx))
	require.NoError(t, c.TestLightSensor(ctx))
	require.NoError(t, c.PowerOff(ctx))

	var cmds []interface{}
	for _, req := range jig.reqs {
		cmds = append(cmds, req["Cmd"])
	}
	require.Equal(t, []interface{}{"Ping", "PwrOn", "TestEncoder", "TestLightSns", "PwrOff"}, cmds)

	jig.status = "Fail"
	err := c.Ping(ctx)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, &StatusError{Cmd: CmdPing, Status: "Fail"}, statusErr)
	require.EqualError(t, err, `Ping: status "Fail"`)
}

func TestMeasure(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(newJigSim())

	res := c.Measure(ctx, Supply5V)
	require.NoError(t, res.Err)
	mv, err := res.Int64()
	require.NoError(t, err)
	require.Equal(t, int64(4980), mv)

	results := c.MeasureAll(ctx, Supply5V, Supply3V3, Supply3V3Input)
	require.Len(t, results, 3)
	require.Equal(t, "4980", results[Supply5V].String())
	require.Equal(t, "3301", results[Supply3V3].String())
	require.True(t, errors.Is(results[Supply3V3Input].Err, comm.ErrKeyMiss))
}

func TestWatch(t *testing.T) {
	jig := newJigSim()
	jig.events = []string{
		`{"Buttons":"Changed","LedSense":1,"MicEn":0}`,
		`{"Buttons":"Changed","LedSense":0,"MicEn":1}`,
	}
	c := newTestClient(jig)
	replies, err := c.Watch(context.Background(), comm.Request{"Cmd": "Watch"}, 3)
	require.True(t, errors.Is(err, comm.ErrNoFrame))
	require.Len(t, replies, 3)
	require.Nil(t, replies[2])
	val, ok := replies[0].Lookup("ledsense")
	require.True(t, ok)
	require.Equal(t, json.Number("1"), val)
	val, ok = replies[1].Lookup("MicEn")
	require.True(t, ok)
	require.Equal(t, json.Number("1"), val)
}
