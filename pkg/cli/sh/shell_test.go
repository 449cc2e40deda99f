package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/jig.go/pkg/jig/comm"
	"github.com/robotalks/jig.go/pkg/jig/env"
)

func TestParseSendArgs(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		req    comm.Request
		key    string
		hasErr bool
	}{
		{"single arg", []string{`{"Cmd":"Ping"}`}, comm.Request{"Cmd": "Ping"}, "result", false},
		{"split by shell", []string{`{"Cmd":`, `"Get",`, `"Params":`, `["5vV"]}`},
			comm.Request{"Cmd": "Get", "Params": []interface{}{"5vV"}}, "result", false},
		{"with key", []string{"-k", "5vV", `{"Cmd":"Get","Params":["5vV"]}`},
			comm.Request{"Cmd": "Get", "Params": []interface{}{"5vV"}}, "5vV", false},
		{"no json", nil, nil, "", true},
		{"key only", []string{"-k", "x"}, nil, "", true},
		{"bad json", []string{`{"Cmd"`}, nil, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, key, err := ParseSendArgs(tc.args, "result")
			if tc.hasErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.req, req)
			require.Equal(t, tc.key, key)
		})
	}
}

func TestParseBatchArgs(t *testing.T) {
	req, count, err := ParseBatchArgs([]string{"3", `{"Cmd":"Watch"}`}, 4)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Equal(t, comm.Request{"Cmd": "Watch"}, req)

	req, count, err = ParseBatchArgs([]string{`{"Cmd":"Watch"}`}, 4)
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.Equal(t, comm.Request{"Cmd": "Watch"}, req)

	req, count, err = ParseBatchArgs([]string{`{"Cmd":`, `"Watch"}`}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, comm.Request{"Cmd": "Watch"}, req)

	for _, args := range [][]string{
		nil,
		{"3"},
		{"x", `{}`},
		{"0", `{}`},
		{"2", `[]`},
	} {
		_, _, err := ParseBatchArgs(args, 1)
		require.Error(t, err, "%v", args)
	}

	_, _, err = ParseBatchArgs([]string{`{"Cmd":"Watch"}`}, 0)
	require.Error(t, err)
}

func TestBatchCountFromConfig(t *testing.T) {
	conf := env.NewConfig()
	conf.Count = 4
	_, count, err := ParseBatchArgs([]string{`{"Cmd":"Watch"}`}, conf.Count)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestResultJSON(t *testing.T) {
	require.Equal(t, map[string]interface{}{"value": "ok"}, resultJSON(comm.Result{Value: "ok"}))
	require.Equal(t, map[string]interface{}{"error": "no json found"}, resultJSON(comm.Result{Err: comm.ErrNoFrame}))
}
