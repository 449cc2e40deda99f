package comm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response is a decoded reply with all keys folded to lower case.
type Response map[string]interface{}

// DecodeResponse parses a frame.
// Numbers are kept as json.Number so values are reported exactly as sent.
func DecodeResponse(frame string) (Response, error) {
	dec := json.NewDecoder(strings.NewReader(frame))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return Response(foldKeys(m).(map[string]interface{})), nil
}

// Lookup finds the value of key, ignoring case.
func (r Response) Lookup(key string) (interface{}, bool) {
	val, ok := r[strings.ToLower(key)]
	return val, ok
}

// Result finds the value of key and wraps it as a Result.
func (r Response) Result(key string) Result {
	if val, ok := r.Lookup(key); ok {
		return Result{Value: val}
	}
	return Result{Err: &KeyMissError{Key: key}}
}

func foldKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[strings.ToLower(k)] = foldKeys(item)
		}
		return m
	case []interface{}:
		for n, item := range val {
			val[n] = foldKeys(item)
		}
		return val
	default:
		return v
	}
}

// Result is the outcome of a transaction.
// Either Err is nil and Value holds the value found in the reply
// (possibly nil for JSON null), or Err tells what went wrong.
type Result struct {
	Value interface{}
	Err   error
}

// OK indicates a value was found.
func (r Result) OK() bool {
	return r.Err == nil
}

// String returns the value as a string.
// Strings are returned as-is, other values in JSON form, and an empty
// string if there's no value.
func (r Result) String() string {
	if r.Err != nil {
		return ""
	}
	switch val := r.Value.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Value); err != nil {
		return fmt.Sprint(r.Value)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Int64 returns the value as an integer.
func (r Result) Int64() (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	num, ok := r.Value.(json.Number)
	if !ok {
		return 0, fmt.Errorf("value %v is not a number", r.Value)
	}
	return num.Int64()
}

// Float64 returns the value as a floating point number.
func (r Result) Float64() (float64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	num, ok := r.Value.(json.Number)
	if !ok {
		return 0, fmt.Errorf("value %v is not a number", r.Value)
	}
	return num.Float64()
}
