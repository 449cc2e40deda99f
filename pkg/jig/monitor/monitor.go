// Package monitor samples jig measurements periodically and publishes them.
package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/jig.go/pkg/jig/comm"
)

// DefaultInterval is the default sampling interval.
const DefaultInterval = 5 * time.Second

// Measurer reads named values from a jig.
type Measurer interface {
	MeasureAll(ctx context.Context, names ...string) map[string]comm.Result
}

// Publisher delivers encoded reports.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Report is one round of measurements.
type Report struct {
	Station string                 `json:"station"`
	Time    time.Time              `json:"time"`
	Values  map[string]interface{} `json:"values"`
	Errors  map[string]string      `json:"errors,omitempty"`
}

// Monitor publishes a Report every Interval.
type Monitor struct {
	Measurer  Measurer
	Publisher Publisher
	Station   string
	Names     []string
	Interval  time.Duration
}

// Topic is where reports of the station are published.
func (m *Monitor) Topic() string {
	return m.Station + "/report"
}

// Sample measures all names once.
func (m *Monitor) Sample(ctx context.Context) *Report {
	r := &Report{
		Station: m.Station,
		Time:    time.Now(),
		Values:  make(map[string]interface{}),
	}
	for name, res := range m.Measurer.MeasureAll(ctx, m.Names...) {
		if res.Err != nil {
			if r.Errors == nil {
				r.Errors = make(map[string]string)
			}
			r.Errors[name] = res.Err.Error()
			continue
		}
		r.Values[name] = res.Value
	}
	return r
}

// Publish encodes and publishes a report.
func (m *Monitor) Publish(r *Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return m.Publisher.Publish(m.Topic(), payload)
}

// Run implements Runnable. It samples immediately and then on every tick
// until ctx is done. Publish failures are logged and don't stop it.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.runOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) runOnce(ctx context.Context) {
	r := m.Sample(ctx)
	if ctx.Err() != nil {
		return
	}
	if len(r.Errors) > 0 {
		glog.Warningf("%d of %d measurements failed", len(r.Errors), len(m.Names))
	}
	if err := m.Publish(r); err != nil {
		glog.Errorf("publish report error: %v", err)
		return
	}
	glog.V(2).Infof("report published: %d values", len(r.Values))
}
