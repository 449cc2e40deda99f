package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/jig.go/pkg/jig/env"
	"github.com/robotalks/jig.go/pkg/jig/fixture"
	"github.com/robotalks/jig.go/pkg/jig/monitor"
)

var (
	measure  = strings.Join([]string{fixture.Supply5V, fixture.Supply3V3, fixture.Supply3V3Input}, ",")
	interval = monitor.DefaultInterval
)

func init() {
	env.SetupFlags()
	flag.StringVar(&measure, "measure", measure, "Comma separated names of values to measure.")
	flag.DurationVar(&interval, "interval", interval, "Sampling interval.")
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	q := conf.MustNewQueue()
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	mon := &monitor.Monitor{
		Measurer:  conf.NewClient(),
		Publisher: q,
		Station:   conf.Station,
		Names:     strings.Split(measure, ","),
		Interval:  interval,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		os.Exit(1)
	}()

	glog.Infof("monitoring %s on %s every %v", measure, conf.Port, interval)
	start := time.Now()
	if err := mon.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
	glog.Infof("stopped after %v", time.Since(start).Round(time.Second))
}
