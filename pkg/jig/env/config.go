package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"

	"github.com/robotalks/jig.go/pkg/jig/comm"
	"github.com/robotalks/jig.go/pkg/jig/fixture"
	"github.com/robotalks/jig.go/pkg/jig/mqtt"
	"github.com/robotalks/jig.go/pkg/jig/serial"
	"github.com/robotalks/jig.go/pkg/jig/websocket"
)

// Config provides common options to talk to a jig.
type Config struct {
	// Port is a serial device path, or a ws:// or wss:// URL of a
	// serial bridge.
	Port        string        `toml:"port"`
	BaudRate    int           `toml:"baud"`
	ReadTimeout time.Duration `toml:"read_timeout"`
	// Timeout bounds the wait for each reply.
	Timeout      time.Duration `toml:"timeout"`
	PollInterval time.Duration `toml:"poll_interval"`
	// Count is the number of replies collected in batch mode.
	Count int `toml:"count"`
	// Key is the reply key holding the result.
	Key string `toml:"key"`
	// Origin is sent when dialing a serial bridge.
	Origin string `toml:"origin"`

	// MQTTURL specifies where reports are published.
	// e.g. mqtt://host:port/topic-prefix
	MQTTURL string `toml:"mqtt_url"`
	Station string `toml:"station"`
}

var defaultConfig = Config{
	Port:         "/dev/ttyS0",
	BaudRate:     serial.DefaultBaudRate,
	ReadTimeout:  comm.DefaultReadTimeout,
	Timeout:      comm.DefaultTimeout,
	PollInterval: comm.DefaultPollInterval,
	Count:        1,
	Key:          comm.DefaultKey,
	MQTTURL:      "mqtt://localhost:1883/jig/",
}

func init() {
	if path := os.Getenv("JIG_CONFIG"); path != "" {
		if err := defaultConfig.LoadFile(path); err != nil {
			glog.Warningf("ignore JIG_CONFIG: %v", err)
		}
	}
	if err := defaultConfig.applyEnv(os.LookupEnv); err != nil {
		glog.Warningf("invalid environment: %v", err)
	}
	if defaultConfig.Station == "" {
		defaultConfig.Station = MachineID()
	}
}

// SetupFlags sets up command line flags.
// -config loads the file at the point it appears, so flags after it
// override values from the file.
func SetupFlags() {
	flag.Func("config", "Load options from a TOML file.", defaultConfig.LoadFile)
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, or ws:// URL of a serial bridge.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Timeout of a single read.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Time to wait for a reply.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Interval between reads while waiting.")
	flag.IntVar(&defaultConfig.Count, "count", defaultConfig.Count, "Number of replies in batch mode.")
	flag.StringVar(&defaultConfig.Key, "key", defaultConfig.Key, "Reply key holding the result.")
	flag.StringVar(&defaultConfig.Origin, "origin", defaultConfig.Origin, "Origin used when dialing a serial bridge.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL for reports.")
	flag.StringVar(&defaultConfig.Station, "station", defaultConfig.Station, "Station ID used in report topics.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides options with the ones defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if val, ok := lookup("JIG_PORT"); ok && val != "" {
		c.Port = val
	}
	if val, ok := lookup("JIG_KEY"); ok && val != "" {
		c.Key = val
	}
	if val, ok := lookup("JIG_ORIGIN"); ok && val != "" {
		c.Origin = val
	}
	if val, ok := lookup("JIG_MQTT_URL"); ok && val != "" {
		c.MQTTURL = val
	}
	if val, ok := lookup("JIG_STATION"); ok && val != "" {
		c.Station = val
	}
	for name, ptr := range map[string]*int{
		"JIG_BAUD":  &c.BaudRate,
		"JIG_COUNT": &c.Count,
	} {
		if val, ok := lookup(name); ok && val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*ptr = n
		}
	}
	for name, ptr := range map[string]*time.Duration{
		"JIG_READ_TIMEOUT": &c.ReadTimeout,
		"JIG_TIMEOUT":      &c.Timeout,
		"JIG_POLL":         &c.PollInterval,
	} {
		if val, ok := lookup(name); ok && val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*ptr = d
		}
	}
	return nil
}

// IsBridge tells if Port refers to a websocket serial bridge.
func (c *Config) IsBridge() bool {
	return strings.HasPrefix(c.Port, "ws://") || strings.HasPrefix(c.Port, "wss://")
}

// NewTransport creates the Transport selected by Port.
func (c *Config) NewTransport() comm.Transport {
	if c.IsBridge() {
		return websocket.NewTransport(websocket.Config{
			URL:         c.Port,
			Origin:      c.Origin,
			ReadTimeout: c.ReadTimeout,
		})
	}
	return serial.NewTransport(serial.Config{
		Port:        c.Port,
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeout,
	})
}

// NewSession creates a Session on a new Transport.
func (c *Config) NewSession() *comm.Session {
	s := comm.NewSession(c.NewTransport())
	if c.PollInterval > 0 {
		s.PollInterval = c.PollInterval
	}
	return s
}

// NewClient creates a fixture client using current config.
func (c *Config) NewClient() *fixture.Client {
	cl := fixture.NewClient(c.NewSession())
	if c.Timeout > 0 {
		cl.Timeout = c.Timeout
	}
	if c.Key != "" {
		cl.Key = c.Key
	}
	return cl
}

// NewQueue creates the MQTT queue for publishing reports.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	if c.MQTTURL == "" {
		return nil, fmt.Errorf("MQTT broker URL is required")
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %v", err)
	}
	return q, nil
}

// MustNewQueue creates the MQTT queue and fails on error.
func (c *Config) MustNewQueue() *mqtt.Queue {
	q, err := c.NewQueue()
	if err != nil {
		log.Fatalln(err)
	}
	return q
}
