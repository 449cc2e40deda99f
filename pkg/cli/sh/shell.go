package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/jig.go/pkg/jig/comm"
	"github.com/robotalks/jig.go/pkg/jig/env"
	"github.com/robotalks/jig.go/pkg/jig/fixture"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Client *fixture.Client
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PingCmd,
		&PowerCmd,
		&TestCmd,
		&GetCmd,
		&SendCmd,
		&RawCmd,
		&BatchCmd,
		&ConfigCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Client: conf.NewClient(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", conf.Port))
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Print prints a value, in JSON if requested.
func (s *Shell) Print(c *ishell.Context, v interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	switch val := v.(type) {
	case string:
		c.Println(val)
	case comm.Result:
		c.Println(val.String())
	default:
		c.Println(fmt.Sprint(v))
	}
}

// RunStatus runs a command expecting ok.
func (s *Shell) RunStatus(c *ishell.Context, cmd string) {
	if err := s.Client.Run(context.Background(), cmd); err != nil {
		c.Err(err)
		return
	}
	s.Print(c, fixture.StatusOK)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseSendArgs parses [-k KEY] JSON... with JSON possibly split into
// several arguments by the shell.
func ParseSendArgs(args []string, defaultKey string) (comm.Request, string, error) {
	key := defaultKey
	if len(args) >= 2 && args[0] == "-k" {
		key, args = args[1], args[2:]
	}
	req, err := parseRequestArgs(args)
	return req, key, err
}

// ParseBatchArgs parses [COUNT] JSON...
// defaultCount is used when COUNT is omitted.
func ParseBatchArgs(args []string, defaultCount int) (comm.Request, int, error) {
	if len(args) == 0 {
		return nil, 0, fmt.Errorf("usage: batch [COUNT] JSON")
	}
	count := defaultCount
	if !strings.HasPrefix(args[0], "{") {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, 0, fmt.Errorf("invalid count %q", args[0])
		}
		count, args = n, args[1:]
	}
	if count <= 0 {
		return nil, 0, fmt.Errorf("invalid count %d", count)
	}
	req, err := parseRequestArgs(args)
	return req, count, err
}

func parseRequestArgs(args []string) (comm.Request, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("JSON request expected")
	}
	return comm.ParseRequest(strings.Join(args, " "))
}

func resultJSON(res comm.Result) map[string]interface{} {
	if res.Err != nil {
		return map[string]interface{}{"error": res.Err.Error()}
	}
	return map[string]interface{}{"value": res.Value}
}

var (
	// PingCmd checks the jig is alive.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).RunStatus(c, fixture.CmdPing)
		},
	}

	// PowerCmd switches power of the device under test.
	PowerCmd = ishell.Cmd{
		Name: "power",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: power on|off"))
				return
			}
			switch c.Args[0] {
			case "on":
				s.RunStatus(c, fixture.CmdPowerOn)
			case "off":
				s.RunStatus(c, fixture.CmdPowerOff)
			default:
				c.Err(fmt.Errorf("unknown power state %q", c.Args[0]))
			}
		},
	}

	// TestCmd runs a self test of the device under test.
	TestCmd = ishell.Cmd{
		Name: "test",
		Help: "encoder|light",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: test encoder|light"))
				return
			}
			switch c.Args[0] {
			case "encoder":
				s.RunStatus(c, fixture.CmdTestEncoder)
			case "light":
				s.RunStatus(c, fixture.CmdTestLightSensor)
			default:
				c.Err(fmt.Errorf("unknown test %q", c.Args[0]))
			}
		},
	}

	// GetCmd reads measurements.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "NAME...",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("usage: get NAME..."))
				return
			}
			results := s.Client.MeasureAll(context.Background(), c.Args...)
			if s.OutputJSON {
				out := make(map[string]interface{}, len(results))
				for name, res := range results {
					out[name] = resultJSON(res)
				}
				s.Print(c, out)
				return
			}
			for _, name := range c.Args {
				res := results[name]
				if res.Err != nil {
					c.Printf("%s: %v\n", name, res.Err)
				} else {
					c.Printf("%s: %s\n", name, res.String())
				}
			}
		},
	}

	// SendCmd sends a request and prints the value of the key.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "[-k KEY] JSON",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			req, key, err := ParseSendArgs(c.Args, s.Client.Key)
			if err != nil {
				c.Err(err)
				return
			}
			res := s.Client.Session.Execute(context.Background(), req, key, s.Client.Timeout)
			if res.Err != nil {
				c.Err(res.Err)
				return
			}
			if s.OutputJSON {
				s.Print(c, resultJSON(res))
				return
			}
			s.Print(c, res)
		},
	}

	// RawCmd sends a request and prints the whole reply.
	RawCmd = ishell.Cmd{
		Name:    "raw",
		Aliases: []string{"r"},
		Help:    "JSON",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			req, err := parseRequestArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			frame, err := s.Client.Session.ExecuteRaw(context.Background(), req, s.Client.Timeout)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(frame)
		},
	}

	// BatchCmd sends a request once and prints COUNT replies,
	// the configured count when omitted.
	BatchCmd = ishell.Cmd{
		Name:    "batch",
		Aliases: []string{"b"},
		Help:    "[COUNT] JSON",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			req, count, err := ParseBatchArgs(c.Args, s.Config.Count)
			if err != nil {
				c.Err(err)
				return
			}
			frames, err := s.Client.Session.Batch(context.Background(), req, count, s.Client.Timeout)
			if s.OutputJSON {
				s.Print(c, frames)
			} else {
				for n, frame := range frames {
					c.Printf("[%d] %s\n", n, frame)
				}
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	// ConfigCmd prints current configuration.
	ConfigCmd = ishell.Cmd{
		Name: "config",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			conf := s.Config
			if s.OutputJSON {
				s.Print(c, conf)
				return
			}
			c.Printf("port:         %s\n", conf.Port)
			c.Printf("baud:         %d\n", conf.BaudRate)
			c.Printf("read timeout: %v\n", conf.ReadTimeout)
			c.Printf("timeout:      %v\n", conf.Timeout)
			c.Printf("poll:         %v\n", conf.PollInterval)
			c.Printf("count:        %d\n", conf.Count)
			c.Printf("key:          %s\n", conf.Key)
			if conf.IsBridge() {
				c.Printf("origin:       %s\n", conf.Origin)
			}
			c.Printf("station:      %s\n", conf.Station)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
