package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/lampclient"
	"github.com/taoyao-code/signal-lamp/internal/logging"
	"github.com/taoyao-code/signal-lamp/internal/protocol/qlight"
)

// 退出码
const (
	ExitOK         = 0 // 成功
	ExitTransport  = 1 // 传输或解码错误
	ExitUsage      = 2 // 用法或参数错误
	ExitUnverified = 3 // 收到应答但无效或未确认
)

const usage = `Usage: lampctl [flags] <address> <port> [read|on|off|blink|set <state>]

Commands:
  read            read all lamp states (default)
  on|off|blink    set the red lamp
  set <state>     set the red lamp to off, on or blink

Flags:
`

type options struct {
	timeout  time.Duration
	output   string
	config   string
	logLevel string
}

// Run 执行 lampctl，返回进程退出码
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("lampctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&opts.timeout, "timeout", lampclient.DefaultTimeout, "exchange timeout")
	fs.StringVarP(&opts.output, "output", "o", "text", "output format: text|json|yaml")
	fs.StringVar(&opts.config, "config", "", "optional config file (yaml/toml/json)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	inv, err := parseInvocation(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "lampctl: %v\n", err)
		fs.Usage()
		return ExitUsage
	}
	switch opts.output {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(stderr, "lampctl: unknown output format %q\n", opts.output)
		return ExitUsage
	}

	cfg, err := cfgpkg.LoadWithFlags(opts.config, cfgpkg.AliasFlags(fs, map[string]string{"timeout": "lamp.timeout"}))
	if err != nil {
		fmt.Fprintf(stderr, "lampctl: %v\n", err)
		return ExitUsage
	}

	// 命令行日志只写 stderr，级别取 --log-level
	logger, err := logging.New(cfgpkg.LoggingConfig{Level: opts.logLevel, Format: "console"}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "lampctl: %v\n", err)
		return ExitUsage
	}
	defer func() { _ = logger.Sync() }()

	client := lampclient.New(inv.address, inv.port,
		lampclient.WithTimeout(cfg.Lamp.Timeout),
		lampclient.WithLogger(logger),
	)

	if inv.read {
		resp, err := client.ReadLamp(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "lampctl: %v\n", err)
			return exitCode(err)
		}
		if err := render(stdout, opts.output, resp.String(), resp.Snapshot()); err != nil {
			fmt.Fprintf(stderr, "lampctl: %v\n", err)
			return ExitTransport
		}
		if err := resp.Err(); err != nil {
			logger.Debug("reply failed validation", zap.Error(err))
			return ExitUnverified
		}
		return ExitOK
	}

	verified, resp, err := client.SetLamp(ctx, inv.state)
	if err != nil {
		fmt.Fprintf(stderr, "lampctl: %v\n", err)
		return exitCode(err)
	}
	text := resp.String() + "\n" + verifiedLine(verified, inv.state)
	if err := render(stdout, opts.output, text, qlight.WriteResult{Verified: verified, Snapshot: resp.Snapshot()}); err != nil {
		fmt.Fprintf(stderr, "lampctl: %v\n", err)
		return ExitTransport
	}
	if !verified {
		return ExitUnverified
	}
	return ExitOK
}

type invocation struct {
	address string
	port    int
	read    bool
	state   qlight.LampState
}

func parseInvocation(args []string) (invocation, error) {
	var inv invocation
	if len(args) < 2 {
		return inv, errors.New("address and port are required")
	}
	inv.address = args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil || port < 1 || port > 65535 {
		return inv, fmt.Errorf("invalid port %q", args[1])
	}
	inv.port = port

	rest := args[2:]
	if len(rest) == 0 {
		inv.read = true
		return inv, nil
	}
	cmd := strings.ToLower(rest[0])
	switch cmd {
	case "read":
		if len(rest) != 1 {
			return inv, errors.New("read takes no arguments")
		}
		inv.read = true
	case "on", "off", "blink":
		if len(rest) != 1 {
			return inv, fmt.Errorf("%s takes no arguments", cmd)
		}
		inv.state, _ = qlight.ParseLampState(cmd)
	case "set":
		if len(rest) != 2 {
			return inv, errors.New("set requires exactly one state: off, on or blink")
		}
		st, err := qlight.ParseLampState(rest[1])
		if err != nil {
			return inv, err
		}
		inv.state = st
	default:
		return inv, fmt.Errorf("unknown command %q", rest[0])
	}
	return inv, nil
}

func verifiedLine(verified bool, requested qlight.LampState) string {
	if verified {
		return fmt.Sprintf("Write verified: red lamp %s", requested)
	}
	return fmt.Sprintf("Write NOT verified: red lamp %s was requested", requested)
}

func render(w io.Writer, format, text string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, text)
		return err
	}
}

func exitCode(err error) int {
	if errors.Is(err, qlight.ErrInvalidArgument) {
		return ExitUsage
	}
	return ExitTransport
}
