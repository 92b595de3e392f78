package main

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/reglet-dev/fress-sdk/application/schema"
	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
	"github.com/reglet-dev/fress-sdk/host"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitFressError = 3 // the guest answered with a FressError value
)

const usage = `usage:
  fresshost call [-config file] <module.wasm> <export>
  fresshost echo [-config file] <module.wasm> <json>
  fresshost schema
`

type cli struct {
	stdout io.Writer
	stderr io.Writer
	pretty bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, pretty bool) int {
	c := &cli{stdout: stdout, stderr: stderr, pretty: pretty}
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	switch args[0] {
	case "call":
		return c.call(ctx, args[1:])
	case "echo":
		return c.echo(ctx, args[1:])
	case "schema":
		return c.schema()
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return exitUsage
	}
}

// moduleFlags parses the flags shared by call and echo and returns the
// config plus the two positional arguments.
func (c *cli) moduleFlags(name string, args []string) (host.Config, []string, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	configPath := fs.String("config", "", "host configuration file (TOML)")
	if err := fs.Parse(args); err != nil {
		return host.Config{}, nil, false
	}
	if fs.NArg() != 2 {
		fmt.Fprint(c.stderr, usage)
		return host.Config{}, nil, false
	}

	cfg := host.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = host.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(c.stderr, err)
			return host.Config{}, nil, false
		}
	}
	return cfg, fs.Args(), true
}

func (c *cli) call(ctx context.Context, args []string) int {
	cfg, pos, ok := c.moduleFlags("call", args)
	if !ok {
		return exitUsage
	}
	return c.withInstance(ctx, cfg, pos[0], func(inst *host.Instance) (value.Value, error) {
		return inst.Produce(ctx, pos[1])
	})
}

func (c *cli) echo(ctx context.Context, args []string) int {
	cfg, pos, ok := c.moduleFlags("echo", args)
	if !ok {
		return exitUsage
	}
	input, err := parseJSONValue(pos[1])
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitUsage
	}
	return c.withInstance(ctx, cfg, pos[0], func(inst *host.Instance) (value.Value, error) {
		return inst.Echo(ctx, input)
	})
}

func (c *cli) schema() int {
	out, err := schema.HostConfigSchema()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	fmt.Fprintln(c.stdout, string(out))
	return exitOK
}

// withInstance builds an executor from cfg, loads path, runs fn and prints
// its result.
func (c *cli) withInstance(ctx context.Context, cfg host.Config, path string, fn func(*host.Instance) (value.Value, error)) int {
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	defer func() { _ = logger.Sync() }()

	exec, err := host.NewExecutor(ctx, host.WithConfig(cfg), host.WithLogger(logger))
	if err != nil {
		logger.Error("fresshost: executor", zap.Error(err))
		return exitFailure
	}
	defer exec.Close(ctx)

	inst, err := exec.LoadFile(ctx, path)
	if err != nil {
		logger.Error("fresshost: load", zap.String("path", path), zap.Error(err))
		return exitFailure
	}
	defer inst.Close(ctx)

	v, err := fn(inst)
	if err != nil {
		c.printError(err)
		return exitFailure
	}

	if fe, ok := errors.FromValue(v); ok {
		if err := c.writeJSON(map[string]any{"fress_error": fe.ToErrorDetail()}); err != nil {
			fmt.Fprintln(c.stderr, err)
		}
		return exitFressError
	}
	if err := c.writeJSON(renderValue(v)); err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	return exitOK
}

func (c *cli) printError(err error) {
	fmt.Fprintln(c.stderr, "error:", err)
	var abort *host.AbortError
	if stdErrors.As(err, &abort) && abort.Stderr != "" {
		fmt.Fprintln(c.stderr, "guest stderr:")
		fmt.Fprintln(c.stderr, strings.TrimRight(abort.Stderr, "\n"))
	}
}

func (c *cli) writeJSON(v any) error {
	var (
		out []byte
		err error
	)
	if c.pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	_, err = fmt.Fprintln(c.stdout, string(out))
	return err
}
