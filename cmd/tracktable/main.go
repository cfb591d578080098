package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/atwilso/tracktable/internal/config"
	"github.com/atwilso/tracktable/internal/logger"
	"github.com/atwilso/tracktable/internal/shutdown"
	"github.com/atwilso/tracktable/pkg/domain"
	"github.com/atwilso/tracktable/pkg/models"
)

// Version is set at build time
var Version = "dev"

const usage = `usage: tracktable <command> [flags] FILE...

commands:
  stats         summarize point files
  convert       rewrite a point file as delimited text or parquet
  assemble      build trajectories from point files
  trajectories  summarize a trajectory file or archive
  generate      write synthetic terrestrial points

Run 'tracktable <command> -h' for the flags of a command.
`

func main() {
	code, err := run(context.Background(), os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

// command is one subcommand. fs already holds the global flags.
type command func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error

var commands = map[string]command{
	"stats":        runStats,
	"convert":      runConvert,
	"assemble":     runAssemble,
	"trajectories": runTrajectories,
	"generate":     runGenerate,
}

// app carries what every subcommand needs.
type app struct {
	cfg      *config.Config
	domain   string
	newPoint func() models.Point
	stdout   io.Writer
	shutdown *shutdown.Coordinator
	logger   zerolog.Logger

	flags     globalFlags
	domainSet bool
}

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	domain     string
	logLevel   string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "path to a TOML config file")
	fs.StringVar(&g.domain, "domain", models.DomainTerrestrial, "point domain: terrestrial, cartesian2d or cartesian3d")
	fs.StringVar(&g.logLevel, "log-level", "", "log level (overrides config)")
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer) (int, error) {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return 0, nil
	}
	if args[0] == "version" {
		fmt.Fprintln(stdout, Version)
		return 0, nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return 2, fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	a := &app{stdout: stdout}
	a.flags.register(fs)

	// Subcommand flags are registered by the command itself; parsing
	// happens there so that -h lists them.
	err := cmd(ctx, a, fs, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0, nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

// setup parses fs and prepares config, logging, the point factory and the
// shutdown coordinator. Commands call it after registering their flags.
func (a *app) setup(ctx context.Context, fs *flag.FlagSet, args []string) (context.Context, context.CancelFunc, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	a.logger = logger.Get("cli")

	a.domain = strings.ToLower(a.flags.domain)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "domain" {
			a.domainSet = true
		}
	})
	a.newPoint, err = domain.Factory(a.domain)
	if err != nil {
		return nil, nil, err
	}

	a.shutdown = shutdown.New(30*time.Second, logger.Get("shutdown"))
	runCtx, stop := a.shutdown.Context(ctx)

	a.logger.Debug().
		Str("version", Version).
		Str("command", fs.Name()).
		Str("domain", a.domain).
		Int("workers", cfg.CLI.Workers).
		Msg("Starting tracktable")
	return runCtx, stop, nil
}

// finish closes outputs in order and reports a summary of logged
// warnings. It keeps the command's error when there is one.
func (a *app) finish(ctx context.Context, err error) error {
	if cerr := a.shutdown.Shutdown(); err == nil {
		err = cerr
	}
	if sig := a.shutdown.Signal(); sig != nil && err == nil {
		err = fmt.Errorf("interrupted by %s", sig)
	} else if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	buf := logger.GetBuffer()
	if n := buf.Count(zerolog.WarnLevel); n > 0 {
		ev := a.logger.Info().Int64("warnings", n)
		if recent := buf.Recent(1); len(recent) > 0 {
			ev = ev.Str("last_warning", recent[0].Message)
		}
		ev.Msg("Finished with warnings")
	}
	return err
}

// printf writes command output.
func (a *app) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(a.stdout, format, args...); err != nil {
		log.Debug().Err(err).Msg("Failed to write output")
	}
}
