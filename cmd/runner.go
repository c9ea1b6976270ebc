package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/events"
	"github.com/desertthunder/spool/internal/extract"
	"github.com/desertthunder/spool/internal/media"
	"github.com/desertthunder/spool/internal/persist"
	"github.com/desertthunder/spool/internal/queue"
	"github.com/desertthunder/spool/internal/session"
	"github.com/desertthunder/spool/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	registry   *session.Registry
	dispatcher *extract.Dispatcher
	bus        *events.Bus
	httpClient *http.Client
	logger     *log.Logger
	loggers    []*log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Extractor  extract.Extractor
	Prober     media.Prober
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.NewYTDLP(extract.YTDLPConfig{
			CacheDir:      opts.Config.Cache.Dir,
			Format:        opts.Config.Extractor.Format,
			DefaultSearch: opts.Config.Extractor.DefaultSearch,
		}, opts.Logger)
	}
	if opts.Prober == nil {
		opts.Prober = media.NewFFmpeg(nil, opts.Logger)
	}

	extractLogger := shared.WithLogger(opts.Logger, "scope", "extract")
	persistLogger := shared.WithLogger(opts.Logger, "scope", "persist")
	sessionLogger := shared.WithLogger(opts.Logger, "scope", "session")

	bus := events.NewBus(opts.Logger)
	dispatcher := extract.NewDispatcher(
		opts.Extractor,
		opts.Config.Extractor.Workers,
		opts.Config.Extractor.RatePerSecond,
		extractLogger,
	)

	store := persist.NewStore(opts.Config.Sessions.Dir, persistLogger)
	registry := session.NewRegistry(store, persist.Context{
		Client:     opts.HTTPClient,
		Config:     opts.Config,
		Dispatcher: dispatcher,
		Bus:        bus,
		Prober:     opts.Prober,
		Logger:     opts.Logger,
	}, sessionLogger)

	return &Runner{
		config:     opts.Config,
		registry:   registry,
		dispatcher: dispatcher,
		bus:        bus,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		loggers:    []*log.Logger{opts.Logger, extractLogger, persistLogger, sessionLogger},
		output:     opts.Output,
	}
}

// app builds the root command: global flags plus every registered
// subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "spool",
		Usage:   "Queue, download, and ready media for playback",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				for _, l := range r.loggers {
					shared.SetLogLevel(l, log.DebugLevel)
				}
			}
			return ctx, nil
		},
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		addCommand, streamCommand, importCommand, queueCommand, nextCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// session resolves the session named by the command's --session flag.
func (r *Runner) session(cmd *cli.Command) (*session.Session, error) {
	id := cmd.String("session")
	if id == "" {
		id = "default"
	}

	s, err := r.registry.Open(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return s, nil
}

// meta builds entry metadata from the command's identity flags.
func (r *Runner) meta(cmd *cli.Command) queue.Meta {
	return queue.Meta{
		AuthorID:  int64(cmd.Int("author")),
		ChannelID: int64(cmd.Int("channel")),
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
