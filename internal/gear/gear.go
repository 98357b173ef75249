package gear

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/flywheel-apps/afni-proc-gear/internal/config"
	"github.com/flywheel-apps/afni-proc-gear/internal/flywheel"
	"github.com/flywheel-apps/afni-proc-gear/internal/runner"
)

// Executor runs an external command to completion
type Executor func(ctx context.Context, cmd *runner.Command) error

// APIFactory opens the data API at baseURL
type APIFactory func(baseURL, apiKey string) flywheel.API

// Options control a single gear run
type Options struct {
	// Pipeline is config.PipelineAFNI or config.PipelineMEICA
	Pipeline string

	// DryRun stops after the command has been built and logged
	DryRun bool

	// APIURL overrides the API location derived from the api key
	APIURL string

	// Level, when set, is adjusted to the gear-log-level setting of the manifest
	Level *slog.LevelVar

	// Stdout and Stderr receive the output of the external tools
	Stdout io.Writer
	Stderr io.Writer
}

// Gear runs one of the processing pipelines inside the gear filesystem layout
type Gear struct {
	logger *slog.Logger
	paths  *config.Paths
	opts   Options

	newAPI APIFactory
	exec   Executor
}

// New creates a gear using the real data API and subprocess execution
func New(logger *slog.Logger, paths *config.Paths, opts Options) *Gear {
	return &Gear{
		logger: logger,
		paths:  paths,
		opts:   opts,
		newAPI: func(baseURL, apiKey string) flywheel.API {
			return flywheel.NewClient(baseURL, apiKey)
		},
		exec: func(ctx context.Context, cmd *runner.Command) error {
			return cmd.Run(ctx)
		},
	}
}

// WithAPI replaces the data API factory
func (g *Gear) WithAPI(f APIFactory) *Gear {
	g.newAPI = f
	return g
}

// WithExecutor replaces subprocess execution
func (g *Gear) WithExecutor(e Executor) *Gear {
	g.exec = e
	return g
}

// Run executes the selected pipeline and returns the process exit code
func (g *Gear) Run(ctx context.Context) int {
	switch g.opts.Pipeline {
	case config.PipelineAFNI, "":
		return g.runAFNI(ctx)
	case config.PipelineMEICA:
		return g.runMEICA(ctx)
	default:
		g.logger.Error("unknown pipeline", "pipeline", g.opts.Pipeline)
		return 1
	}
}

// setup holds what both pipelines read before processing starts
type setup struct {
	manifest *config.Manifest
	settings config.GearSettings
	env      []string
	api      flywheel.API
}

func (g *Gear) prepare() (*setup, error) {
	env := g.environ()

	manifest, err := config.LoadManifest(g.paths.ManifestFile)
	if err != nil {
		return nil, err
	}
	settings, err := manifest.Settings()
	if err != nil {
		return nil, err
	}
	if g.opts.Level != nil {
		g.opts.Level.Set(config.ParseLogLevel(settings.LogLevel))
	}
	g.logger.Debug("gear configuration", "config", manifest.Config)

	apiKey, err := manifest.APIKey()
	if err != nil {
		return nil, err
	}
	baseURL := g.opts.APIURL
	if baseURL == "" {
		if baseURL, err = flywheel.ParseAPIKey(apiKey); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(g.paths.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &setup{
		manifest: manifest,
		settings: settings,
		env:      env,
		api:      g.newAPI(baseURL, apiKey),
	}, nil
}

// environ returns the environment for the external tools: the process
// environment overlaid with the gear environment file
func (g *Gear) environ() []string {
	env, err := config.LoadEnviron(g.paths.EnvironFile)
	if errors.Is(err, os.ErrNotExist) {
		g.logger.Warn("no environment file found", "path", g.paths.EnvironFile)
		return nil
	}
	if err != nil {
		g.logger.Warn("failed to load environment file", "path", g.paths.EnvironFile, "error", err)
		return nil
	}

	g.logger.Info("loaded gear environment", "path", g.paths.EnvironFile, "variables", len(env))
	for _, kv := range env.List() {
		g.logger.Debug("gear environment", "variable", kv)
	}
	return env.Merge(os.Environ())
}

func (g *Gear) command(argv []string, env []string) (*runner.Command, error) {
	cmd, err := runner.New(argv)
	if err != nil {
		return nil, err
	}
	cmd.Dir = g.paths.OutputDir
	cmd.Env = env
	cmd.Stdout = g.opts.Stdout
	cmd.Stderr = g.opts.Stderr
	return cmd, nil
}
