package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flywheel-apps/afni-proc-gear/internal/config"
	"github.com/flywheel-apps/afni-proc-gear/internal/gear"
	"github.com/flywheel-apps/afni-proc-gear/internal/logging"
	"github.com/flywheel-apps/afni-proc-gear/internal/sysinfo"
)

// exitCodeError carries the exit code of a failed gear run. The failure
// itself has already been logged.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("gear exited with code %d", e.code)
}

// The run function is like the main function, except that it takes in operating system fundamentals as arguments, and returns an error.
//
// If the run function returns an *exitCodeError, the gear ran and failed with that code.
// Any other error means the gear could not be started.
func run(ctx context.Context, args []string, getenv func(key string) string, stdout io.Writer) error {
	paths := config.DefaultPaths()
	if dir := getenv(config.EnvBaseDir); dir != "" {
		paths.WithBaseDir(dir)
	}

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(stdout)
	baseDir := flags.String("base-dir", paths.BaseDir, "Gear root holding config.json and the output directory")
	outputDir := flags.String("output-dir", "", "Override the output directory")
	manifest := flags.String("config", "", "Override the path of the gear config.json")
	environ := flags.String("environ", paths.EnvironFile, "JSON file with the environment for the external tools")
	abin := flags.String("abin", paths.AbinDir, "AFNI install directory")
	pipeline := flags.String("pipeline", config.PipelineAFNI, "Pipeline to run: afni or meica")
	dryRun := flags.Bool("dry-run", false, "Build and log the command without running it")
	logLevel := flags.String("log-level", "", "Log level; overrides gear-log-level from the config")
	if err := flags.Parse(args[1:]); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	paths.WithBaseDir(*baseDir)
	if *outputDir != "" {
		paths.OutputDir = *outputDir
	}
	if *manifest != "" {
		paths.ManifestFile = *manifest
	}
	paths.EnvironFile = *environ
	paths.AbinDir = *abin

	// Canceling the context stops the running external tool on interrupt or
	// container stop.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	level := new(slog.LevelVar)
	opts := gear.Options{
		Pipeline: *pipeline,
		DryRun:   *dryRun,
		APIURL:   getenv(config.EnvAPIURL),
		Level:    level,
		Stdout:   stdout,
		Stderr:   stdout,
	}
	if *logLevel != "" {
		level.Set(config.ParseLogLevel(*logLevel))
		opts.Level = nil
	}

	logger := slog.New(logging.NewTerminalHandler(stdout, level))

	logger.Info("AFNI multi-echo gear starting",
		"pipeline", opts.Pipeline,
		"base_dir", paths.BaseDir,
		"output_dir", paths.OutputDir)
	if opts.DryRun {
		logger.Warn("DRY-RUN MODE ENABLED: commands will be built but not run")
	}
	sysinfo.Log(ctx, logger)

	code := gear.New(logger, paths, opts).Run(ctx)
	if code != 0 {
		logger.Error("gear failed", "exit_code", code)
		return &exitCodeError{code: code}
	}

	logger.Info("gear finished")
	return nil
}
