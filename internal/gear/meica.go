package gear

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/flywheel-apps/afni-proc-gear/internal/afni"
	"github.com/flywheel-apps/afni-proc-gear/internal/config"
	"github.com/flywheel-apps/afni-proc-gear/internal/flywheel"
	"github.com/flywheel-apps/afni-proc-gear/internal/logging"
	"github.com/flywheel-apps/afni-proc-gear/internal/packaging"
	"github.com/flywheel-apps/afni-proc-gear/internal/runner"
)

// runMEICA runs the older meica.py pipeline on the multi-echo run and zips
// every output subdirectory on success.
func (g *Gear) runMEICA(ctx context.Context) int {
	s, err := g.prepare()
	if err != nil {
		g.logger.Error("failed to prepare gear run", "error", err)
		return 1
	}
	outDir := g.paths.OutputDir

	acquisitionID, err := s.manifest.InputContainerID(config.InputFunctional)
	if err != nil {
		g.logger.Error("failed to locate functional acquisition", "error", err)
		return 1
	}
	data, err := flywheel.FetchMultiEcho(ctx, s.api, acquisitionID, outDir, g.logger)
	if err != nil {
		g.logger.Error("failed to fetch multi-echo data", "error", err)
		return 1
	}

	params := afni.MeicaParams{
		Script:         g.paths.MeicaScript,
		Datasets:       data.Datasets(),
		EchoTimes:      data.EchoTimes(),
		Basetime:       s.settings.Basetime,
		MNI:            s.settings.MNI,
		TR:             s.settings.TR,
		CPUs:           s.settings.CPUs,
		NoAxialize:     s.settings.NoAxialize,
		Native:         s.settings.Native,
		KeepInt:        s.settings.KeepInt,
		GenerateTiming: s.settings.TpatternGen,
		Prefix:         data.Prefix,
		Daw:            s.settings.Daw,
	}
	if params.TR == 0 {
		params.TR = data.RepetitionTime
	}

	// Both inputs are optional for MEICA
	for _, in := range []struct {
		name string
		dest *string
	}{
		{name: config.InputAnatomical, dest: &params.Anatomical},
		{name: config.InputSliceTiming, dest: &params.SliceTiming},
	} {
		if !s.manifest.HasInput(in.name) {
			continue
		}
		src, err := s.manifest.InputPath(in.name)
		if err != nil {
			g.logger.Error("failed to locate input", "input", in.name, "error", err)
			return 1
		}
		staged, err := stageFile(src, outDir)
		if err != nil {
			g.logger.Error("failed to copy input", "input", in.name, "error", err)
			return 1
		}
		*in.dest = staged
	}
	if params.SliceTiming != "" {
		g.logger.Info("using user-provided slice timing file", "path", params.SliceTiming)
	} else if params.GenerateTiming {
		name, err := writeTimingFile(outDir, data)
		if err != nil {
			g.logger.Warn("failed to generate slice timing file", "error", err)
		} else if name != "" {
			g.logger.Info("generated slice timing file", "name", name)
			params.TimingFile = name
		}
	}

	argv, err := afni.BuildMeicaCommand(params)
	if err != nil {
		g.logger.Error("failed to build meica.py command", "error", err)
		return 1
	}
	g.logger.Info("meica.py command", "command", argv)

	if g.opts.DryRun {
		g.logger.Warn("dry run: not running meica.py")
		return 0
	}

	cmd, err := g.command(argv, s.env)
	if err != nil {
		logging.Critical(g.logger, "invalid meica.py command", "error", err)
		return 1
	}
	if err := g.exec(ctx, cmd); err != nil {
		logging.Critical(g.logger, "meica.py failed", "error", err)
		return runner.ExitCode(err)
	}

	g.logger.Info("meica.py finished, compressing outputs")
	archives, err := packaging.ZipSubdirs(outDir)
	if err != nil {
		g.logger.Warn("failed to compress outputs", "error", err)
	}
	g.logger.Info("outputs compressed", "archives", archives)

	return 0
}

// writeTimingFile writes the slice timing of data as a one-line 1D file in
// dir. It returns the file name, or "" when data carries no slice timing.
func writeTimingFile(dir string, data *flywheel.MultiEcho) (string, error) {
	if len(data.SliceTiming) == 0 {
		return "", nil
	}
	times := make([]string, len(data.SliceTiming))
	for i, t := range data.SliceTiming {
		times[i] = cast.ToString(t)
	}

	name := data.Prefix + "_tpattern.1D"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(times, " ")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, nil
}
