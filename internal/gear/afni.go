package gear

import (
	"context"
	"path/filepath"

	"github.com/flywheel-apps/afni-proc-gear/internal/afni"
	"github.com/flywheel-apps/afni-proc-gear/internal/config"
	"github.com/flywheel-apps/afni-proc-gear/internal/flywheel"
	"github.com/flywheel-apps/afni-proc-gear/internal/logging"
	"github.com/flywheel-apps/afni-proc-gear/internal/packaging"
	"github.com/flywheel-apps/afni-proc-gear/internal/runner"
)

// combineOptsPlaceholder marks combine_opts_tedana as requested. Its value
// is taken from kdaw when the command is built.
const combineOptsPlaceholder = "kdaw"

// runAFNI fetches the multi-echo run, builds and runs afni_proc.py, runs the
// generated script and packages the results.
func (g *Gear) runAFNI(ctx context.Context) int {
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

	anatInput, err := s.manifest.InputPath(config.InputAnatomical)
	if err != nil {
		g.logger.Error("failed to locate anatomical input", "error", err)
		return 1
	}
	anat, err := stageFile(anatInput, outDir)
	if err != nil {
		g.logger.Error("failed to copy anatomical input", "error", err)
		return 1
	}

	cfg := s.manifest.CommandConfig()
	cfg["copy_anat"] = anat
	cfg["dsets_me_run"] = data.Datasets()
	cfg["echo_times"] = data.EchoTimes()
	if s.settings.TlrcBase != "" {
		cfg["tlrc_base"] = filepath.Join(g.paths.AbinDir, s.settings.TlrcBase)
	}
	cfg[afni.OptionCombineOptsTedana] = combineOptsPlaceholder

	g.logger.Info("building afni_proc.py command")
	program := afni.DefaultProcProgram(g.paths.AbinDir)
	argv, err := afni.BuildProcCommand(cfg, program)
	if err != nil {
		g.logger.Error("failed to build afni_proc.py command", "error", err)
		return 1
	}
	g.logger.Info("afni_proc.py command", "command", argv)

	if g.opts.DryRun {
		g.logger.Warn("dry run: not running afni_proc.py")
		return 0
	}

	code := g.process(ctx, s.env, argv, program.SubjectID)

	if code != 0 && !s.settings.SaveOutputOnError {
		g.logger.Info("removing output after failure", "output_dir", outDir)
		if err := clearDir(outDir); err != nil {
			g.logger.Error("failed to clean up output directory", "error", err)
		}
		return code
	}

	report := packaging.Package(outDir, program.SubjectID, g.logger)
	g.logger.Info("output packaged",
		"archives", report.Archives,
		"report", report.HTML,
		"failures", len(report.Failures))

	return code
}

// process runs afni_proc.py and then the script it generated. The first
// failure stops the sequence; its exit code is returned.
func (g *Gear) process(ctx context.Context, env, argv []string, subjectID string) int {
	proc, err := g.command(argv, env)
	if err != nil {
		logging.Critical(g.logger, "invalid afni_proc.py command", "error", err)
		return 1
	}
	g.logger.Info("running afni_proc.py", "dir", proc.Dir)
	if err := g.exec(ctx, proc); err != nil {
		logging.Critical(g.logger, "afni_proc.py failed", "error", err)
		return runner.ExitCode(err)
	}

	script, err := g.command(afni.RunScriptCommand(subjectID), env)
	if err != nil {
		logging.Critical(g.logger, "invalid processing script command", "error", err)
		return 1
	}
	script.LogFile = filepath.Join(g.paths.OutputDir, afni.ProcOutputLog(subjectID))
	g.logger.Info("running processing script", "command", script.String(), "log", script.LogFile)
	if err := g.exec(ctx, script); err != nil {
		logging.Critical(g.logger, "processing script failed", "script", afni.ProcScript(subjectID), "error", err)
		return runner.ExitCode(err)
	}

	g.logger.Info("processing finished")
	return 0
}
