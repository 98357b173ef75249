package packaging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/flywheel-apps/afni-proc-gear/internal/afni"
)

// Report lists what Package produced and what it failed to produce
type Report struct {
	Archives []string
	HTML     string
	Failures []error
}

// OK reports whether every packaging step succeeded
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) fail(logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, "error", err)
	r.Failures = append(r.Failures, fmt.Errorf("%s: %w", msg, err))
}

// Package archives the afni_proc.py results found in outputDir:
//
//   - <subj>.results zipped to <outputDir>/<subj>.results.zip
//   - QC_<subj> zipped to <outputDir>/QC_<subj>.zip
//   - QC_<subj>/index.html packed to <outputDir>/QC_<subj>.html
//
// Packaging is best effort. Failures are logged as warnings and collected in
// the report; they never abort the remaining steps.
func Package(outputDir, subjectID string, logger *slog.Logger) Report {
	var report Report

	resultsDir := filepath.Join(outputDir, afni.ResultsDir(subjectID))
	qcName := afni.QCDir(subjectID)
	qcDir := filepath.Join(resultsDir, qcName)

	steps := []struct {
		src  string
		dest string
	}{
		{src: resultsDir, dest: resultsDir + ".zip"},
		{src: qcDir, dest: filepath.Join(outputDir, qcName+".zip")},
	}
	for _, step := range steps {
		logger.Info("creating archive", "source", step.src, "archive", step.dest)
		if err := ZipDir(step.src, step.dest); err != nil {
			report.fail(logger, "failed to archive "+filepath.Base(step.src), err)
			continue
		}
		report.Archives = append(report.Archives, step.dest)
		if info, err := os.Stat(step.dest); err == nil {
			logger.Info("archive created", "archive", step.dest, "size", humanize.IBytes(uint64(info.Size())))
		}
	}

	index := filepath.Join(qcDir, "index.html")
	dest := filepath.Join(outputDir, qcName+".html")
	logger.Info("packing QC report", "index", index, "report", dest)
	result, err := PackHTML(index, dest)
	if err != nil {
		report.fail(logger, "failed to pack QC report", err)
		return report
	}
	if len(result.Missing) > 0 {
		logger.Warn("QC report references missing files", "missing", result.Missing)
	}
	report.HTML = dest
	logger.Info("QC report packed", "report", dest, "inlined", result.Inlined)

	return report
}
