package afni

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnknownCost is returned when the cost function name has no abbreviation
	ErrUnknownCost = errors.New("unknown cost function")

	// ErrMissingKdaw is returned when combine_opts_tedana is requested without a kdaw value
	ErrMissingKdaw = errors.New("missing kdaw value for combine_opts_tedana")

	// ErrUnsupportedValue is returned when a configuration value cannot be formatted
	ErrUnsupportedValue = errors.New("unsupported configuration value")
)

// DefaultSubjectID is the subject id passed to afni_proc.py. It names the
// generated script and the results directory.
const DefaultSubjectID = "data"

// Blocks is the fixed processing block list passed to afni_proc.py
var Blocks = []string{"tshift", "align", "tlrc", "volreg", "mask", "combine", "blur", "scale", "regress"}

// ProcProgram identifies the afni_proc.py executable and the subject id it runs for
type ProcProgram struct {
	Path      string
	SubjectID string
}

// DefaultProcProgram returns afni_proc.py inside the AFNI install directory
func DefaultProcProgram(abinDir string) ProcProgram {
	return ProcProgram{
		Path:      filepath.Join(abinDir, "afni_proc.py"),
		SubjectID: DefaultSubjectID,
	}
}

// ProcScript is the tcsh script afni_proc.py writes for the subject
func ProcScript(subjectID string) string {
	return "proc." + subjectID
}

// ProcOutputLog is the file the processing script output is written to
func ProcOutputLog(subjectID string) string {
	return "output." + ProcScript(subjectID)
}

// ResultsDir is the directory the processing script writes results into
func ResultsDir(subjectID string) string {
	return subjectID + ".results"
}

// QCDir is the quality control directory inside ResultsDir
func QCDir(subjectID string) string {
	return "QC_" + subjectID
}

// RunScriptCommand returns the command that executes the generated processing script
func RunScriptCommand(subjectID string) []string {
	return []string{"tcsh", "-xef", ProcScript(subjectID)}
}

// BuildProcCommand translates the gear configuration into an afni_proc.py
// invocation. Options are emitted in the order of Options; keys missing from
// cfg are skipped and keys unknown to the table are ignored.
func BuildProcCommand(cfg map[string]any, prog ProcProgram) ([]string, error) {
	command := []string{prog.Path, "-subj_id", prog.SubjectID, "-blocks"}
	command = append(command, Blocks...)

	for _, opt := range Options {
		value, ok := cfg[opt.Name]
		if !ok {
			continue
		}

		tokens, err := optionTokens(opt, value, cfg)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", opt.Name, err)
		}
		command = append(command, tokens...)
	}

	return command, nil
}

func optionTokens(opt Option, value any, cfg map[string]any) ([]string, error) {
	flag := "-" + opt.Name

	switch opt.Name {
	case OptionCost:
		name, err := formatScalar(value)
		if err != nil {
			return nil, err
		}
		abbr, ok := CostAbbreviations[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCost, name)
		}
		return []string{"-align_opts_aea", flag, abbr}, nil

	case OptionCombineOptsTedana:
		kdaw, ok := cfg[KeyKdaw]
		if !ok {
			return nil, ErrMissingKdaw
		}
		s, err := formatScalar(kdaw)
		if err != nil {
			return nil, err
		}
		return []string{flag, "--kdaw=" + s}, nil
	}

	switch opt.Kind {
	case KindPath, KindInt, KindFloat, KindString:
		s, err := formatValue(value)
		if err != nil {
			return nil, err
		}
		// An empty value still yields one empty token
		return append([]string{flag}, strings.Split(s, " ")...), nil

	case KindYesNo:
		on, err := truthy(value)
		if err != nil {
			return nil, err
		}
		if on {
			return []string{flag, "yes"}, nil
		}
		return []string{flag, "no"}, nil

	case KindBool:
		on, err := truthy(value)
		if err != nil {
			return nil, err
		}
		if on {
			return []string{flag}, nil
		}
		return nil, nil
	}

	return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedValue, opt.Kind)
}
