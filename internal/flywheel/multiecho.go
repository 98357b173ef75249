package flywheel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

var (
	// ErrNoFunctionalFiles is returned when an acquisition has no functional NIfTI files
	ErrNoFunctionalFiles = errors.New("no functional NIfTI files")

	// ErrMissingEchoTime is returned when a functional file carries no EchoTime
	ErrMissingEchoTime = errors.New("missing EchoTime")

	// ErrInvalidFileName is returned when a file name is not a plain base name
	ErrInvalidFileName = errors.New("invalid file name")
)

// API is the subset of the data API used to collect multi-echo data
type API interface {
	Acquisition(ctx context.Context, id string) (*Acquisition, error)
	Session(ctx context.Context, id string) (*Session, error)
	DownloadAcquisitionFile(ctx context.Context, acquisitionID, name, dest string) error
}

// Echo is one downloaded echo of a multi-echo run
type Echo struct {
	// Name is the file name inside the output directory
	Name string

	// EchoTime is in milliseconds
	EchoTime float64
}

// MultiEcho is a downloaded multi-echo functional run, sorted by echo time
type MultiEcho struct {
	Echoes []Echo

	// Prefix is "<subject code>_<acquisition label>" without spaces
	Prefix string

	// RepetitionTime in seconds, zero when the files do not carry it
	RepetitionTime float64

	// SliceTiming holds slice acquisition times in seconds, when the files carry them
	SliceTiming []float64
}

// Datasets returns the echo file names in echo time order
func (m *MultiEcho) Datasets() []string {
	names := make([]string, len(m.Echoes))
	for i, e := range m.Echoes {
		names[i] = e.Name
	}
	return names
}

// EchoTimes returns the echo times in milliseconds
func (m *MultiEcho) EchoTimes() []float64 {
	tes := make([]float64, len(m.Echoes))
	for i, e := range m.Echoes {
		tes[i] = e.EchoTime
	}
	return tes
}

// IsFunctionalNifti reports whether f is a NIfTI file classified as functional
func IsFunctionalNifti(f File) bool {
	return f.Type == "nifti" && slices.Contains(f.Classification["Intent"], "Functional")
}

// FetchMultiEcho downloads every functional NIfTI file of the acquisition into
// outDir and returns them sorted by echo time.
func FetchMultiEcho(ctx context.Context, api API, acquisitionID, outDir string, logger *slog.Logger) (*MultiEcho, error) {
	acq, err := api.Acquisition(ctx, acquisitionID)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, f := range acq.Files {
		if IsFunctionalNifti(f) {
			files = append(files, f)
		}
	}
	logger.Info("found functional NIfTI files",
		"count", len(files),
		"acquisition", acq.Label)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in acquisition %s", ErrNoFunctionalFiles, acq.Label)
	}

	result := &MultiEcho{}
	for _, f := range files {
		if !isBaseName(f.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFileName, f.Name)
		}
		te, ok := f.Info["EchoTime"]
		if !ok {
			return nil, fmt.Errorf("%w on %s", ErrMissingEchoTime, f.Name)
		}
		seconds, err := cast.ToFloat64E(te)
		if err != nil {
			return nil, fmt.Errorf("invalid EchoTime on %s: %w", f.Name, err)
		}

		logger.Info("downloading file", "name", f.Name)
		if err := api.DownloadAcquisitionFile(ctx, acq.ID, f.Name, filepath.Join(outDir, f.Name)); err != nil {
			return nil, err
		}

		if tr, ok := f.Info["RepetitionTime"]; ok && result.RepetitionTime == 0 {
			result.RepetitionTime = cast.ToFloat64(tr)
		}
		if st, ok := f.Info["SliceTiming"]; ok && result.SliceTiming == nil {
			times, err := toFloats(st)
			if err != nil {
				logger.Warn("ignoring invalid SliceTiming", "name", f.Name, "error", err)
			} else {
				result.SliceTiming = times
			}
		}
		result.Echoes = append(result.Echoes, Echo{Name: f.Name, EchoTime: seconds * 1000})
	}

	slices.SortStableFunc(result.Echoes, func(a, b Echo) int {
		switch {
		case a.EchoTime < b.EchoTime:
			return -1
		case a.EchoTime > b.EchoTime:
			return 1
		default:
			return 0
		}
	})

	ses, err := api.Session(ctx, acq.Parents.Session)
	if err != nil {
		return nil, err
	}
	result.Prefix = stripSpaces(ses.Subject.Code) + "_" + stripSpaces(acq.Label)

	return result, nil
}

func toFloats(v any) ([]float64, error) {
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}
	floats := make([]float64, len(items))
	for i, item := range items {
		if floats[i], err = cast.ToFloat64E(item); err != nil {
			return nil, err
		}
	}
	return floats, nil
}

// isBaseName reports whether name stays inside the directory it is joined to
func isBaseName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsRune(name, '\\')
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}
