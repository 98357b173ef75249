package afni

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
)

// ErrNoDatasets is returned when a MEICA command is requested without echo datasets
var ErrNoDatasets = errors.New("no echo datasets")

// MeicaParams holds the inputs of a meica.py invocation
type MeicaParams struct {
	Script string

	// Datasets and EchoTimes are parallel, sorted by echo time
	Datasets  []string
	EchoTimes []float64

	Basetime       string
	Anatomical     string
	MNI            bool
	TR             float64
	CPUs           int
	NoAxialize     bool
	Native         bool
	KeepInt        bool
	SliceTiming    string
	GenerateTiming bool
	TimingFile     string
	Prefix         string
	Daw            string
}

// BuildMeicaCommand builds the meica.py invocation for a multi-echo acquisition.
// Dataset and echo time lists are comma separated as meica.py expects.
func BuildMeicaCommand(p MeicaParams) ([]string, error) {
	if len(p.Datasets) == 0 {
		return nil, ErrNoDatasets
	}
	if len(p.EchoTimes) != len(p.Datasets) {
		return nil, fmt.Errorf("%d datasets but %d echo times", len(p.Datasets), len(p.EchoTimes))
	}

	tes := make([]string, len(p.EchoTimes))
	for i, te := range p.EchoTimes {
		tes[i] = cast.ToString(te)
	}

	basetime := p.Basetime
	if basetime == "" {
		basetime = "0"
	}

	command := []string{
		p.Script,
		"-d", strings.Join(p.Datasets, ","),
		"-e", strings.Join(tes, ","),
		"-b", basetime,
	}
	if p.Anatomical != "" {
		command = append(command, "-a", filepath.Base(p.Anatomical))
	}
	if p.MNI {
		command = append(command, "--MNI")
	}
	if p.TR > 0 {
		command = append(command, "--TR", cast.ToString(p.TR))
	}
	if p.CPUs > 0 {
		command = append(command, "--cpus", cast.ToString(p.CPUs))
	}
	if p.NoAxialize {
		command = append(command, "--no_axialize")
	}
	if p.Native {
		command = append(command, "--native")
	}
	if p.KeepInt {
		command = append(command, "--keep_int")
	}

	// A user supplied slice timing file wins over a generated one
	switch {
	case p.SliceTiming != "":
		command = append(command, "--tpattern=@"+filepath.Base(p.SliceTiming))
	case p.TimingFile != "" && p.GenerateTiming:
		command = append(command, "--tpattern=@"+p.TimingFile)
	}

	command = append(command, "--prefix", p.Prefix)
	if p.Daw != "" {
		command = append(command, "--daw", p.Daw)
	}

	return command, nil
}
