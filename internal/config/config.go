package config

import (
	"path/filepath"
)

// Fixed locations inside the gear container
const (
	// DefaultBaseDir is the gear root the hosting platform mounts inputs and config under
	DefaultBaseDir = "/flywheel/v0"

	// DefaultEnvironFile is written at image build time with the environment AFNI needs
	DefaultEnvironFile = "/tmp/gear_environ.json"

	// DefaultAbinDir is the AFNI install directory
	DefaultAbinDir = "/root/abin"

	// ManifestFileName is the gear configuration file inside the base directory
	ManifestFileName = "config.json"
)

// Environment variables consulted at startup
const (
	// EnvBaseDir overrides DefaultBaseDir
	EnvBaseDir = "GEAR_BASE_DIR"

	// EnvAPIURL overrides the data API URL derived from the api key
	EnvAPIURL = "FLYWHEEL_API_URL"
)

// Pipelines the gear can run
const (
	PipelineAFNI  = "afni"
	PipelineMEICA = "meica"
)

// Paths is the filesystem layout the gear works in
type Paths struct {
	// BaseDir is the gear root
	BaseDir string `json:"baseDir"`

	// ManifestFile is the gear config.json holding config and inputs
	ManifestFile string `json:"manifestFile"`

	// OutputDir is the working directory of the external tools and the source of all archives
	OutputDir string `json:"outputDir"`

	// EnvironFile holds the environment passed to subprocesses
	EnvironFile string `json:"environFile"`

	// AbinDir is the AFNI install directory; template names are resolved against it
	AbinDir string `json:"abinDir"`

	// MeicaScript is the meica.py entry point of the MEICA pipeline
	MeicaScript string `json:"meicaScript"`
}

// DefaultPaths returns the standard gear layout
func DefaultPaths() *Paths {
	return (&Paths{
		EnvironFile: DefaultEnvironFile,
		AbinDir:     DefaultAbinDir,
	}).WithBaseDir(DefaultBaseDir)
}

// WithBaseDir moves every base-relative path under dir
func (p *Paths) WithBaseDir(dir string) *Paths {
	p.BaseDir = dir
	p.ManifestFile = filepath.Join(dir, ManifestFileName)
	p.OutputDir = filepath.Join(dir, "output")
	p.MeicaScript = filepath.Join(dir, "me-ica", "meica.py")
	return p
}
