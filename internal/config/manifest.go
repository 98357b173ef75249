package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/mitchellh/mapstructure"
)

// ErrMissingInput is returned when a required gear input is absent from the manifest
var ErrMissingInput = errors.New("missing gear input")

// Input names declared by the gear
const (
	InputAPIKey      = "api_key"
	InputFunctional  = "functional"
	InputAnatomical  = "anatomical"
	InputSliceTiming = "slice_timing"
)

// Manifest is the gear config.json written by the hosting platform
type Manifest struct {
	// Config is the flat user configuration. It drives the afni_proc.py option table.
	Config map[string]any `json:"config"`

	Inputs      map[string]Input `json:"inputs"`
	Destination Container        `json:"destination"`
}

// Input is a single gear input: a file, or the api key
type Input struct {
	Base      string    `json:"base"`
	Key       string    `json:"key,omitempty"`
	Hierarchy Container `json:"hierarchy"`
	Location  Location  `json:"location"`
}

// Container references a container in the data hierarchy
type Container struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Location is where an input file was placed inside the gear
type Location struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// GearSettings are the configuration keys the gear itself interprets
type GearSettings struct {
	LogLevel          string `mapstructure:"gear-log-level"`
	SaveOutputOnError bool   `mapstructure:"save-output-on-error"`

	// TlrcBase names a template inside the AFNI install directory
	TlrcBase string `mapstructure:"tlrc_base"`

	Kdaw float64 `mapstructure:"kdaw"`

	// MEICA pipeline settings
	Basetime    string  `mapstructure:"basetime"`
	MNI         bool    `mapstructure:"mni"`
	TR          float64 `mapstructure:"tr"`
	CPUs        int     `mapstructure:"cpus"`
	NoAxialize  bool    `mapstructure:"no_axialize"`
	Native      bool    `mapstructure:"native"`
	KeepInt     bool    `mapstructure:"keep_int"`
	TpatternGen bool    `mapstructure:"tpattern_gen"`
	Daw         string  `mapstructure:"daw"`
}

// DefaultSettings returns the settings used for keys missing from the manifest
func DefaultSettings() GearSettings {
	return GearSettings{
		LogLevel: "INFO",
		Basetime: "0",
	}
}

// LoadManifest reads and parses the gear config.json at path
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Config == nil {
		m.Config = map[string]any{}
	}
	if m.Inputs == nil {
		m.Inputs = map[string]Input{}
	}

	return &m, nil
}

// Settings decodes the gear settings out of the flat configuration
func (m *Manifest) Settings() (GearSettings, error) {
	settings := DefaultSettings()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &settings,
	})
	if err != nil {
		return settings, fmt.Errorf("failed to create settings decoder: %w", err)
	}
	if err := decoder.Decode(m.Config); err != nil {
		return settings, fmt.Errorf("failed to decode gear settings: %w", err)
	}

	return settings, nil
}

// CommandConfig returns a copy of the flat configuration that callers may extend
func (m *Manifest) CommandConfig() map[string]any {
	return maps.Clone(m.Config)
}

// Input returns the named input
func (m *Manifest) Input(name string) (Input, error) {
	in, ok := m.Inputs[name]
	if !ok {
		return Input{}, fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	return in, nil
}

// HasInput reports whether the optional input name was provided
func (m *Manifest) HasInput(name string) bool {
	_, ok := m.Inputs[name]
	return ok
}

// InputPath returns the local path of a file input
func (m *Manifest) InputPath(name string) (string, error) {
	in, err := m.Input(name)
	if err != nil {
		return "", err
	}
	if in.Location.Path == "" {
		return "", fmt.Errorf("%w: %s has no location", ErrMissingInput, name)
	}
	return in.Location.Path, nil
}

// InputContainerID returns the id of the container a file input belongs to
func (m *Manifest) InputContainerID(name string) (string, error) {
	in, err := m.Input(name)
	if err != nil {
		return "", err
	}
	if in.Hierarchy.ID == "" {
		return "", fmt.Errorf("%w: %s has no parent container", ErrMissingInput, name)
	}
	return in.Hierarchy.ID, nil
}

// APIKey returns the data API key provided as the api_key input
func (m *Manifest) APIKey() (string, error) {
	in, err := m.Input(InputAPIKey)
	if err != nil {
		return "", err
	}
	if in.Key == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingInput, InputAPIKey)
	}
	return in.Key, nil
}
