package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Environ is the environment the external tools run with
type Environ map[string]string

// LoadEnviron reads the gear environment file. A missing file is reported with
// an error wrapping os.ErrNotExist.
func LoadEnviron(path string) (Environ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	var env Environ
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse environment file %s: %w", path, err)
	}
	return env, nil
}

// List returns the environment as sorted KEY=VALUE pairs
func (e Environ) List() []string {
	list := make([]string, 0, len(e))
	for k, v := range e {
		list = append(list, k+"="+v)
	}
	slices.Sort(list)
	return list
}

// Merge returns base with the entries of e added or replaced. base is a list
// of KEY=VALUE pairs as returned by os.Environ.
func (e Environ) Merge(base []string) []string {
	merged := Environ{}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		merged[k] = v
	}
	for k, v := range e {
		merged[k] = v
	}
	return merged.List()
}
