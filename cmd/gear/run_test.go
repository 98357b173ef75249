package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-apps/afni-proc-gear/internal/config"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/acquisitions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_id":     r.PathValue("id"),
			"label":   "rest",
			"parents": map[string]string{"session": "ses1"},
			"files": []map[string]any{
				{
					"name":           "echo1.nii.gz",
					"type":           "nifti",
					"classification": map[string][]string{"Intent": {"Functional"}},
					"info":           map[string]any{"EchoTime": 0.015},
				},
			},
		})
	})
	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_id":     r.PathValue("id"),
			"subject": map[string]string{"code": "sub01"},
		})
	})
	mux.HandleFunc("GET /api/acquisitions/{id}/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("nifti"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeManifest(t *testing.T, base string, cfg map[string]any) {
	t.Helper()
	anat := filepath.Join(base, "input", "anatomical", "T1.nii.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(anat), 0o755))
	require.NoError(t, os.WriteFile(anat, []byte("anat"), 0o644))

	manifest := config.Manifest{
		Config: cfg,
		Inputs: map[string]config.Input{
			config.InputAPIKey:     {Base: "api-key", Key: "example.flywheel.io:secret"},
			config.InputFunctional: {Base: "file", Hierarchy: config.Container{ID: "acq1", Type: "acquisition"}},
			config.InputAnatomical: {Base: "file", Location: config.Location{Name: "T1.nii.gz", Path: anat}},
		},
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(base, config.ManifestFileName), data, 0o644))
}

func TestRun(t *testing.T) {
	srv := newAPIServer(t)

	tests := []struct {
		name     string
		cfg      map[string]any
		args     []string
		wantCode int
		wantErr  bool
		contains []string
	}{
		{
			name:     "dry run builds the command",
			cfg:      map[string]any{"cost": "leastsq", "kdaw": 10},
			args:     []string{"-dry-run"},
			contains: []string{"afni_proc.py command", "-align_opts_aea", "--kdaw=10", "DRY-RUN MODE ENABLED"},
		},
		{
			name:     "log level flag overrides the config",
			cfg:      map[string]any{"gear-log-level": "ERROR", "kdaw": 10},
			args:     []string{"-dry-run", "-log-level", "debug"},
			contains: []string{"gear configuration", "AFNI multi-echo gear starting"},
		},
		{
			name:     "unknown cost fails with exit code 1",
			cfg:      map[string]any{"cost": "bogus", "kdaw": 10},
			args:     []string{"-dry-run"},
			wantCode: 1,
			contains: []string{"unknown cost function"},
		},
		{
			name:     "unknown pipeline",
			cfg:      map[string]any{},
			args:     []string{"-pipeline", "fmriprep"},
			wantCode: 1,
			contains: []string{"unknown pipeline"},
		},
		{
			name:    "invalid flag",
			cfg:     map[string]any{},
			args:    []string{"-no-such-flag"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			writeManifest(t, base, tt.cfg)

			env := map[string]string{
				config.EnvBaseDir: base,
				config.EnvAPIURL:  srv.URL + "/api",
			}
			getenv := func(key string) string { return env[key] }

			args := append([]string{"gear", "-environ", filepath.Join(base, "missing.json")}, tt.args...)
			var out bytes.Buffer
			err := run(context.Background(), args, getenv, &out)

			switch {
			case tt.wantErr:
				require.Error(t, err)
				var exitErr *exitCodeError
				assert.NotErrorAs(t, err, &exitErr)
			case tt.wantCode != 0:
				var exitErr *exitCodeError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tt.wantCode, exitErr.code)
			default:
				require.NoError(t, err)
			}

			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestRunOutputDirOverride(t *testing.T) {
	srv := newAPIServer(t)
	base := t.TempDir()
	writeManifest(t, base, map[string]any{"kdaw": 10})
	outDir := filepath.Join(t.TempDir(), "out")

	getenv := func(key string) string {
		if key == config.EnvAPIURL {
			return srv.URL + "/api"
		}
		return ""
	}
	args := []string{"gear", "-base-dir", base, "-output-dir", outDir, "-environ", filepath.Join(base, "missing.json"), "-dry-run"}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, getenv, &out))
	assert.FileExists(t, filepath.Join(outDir, "echo1.nii.gz"))
	assert.FileExists(t, filepath.Join(outDir, "T1.nii.gz"))
}
