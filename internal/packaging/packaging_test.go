package packaging

import (
	"archive/zip"
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

func TestZipDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"data.results/stats.data+tlrc.HEAD": "head",
		"data.results/QC_data/index.html":   "<html></html>",
	})
	dest := filepath.Join(root, "data.results.zip")

	require.NoError(t, ZipDir(filepath.Join(root, "data.results"), dest))
	assert.Equal(t, []string{
		"data.results/QC_data/index.html",
		"data.results/stats.data+tlrc.HEAD",
	}, zipEntries(t, dest))

	// Overwrites an existing archive
	require.NoError(t, ZipDir(filepath.Join(root, "data.results"), dest))
}

func TestZipDirErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"file.txt": "x"})

	require.Error(t, ZipDir(filepath.Join(root, "missing"), filepath.Join(root, "missing.zip")))
	require.Error(t, ZipDir(filepath.Join(root, "file.txt"), filepath.Join(root, "file.zip")))
}

func TestZipSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"meica.sub01_rest/ts_OC.nii":   "oc",
		"meica.sub01_rest/log.txt":     "log",
		"sub01_rest_medn.nii.gz":       "medn",
		"intermediate/nested/file.txt": "nested",
	})

	archives, err := ZipSubdirs(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "intermediate.zip"),
		filepath.Join(root, "meica.sub01_rest.zip"),
	}, archives)

	assert.NoDirExists(t, filepath.Join(root, "meica.sub01_rest"))
	assert.NoDirExists(t, filepath.Join(root, "intermediate"))
	assert.FileExists(t, filepath.Join(root, "sub01_rest_medn.nii.gz"))
	assert.Equal(t, []string{"intermediate/nested/file.txt"}, zipEntries(t, filepath.Join(root, "intermediate.zip")))
}

const qcIndex = `<!DOCTYPE html>
<html>
<head>
<link rel="stylesheet" href="extra_info/styles.css">
<link rel="icon" href="media/favicon.ico">
<script src="extra_info/toc.js"></script>
<script src="https://cdn.example.org/lib.js"></script>
</head>
<body>
<img src="media/qc_00_vorig_EPI.jpg">
<img src="media/missing.jpg">
<img src="data:image/png;base64,AAAA">
</body>
</html>`

func TestPackHTML(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"QC_data/index.html":                qcIndex,
		"QC_data/extra_info/styles.css":     "body { color: black; }",
		"QC_data/extra_info/toc.js":         "var toc = 1;",
		"QC_data/media/qc_00_vorig_EPI.jpg": "jpeg-bytes",
	})
	dest := filepath.Join(root, "QC_data.html")

	result, err := PackHTML(filepath.Join(root, "QC_data", "index.html"), dest)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inlined)
	assert.Equal(t, []string{"media/missing.jpg"}, result.Missing)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "<style>body { color: black; }</style>")
	assert.Contains(t, out, "<script>var toc = 1;</script>")
	assert.Contains(t, out, `src="data:image/jpeg;base64,`+base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))+`"`)
	assert.Contains(t, out, `src="https://cdn.example.org/lib.js"`)
	assert.Contains(t, out, `src="media/missing.jpg"`)
	assert.Contains(t, out, `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, out, `href="media/favicon.ico"`)
	assert.False(t, strings.Contains(out, "extra_info/styles.css"))
}

func TestPackHTMLMissingIndex(t *testing.T) {
	root := t.TempDir()
	_, err := PackHTML(filepath.Join(root, "index.html"), filepath.Join(root, "out.html"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "out.html"))
}

func TestPackage(t *testing.T) {
	out := t.TempDir()
	writeFiles(t, out, map[string]string{
		"proc.data":                                "#!/bin/tcsh",
		"data.results/errts.data.tedana+tlrc.HEAD": "head",
		"data.results/QC_data/index.html":          `<html><body><img src="media/a.jpg"></body></html>`,
		"data.results/QC_data/media/a.jpg":         "jpg",
	})

	report := Package(out, "data", testLogger())

	assert.True(t, report.OK(), "failures: %v", report.Failures)
	assert.Equal(t, []string{
		filepath.Join(out, "data.results.zip"),
		filepath.Join(out, "QC_data.zip"),
	}, report.Archives)
	assert.Equal(t, filepath.Join(out, "QC_data.html"), report.HTML)
	assert.Equal(t, []string{"QC_data/index.html", "QC_data/media/a.jpg"}, zipEntries(t, filepath.Join(out, "QC_data.zip")))
}

func TestPackageIsBestEffort(t *testing.T) {
	out := t.TempDir()
	writeFiles(t, out, map[string]string{
		"data.results/stats.data+tlrc.HEAD": "head",
	})

	report := Package(out, "data", testLogger())

	assert.False(t, report.OK())
	assert.Len(t, report.Failures, 2)
	assert.Equal(t, []string{filepath.Join(out, "data.results.zip")}, report.Archives)
	assert.Empty(t, report.HTML)
}
