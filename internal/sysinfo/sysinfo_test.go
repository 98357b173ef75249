package sysinfo

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()

	report, err := Collect(context.Background(), dir)
	require.NoError(t, err)

	assert.Positive(t, report.CPUCount)
	assert.Positive(t, report.MemoryTotal)
	assert.Equal(t, dir, report.DiskPath)
	assert.Positive(t, report.DiskTotal)
}

func TestCollectMissingDisk(t *testing.T) {
	report, err := Collect(context.Background(), "/this/path/does/not/exist")
	require.Error(t, err)

	// The remaining resources are still reported
	assert.Positive(t, report.CPUCount)
	assert.Zero(t, report.DiskTotal)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Log(context.Background(), logger)

	out := buf.String()
	assert.Contains(t, out, "system resources")
	assert.Contains(t, out, "cpu_count=")
	assert.Contains(t, out, "memory_total=")
	assert.Contains(t, out, "disk_free=")
}
