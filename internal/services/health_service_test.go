package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuns struct {
	last     *RunInfo
	running  bool
	archived bool
}

func (f fakeRuns) LastRun() (RunInfo, bool) {
	if f.last == nil {
		return RunInfo{}, false
	}
	return *f.last, true
}

func (f fakeRuns) Running() bool        { return f.running }
func (f fakeRuns) ArchiveEnabled() bool { return f.archived }

func TestHealthCheck(t *testing.T) {
	hs := NewHealthService("1.2.3", "", nil, nil)
	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	assert.Equal(t, "1.2.3", hs.Version()["version"])
}

func TestReadinessCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name      string
		outputDir string
		runs      RunStatusSource
		want      string
		services  map[string]string
	}{
		{
			name:      "published run",
			outputDir: dir,
			runs:      fakeRuns{last: &RunInfo{RunID: "run-1", AsOf: "2024-06-30", Establishments: 5}, archived: true},
			want:      "ready",
			services:  map[string]string{"results": "ready", "reports": "ready", "archive": "ready"},
		},
		{
			name:      "first run in progress",
			outputDir: filepath.Join(dir, "later"),
			runs:      fakeRuns{running: true},
			want:      "not_ready",
			services:  map[string]string{"results": "not_ready", "reports": "ready", "archive": "disabled"},
		},
		{
			name:      "report path is a file",
			outputDir: file,
			runs:      fakeRuns{last: &RunInfo{RunID: "run-1"}},
			want:      "not_ready",
			services:  map[string]string{"results": "ready", "reports": "not_ready", "archive": "disabled"},
		},
		{
			name:     "no service",
			want:     "not_ready",
			services: map[string]string{"results": "not_ready", "reports": "disabled", "archive": "disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthService("test", tt.outputDir, tt.runs, nil)
			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.want, status.Status)
			for name, want := range tt.services {
				sh, ok := status.Services[name].(ServiceHealth)
				require.True(t, ok, name)
				assert.Equal(t, want, sh.Status, name)
			}
		})
	}
}
