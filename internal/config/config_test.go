package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearEnv isolates a test from INTEL_* variables of the host
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INTEL_CONFIG_FILE", "INTEL_SERVER_PORT", "INTEL_SERVER_READ_TIMEOUT",
		"INTEL_LOGGING_LEVEL", "INTEL_LOGGING_OUTPUT", "INTEL_RUN_AS_OF",
		"INTEL_RUN_WORKERS", "INTEL_RUN_WEIGHTS", "INTEL_STORAGE_ENABLED",
		"INTEL_STORAGE_DSN", "INTEL_OUTPUT_FORMATS", "INTEL_SECURITY_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, DefaultRunTimeout, cfg.Server.RunTimeout)
				assert.True(t, cfg.Server.RunOnStart)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, []string{"csv", "json", "summary"}, cfg.Output.Formats)
				assert.False(t, cfg.Storage.Enabled)
				assert.Equal(t, intel.DefaultWeights(), cfg.Engine.Weights)
				assert.Equal(t, 13, cfg.Engine.Momentum.Window)
			},
		},
		{
			name: "file overlays defaults",
			file: `
server:
  port: 6060
  read_timeout: 20s
logging:
  level: debug
input:
  establishments_file: data/berlin.xlsx
  sheet: Restaurants
engine:
  cohort_key: none
  weights:
    reputation: 0.2
    responsiveness: 0.2
    digital_presence: 0.2
    intelligence: 0.2
    visibility: 0.2
  opportunity:
    rules:
      - name: silent_winner
        conditions:
          - {field: rating, op: gte, threshold: 4.6}
          - {field: response_rate, op: lt, threshold: 0.25}
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "untouched keys keep defaults")
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "data/berlin.xlsx", cfg.Input.EstablishmentsFile)
				assert.Equal(t, "Restaurants", cfg.Input.Sheet)
				assert.Equal(t, intel.CohortNone, cfg.Engine.CohortKey)
				assert.Equal(t, 0.2, cfg.Engine.Weights.Visibility)
				require.Len(t, cfg.Engine.Opportunity.Rules, 1)
				assert.Equal(t, 4.6, cfg.Engine.Opportunity.Rules[0].Conditions[0].Threshold)
				assert.Equal(t, intel.OpLT, cfg.Engine.Opportunity.Rules[0].Conditions[1].Op)
				assert.Equal(t, 500, cfg.Engine.Scoring.ReviewSaturation, "engine defaults survive")
			},
		},
		{
			name: "environment overrides file",
			file: "server:\n  port: 6060\nlogging:\n  level: error\n",
			env: map[string]string{
				"INTEL_SERVER_PORT":   "7070",
				"INTEL_LOGGING_LEVEL": "WARN",
				"INTEL_RUN_AS_OF":     "2024-06-30",
				"INTEL_RUN_WEIGHTS":   "0.3,0.3,0.2,0.1,0.1",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, "2024-06-30", cfg.Run.AsOf)
				assert.Equal(t, []float64{0.3, 0.3, 0.2, 0.1, 0.1}, cfg.Run.Weights)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"INTEL_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"INTEL_SERVER_READ_TIMEOUT": "-5s"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"INTEL_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "malformed as-of date",
			env:     map[string]string{"INTEL_RUN_AS_OF": "30.06.2024"},
			wantErr: true,
		},
		{
			name:    "wrong number of weights",
			env:     map[string]string{"INTEL_RUN_WEIGHTS": "0.5,0.5"},
			wantErr: true,
		},
		{
			name:    "storage without dsn",
			env:     map[string]string{"INTEL_STORAGE_ENABLED": "true"},
			wantErr: true,
		},
		{
			name:    "unknown output format",
			env:     map[string]string{"INTEL_OUTPUT_FORMATS": "csv,pdf"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	now := time.Date(2024, 7, 2, 18, 30, 0, 0, time.UTC)

	t.Run("as-of defaults to today", func(t *testing.T) {
		cfg := Default()
		ec, err := cfg.EngineConfig(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC), ec.AsOf)
		assert.Equal(t, intel.DefaultWeights(), ec.Weights)
	})

	t.Run("run settings override engine", func(t *testing.T) {
		cfg := Default()
		cfg.Run = RunConfig{
			AsOf:      "2024-06-30",
			Workers:   2,
			CohortKey: "none",
			Weights:   []float64{0.3, 0.3, 0.2, 0.1, 0.1},
		}
		ec, err := cfg.EngineConfig(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), ec.AsOf)
		assert.Equal(t, 2, ec.Workers)
		assert.Equal(t, intel.CohortNone, ec.CohortKey)
		assert.Equal(t, 0.3, ec.Weights.Responsiveness)
	})

	t.Run("weights must sum to one", func(t *testing.T) {
		cfg := Default()
		cfg.Run.Weights = []float64{0.3, 0.25, 0.2, 0.1, 0.1}
		_, err := cfg.EngineConfig(now)
		var wce *intel.InvalidWeightConfigError
		assert.True(t, errors.As(err, &wce))
	})

	t.Run("weight count must match pillars", func(t *testing.T) {
		tests := []struct {
			name    string
			weights []float64
		}{
			{"too few", []float64{0.5, 0.5}},
			{"too many", []float64{0.2, 0.2, 0.2, 0.2, 0.1, 0.1}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := Default()
				cfg.Run.Weights = tt.weights
				_, err := cfg.EngineConfig(now)
				require.Error(t, err)

				var appErr *apierrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, apierrors.ErrTypeValidation, appErr.Type)
				assert.Equal(t, len(tt.weights), appErr.Context["weights"])
			})
		}
	})
}
