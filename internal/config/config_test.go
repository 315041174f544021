package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	envVars := []string{
		"IDQ_SERVER_PORT", "IDQ_LOGGING_LEVEL", "IDQ_LOGGING_FORMAT",
		"IDQ_PIPELINE_RATING_FLOOR", "IDQ_PIPELINE_RATING_CEILING",
		"IDQ_PIPELINE_SKU_NORMALIZATION", "IDQ_PIPELINE_ENRICH_CONCURRENCY",
		"IDQ_MARKETPLACE_POLL_INTERVAL", "IDQ_MARKETPLACE_MAX_POLL_ATTEMPTS",
		"IDQ_PATHS_DATA_DIR", "IDQ_PATHS_UPLOADS_DIR", "IDQ_PATHS_REPORTS_DIR", "IDQ_PATHS_LOGS_DIR",
	}

	// Save original values and restore after the test
	originalEnv := make(map[string]string)
	for _, envVar := range envVars {
		originalEnv[envVar] = os.Getenv(envVar)
	}
	defer func() {
		for _, envVar := range envVars {
			if val, exists := originalEnv[envVar]; exists && val != "" {
				os.Setenv(envVar, val)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}()

	setupDirs := func(t *testing.T) {
		dir := t.TempDir()
		os.Setenv("IDQ_PATHS_DATA_DIR", dir+"/data")
		os.Setenv("IDQ_PATHS_UPLOADS_DIR", dir+"/data/uploads")
		os.Setenv("IDQ_PATHS_REPORTS_DIR", dir+"/data/reports")
		os.Setenv("IDQ_PATHS_LOGS_DIR", dir+"/logs")
	}

	tests := []struct {
		name        string
		setupEnv    func()
		wantErr     bool
		errContains string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			setupEnv: func() {
				for _, envVar := range envVars {
					os.Unsetenv(envVar)
				}
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)

				assert.Equal(t, 0.1, cfg.Pipeline.RatingFloor)
				assert.Equal(t, 3.5, cfg.Pipeline.RatingCeiling)
				assert.Equal(t, NormalizeStripSuffix, cfg.Pipeline.SKUNormalization)
				assert.Equal(t, 1, cfg.Pipeline.SubstituteColFrom)
				assert.Equal(t, 16, cfg.Pipeline.SubstituteColTo)
				assert.Equal(t, 1, cfg.Pipeline.EnrichConcurrency)

				assert.Equal(t, 30*time.Second, cfg.Marketplace.PollInterval)
				assert.Equal(t, 10, cfg.Marketplace.MaxPollAttempts)
				assert.Len(t, cfg.Marketplace.Markets, 9)
				assert.Equal(t, "A1F83G8C2ARO7P", cfg.Marketplace.Markets["UK"])
			},
		},
		{
			name: "environment overrides defaults",
			setupEnv: func() {
				os.Setenv("IDQ_SERVER_PORT", "9090")
				os.Setenv("IDQ_LOGGING_LEVEL", "debug")
				os.Setenv("IDQ_PIPELINE_SKU_NORMALIZATION", "leading_digits")
				os.Setenv("IDQ_MARKETPLACE_POLL_INTERVAL", "5s")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, NormalizeLeadingDigits, cfg.Pipeline.SKUNormalization)
				assert.Equal(t, 5*time.Second, cfg.Marketplace.PollInterval)
			},
		},
		{
			name: "invalid port rejected",
			setupEnv: func() {
				os.Setenv("IDQ_SERVER_PORT", "70000")
			},
			wantErr:     true,
			errContains: "invalid server port",
		},
		{
			name: "inverted rating band rejected",
			setupEnv: func() {
				os.Setenv("IDQ_PIPELINE_RATING_FLOOR", "4.0")
				os.Setenv("IDQ_PIPELINE_RATING_CEILING", "3.5")
			},
			wantErr:     true,
			errContains: "rating floor",
		},
		{
			name: "unknown normalization strategy rejected",
			setupEnv: func() {
				os.Setenv("IDQ_PIPELINE_SKU_NORMALIZATION", "reverse")
			},
			wantErr:     true,
			errContains: "sku normalization",
		},
		{
			name: "concurrency below one is clamped",
			setupEnv: func() {
				os.Setenv("IDQ_PIPELINE_ENRICH_CONCURRENCY", "0")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1, cfg.Pipeline.EnrichConcurrency)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, envVar := range envVars {
				os.Unsetenv(envVar)
			}
			setupDirs(t)
			tt.setupEnv()

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
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

func TestDefaultMarkets(t *testing.T) {
	markets := DefaultMarkets()

	require.Len(t, markets, 9)
	for _, code := range []string{"UK", "DE", "FR", "NL", "BE", "ES", "IT", "PL", "SE"} {
		assert.NotEmpty(t, markets[code], "market %s should have an identifier", code)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, 0.1, cfg.Pipeline.RatingFloor)
	assert.Equal(t, 3.5, cfg.Pipeline.RatingCeiling)
	assert.Equal(t, 10, cfg.Marketplace.MaxPollAttempts)
	assert.Equal(t, 30*time.Second, cfg.Marketplace.PollInterval)
	assert.Equal(t, "both", cfg.Logging.Output)
}
