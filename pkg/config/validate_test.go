package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func minimalSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		"custom": {Kind: "list", Enabled: true, File: "urls.txt"},
	}
}

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{Sources: minimalSources()}
	warnings, err := cfg.Validate()

	require.NoError(t, err)

	assert.Equal(t, DefaultNumWorkers, cfg.NumWorkers)
	assert.Equal(t, DefaultMaxRequests, cfg.MaxRequests)
	assert.Equal(t, DefaultMaxRequestsPerHost, cfg.MaxRequestsPerHost)
	assert.Equal(t, DefaultAttemptBudget, cfg.AttemptBudget)
	assert.Equal(t, DefaultDelayPerHost, cfg.DelayPerHost)
	assert.Equal(t, DefaultInitialRetryDelay, cfg.InitialRetryDelay)
	assert.Equal(t, DefaultMaxRetryDelay, cfg.MaxRetryDelay)
	assert.Equal(t, DefaultSemaphoreAcquireTimeout, cfg.SemaphoreAcquireTimeout)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Dir)

	assert.Equal(t, DefaultFingerprintSuffix, cfg.Fingerprint.Suffix)
	assert.Equal(t, DefaultBlocklist, cfg.Fingerprint.Blocklist)
	assert.Equal(t, DefaultMinTokenLen, cfg.Fingerprint.MinTokenLen)
	assert.Equal(t, DefaultMaxTokenLen, cfg.Fingerprint.MaxTokenLen)

	assert.Equal(t, DefaultMaxDepth, cfg.Limits.MaxDepth)
	assert.Equal(t, DefaultMaxPagesPerQuery, cfg.Limits.MaxPagesPerQuery)
	assert.Equal(t, DefaultMaxConsecutiveEmptyPages, cfg.Limits.MaxConsecutiveEmptyPages)
	assert.Equal(t, DefaultMaxFrontierSize, cfg.Limits.MaxFrontierSize)

	assert.True(t, containsWarning(warnings, "num_workers"))
	assert.True(t, containsWarning(warnings, "delay_per_host"))
	assert.True(t, containsWarning(warnings, "state_dir"))
	assert.True(t, containsWarning(warnings, "fingerprint.suffix"))
}

func TestAppConfig_Validate_ValidConfigKeepsValues(t *testing.T) {
	cfg := AppConfig{
		UserAgent:          "agent/1.0",
		DelayPerHost:       5 * time.Second,
		NumWorkers:         12,
		MaxRequests:        40,
		MaxRequestsPerHost: 4,
		AttemptBudget:      5,
		InitialRetryDelay:  2 * time.Second,
		MaxRetryDelay:      time.Minute,
		StateDir:           "/state",
		Fingerprint: FingerprintConfig{
			Suffix:      ".myshopify.com",
			Blocklist:   []string{"www"},
			MinTokenLen: 3,
			MaxTokenLen: 40,
		},
		Limits: LimitsConfig{
			MaxDepth:                 2,
			MaxPagesPerQuery:         20,
			MaxConsecutiveEmptyPages: 5,
		},
		Sources: minimalSources(),
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.False(t, containsWarning(warnings, "num_workers"))
	assert.False(t, containsWarning(warnings, "delay_per_host"))
	assert.Equal(t, 12, cfg.NumWorkers)
	assert.Equal(t, []string{"www"}, cfg.Fingerprint.Blocklist)
	assert.Equal(t, 20, cfg.Limits.MaxPagesPerQuery)
}

func TestAppConfig_Validate_SuffixDotPrepended(t *testing.T) {
	cfg := AppConfig{
		Fingerprint: FingerprintConfig{Suffix: "myshopify.com"},
		Sources:     minimalSources(),
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, ".myshopify.com", cfg.Fingerprint.Suffix)
	assert.True(t, containsWarning(warnings, "missing leading dot"))
}

func TestAppConfig_Validate_NoEnabledSources(t *testing.T) {
	cfg := AppConfig{
		Sources: map[string]SourceConfig{
			"off": {Kind: "list", Enabled: false, File: "urls.txt"},
		},
	}

	_, err := cfg.Validate()
	assert.Error(t, err)
}

func TestAppConfig_Validate_UnknownSourceKind(t *testing.T) {
	cfg := AppConfig{
		Sources: map[string]SourceConfig{
			"weird": {Kind: "carrier-pigeon", Enabled: true},
		},
	}

	_, err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestSourceConfig_Validate_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		src  SourceConfig
	}{
		{"search missing template", SourceConfig{Kind: "search", Enabled: true, Queries: []string{"q"}}},
		{"search missing queries", SourceConfig{Kind: "search", Enabled: true, URLTemplate: "https://s.test?q={query}&o={offset}"}},
		{"directory missing base", SourceConfig{Kind: "directory", Enabled: true, CategoryPaths: []string{"/c"}}},
		{"directory missing categories", SourceConfig{Kind: "directory", Enabled: true, BaseURL: "https://d.test"}},
		{"ctlog missing endpoint", SourceConfig{Kind: "ctlog", Enabled: true}},
		{"list missing file", SourceConfig{Kind: "list", Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Sources: map[string]SourceConfig{"s": tt.src}}
			_, err := cfg.Validate()
			assert.Error(t, err)
		})
	}
}

func TestSourceConfig_Validate_PageStepDefault(t *testing.T) {
	cfg := AppConfig{
		Sources: map[string]SourceConfig{
			"bing": {
				Kind:        "search",
				Enabled:     true,
				URLTemplate: "https://s.test?q={query}&first={offset}",
				Queries:     []string{"shoes"},
			},
		},
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Sources["bing"].PageStep)
	assert.True(t, containsWarning(warnings, "page_step"))
}

func TestAppConfig_Validate_DisabledSourcesSkipFieldChecks(t *testing.T) {
	cfg := AppConfig{
		Sources: map[string]SourceConfig{
			"on":  {Kind: "list", Enabled: true, File: "urls.txt"},
			"off": {Kind: "search", Enabled: false}, // missing fields, but disabled
		},
	}

	_, err := cfg.Validate()
	assert.NoError(t, err)
}
