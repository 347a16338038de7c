package config

import (
	"fmt"
	"time"

	"shopfinder/pkg/utils"
)

// Defaults applied by Validate when a field is unset or out of range.
const (
	DefaultUserAgent               = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultDelayPerHost            = 2 * time.Second
	DefaultNumWorkers              = 6
	DefaultMaxRequests             = 10
	DefaultMaxRequestsPerHost      = 2
	DefaultAttemptBudget           = 3
	DefaultInitialRetryDelay       = 1 * time.Second
	DefaultMaxRetryDelay           = 30 * time.Second
	DefaultMaxPageSizeBytes        = 2 * 1024 * 1024
	DefaultSemaphoreAcquireTimeout = 30 * time.Second
	DefaultStateDir                = "./state"
	DefaultOutputDir               = "./output"

	DefaultFingerprintSuffix = ".myshopify.com"
	DefaultMinTokenLen       = 2
	DefaultMaxTokenLen       = 63

	DefaultMaxDepth                 = 3
	DefaultMaxPagesPerQuery         = 100
	DefaultMaxConsecutiveEmptyPages = 10
	DefaultMaxFrontierSize          = 100000
)

// DefaultBlocklist lists reserved tokens that are never valid shop
// identifiers even when they match the grammar.
var DefaultBlocklist = []string{
	"www", "admin", "cdn", "login", "api", "shop", "store", "app",
	"com", "net", "org", "http", "https",
}

var knownSourceKinds = map[string]bool{
	"search":    true,
	"directory": true,
	"ctlog":     true,
	"list":      true,
}

// Validate checks the configuration, applies defaults in place for missing
// or invalid values, and returns warnings for every substitution. A non-nil
// error means the configuration is unusable even with defaults.
func (c *AppConfig) Validate() ([]string, error) {
	var warnings []string

	if c.UserAgent == "" {
		warnings = append(warnings, fmt.Sprintf("user_agent is empty, using default %q", DefaultUserAgent))
		c.UserAgent = DefaultUserAgent
	}
	if c.DelayPerHost <= 0 {
		warnings = append(warnings, fmt.Sprintf("delay_per_host must be positive, using default %v", DefaultDelayPerHost))
		c.DelayPerHost = DefaultDelayPerHost
	}
	if c.NumWorkers <= 0 {
		warnings = append(warnings, fmt.Sprintf("num_workers must be positive, using default %d", DefaultNumWorkers))
		c.NumWorkers = DefaultNumWorkers
	}
	if c.MaxRequests <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_requests must be positive, using default %d", DefaultMaxRequests))
		c.MaxRequests = DefaultMaxRequests
	}
	if c.MaxRequestsPerHost <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_requests_per_host must be positive, using default %d", DefaultMaxRequestsPerHost))
		c.MaxRequestsPerHost = DefaultMaxRequestsPerHost
	}
	if c.MaxRequestsPerHost > c.MaxRequests {
		warnings = append(warnings, fmt.Sprintf("max_requests_per_host (%d) exceeds max_requests (%d), clamping", c.MaxRequestsPerHost, c.MaxRequests))
		c.MaxRequestsPerHost = c.MaxRequests
	}
	if c.AttemptBudget <= 0 {
		warnings = append(warnings, fmt.Sprintf("attempt_budget must be positive, using default %d", DefaultAttemptBudget))
		c.AttemptBudget = DefaultAttemptBudget
	}
	if c.InitialRetryDelay <= 0 {
		warnings = append(warnings, fmt.Sprintf("initial_retry_delay must be positive, using default %v", DefaultInitialRetryDelay))
		c.InitialRetryDelay = DefaultInitialRetryDelay
	}
	if c.MaxRetryDelay < c.InitialRetryDelay {
		warnings = append(warnings, fmt.Sprintf("max_retry_delay below initial_retry_delay, using default %v", DefaultMaxRetryDelay))
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if c.MaxPageSizeBytes <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_page_size_bytes must be positive, using default %d", DefaultMaxPageSizeBytes))
		c.MaxPageSizeBytes = DefaultMaxPageSizeBytes
	}
	if c.SemaphoreAcquireTimeout <= 0 {
		warnings = append(warnings, fmt.Sprintf("semaphore_acquire_timeout must be positive, using default %v", DefaultSemaphoreAcquireTimeout))
		c.SemaphoreAcquireTimeout = DefaultSemaphoreAcquireTimeout
	}
	if c.GlobalTimeout < 0 {
		warnings = append(warnings, "global_timeout is negative, disabling")
		c.GlobalTimeout = 0
	}
	if c.StateDir == "" {
		warnings = append(warnings, fmt.Sprintf("state_dir is empty, using default %q", DefaultStateDir))
		c.StateDir = DefaultStateDir
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}

	if c.HostRateLimit.Requests < 0 {
		warnings = append(warnings, "host_rate_limit.requests is negative, disabling token bucket")
		c.HostRateLimit = HostRateLimitConfig{}
	}
	if c.HostRateLimit.Requests > 0 && c.HostRateLimit.Window <= 0 {
		warnings = append(warnings, "host_rate_limit.window must be positive when requests is set, using 1m")
		c.HostRateLimit.Window = time.Minute
	}

	warnings = append(warnings, c.Fingerprint.validate()...)
	warnings = append(warnings, c.Limits.validate()...)

	enabled := 0
	for name, src := range c.Sources {
		srcWarnings, err := src.validate(name)
		if err != nil {
			return warnings, err
		}
		warnings = append(warnings, srcWarnings...)
		c.Sources[name] = src
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return warnings, utils.WrapErrorf(utils.ErrConfigValidation, "no enabled sources configured")
	}

	return warnings, nil
}

func (f *FingerprintConfig) validate() []string {
	var warnings []string
	if f.Suffix == "" {
		warnings = append(warnings, fmt.Sprintf("fingerprint.suffix is empty, using default %q", DefaultFingerprintSuffix))
		f.Suffix = DefaultFingerprintSuffix
	}
	if f.Suffix[0] != '.' {
		warnings = append(warnings, fmt.Sprintf("fingerprint.suffix %q missing leading dot, prepending", f.Suffix))
		f.Suffix = "." + f.Suffix
	}
	if len(f.Blocklist) == 0 {
		f.Blocklist = append([]string(nil), DefaultBlocklist...)
	}
	if f.MinTokenLen <= 0 {
		f.MinTokenLen = DefaultMinTokenLen
	}
	if f.MaxTokenLen <= 0 || f.MaxTokenLen > 63 {
		if f.MaxTokenLen > 63 {
			warnings = append(warnings, fmt.Sprintf("fingerprint.max_token_len %d exceeds DNS label limit, using %d", f.MaxTokenLen, DefaultMaxTokenLen))
		}
		f.MaxTokenLen = DefaultMaxTokenLen
	}
	if f.MinTokenLen > f.MaxTokenLen {
		warnings = append(warnings, fmt.Sprintf("fingerprint.min_token_len %d exceeds max_token_len %d, using defaults", f.MinTokenLen, f.MaxTokenLen))
		f.MinTokenLen = DefaultMinTokenLen
		f.MaxTokenLen = DefaultMaxTokenLen
	}
	return warnings
}

func (l *LimitsConfig) validate() []string {
	var warnings []string
	if l.MaxDepth <= 0 {
		warnings = append(warnings, fmt.Sprintf("limits.max_depth must be positive, using default %d", DefaultMaxDepth))
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxPagesPerQuery <= 0 {
		warnings = append(warnings, fmt.Sprintf("limits.max_pages_per_query must be positive, using default %d", DefaultMaxPagesPerQuery))
		l.MaxPagesPerQuery = DefaultMaxPagesPerQuery
	}
	if l.MaxConsecutiveEmptyPages <= 0 {
		warnings = append(warnings, fmt.Sprintf("limits.max_consecutive_empty_pages must be positive, using default %d", DefaultMaxConsecutiveEmptyPages))
		l.MaxConsecutiveEmptyPages = DefaultMaxConsecutiveEmptyPages
	}
	if l.MaxFrontierSize <= 0 {
		l.MaxFrontierSize = DefaultMaxFrontierSize
	}
	if l.MaxResults < 0 {
		warnings = append(warnings, "limits.max_results is negative, treating as unlimited")
		l.MaxResults = 0
	}
	return warnings
}

func (s *SourceConfig) validate(name string) ([]string, error) {
	var warnings []string
	if !knownSourceKinds[s.Kind] {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "source %q has unknown kind %q", name, s.Kind)
	}
	if !s.Enabled {
		return nil, nil
	}
	switch s.Kind {
	case "search":
		if s.URLTemplate == "" {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "search source %q requires url_template", name)
		}
		if len(s.Queries) == 0 {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "search source %q requires at least one query", name)
		}
		if s.PageStep <= 0 {
			warnings = append(warnings, fmt.Sprintf("search source %q page_step must be positive, using 10", name))
			s.PageStep = 10
		}
	case "directory":
		if s.BaseURL == "" {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "directory source %q requires base_url", name)
		}
		if len(s.CategoryPaths) == 0 {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "directory source %q requires category_paths", name)
		}
		if s.NextSelector == "" {
			warnings = append(warnings, fmt.Sprintf("directory source %q next_selector is empty, pagination disabled", name))
		}
	case "ctlog":
		if s.Endpoint == "" {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "ctlog source %q requires endpoint", name)
		}
	case "list":
		if s.File == "" {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "list source %q requires file", name)
		}
	}
	return warnings, nil
}
