package config

import "time"

// SourceConfig describes one discovery source. Kind selects the provider
// implementation; the remaining fields are interpreted per kind.
type SourceConfig struct {
	Kind    string `yaml:"kind"` // "search", "directory", "ctlog" or "list"
	Enabled bool   `yaml:"enabled"`

	// search: URLTemplate contains {query} and {offset} placeholders.
	URLTemplate string   `yaml:"url_template,omitempty"`
	Queries     []string `yaml:"queries,omitempty"`
	PageStep    int      `yaml:"page_step,omitempty"` // Offset increment per result page

	// directory: category listing pages followed via a next-page link.
	BaseURL       string   `yaml:"base_url,omitempty"`
	CategoryPaths []string `yaml:"category_paths,omitempty"`
	NextSelector  string   `yaml:"next_selector,omitempty"` // CSS selector for the next-page anchor

	// ctlog: certificate-transparency JSON endpoint (crt.sh style).
	Endpoint string `yaml:"endpoint,omitempty"`

	// list: local file with one URL per line.
	File string `yaml:"file,omitempty"`
}

// FingerprintConfig defines the platform marker being hunted and the rules
// for accepting extracted identifier tokens.
type FingerprintConfig struct {
	Suffix      string   `yaml:"suffix"`                  // e.g. ".myshopify.com"
	Blocklist   []string `yaml:"blocklist,omitempty"`     // Reserved tokens never accepted
	MinTokenLen int      `yaml:"min_token_len,omitempty"` // Identifier grammar bounds
	MaxTokenLen int      `yaml:"max_token_len,omitempty"`
}

// LimitsConfig bounds a run. All limits are per the termination policy:
// the first satisfied condition wins.
type LimitsConfig struct {
	MaxDepth                 int `yaml:"max_depth"`
	MaxPagesPerQuery         int `yaml:"max_pages_per_query"`
	MaxConsecutiveEmptyPages int `yaml:"max_consecutive_empty_pages"`
	MaxFrontierSize          int `yaml:"max_frontier_size,omitempty"` // Overflow is dropped with a warning
	MaxResults               int `yaml:"max_results,omitempty"`       // 0 = unlimited
}

// HostRateLimitConfig enables an optional token bucket per host, on top of
// the minimum inter-request delay.
type HostRateLimitConfig struct {
	Requests int           `yaml:"requests,omitempty"`
	Window   time.Duration `yaml:"window,omitempty"`
}

// OutputConfig names the sink targets written after a run.
type OutputConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	JSONFile   string `yaml:"json_file,omitempty"`
	CSVFile    string `yaml:"csv_file,omitempty"`
	ReportFile string `yaml:"report_file,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent               string                  `yaml:"user_agent"`
	RotateUserAgents        bool                    `yaml:"rotate_user_agents,omitempty"`
	ExtraUserAgents         []string                `yaml:"extra_user_agents,omitempty"`
	DelayPerHost            time.Duration           `yaml:"delay_per_host"`
	HostRateLimit           HostRateLimitConfig     `yaml:"host_rate_limit,omitempty"`
	NumWorkers              int                     `yaml:"num_workers"`
	MaxRequests             int                     `yaml:"max_requests"`
	MaxRequestsPerHost      int                     `yaml:"max_requests_per_host"`
	AttemptBudget           int                     `yaml:"attempt_budget,omitempty"`
	InitialRetryDelay       time.Duration           `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay           time.Duration           `yaml:"max_retry_delay,omitempty"`
	MaxPageSizeBytes        int64                   `yaml:"max_page_size_bytes,omitempty"`
	SemaphoreAcquireTimeout time.Duration           `yaml:"semaphore_acquire_timeout,omitempty"`
	GlobalTimeout           time.Duration           `yaml:"global_timeout,omitempty"`
	StateDir                string                  `yaml:"state_dir"`
	Fingerprint             FingerprintConfig       `yaml:"fingerprint"`
	Limits                  LimitsConfig            `yaml:"limits"`
	HTTPClientSettings      HTTPClientConfig        `yaml:"http_client_settings,omitempty"`
	Sources                 map[string]SourceConfig `yaml:"sources"`
	Output                  OutputConfig            `yaml:"output,omitempty"`
}

// EnabledSources returns the names of all enabled source definitions.
func (c *AppConfig) EnabledSources() []string {
	var names []string
	for name, src := range c.Sources {
		if src.Enabled {
			names = append(names, name)
		}
	}
	return names
}
