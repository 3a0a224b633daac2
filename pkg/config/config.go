package config

import (
	"time"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

// CrawlConfig holds per-session crawl options. Every recognized option is
// enumerated here with an explicit default applied by Validate; nothing is
// passed as free-form key/value pairs.
type CrawlConfig struct {
	MaxPages               int               `yaml:"max_pages"`                // Page budget per domain (>= 0; 0 crawls nothing)
	PriorityTypes          []models.PageType `yaml:"priority_types,omitempty"` // Page types fetched before generic pages
	TimeoutPerPage         time.Duration     `yaml:"timeout_per_page,omitempty"`
	DelayBetweenPages      time.Duration     `yaml:"delay_between_pages,omitempty"` // Requested minimum; robots crawl-delay may raise it
	EnableLinkDiscovery    *bool             `yaml:"enable_link_discovery,omitempty"`
	MaxLinksPerPage        int               `yaml:"max_links_per_page,omitempty"`
	MinConfidenceThreshold float64           `yaml:"min_confidence_threshold,omitempty"` // In [0,1]
	MaxRetries             int               `yaml:"max_retries,omitempty"`
	SessionTimeBudget      time.Duration     `yaml:"session_time_budget,omitempty"` // Wall-clock budget per session (0 = unlimited)
}

// LinkDiscoveryEnabled resolves the tri-state enable flag (nil = enabled)
func (c *CrawlConfig) LinkDiscoveryEnabled() bool {
	if c.EnableLinkDiscovery == nil {
		return true
	}
	return *c.EnableLinkDiscovery
}

// BatchConfig holds options for crawling many domains
type BatchConfig struct {
	ConcurrencyLimit    int           `yaml:"concurrency_limit,omitempty"` // Max concurrent domain sessions
	InterDomainDelay    time.Duration `yaml:"inter_domain_delay,omitempty"`
	AbortOnFirstFailure bool          `yaml:"abort_on_first_failure,omitempty"`
}

// RetryConfig holds backoff timing shared by all sessions
type RetryConfig struct {
	BaseDelay  time.Duration `yaml:"base_delay,omitempty"`  // Exponential backoff base
	MaxDelay   time.Duration `yaml:"max_delay,omitempty"`   // Backoff ceiling
	FixedDelay time.Duration `yaml:"fixed_delay,omitempty"` // Delay for fixed_delay strategy
}

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent,omitempty"`
	Domains            []string         `yaml:"domains,omitempty"` // Seed domains for batch runs
	DefaultCrawlDelay  time.Duration    `yaml:"default_crawl_delay,omitempty"` // Used when robots.txt is absent or silent
	MaxCrawlDelay      time.Duration    `yaml:"max_crawl_delay,omitempty"`     // Cap on robots-requested delays
	PolicyCacheTTL     time.Duration    `yaml:"policy_cache_ttl,omitempty"`
	GlobalCrawlTimeout time.Duration    `yaml:"global_crawl_timeout,omitempty"` // 0 = no timeout
	StateDir           string           `yaml:"state_dir,omitempty"`
	ArchiveSessions    bool             `yaml:"archive_sessions,omitempty"` // Persist session results to the state DB
	Crawl              CrawlConfig      `yaml:"crawl,omitempty"`
	Batch              BatchConfig      `yaml:"batch,omitempty"`
	Retry              RetryConfig      `yaml:"retry,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}
