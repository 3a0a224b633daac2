package config

import (
	"fmt"
	"time"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/utils"
)

// DefaultUserAgent identifies the crawler when none is configured
const DefaultUserAgent = "pubscrape-sitecrawl/1.0"

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// DefaultCrawlDelay: conservative politeness floor when robots is silent
	if c.DefaultCrawlDelay < 0 {
		warnings = append(warnings, "default_crawl_delay cannot be negative, defaulting to 1s")
		c.DefaultCrawlDelay = time.Second
	}
	if c.DefaultCrawlDelay == 0 {
		c.DefaultCrawlDelay = time.Second
	}

	// MaxCrawlDelay caps hostile robots crawl-delay values
	if c.MaxCrawlDelay <= 0 {
		c.MaxCrawlDelay = 60 * time.Second
	}

	if c.PolicyCacheTTL <= 0 {
		c.PolicyCacheTTL = 30 * time.Minute
	}

	if c.GlobalCrawlTimeout < 0 {
		warnings = append(warnings, "global_crawl_timeout cannot be negative, disabling timeout")
		c.GlobalCrawlTimeout = 0
	}

	if c.StateDir == "" {
		c.StateDir = "./crawl_state"
	}

	crawlWarnings, crawlErr := c.Crawl.Validate()
	warnings = append(warnings, crawlWarnings...)
	if crawlErr != nil {
		return warnings, crawlErr
	}

	batchWarnings := c.Batch.validate()
	warnings = append(warnings, batchWarnings...)

	c.validateRetrySettings(&warnings)
	c.validateHTTPClientSettings()

	return warnings, nil
}

// Validate checks CrawlConfig fields and applies defaults.
// Modifies receiver in place.
func (c *CrawlConfig) Validate() (warnings []string, err error) {
	if c.MaxPages < 0 {
		return nil, fmt.Errorf("%w: max_pages cannot be negative", utils.ErrConfigValidation)
	}
	if c.MaxPages == 0 {
		warnings = append(warnings, "max_pages is 0; sessions will complete immediately without crawling")
	}

	for _, pt := range c.PriorityTypes {
		if !pt.IsValid() {
			return nil, fmt.Errorf("%w: unknown priority page type %q", utils.ErrConfigValidation, pt)
		}
	}
	if len(c.PriorityTypes) == 0 {
		c.PriorityTypes = []models.PageType{models.PageTypeContact, models.PageTypeAbout}
	}

	if c.TimeoutPerPage <= 0 {
		c.TimeoutPerPage = 30 * time.Second
	}

	if c.DelayBetweenPages < 0 {
		warnings = append(warnings, "delay_between_pages cannot be negative, setting to 0")
		c.DelayBetweenPages = 0
	}

	if c.MaxLinksPerPage <= 0 {
		c.MaxLinksPerPage = 50
	}

	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		return nil, fmt.Errorf("%w: min_confidence_threshold must be in [0,1], got %v",
			utils.ErrConfigValidation, c.MinConfidenceThreshold)
	}
	if c.MinConfidenceThreshold == 0 {
		c.MinConfidenceThreshold = 0.3
	}

	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}

	if c.SessionTimeBudget < 0 {
		warnings = append(warnings, "session_time_budget cannot be negative, disabling budget")
		c.SessionTimeBudget = 0
	}

	return warnings, nil
}

func (c *BatchConfig) validate() (warnings []string) {
	if c.ConcurrencyLimit <= 0 {
		warnings = append(warnings, "concurrency_limit should be > 0, defaulting to 4")
		c.ConcurrencyLimit = 4
	}
	if c.InterDomainDelay < 0 {
		warnings = append(warnings, "inter_domain_delay cannot be negative, setting to 0")
		c.InterDomainDelay = 0
	}
	return warnings
}

func (c *AppConfig) validateRetrySettings(warnings *[]string) {
	r := &c.Retry
	if r.BaseDelay <= 0 {
		r.BaseDelay = 1 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = 30 * time.Second
	}
	if r.BaseDelay > r.MaxDelay {
		*warnings = append(*warnings, fmt.Sprintf(
			"retry base_delay (%v) > max_delay (%v), using max_delay as base",
			r.BaseDelay, r.MaxDelay))
		r.BaseDelay = r.MaxDelay
	}
	if r.FixedDelay <= 0 {
		r.FixedDelay = 5 * time.Second
	}
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
