package models

import "time"

// Anchor is the raw link data a fetch collaborator extracts from a page.
// It carries enough context for the link classifier to operate without
// re-parsing the HTML.
type Anchor struct {
	Href  string `json:"href"`            // As found in the document (may be relative)
	Text  string `json:"text,omitempty"`  // Visible link text
	Title string `json:"title,omitempty"` // title attribute, if any
	InNav bool   `json:"in_nav"`          // Link sits inside a nav/menu container
}

// DiscoveredLink is a classified outbound link. Immutable once created;
// rediscovery with higher confidence supersedes (replaces) the old value
// rather than mutating it.
type DiscoveredLink struct {
	URL              string   `json:"url"` // Absolute, deduplicated by normalized form
	PageType         PageType `json:"page_type"`
	LinkText         string   `json:"link_text,omitempty"`
	Confidence       float64  `json:"confidence"` // In [0,1]
	DiscoveredOnPage string   `json:"discovered_on_page"`
	ContextSnippet   string   `json:"context_snippet,omitempty"`
}

// PageFetchResult records one attempted fetch. Owned exclusively by the
// session that requested it; never shared across sessions.
type PageFetchResult struct {
	URL             string           `json:"url"`
	Success         bool             `json:"success"`
	StatusCode      int              `json:"status_code,omitempty"`
	ResponseTimeMs  int64            `json:"response_time_ms"`
	ContentLength   int64            `json:"content_length,omitempty"`
	ContentType     string           `json:"content_type,omitempty"`
	RedirectURL     string           `json:"redirect_url,omitempty"`
	Error           string           `json:"error,omitempty"`
	BodySample      string           `json:"-"` // First bytes of the body, for block-signature checks
	Anchors         []Anchor         `json:"-"` // Raw anchors for the classifier; not persisted
	DiscoveredLinks []DiscoveredLink `json:"discovered_links,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// CrawlPolicy is the per-domain rate/permission contract derived from
// robots.txt. Derived once at session start and read-only afterwards.
type CrawlPolicy struct {
	Domain                 string        `json:"domain"`
	MaxPages               int           `json:"max_pages"`
	CrawlDelay             time.Duration `json:"crawl_delay"`
	DisallowedPathPatterns []string      `json:"disallowed_path_patterns,omitempty"`
	AllowedPathPatterns    []string      `json:"allowed_path_patterns,omitempty"`
	RobotsTxtFound         bool          `json:"robots_txt_found"`
}

// ErrorClassification maps a failed fetch to an error kind and retry decision.
// Computed per failed attempt; not persisted beyond a metrics tally.
type ErrorClassification struct {
	Type       ErrorType     `json:"type"`
	Retryable  bool          `json:"retryable"`
	Strategy   RetryStrategy `json:"strategy"`
	MaxRetries int           `json:"max_retries"`
}

// RetryPlan is the decision for one specific retry attempt
type RetryPlan struct {
	ShouldRetry bool          `json:"should_retry"`
	Delay       time.Duration `json:"delay"`
	Reason      string        `json:"reason"`
}

// SessionReport summarizes a closed metrics session for downstream
// export/reporting. Plain serializable record; no export format implied.
type SessionReport struct {
	SessionID         string           `json:"session_id"`
	Domain            string           `json:"domain"`
	StartTime         time.Time        `json:"start_time"`
	EndTime           time.Time        `json:"end_time"`
	DurationMinutes   float64          `json:"duration_minutes"`
	RequestCount      int64            `json:"request_count"`
	SuccessCount      int64            `json:"success_count"`
	SuccessRate       float64          `json:"success_rate"`
	FailuresByType    map[string]int64 `json:"failures_by_type,omitempty"`
	PagesByType       map[string]int64 `json:"pages_by_type,omitempty"`
	LinksDiscovered   int64            `json:"links_discovered"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
	ResponseTimeDist  map[string]int64 `json:"response_time_dist,omitempty"` // bucket label -> count
}
