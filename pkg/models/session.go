package models

import "time"

// CrawlSession is one bounded crawl run over a single domain. It is owned
// exclusively by the SiteCrawler that created it; callers receive it only
// after the crawl loop has stopped. The mutators below maintain two
// invariants: a URL appears in at most one of {CrawledPages, FailedURLs,
// BlockedURLs}, and PendingURLs never overlaps those three sets.
type CrawlSession struct {
	SessionID string        `json:"session_id"`
	Domain    string        `json:"domain"`
	StartURL  string        `json:"start_url"`
	MaxPages  int           `json:"max_pages"`
	Status    SessionStatus `json:"status"`

	PendingURLs     map[string]bool             `json:"pending_urls,omitempty"`
	CrawledPages    map[string]*PageFetchResult `json:"crawled_pages,omitempty"`
	DiscoveredLinks map[string]DiscoveredLink   `json:"discovered_links,omitempty"`
	FailedURLs      map[string]ErrorType        `json:"failed_urls,omitempty"`
	BlockedURLs     map[string]string           `json:"blocked_urls,omitempty"` // url -> block reason

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// NewCrawlSession creates a session in the pending state. Keys of all URL
// sets are normalized URL strings; the caller is responsible for normalizing
// before any mutator call.
func NewCrawlSession(sessionID, domain, startURL string, maxPages int) *CrawlSession {
	return &CrawlSession{
		SessionID:       sessionID,
		Domain:          domain,
		StartURL:        startURL,
		MaxPages:        maxPages,
		Status:          SessionStatusPending,
		PendingURLs:     make(map[string]bool),
		CrawledPages:    make(map[string]*PageFetchResult),
		DiscoveredLinks: make(map[string]DiscoveredLink),
		FailedURLs:      make(map[string]ErrorType),
		BlockedURLs:     make(map[string]string),
	}
}

// IsResolved reports whether the URL already landed in a terminal set
// (crawled, failed, or blocked).
func (s *CrawlSession) IsResolved(normalizedURL string) bool {
	if _, ok := s.CrawledPages[normalizedURL]; ok {
		return true
	}
	if _, ok := s.FailedURLs[normalizedURL]; ok {
		return true
	}
	_, ok := s.BlockedURLs[normalizedURL]
	return ok
}

// AddPending records a URL as discovered-but-unfetched. Returns false if the
// URL is already pending or resolved, preserving the dedup invariant.
func (s *CrawlSession) AddPending(normalizedURL string) bool {
	if s.PendingURLs[normalizedURL] || s.IsResolved(normalizedURL) {
		return false
	}
	s.PendingURLs[normalizedURL] = true
	return true
}

// MarkCrawled moves a URL from pending into CrawledPages
func (s *CrawlSession) MarkCrawled(normalizedURL string, result *PageFetchResult) {
	delete(s.PendingURLs, normalizedURL)
	delete(s.FailedURLs, normalizedURL)
	delete(s.BlockedURLs, normalizedURL)
	s.CrawledPages[normalizedURL] = result
}

// MarkFailed moves a URL from pending into FailedURLs with its error kind
func (s *CrawlSession) MarkFailed(normalizedURL string, errType ErrorType) {
	delete(s.PendingURLs, normalizedURL)
	if s.IsResolved(normalizedURL) {
		return
	}
	s.FailedURLs[normalizedURL] = errType
}

// MarkBlocked moves a URL from pending into BlockedURLs. A policy block is a
// deliberate skip, not an error; no fetch is attempted for blocked URLs.
func (s *CrawlSession) MarkBlocked(normalizedURL, reason string) {
	delete(s.PendingURLs, normalizedURL)
	if s.IsResolved(normalizedURL) {
		return
	}
	s.BlockedURLs[normalizedURL] = reason
}

// RecordLink stores a discovered link, keeping the highest-confidence
// observation when the same normalized URL is seen again. Returns true if the
// stored value changed (new link or superseded by higher confidence).
func (s *CrawlSession) RecordLink(normalizedURL string, link DiscoveredLink) bool {
	existing, ok := s.DiscoveredLinks[normalizedURL]
	if ok && existing.Confidence >= link.Confidence {
		return false
	}
	s.DiscoveredLinks[normalizedURL] = link
	return true
}

// BudgetExhausted reports whether the page budget has been reached
func (s *CrawlSession) BudgetExhausted() bool {
	return len(s.CrawledPages) >= s.MaxPages
}

// Finalize stamps the end time and sets a terminal status. Safe to call once;
// later calls on a terminal session are no-ops.
func (s *CrawlSession) Finalize(status SessionStatus) {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = status
	s.EndTime = time.Now()
}
