package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/YallaPapi/pubscrape-sub007/pkg/config"
	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/parse"
	"github.com/YallaPapi/pubscrape-sub007/pkg/queue"
	"github.com/YallaPapi/pubscrape-sub007/pkg/utils"
)

// PolicyEngine answers per-domain politeness questions derived from
// robots.txt.
type PolicyEngine interface {
	DerivePolicy(ctx context.Context, domain, userAgent string, maxPagesHint int) *models.CrawlPolicy
	IsAllowed(policy *models.CrawlPolicy, rawURL string) (bool, string)
}

// LinkClassifier labels a page's outbound links with page types and
// confidence scores.
type LinkClassifier interface {
	DiscoverLinks(anchors []models.Anchor, baseURL, domain, currentURL string) []models.DiscoveredLink
}

// ErrorClassifier maps failed fetches to error kinds and retry decisions
type ErrorClassifier interface {
	Classify(result *models.PageFetchResult) models.ErrorClassification
	PlanRetry(class models.ErrorClassification, attemptNumber int) models.RetryPlan
}

// FetchCollaborator fetches one page. Ordinary HTTP and network failures are
// reported inside the result, never as a panic; the timeout bounds the whole
// attempt.
type FetchCollaborator interface {
	FetchPage(ctx context.Context, rawURL string, timeout time.Duration) *models.PageFetchResult
}

// MetricsRecorder receives per-attempt bookkeeping. Implementations must be
// safe for concurrent use; it is the only state shared between sessions.
type MetricsRecorder interface {
	StartSession(sessionID, domain string)
	RecordRequest(sessionID, domain string, responseTimeMs int64, success bool, statusCode int, pageType models.PageType, errType models.ErrorType)
	RecordDiscovery(sessionID string, count int)
	EndSession(sessionID string) *models.SessionReport
}

// SiteCrawler drives one crawl session per domain: seed the home page,
// derive the domain policy, then loop fetch/classify/record until the
// frontier drains or a budget stops the run. All collaborators are injected;
// the crawler owns only the loop and the session state.
type SiteCrawler struct {
	policy    PolicyEngine
	fetcher   FetchCollaborator
	links     LinkClassifier
	errors    ErrorClassifier
	metrics   MetricsRecorder
	cfg       config.CrawlConfig
	userAgent string
	log       *logrus.Entry
}

// NewSiteCrawler wires a crawler from its collaborators
func NewSiteCrawler(
	policy PolicyEngine,
	fetcher FetchCollaborator,
	links LinkClassifier,
	errors ErrorClassifier,
	metrics MetricsRecorder,
	cfg config.CrawlConfig,
	userAgent string,
	log *logrus.Entry,
) *SiteCrawler {
	return &SiteCrawler{
		policy:    policy,
		fetcher:   fetcher,
		links:     links,
		errors:    errors,
		metrics:   metrics,
		cfg:       cfg,
		userAgent: userAgent,
		log:       log,
	}
}

// Crawl runs one bounded session seeded from startURL. It always returns the
// session with whatever was accumulated: completed when the frontier drained
// or a budget was reached, failed when the orchestration itself broke, and
// in_progress when the context was cancelled mid-run. The report is the
// closed metrics session.
func (c *SiteCrawler) Crawl(ctx context.Context, startURL string) (session *models.CrawlSession, report *models.SessionReport) {
	normalizedStart, parsed, err := parse.ParseAndNormalize(startURL)
	sessionID := uuid.New().String()

	if err != nil {
		session = models.NewCrawlSession(sessionID, startURL, startURL, c.cfg.MaxPages)
		session.Finalize(models.SessionStatusFailed)
		parseErr := fmt.Errorf("%w: invalid start URL: %v", utils.ErrParsing, err)
		c.log.WithFields(logrus.Fields{
			"start_url": startURL,
			"category":  utils.CategorizeError(parseErr),
		}).Errorf("%v", parseErr)
		return session, nil
	}

	domain := parse.CanonicalDomain(parsed.Hostname())
	session = models.NewCrawlSession(sessionID, domain, normalizedStart, c.cfg.MaxPages)
	sessionLog := c.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"domain":     domain,
	})

	c.metrics.StartSession(sessionID, domain)
	defer func() {
		// An orchestration fault must not discard partial results
		if r := recover(); r != nil {
			abortErr := fmt.Errorf("%w: %v", utils.ErrSessionAborted, r)
			sessionLog.WithFields(logrus.Fields{
				"panic":    r,
				"category": utils.CategorizeError(abortErr),
			}).Error("Session aborted by internal error")
			session.Finalize(models.SessionStatusFailed)
		}
		report = c.metrics.EndSession(sessionID)
	}()

	session.Status = models.SessionStatusInProgress
	session.StartTime = time.Now()
	sessionLog.WithField("max_pages", session.MaxPages).Info("Session started")

	// A zero budget completes before any network activity, including the
	// robots.txt fetch
	if session.BudgetExhausted() {
		session.Finalize(models.SessionStatusCompleted)
		sessionLog.Info("Zero page budget, nothing to crawl")
		return session, nil
	}

	policy := c.policy.DerivePolicy(ctx, domain, c.userAgent, c.cfg.MaxPages)
	frontier := queue.NewFrontier()
	seed := models.DiscoveredLink{URL: normalizedStart, PageType: models.PageTypeOther}
	frontier.Enqueue(seed, queue.LaneHigh)
	session.AddPending(normalizedStart)

	c.runLoop(ctx, session, policy, frontier, sessionLog)

	sessionLog.WithFields(logrus.Fields{
		"status":      session.Status,
		"crawled":     len(session.CrawledPages),
		"failed":      len(session.FailedURLs),
		"blocked":     len(session.BlockedURLs),
		"links":       len(session.DiscoveredLinks),
		"queued":      frontier.Len(),
		"queued_high": frontier.HighLen(),
	}).Info("Session finished")
	return session, nil
}

// runLoop is the session state machine. On return the session is terminal
// unless the context was cancelled.
func (c *SiteCrawler) runLoop(ctx context.Context, session *models.CrawlSession, policy *models.CrawlPolicy, frontier *queue.Frontier, sessionLog *logrus.Entry) {
	priority := prioritySet(c.cfg.PriorityTypes)
	attempts := make(map[string]int)
	firstFetch := true

	var deadline time.Time
	if c.cfg.SessionTimeBudget > 0 {
		deadline = time.Now().Add(c.cfg.SessionTimeBudget)
	}

	for {
		if ctx.Err() != nil {
			sessionLog.Warnf("Session interrupted: %v", ctx.Err())
			return
		}
		if session.BudgetExhausted() {
			sessionLog.WithField("category", utils.CategorizeError(utils.ErrBudgetExhausted)).Debug("Page budget reached")
			session.Finalize(models.SessionStatusCompleted)
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			sessionLog.Warn("Session time budget exceeded")
			session.Finalize(models.SessionStatusCompleted)
			return
		}

		link, ok := frontier.Pop()
		if !ok {
			session.Finalize(models.SessionStatusCompleted)
			return
		}
		urlStr := link.URL
		urlLog := sessionLog.WithField("url", urlStr)

		if session.IsResolved(urlStr) {
			delete(session.PendingURLs, urlStr)
			continue
		}

		if allowed, reason := c.policy.IsAllowed(policy, urlStr); !allowed {
			blockErr := fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, reason)
			urlLog.WithFields(logrus.Fields{
				"reason":   reason,
				"category": utils.CategorizeError(blockErr),
			}).Info("Skipping disallowed URL")
			session.MarkBlocked(urlStr, reason)
			continue
		}

		// Politeness delay between requests, skipped before the first fetch
		if !firstFetch {
			if !sleepCtx(ctx, c.effectiveDelay(policy)) {
				return
			}
		}
		firstFetch = false

		attempts[urlStr]++
		result := c.fetcher.FetchPage(ctx, urlStr, c.cfg.TimeoutPerPage)

		if result.Success {
			session.MarkCrawled(urlStr, result)
			discovered := c.discoverFrom(session, frontier, priority, result, urlStr)
			c.metrics.RecordRequest(session.SessionID, session.Domain, result.ResponseTimeMs, true, result.StatusCode, link.PageType, "")
			c.metrics.RecordDiscovery(session.SessionID, discovered)
			continue
		}

		class := c.errors.Classify(result)
		plan := c.errors.PlanRetry(class, attempts[urlStr])
		c.metrics.RecordRequest(session.SessionID, session.Domain, result.ResponseTimeMs, false, result.StatusCode, "", class.Type)

		if plan.ShouldRetry {
			urlLog.WithFields(logrus.Fields{
				"error_type": class.Type,
				"attempt":    attempts[urlStr],
				"delay":      plan.Delay,
			}).Warn("Retrying failed fetch")
			if !sleepCtx(ctx, plan.Delay) {
				return
			}
			frontier.Enqueue(link, laneFor(link.PageType, priority))
			continue
		}

		urlLog.WithFields(logrus.Fields{
			"error_type": class.Type,
			"reason":     plan.Reason,
		}).Warn("URL failed permanently")
		session.MarkFailed(urlStr, class.Type)
	}
}

// discoverFrom classifies the fetched page's anchors and feeds new links into
// the session and the frontier. Returns the number of newly recorded links.
func (c *SiteCrawler) discoverFrom(session *models.CrawlSession, frontier *queue.Frontier, priority map[models.PageType]bool, result *models.PageFetchResult, pageURL string) int {
	if !c.cfg.LinkDiscoveryEnabled() || len(result.Anchors) == 0 {
		return 0
	}

	base := pageURL
	if result.RedirectURL != "" {
		base = result.RedirectURL
	}
	links := c.links.DiscoverLinks(result.Anchors, base, session.Domain, pageURL)
	result.DiscoveredLinks = links

	recorded := 0
	for _, l := range links {
		if session.RecordLink(l.URL, l) {
			recorded++
		}
		if session.IsResolved(l.URL) {
			continue
		}
		// Already-queued URLs are promoted in place when rediscovered with a
		// priority classification
		if frontier.Enqueue(l, laneFor(l.PageType, priority)) {
			session.AddPending(l.URL)
		}
	}
	return recorded
}

// effectiveDelay is the larger of the policy delay and the configured
// between-page delay.
func (c *SiteCrawler) effectiveDelay(policy *models.CrawlPolicy) time.Duration {
	delay := policy.CrawlDelay
	if c.cfg.DelayBetweenPages > delay {
		delay = c.cfg.DelayBetweenPages
	}
	return delay
}

func prioritySet(types []models.PageType) map[models.PageType]bool {
	set := make(map[models.PageType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func laneFor(pageType models.PageType, priority map[models.PageType]bool) queue.Lane {
	if priority[pageType] {
		return queue.LaneHigh
	}
	return queue.LaneNormal
}

// sleepCtx waits for d unless the context is cancelled first. Returns false
// on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
