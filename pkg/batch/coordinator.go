package batch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/YallaPapi/pubscrape-sub007/pkg/config"
	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

// How often a running batch reports its completion count
const progressInterval = 30 * time.Second

// SessionRunner runs one crawl session. Implementations must be safe to
// invoke concurrently; each call owns its session state exclusively.
type SessionRunner interface {
	Crawl(ctx context.Context, startURL string) (*models.CrawlSession, *models.SessionReport)
}

// Result pairs one requested domain with its finished session
type Result struct {
	Domain  string                `json:"domain"`
	Session *models.CrawlSession  `json:"session"`
	Report  *models.SessionReport `json:"report,omitempty"`
}

// Coordinator fans one SessionRunner out over many domains with bounded
// concurrency and inter-domain pacing. Per-domain failures are recorded and
// the batch continues unless AbortOnFirstFailure is set.
type Coordinator struct {
	runner        SessionRunner
	cfg           config.BatchConfig
	priorityTypes []models.PageType
	log           *logrus.Entry
}

// NewCoordinator creates a batch coordinator. priorityTypes selects which
// page types count as high-priority in the aggregated link view.
func NewCoordinator(runner SessionRunner, cfg config.BatchConfig, priorityTypes []models.PageType, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		runner:        runner,
		cfg:           cfg,
		priorityTypes: priorityTypes,
		log:           log,
	}
}

// CrawlDomains runs a session per domain, at most ConcurrencyLimit at a
// time, pacing launches by InterDomainDelay. Every requested domain has an
// entry in the returned map regardless of completion order or outcome; no
// session failure escapes as a panic or lost entry.
func (c *Coordinator) CrawlDomains(ctx context.Context, domains []string) map[string]*Result {
	limit := int64(c.cfg.ConcurrencyLimit)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	results := make(map[string]*Result, len(domains))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.log.WithFields(logrus.Fields{
		"domains":     len(domains),
		"concurrency": limit,
	}).Info("Batch crawl started")

	var completed atomic.Int64
	progressDone := make(chan struct{})
	defer close(progressDone)
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.log.WithFields(logrus.Fields{
					"completed": completed.Load(),
					"total":     len(domains),
				}).Info("Batch crawl progress")
			case <-progressDone:
				return
			}
		}
	}()

	for i, domain := range domains {
		if i > 0 && c.cfg.InterDomainDelay > 0 {
			select {
			case <-time.After(c.cfg.InterDomainDelay):
			case <-runCtx.Done():
			}
		}
		if runCtx.Err() != nil {
			// Aborted or cancelled: record the remaining domains as not run
			resultsMu.Lock()
			for _, d := range domains[i:] {
				if _, ok := results[d]; !ok {
					results[d] = &Result{Domain: d}
				}
			}
			resultsMu.Unlock()
			break
		}

		if err := sem.Acquire(runCtx, 1); err != nil {
			resultsMu.Lock()
			results[domain] = &Result{Domain: domain}
			resultsMu.Unlock()
			continue
		}

		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			defer sem.Release(1)

			session, report := c.runner.Crawl(runCtx, startURLFor(domain))

			resultsMu.Lock()
			results[domain] = &Result{Domain: domain, Session: session, Report: report}
			resultsMu.Unlock()
			completed.Add(1)

			if session != nil && session.Status == models.SessionStatusFailed {
				c.log.WithField("domain", domain).Warn("Domain session failed")
				if c.cfg.AbortOnFirstFailure {
					cancel()
				}
			}
		}(domain)
	}

	wg.Wait()
	c.log.WithField("domains", len(results)).Info("Batch crawl finished")
	return results
}

// PriorityLinks aggregates the high-priority discovered links across all
// sessions in a batch result, sorted by confidence descending.
func (c *Coordinator) PriorityLinks(results map[string]*Result) []models.DiscoveredLink {
	priority := make(map[models.PageType]bool, len(c.priorityTypes))
	for _, t := range c.priorityTypes {
		priority[t] = true
	}

	var links []models.DiscoveredLink
	for _, r := range results {
		if r.Session == nil {
			continue
		}
		for _, l := range r.Session.DiscoveredLinks {
			if priority[l.PageType] {
				links = append(links, l)
			}
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Confidence != links[j].Confidence {
			return links[i].Confidence > links[j].Confidence
		}
		return links[i].URL < links[j].URL
	})
	return links
}

// startURLFor seeds a session from a bare domain or a full URL
func startURLFor(domain string) string {
	if strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain + "/"
}
