package policy

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/parse"
)

// RobotsFetcher retrieves a domain's robots.txt. Implementations must return
// found=false (not an error) when the file is absent; errors are reserved for
// transport-level failures.
type RobotsFetcher interface {
	FetchRobotsTxt(ctx context.Context, domain string) (body []byte, found bool, err error)
}

// Options tunes policy derivation
type Options struct {
	RequestedMinDelay time.Duration // Caller's politeness floor; robots may raise it
	DefaultDelay      time.Duration // Used when robots.txt is absent or names no delay
	MaxDelay          time.Duration // Cap on robots-requested delays (0 = uncapped)
}

// Engine derives per-domain crawl policies from robots.txt and answers
// allow/deny questions against them. Beyond the robots.txt fetch it is a pure
// function over its inputs; all memory lives in the injected cache.
type Engine struct {
	robots RobotsFetcher
	cache  *Cache
	opts   Options
	log    *logrus.Entry
}

// NewEngine creates a policy engine. The cache is required and owned by the
// caller so its lifetime is explicit.
func NewEngine(robots RobotsFetcher, cache *Cache, opts Options, log *logrus.Entry) *Engine {
	return &Engine{
		robots: robots,
		cache:  cache,
		opts:   opts,
		log:    log,
	}
}

// DerivePolicy fetches and parses robots.txt for the domain and returns an
// enforceable policy. Absence of robots.txt never blocks crawling: the
// fallback is a permissive policy with a conservative default delay and no
// disallowed paths.
func (e *Engine) DerivePolicy(ctx context.Context, domain, userAgent string, maxPagesHint int) *models.CrawlPolicy {
	domain = parse.CanonicalDomain(domain)
	domainLog := e.log.WithField("domain", domain)

	if entry, ok := e.cache.get(domain); ok {
		domainLog.Debug("Policy cache hit")
		policy := *entry.policy
		policy.MaxPages = maxPagesHint
		return &policy
	}

	policy := &models.CrawlPolicy{
		Domain:         domain,
		MaxPages:       maxPagesHint,
		CrawlDelay:     e.effectiveDelay(0),
		RobotsTxtFound: false,
	}

	body, found, err := e.robots.FetchRobotsTxt(ctx, domain)
	if err != nil {
		domainLog.Warnf("robots.txt unreachable, using permissive default policy: %v", err)
		e.cache.put(domain, &cacheEntry{policy: policy})
		return policy
	}
	if !found {
		domainLog.Debug("No robots.txt, using permissive default policy")
		e.cache.put(domain, &cacheEntry{policy: policy})
		return policy
	}

	data, parseErr := robotstxt.FromBytes(body)
	if parseErr != nil {
		domainLog.Warnf("robots.txt unparseable, using permissive default policy: %v", parseErr)
		e.cache.put(domain, &cacheEntry{policy: policy})
		return policy
	}

	policy.RobotsTxtFound = true
	group := data.FindGroup(userAgent)
	if group != nil && group.CrawlDelay > 0 {
		policy.CrawlDelay = e.effectiveDelay(group.CrawlDelay)
	}
	policy.AllowedPathPatterns, policy.DisallowedPathPatterns = extractRules(body, userAgent)

	domainLog.WithFields(logrus.Fields{
		"crawl_delay": policy.CrawlDelay,
		"disallowed":  len(policy.DisallowedPathPatterns),
	}).Info("Derived crawl policy from robots.txt")

	e.cache.put(domain, &cacheEntry{policy: policy, robots: data})
	return policy
}

// effectiveDelay computes max(requested minimum, robots crawl-delay), capped
func (e *Engine) effectiveDelay(robotsDelay time.Duration) time.Duration {
	delay := e.opts.RequestedMinDelay
	if robotsDelay > delay {
		delay = robotsDelay
	}
	if delay <= 0 {
		delay = e.opts.DefaultDelay
	}
	if e.opts.MaxDelay > 0 && delay > e.opts.MaxDelay {
		delay = e.opts.MaxDelay
	}
	return delay
}

// IsAllowed checks a URL against the policy's disallow rules using
// longest-match path comparison; on a specificity tie an Allow rule wins.
// The returned reason names the matched pattern on denial.
func (e *Engine) IsAllowed(policy *models.CrawlPolicy, rawURL string) (bool, string) {
	if policy == nil || !policy.RobotsTxtFound {
		return true, ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		// Unparseable URLs are rejected upstream; treat as allowed here
		return true, ""
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	allowed, matched := pathAllowed(policy.AllowedPathPatterns, policy.DisallowedPathPatterns, path)
	if allowed {
		return true, ""
	}
	return false, fmt.Sprintf("disallowed by robots.txt pattern %q", matched)
}
