package policy

import (
	"bufio"
	"regexp"
	"strings"
)

// agentGroup collects the Allow/Disallow directives of one user-agent group
// in a robots.txt file.
type agentGroup struct {
	agents    []string
	allows    []string
	disallows []string
}

// extractRules scans robots.txt content and returns the Allow and Disallow
// path patterns of the group that best matches userAgent, falling back to the
// wildcard group. The parsed patterns are recorded on the CrawlPolicy so the
// policy stays a plain serializable record; the authoritative matching is
// done by the robotstxt library while the parse result is cached.
func extractRules(body []byte, userAgent string) (allows, disallows []string) {
	var groups []*agentGroup
	var current *agentGroup
	sawRule := true // Forces a new group on the first user-agent line

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			// Consecutive user-agent lines share one group
			if current == nil || sawRule {
				current = &agentGroup{}
				groups = append(groups, current)
				sawRule = false
			}
			current.agents = append(current.agents, strings.ToLower(value))
		case "allow":
			sawRule = true
			if current != nil && value != "" {
				current.allows = append(current.allows, value)
			}
		case "disallow":
			sawRule = true
			if current != nil && value != "" {
				current.disallows = append(current.disallows, value)
			}
		default:
			// Crawl-delay, Sitemap etc. close the agent-line run but are
			// handled by the robotstxt library
			sawRule = true
		}
	}

	group := selectGroup(groups, userAgent)
	if group == nil {
		return nil, nil
	}
	return group.allows, group.disallows
}

// selectGroup picks the group with the longest agent token contained in
// userAgent; the "*" group matches everything with the lowest precedence.
func selectGroup(groups []*agentGroup, userAgent string) *agentGroup {
	ua := strings.ToLower(userAgent)
	var best *agentGroup
	bestLen := -1
	for _, g := range groups {
		for _, agent := range g.agents {
			if agent == "*" {
				if bestLen < 0 {
					best = g
					bestLen = 0
				}
				continue
			}
			if strings.Contains(ua, agent) && len(agent) > bestLen {
				best = g
				bestLen = len(agent)
			}
		}
	}
	return best
}

// matchLength returns the pattern length if the robots-exclusion pattern
// matches the path, or -1 if it does not. Pattern length is the standard
// specificity measure for longest-match tie-breaking.
func matchLength(pattern, path string) int {
	if pattern == "" {
		return -1
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return -1
	}
	if re.MatchString(path) {
		return len(pattern)
	}
	return -1
}

// compilePattern converts a robots path pattern ('*' wildcard, optional '$'
// end anchor) into an anchored regular expression.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}
	return regexp.Compile(b.String())
}

// pathAllowed applies longest-match evaluation over the policy's recorded
// patterns: the most specific matching rule wins, and on a specificity tie an
// Allow rule takes precedence (standard robots-exclusion tie-break).
func pathAllowed(allows, disallows []string, path string) (allowed bool, matched string) {
	bestAllow, bestAllowPattern := -1, ""
	for _, p := range allows {
		if l := matchLength(p, path); l > bestAllow {
			bestAllow, bestAllowPattern = l, p
		}
	}
	bestDisallow, bestDisallowPattern := -1, ""
	for _, p := range disallows {
		if l := matchLength(p, path); l > bestDisallow {
			bestDisallow, bestDisallowPattern = l, p
		}
	}

	if bestDisallow < 0 {
		return true, bestAllowPattern
	}
	if bestAllow >= bestDisallow {
		return true, bestAllowPattern
	}
	return false, bestDisallowPattern
}
