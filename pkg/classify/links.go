package classify

import (
	"net/url"
	"sort"
	"strings"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/parse"
)

// Signal weights for the page-type score. URL path keywords are the
// strongest evidence, visible link text is weaker, a nav placement is a
// small nudge on top. The three together sum to 1.0 so scores stay in [0,1].
const (
	weightPath = 0.6
	weightText = 0.3
	weightNav  = 0.1
)

// pathKeywords and textKeywords map each label to the tokens that vote for
// it. Path tokens are matched against URL path segments, text tokens against
// the visible link text and title attribute.
var pathKeywords = map[models.PageType][]string{
	models.PageTypeContact:  {"contact", "contact-us", "contactus", "kontakt", "get-in-touch", "reach-us"},
	models.PageTypeAbout:    {"about", "about-us", "aboutus", "company", "who-we-are", "our-story", "mission"},
	models.PageTypeTeam:     {"team", "our-team", "people", "staff", "leadership", "management", "founders"},
	models.PageTypeServices: {"services", "service", "solutions", "what-we-do", "offerings", "capabilities"},
}

var textKeywords = map[models.PageType][]string{
	models.PageTypeContact:  {"contact", "get in touch", "reach us", "talk to us", "email us"},
	models.PageTypeAbout:    {"about", "company", "who we are", "our story", "mission"},
	models.PageTypeTeam:     {"team", "our people", "staff", "leadership", "meet the"},
	models.PageTypeServices: {"services", "solutions", "what we do", "offerings"},
}

// LinkOptions bounds one classification pass
type LinkOptions struct {
	MaxLinksPerPage        int     // Cap on returned links (0 = unlimited)
	MinConfidenceThreshold float64 // Below this the link is labeled other, not dropped
	SameDomainOnly         bool    // Skip anchors resolving off the crawl domain
}

// LinkClassifier assigns page-type labels and confidence scores to a page's
// outbound links. It is a pure function over its inputs: no network I/O, no
// state carried between calls.
type LinkClassifier struct {
	opts LinkOptions
}

// NewLinkClassifier creates a classifier with the given bounds
func NewLinkClassifier(opts LinkOptions) *LinkClassifier {
	return &LinkClassifier{opts: opts}
}

// DiscoverLinks resolves each anchor against baseURL, scores it per label,
// and returns the classified links deduplicated by normalized URL (highest
// confidence wins), sorted by confidence descending, capped at
// MaxLinksPerPage. Anchors off the crawl domain are skipped when
// SameDomainOnly is set; anchors below the confidence threshold are labeled
// other with their computed score rather than discarded.
func (c *LinkClassifier) DiscoverLinks(anchors []models.Anchor, baseURL, domain, currentURL string) []models.DiscoveredLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	best := make(map[string]models.DiscoveredLink)
	var order []string

	for _, anchor := range anchors {
		normalized, resolved, ok := c.resolveAnchor(base, anchor.Href)
		if !ok {
			continue
		}
		if c.opts.SameDomainOnly && !parse.SameDomain(resolved.Hostname(), domain) {
			continue
		}
		if normalized == currentURL {
			continue
		}

		pageType, confidence := c.scoreAnchor(resolved.Path, anchor)
		if confidence < c.opts.MinConfidenceThreshold {
			pageType = models.PageTypeOther
		}

		link := models.DiscoveredLink{
			URL:              normalized,
			PageType:         pageType,
			LinkText:         strings.TrimSpace(anchor.Text),
			Confidence:       confidence,
			DiscoveredOnPage: currentURL,
			ContextSnippet:   snippet(anchor),
		}

		existing, seen := best[normalized]
		if !seen {
			best[normalized] = link
			order = append(order, normalized)
		} else if link.Confidence > existing.Confidence {
			best[normalized] = link
		}
	}

	links := make([]models.DiscoveredLink, 0, len(best))
	for _, u := range order {
		links = append(links, best[u])
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Confidence > links[j].Confidence
	})
	if c.opts.MaxLinksPerPage > 0 && len(links) > c.opts.MaxLinksPerPage {
		links = links[:c.opts.MaxLinksPerPage]
	}
	return links
}

// resolveAnchor turns an href into an absolute normalized URL, rejecting
// non-HTTP schemes and fragment-only references.
func (c *LinkClassifier) resolveAnchor(base *url.URL, href string) (string, *url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", nil, false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", nil, false
	}
	if resolved.Hostname() == "" {
		return "", nil, false
	}
	return parse.NormalizeURL(resolved), resolved, true
}

// scoreAnchor computes the per-label weighted score and returns the winning
// label with its score. Labels are evaluated in a fixed order so ties are
// deterministic.
func (c *LinkClassifier) scoreAnchor(path string, anchor models.Anchor) (models.PageType, float64) {
	segments := pathSegments(path)
	text := strings.ToLower(strings.TrimSpace(anchor.Text))
	if anchor.Title != "" {
		text += " " + strings.ToLower(anchor.Title)
	}

	bestType := models.PageTypeOther
	bestScore := 0.0
	for _, pt := range models.AllPageTypes() {
		if pt == models.PageTypeOther {
			continue
		}
		score := 0.0
		if segmentsMatch(segments, pathKeywords[pt]) {
			score += weightPath
		}
		if textMatch(text, textKeywords[pt]) {
			score += weightText
		}
		// Nav placement only reinforces an existing keyword signal
		if score > 0 && anchor.InNav {
			score += weightNav
		}
		if score > bestScore {
			bestType, bestScore = pt, score
		}
	}
	return bestType, bestScore
}

func pathSegments(path string) []string {
	raw := strings.FieldsFunc(strings.ToLower(path), func(r rune) bool {
		return r == '/' || r == '.'
	})
	return raw
}

func segmentsMatch(segments, keywords []string) bool {
	for _, seg := range segments {
		for _, kw := range keywords {
			if seg == kw {
				return true
			}
			// Hyphen/underscore variants: "contact_us" matches "contact-us"
			if strings.ReplaceAll(seg, "_", "-") == kw {
				return true
			}
		}
	}
	return false
}

func textMatch(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// snippet builds a short human-readable context string for a link
func snippet(anchor models.Anchor) string {
	text := strings.TrimSpace(anchor.Text)
	if text == "" {
		text = strings.TrimSpace(anchor.Title)
	}
	if anchor.InNav && text != "" {
		return "nav: " + text
	}
	return text
}
