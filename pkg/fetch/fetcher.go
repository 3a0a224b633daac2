package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

const (
	// Read cap per response body; business sites past this are not worth
	// parsing in full
	maxBodyBytes = 2 << 20

	// First bytes kept for block-signature inspection on error responses
	bodySampleBytes = 2048
)

// HTTPFetcher fetches single pages and extracts their raw anchor data. It
// makes exactly one attempt per call; retry decisions belong to the caller.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *HostLimiter // optional cross-session host pacing
	log       *logrus.Entry
}

// NewHTTPFetcher creates a page fetcher using the shared HTTP client. A nil
// limiter disables cross-session host pacing.
func NewHTTPFetcher(client *http.Client, userAgent string, limiter *HostLimiter, log *logrus.Entry) *HTTPFetcher {
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		limiter:   limiter,
		log:       log,
	}
}

// FetchPage performs one GET and returns a structured result. Ordinary HTTP
// and network failures are reported inside the result, never as a panic or
// error value; the result always carries the status code when one was
// received. A positive timeout bounds the whole attempt including body read.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string, timeout time.Duration) *models.PageFetchResult {
	result := &models.PageFetchResult{
		URL:       rawURL,
		Timestamp: time.Now(),
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	urlLog := f.log.WithField("url", rawURL)

	if f.limiter != nil {
		host := req.URL.Hostname()
		f.limiter.ApplyDelay(ctx, host, 0)
		defer f.limiter.UpdateLastRequestTime(host)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	result.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		urlLog.Debugf("Fetch failed: %v", err)
		return result
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")
	if final := resp.Request.URL.String(); final != rawURL {
		result.RedirectURL = final
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	result.ContentLength = int64(len(body))
	result.BodySample = sampleBody(body)
	if readErr != nil {
		result.Error = readErr.Error()
		urlLog.Debugf("Body read failed: %v", readErr)
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = resp.Status
		return result
	}

	result.Success = true
	if isHTML(result.ContentType) {
		result.Anchors = extractAnchors(body, urlLog)
	}
	urlLog.WithFields(logrus.Fields{
		"status_code":      resp.StatusCode,
		"response_time_ms": result.ResponseTimeMs,
		"anchors":          len(result.Anchors),
	}).Debug("Fetched page")
	return result
}

func sampleBody(body []byte) string {
	if len(body) > bodySampleBytes {
		body = body[:bodySampleBytes]
	}
	return string(body)
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// extractAnchors pulls every hyperlink out of an HTML document along with
// the context the link classifier needs: visible text, title attribute, and
// whether the link sits inside a navigation region.
func extractAnchors(body []byte, log *logrus.Entry) []models.Anchor {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Debugf("HTML parse failed: %v", err)
		return nil
	}

	var anchors []models.Anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		title, _ := s.Attr("title")
		anchors = append(anchors, models.Anchor{
			Href:  href,
			Text:  strings.TrimSpace(s.Text()),
			Title: title,
			InNav: inNavRegion(s),
		})
	})
	return anchors
}

// inNavRegion reports whether the anchor has an ancestor that marks a
// navigation or menu container, either semantically (nav/header elements,
// ARIA roles) or by naming convention (class/id containing nav or menu).
func inNavRegion(s *goquery.Selection) bool {
	if s.Closest(`nav, header, [role="navigation"], [role="menu"], [role="menubar"]`).Length() > 0 {
		return true
	}
	for p := s.Parent(); p.Length() > 0; p = p.Parent() {
		class, _ := p.Attr("class")
		id, _ := p.Attr("id")
		hay := strings.ToLower(class + " " + id)
		if strings.Contains(hay, "nav") || strings.Contains(hay, "menu") {
			return true
		}
	}
	return false
}
