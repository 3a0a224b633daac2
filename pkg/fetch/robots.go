package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// robots.txt bodies past this size are truncated rather than rejected
const maxRobotsBytes = 512 << 10

// RobotsClient retrieves robots.txt files over HTTP. It tries HTTPS first
// and falls back to plain HTTP when the TLS endpoint is unreachable, which
// covers small-business sites that never set up certificates.
type RobotsClient struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewRobotsClient creates a robots.txt fetcher using the shared HTTP client
func NewRobotsClient(client *http.Client, userAgent string, log *logrus.Entry) *RobotsClient {
	return &RobotsClient{
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

// FetchRobotsTxt retrieves the domain's robots.txt. A 2xx response returns
// the body with found=true; any 4xx means the site has no robots.txt
// (found=false, no error); 5xx and transport failures on both schemes are
// reported as errors so the caller can decide how to degrade.
func (r *RobotsClient) FetchRobotsTxt(ctx context.Context, domain string) ([]byte, bool, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		robotsURL := scheme + "://" + domain + "/robots.txt"

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("User-Agent", r.userAgent)

		resp, err := r.client.Do(req)
		if err != nil {
			// Scheme-level failure; try the next scheme
			r.log.WithField("robots_url", robotsURL).Debugf("robots.txt fetch failed: %v", err)
			lastErr = err
			continue
		}

		body, found, err := readRobotsResponse(resp)
		if err != nil {
			lastErr = err
			continue
		}
		return body, found, nil
	}
	return nil, false, lastErr
}

func readRobotsResponse(resp *http.Response) ([]byte, bool, error) {
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
		if err != nil {
			return nil, false, err
		}
		return body, true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("robots.txt fetch returned status %d", resp.StatusCode)
	}
}
