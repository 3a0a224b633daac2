package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testFetcher() *HTTPFetcher {
	return NewHTTPFetcher(http.DefaultClient, "test-agent/1.0", nil, testLogger())
}

const samplePage = `<!DOCTYPE html>
<html><head><title>Acme Co</title></head>
<body>
<nav>
  <a href="/contact" title="Get in touch">Contact Us</a>
  <a href="/about">About</a>
</nav>
<div class="main-menu">
  <a href="/services">Services</a>
</div>
<main>
  <a href="/blog/post1">Read our latest post</a>
  <a href="mailto:hi@acme.test">Email</a>
</main>
</body></html>`

func TestFetchPage_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, samplePage)
	}))
	defer srv.Close()

	result := testFetcher().FetchPage(context.Background(), srv.URL+"/", 5*time.Second)

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want test-agent/1.0", gotUA)
	}
	if result.ContentLength == 0 {
		t.Error("ContentLength = 0, want body size")
	}
	if result.ResponseTimeMs < 0 {
		t.Errorf("ResponseTimeMs = %d", result.ResponseTimeMs)
	}
	if len(result.Anchors) != 5 {
		t.Fatalf("got %d anchors, want 5", len(result.Anchors))
	}

	byHref := make(map[string]models.Anchor)
	for _, a := range result.Anchors {
		byHref[a.Href] = a
	}
	contact := byHref["/contact"]
	if contact.Text != "Contact Us" || contact.Title != "Get in touch" {
		t.Errorf("contact anchor = %+v", contact)
	}
	if !contact.InNav {
		t.Error("anchor inside <nav> must report InNav")
	}
	if !byHref["/services"].InNav {
		t.Error("anchor inside a menu-classed div must report InNav")
	}
	if byHref["/blog/post1"].InNav {
		t.Error("anchor in <main> must not report InNav")
	}
}

func TestFetchPage_HTTPErrorIsStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	result := testFetcher().FetchPage(context.Background(), srv.URL+"/missing", 5*time.Second)

	if result.Success {
		t.Error("Success = true for a 404")
	}
	if result.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", result.StatusCode)
	}
	if result.Error == "" {
		t.Error("Error must be populated for non-2xx statuses")
	}
	if len(result.Anchors) != 0 {
		t.Error("no anchors expected for an error page")
	}
}

func TestFetchPage_BlockSignatureInSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "<html>Access Denied - bot detected</html>")
	}))
	defer srv.Close()

	result := testFetcher().FetchPage(context.Background(), srv.URL+"/", 5*time.Second)

	if result.StatusCode != 403 {
		t.Fatalf("StatusCode = %d, want 403", result.StatusCode)
	}
	if !strings.Contains(strings.ToLower(result.BodySample), "access denied") {
		t.Errorf("BodySample = %q, want the block signature preserved", result.BodySample)
	}
}

func TestFetchPage_TimeoutIsStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	result := testFetcher().FetchPage(context.Background(), srv.URL+"/", 50*time.Millisecond)

	if result.Success {
		t.Error("Success = true for a timed-out fetch")
	}
	if result.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 (no response)", result.StatusCode)
	}
	if !strings.Contains(result.Error, "deadline") && !strings.Contains(result.Error, "timeout") {
		t.Errorf("Error = %q, want a timeout indication", result.Error)
	}
}

func TestFetchPage_ConnectionRefusedIsStructured(t *testing.T) {
	// Reserved port with no listener
	result := testFetcher().FetchPage(context.Background(), "http://127.0.0.1:1/", time.Second)

	if result.Success {
		t.Error("Success = true for an unreachable host")
	}
	if result.Error == "" {
		t.Error("Error must be populated for transport failures")
	}
}

func TestFetchPage_RecordsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>landed</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	result := testFetcher().FetchPage(context.Background(), srv.URL+"/old", 5*time.Second)

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.RedirectURL != srv.URL+"/new" {
		t.Errorf("RedirectURL = %q, want %s/new", result.RedirectURL, srv.URL)
	}
}

func TestFetchPage_NonHTMLSkipsAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.4 <a href=\"/x\">not html</a>")
	}))
	defer srv.Close()

	result := testFetcher().FetchPage(context.Background(), srv.URL+"/brochure.pdf", 5*time.Second)

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if len(result.Anchors) != 0 {
		t.Errorf("got %d anchors from a PDF response, want 0", len(result.Anchors))
	}
}
