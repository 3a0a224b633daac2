package storage

import (
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

func newTestArchive(t *testing.T) *BadgerArchive {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	archive, err := NewBadgerArchive(t.TempDir(), logrus.NewEntry(logger))
	if err != nil {
		t.Fatalf("NewBadgerArchive: %v", err)
	}
	t.Cleanup(func() { archive.Close() })
	return archive
}

func finishedSession(id, domain string) *models.CrawlSession {
	s := models.NewCrawlSession(id, domain, "https://"+domain+"/", 5)
	s.MarkCrawled("https://"+domain+"/", &models.PageFetchResult{
		URL:        "https://" + domain + "/",
		Success:    true,
		StatusCode: 200,
		Timestamp:  time.Now(),
	})
	s.RecordLink("https://"+domain+"/contact", models.DiscoveredLink{
		URL:        "https://" + domain + "/contact",
		PageType:   models.PageTypeContact,
		Confidence: 0.9,
	})
	s.Finalize(models.SessionStatusCompleted)
	return s
}

func TestArchive_SaveAndLoad(t *testing.T) {
	archive := newTestArchive(t)
	session := finishedSession("sess-1", "example.com")
	report := &models.SessionReport{SessionID: "sess-1", Domain: "example.com", RequestCount: 1, SuccessCount: 1}

	if err := archive.SaveSession(session, report); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	loaded, err := archive.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.Domain != "example.com" || loaded.Status != models.SessionStatusCompleted {
		t.Errorf("loaded session = %+v", loaded)
	}
	if len(loaded.CrawledPages) != 1 {
		t.Errorf("loaded %d crawled pages, want 1", len(loaded.CrawledPages))
	}
	if link := loaded.DiscoveredLinks["https://example.com/contact"]; link.PageType != models.PageTypeContact {
		t.Errorf("loaded link = %+v", link)
	}

	loadedReport, err := archive.GetReport("sess-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if loadedReport.RequestCount != 1 {
		t.Errorf("loaded report = %+v", loadedReport)
	}
}

func TestArchive_NotFound(t *testing.T) {
	archive := newTestArchive(t)

	if _, err := archive.GetSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession error = %v, want ErrNotFound", err)
	}
	if _, err := archive.GetReport("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport error = %v, want ErrNotFound", err)
	}
}

func TestArchive_SaveWithoutReport(t *testing.T) {
	archive := newTestArchive(t)
	session := finishedSession("sess-2", "example.com")

	if err := archive.SaveSession(session, nil); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := archive.GetSession("sess-2"); err != nil {
		t.Errorf("GetSession: %v", err)
	}
	if _, err := archive.GetReport("sess-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport error = %v, want ErrNotFound when no report archived", err)
	}
}

func TestArchive_ListSessionIDs(t *testing.T) {
	archive := newTestArchive(t)
	for _, id := range []string{"sess-a", "sess-b", "sess-c"} {
		if err := archive.SaveSession(finishedSession(id, "example.com"), nil); err != nil {
			t.Fatalf("SaveSession(%s): %v", id, err)
		}
	}

	ids, err := archive.ListSessionIDs()
	if err != nil {
		t.Fatalf("ListSessionIDs: %v", err)
	}
	sort.Strings(ids)
	want := []string{"sess-a", "sess-b", "sess-c"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestArchive_OverwriteKeepsLatest(t *testing.T) {
	archive := newTestArchive(t)
	session := finishedSession("sess-3", "example.com")
	if err := archive.SaveSession(session, nil); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	session.MarkFailed("https://example.com/bad", models.ErrorTypeServerError)
	if err := archive.SaveSession(session, nil); err != nil {
		t.Fatalf("SaveSession (second): %v", err)
	}

	loaded, err := archive.GetSession("sess-3")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.FailedURLs["https://example.com/bad"] != models.ErrorTypeServerError {
		t.Errorf("overwrite lost state: %+v", loaded.FailedURLs)
	}
}

func TestArchive_CloseIdempotent(t *testing.T) {
	archive := newTestArchive(t)
	if err := archive.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
