package metrics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

func TestRecorder_SessionLifecycle(t *testing.T) {
	r := NewRecorder(nil)
	r.StartSession("s1", "example.com")

	r.RecordRequest("s1", "example.com", 120, true, 200, models.PageTypeContact, "")
	r.RecordRequest("s1", "example.com", 80, true, 200, models.PageTypeOther, "")
	r.RecordRequest("s1", "example.com", 300, false, 503, "", models.ErrorTypeRateLimited)
	r.RecordDiscovery("s1", 5)

	report := r.EndSession("s1")
	if report == nil {
		t.Fatal("EndSession returned nil for an open session")
	}
	if report.RequestCount != 3 {
		t.Errorf("RequestCount = %d, want 3", report.RequestCount)
	}
	if report.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", report.SuccessCount)
	}
	if want := 2.0 / 3.0; report.SuccessRate != want {
		t.Errorf("SuccessRate = %v, want %v", report.SuccessRate, want)
	}
	if report.PagesByType["contact"] != 1 {
		t.Errorf("PagesByType = %v, want contact:1", report.PagesByType)
	}
	if report.FailuresByType["rate_limited"] != 1 {
		t.Errorf("FailuresByType = %v, want rate_limited:1", report.FailuresByType)
	}
	if report.LinksDiscovered != 5 {
		t.Errorf("LinksDiscovered = %d, want 5", report.LinksDiscovered)
	}
	if want := (120.0 + 80.0 + 300.0) / 3.0; report.AvgResponseTimeMs != want {
		t.Errorf("AvgResponseTimeMs = %v, want %v", report.AvgResponseTimeMs, want)
	}

	if again := r.EndSession("s1"); again != nil {
		t.Error("ending an already-ended session must return nil")
	}
}

func TestRecorder_ResponseTimeBuckets(t *testing.T) {
	r := NewRecorder(nil)
	r.StartSession("s1", "example.com")
	r.RecordRequest("s1", "example.com", 50, true, 200, "", "")
	r.RecordRequest("s1", "example.com", 100, true, 200, "", "")
	r.RecordRequest("s1", "example.com", 800, true, 200, "", "")
	r.RecordRequest("s1", "example.com", 9000, true, 200, "", "")

	report := r.EndSession("s1")
	if report.ResponseTimeDist["<=100ms"] != 2 {
		t.Errorf("<=100ms bucket = %d, want 2 (bounds are inclusive)", report.ResponseTimeDist["<=100ms"])
	}
	if report.ResponseTimeDist["<=1000ms"] != 1 {
		t.Errorf("<=1000ms bucket = %d, want 1", report.ResponseTimeDist["<=1000ms"])
	}
	if report.ResponseTimeDist[">5000ms"] != 1 {
		t.Errorf(">5000ms bucket = %d, want 1", report.ResponseTimeDist[">5000ms"])
	}
}

func TestRecorder_GlobalAggregatesOutliveSessions(t *testing.T) {
	r := NewRecorder(nil)
	r.StartSession("s1", "a.com")
	r.RecordRequest("s1", "a.com", 100, true, 200, models.PageTypeAbout, "")
	r.EndSession("s1")
	r.StartSession("s2", "b.com")
	r.RecordRequest("s2", "b.com", 100, false, 404, "", models.ErrorTypeClientError)

	stats := r.GetStatistics()
	if stats.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", stats.TotalRequests)
	}
	if stats.SessionsStarted != 2 || stats.SessionsCompleted != 1 {
		t.Errorf("sessions started/completed = %d/%d, want 2/1", stats.SessionsStarted, stats.SessionsCompleted)
	}
	if stats.ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d, want 1", stats.ActiveSessions)
	}
	if stats.RequestsByDomain["a.com"] != 1 || stats.RequestsByDomain["b.com"] != 1 {
		t.Errorf("RequestsByDomain = %v", stats.RequestsByDomain)
	}
	if stats.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", stats.SuccessRate)
	}
}

func TestRecorder_UnknownSessionIgnored(t *testing.T) {
	r := NewRecorder(nil)
	// Requests for unknown sessions still count globally
	r.RecordRequest("ghost", "a.com", 100, true, 200, "", "")
	r.RecordDiscovery("ghost", 3)

	stats := r.GetStatistics()
	if stats.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", stats.TotalRequests)
	}
	if stats.LinksDiscovered != 3 {
		t.Errorf("LinksDiscovered = %d, want 3", stats.LinksDiscovered)
	}
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder(nil)
	r.StartSession("s1", "a.com")
	r.RecordRequest("s1", "a.com", 100, true, 200, "", "")
	r.Reset()

	stats := r.GetStatistics()
	if stats.TotalRequests != 0 || stats.SessionsStarted != 0 || stats.ActiveSessions != 0 {
		t.Errorf("Reset left residual state: %+v", stats)
	}
}

func TestRecorder_ConcurrentIncrement(t *testing.T) {
	r := NewRecorder(nil)
	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", w)
			domain := fmt.Sprintf("site%d.com", w)
			r.StartSession(id, domain)
			for i := 0; i < perWorker; i++ {
				r.RecordRequest(id, domain, int64(i), i%2 == 0, 200, models.PageTypeOther, "")
				r.RecordDiscovery(id, 1)
			}
			r.EndSession(id)
		}(w)
	}
	wg.Wait()

	stats := r.GetStatistics()
	if want := int64(workers * perWorker); stats.TotalRequests != want {
		t.Errorf("TotalRequests = %d, want %d", stats.TotalRequests, want)
	}
	if want := int64(workers * perWorker); stats.LinksDiscovered != want {
		t.Errorf("LinksDiscovered = %d, want %d", stats.LinksDiscovered, want)
	}
	if stats.SessionsCompleted != workers {
		t.Errorf("SessionsCompleted = %d, want %d", stats.SessionsCompleted, workers)
	}
}
