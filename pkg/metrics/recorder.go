package metrics

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

// Response-time histogram bucket upper bounds in milliseconds. The last
// bucket is open-ended.
var bucketBoundsMs = []int64{100, 250, 500, 1000, 2500, 5000}

var bucketLabels = []string{
	"<=100ms", "<=250ms", "<=500ms", "<=1000ms", "<=2500ms", "<=5000ms", ">5000ms",
}

// sessionStats accumulates per-session counters while the session is open
type sessionStats struct {
	domain          string
	startTime       time.Time
	requestCount    int64
	successCount    int64
	failuresByType  map[string]int64
	pagesByType     map[string]int64
	linksDiscovered int64
	totalTimeMs     int64
	timeBuckets     []int64
}

// GlobalStats is a point-in-time snapshot of process-wide aggregates
type GlobalStats struct {
	SessionsStarted   int64            `json:"sessions_started"`
	SessionsCompleted int64            `json:"sessions_completed"`
	ActiveSessions    int              `json:"active_sessions"`
	TotalRequests     int64            `json:"total_requests"`
	TotalSuccesses    int64            `json:"total_successes"`
	SuccessRate       float64          `json:"success_rate"`
	FailuresByType    map[string]int64 `json:"failures_by_type"`
	PagesByType       map[string]int64 `json:"pages_by_type"`
	LinksDiscovered   int64            `json:"links_discovered"`
	RequestsByDomain  map[string]int64 `json:"requests_by_domain"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
	ResponseTimeDist  map[string]int64 `json:"response_time_dist"`
}

// Recorder accumulates per-session and process-wide crawl counters. It is
// the only state shared between concurrent sessions, so every method is safe
// for concurrent use. Counters are purely additive; Reset is an explicit
// operator action, never implicit.
type Recorder struct {
	mu       sync.Mutex
	sessions map[string]*sessionStats
	global   GlobalStats
	totalMs  int64
	buckets  []int64
	log      *logrus.Entry
}

// NewRecorder creates an empty metrics recorder
func NewRecorder(log *logrus.Entry) *Recorder {
	return &Recorder{
		sessions: make(map[string]*sessionStats),
		global: GlobalStats{
			FailuresByType:   make(map[string]int64),
			PagesByType:      make(map[string]int64),
			RequestsByDomain: make(map[string]int64),
		},
		buckets: make([]int64, len(bucketLabels)),
		log:     log,
	}
}

// StartSession opens a metrics session. Reopening an id resets that
// session's counters but leaves the global aggregates untouched.
func (r *Recorder) StartSession(sessionID, domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = &sessionStats{
		domain:         domain,
		startTime:      time.Now(),
		failuresByType: make(map[string]int64),
		pagesByType:    make(map[string]int64),
		timeBuckets:    make([]int64, len(bucketLabels)),
	}
	r.global.SessionsStarted++
}

// RecordRequest tallies one fetch attempt against both the session and the
// global aggregates. pageType is the classification of the fetched page
// itself when known; errType is consulted only when success is false.
func (r *Recorder) RecordRequest(sessionID, domain string, responseTimeMs int64, success bool, statusCode int, pageType models.PageType, errType models.ErrorType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := bucketIndex(responseTimeMs)

	r.global.TotalRequests++
	r.global.RequestsByDomain[domain]++
	r.totalMs += responseTimeMs
	r.buckets[bucket]++
	if success {
		r.global.TotalSuccesses++
		if pageType != "" {
			r.global.PagesByType[pageType.String()]++
		}
	} else if errType != "" && errType != models.ErrorTypeNone {
		r.global.FailuresByType[errType.String()]++
	}

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	s.requestCount++
	s.totalTimeMs += responseTimeMs
	s.timeBuckets[bucket]++
	if success {
		s.successCount++
		if pageType != "" {
			s.pagesByType[pageType.String()]++
		}
	} else if errType != "" && errType != models.ErrorTypeNone {
		s.failuresByType[errType.String()]++
	}
}

// RecordDiscovery tallies newly discovered links for a session
func (r *Recorder) RecordDiscovery(sessionID string, count int) {
	if count <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global.LinksDiscovered += int64(count)
	if s, ok := r.sessions[sessionID]; ok {
		s.linksDiscovered += int64(count)
	}
}

// EndSession closes a session and returns its report. Ending an unknown or
// already-ended session returns nil.
func (r *Recorder) EndSession(sessionID string) *models.SessionReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)
	r.global.SessionsCompleted++

	now := time.Now()
	report := &models.SessionReport{
		SessionID:       sessionID,
		Domain:          s.domain,
		StartTime:       s.startTime,
		EndTime:         now,
		DurationMinutes: now.Sub(s.startTime).Minutes(),
		RequestCount:    s.requestCount,
		SuccessCount:    s.successCount,
		FailuresByType:  s.failuresByType,
		PagesByType:     s.pagesByType,
		LinksDiscovered: s.linksDiscovered,
	}
	if s.requestCount > 0 {
		report.SuccessRate = float64(s.successCount) / float64(s.requestCount)
		report.AvgResponseTimeMs = float64(s.totalTimeMs) / float64(s.requestCount)
	}
	report.ResponseTimeDist = labelBuckets(s.timeBuckets)

	if r.log != nil {
		r.log.WithFields(logrus.Fields{
			"session_id":   sessionID,
			"domain":       s.domain,
			"requests":     s.requestCount,
			"success_rate": report.SuccessRate,
			"links":        s.linksDiscovered,
		}).Debug("Metrics session closed")
	}
	return report
}

// GetStatistics returns a snapshot of the process-wide aggregates
func (r *Recorder) GetStatistics() GlobalStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.global
	stats.ActiveSessions = len(r.sessions)
	stats.FailuresByType = copyCounts(r.global.FailuresByType)
	stats.PagesByType = copyCounts(r.global.PagesByType)
	stats.RequestsByDomain = copyCounts(r.global.RequestsByDomain)
	stats.ResponseTimeDist = labelBuckets(r.buckets)
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.TotalSuccesses) / float64(stats.TotalRequests)
		stats.AvgResponseTimeMs = float64(r.totalMs) / float64(stats.TotalRequests)
	}
	return stats
}

// Reset clears all sessions and aggregates
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*sessionStats)
	r.global = GlobalStats{
		FailuresByType:   make(map[string]int64),
		PagesByType:      make(map[string]int64),
		RequestsByDomain: make(map[string]int64),
	}
	r.totalMs = 0
	r.buckets = make([]int64, len(bucketLabels))
}

func bucketIndex(ms int64) int {
	for i, bound := range bucketBoundsMs {
		if ms <= bound {
			return i
		}
	}
	return len(bucketBoundsMs)
}

func labelBuckets(counts []int64) map[string]int64 {
	dist := make(map[string]int64, len(bucketLabels))
	for i, label := range bucketLabels {
		if counts[i] > 0 {
			dist[label] = counts[i]
		}
	}
	return dist
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
