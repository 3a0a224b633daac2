package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HostLimiter spaces out request attempts per host. Sessions pace themselves
// with the policy delay; the limiter additionally covers the case where two
// sessions resolve to the same host, so their requests never interleave
// faster than the default delay.
type HostLimiter struct {
	hostLastRequest   map[string]time.Time // hostname -> last request attempt time
	hostLastRequestMu sync.Mutex
	defaultDelay      time.Duration // fallback when the caller passes no delay
	log               *logrus.Entry
}

// NewHostLimiter creates a HostLimiter
func NewHostLimiter(defaultDelay time.Duration, log *logrus.Entry) *HostLimiter {
	return &HostLimiter{
		hostLastRequest: make(map[string]time.Time),
		defaultDelay:    defaultDelay,
		log:             log,
	}
}

// ApplyDelay sleeps if the time since the last request to the host is less
// than minDelay. Includes jitter (+/- 10%) to desynchronize requests. Returns
// early when the context is cancelled.
func (hl *HostLimiter) ApplyDelay(ctx context.Context, host string, minDelay time.Duration) {
	if minDelay <= 0 {
		minDelay = hl.defaultDelay
	}
	if minDelay <= 0 {
		return
	}

	hl.hostLastRequestMu.Lock()
	lastReqTime, exists := hl.hostLastRequest[host]
	hl.hostLastRequestMu.Unlock() // unlock before potentially sleeping

	if !exists {
		return
	}
	elapsed := time.Since(lastReqTime)
	if elapsed >= minDelay {
		return
	}
	sleepDuration := minDelay - elapsed

	// Jitter: +/- 10% of sleepDuration
	var jitter time.Duration
	jitterRange := int64(sleepDuration) / 5
	if jitterRange > 0 {
		jitter = time.Duration(rand.Int63n(jitterRange)) - (sleepDuration / 10)
	}
	finalSleep := sleepDuration + jitter
	if finalSleep <= 0 {
		return
	}

	hl.log.WithFields(logrus.Fields{
		"host": host, "sleep": finalSleep, "required_delay": minDelay, "elapsed": elapsed,
	}).Debug("Host pacing applying sleep")

	timer := time.NewTimer(finalSleep)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// UpdateLastRequestTime records the current time as the last request attempt
// time for the host. Call this after an HTTP request attempt to the host.
func (hl *HostLimiter) UpdateLastRequestTime(host string) {
	hl.hostLastRequestMu.Lock()
	hl.hostLastRequest[host] = time.Now()
	hl.hostLastRequestMu.Unlock()
}
