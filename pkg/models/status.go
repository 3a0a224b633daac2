package models

// PageType labels what kind of content a linked page likely contains
type PageType string

const (
	PageTypeContact  PageType = "contact"
	PageTypeAbout    PageType = "about"
	PageTypeTeam     PageType = "team"
	PageTypeServices PageType = "services"
	PageTypeOther    PageType = "other" // Fallback when no label clears the confidence threshold
)

// String implements fmt.Stringer for logging
func (t PageType) String() string {
	if t == "" {
		return "unset"
	}
	return string(t)
}

// IsValid returns true if the type is a known label
func (t PageType) IsValid() bool {
	switch t {
	case PageTypeContact, PageTypeAbout, PageTypeTeam, PageTypeServices, PageTypeOther:
		return true
	}
	return false
}

// AllPageTypes returns every defined page type label
func AllPageTypes() []PageType {
	return []PageType{PageTypeContact, PageTypeAbout, PageTypeTeam, PageTypeServices, PageTypeOther}
}

// SessionStatus represents the lifecycle state of a crawl session
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"     // Created, crawl loop not yet started
	SessionStatusInProgress SessionStatus = "in_progress" // Crawl loop running (or interrupted externally)
	SessionStatusCompleted  SessionStatus = "completed"   // Frontier drained or budget exhausted
	SessionStatusFailed     SessionStatus = "failed"      // Orchestration-level fault; partial results preserved
)

// String implements fmt.Stringer for logging
func (s SessionStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsTerminal returns true once the session can no longer be mutated
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// ErrorType categorizes a failed fetch outcome
type ErrorType string

const (
	ErrorTypeNone         ErrorType = "none"
	ErrorTypeRateLimited  ErrorType = "rate_limited"  // 429 or 503
	ErrorTypeBlocked      ErrorType = "blocked"       // 403 with a block signature in the body
	ErrorTypeClientError  ErrorType = "client_error"  // Other 4xx, permanent
	ErrorTypeServerError  ErrorType = "server_error"  // 5xx
	ErrorTypeTimeout      ErrorType = "timeout"       // Network timeout / connection error
	ErrorTypeUnknownError ErrorType = "unknown_error" // Anything else
)

// String implements fmt.Stringer for logging
func (e ErrorType) String() string {
	if e == "" {
		return "unset"
	}
	return string(e)
}

// RetryStrategy selects how retry delays grow between attempts
type RetryStrategy string

const (
	RetryStrategyNone        RetryStrategy = "none"
	RetryStrategyFixedDelay  RetryStrategy = "fixed_delay"
	RetryStrategyExponential RetryStrategy = "exponential_backoff"
)

// String implements fmt.Stringer for logging
func (s RetryStrategy) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}
