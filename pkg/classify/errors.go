package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

// blockSignatures are body fragments that turn a 403 from a plain client
// error into an anti-bot block, which is worth a few cautious retries.
var blockSignatures = []string{
	"access denied",
	"captcha",
	"cloudflare",
	"verify you are human",
	"bot detected",
}

// timeoutSignatures identify transport-level failures in a fetch result's
// error string when no HTTP status is available.
var timeoutSignatures = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"broken pipe",
	"eof",
}

// Retries allowed for blocked and unknown outcomes regardless of the
// caller's general retry budget.
const (
	blockedMaxRetries = 1
	unknownMaxRetries = 1
)

// RetryOptions tunes retry delay growth
type RetryOptions struct {
	BaseDelay  time.Duration // First exponential-backoff delay
	MaxDelay   time.Duration // Ceiling for exponential backoff (0 = uncapped)
	FixedDelay time.Duration // Constant delay for fixed_delay strategies
	MaxRetries int           // General retry budget per URL
}

// ErrorClassifier maps fetch outcomes to error kinds and retry decisions.
// Both methods are pure functions; no hidden state between calls.
type ErrorClassifier struct {
	opts RetryOptions
}

// NewErrorClassifier creates a classifier with the given retry tuning
func NewErrorClassifier(opts RetryOptions) *ErrorClassifier {
	return &ErrorClassifier{opts: opts}
}

// Classify maps a failed fetch result to an error classification using a
// first-match decision table over status code, body content, and the
// transport error string.
func (c *ErrorClassifier) Classify(result *models.PageFetchResult) models.ErrorClassification {
	status := result.StatusCode
	body := strings.ToLower(result.BodySample)
	errText := strings.ToLower(result.Error)

	switch {
	// 503 is treated as throttling rather than a generic server error;
	// overloaded sites use it interchangeably with 429
	case status == 429 || status == 503:
		return models.ErrorClassification{
			Type:       models.ErrorTypeRateLimited,
			Retryable:  true,
			Strategy:   models.RetryStrategyExponential,
			MaxRetries: c.opts.MaxRetries,
		}
	case status == 403 && containsAny(body, blockSignatures):
		return models.ErrorClassification{
			Type:       models.ErrorTypeBlocked,
			Retryable:  true,
			Strategy:   models.RetryStrategyFixedDelay,
			MaxRetries: blockedMaxRetries,
		}
	case status >= 400 && status < 500:
		return models.ErrorClassification{
			Type:       models.ErrorTypeClientError,
			Retryable:  false,
			Strategy:   models.RetryStrategyNone,
			MaxRetries: 0,
		}
	case status >= 500 && status < 600:
		return models.ErrorClassification{
			Type:       models.ErrorTypeServerError,
			Retryable:  true,
			Strategy:   models.RetryStrategyExponential,
			MaxRetries: c.opts.MaxRetries,
		}
	case status == 0 && containsAny(errText, timeoutSignatures):
		return models.ErrorClassification{
			Type:       models.ErrorTypeTimeout,
			Retryable:  true,
			Strategy:   models.RetryStrategyExponential,
			MaxRetries: c.opts.MaxRetries,
		}
	default:
		return models.ErrorClassification{
			Type:       models.ErrorTypeUnknownError,
			Retryable:  true,
			Strategy:   models.RetryStrategyFixedDelay,
			MaxRetries: unknownMaxRetries,
		}
	}
}

// PlanRetry decides whether the attempt that just failed (attemptNumber,
// 1-based) should be retried. The classification's own retry cap may lower
// the general budget; retries stop once the failed attempts reach the cap or
// the error is not retryable.
func (c *ErrorClassifier) PlanRetry(class models.ErrorClassification, attemptNumber int) models.RetryPlan {
	if !class.Retryable {
		return models.RetryPlan{
			ShouldRetry: false,
			Reason:      fmt.Sprintf("%s is not retryable", class.Type),
		}
	}

	budget := class.MaxRetries
	if budget > c.opts.MaxRetries {
		budget = c.opts.MaxRetries
	}
	if attemptNumber > budget {
		return models.RetryPlan{
			ShouldRetry: false,
			Reason:      fmt.Sprintf("retry budget exhausted after %d attempts", attemptNumber),
		}
	}

	var delay time.Duration
	switch class.Strategy {
	case models.RetryStrategyExponential:
		delay = c.opts.BaseDelay << uint(attemptNumber-1)
		if c.opts.MaxDelay > 0 && delay > c.opts.MaxDelay {
			delay = c.opts.MaxDelay
		}
	case models.RetryStrategyFixedDelay:
		delay = c.opts.FixedDelay
	default:
		return models.RetryPlan{
			ShouldRetry: false,
			Reason:      fmt.Sprintf("strategy %s schedules no retries", class.Strategy),
		}
	}

	return models.RetryPlan{
		ShouldRetry: true,
		Delay:       delay,
		Reason:      fmt.Sprintf("%s, attempt %d of %d, %s", class.Type, attemptNumber, budget, class.Strategy),
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
