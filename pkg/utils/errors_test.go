package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "None"},
		{"robots", fmt.Errorf("%w: /private/x", ErrRobotsDisallowed), "Policy_Robots"},
		{"budget", ErrBudgetExhausted, "Policy_Budget"},
		{"parsing url", fmt.Errorf("%w: bad URL '::'", ErrParsing), "Content_ParsingURL"},
		{"parsing other", fmt.Errorf("%w: truncated html", ErrParsing), "Content_ParsingOther"},
		{"database", fmt.Errorf("%w: txn conflict", ErrDatabase), "Database_Other"},
		{"config", fmt.Errorf("%w: max_pages < 1", ErrConfigValidation), "Config_Validation"},
		{"aborted", fmt.Errorf("%w: panic in loop", ErrSessionAborted), "Session_Aborted"},
		{"canceled", context.Canceled, "System_ContextCanceled"},
		{"deadline", context.DeadlineExceeded, "System_ContextDeadlineExceeded"},
		{"timeout string", errors.New("dial tcp: i/o timeout"), "Network_TimeoutGeneric"},
		{"refused", errors.New("connect: connection refused"), "Network_ConnectionRefused"},
		{"dns", errors.New("lookup example.invalid: no such host"), "Network_DNSLookup"},
		{"unknown", errors.New("something odd"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"sub.example.com:8080", "sub.example.com_8080"},
		{"a//b\\c", "a_b_c"},
		{"", "untitled"},
		{"___", "untitled"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
