package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies upstream failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindInvalidAPIKey
	KindRateLimited
	KindBilling
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindInvalidAPIKey:
		return "invalid_api_key"
	case KindRateLimited:
		return "rate_limited"
	case KindBilling:
		return "billing"
	case KindPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// Critical reports whether the failure cannot be fixed by retrying later
// stages with the same credential.
func (k Kind) Critical() bool {
	switch k {
	case KindInvalidAPIKey, KindRateLimited, KindBilling, KindPermission:
		return true
	}
	return false
}

// MarshalText renders the kind name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is returned by provider adapters.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Type       string
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(" ")
	}
	b.WriteString("error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Type != "" || e.Code != "" {
		fmt.Fprintf(&b, " [%s]", strings.Trim(e.Type+"/"+e.Code, "/"))
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by a wrapped *Error. Errors that never went
// through a provider adapter fall back to keyword classification of the
// message.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var le *Error
	if errors.As(err, &le) && le.Kind != KindUnknown {
		return le.Kind
	}
	if k := Classify(err.Error()); k != KindUnknown {
		return k
	}
	if isTransient(err) {
		return KindTransient
	}
	return KindUnknown
}

// IsCritical reports whether err should short-circuit the workflow.
func IsCritical(err error) bool {
	return KindOf(err).Critical()
}

var keywordTable = []struct {
	kind     Kind
	keywords []string
}{
	{KindInvalidAPIKey, []string{"api key", "invalid_api_key", "invalid_request_error"}},
	{KindRateLimited, []string{"rate_limit", "quota_exceeded", "insufficient_quota"}},
	{KindBilling, []string{"billing"}},
	{KindPermission, []string{"authentication", "unauthorized", "permission denied", "forbidden"}},
}

// Classify maps a free-form error message onto a Kind using case-insensitive
// keyword matching. Earlier rows win.
func Classify(message string) Kind {
	msg := strings.ToLower(message)
	if msg == "" {
		return KindUnknown
	}
	for _, row := range keywordTable {
		for _, kw := range row.keywords {
			if strings.Contains(msg, kw) {
				return row.kind
			}
		}
	}
	return KindUnknown
}

// KindFromStatus maps an HTTP status code onto a Kind.
func KindFromStatus(status int) Kind {
	switch {
	case status == 401:
		return KindInvalidAPIKey
	case status == 402:
		return KindBilling
	case status == 403:
		return KindPermission
	case status == 429:
		return KindRateLimited
	case status == 408 || status >= 500:
		return KindTransient
	}
	return KindUnknown
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"timeout", "connection reset", "connection refused", "connection closed", "broken pipe", "eof", "server_error"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
