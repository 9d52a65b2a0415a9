package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

var (
	// ErrExhausted is returned when every provider in the pool failed.
	ErrExhausted = errors.New("all providers failed")
	// ErrMalformed marks output that could not be decoded or validated.
	ErrMalformed = errors.New("malformed model output")
)

// Kind is the failure class that drives the pool's next transition.
type Kind int

const (
	KindOther Kind = iota
	KindRateLimit
	KindQuota
	KindConnection
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindQuota:
		return "quota"
	case KindConnection:
		return "connection"
	case KindMalformed:
		return "malformed"
	default:
		return "other"
	}
}

// Classify maps a provider error to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, ErrMalformed) {
		return KindMalformed
	}

	msg := strings.ToLower(err.Error())
	// daily token caps also arrive as 429s but never clear within a run
	if strings.Contains(msg, "tokens per day") || strings.Contains(msg, "(tpd)") {
		return KindQuota
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return KindRateLimit
		case apiErr.StatusCode >= 500:
			return KindConnection
		}
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}

	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "resource_exhausted"):
		return KindRateLimit
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "unexpected eof"):
		return KindConnection
	}

	return KindOther
}

var (
	retryHintRegex   = regexp.MustCompile(`(?i)(?:try again in|retry in|retry after|retrydelay["':\s]+)\s*((?:\d+(?:\.\d+)?(?:ms|h|m|s))+)`)
	retryHeaderRegex = regexp.MustCompile(`(?i)retry-after["':\s]+(\d+)`)
)

// RetryAfter extracts the provider's "retry after" hint from an error.
func RetryAfter(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		if secs, convErr := strconv.Atoi(apiErr.Response.Header.Get("retry-after")); convErr == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, true
		}
	}

	msg := err.Error()
	if m := retryHintRegex.FindStringSubmatch(msg); m != nil {
		if d, parseErr := time.ParseDuration(strings.ToLower(m[1])); parseErr == nil {
			return d, true
		}
	}
	if m := retryHeaderRegex.FindStringSubmatch(msg); m != nil {
		if secs, convErr := strconv.Atoi(m[1]); convErr == nil {
			return time.Duration(secs) * time.Second, true
		}
	}

	return 0, false
}
