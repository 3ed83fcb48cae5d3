package core

import (
	"context"
	"errors"
	"strings"
)

// ErrRemoteUnavailable is returned when no remote model is configured.
var ErrRemoteUnavailable = errors.New("remote model not configured")

// RemoteErrorCategory buckets remote-model failures for user-facing
// reporting. Classification is a best-effort substring heuristic over the
// SDK's error text; it lives in one place so structured error codes can
// replace it if the SDK ever exposes them.
type RemoteErrorCategory int

const (
	RemoteUnknownError RemoteErrorCategory = iota
	RemoteUnavailable
	RemoteQuotaExceeded
	RemoteSafetyBlocked
	RemoteAuthInvalid
	RemoteNetworkError
	RemoteTimeout
)

func (c RemoteErrorCategory) String() string {
	switch c {
	case RemoteUnavailable:
		return "unavailable"
	case RemoteQuotaExceeded:
		return "quota_exceeded"
	case RemoteSafetyBlocked:
		return "safety_blocked"
	case RemoteAuthInvalid:
		return "auth_invalid"
	case RemoteNetworkError:
		return "network_error"
	case RemoteTimeout:
		return "timeout"
	default:
		return "unknown_error"
	}
}

// UserMessage is the fixed text shown to the user for this category.
func (c RemoteErrorCategory) UserMessage() string {
	switch c {
	case RemoteUnavailable:
		return "⚠️ The AI service is not available right now. Please try again later."
	case RemoteQuotaExceeded:
		return "⚠️ The AI service quota has been exhausted. Please try again later."
	case RemoteSafetyBlocked:
		return "⚠️ The AI declined to answer this question for safety reasons. Try rephrasing it."
	case RemoteAuthInvalid:
		return "⚠️ The AI service rejected the bot's credentials. The operator has been notified."
	case RemoteNetworkError:
		return "⚠️ Couldn't reach the AI service. Please try again in a moment."
	case RemoteTimeout:
		return "⚠️ The AI took too long to answer. Please try again."
	default:
		return "⚠️ Something went wrong while talking to the AI. Please try again."
	}
}

// ClassifyRemoteError maps a remote-call failure to a category. Quota is
// checked before network because quota errors often also carry HTTP noise.
func ClassifyRemoteError(err error) RemoteErrorCategory {
	if err == nil {
		return RemoteUnknownError
	}
	if errors.Is(err, ErrRemoteUnavailable) {
		return RemoteUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return RemoteTimeout
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "quota", "billing", "resource_exhausted", "resource has been exhausted", "429"):
		return RemoteQuotaExceeded
	case containsAny(text, "safety", "blocked", "block_reason"):
		return RemoteSafetyBlocked
	case containsAny(text, "api key", "api_key", "unauthenticated", "permission denied", "401", "403"):
		return RemoteAuthInvalid
	case containsAny(text, "timeout", "timed out", "deadline"):
		return RemoteTimeout
	case containsAny(text, "connection", "network", "dial", "unavailable", "503", "eof"):
		return RemoteNetworkError
	default:
		return RemoteUnknownError
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
