package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	ErrQuotaExceeded    = errors.New("youtube quota exceeded")
	ErrCredentials      = errors.New("youtube credentials rejected")
	ErrNotFound         = errors.New("youtube resource not found")
	ErrItemUnavailable  = errors.New("video unavailable")
	ErrTransient        = errors.New("transient youtube error")
	ErrInvalidPageToken = errors.New("invalid page token")
)

// APIError is a classified API failure. Kind is one of the sentinels above
// or nil for failures that fit none of them.
type APIError struct {
	Op     string
	Code   int
	Reason string
	Kind   error
	Err    error
}

func (e *APIError) Error() string {
	kind := "error"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}
	if e.Reason != "" {
		return fmt.Sprintf("youtube %s: %s (%d %s): %v", e.Op, kind, e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("youtube %s: %s: %v", e.Op, kind, e.Err)
}

func (e *APIError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

const opAddItem = "playlistItems.insert"

// classify maps a raw client error onto the error taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 {
			reason = gerr.Errors[0].Reason
		}
		return &APIError{Op: op, Code: gerr.Code, Reason: reason, Kind: kindFor(op, gerr.Code, reason), Err: err}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) || errors.Is(err, ErrCredentials) {
		return &APIError{Op: op, Kind: ErrCredentials, Err: err}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &APIError{Op: op, Kind: ErrTransient, Err: err}
	}

	return &APIError{Op: op, Err: err}
}

func kindFor(op string, code int, reason string) error {
	switch reason {
	case "quotaExceeded", "dailyLimitExceeded", "dailyLimitExceededUnreg":
		return ErrQuotaExceeded
	case "rateLimitExceeded", "userRateLimitExceeded", "backendError", "internalError":
		return ErrTransient
	case "invalidPageToken":
		return ErrInvalidPageToken
	case "authError", "unauthorized", "insufficientPermissions", "youtubeSignupRequired":
		return ErrCredentials
	case "videoNotFound", "videoNotPlayable", "videoUnavailable":
		return ErrItemUnavailable
	case "forbidden", "playlistItemsNotAccessible":
		if op == opAddItem {
			return ErrItemUnavailable
		}
		return ErrNotFound
	case "playlistNotFound", "channelNotFound", "notFound":
		return ErrNotFound
	}

	switch {
	case code == 401:
		return ErrCredentials
	case code == 404:
		return ErrNotFound
	case code == 408 || code == 429 || code >= 500:
		return ErrTransient
	}
	return nil
}
