package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func apiErr(code int, reason string) error {
	e := &googleapi.Error{Code: code, Message: "boom"}
	if reason != "" {
		e.Errors = []googleapi.ErrorItem{{Reason: reason}}
	}
	return e
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		want error
	}{
		{"quota exceeded", "playlistItems.list", apiErr(403, "quotaExceeded"), ErrQuotaExceeded},
		{"daily limit", "search.list", apiErr(403, "dailyLimitExceeded"), ErrQuotaExceeded},
		{"rate limited", "playlistItems.list", apiErr(403, "rateLimitExceeded"), ErrTransient},
		{"server error", "channels.list", apiErr(503, ""), ErrTransient},
		{"too many requests", "channels.list", apiErr(429, ""), ErrTransient},
		{"bad page token", "playlistItems.list", apiErr(400, "invalidPageToken"), ErrInvalidPageToken},
		{"unauthorized", "channels.list", apiErr(401, ""), ErrCredentials},
		{"insufficient scope", "playlists.insert", apiErr(403, "insufficientPermissions"), ErrCredentials},
		{"video gone", opAddItem, apiErr(404, "videoNotFound"), ErrItemUnavailable},
		{"forbidden add", opAddItem, apiErr(403, "forbidden"), ErrItemUnavailable},
		{"forbidden list", "playlistItems.list", apiErr(403, "playlistItemsNotAccessible"), ErrNotFound},
		{"playlist missing", "playlistItems.list", apiErr(404, "playlistNotFound"), ErrNotFound},
		{"token refresh", "channels.list", &url.Error{Op: "Get", URL: "x", Err: &oauth2.RetrieveError{}}, ErrCredentials},
		{"network", "channels.list", &url.Error{Op: "Get", URL: "x", Err: errors.New("connection reset")}, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.op, tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	got := classify("channels.list", apiErr(400, "badRequest"))

	var apiError *APIError
	assert.ErrorAs(t, got, &apiError)
	assert.Nil(t, apiError.Kind)
	assert.Equal(t, 400, apiError.Code)
	assert.False(t, IsRetryable(got))
}

func TestClassify_PassesContextErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", context.Canceled)
	assert.Equal(t, err, classify("channels.list", err))
	assert.Nil(t, classify("channels.list", nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(classify("x", apiErr(500, ""))))
	assert.False(t, IsRetryable(classify("x", apiErr(403, "quotaExceeded"))))
	assert.False(t, IsRetryable(errors.New("plain")))
}
