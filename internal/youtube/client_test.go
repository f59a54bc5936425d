package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/pkg/logger"
)

const testChannel = models.ChannelKey("UCabcdefghijklmnopqrstuv")

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := youtube.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewClientWithService(svc, nil, logger.Nop())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"failed","errors":[{"reason":%q,"message":"failed"}]}}`, code, reason)
}

func TestListUploads_ParsesPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/playlistItems"))
		assert.Equal(t, "UUabcdefghijklmnopqrstuv", r.URL.Query().Get("playlistId"))
		assert.Equal(t, "tok1", r.URL.Query().Get("pageToken"))
		assert.Equal(t, "50", r.URL.Query().Get("maxResults"))

		writeJSON(t, w, map[string]any{
			"nextPageToken": "tok2",
			"items": []any{
				map[string]any{
					"snippet": map[string]any{
						"title":        "First",
						"channelId":    string(testChannel),
						"channelTitle": "Chan",
						"publishedAt":  "2024-05-03T10:00:00Z",
						"thumbnails":   map[string]any{"medium": map[string]any{"url": "https://i.ytimg.com/m.jpg"}},
					},
					"contentDetails": map[string]any{
						"videoId":          "vid1",
						"videoPublishedAt": "2024-05-01T09:00:00Z",
					},
				},
				map[string]any{
					// private video: no publish time
					"snippet":        map[string]any{"title": "Private video", "channelId": string(testChannel)},
					"contentDetails": map[string]any{"videoId": "vid2"},
				},
			},
		})
	})

	page, err := client.ListUploads(context.Background(), testChannel.UploadsPlaylistID(), "tok1")
	require.NoError(t, err)

	assert.Equal(t, "tok2", page.NextPageToken)
	require.Len(t, page.Videos, 1)
	v := page.Videos[0]
	assert.Equal(t, "vid1", v.ID)
	assert.Equal(t, testChannel, v.ChannelID)
	assert.Equal(t, "First", v.Title)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), v.PublishedAt)
	assert.Equal(t, "https://i.ytimg.com/m.jpg", v.ThumbnailURL)
}

func TestListUploads_ClassifiesQuotaError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, "quotaExceeded")
	})

	_, err := client.ListUploads(context.Background(), "UUx", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestChannelInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/channels"))
		assert.Equal(t, string(testChannel), r.URL.Query().Get("id"))
		writeJSON(t, w, map[string]any{
			"items": []any{map[string]any{
				"id":             string(testChannel),
				"snippet":        map[string]any{"title": "Chan"},
				"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UUcustom"}},
				"statistics":     map[string]any{"videoCount": "42"},
			}},
		})
	})

	info, err := client.ChannelInfo(context.Background(), testChannel)
	require.NoError(t, err)
	assert.Equal(t, "Chan", info.Title)
	assert.Equal(t, "UUcustom", info.UploadsPlaylistID)
	assert.Equal(t, int64(42), info.VideoCount)
}

func TestChannelInfo_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{}})
	})

	_, err := client.ChannelInfo(context.Background(), testChannel)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannelForHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "@someone", r.URL.Query().Get("forHandle"))
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{"id": string(testChannel)}}})
	})

	key, err := client.ChannelForHandle(context.Background(), "@someone")
	require.NoError(t, err)
	assert.Equal(t, testChannel, key)
}

func TestSearchChannel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/search"))
		assert.Equal(t, "channel", r.URL.Query().Get("type"))
		assert.Equal(t, "some name", r.URL.Query().Get("q"))
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{
			"id": map[string]any{"kind": "youtube#channel", "channelId": string(testChannel)},
		}}})
	})

	key, err := client.SearchChannel(context.Background(), "some name")
	require.NoError(t, err)
	assert.Equal(t, testChannel, key)
}

func TestSearchChannel_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{}})
	})

	_, err := client.SearchChannel(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddItem(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/playlistItems"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, map[string]any{"id": "item1"})
	})

	require.NoError(t, client.AddItem(context.Background(), "PL1", "vid1"))

	snippet := body["snippet"].(map[string]any)
	assert.Equal(t, "PL1", snippet["playlistId"])
	assert.Equal(t, "vid1", snippet["resourceId"].(map[string]any)["videoId"])
}

func TestAddItem_Unavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "videoNotFound")
	})

	err := client.AddItem(context.Background(), "PL1", "gone")
	assert.ErrorIs(t, err, ErrItemUnavailable)
	assert.False(t, IsRetryable(err))
}

func TestCreateAndListPlaylists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/playlists"))
		if r.Method == http.MethodPost {
			writeJSON(t, w, map[string]any{"id": "PLnew"})
			return
		}
		assert.Equal(t, "true", r.URL.Query().Get("mine"))
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{
			"id":             "PL1",
			"snippet":        map[string]any{"title": "Weekly"},
			"status":         map[string]any{"privacyStatus": "private"},
			"contentDetails": map[string]any{"itemCount": 3},
		}}})
	})

	created, err := client.CreatePlaylist(context.Background(), "New", "desc", "private")
	require.NoError(t, err)
	assert.Equal(t, "PLnew", created.ID)

	page, err := client.ListMyPlaylists(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Playlists, 1)
	assert.Equal(t, "Weekly", page.Playlists[0].Title)
	assert.Equal(t, int64(3), page.Playlists[0].ItemCount)
}

func TestListPlaylistVideoIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{
			map[string]any{"contentDetails": map[string]any{"videoId": "a", "videoPublishedAt": "2024-03-05T10:00:00Z"}},
			map[string]any{"contentDetails": map[string]any{"videoId": "b", "videoPublishedAt": "2024-02-01T08:30:00Z"}},
			map[string]any{"contentDetails": map[string]any{"videoId": "private"}},
		}})
	})

	page, err := client.ListPlaylistVideoIDs(context.Background(), "PL1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "private"}, page.VideoIDs)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC), page.OldestPublished)
	assert.Empty(t, page.NextPageToken)
}

func TestContainsVideo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "PL1", q.Get("playlistId"))
		if q.Get("videoId") == "present" {
			writeJSON(t, w, map[string]any{"items": []any{map[string]any{"id": "item1"}}})
			return
		}
		writeJSON(t, w, map[string]any{"items": []any{}})
	})

	found, err := client.ContainsVideo(context.Background(), "PL1", "present")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = client.ContainsVideo(context.Background(), "PL1", "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLikedPlaylistID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("mine"))
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{
			"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"likes": "LL"}},
		}}})
	})

	id, err := client.LikedPlaylistID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "LL", id)
}
