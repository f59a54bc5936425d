package youtube

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/pkg/logger"
	"github.com/playlist-sync/pkg/ratelimit"
)

const pageSize = 50

// Client performs raw YouTube Data API calls. It does not charge quota;
// callers reserve budget before each call.
type Client struct {
	service *youtube.Service
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// NewClient creates a client authenticated through the OAuth manager
func NewClient(ctx context.Context, oauth *OAuthManager, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*Client, error) {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(oauth.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return NewClientWithService(svc, limiter, log), nil
}

// NewClientWithService wraps an existing service (custom endpoint or HTTP client)
func NewClientWithService(svc *youtube.Service, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	if limiter == nil {
		limiter = ratelimit.New(0, 0)
	}
	return &Client{
		service: svc,
		limiter: limiter,
		log:     log.WithComponent("youtube"),
	}
}

func (c *Client) wait(ctx context.Context, name string) error {
	if err := c.limiter.Wait(ctx, name); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}
	return nil
}

// SearchChannel finds the best channel match for free text
func (c *Client) SearchChannel(ctx context.Context, query string) (models.ChannelKey, error) {
	const op = "search.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return "", err
	}

	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(op, err)
	}

	for _, item := range resp.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			return models.ChannelKey(item.Id.ChannelId), nil
		}
		if item.Snippet != nil && item.Snippet.ChannelId != "" {
			return models.ChannelKey(item.Snippet.ChannelId), nil
		}
	}
	return "", &APIError{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("no channel matches %q", query)}
}

// ChannelForHandle resolves an @handle
func (c *Client) ChannelForHandle(ctx context.Context, handle string) (models.ChannelKey, error) {
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return "", err
	}
	resp, err := c.service.Channels.List([]string{"id"}).ForHandle(handle).Context(ctx).Do()
	return firstChannel("channels.list", handle, resp, err)
}

// ChannelForUsername resolves a legacy /user/ name
func (c *Client) ChannelForUsername(ctx context.Context, username string) (models.ChannelKey, error) {
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return "", err
	}
	resp, err := c.service.Channels.List([]string{"id"}).ForUsername(username).Context(ctx).Do()
	return firstChannel("channels.list", username, resp, err)
}

func firstChannel(op, query string, resp *youtube.ChannelListResponse, err error) (models.ChannelKey, error) {
	if err != nil {
		return "", classify(op, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == "" {
		return "", &APIError{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("no channel for %q", query)}
	}
	return models.ChannelKey(resp.Items[0].Id), nil
}

// ChannelInfo returns title and uploads playlist of a channel
func (c *Client) ChannelInfo(ctx context.Context, key models.ChannelKey) (*models.ChannelInfo, error) {
	const op = "channels.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return nil, err
	}

	resp, err := c.service.Channels.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(string(key)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(op, err)
	}
	if len(resp.Items) == 0 {
		return nil, &APIError{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("channel %s", key)}
	}

	ch := resp.Items[0]
	info := &models.ChannelInfo{ID: models.ChannelKey(ch.Id)}
	if ch.Snippet != nil {
		info.Title = ch.Snippet.Title
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		info.UploadsPlaylistID = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	if ch.Statistics != nil {
		info.VideoCount = int64(ch.Statistics.VideoCount)
	}
	if info.UploadsPlaylistID == "" {
		info.UploadsPlaylistID = key.UploadsPlaylistID()
	}
	return info, nil
}

// ListUploads returns one page of a channel's uploads playlist, newest first
func (c *Client) ListUploads(ctx context.Context, uploadsPlaylistID, pageToken string) (*models.VideoPage, error) {
	const op = "playlistItems.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return nil, err
	}

	call := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(uploadsPlaylistID).
		MaxResults(pageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}

	page := &models.VideoPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if v := videoFromItem(item); v != nil {
			page.Videos = append(page.Videos, v)
		}
	}

	c.log.Debug().
		Str("playlist_id", uploadsPlaylistID).
		Int("videos", len(page.Videos)).
		Bool("more", page.NextPageToken != "").
		Msg("Fetched uploads page")

	return page, nil
}

func videoFromItem(item *youtube.PlaylistItem) *models.Video {
	if item == nil || item.Snippet == nil {
		return nil
	}

	v := &models.Video{
		Title:        item.Snippet.Title,
		ChannelID:    models.ChannelKey(item.Snippet.ChannelId),
		ChannelTitle: item.Snippet.ChannelTitle,
		Description:  item.Snippet.Description,
	}
	if item.Snippet.VideoOwnerChannelId != "" {
		v.ChannelID = models.ChannelKey(item.Snippet.VideoOwnerChannelId)
		v.ChannelTitle = item.Snippet.VideoOwnerChannelTitle
	}

	published := item.Snippet.PublishedAt
	if item.ContentDetails != nil {
		v.ID = item.ContentDetails.VideoId
		if item.ContentDetails.VideoPublishedAt != "" {
			published = item.ContentDetails.VideoPublishedAt
		}
	}
	if v.ID == "" && item.Snippet.ResourceId != nil {
		v.ID = item.Snippet.ResourceId.VideoId
	}
	if v.ID == "" {
		return nil
	}

	// Private and deleted uploads carry no publish time
	t, err := time.Parse(time.RFC3339, published)
	if err != nil {
		return nil
	}
	v.PublishedAt = t.UTC()

	if th := item.Snippet.Thumbnails; th != nil {
		for _, t := range []*youtube.Thumbnail{th.Medium, th.High, th.Default} {
			if t != nil && t.Url != "" {
				v.ThumbnailURL = t.Url
				break
			}
		}
	}
	return v
}

// ListMyPlaylists returns one page of the authenticated user's playlists
func (c *Client) ListMyPlaylists(ctx context.Context, pageToken string) (*models.PlaylistPage, error) {
	const op = "playlists.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return nil, err
	}

	call := c.service.Playlists.List([]string{"snippet", "contentDetails", "status"}).
		Mine(true).
		MaxResults(pageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}

	page := &models.PlaylistPage{NextPageToken: resp.NextPageToken}
	for _, p := range resp.Items {
		pl := models.Playlist{ID: p.Id}
		if p.Snippet != nil {
			pl.Title = p.Snippet.Title
			pl.Description = p.Snippet.Description
		}
		if p.Status != nil {
			pl.PrivacyStatus = p.Status.PrivacyStatus
		}
		if p.ContentDetails != nil {
			pl.ItemCount = p.ContentDetails.ItemCount
		}
		page.Playlists = append(page.Playlists, pl)
	}
	return page, nil
}

// CreatePlaylist creates a playlist owned by the authenticated user
func (c *Client) CreatePlaylist(ctx context.Context, title, description, privacy string) (*models.Playlist, error) {
	const op = "playlists.insert"
	if err := c.wait(ctx, ratelimit.LimiterWrite); err != nil {
		return nil, err
	}

	created, err := c.service.Playlists.Insert([]string{"snippet", "status"}, &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{
			Title:       title,
			Description: description,
		},
		Status: &youtube.PlaylistStatus{PrivacyStatus: privacy},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}

	c.log.Info().
		Str("playlist_id", created.Id).
		Str("title", title).
		Str("privacy", privacy).
		Msg("Created playlist")

	return &models.Playlist{ID: created.Id, Title: title, Description: description, PrivacyStatus: privacy}, nil
}

// ListPlaylistVideoIDs returns one page of video ids in a playlist
func (c *Client) ListPlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) (*models.PlaylistItemsPage, error) {
	const op = "playlistItems.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return nil, err
	}

	call := c.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(pageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}

	page := &models.PlaylistItemsPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
			continue
		}
		page.VideoIDs = append(page.VideoIDs, item.ContentDetails.VideoId)
		t, err := time.Parse(time.RFC3339, item.ContentDetails.VideoPublishedAt)
		if err != nil {
			continue
		}
		if page.OldestPublished.IsZero() || t.Before(page.OldestPublished) {
			page.OldestPublished = t.UTC()
		}
	}
	return page, nil
}

// ContainsVideo reports whether the playlist already holds the video
func (c *Client) ContainsVideo(ctx context.Context, playlistID, videoID string) (bool, error) {
	const op = "playlistItems.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return false, err
	}

	resp, err := c.service.PlaylistItems.List([]string{"id"}).
		PlaylistId(playlistID).
		VideoId(videoID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return false, classify(op, err)
	}
	return len(resp.Items) > 0, nil
}

// LikedPlaylistID returns the id of the user's liked-videos playlist
func (c *Client) LikedPlaylistID(ctx context.Context) (string, error) {
	const op = "channels.list"
	if err := c.wait(ctx, ratelimit.LimiterRead); err != nil {
		return "", err
	}

	resp, err := c.service.Channels.List([]string{"contentDetails"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", classify(op, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil || resp.Items[0].ContentDetails.RelatedPlaylists == nil {
		return "", &APIError{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("no channel for the authenticated user")}
	}
	likes := resp.Items[0].ContentDetails.RelatedPlaylists.Likes
	if likes == "" {
		return "", &APIError{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("liked videos playlist is not available")}
	}
	return likes, nil
}

// AddItem appends a video to the end of a playlist
func (c *Client) AddItem(ctx context.Context, playlistID, videoID string) error {
	if err := c.wait(ctx, ratelimit.LimiterWrite); err != nil {
		return err
	}

	_, err := c.service.PlaylistItems.Insert([]string{"snippet"}, &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return classify(opAddItem, err)
	}
	return nil
}
