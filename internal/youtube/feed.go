package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/pkg/logger"
	"github.com/playlist-sync/pkg/ratelimit"
)

// DefaultFeedBaseURL is the public per-channel uploads feed
const DefaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// FeedReader reads the public uploads feed of a channel. The feed holds
// only the most recent uploads but costs no quota.
type FeedReader struct {
	baseURL string
	parser  *gofeed.Parser
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// NewFeedReader creates a feed reader. client may be nil.
func NewFeedReader(baseURL string, client *http.Client, limiter *ratelimit.MultiLimiter, log *logger.Logger) *FeedReader {
	if baseURL == "" {
		baseURL = DefaultFeedBaseURL
	}
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	if limiter == nil {
		limiter = ratelimit.New(0, 0)
	}
	return &FeedReader{
		baseURL: baseURL,
		parser:  parser,
		limiter: limiter,
		log:     log.WithComponent("feed"),
	}
}

// Recent returns the channel's most recent uploads, newest first
func (f *FeedReader) Recent(ctx context.Context, key models.ChannelKey) ([]*models.Video, error) {
	const op = "feed"
	if err := f.limiter.Wait(ctx, ratelimit.LimiterFeed); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	feedURL := f.baseURL + "?channel_id=" + url.QueryEscape(string(key))
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var herr gofeed.HTTPError
		if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
			return nil, &APIError{Op: op, Code: herr.StatusCode, Kind: ErrNotFound, Err: err}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &APIError{Op: op, Kind: ErrTransient, Err: err}
	}

	videos := make([]*models.Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		v := videoFromFeedItem(key, feed.Title, item)
		if v == nil {
			continue
		}
		videos = append(videos, v)
	}

	f.log.Debug().
		Str("channel", string(key)).
		Int("count", len(videos)).
		Msg("Read channel feed")

	return videos, nil
}

func videoFromFeedItem(key models.ChannelKey, channelTitle string, item *gofeed.Item) *models.Video {
	if item == nil || item.PublishedParsed == nil {
		return nil
	}

	id := extValue(item.Extensions, "yt", "videoId")
	if id == "" {
		id = strings.TrimPrefix(item.GUID, "yt:video:")
	}
	if id == "" {
		return nil
	}

	v := &models.Video{
		ID:           id,
		ChannelID:    key,
		ChannelTitle: channelTitle,
		Title:        item.Title,
		PublishedAt:  item.PublishedParsed.UTC(),
	}
	if item.Author != nil && item.Author.Name != "" {
		v.ChannelTitle = item.Author.Name
	}

	if groups := item.Extensions["media"]["group"]; len(groups) > 0 {
		group := groups[0]
		if d := group.Children["description"]; len(d) > 0 {
			v.Description = d[0].Value
		}
		if t := group.Children["thumbnail"]; len(t) > 0 {
			v.ThumbnailURL = t[0].Attrs["url"]
		}
	}
	return v
}

func extValue(exts ext.Extensions, ns, name string) string {
	if exts == nil {
		return ""
	}
	values := exts[ns][name]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}
