// Package videocache keeps per-channel upload lists with a freshness
// watermark and refreshes them page by page within the daily quota.
package videocache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

// Mode selects how much refreshing a lookup may do
type Mode int

const (
	// RefreshNever serves whatever is cached
	RefreshNever Mode = iota
	// RefreshIfStale refreshes absent or stale entries only
	RefreshIfStale
	// RefreshIncremental also fetches uploads newer than a fresh watermark
	RefreshIncremental
	// RefreshFull replaces the entry regardless of freshness
	RefreshFull
)

func (m Mode) String() string {
	switch m {
	case RefreshNever:
		return "never"
	case RefreshIfStale:
		return "if_stale"
	case RefreshIncremental:
		return "incremental"
	case RefreshFull:
		return "full"
	default:
		return "unknown"
	}
}

// Window is an inclusive publish-time range. A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Config holds cache settings
type Config struct {
	Freshness time.Duration
	UseFeed   bool
	Retry     retry.Config
}

// Request describes one channel lookup
type Request struct {
	Channel models.ChannelKey
	Window  Window
	Mode    Mode
	// Freshness overrides the configured budget when positive
	Freshness time.Duration
}

// Result is the outcome of a lookup
type Result struct {
	Channel models.ChannelKey
	Title   string
	// Items are the cached uploads inside the window, oldest first
	Items []*models.Video

	Refreshed     bool
	FromFeed      bool
	Partial       bool
	BudgetLimited bool
	Interrupted   bool

	Added  int
	Pages  int
	Pruned int
}

type action int

const (
	actionNone action = iota
	actionResume
	actionFull
	actionIncremental
)

// Cache serves channel uploads from the store and refreshes them remotely
type Cache struct {
	store     storage.VideoStore
	remote    Remote
	budget    Budget
	feed      Feed
	interrupt Interrupter
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
	newRunID  func() string
}

// New creates a video metadata cache
func New(store storage.VideoStore, remote Remote, budget Budget, cfg Config, log *logger.Logger) *Cache {
	return &Cache{
		store:    store,
		remote:   remote,
		budget:   budget,
		cfg:      cfg,
		log:      log.WithComponent("videocache"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// SetFeed enables the quota-free feed probe for incremental refreshes
func (c *Cache) SetFeed(feed Feed) {
	c.feed = feed
}

// SetInterrupt installs the stop flag checked between pages
func (c *Cache) SetInterrupt(i Interrupter) {
	c.interrupt = i
}

// SetClock overrides the time source
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// ItemsFor returns the channel's uploads inside the window, refreshing the
// cache first as the mode allows. Budget denials are not errors: the result
// is served from whatever is cached and reports BudgetLimited.
func (c *Cache) ItemsFor(ctx context.Context, req Request) (*Result, error) {
	log := c.log.WithChannel(string(req.Channel))
	res := &Result{Channel: req.Channel}

	entry, err := c.load(ctx, req.Channel)
	if err != nil {
		return nil, err
	}

	freshness := req.Freshness
	if freshness <= 0 {
		freshness = c.cfg.Freshness
	}

	act := c.decide(entry, req.Mode, freshness)
	log.Debug().
		Str("mode", req.Mode.String()).
		Int("action", int(act)).
		Msg("Cache lookup")

	switch act {
	case actionResume:
		log.Info().
			Str("kind", string(entry.PendingKind)).
			Int("pages_done", entry.PagesFetched).
			Msg("Resuming unfinished refresh")
		err = c.page(ctx, entry, res)

	case actionFull:
		entry, err = c.ensureEntry(ctx, req.Channel, entry, res)
		if err == nil && entry != nil {
			c.begin(entry, models.RefreshKindFull)
			err = c.page(ctx, entry, res)
		}

	case actionIncremental:
		var probed bool
		probed, err = c.probeFeed(ctx, entry, res)
		if err == nil && !probed {
			c.begin(entry, models.RefreshKindIncremental)
			err = c.page(ctx, entry, res)
		}
	}

	if entry != nil {
		res.Title = entry.Title
		res.Partial = entry.IsPartial()
	}
	if err != nil {
		return res, err
	}

	res.Items, err = c.windowed(ctx, req.Channel, req.Window)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (c *Cache) decide(entry *models.ChannelCache, mode Mode, freshness time.Duration) action {
	if mode == RefreshNever {
		return actionNone
	}
	if entry == nil {
		return actionFull
	}
	if entry.IsPartial() {
		if mode == RefreshFull && entry.PendingKind != models.RefreshKindFull {
			return actionFull
		}
		return actionResume
	}
	switch {
	case mode == RefreshFull:
		return actionFull
	case !entry.IsFresh(c.now(), freshness):
		return actionFull
	case mode == RefreshIncremental:
		return actionIncremental
	}
	return actionNone
}

// load returns the stored entry, nil when absent. Malformed entries are
// dropped so the channel is rebuilt by a full refresh.
func (c *Cache) load(ctx context.Context, key models.ChannelKey) (*models.ChannelCache, error) {
	entry, err := c.store.GetChannelCache(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil && !errors.Is(err, storage.ErrCorrupt) {
		return nil, fmt.Errorf("load channel cache: %w", err)
	}
	if err == nil && validEntry(entry) {
		return entry, nil
	}

	c.log.Warn().
		Err(storage.ErrCorrupt).
		Str("channel", string(key)).
		Msg("Discarding malformed channel cache entry; it will be rebuilt")
	if err := c.store.DeleteChannel(ctx, key); err != nil {
		return nil, fmt.Errorf("drop channel cache: %w", err)
	}
	return nil, nil
}

func validEntry(e *models.ChannelCache) bool {
	if e == nil || e.UploadsPlaylistID == "" {
		return false
	}
	switch e.Status {
	case models.CacheComplete:
		return true
	case models.CachePartial:
		if e.PendingSince == nil {
			return false
		}
		switch e.PendingKind {
		case models.RefreshKindFull:
			return true
		case models.RefreshKindIncremental:
			return e.RefreshedAt != nil
		}
	}
	return false
}

// ensureEntry makes sure the channel's uploads playlist is known. It returns
// nil without error when the budget cannot cover the lookup.
func (c *Cache) ensureEntry(ctx context.Context, key models.ChannelKey, entry *models.ChannelCache, res *Result) (*models.ChannelCache, error) {
	if entry != nil {
		return entry, nil
	}

	var info *models.ChannelInfo
	err := retry.Do(ctx, c.cfg.Retry, youtube.IsRetryable, quota.Metered(c.budget, quota.OpChannelInfo, func(ctx context.Context) error {
		var callErr error
		info, callErr = c.remote.ChannelInfo(ctx, key)
		return callErr
	}))
	switch {
	case err == nil:
	case errors.Is(err, quota.ErrBudgetExhausted):
		res.BudgetLimited = true
		return nil, nil
	case errors.Is(err, youtube.ErrQuotaExceeded):
		c.exhaust(ctx)
		res.BudgetLimited = true
		return nil, nil
	default:
		return nil, fmt.Errorf("channel info for %s: %w", key, err)
	}

	entry = &models.ChannelCache{
		ChannelID:         key,
		Title:             info.Title,
		UploadsPlaylistID: info.UploadsPlaylistID,
		Status:            models.CacheComplete,
	}
	if entry.UploadsPlaylistID == "" {
		entry.UploadsPlaylistID = key.UploadsPlaylistID()
	}
	if err := c.store.SaveChannelCache(ctx, entry); err != nil {
		return nil, fmt.Errorf("save channel cache: %w", err)
	}

	c.log.Info().
		Str("channel", string(key)).
		Str("title", info.Title).
		Int64("videos", info.VideoCount).
		Msg("Channel registered in cache")

	return entry, nil
}

// begin starts a new paging run on entry. Nothing is persisted until the
// first page arrives.
func (c *Cache) begin(entry *models.ChannelCache, kind models.RefreshKind) {
	since := c.now()
	entry.PendingKind = kind
	entry.PendingRun = c.newRunID()
	entry.PendingToken = ""
	entry.PendingSince = &since
	entry.PagesFetched = 0
}

// page fetches pages until the refresh completes, the budget or the
// interrupt stops it, or a call fails. Each page is persisted with the
// token of the next one.
func (c *Cache) page(ctx context.Context, entry *models.ChannelCache, res *Result) error {
	log := c.log.WithChannel(string(entry.ChannelID))

	for {
		if entry.PagesFetched > 0 && entry.PendingToken == "" {
			return c.finish(ctx, entry, res)
		}

		if c.interrupt != nil && c.interrupt.Requested() {
			res.Interrupted = true
			log.Info().Int("pages", res.Pages).Msg("Refresh interrupted between pages")
			return nil
		}

		var page *models.VideoPage
		err := retry.Do(ctx, c.cfg.Retry, youtube.IsRetryable, quota.Metered(c.budget, quota.OpListPage, func(ctx context.Context) error {
			var callErr error
			page, callErr = c.remote.ListUploads(ctx, entry.UploadsPlaylistID, entry.PendingToken)
			return callErr
		}))
		switch {
		case err == nil:
		case errors.Is(err, quota.ErrBudgetExhausted):
			res.BudgetLimited = true
			log.Info().
				Int("pages", res.Pages).
				Msg("Quota denied the next page; cache left partial")
			return nil
		case errors.Is(err, youtube.ErrInvalidPageToken):
			log.Warn().
				Str("token", entry.PendingToken).
				Msg("Stored page token rejected; restarting refresh from the first page")
			c.begin(entry, entry.PendingKind)
			continue
		case errors.Is(err, youtube.ErrQuotaExceeded):
			c.exhaust(ctx)
			res.BudgetLimited = true
			return nil
		case errors.Is(err, youtube.ErrNotFound) && entry.PagesFetched == 0:
			// a channel without uploads has no uploads playlist
			log.Warn().Str("playlist_id", entry.UploadsPlaylistID).Msg("Uploads playlist not found; treating channel as empty")
			page = &models.VideoPage{}
		default:
			return fmt.Errorf("list uploads of %s: %w", entry.ChannelID, err)
		}

		videos, reachedWatermark := c.collect(entry, page.Videos)

		entry.PagesFetched++
		entry.PendingToken = page.NextPageToken
		if reachedWatermark {
			entry.PendingToken = ""
		}
		entry.Status = models.CachePartial

		added, err := c.store.SavePage(ctx, entry, videos)
		if err != nil {
			return fmt.Errorf("save page: %w", err)
		}
		res.Added += added
		res.Pages++

		log.Debug().
			Str("kind", string(entry.PendingKind)).
			Int("page", entry.PagesFetched).
			Int("videos", len(videos)).
			Int("added", added).
			Bool("more", entry.PendingToken != "").
			Msg("Cached uploads page")
	}
}

// collect normalizes a page and reports whether an incremental refresh has
// reached uploads older than the watermark
func (c *Cache) collect(entry *models.ChannelCache, page []*models.Video) ([]*models.Video, bool) {
	videos := make([]*models.Video, 0, len(page))
	reached := false
	for _, v := range page {
		if v == nil {
			continue
		}
		v.ChannelID = entry.ChannelID
		if v.ChannelTitle == "" {
			v.ChannelTitle = entry.Title
		}
		if !v.Valid() {
			continue
		}
		if entry.PendingKind == models.RefreshKindIncremental && entry.RefreshedAt != nil && v.PublishedAt.Before(*entry.RefreshedAt) {
			reached = true
		}
		videos = append(videos, v)
	}
	return videos, reached
}

// finish marks the refresh complete. A full refresh prunes every upload the
// run did not see.
func (c *Cache) finish(ctx context.Context, entry *models.ChannelCache, res *Result) error {
	pruneRun := ""
	if entry.PendingKind == models.RefreshKindFull {
		pruneRun = entry.PendingRun
	}

	watermark := c.now()
	if entry.PendingSince != nil {
		watermark = *entry.PendingSince
	}
	kind := entry.PendingKind

	done := *entry
	done.Status = models.CacheComplete
	done.RefreshedAt = &watermark
	done.PendingKind = ""
	done.PendingRun = ""
	done.PendingToken = ""
	done.PendingSince = nil
	done.PagesFetched = 0

	pruned, err := c.store.FinishRefresh(ctx, &done, pruneRun)
	if err != nil {
		return fmt.Errorf("finish refresh: %w", err)
	}
	*entry = done

	res.Refreshed = true
	res.Pruned = pruned

	c.log.Info().
		Str("channel", string(entry.ChannelID)).
		Str("kind", string(kind)).
		Int("pages", res.Pages).
		Int("added", res.Added).
		Int("pruned", pruned).
		Time("watermark", watermark).
		Msg("Channel cache refreshed")

	return nil
}

// probeFeed tries to bring a fresh entry up to date from the public feed.
// It reports false when the feed cannot prove completeness back to the
// watermark.
func (c *Cache) probeFeed(ctx context.Context, entry *models.ChannelCache, res *Result) (bool, error) {
	if !c.cfg.UseFeed || c.feed == nil || entry.RefreshedAt == nil {
		return false, nil
	}
	log := c.log.WithChannel(string(entry.ChannelID))

	probedAt := c.now()
	recent, err := c.feed.Recent(ctx, entry.ChannelID)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Debug().Err(err).Msg("Feed probe failed; falling back to paging")
		return false, nil
	}
	if len(recent) == 0 {
		return false, nil
	}

	oldest := recent[0].PublishedAt
	for _, v := range recent[1:] {
		if v.PublishedAt.Before(oldest) {
			oldest = v.PublishedAt
		}
	}
	if oldest.After(*entry.RefreshedAt) {
		log.Debug().
			Time("oldest", oldest).
			Time("watermark", *entry.RefreshedAt).
			Msg("Feed does not reach back to the watermark; paging instead")
		return false, nil
	}

	videos := make([]*models.Video, 0, len(recent))
	for _, v := range recent {
		v.ChannelID = entry.ChannelID
		if v.Valid() {
			videos = append(videos, v)
		}
	}

	next := *entry
	next.RefreshedAt = &probedAt
	added, err := c.store.SavePage(ctx, &next, videos)
	if err != nil {
		return false, fmt.Errorf("save feed items: %w", err)
	}
	*entry = next

	res.Refreshed = true
	res.FromFeed = true
	res.Added += added

	log.Info().
		Int("feed_items", len(videos)).
		Int("added", added).
		Msg("Channel cache refreshed from feed")

	return true, nil
}

func (c *Cache) exhaust(ctx context.Context) {
	if err := c.budget.Exhaust(ctx); err != nil {
		c.log.Error().Err(err).Msg("Failed to record server-side quota exhaustion")
	}
}

// windowed returns the cached uploads inside the window, oldest first
func (c *Cache) windowed(ctx context.Context, key models.ChannelKey, w Window) ([]*models.Video, error) {
	videos, err := c.store.ListVideos(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list cached videos: %w", err)
	}

	out := make([]*models.Video, 0, len(videos))
	for _, v := range videos {
		if v.Valid() && w.Contains(v.PublishedAt) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Entry summarizes one cached channel
type Entry struct {
	Cache  *models.ChannelCache
	Videos int
	Fresh  bool
}

// Entries lists every cached channel
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	caches, err := c.store.ListChannelCaches(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	out := make([]Entry, 0, len(caches))
	for _, cc := range caches {
		n, err := c.store.CountVideos(ctx, cc.ChannelID)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Cache:  cc,
			Videos: n,
			Fresh:  cc.Status == models.CacheComplete && cc.IsFresh(now, c.cfg.Freshness),
		})
	}
	return out, nil
}

// Clear drops every cached channel
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.ClearVideoCache(ctx)
}

// ClearChannel drops one cached channel
func (c *Cache) ClearChannel(ctx context.Context, key models.ChannelKey) error {
	return c.store.DeleteChannel(ctx, key)
}
