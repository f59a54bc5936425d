// Package syncer runs one playlist sync end to end: it resumes or plans a
// commit queue, then hands it to the commit loop.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/directory"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/planner"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/videocache"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

var (
	// ErrNoChannels means none of the requested channels could be resolved
	ErrNoChannels = errors.New("no channels to sync")
	// ErrInvalidWindow means the window starts after it ends
	ErrInvalidWindow = errors.New("window start is after its end")
)

// Options describe one sync request
type Options struct {
	Playlist string
	Channels []string
	// Start and End override the watermark window when set
	Start time.Time
	End   time.Time
	// DefaultStart replaces the default lookback for a playlist that has
	// never synced
	DefaultStart time.Time

	Mode      videocache.Mode
	Freshness time.Duration

	// PlaylistCutoff starts the window at the oldest video already in the
	// playlist unless Start is set
	PlaylistCutoff bool

	ForceNewPlaylist bool
	SkipLiked        bool
	// Replan drops a pending queue instead of resuming it
	Replan bool
}

// Config holds syncer settings
type Config struct {
	DefaultLookback time.Duration
	PrivacyStatus   string
	Retry           retry.Config
}

// SkippedChannel is a requested channel that contributed nothing
type SkippedChannel struct {
	Channel string
	Reason  string
}

// RunResult summarizes a sync run
type RunResult struct {
	Playlist   string
	PlaylistID string
	RunID      string
	Created    bool
	Resumed    bool

	State      commit.State
	Window     videocache.Window
	Planned    int
	Committed  int
	Duplicates int
	Failed     []commit.Failure
	Remaining  int

	Channels      []planner.ChannelStat
	Skipped       []SkippedChannel
	BudgetLimited bool
	QuotaUsed     int
	Duration      time.Duration
}

// Syncer wires the directory, planner and commit loop together
type Syncer struct {
	queues     storage.QueueStore
	playlists  Playlists
	resolver   Resolver
	planner    Planner
	committer  Committer
	budget     Budget
	watermarks Watermarks
	interrupt  *commit.Interrupt
	cfg        Config
	log        *logger.Logger
	now        func() time.Time
}

// New creates a syncer
func New(
	queues storage.QueueStore,
	playlists Playlists,
	resolver Resolver,
	plans Planner,
	committer Committer,
	budget Budget,
	watermarks Watermarks,
	cfg Config,
	log *logger.Logger,
) *Syncer {
	if cfg.PrivacyStatus == "" {
		cfg.PrivacyStatus = "private"
	}
	return &Syncer{
		queues:     queues,
		playlists:  playlists,
		resolver:   resolver,
		planner:    plans,
		committer:  committer,
		budget:     budget,
		watermarks: watermarks,
		cfg:        cfg,
		log:        log.WithComponent("syncer"),
		now:        time.Now,
	}
}

// SetInterrupt installs the stop flag
func (s *Syncer) SetInterrupt(i *commit.Interrupt) {
	s.interrupt = i
}

// SetClock overrides the time source
func (s *Syncer) SetClock(now func() time.Time) {
	s.now = now
}

// Run syncs one playlist. Running out of budget is not an error: the result
// is Paused and the next run picks up where this one stopped.
func (s *Syncer) Run(ctx context.Context, opts Options) (*RunResult, error) {
	if opts.Playlist == "" {
		return nil, fmt.Errorf("playlist title is required")
	}

	started := s.now()
	before, err := s.budget.Usage(ctx)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Playlist: opts.Playlist, State: commit.StatePlanning}
	err = s.run(ctx, opts, res)

	if errors.Is(err, quota.ErrBudgetExhausted) {
		s.log.Warn().Err(err).Str("playlist", opts.Playlist).Msg("Quota budget exhausted, pausing")
		res.State = commit.StatePaused
		res.BudgetLimited = true
		err = nil
	}

	if after, uErr := s.budget.Usage(ctx); uErr == nil {
		res.QuotaUsed = after.Used
		if after.Day == before.Day {
			res.QuotaUsed -= before.Used
		}
	}
	res.Duration = s.now().Sub(started)

	return res, err
}

func (s *Syncer) run(ctx context.Context, opts Options, res *RunResult) error {
	queue, err := s.queues.GetQueue(ctx, opts.Playlist)
	switch {
	case err == nil && queue.Status == models.QueueDraft && !opts.Replan:
		return s.plan(ctx, opts, queue, res)
	case err == nil && !opts.Replan:
		return s.resume(ctx, queue, res)
	case err == nil:
		s.log.Info().
			Str("playlist", opts.Playlist).
			Int("remaining", len(queue.Remaining())).
			Msg("Dropping pending queue to re-plan")
		if err := s.queues.DeleteQueue(ctx, opts.Playlist); err != nil {
			return err
		}
	case errors.Is(err, storage.ErrCorrupt):
		s.log.Warn().Err(err).Str("playlist", opts.Playlist).Msg("Discarding unreadable queue")
		if err := s.queues.DeleteQueue(ctx, opts.Playlist); err != nil {
			return err
		}
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	return s.plan(ctx, opts, nil, res)
}

func (s *Syncer) resume(ctx context.Context, queue *models.CommitQueue, res *RunResult) error {
	res.Resumed = true
	res.PlaylistID = queue.PlaylistID
	res.RunID = queue.RunID
	res.Planned = len(queue.Items)

	s.log.Info().
		Str("playlist", queue.PlaylistTitle).
		Str("run_id", queue.RunID).
		Int("cursor", queue.Cursor).
		Int("queued", len(queue.Items)).
		Msg("Resuming pending queue")

	// a video added just before a crash must not be added twice
	existing, err := s.playlistVideoIDs(ctx, queue.PlaylistID)
	if errors.Is(err, youtube.ErrNotFound) {
		return fmt.Errorf("%w: %s (re-plan to start over)", commit.ErrTargetMissing, queue.PlaylistID)
	}
	if err != nil {
		return err
	}

	return s.commit(ctx, queue, existing, res)
}

// plan builds and commits a new queue. draft is set when an earlier run
// created the playlist but stopped before planning.
func (s *Syncer) plan(ctx context.Context, opts Options, draft *models.CommitQueue, res *RunResult) error {
	var (
		playlist *models.Playlist
		created  bool
		err      error
	)
	if draft != nil {
		playlist = &models.Playlist{ID: draft.PlaylistID, Title: draft.PlaylistTitle}
		s.log.Info().
			Str("playlist", opts.Playlist).
			Str("playlist_id", playlist.ID).
			Msg("Planning into playlist created by an earlier run")
	} else {
		if playlist, created, err = s.ensurePlaylist(ctx, opts); err != nil {
			return err
		}
	}
	res.PlaylistID = playlist.ID
	res.Created = created

	if created {
		if err := s.saveDraft(ctx, opts, playlist.ID); err != nil {
			return err
		}
	}

	keys, err := s.resolveChannels(ctx, opts.Channels, res)
	if err != nil {
		return err
	}
	if s.interrupt.Requested() {
		res.State = commit.StateInterrupted
		return nil
	}
	// a channel left unresolved would be passed by the watermark
	if res.BudgetLimited {
		return quota.ErrBudgetExhausted
	}
	if len(keys) == 0 {
		return ErrNoChannels
	}

	existing := make(map[string]struct{})
	var oldest time.Time
	if !created {
		existing, oldest, err = s.playlistContents(ctx, playlist.ID)
		if errors.Is(err, youtube.ErrNotFound) && draft != nil {
			return fmt.Errorf("%w: %s (re-plan to start over)", commit.ErrTargetMissing, playlist.ID)
		}
		if err != nil {
			return err
		}
	}

	window, err := s.window(ctx, playlist.ID, opts, oldest)
	if err != nil {
		return err
	}
	res.Window = window

	exclude := make(map[string]struct{}, len(existing))
	for id := range existing {
		exclude[id] = struct{}{}
	}
	if opts.SkipLiked {
		liked, err := s.likedVideoIDs(ctx)
		if err != nil {
			return err
		}
		for id := range liked {
			exclude[id] = struct{}{}
		}
	}

	plan, err := s.planner.Plan(ctx, keys, planner.Options{
		Window:    window,
		Mode:      opts.Mode,
		Freshness: opts.Freshness,
	}, exclude)
	if err != nil {
		return err
	}
	res.Channels = plan.Channels
	for _, sk := range plan.Skipped {
		res.Skipped = append(res.Skipped, SkippedChannel{Channel: string(sk.Channel), Reason: sk.Reason})
	}

	if plan.Interrupted {
		res.State = commit.StateInterrupted
		return nil
	}
	// a partial plan would let the watermark pass uploads that were never read
	if plan.BudgetLimited {
		return quota.ErrBudgetExhausted
	}

	channels := make([]string, 0, len(keys))
	for _, k := range keys {
		channels = append(channels, string(k))
	}

	runID := uuid.NewString()
	queue := commit.BuildQueue(opts.Playlist, playlist.ID, runID, channels, window.End, plan.Items)
	if err := s.queues.SaveQueue(ctx, queue); err != nil {
		return fmt.Errorf("persist commit queue: %w", err)
	}
	res.RunID = runID
	res.Planned = len(queue.Items)

	s.log.WithPlaylist(opts.Playlist, playlist.ID).WithRun(runID).Info().
		Int("planned", len(queue.Items)).
		Time("start", window.Start).
		Time("end", window.End).
		Msg("Queue planned")

	return s.commit(ctx, queue, existing, res)
}

// saveDraft records a freshly created playlist so a run that stops before
// planning does not create another one next time
func (s *Syncer) saveDraft(ctx context.Context, opts Options, playlistID string) error {
	draft := &models.CommitQueue{
		PlaylistTitle: opts.Playlist,
		PlaylistID:    playlistID,
		Status:        models.QueueDraft,
		Channels:      models.StringSlice(opts.Channels),
		PlannedAt:     s.now(),
	}
	if err := s.queues.SaveQueue(ctx, draft); err != nil {
		return fmt.Errorf("persist created playlist: %w", err)
	}
	return nil
}

func (s *Syncer) commit(ctx context.Context, queue *models.CommitQueue, existing map[string]struct{}, res *RunResult) error {
	res.State = commit.StateCommitting
	out, err := s.committer.Run(ctx, queue, existing)
	if out != nil {
		res.State = out.State
		res.Committed = out.Committed
		res.Duplicates = out.Duplicates
		res.Failed = out.Failed
		res.Remaining = out.Remaining
		res.BudgetLimited = res.BudgetLimited || out.BudgetLimited
	}
	return err
}

// ensurePlaylist finds the playlist by title or creates it
func (s *Syncer) ensurePlaylist(ctx context.Context, opts Options) (*models.Playlist, bool, error) {
	if !opts.ForceNewPlaylist {
		pl, err := s.findPlaylist(ctx, opts.Playlist)
		if err != nil {
			return nil, false, err
		}
		if pl != nil {
			return pl, false, nil
		}
	}

	if err := s.reserve(ctx, quota.OpPlaylistCreate); err != nil {
		return nil, false, err
	}
	// not retried: a timed out insert may still have created the playlist
	pl, err := s.playlists.CreatePlaylist(ctx, opts.Playlist, description(opts.Channels), s.cfg.PrivacyStatus)
	if err != nil {
		return nil, false, s.remoteErr(ctx, err)
	}
	return pl, true, nil
}

func (s *Syncer) findPlaylist(ctx context.Context, title string) (*models.Playlist, error) {
	token := ""
	for {
		var page *models.PlaylistPage
		err := s.call(ctx, quota.OpPlaylistList, func(ctx context.Context) error {
			var err error
			page, err = s.playlists.ListMyPlaylists(ctx, token)
			return err
		})
		if err != nil {
			return nil, err
		}
		for i := range page.Playlists {
			if page.Playlists[i].Title == title {
				return &page.Playlists[i], nil
			}
		}
		if page.NextPageToken == "" {
			return nil, nil
		}
		token = page.NextPageToken
	}
}

func (s *Syncer) playlistVideoIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	ids, _, err := s.playlistContents(ctx, playlistID)
	return ids, err
}

// playlistContents returns the video ids in a playlist and the publish time
// of the oldest of them
func (s *Syncer) playlistContents(ctx context.Context, playlistID string) (map[string]struct{}, time.Time, error) {
	ids := make(map[string]struct{})
	var oldest time.Time
	token := ""
	for {
		var page *models.PlaylistItemsPage
		err := s.call(ctx, quota.OpPlaylistList, func(ctx context.Context) error {
			var err error
			page, err = s.playlists.ListPlaylistVideoIDs(ctx, playlistID, token)
			return err
		})
		if err != nil {
			return nil, time.Time{}, err
		}
		for _, id := range page.VideoIDs {
			ids[id] = struct{}{}
		}
		if !page.OldestPublished.IsZero() && (oldest.IsZero() || page.OldestPublished.Before(oldest)) {
			oldest = page.OldestPublished
		}
		if page.NextPageToken == "" {
			return ids, oldest, nil
		}
		token = page.NextPageToken
	}
}

func (s *Syncer) likedVideoIDs(ctx context.Context) (map[string]struct{}, error) {
	var likedID string
	err := s.call(ctx, quota.OpChannelInfo, func(ctx context.Context) error {
		var err error
		likedID, err = s.playlists.LikedPlaylistID(ctx)
		return err
	})
	if errors.Is(err, youtube.ErrNotFound) {
		s.log.Warn().Err(err).Msg("Liked videos are not available, not excluding any")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	liked, err := s.playlistVideoIDs(ctx, likedID)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("liked", len(liked)).Msg("Excluding liked videos")
	return liked, nil
}

func (s *Syncer) resolveChannels(ctx context.Context, identifiers []string, res *RunResult) ([]models.ChannelKey, error) {
	var keys []models.ChannelKey
	seen := make(map[models.ChannelKey]struct{})

	for _, raw := range identifiers {
		if s.interrupt.Requested() {
			break
		}

		key, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			var storeErr *storage.Error
			switch {
			case errors.Is(err, youtube.ErrCredentials), errors.As(err, &storeErr),
				errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil, err
			case errors.Is(err, quota.ErrBudgetExhausted):
				res.BudgetLimited = true
				res.Skipped = append(res.Skipped, SkippedChannel{Channel: raw, Reason: "budget exhausted"})
			case errors.Is(err, directory.ErrChannelNotFound):
				res.Skipped = append(res.Skipped, SkippedChannel{Channel: raw, Reason: "not found"})
			case errors.Is(err, directory.ErrInvalidIdentifier):
				res.Skipped = append(res.Skipped, SkippedChannel{Channel: raw, Reason: "invalid identifier"})
			default:
				res.Skipped = append(res.Skipped, SkippedChannel{Channel: raw, Reason: err.Error()})
			}
			s.log.Warn().Err(err).Str("identifier", raw).Msg("Could not resolve channel")
			continue
		}

		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

// window picks the upload window. An explicit start wins, then the oldest
// video already in the playlist when PlaylistCutoff is set, then the
// watermark.
func (s *Syncer) window(ctx context.Context, playlistID string, opts Options, oldest time.Time) (videocache.Window, error) {
	end := opts.End
	if end.IsZero() {
		end = s.now()
	}
	start := opts.Start
	if start.IsZero() && opts.PlaylistCutoff && !oldest.IsZero() {
		start = oldest
	}
	if start.IsZero() {
		def := end.Add(-s.cfg.DefaultLookback)
		if !opts.DefaultStart.IsZero() {
			def = opts.DefaultStart
		}
		var err error
		start, err = s.watermarks.NextEffectiveStart(ctx, playlistID, def)
		if err != nil {
			return videocache.Window{}, err
		}
	}
	if start.After(end) {
		return videocache.Window{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return videocache.Window{Start: start, End: end}, nil
}

// call runs fn with retries, reserving op before every attempt
func (s *Syncer) call(ctx context.Context, op quota.Operation, fn func(context.Context) error) error {
	if err := retry.Do(ctx, s.cfg.Retry, youtube.IsRetryable, quota.Metered(s.budget, op, fn)); err != nil {
		return s.remoteErr(ctx, err)
	}
	return nil
}

func (s *Syncer) reserve(ctx context.Context, op quota.Operation) error {
	decision, err := s.budget.Reserve(ctx, op, 1)
	if err != nil {
		return err
	}
	if decision == quota.Denied {
		return fmt.Errorf("%s: %w", op, quota.ErrBudgetExhausted)
	}
	return nil
}

// remoteErr turns a server-side quota rejection into budget exhaustion
func (s *Syncer) remoteErr(ctx context.Context, err error) error {
	if !errors.Is(err, youtube.ErrQuotaExceeded) {
		return err
	}
	if exErr := s.budget.Exhaust(ctx); exErr != nil {
		s.log.Error().Err(exErr).Msg("Failed to record server-side quota exhaustion")
	}
	return fmt.Errorf("%w: %v", quota.ErrBudgetExhausted, err)
}

func description(channels []string) string {
	if len(channels) == 0 {
		return "Synced by playlist-sync"
	}
	return "Uploads from: " + strings.Join(channels, ", ")
}
