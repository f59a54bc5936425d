// Package watermark records when each playlist last finished a sync, which
// makes later runs incremental.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/pkg/logger"
)

// DefaultGracePeriod tolerates clock skew and late-published uploads
const DefaultGracePeriod = 24 * time.Hour

// Success describes a completed run
type Success struct {
	PlaylistID string
	Title      string
	RunID      string
	At         time.Time
	Committed  int
	Channels   []string
}

// Tracker reads and writes per-playlist sync watermarks
type Tracker struct {
	store storage.SyncStateStore
	grace time.Duration
	log   *logger.Logger
}

// New creates a tracker. A negative grace period falls back to the default.
func New(store storage.SyncStateStore, grace time.Duration, log *logger.Logger) *Tracker {
	if grace < 0 {
		grace = DefaultGracePeriod
	}
	return &Tracker{
		store: store,
		grace: grace,
		log:   log.WithComponent("watermark"),
	}
}

// RecordSuccess stores the watermark of a completed run. An older
// timestamp never moves the watermark back.
func (t *Tracker) RecordSuccess(ctx context.Context, s Success) error {
	state, err := t.store.GetSyncState(ctx, s.PlaylistID)
	if errors.Is(err, storage.ErrNotFound) {
		state = &models.PlaylistSyncState{PlaylistID: s.PlaylistID}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}

	if s.At.After(state.LastSuccessAt) {
		state.LastSuccessAt = s.At.UTC()
	}
	if s.Title != "" {
		state.Title = s.Title
	}
	state.LastRunID = s.RunID
	state.ItemsCommitted += s.Committed
	if len(s.Channels) > 0 {
		state.Channels = models.StringSlice(s.Channels)
	}

	if err := t.store.SaveSyncState(ctx, state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	t.log.Info().
		Str("playlist_id", s.PlaylistID).
		Time("watermark", state.LastSuccessAt).
		Int("committed", s.Committed).
		Msg("Sync watermark recorded")
	return nil
}

// NextEffectiveStart returns the start of the next incremental window:
// the last success minus the grace period, or def when none is recorded
func (t *Tracker) NextEffectiveStart(ctx context.Context, playlistID string, def time.Time) (time.Time, error) {
	state, err := t.store.GetSyncState(ctx, playlistID)
	if errors.Is(err, storage.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("load sync state: %w", err)
	}
	if state.LastSuccessAt.IsZero() {
		return def, nil
	}
	return state.LastSuccessAt.Add(-t.grace), nil
}

// History lists every recorded playlist
func (t *Tracker) History(ctx context.Context) ([]*models.PlaylistSyncState, error) {
	return t.store.ListSyncStates(ctx)
}
