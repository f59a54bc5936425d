// Package commit adds planned videos to a playlist one at a time, persisting
// progress after every step so a run can pause and resume across days.
package commit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/watermark"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

// State is a commit loop state
type State string

const (
	StateIdle        State = "idle"
	StatePlanning    State = "planning"
	StateCommitting  State = "committing"
	StatePaused      State = "paused"
	StateCompleted   State = "completed"
	StateInterrupted State = "interrupted"
)

// ErrTargetMissing means the playlist disappeared while committing
var ErrTargetMissing = errors.New("target playlist not found")

// Record is one committed video
type Record struct {
	RunID         string
	PlaylistID    string
	PlaylistTitle string
	VideoID       string
	VideoTitle    string
	ChannelID     models.ChannelKey
	PublishedAt   time.Time
	CommittedAt   time.Time
}

// Failure is a queued video that could not be added
type Failure struct {
	VideoID string
	Title   string
	Reason  string
}

// Outcome summarizes one pass of the loop
type Outcome struct {
	State         State
	Committed     int
	Duplicates    int
	Failed        []Failure
	Remaining     int
	BudgetLimited bool
}

// Config holds loop settings
type Config struct {
	Retry retry.Config
	// ProgressInterval logs progress every n commits; 0 disables it
	ProgressInterval int
}

// Loop drives a persisted queue to completion
type Loop struct {
	queues     storage.QueueStore
	collection Collection
	budget     Budget
	watermarks Watermarks
	recorder   Recorder
	interrupt  *Interrupt
	cfg        Config
	log        *logger.Logger
	now        func() time.Time
}

// New creates a commit loop
func New(queues storage.QueueStore, collection Collection, budget Budget, watermarks Watermarks, cfg Config, log *logger.Logger) *Loop {
	return &Loop{
		queues:     queues,
		collection: collection,
		budget:     budget,
		watermarks: watermarks,
		cfg:        cfg,
		log:        log.WithComponent("commit"),
		now:        time.Now,
	}
}

// SetRecorder installs an audit recorder
func (l *Loop) SetRecorder(r Recorder) {
	l.recorder = r
}

// SetInterrupt installs the stop flag checked between items
func (l *Loop) SetInterrupt(i *Interrupt) {
	l.interrupt = i
}

// SetClock overrides the time source
func (l *Loop) SetClock(now func() time.Time) {
	l.now = now
}

// BuildQueue freezes a plan into a queue ready to persist
func BuildQueue(title, playlistID, runID string, channels []string, plannedAt time.Time, videos []*models.Video) *models.CommitQueue {
	q := &models.CommitQueue{
		PlaylistTitle: title,
		PlaylistID:    playlistID,
		RunID:         runID,
		Status:        models.QueuePending,
		Channels:      models.StringSlice(channels),
		PlannedAt:     plannedAt,
		Items:         make([]models.QueueItem, 0, len(videos)),
	}
	for i, v := range videos {
		q.Items = append(q.Items, models.QueueItem{
			PlaylistTitle: title,
			Position:      i,
			VideoID:       v.ID,
			ChannelID:     v.ChannelID,
			Title:         v.Title,
			PublishedAt:   v.PublishedAt,
		})
	}
	return q
}

// Run commits the queue from its cursor. existing holds the ids already in
// the playlist and grows with every commit. The queue must already be
// persisted; its cursor is saved after each item.
func (l *Loop) Run(ctx context.Context, queue *models.CommitQueue, existing map[string]struct{}) (*Outcome, error) {
	if !queue.Valid() {
		return nil, fmt.Errorf("commit queue %q: %w", queue.PlaylistTitle, storage.ErrCorrupt)
	}
	if existing == nil {
		existing = make(map[string]struct{})
	}

	log := l.log.WithPlaylist(queue.PlaylistTitle, queue.PlaylistID).WithRun(queue.RunID)
	out := &Outcome{State: StateCommitting}

	log.Info().
		Int("queued", len(queue.Items)).
		Int("cursor", queue.Cursor).
		Msg("Committing queue")

	for !queue.Done() {
		if l.interrupt.Requested() {
			return l.halt(ctx, queue, out, StateInterrupted, models.QueueInterrupted)
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		item := queue.Items[queue.Cursor]

		if _, ok := existing[item.VideoID]; ok {
			out.Duplicates++
			if err := l.advance(ctx, queue); err != nil {
				return out, err
			}
			continue
		}

		var ledgerErr error
		err := retry.Do(ctx, l.cfg.Retry, youtube.IsRetryable, l.insert(queue.PlaylistID, item.VideoID, &ledgerErr))
		switch {
		case ledgerErr != nil:
			return out, ledgerErr
		case err == nil:
			existing[item.VideoID] = struct{}{}
			out.Committed++
			l.record(ctx, queue, item)
		case errors.Is(err, quota.ErrBudgetExhausted):
			out.BudgetLimited = true
			return l.halt(ctx, queue, out, StatePaused, models.QueuePaused)
		case errors.Is(err, youtube.ErrQuotaExceeded):
			if exErr := l.budget.Exhaust(ctx); exErr != nil {
				log.Error().Err(exErr).Msg("Failed to record server-side quota exhaustion")
			}
			out.BudgetLimited = true
			return l.halt(ctx, queue, out, StatePaused, models.QueuePaused)
		case errors.Is(err, youtube.ErrCredentials):
			return out, err
		case errors.Is(err, youtube.ErrNotFound):
			return out, fmt.Errorf("%w: %s: %v", ErrTargetMissing, queue.PlaylistID, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return out, err
		default:
			out.Failed = append(out.Failed, Failure{VideoID: item.VideoID, Title: item.Title, Reason: failureReason(err)})
			log.Warn().
				Err(err).
				Str("video_id", item.VideoID).
				Msg("Skipping video that could not be added")
		}

		if advErr := l.advance(ctx, queue); advErr != nil {
			return out, advErr
		}

		if n := l.cfg.ProgressInterval; n > 0 && err == nil && out.Committed%n == 0 {
			log.Info().
				Int("committed", out.Committed).
				Int("remaining", len(queue.Remaining())).
				Msg("Commit progress")
		}
	}

	return l.complete(ctx, queue, out)
}

// insert returns one attempt at adding videoID. Every attempt is charged.
// A retry first checks whether the failed insert landed anyway, so a
// timeout never leaves the video in the playlist twice. Ledger failures are
// stored in ledgerErr.
func (l *Loop) insert(playlistID, videoID string, ledgerErr *error) func(context.Context) error {
	attempt := 0
	reserve := func(ctx context.Context, op quota.Operation) error {
		decision, err := l.budget.Reserve(ctx, op, 1)
		if err != nil {
			*ledgerErr = err
			return err
		}
		if decision == quota.Denied {
			return fmt.Errorf("%s: %w", op, quota.ErrBudgetExhausted)
		}
		return nil
	}

	return func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			if err := reserve(ctx, quota.OpPlaylistList); err != nil {
				return err
			}
			found, err := l.collection.ContainsVideo(ctx, playlistID, videoID)
			if err != nil {
				return err
			}
			if found {
				l.log.Debug().Str("video_id", videoID).Msg("Earlier insert attempt had succeeded")
				return nil
			}
		}
		if err := reserve(ctx, quota.OpPlaylistInsert); err != nil {
			return err
		}
		return l.collection.AddItem(ctx, playlistID, videoID)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, youtube.ErrItemUnavailable):
		return "unavailable"
	case errors.Is(err, youtube.ErrTransient):
		return "transient failure"
	default:
		return err.Error()
	}
}

// advance moves the cursor past the current item and persists it
func (l *Loop) advance(ctx context.Context, queue *models.CommitQueue) error {
	queue.Cursor++
	if err := l.queues.UpdateQueueCursor(ctx, queue.PlaylistTitle, queue.Cursor, models.QueuePending); err != nil {
		return fmt.Errorf("persist queue cursor: %w", err)
	}
	return nil
}

func (l *Loop) halt(ctx context.Context, queue *models.CommitQueue, out *Outcome, state State, status models.QueueStatus) (*Outcome, error) {
	queue.Status = status
	out.State = state
	out.Remaining = len(queue.Remaining())

	if err := l.queues.UpdateQueueCursor(ctx, queue.PlaylistTitle, queue.Cursor, status); err != nil {
		return out, fmt.Errorf("persist queue status: %w", err)
	}

	l.log.Info().
		Str("playlist", queue.PlaylistTitle).
		Str("state", string(state)).
		Int("committed", out.Committed).
		Int("remaining", out.Remaining).
		Msg("Commit loop stopped with work left")

	return out, nil
}

func (l *Loop) complete(ctx context.Context, queue *models.CommitQueue, out *Outcome) (*Outcome, error) {
	if err := l.queues.DeleteQueue(ctx, queue.PlaylistTitle); err != nil {
		return out, fmt.Errorf("delete finished queue: %w", err)
	}

	if err := l.watermarks.RecordSuccess(ctx, watermark.Success{
		PlaylistID: queue.PlaylistID,
		Title:      queue.PlaylistTitle,
		RunID:      queue.RunID,
		At:         queue.PlannedAt,
		Committed:  out.Committed,
		Channels:   queue.Channels,
	}); err != nil {
		return out, err
	}

	out.State = StateCompleted
	l.log.Info().
		Str("playlist", queue.PlaylistTitle).
		Int("committed", out.Committed).
		Int("duplicates", out.Duplicates).
		Int("failed", len(out.Failed)).
		Msg("Commit queue completed")

	return out, nil
}

func (l *Loop) record(ctx context.Context, queue *models.CommitQueue, item models.QueueItem) {
	if l.recorder == nil {
		return
	}
	err := l.recorder.RecordCommit(ctx, Record{
		RunID:         queue.RunID,
		PlaylistID:    queue.PlaylistID,
		PlaylistTitle: queue.PlaylistTitle,
		VideoID:       item.VideoID,
		VideoTitle:    item.Title,
		ChannelID:     item.ChannelID,
		PublishedAt:   item.PublishedAt,
		CommittedAt:   l.now(),
	})
	if err != nil {
		l.log.Warn().Err(err).Str("video_id", item.VideoID).Msg("Failed to record commit in audit log")
	}
}
