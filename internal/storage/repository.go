package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/playlist-sync/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrCorrupt is returned when persisted data cannot be decoded or fails validation
	ErrCorrupt = errors.New("storage corrupt")
)

// Error wraps a store failure with the operation and entity involved
type Error struct {
	Op     string
	Entity string
	ID     string
	Err    error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// VideoStore persists channel cache headers and their videos
type VideoStore interface {
	GetChannelCache(ctx context.Context, key models.ChannelKey) (*models.ChannelCache, error)
	ListChannelCaches(ctx context.Context) ([]*models.ChannelCache, error)
	SaveChannelCache(ctx context.Context, entry *models.ChannelCache) error

	// ListVideos returns the channel's videos in fetch order
	ListVideos(ctx context.Context, key models.ChannelKey) ([]*models.Video, error)
	CountVideos(ctx context.Context, key models.ChannelKey) (int, error)

	// SavePage merges one fetched page and the updated header in a single
	// transaction. Videos already cached are not overwritten; when
	// entry.PendingRun is set they are stamped as seen by that run.
	SavePage(ctx context.Context, entry *models.ChannelCache, videos []*models.Video) (added int, err error)

	// FinishRefresh saves the completed header. A non-empty pruneRun deletes
	// every video of the channel not seen by that run.
	FinishRefresh(ctx context.Context, entry *models.ChannelCache, pruneRun string) (pruned int, err error)

	DeleteVideos(ctx context.Context, key models.ChannelKey, ids []string) error
	DeleteChannel(ctx context.Context, key models.ChannelKey) error
	ClearVideoCache(ctx context.Context) error
}

// QuotaStore persists the per-day ledger
type QuotaStore interface {
	GetQuotaUsage(ctx context.Context, day string) (*models.QuotaUsage, error)
	SaveQuotaUsage(ctx context.Context, usage *models.QuotaUsage) error
	ListQuotaUsage(ctx context.Context, limit int) ([]*models.QuotaUsage, error)
}

// QueueStore persists unfinished commit queues
type QueueStore interface {
	GetQueue(ctx context.Context, playlistTitle string) (*models.CommitQueue, error)
	ListQueues(ctx context.Context) ([]*models.CommitQueue, error)
	// SaveQueue replaces the queue and all of its items
	SaveQueue(ctx context.Context, queue *models.CommitQueue) error
	UpdateQueueCursor(ctx context.Context, playlistTitle string, cursor int, status models.QueueStatus) error
	DeleteQueue(ctx context.Context, playlistTitle string) error
}

// SyncStateStore persists per-playlist watermarks
type SyncStateStore interface {
	GetSyncState(ctx context.Context, playlistID string) (*models.PlaylistSyncState, error)
	SaveSyncState(ctx context.Context, state *models.PlaylistSyncState) error
	ListSyncStates(ctx context.Context) ([]*models.PlaylistSyncState, error)
}

// TokenStore persists OAuth tokens
type TokenStore interface {
	SaveToken(ctx context.Context, token *models.OAuthToken) error
	GetToken(ctx context.Context, provider string) (*models.OAuthToken, error)
	DeleteToken(ctx context.Context, provider string) error
}

// Repository defines the interface for data persistence
type Repository interface {
	VideoStore
	QuotaStore
	QueueStore
	SyncStateStore
	TokenStore

	// Maintenance
	Close() error
	Migrate() error
}

// DirectoryStore maps user-supplied channel identifiers to channel keys.
// Every Put is durable before it returns.
type DirectoryStore interface {
	Get(ctx context.Context, identifier string) (models.ChannelKey, error)
	Put(ctx context.Context, identifier string, key models.ChannelKey) error
	All(ctx context.Context) (map[string]models.ChannelKey, error)
	Clear(ctx context.Context) error
}
