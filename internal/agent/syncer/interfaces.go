package syncer

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/planner"
	"github.com/playlist-sync/internal/quota"
)

// Playlists is the subset of the remote API that manages the target playlist
type Playlists interface {
	ListMyPlaylists(ctx context.Context, pageToken string) (*models.PlaylistPage, error)
	CreatePlaylist(ctx context.Context, title, description, privacy string) (*models.Playlist, error)
	ListPlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) (*models.PlaylistItemsPage, error)
	LikedPlaylistID(ctx context.Context) (string, error)
}

// Resolver turns operator channel identifiers into channel keys
type Resolver interface {
	Resolve(ctx context.Context, raw string) (models.ChannelKey, error)
}

// Planner builds the ordered list of videos to add
type Planner interface {
	Plan(ctx context.Context, channels []models.ChannelKey, opts planner.Options, exclude map[string]struct{}) (*planner.Plan, error)
}

// Committer drives a persisted queue
type Committer interface {
	Run(ctx context.Context, queue *models.CommitQueue, existing map[string]struct{}) (*commit.Outcome, error)
}

// Budget is the daily quota ledger
type Budget interface {
	Reserve(ctx context.Context, op quota.Operation, qty int) (quota.Decision, error)
	Exhaust(ctx context.Context) error
	Usage(ctx context.Context) (quota.Snapshot, error)
}

// Watermarks supplies the default window start for a playlist
type Watermarks interface {
	NextEffectiveStart(ctx context.Context, playlistID string, def time.Time) (time.Time, error)
}
