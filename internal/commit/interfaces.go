package commit

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/watermark"
)

// Collection adds videos to the target playlist
type Collection interface {
	AddItem(ctx context.Context, playlistID, videoID string) error
	ContainsVideo(ctx context.Context, playlistID, videoID string) (bool, error)
}

// Budget charges inserts against the daily quota
type Budget interface {
	Reserve(ctx context.Context, op quota.Operation, qty int) (quota.Decision, error)
	Exhaust(ctx context.Context) error
}

// Watermarks records completed runs
type Watermarks interface {
	RecordSuccess(ctx context.Context, s watermark.Success) error
}

// Recorder receives every committed item for auditing
type Recorder interface {
	RecordCommit(ctx context.Context, rec Record) error
}
