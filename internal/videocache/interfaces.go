package videocache

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
)

// Remote lists channel metadata and uploads
type Remote interface {
	ChannelInfo(ctx context.Context, key models.ChannelKey) (*models.ChannelInfo, error)
	ListUploads(ctx context.Context, uploadsPlaylistID, pageToken string) (*models.VideoPage, error)
}

// Feed returns a channel's most recent uploads at no quota cost
type Feed interface {
	Recent(ctx context.Context, key models.ChannelKey) ([]*models.Video, error)
}

// Budget charges page fetches against the daily quota
type Budget interface {
	Reserve(ctx context.Context, op quota.Operation, qty int) (quota.Decision, error)
	Exhaust(ctx context.Context) error
}

// Interrupter reports a pending stop request
type Interrupter interface {
	Requested() bool
}
