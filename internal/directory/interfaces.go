package directory

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
)

// Lookup performs remote channel resolution
type Lookup interface {
	SearchChannel(ctx context.Context, query string) (models.ChannelKey, error)
	ChannelForHandle(ctx context.Context, handle string) (models.ChannelKey, error)
	ChannelForUsername(ctx context.Context, username string) (models.ChannelKey, error)
}

// Budget charges remote resolutions against the daily quota
type Budget interface {
	Reserve(ctx context.Context, op quota.Operation, qty int) (quota.Decision, error)
	Exhaust(ctx context.Context) error
}

// CacheIndex lists cached channel headers for repopulation
type CacheIndex interface {
	ListChannelCaches(ctx context.Context) ([]*models.ChannelCache, error)
}
