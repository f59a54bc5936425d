package planner

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/playlist-sync/internal/videocache"
)

// Source supplies each channel's windowed uploads
type Source interface {
	ItemsFor(ctx context.Context, req videocache.Request) (*videocache.Result, error)
}
