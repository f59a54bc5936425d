// Package directory resolves user-supplied channel identifiers to channel
// keys and remembers every resolution.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/retry"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

var (
	// ErrChannelNotFound means the identifier matched no channel
	ErrChannelNotFound = errors.New("channel not found")
	// ErrInvalidIdentifier means the identifier is empty or unusable
	ErrInvalidIdentifier = errors.New("invalid channel identifier")
)

// Directory resolves identifiers through a persisted mapping, falling back
// to a costed remote lookup on a miss
type Directory struct {
	store  storage.DirectoryStore
	lookup Lookup
	budget Budget
	retry  retry.Config
	log    *logger.Logger
}

// New creates a channel directory
func New(store storage.DirectoryStore, lookup Lookup, budget Budget, retryCfg retry.Config, log *logger.Logger) *Directory {
	return &Directory{
		store:  store,
		lookup: lookup,
		budget: budget,
		retry:  retryCfg,
		log:    log.WithComponent("directory"),
	}
}

// Resolve returns the channel key for raw, using the stored mapping when
// one exists
func (d *Directory) Resolve(ctx context.Context, raw string) (models.ChannelKey, error) {
	return d.resolve(ctx, raw, false)
}

// ForceResolve ignores the stored mapping and overwrites it with a fresh
// resolution
func (d *Directory) ForceResolve(ctx context.Context, raw string) (models.ChannelKey, error) {
	return d.resolve(ctx, raw, true)
}

func (d *Directory) resolve(ctx context.Context, raw string, force bool) (models.ChannelKey, error) {
	id := Classify(raw)
	if id.Kind == KindInvalid {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	if key, ok := id.Key(); ok {
		return key, nil
	}

	if !force {
		key, err := d.store.Get(ctx, id.Raw)
		switch {
		case err == nil:
			d.log.Debug().Str("identifier", id.Raw).Str("channel", key.String()).Msg("Channel resolved from directory")
			return key, nil
		case !errors.Is(err, storage.ErrNotFound):
			return "", fmt.Errorf("read channel directory: %w", err)
		}
	}

	key, err := d.resolveRemote(ctx, id)
	if err != nil {
		return "", err
	}

	if err := d.store.Put(ctx, id.Raw, key); err != nil {
		return "", fmt.Errorf("save channel directory entry: %w", err)
	}

	d.log.Info().
		Str("identifier", id.Raw).
		Str("kind", id.Kind.String()).
		Str("channel", key.String()).
		Bool("forced", force).
		Msg("Channel resolved")

	return key, nil
}

func (d *Directory) resolveRemote(ctx context.Context, id Identifier) (models.ChannelKey, error) {
	if d.lookup == nil {
		return "", fmt.Errorf("%w: %q is not in the directory", ErrChannelNotFound, id.Raw)
	}
	var key models.ChannelKey
	err := retry.Do(ctx, d.retry, youtube.IsRetryable, quota.Metered(d.budget, id.Operation(), func(ctx context.Context) error {
		var callErr error
		switch id.Kind {
		case KindHandle:
			key, callErr = d.lookup.ChannelForHandle(ctx, id.Value)
		case KindUsername:
			key, callErr = d.lookup.ChannelForUsername(ctx, id.Value)
		default:
			key, callErr = d.lookup.SearchChannel(ctx, id.Value)
		}
		return callErr
	}))

	switch {
	case err == nil:
	case errors.Is(err, quota.ErrBudgetExhausted):
		return "", fmt.Errorf("resolve %q: %w", id.Raw, err)
	case errors.Is(err, youtube.ErrNotFound):
		return "", fmt.Errorf("%w: %q", ErrChannelNotFound, id.Raw)
	case errors.Is(err, youtube.ErrQuotaExceeded):
		if exErr := d.budget.Exhaust(ctx); exErr != nil {
			d.log.Error().Err(exErr).Msg("Failed to record server-side quota exhaustion")
		}
		return "", fmt.Errorf("resolve %q: %w", id.Raw, quota.ErrBudgetExhausted)
	default:
		return "", fmt.Errorf("resolve %q: %w", id.Raw, err)
	}

	if !key.Valid() {
		return "", fmt.Errorf("%w: %q resolved to malformed key %q", ErrChannelNotFound, id.Raw, key)
	}
	return key, nil
}

// Repopulate backfills title -> key mappings from cached channel headers
// without any remote call. Existing mappings are kept.
func (d *Directory) Repopulate(ctx context.Context, caches CacheIndex) (int, error) {
	entries, err := caches.ListChannelCaches(ctx)
	if err != nil {
		return 0, fmt.Errorf("list channel caches: %w", err)
	}

	known, err := d.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("read channel directory: %w", err)
	}

	added := 0
	for _, entry := range entries {
		if entry.Title == "" || !entry.ChannelID.Valid() {
			continue
		}
		if _, ok := known[entry.Title]; ok {
			continue
		}
		// "_" keys are comments in the directory file
		if strings.HasPrefix(entry.Title, "_") || Classify(entry.Title).Kind == KindInvalid {
			continue
		}
		if err := d.store.Put(ctx, entry.Title, entry.ChannelID); err != nil {
			return added, fmt.Errorf("save channel directory entry: %w", err)
		}
		known[entry.Title] = entry.ChannelID
		added++
	}

	d.log.Info().
		Int("channels", len(entries)).
		Int("added", added).
		Msg("Channel directory repopulated from cache")

	return added, nil
}

// Entries returns every stored mapping
func (d *Directory) Entries(ctx context.Context) (map[string]models.ChannelKey, error) {
	return d.store.All(ctx)
}

// Clear forgets every stored mapping
func (d *Directory) Clear(ctx context.Context) error {
	return d.store.Clear(ctx)
}
