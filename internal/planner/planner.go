// Package planner merges channel uploads into the ordered list of videos a
// run will add to its playlist.
package planner

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/internal/videocache"
	"github.com/playlist-sync/internal/youtube"
	"github.com/playlist-sync/pkg/logger"
)

// Options control how channel data is gathered
type Options struct {
	Window    videocache.Window
	Mode      videocache.Mode
	Freshness time.Duration
}

// Skipped is a channel that contributed nothing because of an error
type Skipped struct {
	Channel models.ChannelKey
	Reason  string
	Err     error
}

// ChannelStat reports one channel's contribution
type ChannelStat struct {
	Channel   models.ChannelKey
	Title     string
	InWindow  int
	Refreshed bool
	FromFeed  bool
	Partial   bool
}

// Plan is the deduplicated queue of a run, oldest first
type Plan struct {
	Items    []*models.Video
	Channels []ChannelStat
	Skipped  []Skipped

	// Candidates counts windowed uploads before deduplication
	Candidates int
	// Excluded counts uploads dropped because the playlist already has them
	Excluded int

	BudgetLimited bool
	Interrupted   bool
}

// IDs returns the planned video ids in order
func (p *Plan) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, v := range p.Items {
		ids = append(ids, v.ID)
	}
	return ids
}

// Planner builds plans from the video cache
type Planner struct {
	source Source
	log    *logger.Logger
}

// New creates a planner
func New(source Source, log *logger.Logger) *Planner {
	return &Planner{
		source: source,
		log:    log.WithComponent("planner"),
	}
}

// Plan gathers every channel's windowed uploads, drops ids in exclude and
// duplicates, and orders the rest by publish time then id. Channel failures
// are recorded as skips; only credential, persistence and context errors
// abort planning.
func (p *Planner) Plan(ctx context.Context, channels []models.ChannelKey, opts Options, exclude map[string]struct{}) (*Plan, error) {
	plan := &Plan{}
	seen := make(map[string]struct{})
	mode := opts.Mode

	for _, key := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := p.source.ItemsFor(ctx, videocache.Request{
			Channel:   key,
			Window:    opts.Window,
			Mode:      mode,
			Freshness: opts.Freshness,
		})
		if err != nil {
			if fatal(err) {
				return nil, err
			}
			plan.skip(key, err)
			p.log.Warn().
				Err(err).
				Str("channel", string(key)).
				Msg("Skipping channel")
			continue
		}

		if res.BudgetLimited {
			plan.BudgetLimited = true
		}
		if res.Interrupted && !plan.Interrupted {
			plan.Interrupted = true
			// remaining channels contribute what is already cached
			mode = videocache.RefreshNever
		}

		plan.Channels = append(plan.Channels, ChannelStat{
			Channel:   key,
			Title:     res.Title,
			InWindow:  len(res.Items),
			Refreshed: res.Refreshed,
			FromFeed:  res.FromFeed,
			Partial:   res.Partial,
		})

		for _, v := range res.Items {
			plan.Candidates++
			if _, ok := exclude[v.ID]; ok {
				plan.Excluded++
				continue
			}
			if _, ok := seen[v.ID]; ok {
				continue
			}
			seen[v.ID] = struct{}{}
			plan.Items = append(plan.Items, v)
		}
	}

	sort.SliceStable(plan.Items, func(i, j int) bool {
		a, b := plan.Items[i], plan.Items[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.Before(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	p.log.Info().
		Int("channels", len(channels)).
		Int("skipped", len(plan.Skipped)).
		Int("candidates", plan.Candidates).
		Int("excluded", plan.Excluded).
		Int("planned", len(plan.Items)).
		Bool("budget_limited", plan.BudgetLimited).
		Msg("Plan built")

	return plan, nil
}

func (p *Plan) skip(key models.ChannelKey, err error) {
	reason := "error"
	switch {
	case errors.Is(err, quota.ErrBudgetExhausted):
		reason = "budget exhausted"
		p.BudgetLimited = true
	case errors.Is(err, youtube.ErrNotFound):
		reason = "not found"
	case errors.Is(err, youtube.ErrTransient):
		reason = "transient failure"
	case errors.Is(err, youtube.ErrQuotaExceeded):
		reason = "quota exceeded"
		p.BudgetLimited = true
	}
	p.Skipped = append(p.Skipped, Skipped{Channel: key, Reason: reason, Err: err})
}

func fatal(err error) bool {
	var storeErr *storage.Error
	return errors.Is(err, youtube.ErrCredentials) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &storeErr)
}
