// Package quota tracks consumption of the daily API budget shared by every
// operation against the YouTube Data API.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/pkg/logger"
)

// Operation is a kind of costed API call
type Operation string

const (
	OpSearch         Operation = "search"          // search.list
	OpChannelInfo    Operation = "channel_info"    // channels.list
	OpListPage       Operation = "list_page"       // playlistItems.list on an uploads playlist
	OpPlaylistList   Operation = "playlist_list"   // playlists.list / playlistItems.list on the target
	OpPlaylistCreate Operation = "playlist_create" // playlists.insert
	OpPlaylistInsert Operation = "playlist_insert" // playlistItems.insert
)

// DefaultDailyLimit is the standard YouTube Data API allocation
const DefaultDailyLimit = 10000

// DefaultCosts are the documented unit costs
var DefaultCosts = map[Operation]int{
	OpSearch:         100,
	OpChannelInfo:    1,
	OpListPage:       1,
	OpPlaylistList:   1,
	OpPlaylistCreate: 50,
	OpPlaylistInsert: 50,
}

// Decision is the outcome of a reservation
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

var (
	// ErrBudgetExhausted signals that today's budget cannot cover an operation.
	// It is a pause condition, not a failure.
	ErrBudgetExhausted = errors.New("daily quota budget exhausted")
	// ErrUnknownOperation is returned for an operation without a configured cost
	ErrUnknownOperation = errors.New("unknown quota operation")
)

// Config holds the ledger's fixed parameters
type Config struct {
	DailyLimit int
	Costs      map[Operation]int
	// Location is the time zone whose midnight resets the budget
	Location *time.Location
}

// NewConfig builds a Config from plain configuration values, filling gaps
// with the defaults.
func NewConfig(dailyLimit int, costs map[string]int, loc *time.Location) Config {
	merged := make(map[Operation]int, len(DefaultCosts))
	for op, cost := range DefaultCosts {
		merged[op] = cost
	}
	for op, cost := range costs {
		merged[Operation(op)] = cost
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return Config{DailyLimit: dailyLimit, Costs: merged, Location: loc}
}

// Snapshot is today's ledger state
type Snapshot struct {
	Day       string
	Used      int
	Limit     int
	Remaining int
	Exhausted bool
}

// Ledger reserves budget before costed operations and persists every
// successful reservation before returning.
type Ledger struct {
	store storage.QuotaStore
	cfg   Config
	now   func() time.Time
	log   *logger.Logger
	mu    sync.Mutex
}

// NewLedger creates a ledger over store
func NewLedger(store storage.QuotaStore, cfg Config, log *logger.Logger) *Ledger {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Ledger{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		log:   log.WithComponent("quota"),
	}
}

// SetClock replaces the clock used to pick the calendar day
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Cost returns the unit cost of one op
func (l *Ledger) Cost(op Operation) (int, bool) {
	cost, ok := l.cfg.Costs[op]
	return cost, ok
}

// Limit returns the daily ceiling
func (l *Ledger) Limit() int {
	return l.cfg.DailyLimit
}

// Day returns the ledger day key for t
func (l *Ledger) Day(t time.Time) string {
	return t.In(l.cfg.Location).Format("2006-01-02")
}

// today loads the current day's row. A row from an earlier day is never
// returned, so the first access on a new day starts from zero.
func (l *Ledger) today(ctx context.Context) (*models.QuotaUsage, error) {
	day := l.Day(l.now())

	usage, err := l.store.GetQuotaUsage(ctx, day)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.QuotaUsage{Day: day}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load quota ledger: %w", err)
	}

	if usage.Units < 0 || usage.Day != day {
		l.log.Warn().
			Err(storage.ErrCorrupt).
			Str("day", usage.Day).
			Int("units", usage.Units).
			Msg("Discarding malformed quota ledger row")
		return &models.QuotaUsage{Day: day}, nil
	}
	return usage, nil
}

// Reserve charges qty operations of kind op against today's budget.
// Consumption stays strictly below the daily limit, so the last unit of
// the allocation is never spent. Denied leaves the ledger untouched. The error is reserved for unknown
// operations and persistence failures.
func (l *Ledger) Reserve(ctx context.Context, op Operation, qty int) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	unit, ok := l.cfg.Costs[op]
	if !ok {
		return Denied, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	if qty < 1 {
		return Denied, fmt.Errorf("invalid quantity %d for %s", qty, op)
	}
	cost := unit * qty

	usage, err := l.today(ctx)
	if err != nil {
		return Denied, err
	}

	if usage.Exhausted || (cost > 0 && usage.Units+cost >= l.cfg.DailyLimit) {
		l.log.Debug().
			Str("op", string(op)).
			Int("cost", cost).
			Int("used", usage.Units).
			Int("limit", l.cfg.DailyLimit).
			Msg("Quota reservation denied")
		return Denied, nil
	}

	if cost == 0 {
		return Allowed, nil
	}

	next := *usage
	next.Units += cost
	if err := l.store.SaveQuotaUsage(ctx, &next); err != nil {
		return Denied, fmt.Errorf("persist quota ledger: %w", err)
	}

	l.log.Debug().
		Str("op", string(op)).
		Int("cost", cost).
		Int("used", next.Units).
		Int("remaining", l.cfg.DailyLimit-next.Units).
		Msg("Quota reserved")

	return Allowed, nil
}

// Exhaust marks today's budget as spent. Used when the API reports the
// quota exceeded before the local ledger reached its ceiling.
func (l *Ledger) Exhaust(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage, err := l.today(ctx)
	if err != nil {
		return err
	}
	if usage.Exhausted {
		return nil
	}

	next := *usage
	next.Exhausted = true
	if next.Units < l.cfg.DailyLimit {
		next.Units = l.cfg.DailyLimit
	}
	if err := l.store.SaveQuotaUsage(ctx, &next); err != nil {
		return fmt.Errorf("persist quota ledger: %w", err)
	}

	l.log.Warn().
		Int("recorded_before", usage.Units).
		Str("day", next.Day).
		Msg("API reported quota exceeded; marking today's budget as spent")
	return nil
}

// Usage returns today's snapshot
func (l *Ledger) Usage(ctx context.Context) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage, err := l.today(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	remaining := l.cfg.DailyLimit - usage.Units
	if remaining < 0 || usage.Exhausted {
		remaining = 0
	}
	return Snapshot{
		Day:       usage.Day,
		Used:      usage.Units,
		Limit:     l.cfg.DailyLimit,
		Remaining: remaining,
		Exhausted: usage.Exhausted,
	}, nil
}

// NextReset returns the next budget reset after now
func (l *Ledger) NextReset() time.Time {
	now := l.now().In(l.cfg.Location)
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, l.cfg.Location)
}
