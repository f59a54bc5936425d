// Package memory provides in-process stores with the same semantics as the
// sqlite repository. Tests inject it in place of persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
)

// Store implements storage.Repository in memory
type Store struct {
	mu      sync.Mutex
	caches  map[models.ChannelKey]models.ChannelCache
	videos  map[models.ChannelKey][]models.Video
	quota   map[string]models.QuotaUsage
	queues  map[string]models.CommitQueue
	states  map[string]models.PlaylistSyncState
	tokens  map[string]models.OAuthToken
	closed  bool
	saveErr error
}

// New returns an empty store
func New() *Store {
	return &Store{
		caches: make(map[models.ChannelKey]models.ChannelCache),
		videos: make(map[models.ChannelKey][]models.Video),
		quota:  make(map[string]models.QuotaUsage),
		queues: make(map[string]models.CommitQueue),
		states: make(map[string]models.PlaylistSyncState),
		tokens: make(map[string]models.OAuthToken),
	}
}

// FailWrites makes every subsequent write return err (nil restores writes)
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *Store) Migrate() error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Channel cache operations

func (s *Store) GetChannelCache(_ context.Context, key models.ChannelKey) (*models.ChannelCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.caches[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &entry, nil
}

func (s *Store) ListChannelCaches(_ context.Context) ([]*models.ChannelCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ChannelCache, 0, len(s.caches))
	for _, entry := range s.caches {
		e := entry
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) SaveChannelCache(_ context.Context, entry *models.ChannelCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.caches[entry.ChannelID] = *entry
	return nil
}

func (s *Store) ListVideos(_ context.Context, key models.ChannelKey) ([]*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Video, 0, len(s.videos[key]))
	for _, v := range s.videos[key] {
		video := v
		out = append(out, &video)
	}
	return out, nil
}

func (s *Store) CountVideos(_ context.Context, key models.ChannelKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos[key]), nil
}

// PutVideos seeds raw rows, bypassing merge rules
func (s *Store) PutVideos(key models.ChannelKey, videos ...models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[key] = append(s.videos[key], videos...)
}

func (s *Store) SavePage(_ context.Context, entry *models.ChannelCache, videos []*models.Video) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}

	rows := s.videos[entry.ChannelID]
	index := make(map[string]int, len(rows))
	maxSeq := 0
	for i, v := range rows {
		index[v.ID] = i
		if v.Seq > maxSeq {
			maxSeq = v.Seq
		}
	}

	added := 0
	for _, v := range videos {
		if i, ok := index[v.ID]; ok {
			if entry.PendingRun != "" {
				rows[i].SeenRun = entry.PendingRun
			}
			continue
		}
		maxSeq++
		row := *v
		row.ChannelID = entry.ChannelID
		row.Seq = maxSeq
		row.SeenRun = entry.PendingRun
		index[row.ID] = len(rows)
		rows = append(rows, row)
		added++
	}

	s.videos[entry.ChannelID] = rows
	s.caches[entry.ChannelID] = *entry
	return added, nil
}

func (s *Store) FinishRefresh(_ context.Context, entry *models.ChannelCache, pruneRun string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}

	pruned := 0
	if pruneRun != "" {
		kept := s.videos[entry.ChannelID][:0]
		for _, v := range s.videos[entry.ChannelID] {
			if v.SeenRun != pruneRun {
				pruned++
				continue
			}
			kept = append(kept, v)
		}
		s.videos[entry.ChannelID] = kept
	}
	s.caches[entry.ChannelID] = *entry
	return pruned, nil
}

func (s *Store) DeleteVideos(_ context.Context, key models.ChannelKey, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.videos[key][:0]
	for _, v := range s.videos[key] {
		if !drop[v.ID] {
			kept = append(kept, v)
		}
	}
	s.videos[key] = kept
	return nil
}

func (s *Store) DeleteChannel(_ context.Context, key models.ChannelKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, key)
	delete(s.caches, key)
	return nil
}

func (s *Store) ClearVideoCache(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = make(map[models.ChannelKey][]models.Video)
	s.caches = make(map[models.ChannelKey]models.ChannelCache)
	return nil
}

// Quota operations

func (s *Store) GetQuotaUsage(_ context.Context, day string) (*models.QuotaUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage, ok := s.quota[day]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &usage, nil
}

func (s *Store) SaveQuotaUsage(_ context.Context, usage *models.QuotaUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.quota[usage.Day] = *usage
	return nil
}

func (s *Store) ListQuotaUsage(_ context.Context, limit int) ([]*models.QuotaUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.QuotaUsage, 0, len(s.quota))
	for _, u := range s.quota {
		usage := u
		out = append(out, &usage)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Commit queue operations

func copyQueue(q models.CommitQueue) *models.CommitQueue {
	q.Items = append([]models.QueueItem(nil), q.Items...)
	q.Channels = append(models.StringSlice(nil), q.Channels...)
	return &q
}

func (s *Store) GetQueue(_ context.Context, playlistTitle string) (*models.CommitQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[playlistTitle]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyQueue(q), nil
}

func (s *Store) ListQueues(_ context.Context) ([]*models.CommitQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.CommitQueue, 0, len(s.queues))
	for _, q := range s.queues {
		out = append(out, copyQueue(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaylistTitle < out[j].PlaylistTitle })
	return out, nil
}

func (s *Store) SaveQueue(_ context.Context, queue *models.CommitQueue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for i := range queue.Items {
		queue.Items[i].PlaylistTitle = queue.PlaylistTitle
	}
	s.queues[queue.PlaylistTitle] = *copyQueue(*queue)
	return nil
}

func (s *Store) UpdateQueueCursor(_ context.Context, playlistTitle string, cursor int, status models.QueueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	q, ok := s.queues[playlistTitle]
	if !ok {
		return storage.ErrNotFound
	}
	q.Cursor = cursor
	q.Status = status
	s.queues[playlistTitle] = q
	return nil
}

func (s *Store) DeleteQueue(_ context.Context, playlistTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, playlistTitle)
	return nil
}

// Sync state operations

func (s *Store) GetSyncState(_ context.Context, playlistID string) (*models.PlaylistSyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[playlistID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &state, nil
}

func (s *Store) SaveSyncState(_ context.Context, state *models.PlaylistSyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states[state.PlaylistID] = *state
	return nil
}

func (s *Store) ListSyncStates(_ context.Context) ([]*models.PlaylistSyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.PlaylistSyncState, 0, len(s.states))
	for _, st := range s.states {
		state := st
		out = append(out, &state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// OAuth token operations

func (s *Store) SaveToken(_ context.Context, token *models.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Provider] = *token
	return nil
}

func (s *Store) GetToken(_ context.Context, provider string) (*models.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[provider]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &token, nil
}

func (s *Store) DeleteToken(_ context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, provider)
	return nil
}

var _ storage.Repository = (*Store)(nil)

// Directory implements storage.DirectoryStore in memory
type Directory struct {
	mu      sync.Mutex
	entries map[string]models.ChannelKey
	puts    int
}

// NewDirectory returns a directory seeded with entries
func NewDirectory(seed map[string]models.ChannelKey) *Directory {
	d := &Directory{entries: make(map[string]models.ChannelKey, len(seed))}
	for k, v := range seed {
		d.entries[k] = v
	}
	return d
}

func (d *Directory) Get(_ context.Context, identifier string) (models.ChannelKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key, ok := d.entries[identifier]
	if !ok {
		return "", storage.ErrNotFound
	}
	return key, nil
}

func (d *Directory) Put(_ context.Context, identifier string, key models.ChannelKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[identifier] = key
	d.puts++
	return nil
}

func (d *Directory) All(_ context.Context) (map[string]models.ChannelKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]models.ChannelKey, len(d.entries))
	for k, v := range d.entries {
		out[k] = v
	}
	return out, nil
}

func (d *Directory) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[string]models.ChannelKey)
	return nil
}

// Puts returns how many writes the directory received
func (d *Directory) Puts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.puts
}

var _ storage.DirectoryStore = (*Directory)(nil)
