// Package jsonfile keeps the channel directory in a flat, hand-editable JSON
// object: {"identifier": "UC...", "_note": "keys starting with _ are comments"}.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/pkg/logger"
)

// Directory implements storage.DirectoryStore on a JSON file
type Directory struct {
	path string
	log  *logger.Logger

	mu       sync.Mutex
	loaded   bool
	entries  map[string]models.ChannelKey
	comments map[string]json.RawMessage
}

// NewDirectory creates a directory store backed by path. The file is read lazily.
func NewDirectory(path string, log *logger.Logger) *Directory {
	return &Directory{
		path: path,
		log:  log.WithComponent("directory-file"),
	}
}

// load reads the file once. Malformed entries are dropped; an unreadable
// document is moved aside and the directory starts empty.
func (d *Directory) load() error {
	if d.loaded {
		return nil
	}
	d.entries = make(map[string]models.ChannelKey)
	d.comments = make(map[string]json.RawMessage)

	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		d.loaded = true
		return nil
	}
	if err != nil {
		return &storage.Error{Op: "read", Entity: "directory", ID: d.path, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		d.loaded = true
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		backup := d.path + ".corrupt"
		if renameErr := os.Rename(d.path, backup); renameErr != nil {
			d.log.Warn().Err(renameErr).Msg("Failed to move corrupt directory file aside")
		}
		d.log.Warn().
			Err(fmt.Errorf("%w: %v", storage.ErrCorrupt, err)).
			Str("path", d.path).
			Str("backup", backup).
			Msg("Channel directory is not valid JSON, starting empty")
		d.loaded = true
		return nil
	}

	dropped := 0
	for identifier, value := range raw {
		if strings.HasPrefix(identifier, "_") {
			d.comments[identifier] = value
			continue
		}

		var key models.ChannelKey
		if err := json.Unmarshal(value, &key); err != nil || !key.Valid() || strings.TrimSpace(identifier) == "" {
			d.log.Warn().
				Str("identifier", identifier).
				RawJSON("value", value).
				Msg("Discarding malformed directory entry")
			dropped++
			continue
		}
		d.entries[identifier] = key
	}

	d.log.Debug().
		Int("entries", len(d.entries)).
		Int("dropped", dropped).
		Str("path", d.path).
		Msg("Loaded channel directory")

	d.loaded = true
	if dropped > 0 {
		return d.flush()
	}
	return nil
}

// flush writes entries and comments back atomically
func (d *Directory) flush() error {
	doc := make(map[string]interface{}, len(d.entries)+len(d.comments))
	for k, v := range d.comments {
		doc[k] = v
	}
	for k, v := range d.entries {
		doc[k] = v
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &storage.Error{Op: "encode", Entity: "directory", ID: d.path, Err: err}
	}

	w, err := newAtomicWriter(d.path)
	if err != nil {
		return &storage.Error{Op: "write", Entity: "directory", ID: d.path, Err: err}
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		w.abort()
		return &storage.Error{Op: "write", Entity: "directory", ID: d.path, Err: err}
	}
	if err := w.commit(); err != nil {
		return &storage.Error{Op: "write", Entity: "directory", ID: d.path, Err: err}
	}
	return nil
}

func (d *Directory) Get(_ context.Context, identifier string) (models.ChannelKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return "", err
	}
	key, ok := d.entries[identifier]
	if !ok {
		return "", storage.ErrNotFound
	}
	return key, nil
}

func (d *Directory) Put(_ context.Context, identifier string, key models.ChannelKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return err
	}
	if strings.HasPrefix(identifier, "_") {
		return fmt.Errorf("identifier %q is reserved for comments", identifier)
	}
	if !key.Valid() {
		return fmt.Errorf("invalid channel key %q", key)
	}
	if current, ok := d.entries[identifier]; ok && current == key {
		return nil
	}
	d.entries[identifier] = key
	return d.flush()
}

func (d *Directory) All(_ context.Context) (map[string]models.ChannelKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return nil, err
	}
	out := make(map[string]models.ChannelKey, len(d.entries))
	for k, v := range d.entries {
		out[k] = v
	}
	return out, nil
}

// Clear removes every mapping but keeps comment keys
func (d *Directory) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return err
	}
	d.entries = make(map[string]models.ChannelKey)
	return d.flush()
}

var _ storage.DirectoryStore = (*Directory)(nil)
