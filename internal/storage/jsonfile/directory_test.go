package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/storage"
	"github.com/playlist-sync/pkg/logger"
)

const (
	keyA models.ChannelKey = "UCAAAAAAAAAAAAAAAAAAAAAA"
	keyB models.ChannelKey = "UCBBBBBBBBBBBBBBBBBBBBBB"
)

func TestDirectory_MissingFileIsEmpty(t *testing.T) {
	d := NewDirectory(filepath.Join(t.TempDir(), "channels.json"), logger.Nop())

	_, err := d.Get(context.Background(), "anything")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDirectory_PutPersistsAndKeepsComments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_comment": "edit freely", "Veritasium": "`+string(keyA)+`"}`), 0644))

	d := NewDirectory(path, logger.Nop())
	key, err := d.Get(ctx, "Veritasium")
	require.NoError(t, err)
	assert.Equal(t, keyA, key)

	require.NoError(t, d.Put(ctx, "@mkbhd", keyB))

	reopened := NewDirectory(path, logger.Nop())
	all, err := reopened.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.ChannelKey{"Veritasium": keyA, "@mkbhd": keyB}, all)

	var raw map[string]string
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "edit freely", raw["_comment"])
}

func TestDirectory_DropsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"good": "`+string(keyA)+`", "short": "UC123", "number": 42}`), 0644))

	d := NewDirectory(path, logger.Nop())
	all, err := d.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.ChannelKey{"good": keyA}, all)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "short")
}

func TestDirectory_CorruptFileIsSetAside(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	d := NewDirectory(path, logger.Nop())
	all, err := d.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.FileExists(t, path+".corrupt")

	require.NoError(t, d.Put(ctx, "x", keyA))
	assert.FileExists(t, path)
}

func TestDirectory_RejectsInvalidPut(t *testing.T) {
	d := NewDirectory(filepath.Join(t.TempDir(), "channels.json"), logger.Nop())

	assert.Error(t, d.Put(context.Background(), "_reserved", keyA))
	assert.Error(t, d.Put(context.Background(), "x", "not-a-key"))
}

func TestDirectory_ClearKeepsComments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_c": "keep", "a": "`+string(keyA)+`"}`), 0644))

	d := NewDirectory(path, logger.Nop())
	require.NoError(t, d.Clear(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_c"`)
	assert.NotContains(t, string(data), string(keyA))
}
