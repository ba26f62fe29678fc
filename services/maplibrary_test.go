package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/GrainArc/RealmMap/config"
	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const tinyMap = `{"features":[{"type":"Feature","id":"values","name":"Tiny Hamlet"},{"type":"Polygon","id":"terrain","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}]}`

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Default()
	cfg.SqlitePath = filepath.Join(t.TempDir(), "maps.db")
	db, err := models.OpenDB(cfg)
	require.NoError(t, err)
	return db
}

func rowStoreServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "k" || r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/rest/v1/maps" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		rows := []map[string]interface{}{}
		switch r.URL.Query().Get("id") {
		case "":
			rows = append(rows, map[string]interface{}{"id": "r1", "name": "Remote Ruins", "updated_at": "2024-03-01T10:00:00Z"})
		case "eq.r1":
			rows = append(rows, map[string]interface{}{"id": "r1", "name": "Remote Ruins", "updated_at": "2024-03-01T10:00:00Z", "data": json.RawMessage(tinyMap)})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuiltinMaps(t *testing.T) {
	lib, err := NewMapLibrary(nil, nil, "")
	require.NoError(t, err)
	ctx := context.Background()

	entries, err := lib.ListMaps(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Harbor Town", entries[0].Name)
	assert.Equal(t, "builtin:harbor-town", entries[0].ID)
	assert.Equal(t, "builtin:harbor-town", lib.DefaultMapID())

	entry, raw, err := lib.LoadMap(ctx, "builtin:river-keep")
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, entry.Source)
	m, err := geomap.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "River Keep", m.Name())
	assert.Len(t, m.Labels, 2)

	_, _, err = lib.LoadMap(ctx, "builtin:missing")
	assert.ErrorIs(t, err, ErrMapNotFound)
	_, _, err = lib.LoadMap(ctx, "nonsense")
	assert.ErrorIs(t, err, ErrMapNotFound)
	_, _, err = lib.LoadMap(ctx, "local:abc")
	assert.ErrorIs(t, err, ErrMapNotFound)
}

func TestBuiltinMapsNormalize(t *testing.T) {
	lib, err := NewMapLibrary(nil, nil, "")
	require.NoError(t, err)

	_, raw, err := lib.LoadMap(context.Background(), "builtin:harbor-town")
	require.NoError(t, err)
	m, err := geomap.Normalize(raw)
	require.NoError(t, err)

	// 只有一个显式标注，行政区合成标注不参与
	require.Len(t, m.Labels, 1)
	assert.Equal(t, "Lighthouse", m.Labels[0].Text)
	assert.NotNil(t, geomap.FocusBounds(m))
}

func TestLocalMaps(t *testing.T) {
	lib, err := NewMapLibrary(testDB(t), nil, "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = lib.SaveLocal(ctx, "", []byte(`{"nope":1}`))
	assert.ErrorIs(t, err, geomap.ErrInvalidDocument)

	entry, err := lib.SaveLocal(ctx, "", []byte(tinyMap))
	require.NoError(t, err)
	assert.Equal(t, "Tiny Hamlet", entry.Name)
	assert.Equal(t, SourceLocal, entry.Source)
	assert.Equal(t, int64(len(tinyMap)), entry.Size)

	entries, err := lib.ListMaps(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	got, raw, err := lib.LoadMap(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Name, got.Name)
	assert.JSONEq(t, tinyMap, string(raw))

	assert.ErrorIs(t, lib.DeleteLocal(ctx, "builtin:harbor-town"), ErrReadOnlyMap)
	require.NoError(t, lib.DeleteLocal(ctx, entry.ID))
	assert.ErrorIs(t, lib.DeleteLocal(ctx, entry.ID), ErrMapNotFound)
}

func TestActiveMap(t *testing.T) {
	lib, err := NewMapLibrary(testDB(t), nil, "builtin:river-keep")
	require.NoError(t, err)
	ctx := context.Background()

	id, err := lib.ActiveMapID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "builtin:river-keep", id)

	require.NoError(t, lib.SetActiveMapID(ctx, "builtin:harbor-town"))
	require.NoError(t, lib.SetActiveMapID(ctx, "builtin:harbor-town"))
	id, err = lib.ActiveMapID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "builtin:harbor-town", id)

	assert.ErrorIs(t, lib.SetActiveMapID(ctx, "local:gone"), ErrMapNotFound)
}

func TestDeleteActiveLocalMapFallsBack(t *testing.T) {
	lib, err := NewMapLibrary(testDB(t), nil, "builtin:river-keep")
	require.NoError(t, err)
	ctx := context.Background()

	kept, err := lib.SaveLocal(ctx, "Kept", []byte(tinyMap))
	require.NoError(t, err)
	active, err := lib.SaveLocal(ctx, "Active", []byte(tinyMap))
	require.NoError(t, err)
	require.NoError(t, lib.SetActiveMapID(ctx, active.ID))

	// 删除非激活地图不影响设置
	require.NoError(t, lib.DeleteLocal(ctx, kept.ID))
	id, err := lib.ActiveMapID(ctx)
	require.NoError(t, err)
	assert.Equal(t, active.ID, id)

	require.NoError(t, lib.DeleteLocal(ctx, active.ID))
	id, err = lib.ActiveMapID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "builtin:river-keep", id)
	_, _, err = lib.LoadMap(ctx, id)
	assert.NoError(t, err)
}

func TestRemoteMaps(t *testing.T) {
	srv := rowStoreServer(t)
	remote := NewRowStoreClient(config.RowStoreConfig{URL: srv.URL + "/", APIKey: "k", Table: "maps"}, srv.Client())
	lib, err := NewMapLibrary(nil, remote, "")
	require.NoError(t, err)
	ctx := context.Background()

	entries, err := lib.ListMaps(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "supabase:r1", entries[2].ID)
	assert.Equal(t, SourceSupabase, entries[2].Source)

	entry, raw, err := lib.LoadMap(ctx, "supabase:r1")
	require.NoError(t, err)
	assert.Equal(t, "Remote Ruins", entry.Name)
	assert.JSONEq(t, tinyMap, string(raw))

	_, _, err = lib.LoadMap(ctx, "supabase:r2")
	assert.ErrorIs(t, err, ErrMapNotFound)
}

func TestRemoteListFailureIsSkipped(t *testing.T) {
	srv := rowStoreServer(t)
	remote := NewRowStoreClient(config.RowStoreConfig{URL: srv.URL, APIKey: "wrong", Table: "maps"}, srv.Client())
	lib, err := NewMapLibrary(nil, remote, "")
	require.NoError(t, err)

	entries, err := lib.ListMaps(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, _, err = lib.LoadMap(context.Background(), "supabase:r1")
	assert.ErrorContains(t, err, "status 401")
}
