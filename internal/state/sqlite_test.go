package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapclean/internal/testutil"
	"github.com/leapstack-labs/leapclean/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"), "failed to open store")
	require.NoError(t, store.Migrate(), "failed to migrate store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)

	require.NoError(t, store.Open(":memory:"))
	assert.Equal(t, ":memory:", store.Path())
	require.NoError(t, store.Close())
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Close())

	// Reopening a migrated database is a no-op migration.
	store = NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	defer store.Close()
	require.NoError(t, store.Migrate())

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "basic_cleaning", nil)
	assert.EqualError(t, err, "database not opened")

	err = store.Migrate()
	assert.EqualError(t, err, "database not opened")

	_, err = store.ListArtifactVersions(ctx, "")
	assert.EqualError(t, err, "database not opened")
}

// --- Run lifecycle tests ---

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	config := map[string]any{
		"input_artifact": "sample.csv:latest",
		"min_price":      10,
		"max_price":      350,
	}
	run, err := store.CreateRun(ctx, "basic_cleaning", config)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, core.RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "basic_cleaning", got.JobType)
	assert.Equal(t, core.RunStatusRunning, got.Status)
	assert.Equal(t, "sample.csv:latest", got.Config["input_artifact"])
	assert.Equal(t, 10, got.Config["min_price"])
	assert.False(t, got.Finished())

	require.NoError(t, store.CompleteRun(ctx, run.ID))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
	assert.True(t, got.Finished())
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.CompleteRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun(ctx, "basic_cleaning", nil)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Most recent first.
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

// --- Artifact version tests ---

func newVersion(runID, name, typ string) *core.ArtifactVersion {
	return &core.ArtifactVersion{
		Name:        name,
		Type:        typ,
		Description: "test artifact",
		FileName:    name,
		Digest:      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Size:        0,
		RunID:       runID,
	}
}

func TestSQLiteStore_ArtifactVersions(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "upload", nil)
	require.NoError(t, err)

	first := newVersion(run.ID, "sample.csv", "raw_data")
	require.NoError(t, store.InsertArtifactVersion(ctx, first))
	assert.Equal(t, 0, first.Version)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := newVersion(run.ID, "sample.csv", "raw_data")
	require.NoError(t, store.InsertArtifactVersion(ctx, second))
	assert.Equal(t, 1, second.Version)

	other := newVersion(run.ID, "other.csv", "raw_data")
	require.NoError(t, store.InsertArtifactVersion(ctx, other))
	assert.Equal(t, 0, other.Version, "versions are numbered per name")

	got, err := store.GetArtifactVersion(ctx, "sample.csv", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "raw_data", got.Type)
	assert.Equal(t, "test artifact", got.Description)

	latest, err := store.GetLatestArtifactVersion(ctx, "sample.csv")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "sample.csv:v1", latest.Ref())

	all, err := store.ListArtifactVersions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "other.csv:v0", all[0].Ref())
	assert.Equal(t, "sample.csv:v0", all[1].Ref())
	assert.Equal(t, "sample.csv:v1", all[2].Ref())

	named, err := store.ListArtifactVersions(ctx, "sample.csv")
	require.NoError(t, err)
	assert.Len(t, named, 2)
}

func TestSQLiteStore_ArtifactVersionNotFound(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.GetArtifactVersion(ctx, "sample.csv", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetLatestArtifactVersion(ctx, "sample.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ArtifactTypeMismatch(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "upload", nil)
	require.NoError(t, err)

	require.NoError(t, store.InsertArtifactVersion(ctx, newVersion(run.ID, "sample.csv", "raw_data")))

	err = store.InsertArtifactVersion(ctx, newVersion(run.ID, "sample.csv", "clean_sample"))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	versions, err := store.ListArtifactVersions(ctx, "sample.csv")
	require.NoError(t, err)
	assert.Len(t, versions, 1, "rejected version must not be stored")
}

func TestSQLiteStore_ArtifactRequiresRun(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	err := store.InsertArtifactVersion(ctx, newVersion("no-such-run", "sample.csv", "raw_data"))
	assert.Error(t, err, "foreign key on run_id must be enforced")
}

func TestSQLiteStore_RunArtifacts(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	upload, err := store.CreateRun(ctx, "upload", nil)
	require.NoError(t, err)
	raw := newVersion(upload.ID, "sample.csv", "raw_data")
	require.NoError(t, store.InsertArtifactVersion(ctx, raw))
	require.NoError(t, store.LinkRunArtifact(ctx, upload.ID, raw.ID, core.LinkLogged))

	cleaning, err := store.CreateRun(ctx, "basic_cleaning", nil)
	require.NoError(t, err)
	clean := newVersion(cleaning.ID, "clean_sample.csv", "clean_sample")
	require.NoError(t, store.InsertArtifactVersion(ctx, clean))

	require.NoError(t, store.LinkRunArtifact(ctx, cleaning.ID, raw.ID, core.LinkUsed))
	require.NoError(t, store.LinkRunArtifact(ctx, cleaning.ID, raw.ID, core.LinkUsed), "relinking is a no-op")
	require.NoError(t, store.LinkRunArtifact(ctx, cleaning.ID, clean.ID, core.LinkLogged))

	links, err := store.ListRunArtifacts(ctx, cleaning.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, core.LinkUsed, links[0].Direction)
	assert.Equal(t, "sample.csv:v0", links[0].Version.Ref())
	assert.Equal(t, core.LinkLogged, links[1].Direction)
	assert.Equal(t, "clean_sample.csv:v0", links[1].Version.Ref())
}
