package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catmig/internal/instance"
	"catmig/internal/schema"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func labelledGraph(t *testing.T) *instance.Instance {
	t.Helper()
	s := schema.MustFreeDiagram(schema.Presentation{
		Name: "Graph",
		Obs:  []string{"V", "E"},
		Homs: []schema.HomDecl{
			{Name: "src", Dom: "E", Cod: "V"},
			{Name: "tgt", Dom: "E", Cod: "V"},
		},
		Attrs: []schema.AttrDecl{{Name: "label", Dom: "E", Type: "string"}},
	})
	x := instance.New(s)
	x.AddParts(0, 3)
	x.AddParts(1, 2)
	require.NoError(t, x.SetHom(0, []int{0, 1}))
	require.NoError(t, x.SetHom(1, []int{1, 2}))
	require.NoError(t, x.SetAttr(0, []any{"ab", nil}))
	return x
}

func TestSaveLoadInstance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := labelledGraph(t)

	id, err := s.SaveInstance(ctx, "path", x)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, info, err := s.LoadInstance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "path", info.Name)
	assert.Equal(t, "Graph", info.Schema)
	assert.True(t, x.Equal(got), "loaded %s, saved %s", got, x)
	assert.Nil(t, got.AttrValue(0, 1))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["instances"])
	assert.Equal(t, 4, stats["hom_values"])
	assert.Equal(t, 2, stats["attr_values"])
}

func TestSaveRejectsInvalidInstance(t *testing.T) {
	s := newTestStore(t)
	x := labelledGraph(t)
	x.AddParts(1, 1) // new edge has no endpoints

	_, err := s.SaveInstance(context.Background(), "broken", x)
	assert.Error(t, err)
}

func TestLoadMissingInstance(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.LoadInstance(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteInstances(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveInstance(ctx, "first", labelledGraph(t))
	require.NoError(t, err)
	second, err := s.SaveInstance(ctx, "second", labelledGraph(t))
	require.NoError(t, err)

	infos, err := s.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.ElementsMatch(t, []string{first, second}, []string{infos[0].ID, infos[1].ID})

	before, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 8, before["hom_values"])
	assert.Equal(t, 4, before["attr_values"])

	require.NoError(t, s.DeleteInstance(ctx, first))
	assert.ErrorIs(t, s.DeleteInstance(ctx, first), ErrNotFound)

	infos, err = s.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, second, infos[0].ID)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats["hom_values"], "second keeps src and tgt for both edges")
	assert.Equal(t, 2, stats["attr_values"])
}

func TestRecordRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	_, err := s.RecordRun(ctx, Run{
		Kind: "delta", SourceSchema: "Graph", TargetSchema: "Set",
		Rows: 3, Solver: "native", Duration: 1500 * time.Millisecond, CreatedAt: base,
	})
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, Run{
		Kind: "sigma", SourceSchema: "Set", TargetSchema: "Graph",
		Status: StatusFailed, Error: "solver: colimit for V: boom", CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "sigma", runs[0].Kind)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "delta", runs[1].Kind)
	assert.Equal(t, StatusOK, runs[1].Status)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
	assert.Equal(t, "native", runs[1].Solver)
	assert.True(t, base.Equal(runs[1].CreatedAt))

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sigma", runs[0].Kind)
}

func TestMigrationsUpgradeOldFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE migration_runs (
		id TEXT PRIMARY KEY, kind TEXT NOT NULL, source_schema TEXT NOT NULL,
		target_schema TEXT NOT NULL, source_instance TEXT DEFAULT '',
		target_instance TEXT DEFAULT '', rows INTEGER DEFAULT 0, status TEXT NOT NULL,
		error TEXT DEFAULT '', created_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	assert.False(t, columnExists(db, "migration_runs", "solver"))
	assert.Equal(t, 0, GetSchemaVersion(db))
	require.NoError(t, db.Close())

	s, err := NewLocalStore(path)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, columnExists(s.db, "migration_runs", "solver"))
	assert.True(t, columnExists(s.db, "migration_runs", "duration_ms"))
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(s.db))

	_, err = s.RecordRun(context.Background(), Run{Kind: "delta", SourceSchema: "A", TargetSchema: "B", Solver: "datalog"})
	assert.NoError(t, err)
}

func TestSchemaVersionHistory(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(s.db))
	assert.True(t, tableExists(s.db, "schema_versions"))
	assert.False(t, tableExists(s.db, "nope"))
	assert.True(t, columnExists(s.db, "instances", "schema_json"))
	assert.False(t, columnExists(s.db, "instances", "nope"))
	assert.False(t, columnExists(s.db, "nope", "id"))

	require.NoError(t, SetSchemaVersion(s.db, CurrentSchemaVersion+1))
	assert.Equal(t, CurrentSchemaVersion+1, GetSchemaVersion(s.db))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_versions").Scan(&n))
	assert.Equal(t, 2, n)
}
