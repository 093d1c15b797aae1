package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubby932/rhl/internal/preprocess"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(key string) Entry {
	return Entry{
		Key:        key,
		SourceName: "main.rhl",
		Output:     "out\n",
		Dependencies: []preprocess.Dependency{
			{Kind: preprocess.DependencyLibrary, Name: "$std", Hash: "h1"},
			{Kind: preprocess.DependencyFile, Name: "inc/a.rhl", Hash: "h2"},
		},
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, testEntry("k")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	_, ok, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := testEntry("key-1")
	require.NoError(t, s.Put(ctx, want))

	got, ok, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestGet_Missing(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_ReplacesEntryAndDependencies(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("k")))

	replacement := Entry{
		Key:        "k",
		SourceName: "other.rhl",
		Output:     "new\n",
		Dependencies: []preprocess.Dependency{
			{Kind: preprocess.DependencyFile, Name: "b.rhl", Hash: "h3"},
		},
	}
	require.NoError(t, s.Put(ctx, replacement))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, replacement, got)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, int64(1), st.Dependencies)
}

func TestPut_NoDependencies(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Entry{Key: "k", SourceName: "<input>", Output: ""}))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.Dependencies)
	assert.Equal(t, "", got.Output)
}

func TestPut_RejectsUnknownDependencyKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entry := Entry{
		Key:          "k",
		Dependencies: []preprocess.Dependency{{Kind: "socket", Name: "x", Hash: "h"}},
	}
	require.Error(t, s.Put(ctx, entry))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "failed put must roll back")
}

func TestDelete_CascadesDependencies(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("k")))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestRuns_RecordAndList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, Run{ID: "run-1", Key: "k", SourceName: "a.rhl", Hit: false}))
	require.NoError(t, s.RecordRun(ctx, Run{ID: "run-2", Key: "k", SourceName: "a.rhl", Hit: true}))
	require.NoError(t, s.RecordRun(ctx, Run{ID: "run-3", Key: "j", SourceName: "b.rhl", Hit: true}))

	all, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-1", all[0].ID)
	assert.False(t, all[0].Hit)
	assert.Equal(t, "run-3", all[2].ID)
	assert.Less(t, all[0].Seq, all[1].Seq)

	last, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "run-2", last[0].ID)
	assert.Equal(t, "run-3", last[1].ID)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Runs)
	assert.Equal(t, int64(2), st.Hits)
}

func TestRecordRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, Run{ID: "same", Key: "k"}))
	assert.Error(t, s.RecordRun(ctx, Run{ID: "same", Key: "k"}))
}

func TestClear(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("a")))
	require.NoError(t, s.Put(ctx, testEntry("b")))
	require.NoError(t, s.RecordRun(ctx, Run{ID: "r", Key: "a"}))

	require.NoError(t, s.Clear(ctx))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}
