package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubby932/rhl/internal/cache"
	"github.com/bubby932/rhl/internal/config"
	"github.com/bubby932/rhl/internal/preprocess"
	"github.com/bubby932/rhl/internal/stdlib"
	"github.com/bubby932/rhl/internal/testutil"
)

func openCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// files is a mutable in-memory file system for #with targets.
type files map[string]string

func (f files) read(name string) ([]byte, error) {
	src, ok := f[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return []byte(src), nil
}

func TestRun_AppliesConfig(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Source: "#ifdef DEBUG\nv=V\n#endif\n",
		Config: &config.Config{Defines: []string{"DEBUG", "V=2"}},
		IDs:    testutil.NewSequenceIDs(""),
	})
	require.NoError(t, err)

	assert.Equal(t, "v=2\n", res.Output)
	assert.Equal(t, "run-1", res.RunID)
	assert.False(t, res.CacheHit)
	assert.Empty(t, res.Key)
	assert.Empty(t, res.Dependencies)
}

func TestRun_InvertedPolarity(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Source: "#ifdef DEBUG\ndebug\n#else\nrelease\n#endif\n",
		Config: &config.Config{Defines: []string{"DEBUG"}, InvertedPolarity: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "release\n", res.Output)
}

func TestRun_InvalidDefinition(t *testing.T) {
	_, err := Run(context.Background(), Request{
		Source: "x\n",
		Config: &config.Config{Defines: []string{"A B"}},
	})
	assert.ErrorContains(t, err, "whitespace")
}

func TestRun_PreprocessErrorIsReturnedUnchanged(t *testing.T) {
	_, err := Run(context.Background(), Request{Name: "bad.rhl", Source: "ok\n#bogus\n"})
	require.Error(t, err)

	assert.True(t, preprocess.IsUnknownDirective(err))
	var perr *preprocess.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad.rhl", perr.Source)
	assert.Equal(t, 2, perr.Line)
}

func TestRun_CacheHit(t *testing.T) {
	ctx := context.Background()
	store := openCache(t)
	ids := testutil.NewSequenceIDs("")
	req := Request{
		Name:   "main.rhl",
		Source: "#with $std\nmain\n",
		Cache:  store,
		IDs:    ids,
	}

	first, err := Run(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.NotEmpty(t, first.Key)
	require.Len(t, first.Dependencies, 1)
	assert.Equal(t, "$std", first.Dependencies[0].Name)

	second, err := Run(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Dependencies, second.Dependencies)
	assert.Equal(t, "run-2", second.RunID)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Entries: 1, Dependencies: 1, Runs: 2, Hits: 1}, st)

	runs, err := store.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.False(t, runs[0].Hit)
	assert.True(t, runs[1].Hit)
	assert.Equal(t, "main.rhl", runs[1].SourceName)
}

func TestRun_CacheInvalidatedByChangedFile(t *testing.T) {
	ctx := context.Background()
	store := openCache(t)
	fsys := files{"inc.rhl": "#define X 1\nX\n"}
	req := Request{Source: "#with inc.rhl\n", Cache: store, ReadFile: fsys.read}

	first, err := Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "1\n", first.Output)

	fsys["inc.rhl"] = "#define X 2\nX\n"

	second, err := Run(ctx, req)
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, "2\n", second.Output)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, int64(0), st.Hits)
}

func TestRun_CacheInvalidatedByDeletedFile(t *testing.T) {
	ctx := context.Background()
	store := openCache(t)
	fsys := files{"inc.rhl": "x\n"}
	req := Request{Source: "#with inc.rhl\n", Cache: store, ReadFile: fsys.read}

	_, err := Run(ctx, req)
	require.NoError(t, err)

	delete(fsys, "inc.rhl")

	_, err = Run(ctx, req)
	assert.True(t, preprocess.IsUnresolvableInclude(err))

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Entries)
}

func TestRun_CacheInvalidatedByChangedLibrary(t *testing.T) {
	ctx := context.Background()
	store := openCache(t)
	req := Request{
		Source:   "#with $lib\n",
		Cache:    store,
		Registry: stdlib.FromMap(map[string]string{"$lib": "one\n"}),
	}

	first, err := Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "one\n", first.Output)

	req.Registry = stdlib.FromMap(map[string]string{"$lib": "two\n"})
	second, err := Run(ctx, req)
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, "two\n", second.Output)
}

func TestRun_CacheKeyCoversConfig(t *testing.T) {
	ctx := context.Background()
	store := openCache(t)
	src := "#ifdef A\na\n#endif\n"

	first, err := Run(ctx, Request{Source: src, Cache: store})
	require.NoError(t, err)
	assert.Equal(t, "", first.Output)

	second, err := Run(ctx, Request{Source: src, Cache: store, Config: &config.Config{Defines: []string{"A"}}})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, "a\n", second.Output)
	assert.NotEqual(t, first.Key, second.Key)
}

func TestRun_DefaultDepthSharesKey(t *testing.T) {
	ctx := context.Background()
	store := openCache(t)

	first, err := Run(ctx, Request{Source: "x\n", Cache: store})
	require.NoError(t, err)
	second, err := Run(ctx, Request{
		Source: "x\n",
		Cache:  store,
		Config: &config.Config{MaxIncludeDepth: preprocess.DefaultMaxIncludeDepth},
	})
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
	assert.True(t, second.CacheHit)
}

func TestOptions(t *testing.T) {
	reg := stdlib.FromMap(nil)
	opts := Options(Request{
		Name:     "a.rhl",
		Registry: reg,
		Config: &config.Config{
			IncludeDirs:      []string{"lib"},
			MaxIncludeDepth:  4,
			InvertedPolarity: true,
			NormalizeUnicode: true,
		},
	})

	assert.Equal(t, "a.rhl", opts.Name)
	assert.Same(t, reg, opts.Registry)
	assert.Equal(t, []string{"lib"}, opts.IncludeDirs)
	assert.Equal(t, 4, opts.MaxIncludeDepth)
	assert.Equal(t, preprocess.PolarityInverted, opts.Polarity)
	assert.True(t, opts.NormalizeUnicode)
	assert.NotNil(t, opts.ReadFile)
	assert.NotNil(t, opts.Logger)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
