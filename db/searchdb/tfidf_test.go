package searchdb

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rummage/config"
	"rummage/logger"
)

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func newTestIndex(t *testing.T) *TFIDFIndex {
	t.Helper()
	assert := require.New(t)

	tempDir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("STORAGE_PATH", tempDir)
	t.Setenv("INDEX_PATH", "index.json")

	cfg, err := config.Load()
	assert.NoError(err, "could not load config")

	index, err := New(newTestLogger(), cfg)
	assert.NoError(err, "could not create index")

	return index
}

func testDocument(path string, content string) Document {
	return Document{
		Path:    path,
		Name:    filepath.Base(path),
		Content: content,
		Size:    int64(len(content)),
		ModTime: time.Now().UTC(),
	}
}

func TestSearchRanksByRelevance(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/lerp.md", "lerp lerp lerp linear interpolation"),
		testDocument("/docs/easing.md", "easing curves mention lerp once in passing among many many many other words here"),
		testDocument("/docs/unrelated.md", "nothing about the topic at all"),
	})
	assert.NoError(err)

	response, err := index.Search("lerp", 10, 0)
	assert.NoError(err)
	assert.Equal(uint64(2), response.Total)
	assert.Len(response.Pairs, 2)
	assert.Equal("/docs/lerp.md", response.Pairs[0].Path)
	assert.Equal("/docs/easing.md", response.Pairs[1].Path)
	assert.Greater(response.Pairs[0].Rank, response.Pairs[1].Rank)
}

func TestSearchMatchesStemmedTerms(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/guide.md", "interpolating between values"),
		testDocument("/docs/other.md", "unrelated filler words"),
	})
	assert.NoError(err)

	// "interpolation" and "interpolating" share a stem.
	response, err := index.Search("interpolation", 10, 0)
	assert.NoError(err)
	assert.Len(response.Pairs, 1)
	assert.Equal("/docs/guide.md", response.Pairs[0].Path)
}

func TestSearchMatchesFilename(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/shaders/lerp.glsl", "mix two values"),
		testDocument("/docs/other.md", "unrelated filler words"),
	})
	assert.NoError(err)

	response, err := index.Search("lerp", 10, 0)
	assert.NoError(err)
	assert.Len(response.Pairs, 1)
}

func TestSearchNoMatches(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/a.md", "alpha beta gamma"),
	})
	assert.NoError(err)

	response, err := index.Search("nonexistent", 10, 0)
	assert.NoError(err)
	assert.Equal(uint64(0), response.Total)
	assert.Empty(response.Pairs)
	assert.NotNil(response.Pairs, "no matches should still serialize as an empty array")
}

func TestSearchEmptyQuery(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/a.md", "alpha beta gamma"),
	})
	assert.NoError(err)

	response, err := index.Search("", 10, 0)
	assert.NoError(err)
	assert.Empty(response.Pairs)
}

func TestSearchLimitAndOffset(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/a.md", "shared shared shared"),
		testDocument("/docs/b.md", "shared shared filler"),
		testDocument("/docs/c.md", "shared filler filler"),
		testDocument("/docs/d.md", "filler filler filler"),
	})
	assert.NoError(err)

	response, err := index.Search("shared", 2, 0)
	assert.NoError(err)
	assert.Equal(uint64(3), response.Total)
	assert.Len(response.Pairs, 2)

	rest, err := index.Search("shared", 2, 2)
	assert.NoError(err)
	assert.Len(rest.Pairs, 1)
	assert.NotContains([]string{response.Pairs[0].Path, response.Pairs[1].Path}, rest.Pairs[0].Path)
}

func TestReindexReplacesDocument(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/a.md", "original topic"),
		testDocument("/docs/other.md", "unrelated filler words"),
	})
	assert.NoError(err)

	err = index.BuildIndex([]Document{
		testDocument("/docs/a.md", "rewritten subject"),
	})
	assert.NoError(err)

	count, err := index.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(2), count)

	response, err := index.Search("original", 10, 0)
	assert.NoError(err)
	assert.Empty(response.Pairs, "stale terms should not match after reindexing")

	response, err = index.Search("rewritten", 10, 0)
	assert.NoError(err)
	assert.Len(response.Pairs, 1)
}

func TestDeleteDocuments(t *testing.T) {
	assert := require.New(t)
	index := newTestIndex(t)

	err := index.BuildIndex([]Document{
		testDocument("/docs/a.md", "alpha topic"),
		testDocument("/docs/b.md", "beta topic"),
	})
	assert.NoError(err)

	err = index.DeleteDocuments([]string{"/docs/a.md"})
	assert.NoError(err)

	count, err := index.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(1), count)

	response, err := index.Search("alpha", 10, 0)
	assert.NoError(err)
	assert.Empty(response.Pairs)
}

func TestSaveAndReload(t *testing.T) {
	assert := require.New(t)

	tempDir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("STORAGE_PATH", tempDir)
	t.Setenv("INDEX_PATH", "index.json")

	cfg, err := config.Load()
	assert.NoError(err)

	index, err := New(newTestLogger(), cfg)
	assert.NoError(err)

	err = index.BuildIndex([]Document{
		testDocument("/docs/persisted.md", "survives a restart"),
		testDocument("/docs/other.md", "unrelated filler words"),
	})
	assert.NoError(err)
	assert.NoError(index.Close())

	reloaded, err := New(newTestLogger(), cfg)
	assert.NoError(err)

	count, err := reloaded.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(2), count)

	response, err := reloaded.Search("restart", 10, 0)
	assert.NoError(err)
	assert.Len(response.Pairs, 1)
	assert.Equal("/docs/persisted.md", response.Pairs[0].Path)
}

func TestPairWireShape(t *testing.T) {
	assert := require.New(t)

	data, err := json.Marshal([]Pair{{Path: "shaders/lerp.glsl", Rank: 0.92}})
	assert.NoError(err)
	assert.JSONEq(`[["shaders/lerp.glsl", 0.92]]`, string(data))

	var pairs []Pair
	err = json.Unmarshal([]byte(`[["math/interp.ts", 0.81]]`), &pairs)
	assert.NoError(err)
	assert.Equal([]Pair{{Path: "math/interp.ts", Rank: 0.81}}, pairs)

	err = json.Unmarshal([]byte(`[["missing-rank"]]`), &pairs)
	assert.Error(err)

	err = json.Unmarshal([]byte(`[{"path": "x"}]`), &pairs)
	assert.Error(err)
}
