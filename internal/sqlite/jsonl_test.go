package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/schema"
)

func TestReadJSONL_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Jar.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"j1\"}\n\nnot json\n{\"id\":\"j2\"}\n"), 0o644))

	records, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"id":"j2"}`, string(records[1]))
}

func TestReadJSONL_MissingFile(t *testing.T) {
	records, err := readJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteJSONL_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Jar.jsonl")
	require.NoError(t, writeJSONL(path, []json.RawMessage{json.RawMessage(`{"id":"j1"}`)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Jar.jsonl", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"j1\"}\n", string(data))
}

func TestExportImport(t *testing.T) {
	ctx := testContext(t)
	e := shelfEngine(t)
	src, _ := migrated(t, e)
	require.NoError(t, e.Save(ctx, src, shelf("dry", "cool"), schema.IntrospectOptions{}))

	dir := t.TempDir()
	counts, err := src.Export(ctx, e, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["Shelf"])
	assert.Equal(t, 2, counts["Jar"])
	assert.Equal(t, 2, counts["String"])

	dst, _ := migrated(t, e)
	counts, err = dst.Import(ctx, e, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["Jar"])

	loaded, err := e.Load(ctx, dst, schema.Query{Model: "Shelf"})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	labels, _ := loaded[0].Get("labels")
	assert.Equal(t, []any{"dry", "cool"}, labels)
	jars, _ := loaded[0].Get("jars")
	require.Len(t, jars, 2)
	grams, _ := jars.([]any)[1].(schema.Entity).Get("grams")
	assert.Equal(t, int64(400), grams)
}
