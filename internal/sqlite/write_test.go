package sqlite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

func hasPrefix(queries []string, prefix string) bool {
	for _, q := range queries {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func TestWriteRaw_InsertThenUpdate(t *testing.T) {
	ctx := testContext(t)
	e := shelfEngine(t)
	c, tr := migrated(t, e)
	jar := mustModel(t, e, "Jar")

	require.NoError(t, c.WriteRaw(ctx, schema.Row{Model: jar, Values: map[string]any{"id": "j1", "contents": "jam"}}))
	assert.True(t, hasPrefix(tr.all(), `INSERT INTO "Jar"`))
	assert.False(t, hasPrefix(tr.all(), `UPDATE "Jar"`))

	tr.reset()
	require.NoError(t, c.WriteRaw(ctx, schema.Row{Model: jar, Values: map[string]any{"id": "j1", "contents": "honey"}}))
	assert.True(t, hasPrefix(tr.all(), `UPDATE "Jar"`))
	assert.False(t, hasPrefix(tr.all(), `INSERT INTO "Jar"`))

	rows, err := c.Query(ctx, e, schema.Query{Model: "Jar"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "honey", rows[0].Values["contents"])
}

func TestWriteRaw_NoPrimaryKey(t *testing.T) {
	ctx := testContext(t)
	e := schema.NewEngine()
	require.NoError(t, e.Register("Log", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().Add("message", ty.String())
	})))
	require.NoError(t, e.Start())
	shelves := shelfEngine(t)
	c, tr := migrated(t, shelves)

	err := c.WriteRaw(ctx, schema.Row{Model: mustModel(t, e, "Log"), Values: map[string]any{"message": "hi"}})
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)

	err = c.WriteRaw(ctx, schema.Row{Model: mustModel(t, shelves, "Jar"), Values: map[string]any{"contents": "jam"}})
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)

	assert.Empty(t, tr.all(), "no statement runs for a row without a key")
}

func TestWriteRows_DuplicateKeyInOneBatch(t *testing.T) {
	ctx := testContext(t)
	e := shelfEngine(t)
	c, tr := migrated(t, e)
	jar := mustModel(t, e, "Jar")

	require.NoError(t, c.WriteRows(ctx, e, []schema.Row{
		{Model: jar, Values: map[string]any{"id": "j1", "contents": "jam"}},
		{Model: jar, Values: map[string]any{"id": "j1", "contents": "honey"}},
	}))
	assert.Equal(t, 1, tr.count("COMMIT"))

	rows, err := c.Query(ctx, e, schema.Query{Model: "Jar"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "honey", rows[0].Values["contents"])
}

func TestQuery_WhereAndPaging(t *testing.T) {
	ctx := testContext(t)
	e := shelfEngine(t)
	c, _ := migrated(t, e)
	jar := mustModel(t, e, "Jar")

	for _, v := range []map[string]any{
		{"id": "j1", "contents": "jam", "grams": 100},
		{"id": "j2", "contents": "jam", "grams": 200},
		{"id": "j3", "contents": nil, "grams": 300},
	} {
		require.NoError(t, c.WriteRaw(ctx, schema.Row{Model: jar, Values: v}))
	}

	rows, err := c.Query(ctx, e, schema.Query{Model: "Jar", Where: map[string]any{"contents": "jam"}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = c.Query(ctx, e, schema.Query{Model: "Jar", Where: map[string]any{"contents": nil}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "j3", rows[0].Values["id"])

	rows, err = c.Query(ctx, e, schema.Query{Model: "Jar", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "j2", rows[0].Values["id"])

	_, err = c.Query(ctx, e, schema.Query{Model: "Nope"})
	assert.ErrorIs(t, err, types.ErrUnknownModelType)
}

func shelf(labels ...any) *schema.Record {
	return schema.NewRecord("Shelf", map[string]any{
		"id":   "s1",
		"name": "pantry",
		"jars": []any{
			schema.NewRecord("Jar", map[string]any{"id": "j1", "contents": "jam", "grams": 250}),
			schema.NewRecord("Jar", map[string]any{"id": "j2", "contents": "honey", "grams": 400}),
		},
		"labels": labels,
	})
}

func TestSaveAndLoad(t *testing.T) {
	ctx := testContext(t)
	e := shelfEngine(t)
	c, tr := migrated(t, e)

	require.NoError(t, e.Save(ctx, c, shelf("dry", "cool"), schema.IntrospectOptions{}))
	assert.Equal(t, 1, tr.count("COMMIT"), "one save is one group")

	loaded, err := e.Load(ctx, c, schema.Query{Model: "Shelf"})
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	s := loaded[0]
	name, _ := s.Get("name")
	assert.Equal(t, "pantry", name)

	labels, _ := s.Get("labels")
	assert.Equal(t, []any{"dry", "cool"}, labels)

	jars, _ := s.Get("jars")
	require.Len(t, jars, 2)
	first := jars.([]any)[0].(schema.Entity)
	contents, _ := first.Get("contents")
	grams, _ := first.Get("grams")
	assert.Equal(t, "jam", contents)
	assert.Equal(t, int64(250), grams)
}

func TestSave_ReplacesPrimitiveLists(t *testing.T) {
	ctx := testContext(t)
	e := shelfEngine(t)
	c, _ := migrated(t, e)

	require.NoError(t, e.Save(ctx, c, shelf("dry", "cool"), schema.IntrospectOptions{}))
	require.NoError(t, e.Save(ctx, c, shelf("dark"), schema.IntrospectOptions{}))

	assert.Equal(t, int64(1), countRows(t, c, "Shelf"))
	assert.Equal(t, int64(2), countRows(t, c, "Jar"))
	assert.Equal(t, int64(1), countRows(t, c, "String"))

	loaded, err := e.Load(ctx, c, schema.Query{Model: "Shelf", Where: map[string]any{"id": "s1"}})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	labels, _ := loaded[0].Get("labels")
	assert.Equal(t, []any{"dark"}, labels)
}
