package sqlite

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func render(stmts []Statement) []byte {
	var sb strings.Builder
	for _, st := range stmts {
		sb.WriteString(st.Query)
		sb.WriteString(";\n")
	}
	return []byte(sb.String())
}

func TestCreateTableQuery(t *testing.T) {
	note := mustModel(t, noteEngine(t), "Note")
	g := newGolden(t)

	q, err := CreateTableQuery(note, "Note", RebuildOptions{Context: types.ContextSQLite})
	require.NoError(t, err)
	g.Assert(t, "create_note_sqlite", render([]Statement{Stmt(q)}))

	q, err = CreateTableQuery(note, "Note", RebuildOptions{Context: types.ContextDefault})
	require.NoError(t, err)
	g.Assert(t, "create_note_default", render([]Statement{Stmt(q)}))
}

func TestCreateTableQuery_NoColumns(t *testing.T) {
	e := schema.NewEngine()
	require.NoError(t, e.Register("Empty", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().Add("hidden", ty.String().Virtual())
	})))
	require.NoError(t, e.Start())

	_, err := CreateTableQuery(mustModel(t, e, "Empty"), "Empty", RebuildOptions{})
	assert.ErrorIs(t, err, types.ErrNoColumns)
}

func TestAddColumnQueries(t *testing.T) {
	note := mustModel(t, noteEngine(t), "Note")
	score, _ := note.Field("score")

	stmts, err := AddColumnQueries(note, "Note", score, RebuildOptions{
		Context:  types.ContextSQLite,
		Existing: []string{"id", "title", "note_body", "created"},
	})
	require.NoError(t, err)
	newGolden(t).Assert(t, "add_column_note", render(stmts))
}

func TestDropColumnQueries(t *testing.T) {
	note := mustModel(t, noteEngine(t), "Note")

	stmts, err := DropColumnQueries(note, "Note", "score", RebuildOptions{
		Context:  types.ContextSQLite,
		Existing: []string{"id", "title", "note_body", "score", "created"},
	})
	require.NoError(t, err)
	newGolden(t).Assert(t, "drop_column_note", render(stmts))
}

func TestUpdateTableQueries_NoCommonColumns(t *testing.T) {
	note := mustModel(t, noteEngine(t), "Note")

	stmts, err := UpdateTableQueries(note, "Note", RebuildOptions{
		Context:  types.ContextSQLite,
		Existing: []string{"legacy"},
	})
	require.NoError(t, err)
	for _, st := range stmts {
		assert.NotContains(t, st.Query, "INSERT INTO")
	}
	assert.Equal(t, "PRAGMA foreign_keys = OFF", stmts[0].Query)
	assert.Equal(t, "PRAGMA foreign_keys = ON", stmts[len(stmts)-1].Query)
}

func TestFieldDefinition_StorageTypeOverride(t *testing.T) {
	e := schema.NewEngine()
	require.NoError(t, e.Register("Tag", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().
			Add("code", ty.String().StorageType("VARCHAR(64)").NotNull())
	})))
	require.NoError(t, e.Start())

	f, _ := mustModel(t, e, "Tag").Field("code")
	assert.Equal(t, `"code" VARCHAR(64) NOT NULL`, FieldDefinition(f, types.ContextSQLite))
}

func TestSerializeValue(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.FixedZone("X", 3600))

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"true", true, int64(1)},
		{"false", false, int64(0)},
		{"time in UTC", ts, "2024-03-05 13:07:09.123456"},
		{"nil time pointer", (*time.Time)(nil), nil},
		{"string passes", "it's", "it's"},
		{"int passes", 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serializeValue(tt.in))
		})
	}
}

func TestSQLLiteral(t *testing.T) {
	assert.Equal(t, "'it''s'", sqlLiteral("it's"))
	assert.Equal(t, "NULL", sqlLiteral(nil))
	assert.Equal(t, "1", sqlLiteral(true))
	assert.Equal(t, "2.5", sqlLiteral(2.5))
	assert.Equal(t, "42", sqlLiteral(int64(42)))
}
