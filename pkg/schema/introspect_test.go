package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestIntrospect(t *testing.T) {
	e := blogEngine(t, WithTypeCodes(func(code string) string {
		if code == "cmt" {
			return "Comment"
		}
		return code
	}))
	post := mustModel(t, e, "Post")
	comment := mustModel(t, e, "Comment")

	rec, err := post.Instantiate(map[string]any{"id": "p1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		v    any
		opts IntrospectOptions
		want *ModelType
	}{
		{"explicit model", map[string]any{"body": "x"}, IntrospectOptions{Model: post}, post},
		{"explicit name", map[string]any{"body": "x"}, IntrospectOptions{ModelType: "post"}, post},
		{"own schema", rec, IntrospectOptions{}, post},
		{"entity type name", NewRecord("comment", nil), IntrospectOptions{}, comment},
		{"composite string", "cmt:42", IntrospectOptions{}, comment},
		{"composite id field", map[string]any{"id": "post:1"}, IntrospectOptions{}, post},
		{"modelType field", map[string]any{"modelType": "Comment"}, IntrospectOptions{}, comment},
		{"guess by fields", map[string]any{"id": "x", "title": "t", "tags": nil}, IntrospectOptions{}, post},
		{"guess penalizes unknown", map[string]any{"id": "x", "body": "b"}, IntrospectOptions{}, comment},
		{"scalar among candidates", "hello", IntrospectOptions{Candidates: []string{"Comment", "String"}}, mustModel(t, e, "String")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Introspect(tt.v, tt.opts)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestIntrospectTieGoesToFirstRegistered(t *testing.T) {
	decl := Declare(func(_ *FieldType, ty Types) *Fields {
		return NewFields().Add("id", ty.String()).Add("name", ty.String())
	})
	e := NewEngine()
	require.NoError(t, e.Register("Zebra", decl))
	require.NoError(t, e.Register("Aardvark", decl))
	require.NoError(t, e.Start())

	got, err := e.Introspect(map[string]any{"id": "1", "name": "n"}, IntrospectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Zebra", got.Name())

	got, err = e.Introspect(map[string]any{"id": "1"}, IntrospectOptions{Candidates: []string{"Aardvark", "Zebra"}})
	require.NoError(t, err)
	assert.Equal(t, "Zebra", got.Name(), "candidate order does not matter")
}

func TestIntrospectSparseInputPrefersNarrowType(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Register("Wide", Declare(func(_ *FieldType, ty Types) *Fields {
		return NewFields().Add("name", ty.String()).Add("a", ty.String()).Add("b", ty.String())
	})))
	require.NoError(t, e.Register("Narrow", Declare(func(_ *FieldType, ty Types) *Fields {
		return NewFields().Add("name", ty.String())
	})))
	require.NoError(t, e.Start())

	got, err := e.Introspect(map[string]any{"name": "x"}, IntrospectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Narrow", got.Name(), "Wide loses 10 per absent field")

	got, err = e.Introspect(map[string]any{"name": "x", "a": "1", "b": "2"}, IntrospectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Wide", got.Name())

	got, err = e.Introspect(map[string]any{"name": "x", "unknown": 1}, IntrospectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Narrow", got.Name(), "keys no type declares do not count")
}

func TestIntrospectErrors(t *testing.T) {
	e := blogEngine(t)

	_, err := e.Introspect(map[string]any{}, IntrospectOptions{ModelType: "Ghost"})
	assert.ErrorIs(t, err, types.ErrUnknownModelType)

	_, err = e.Introspect(42, IntrospectOptions{})
	assert.ErrorIs(t, err, types.ErrUnknownModelType)

	_, err = e.Introspect(map[string]any{"id": 1}, IntrospectOptions{Candidates: []string{"String"}})
	assert.ErrorIs(t, err, types.ErrUnknownModelType)
}

func TestNormalizeTypeName(t *testing.T) {
	assert.Equal(t, "User", NormalizeTypeName("user"))
	assert.Equal(t, "UserGroup", NormalizeTypeName(" userGroup "))
	assert.Equal(t, "Élan", NormalizeTypeName("élan"))
	assert.Equal(t, "", NormalizeTypeName("  "))

	id := NewID()
	assert.Len(t, id, 36)
	assert.Equal(t, 4, strings.Count(id, "-"))
}
