package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// blogEngine registers Post and Comment. Post holds comments and string
// tags; Comment refers to itself through replies.
func blogEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := NewEngine(opts...)
	require.NoError(t, e.Register("Post", Declare(func(_ *FieldType, ty Types) *Fields {
		return NewFields().
			Add("id", ty.String().PrimaryKey()).
			Add("title", ty.String().NotNull()).
			Add("draft", ty.Boolean().Virtual()).
			Add("comments", ty.ArrayOf("Comment")).
			Add("tags", ty.ArrayOf("String"))
	})))
	require.NoError(t, e.Register("comment", Declare(func(self *FieldType, ty Types) *Fields {
		return NewFields().
			Add("id", ty.String().PrimaryKey()).
			Add("body", ty.String().Required()).
			Add("replies", ty.ArrayOf(self.TypeName()))
	})))
	require.NoError(t, e.Start())
	return e
}

func mustModel(t *testing.T, e *Engine, name string) *ModelType {
	t.Helper()
	mt, ok := e.ModelType(name)
	require.True(t, ok, "model type %s", name)
	return mt
}
