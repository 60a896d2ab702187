package permission

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// rowStore keeps rows in memory.
type rowStore struct {
	rows []schema.Row
}

func (s *rowStore) Context() types.Context { return types.ContextMemory }

func (s *rowStore) Write(_ context.Context, _ *schema.Engine, row schema.Row) error {
	s.rows = append(s.rows, row)
	return nil
}

func (s *rowStore) Query(_ context.Context, _ *schema.Engine, q schema.Query) ([]schema.Row, error) {
	var out []schema.Row
	for _, r := range s.rows {
		if r.Model.Name() != q.Model {
			continue
		}
		match := true
		for k, v := range q.Where {
			if fmt.Sprint(r.Values[k]) != fmt.Sprint(v) {
				match = false
			}
		}
		if match {
			out = append(out, r)
		}
	}
	return out, nil
}

// author owns every entity whose author field names it.
type author struct {
	name  string
	roles []string
}

func (a *author) Roles() []string { return a.roles }

func (a *author) HasRole(name string) bool {
	for _, r := range a.roles {
		if r == name {
			return true
		}
	}
	return false
}

func (a *author) OwnerGeneration(target any) int {
	ent, ok := target.(schema.Entity)
	if !ok {
		return 0
	}
	if v, _ := ent.Get("author"); v == a.name {
		return 1
	}
	return 0
}

func docEngine(t *testing.T) *schema.Engine {
	t.Helper()
	e := schema.NewEngine()
	require.NoError(t, e.Register("Doc", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().
			Add("id", ty.String().PrimaryKey()).
			Add("author", ty.String())
	})))
	require.NoError(t, e.Start())
	return e
}

func TestGuard_Save(t *testing.T) {
	ctx := context.Background()
	e := docEngine(t)
	store := &rowStore{}
	perms := NewEngine()

	ana := NewGuard(perms, e, store, &author{name: "ana"})
	require.NoError(t, ana.Save(ctx, schema.NewRecord("Doc", map[string]any{"id": "d1", "author": "ana"}), schema.IntrospectOptions{}))

	bo := NewGuard(perms, e, store, &author{name: "bo"})
	err := bo.Save(ctx, schema.NewRecord("Doc", map[string]any{"id": "d2", "author": "ana"}), schema.IntrospectOptions{})
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	assert.Len(t, store.rows, 1)
}

func TestGuard_Load(t *testing.T) {
	ctx := context.Background()
	e := docEngine(t)
	store := &rowStore{}
	perms := NewEngine()
	admin := NewGuard(perms, e, store, &author{name: "root", roles: []string{RoleAdmin}})

	for _, d := range []map[string]any{
		{"id": "d1", "author": "ana"},
		{"id": "d2", "author": "bo"},
	} {
		require.NoError(t, admin.Save(ctx, schema.NewRecord("Doc", d), schema.IntrospectOptions{}))
	}

	ana := NewGuard(perms, e, store, &author{name: "ana"})
	docs, err := ana.Load(ctx, schema.Query{Model: "Doc"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	id, _ := docs[0].Get("id")
	assert.Equal(t, "d1", id)

	_, err = ana.Load(ctx, schema.Query{Model: "Doc", Where: map[string]any{"id": "d2"}})
	assert.ErrorIs(t, err, types.ErrPermissionDenied)

	docs, err = admin.Load(ctx, schema.Query{Model: "Doc"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
