package sqlite

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// tracer records every statement a connector sends.
type tracer struct {
	mu      sync.Mutex
	queries []string
}

func (tr *tracer) record(q string) {
	tr.mu.Lock()
	tr.queries = append(tr.queries, q)
	tr.mu.Unlock()
}

func (tr *tracer) reset() {
	tr.mu.Lock()
	tr.queries = nil
	tr.mu.Unlock()
}

func (tr *tracer) all() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.queries...)
}

func (tr *tracer) count(q string) int {
	n := 0
	for _, got := range tr.all() {
		if got == q {
			n++
		}
	}
	return n
}

// newTestConnector attaches a connector to a fresh database file.
func newTestConnector(t *testing.T) (*Connector, *tracer) {
	t.Helper()
	tr := &tracer{}
	c := NewConnector(WithTrace(tr.record))
	require.NoError(t, c.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { c.Detach() })
	return c, tr
}

// noteEngine registers Note, whose fields cover every column definition
// branch.
func noteEngine(t *testing.T) *schema.Engine {
	t.Helper()
	e := schema.NewEngine()
	require.NoError(t, e.Register("Note", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().
			Add("id", ty.Integer().PrimaryKey().AutoIncrement()).
			Add("title", ty.String().NotNull().Default("untitled")).
			Add("body", ty.String().Context(types.ContextSQLite, func(f *schema.FieldType) { f.Column("note_body") })).
			Add("score", ty.Decimal()).
			Add("draft", ty.Boolean().Virtual()).
			Add("created", ty.DateTime())
	})))
	require.NoError(t, e.Start())
	return e
}

// shelfEngine registers Shelf, which holds jars and string labels.
func shelfEngine(t *testing.T) *schema.Engine {
	t.Helper()
	e := schema.NewEngine()
	require.NoError(t, e.Register("Shelf", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().
			Add("id", ty.String().PrimaryKey()).
			Add("name", ty.String().NotNull()).
			Add("jars", ty.ArrayOf("Jar")).
			Add("labels", ty.ArrayOf("String"))
	})))
	require.NoError(t, e.Register("Jar", schema.Declare(func(_ *schema.FieldType, ty schema.Types) *schema.Fields {
		return schema.NewFields().
			Add("id", ty.String().PrimaryKey()).
			Add("contents", ty.String()).
			Add("grams", ty.Integer())
	})))
	require.NoError(t, e.Start())
	return e
}

func mustModel(t *testing.T, e *schema.Engine, name string) *schema.ModelType {
	t.Helper()
	mt, ok := e.ModelType(name)
	require.True(t, ok, "model type %s", name)
	return mt
}

// migrated attaches a connector and creates the engine's tables.
func migrated(t *testing.T, e *schema.Engine) (*Connector, *tracer) {
	t.Helper()
	c, tr := newTestConnector(t)
	_, err := c.Migrate(testContext(t), e)
	require.NoError(t, err)
	tr.reset()
	return c, tr
}
