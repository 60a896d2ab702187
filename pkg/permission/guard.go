package permission

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Guard gates a schema engine's Save and Load on one principal's
// permissions.
type Guard struct {
	perms     *Engine
	engine    *schema.Engine
	conn      schema.Connector
	principal Principal
}

// NewGuard returns a guard that saves and loads through engine and conn on
// behalf of principal.
func NewGuard(perms *Engine, engine *schema.Engine, conn schema.Connector, principal Principal) *Guard {
	return &Guard{perms: perms, engine: engine, conn: conn, principal: principal}
}

// Principal returns the principal the guard acts for.
func (g *Guard) Principal() Principal { return g.principal }

// Save stores v when the principal holds write permission on it.
func (g *Guard) Save(ctx context.Context, v any, opts schema.IntrospectOptions) error {
	if level := g.perms.Level(g.principal, v); !level.Has(types.PermWrite) {
		g.perms.log.Debugw("save denied", "level", level.String())
		return fmt.Errorf("save: %w", types.ErrPermissionDenied)
	}
	return g.engine.Save(ctx, g.conn, v, opts)
}

// Load returns the entities matching q that the principal may read. When
// rows match but none is readable it returns ErrPermissionDenied.
func (g *Guard) Load(ctx context.Context, q schema.Query) ([]schema.Entity, error) {
	all, err := g.engine.Load(ctx, g.conn, q)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Entity, 0, len(all))
	for _, ent := range all {
		if g.perms.Level(g.principal, ent).Has(types.PermRead) {
			out = append(out, ent)
		}
	}
	if len(all) > 0 && len(out) == 0 {
		g.perms.log.Debugw("load denied", "type", q.Model, "rows", len(all))
		return nil, fmt.Errorf("load %s: %w", q.Model, types.ErrPermissionDenied)
	}
	return out, nil
}
