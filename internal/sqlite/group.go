package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Group is a query group: an exclusively owned, ordered queue of statements
// that runs as one transaction when ended. It is seeded with BEGIN.
type Group struct {
	id   string
	conn *Connector

	mu     sync.Mutex
	stmts  []Statement
	closed bool
}

// ID returns the group's identifier.
func (g *Group) ID() string { return g.id }

// Queue appends st to the group.
func (g *Group) Queue(st Statement) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return types.ErrGroupClosed
	}
	g.stmts = append(g.stmts, st)
	return nil
}

// Len returns the number of queued statements, BEGIN included.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.stmts)
}

// Statements returns a copy of the queue.
func (g *Group) Statements() []Statement {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Statement(nil), g.stmts...)
}

func (g *Group) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// BeginTransaction opens a query group.
func (c *Connector) BeginTransaction(ctx context.Context) (*Group, error) {
	if _, err := c.database(); err != nil {
		return nil, err
	}
	g := &Group{
		id:    newID(),
		conn:  c,
		stmts: []Statement{Stmt("BEGIN")},
	}
	c.groupsMu.Lock()
	c.groups[g.id] = g
	c.groupsMu.Unlock()
	return g, nil
}

// EndTransaction finishes g. With a non-nil cause nothing runs and cause is
// returned. Otherwise the queue is flushed and committed; a failure during
// flush or commit rolls back. The group is discarded either way.
func (c *Connector) EndTransaction(ctx context.Context, g *Group, cause error) error {
	defer c.discard(g)

	if cause != nil {
		return cause
	}
	stmts := g.Statements()
	g.close()
	if len(stmts) <= 1 {
		return nil
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	if _, err := c.execAll(ctx, stmts); err != nil {
		c.rollback(ctx, g)
		return fmt.Errorf("flush group %s: %w", g.id, err)
	}
	if _, err := c.run(ctx, Stmt("COMMIT")); err != nil {
		c.rollback(ctx, g)
		return fmt.Errorf("commit group %s: %w", g.id, err)
	}
	return nil
}

// Transaction runs fn with a fresh group and ends it with fn's error.
func (c *Connector) Transaction(ctx context.Context, fn func(g *Group) error) error {
	g, err := c.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	return c.EndTransaction(ctx, g, fn(g))
}

func (c *Connector) rollback(ctx context.Context, g *Group) {
	if _, err := c.run(ctx, Stmt("ROLLBACK")); err != nil {
		c.log.Errorw("rollback failed", "group", g.id, "error", err)
		return
	}
	c.log.Warnw("query group rolled back", "group", g.id)
}

func (c *Connector) discard(g *Group) {
	g.close()
	c.groupsMu.Lock()
	delete(c.groups, g.id)
	c.groupsMu.Unlock()
}

// OpenGroups returns the number of groups not yet ended.
func (c *Connector) OpenGroups() int {
	c.groupsMu.Lock()
	defer c.groupsMu.Unlock()
	return len(c.groups)
}
