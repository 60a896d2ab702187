package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// historyTable records every schema snapshot the connector migrated to.
const historyTable = "_larder_schema"

const createHistory = `CREATE TABLE IF NOT EXISTS _larder_schema (
    id TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    raw TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

// Snapshot is one recorded schema.
type Snapshot struct {
	ID          string
	Fingerprint string
	Raw         schema.RawSchema
	CreatedAt   time.Time
}

// RecordSchema stores the engine's raw schema as the newest snapshot and
// returns its fingerprint. Nothing is written when the newest snapshot
// already has the same fingerprint.
func (c *Connector) RecordSchema(ctx context.Context, e *schema.Engine) (string, error) {
	raw := e.RawSchema()
	data, err := raw.EncodeYAML()
	if err != nil {
		return "", err
	}
	fp, err := raw.Fingerprint()
	if err != nil {
		return "", err
	}

	last, err := c.LastSnapshot(ctx)
	switch {
	case err == nil && last.Fingerprint == fp:
		return fp, nil
	case err != nil && !errors.Is(err, types.ErrNoSchemaRecorded):
		return "", err
	}

	_, err = c.Exec(ctx, Stmt(
		"INSERT INTO "+historyTable+" (id, fingerprint, raw, created_at) VALUES (?, ?, ?, ?)",
		newID(), fp, string(data), time.Now().UTC().Format(types.TimestampLayout),
	))
	if err != nil {
		return "", fmt.Errorf("record schema: %w", err)
	}
	c.log.Infow("schema snapshot recorded", "fingerprint", fp)
	return fp, nil
}

// LastSnapshot returns the newest recorded snapshot, or ErrNoSchemaRecorded.
func (c *Connector) LastSnapshot(ctx context.Context) (*Snapshot, error) {
	res, err := c.run(ctx, Stmt(
		"SELECT id, fingerprint, raw, created_at FROM " + historyTable + " ORDER BY rowid DESC LIMIT 1",
	))
	if err != nil {
		return nil, fmt.Errorf("read schema history: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, types.ErrNoSchemaRecorded
	}
	row := res.Rows[0]
	raw, err := schema.ParseRawSchemaYAML([]byte(asString(row["raw"])))
	if err != nil {
		return nil, err
	}
	created, _ := time.Parse(types.TimestampLayout, asString(row["created_at"]))
	return &Snapshot{
		ID:          asString(row["id"]),
		Fingerprint: asString(row["fingerprint"]),
		Raw:         raw,
		CreatedAt:   created,
	}, nil
}

// Drift compares e against the newest recorded snapshot and reports every
// difference to r. It returns true when the schemas match.
func (c *Connector) Drift(ctx context.Context, e *schema.Engine, r schema.Reporter) (bool, error) {
	last, err := c.LastSnapshot(ctx)
	if err != nil {
		return false, err
	}
	recorded, err := schema.FromRawSchema(last.Raw)
	if err != nil {
		return false, fmt.Errorf("rebuild recorded schema: %w", err)
	}
	return e.Compare(recorded, r), nil
}
