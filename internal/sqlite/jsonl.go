package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/larder/pkg/schema"
)

// readJSONL reads a JSONL file and returns each non-empty, parseable line.
// Malformed lines are skipped. A missing file yields no records.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL writes records to path through a synced temp file and a rename,
// so readers never see a partial file.
func writeJSONL(path string, records []json.RawMessage) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// jsonlPath returns the export file of one model type's table.
func jsonlPath(dir string, mt *schema.ModelType) string {
	return filepath.Join(dir, TableName(mt)+".jsonl")
}

// Export writes every stored row of each table-backed model type to
// <dir>/<Table>.jsonl, one JSON object per row keyed by column name. It
// returns the number of rows written per table.
func (c *Connector) Export(ctx context.Context, e *schema.Engine, dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	counts := make(map[string]int)
	for _, mt := range e.StorableModelTypes() {
		rows, err := c.Query(ctx, e, schema.Query{Model: mt.Name()})
		if err != nil {
			return counts, err
		}
		records := make([]json.RawMessage, 0, len(rows))
		for _, row := range rows {
			b, err := json.Marshal(row.Values)
			if err != nil {
				return counts, fmt.Errorf("export %s: %w", mt.Name(), err)
			}
			records = append(records, b)
		}
		if err := writeJSONL(jsonlPath(dir, mt), records); err != nil {
			return counts, fmt.Errorf("export %s: %w", mt.Name(), err)
		}
		counts[TableName(mt)] = len(records)
	}
	c.log.Infow("export complete", "dir", dir, "tables", len(counts))
	return counts, nil
}

// Import loads <dir>/<Table>.jsonl files written by Export in one query
// group. Rows go through the normal write path, so existing keys are
// updated. Keys that are not columns of the model are ignored; missing
// files and malformed lines are skipped.
func (c *Connector) Import(ctx context.Context, e *schema.Engine, dir string) (map[string]int, error) {
	counts := make(map[string]int)
	written := make(map[string]bool)
	cctx := c.Context()
	err := c.Transaction(ctx, func(g *Group) error {
		for _, mt := range e.StorableModelTypes() {
			records, err := readJSONL(jsonlPath(dir, mt))
			if err != nil {
				return err
			}
			for _, rec := range records {
				var obj map[string]any
				if err := json.Unmarshal(rec, &obj); err != nil {
					continue
				}
				values := make(map[string]any, len(obj))
				for _, f := range mt.Select(schema.Columns(cctx)) {
					col := f.ColumnName(cctx)
					if v, ok := obj[col]; ok {
						values[col] = v
					}
				}
				if err := c.writeRow(ctx, schema.Row{Model: mt, Values: values}, written, InGroup(g)); err != nil {
					return fmt.Errorf("import %s: %w", mt.Name(), err)
				}
				counts[TableName(mt)]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Infow("import complete", "dir", dir, "tables", len(counts))
	return counts, nil
}
