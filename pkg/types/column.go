package types

// TimestampLayout is the fixed UTC layout date-typed values are stored in.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Key values reported in Column.Key.
const (
	KeyPrimary = "pri"
	KeyNone    = ""
)

// Column is the canonical descriptor a connector reports for one live column,
// normalized from backend-specific metadata.
type Column struct {
	Field    string  `json:"field" yaml:"field"`
	Type     string  `json:"type" yaml:"type"`
	Nullable bool    `json:"nullable" yaml:"nullable"`
	Key      string  `json:"key,omitempty" yaml:"key,omitempty"`
	Max      float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Default  any     `json:"default,omitempty" yaml:"default,omitempty"`
}

// IsPrimary reports whether the column is part of the primary key.
func (c Column) IsPrimary() bool {
	return c.Key == KeyPrimary
}

// TableSchema maps column names to descriptors for one live table.
type TableSchema map[string]Column

// RawDatabaseSchema maps table names to their live column descriptors.
type RawDatabaseSchema map[string]TableSchema

// HasTable reports whether the schema contains the named table.
func (s RawDatabaseSchema) HasTable(name string) bool {
	_, ok := s[name]
	return ok
}
