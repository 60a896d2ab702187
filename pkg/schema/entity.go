package schema

import (
	"sort"
	"sync/atomic"
)

// Handle identifies one live instance for cycle detection. Handles are never
// reused within a process.
type Handle uint64

var handleSeq atomic.Uint64

// NextHandle returns a fresh instance handle.
func NextHandle() Handle {
	return Handle(handleSeq.Add(1))
}

// Entity is a live model instance. Handle identifies the instance (two
// entities with equal field values are still distinct), TypeName names its
// model type, and Range visits every field value.
type Entity interface {
	Handle() Handle
	TypeName() string
	Get(field string) (any, bool)
	Range(fn func(field string, value any) bool)
}

// Schematic is implemented by instances that know their model type.
type Schematic interface {
	Schema() *ModelType
}

// Record is the generic Entity: a typed bag of field values. Records are
// not safe for concurrent mutation.
type Record struct {
	handle   Handle
	typeName string
	model    *ModelType
	values   map[string]any
}

// NewRecord returns a record of the named type holding a copy of values.
func NewRecord(typeName string, values map[string]any) *Record {
	r := &Record{
		handle:   NextHandle(),
		typeName: NormalizeTypeName(typeName),
		values:   make(map[string]any, len(values)),
	}
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

// Handle returns the record's identity.
func (r *Record) Handle() Handle { return r.handle }

// TypeName returns the model type name.
func (r *Record) TypeName() string { return r.typeName }

// Schema returns the model type the record was instantiated from, or nil
// for records built with NewRecord.
func (r *Record) Schema() *ModelType { return r.model }

// Get returns a field value.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Set writes a field value and returns the record.
func (r *Record) Set(field string, v any) *Record {
	r.values[field] = v
	return r
}

// Values returns a copy of the record's field values.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Range visits field values in name order until fn returns false.
func (r *Record) Range(fn func(field string, value any) bool) {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}
