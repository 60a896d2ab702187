package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Kind tags a field descriptor as one of the scalar kinds or as a relation.
type Kind uint8

// Field kinds. The scalar kinds double as the names of the primitive model
// types every engine registers on Start.
const (
	KindInvalid Kind = iota
	KindInteger
	KindDecimal
	KindString
	KindBoolean
	KindDate
	KindTime
	KindDateTime
	KindRelation
)

var kindNames = map[Kind]string{
	KindInteger:  "Integer",
	KindDecimal:  "Decimal",
	KindString:   "String",
	KindBoolean:  "Boolean",
	KindDate:     "Date",
	KindTime:     "Time",
	KindDateTime: "DateTime",
	KindRelation: "Relation",
}

// scalarKinds lists the scalar kinds in registration order.
var scalarKinds = []Kind{
	KindInteger,
	KindDecimal,
	KindDate,
	KindTime,
	KindDateTime,
	KindString,
	KindBoolean,
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Invalid"
}

// Scalar reports whether k is one of the base scalar kinds.
func (k Kind) Scalar() bool {
	return k >= KindInteger && k <= KindDateTime
}

// Temporal reports whether values of k are time.Time.
func (k Kind) Temporal() bool {
	return k == KindDate || k == KindTime || k == KindDateTime
}

// ScalarKinds returns the scalar kinds in the order engines register them.
func ScalarKinds() []Kind {
	out := make([]Kind, len(scalarKinds))
	copy(out, scalarKinds)
	return out
}

// ParseKind maps a scalar kind name ("Integer", "String", ...) to its Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range scalarKinds {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// timeLayouts are tried in order when a temporal kind coerces a string.
var timeLayouts = []string{
	types.TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05.000000",
	"15:04:05",
}

// Coerce normalizes v to the Go representation of kind k: int64, float64,
// string, bool or time.Time. Nil passes through. Values that cannot be
// represented return an error wrapping types.ErrInvalidValue.
func (k Kind) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindInteger:
		return coerceInteger(v)
	case KindDecimal:
		return coerceDecimal(v)
	case KindString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		case fmt.Stringer:
			return s.String(), nil
		}
	case KindBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case int:
			return b != 0, nil
		case float64:
			return b != 0, nil
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed, nil
			}
		}
	case KindDate, KindTime, KindDateTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case *time.Time:
			if t == nil {
				return nil, nil
			}
			return *t, nil
		case string:
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
					return parsed, nil
				}
			}
		case []byte:
			return k.Coerce(string(t))
		}
	case KindRelation:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s cannot hold %T", types.ErrInvalidValue, k, v)
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case float32:
		if float32(int64(n)) == n {
			return int64(n), nil
		}
	case float64:
		if float64(int64(n)) == n {
			return int64(n), nil
		}
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return parsed, nil
		}
	case []byte:
		return coerceInteger(string(n))
	}
	return nil, fmt.Errorf("%w: Integer cannot hold %v (%T)", types.ErrInvalidValue, v, v)
}

func coerceDecimal(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return parsed, nil
		}
	case []byte:
		return coerceDecimal(string(n))
	}
	return nil, fmt.Errorf("%w: Decimal cannot hold %v (%T)", types.ErrInvalidValue, v, v)
}
