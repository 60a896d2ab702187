package schema

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Prop names one of the closed set of field properties.
type Prop uint8

// Field properties. Every property has a value under the default context
// once a FieldType is constructed.
const (
	PropNotNull Prop = iota
	PropPrimaryKey
	PropForeignKey
	PropAutoIncrement
	PropVirtual
	PropRequired
	PropDefaultValue
	PropField
	PropStorageType
	PropGetter
	PropSetter
	PropValidators

	numProps
)

var propNames = [numProps]string{
	PropNotNull:       "notNull",
	PropPrimaryKey:    "primaryKey",
	PropForeignKey:    "foreignKey",
	PropAutoIncrement: "autoIncrement",
	PropVirtual:       "virtual",
	PropRequired:      "required",
	PropDefaultValue:  "defaultValue",
	PropField:         "field",
	PropStorageType:   "storageType",
	PropGetter:        "getter",
	PropSetter:        "setter",
	PropValidators:    "validators",
}

func (p Prop) String() string {
	if p < numProps {
		return propNames[p]
	}
	return fmt.Sprintf("prop(%d)", uint8(p))
}

// ParseProp maps a property name to its Prop.
func ParseProp(name string) (Prop, error) {
	for i, n := range propNames {
		if n == name {
			return Prop(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown property %q", types.ErrInvalidPropertyValue, name)
}

// Transform converts a value on its way out of (getter) or into (setter) an
// instance.
type Transform func(value any) (any, error)

// ValidatorFunc checks one field value. Validators may block; they receive
// the caller's context.
type ValidatorFunc func(ctx context.Context, value any) error

func identity(v any) (any, error) { return v, nil }

// propSet holds the properties configured under one context. The set mask
// records which properties were explicitly given so that reads can fall back
// to the default context.
type propSet struct {
	set uint16

	notNull       bool
	primaryKey    bool
	foreignKey    bool
	autoIncrement bool
	virtual       bool
	required      bool
	defaultValue  any
	field         string
	storageType   string
	getter        Transform
	setter        Transform
	validators    []ValidatorFunc
}

func defaultProps() propSet {
	return propSet{
		set:    1<<numProps - 1,
		getter: identity,
		setter: identity,
	}
}

func (s *propSet) has(p Prop) bool {
	return s.set&(1<<p) != 0
}

func (s *propSet) get(p Prop) any {
	switch p {
	case PropNotNull:
		return s.notNull
	case PropPrimaryKey:
		return s.primaryKey
	case PropForeignKey:
		return s.foreignKey
	case PropAutoIncrement:
		return s.autoIncrement
	case PropVirtual:
		return s.virtual
	case PropRequired:
		return s.required
	case PropDefaultValue:
		return s.defaultValue
	case PropField:
		return s.field
	case PropStorageType:
		return s.storageType
	case PropGetter:
		return s.getter
	case PropSetter:
		return s.setter
	case PropValidators:
		return s.validators
	}
	return nil
}

func (s *propSet) put(p Prop, v any) error {
	bad := func() error {
		return fmt.Errorf("%w: %s cannot be %T", types.ErrInvalidPropertyValue, p, v)
	}
	switch p {
	case PropNotNull, PropPrimaryKey, PropForeignKey, PropAutoIncrement, PropVirtual, PropRequired:
		b, ok := v.(bool)
		if !ok {
			return bad()
		}
		switch p {
		case PropNotNull:
			s.notNull = b
		case PropPrimaryKey:
			s.primaryKey = b
		case PropForeignKey:
			s.foreignKey = b
		case PropAutoIncrement:
			s.autoIncrement = b
		case PropVirtual:
			s.virtual = b
		case PropRequired:
			s.required = b
		}
	case PropDefaultValue:
		s.defaultValue = v
	case PropField, PropStorageType:
		str, ok := v.(string)
		if !ok {
			return bad()
		}
		if p == PropField {
			s.field = str
		} else {
			s.storageType = str
		}
	case PropGetter, PropSetter:
		fn, ok := asTransform(v)
		if !ok {
			return bad()
		}
		if p == PropGetter {
			s.getter = fn
		} else {
			s.setter = fn
		}
	case PropValidators:
		list, ok := v.([]ValidatorFunc)
		if !ok {
			return bad()
		}
		s.validators = list
	default:
		return fmt.Errorf("%w: unknown property %d", types.ErrInvalidPropertyValue, p)
	}
	s.set |= 1 << p
	return nil
}

func asTransform(v any) (Transform, bool) {
	switch fn := v.(type) {
	case Transform:
		return fn, fn != nil
	case func(any) (any, error):
		return fn, fn != nil
	}
	return nil, false
}

func (s propSet) clone() propSet {
	if s.validators != nil {
		s.validators = append([]ValidatorFunc(nil), s.validators...)
	}
	return s
}
