package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestFieldTypeContextFallback(t *testing.T) {
	var ty Types
	f := ty.String().Column("name")
	f.Context(types.ContextSQLite, func(f *FieldType) { f.Column("user_name").NotNull() })
	require.NoError(t, f.Err())

	assert.Equal(t, "name", f.ColumnName(types.ContextDefault))
	assert.Equal(t, "user_name", f.ColumnName(types.ContextSQLite))
	assert.Equal(t, "name", f.ColumnName(types.ContextMemory))

	assert.False(t, f.Flag(PropNotNull, types.ContextDefault))
	assert.True(t, f.Flag(PropNotNull, types.ContextSQLite))
	assert.False(t, f.Flag(PropNotNull, types.ContextMemory))

	assert.True(t, f.IsSet(PropField, types.ContextSQLite))
	assert.False(t, f.IsSet(PropField, types.ContextMemory))
	assert.Equal(t, types.ContextSQLite, f.ActiveContext())
}

func TestFieldTypeEveryPropertyHasDefault(t *testing.T) {
	f := Types{}.Integer()
	for p := Prop(0); p < numProps; p++ {
		assert.True(t, f.IsSet(p, types.ContextDefault), p.String())
	}
	assert.Equal(t, "", f.ColumnName(types.ContextDefault), "unnamed field")
	v, err := f.GetterFunc(types.ContextSQLite)(7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFieldTypeValidatorsPerContext(t *testing.T) {
	ok := func(context.Context, any) error { return nil }
	f := Types{}.String().Validate(ok)
	f.Context(types.ContextSQLite, func(f *FieldType) { f.Validate(ok).Validate(ok) })

	assert.Len(t, f.Validators(types.ContextDefault), 1)
	assert.Len(t, f.Validators(types.ContextSQLite), 2, "context list starts empty")
	assert.Len(t, f.Validators(types.ContextMemory), 1)
}

func TestFieldTypeSetPropErrors(t *testing.T) {
	f := Types{}.String()

	err := f.SetProp(PropNotNull, "yes", types.ContextDefault)
	assert.ErrorIs(t, err, types.ErrInvalidPropertyValue)

	err = f.SetProp(PropField, "x", types.Context(99))
	assert.ErrorIs(t, err, types.ErrUnknownContext)

	f.Validate(nil)
	assert.ErrorIs(t, f.Err(), types.ErrInvalidPropertyValue)

	_, err = ParseProp("colour")
	assert.ErrorIs(t, err, types.ErrInvalidPropertyValue)
	p, err := ParseProp("autoIncrement")
	require.NoError(t, err)
	assert.Equal(t, PropAutoIncrement, p)
}

func TestFieldTypeReadOnlyAfterLock(t *testing.T) {
	mt := newModelType(nil, "Thing")
	f := Types{}.String()
	require.NoError(t, mt.AddField("name", f))
	mt.Lock()

	err := f.SetProp(PropNotNull, true, types.ContextDefault)
	assert.ErrorIs(t, err, types.ErrReadOnlyProperty)

	f.Context(types.ContextSQLite, func(f *FieldType) { f.Column("other") })
	assert.ErrorIs(t, f.Err(), types.ErrReadOnlyProperty)
	assert.Equal(t, "name", f.ColumnName(types.ContextSQLite))

	assert.ErrorIs(t, mt.AddField("extra", Types{}.Integer()), types.ErrModelTypeLocked)
}

func TestDescriptorTypeName(t *testing.T) {
	var ty Types
	tests := []struct {
		name string
		f    *FieldType
		want string
	}{
		{"scalar", ty.DateTime(), "DateTime"},
		{"single", ty.Model("user"), "User"},
		{"union", ty.OneOf("User", "Group"), "OneOf(User|Group)"},
		{"many", ty.ArrayOf("Tag"), "ArrayOf(Tag)"},
		{"named scalar", ty.Named("boolean"), "Boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.TypeName())
		})
	}

	assert.ErrorIs(t, ty.OneOf().Err(), types.ErrUnknownSchemaType)
	assert.ErrorIs(t, ty.Scalar(KindRelation).Err(), types.ErrUnknownSchemaType)
}

func TestKindCoerce(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		in      any
		want    any
		wantErr bool
	}{
		{"int widens", KindInteger, int32(4), int64(4), false},
		{"integral float", KindInteger, 3.0, int64(3), false},
		{"fraction rejected", KindInteger, 3.5, nil, true},
		{"numeric string", KindInteger, "12", int64(12), false},
		{"decimal from int", KindDecimal, 2, 2.0, false},
		{"bool from int", KindBoolean, int64(0), false, false},
		{"string from bytes", KindString, []byte("hi"), "hi", false},
		{"string rejects int", KindString, 5, nil, true},
		{"nil passes", KindDate, nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.kind.Coerce(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
