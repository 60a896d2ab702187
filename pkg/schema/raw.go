package schema

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Relation descriptor names used in raw schemas.
const (
	RawModel   = "Model"
	RawOneOf   = "OneOf"
	RawArrayOf = "ArrayOf"
)

// RawSchema is the serializable form of an engine's model types. It omits
// the primitive types, which every engine builds on its own.
type RawSchema struct {
	Models []RawModelType `json:"models" yaml:"models"`
}

// RawModelType is the serializable form of one model type.
type RawModelType struct {
	Name   string     `json:"name" yaml:"name"`
	Parent string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	Fields []RawField `json:"fields" yaml:"fields"`
}

// RawField is the serializable form of one field. Type is a scalar kind name
// or one of RawModel, RawOneOf, RawArrayOf with Targets. The flat properties
// are those of the default context; Contexts holds per-context overrides.
type RawField struct {
	Name          string              `json:"name" yaml:"name"`
	Type          string              `json:"type" yaml:"type"`
	Targets       []string            `json:"targets,omitempty" yaml:"targets,omitempty"`
	Column        string              `json:"column,omitempty" yaml:"column,omitempty"`
	StorageType   string              `json:"storageType,omitempty" yaml:"storageType,omitempty"`
	NotNull       bool                `json:"notNull,omitempty" yaml:"notNull,omitempty"`
	PrimaryKey    bool                `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	ForeignKey    bool                `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	AutoIncrement bool                `json:"autoIncrement,omitempty" yaml:"autoIncrement,omitempty"`
	Virtual       bool                `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	Required      bool                `json:"required,omitempty" yaml:"required,omitempty"`
	Default       any                 `json:"default,omitempty" yaml:"default,omitempty"`
	Contexts      map[string]RawProps `json:"contexts,omitempty" yaml:"contexts,omitempty"`
}

// RawProps holds the properties explicitly set under one context.
type RawProps struct {
	Column        string `json:"column,omitempty" yaml:"column,omitempty"`
	StorageType   string `json:"storageType,omitempty" yaml:"storageType,omitempty"`
	NotNull       *bool  `json:"notNull,omitempty" yaml:"notNull,omitempty"`
	PrimaryKey    *bool  `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	ForeignKey    *bool  `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	AutoIncrement *bool  `json:"autoIncrement,omitempty" yaml:"autoIncrement,omitempty"`
	Virtual       *bool  `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	Required      *bool  `json:"required,omitempty" yaml:"required,omitempty"`
	Default       any    `json:"default,omitempty" yaml:"default,omitempty"`
}

func (rp RawProps) empty() bool {
	return rp.Column == "" && rp.StorageType == "" && rp.Default == nil &&
		rp.NotNull == nil && rp.PrimaryKey == nil && rp.ForeignKey == nil &&
		rp.AutoIncrement == nil && rp.Virtual == nil && rp.Required == nil
}

// RawSchema serializes every non-primitive model type in registration order.
func (e *Engine) RawSchema() RawSchema {
	var raw RawSchema
	for _, mt := range e.UserModelTypes() {
		rm := RawModelType{Name: mt.name}
		if mt.parent != nil {
			rm.Parent = mt.parent.name
		}
		for _, f := range mt.fields {
			rm.Fields = append(rm.Fields, rawField(f))
		}
		raw.Models = append(raw.Models, rm)
	}
	return raw
}

func rawField(f *FieldType) RawField {
	d := types.ContextDefault
	rf := RawField{
		Name:          f.name,
		Type:          rawTypeName(f.desc),
		Targets:       append([]string(nil), f.desc.Targets...),
		StorageType:   f.StorageTypeName(d),
		NotNull:       f.Flag(PropNotNull, d),
		PrimaryKey:    f.Flag(PropPrimaryKey, d),
		ForeignKey:    f.Flag(PropForeignKey, d),
		AutoIncrement: f.Flag(PropAutoIncrement, d),
		Virtual:       f.Flag(PropVirtual, d),
		Required:      f.Flag(PropRequired, d),
		Default:       f.DefaultValue(d),
	}
	if col, _ := f.Prop(PropField, d).(string); col != "" && col != f.name {
		rf.Column = col
	}
	for _, ctx := range types.Contexts() {
		if ctx == d || f.props[ctx].set == 0 {
			continue
		}
		s := &f.props[ctx]
		var rp RawProps
		flag := func(p Prop, v bool) *bool {
			if !s.has(p) {
				return nil
			}
			return &v
		}
		if s.has(PropField) {
			rp.Column = s.field
		}
		if s.has(PropStorageType) {
			rp.StorageType = s.storageType
		}
		if s.has(PropDefaultValue) {
			rp.Default = s.defaultValue
		}
		rp.NotNull = flag(PropNotNull, s.notNull)
		rp.PrimaryKey = flag(PropPrimaryKey, s.primaryKey)
		rp.ForeignKey = flag(PropForeignKey, s.foreignKey)
		rp.AutoIncrement = flag(PropAutoIncrement, s.autoIncrement)
		rp.Virtual = flag(PropVirtual, s.virtual)
		rp.Required = flag(PropRequired, s.required)
		if rp.empty() {
			continue
		}
		if rf.Contexts == nil {
			rf.Contexts = make(map[string]RawProps)
		}
		rf.Contexts[ctx.String()] = rp
	}
	return rf
}

func rawTypeName(d Descriptor) string {
	switch {
	case !d.IsRelation():
		return d.Kind.String()
	case d.Many:
		return RawArrayOf
	case len(d.Targets) == 1:
		return RawModel
	default:
		return RawOneOf
	}
}

// FromRawSchema builds and starts an engine from a raw schema, without the
// declaration code that produced it.
func FromRawSchema(raw RawSchema, opts ...Option) (*Engine, error) {
	e := NewEngine(opts...)
	for _, rm := range raw.Models {
		fields := rm.Fields
		decl := func(Implementation) (Implementation, error) {
			return rawImplementation(fields), nil
		}
		var ropts []RegisterOption
		if rm.Parent != "" {
			ropts = append(ropts, WithParent(rm.Parent))
		}
		if err := e.Register(rm.Name, decl, ropts...); err != nil {
			return nil, err
		}
	}
	if err := e.Start(); err != nil {
		return nil, err
	}
	return e, nil
}

func rawImplementation(fields []RawField) SchemaFunc {
	return func(_ *FieldType, t Types) *Fields {
		fs := NewFields()
		for _, rf := range fields {
			ft, err := rf.fieldType(t)
			if err != nil {
				fs.err = err
				return fs
			}
			fs.Add(rf.Name, ft)
		}
		return fs
	}
}

func (rf RawField) fieldType(t Types) (*FieldType, error) {
	var f *FieldType
	switch rf.Type {
	case RawModel:
		if len(rf.Targets) != 1 {
			return nil, fmt.Errorf("%w: %s needs exactly one target", types.ErrUnknownSchemaType, rf.Name)
		}
		f = t.Model(rf.Targets[0])
	case RawOneOf:
		f = t.OneOf(rf.Targets...)
	case RawArrayOf:
		f = t.ArrayOf(rf.Targets...)
	default:
		k, ok := ParseKind(rf.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %s has type %q", types.ErrUnknownSchemaType, rf.Name, rf.Type)
		}
		f = t.Scalar(k)
	}

	d := types.ContextDefault
	set := func(p Prop, v any, ctx types.Context) {
		if err := f.SetProp(p, v, ctx); err != nil && f.err == nil {
			f.err = err
		}
	}
	set(PropNotNull, rf.NotNull, d)
	set(PropPrimaryKey, rf.PrimaryKey, d)
	set(PropForeignKey, rf.ForeignKey, d)
	set(PropAutoIncrement, rf.AutoIncrement, d)
	set(PropVirtual, rf.Virtual, d)
	set(PropStorageType, rf.StorageType, d)
	set(PropField, rf.Column, d)
	if rf.Default != nil {
		set(PropDefaultValue, rf.Default, d)
	}
	if rf.Required {
		f.Required()
	}

	for name, rp := range rf.Contexts {
		ctx, err := types.ParseContext(name)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", rf.Name, err)
		}
		if rp.Column != "" {
			set(PropField, rp.Column, ctx)
		}
		if rp.StorageType != "" {
			set(PropStorageType, rp.StorageType, ctx)
		}
		if rp.Default != nil {
			set(PropDefaultValue, rp.Default, ctx)
		}
		for p, v := range map[Prop]*bool{
			PropNotNull:       rp.NotNull,
			PropPrimaryKey:    rp.PrimaryKey,
			PropForeignKey:    rp.ForeignKey,
			PropAutoIncrement: rp.AutoIncrement,
			PropVirtual:       rp.Virtual,
			PropRequired:      rp.Required,
		} {
			if v != nil {
				set(p, *v, ctx)
			}
		}
		if rp.Required != nil && *rp.Required {
			f.Context(ctx, func(cf *FieldType) { cf.Validate(Required) }).Context(d, nil)
		}
	}
	return f, f.err
}

// EncodeYAML renders the raw schema as YAML.
func (r RawSchema) EncodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode raw schema: %w", err)
	}
	return data, nil
}

// Fingerprint returns the hex BLAKE3 digest of the YAML encoding. Equal
// schemas produce equal fingerprints.
func (r RawSchema) Fingerprint() (string, error) {
	data, err := r.EncodeYAML()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ParseRawSchemaYAML decodes a YAML raw schema.
func ParseRawSchemaYAML(data []byte) (RawSchema, error) {
	var raw RawSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RawSchema{}, fmt.Errorf("parse yaml schema: %w", err)
	}
	return raw, nil
}

// ParseRawSchemaCUE evaluates a CUE document and decodes it as a raw
// schema. The document must be concrete.
func ParseRawSchemaCUE(data []byte) (RawSchema, error) {
	v := cuecontext.New().CompileBytes(data)
	if err := v.Err(); err != nil {
		return RawSchema{}, fmt.Errorf("compile cue schema: %w", err)
	}
	var raw RawSchema
	if err := v.Decode(&raw); err != nil {
		return RawSchema{}, fmt.Errorf("decode cue schema: %w", err)
	}
	return raw, nil
}

// LoadRawSchemaFile reads a raw schema from a .yaml, .yml or .cue file.
func LoadRawSchemaFile(path string) (RawSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawSchema{}, fmt.Errorf("read schema file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseRawSchemaCUE(data)
	case ".yaml", ".yml", ".json":
		return ParseRawSchemaYAML(data)
	}
	return RawSchema{}, fmt.Errorf("%w: unsupported schema file %s", types.ErrInvalidDeclaration, filepath.Base(path))
}
