package schema

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/pkg/types"
)

type options struct {
	logger   *zap.SugaredLogger
	typeCode func(code string) string
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger the engine reports startup and save activity
// to. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTypeCodes sets the function that maps the code prefix of a composite
// identifier ("code:id") to a type name. The default uses the code itself.
func WithTypeCodes(fn func(code string) string) Option {
	return func(o *options) {
		if fn != nil {
			o.typeCode = fn
		}
	}
}

type entry struct {
	name      string
	parent    string
	decl      Declaration
	primitive Kind
	impl      Implementation
	model     *ModelType
}

// RegisterOption configures one registration.
type RegisterOption func(*entry)

// WithParent makes the registered type inherit the named type's fields and
// implementation. The parent must be registered first.
func WithParent(name string) RegisterOption {
	return func(en *entry) { en.parent = NormalizeTypeName(name) }
}

// Engine is the registry of model types. Registration and Start happen on a
// single goroutine; after Start the registry is read-only and its methods
// are safe for concurrent use.
type Engine struct {
	opts    options
	entries []*entry
	byName  map[string]*entry
	targets map[string]bool
	started bool
}

// NewEngine returns an empty, unstarted engine.
func NewEngine(opts ...Option) *Engine {
	o := options{
		logger:   zap.NewNop().Sugar(),
		typeCode: func(code string) string { return code },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{opts: o, byName: make(map[string]*entry)}
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *zap.SugaredLogger { return e.opts.logger }

// Started reports whether Start completed.
func (e *Engine) Started() bool { return e.started }

// Register adds a declaration under name. Names are normalized with
// NormalizeTypeName and must be unique; the scalar kind names are reserved.
func (e *Engine) Register(name string, decl Declaration, opts ...RegisterOption) error {
	if e.started {
		return types.ErrEngineStarted
	}
	name = NormalizeTypeName(name)
	if name == "" || decl == nil {
		return fmt.Errorf("%w: %q needs a name and a declaration", types.ErrInvalidDeclaration, name)
	}
	if _, reserved := ParseKind(name); reserved {
		return fmt.Errorf("%w: %s is a built-in type", types.ErrDuplicateModelType, name)
	}
	if _, ok := e.byName[name]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateModelType, name)
	}
	en := &entry{name: name, decl: decl}
	for _, opt := range opts {
		opt(en)
	}
	e.entries = append(e.entries, en)
	e.byName[name] = en
	return nil
}

// Start builds the registry in three phases: the primitive model types, then
// every registered declaration in registration order, then owner linkage
// injection into relation targets. Every model type is locked afterwards.
// On error the engine is left unstarted and no partial model is kept.
func (e *Engine) Start() error {
	if e.started {
		return types.ErrEngineStarted
	}
	if err := e.start(); err != nil {
		e.reset()
		e.opts.logger.Errorw("schema engine failed to start", "error", err)
		return err
	}
	e.started = true
	e.opts.logger.Debugw("schema engine started", "types", len(e.entries), "targets", len(e.targets))
	return nil
}

func (e *Engine) start() error {
	prims := make([]*entry, 0, len(scalarKinds))
	for _, k := range scalarKinds {
		en := &entry{name: k.String(), decl: primitiveDeclaration(k), primitive: k}
		prims = append(prims, en)
		e.byName[en.name] = en
	}
	e.entries = append(prims, e.entries...)

	for _, en := range e.entries {
		if _, err := e.build(en); err != nil {
			return err
		}
	}

	e.targets = make(map[string]bool)
	var t Types
	for _, en := range e.entries {
		if en.model.IsPrimitive() {
			continue
		}
		for _, f := range en.model.fields {
			if !f.IsRelation() {
				continue
			}
			for _, target := range f.desc.Targets {
				te, ok := e.byName[target]
				if !ok {
					return fmt.Errorf("%w: %s.%s refers to %s", types.ErrUnknownSchemaType, en.name, f.name, target)
				}
				e.targets[target] = true
				for i, name := range ownerFieldNames {
					if te.model.HasField(name) {
						continue
					}
					if err := te.model.AddField(name, ownerFields(t)[i]); err != nil {
						return err
					}
				}
			}
		}
	}

	for _, en := range e.entries {
		en.model.Lock()
	}
	return nil
}

// build returns the entry's model type, building it on first use.
func (e *Engine) build(en *entry) (*ModelType, error) {
	if en.model != nil {
		return en.model, nil
	}
	var parentImpl Implementation = Base{}
	var parent *ModelType
	if en.parent != "" {
		pe, ok := e.byName[en.parent]
		if !ok {
			return nil, fmt.Errorf("%w: %s extends %s", types.ErrUnknownParentType, en.name, en.parent)
		}
		if pe.model == nil {
			return nil, fmt.Errorf("%w: %s extends %s", types.ErrParentNotReady, en.name, en.parent)
		}
		parentImpl, parent = pe.impl, pe.model
	}

	impl, err := en.decl(parentImpl)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", en.name, err)
	}
	if impl == nil {
		return nil, fmt.Errorf("%w: %s returned no implementation", types.ErrInvalidDeclaration, en.name)
	}

	mt := newModelType(e, en.name)
	mt.parent, mt.impl, mt.primitive = parent, impl, en.primitive
	if parent != nil {
		for _, pf := range parent.fields {
			if err := mt.AddField(pf.name, pf.clone()); err != nil {
				return nil, err
			}
		}
	}

	var t Types
	fields := impl.Schema(t.Model(en.name), t)
	if fields == nil {
		return nil, fmt.Errorf("%w: %s has no schema", types.ErrInvalidDeclaration, en.name)
	}
	if fields.err != nil {
		return nil, fmt.Errorf("%s: %w", en.name, fields.err)
	}
	for _, name := range fields.names {
		if err := mt.AddField(name, fields.byName[name]); err != nil {
			return nil, err
		}
	}
	en.impl, en.model = impl, mt
	return mt, nil
}

func (e *Engine) reset() {
	kept := e.entries[:0]
	for _, en := range e.entries {
		if en.primitive != KindInvalid {
			delete(e.byName, en.name)
			continue
		}
		en.impl, en.model = nil, nil
		kept = append(kept, en)
	}
	e.entries = kept
	e.targets = nil
}

// ModelType returns the built model type registered under name.
func (e *Engine) ModelType(name string) (*ModelType, bool) {
	en, ok := e.byName[NormalizeTypeName(name)]
	if !ok || en.model == nil {
		return nil, false
	}
	return en.model, true
}

// TypeNames returns every built type name in registration order, primitive
// types first.
func (e *Engine) TypeNames() []string {
	out := make([]string, 0, len(e.entries))
	for _, en := range e.entries {
		if en.model != nil {
			out = append(out, en.name)
		}
	}
	return out
}

// ModelTypes returns every built model type in registration order.
func (e *Engine) ModelTypes() []*ModelType {
	out := make([]*ModelType, 0, len(e.entries))
	for _, en := range e.entries {
		if en.model != nil {
			out = append(out, en.model)
		}
	}
	return out
}

// UserModelTypes returns the non-primitive model types in registration
// order.
func (e *Engine) UserModelTypes() []*ModelType {
	var out []*ModelType
	for _, mt := range e.ModelTypes() {
		if !mt.IsPrimitive() {
			out = append(out, mt)
		}
	}
	return out
}

// IsRelationTarget reports whether some relation field refers to name.
func (e *Engine) IsRelationTarget(name string) bool {
	return e.targets[NormalizeTypeName(name)]
}

// StorableModelTypes returns the model types that need a table: every
// non-primitive type, and primitive types that are relation targets.
func (e *Engine) StorableModelTypes() []*ModelType {
	var out []*ModelType
	for _, mt := range e.ModelTypes() {
		if !mt.IsPrimitive() || e.targets[mt.name] {
			out = append(out, mt)
		}
	}
	return out
}

// Create instantiates the named model type.
func (e *Engine) Create(typeName string, args ...any) (Entity, error) {
	if !e.started {
		return nil, types.ErrEngineNotStarted
	}
	mt, ok := e.ModelType(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownModelType, typeName)
	}
	return mt.Instantiate(args...)
}

func (e *Engine) String() string {
	return "schema.Engine(" + strings.Join(e.TypeNames(), ", ") + ")"
}
