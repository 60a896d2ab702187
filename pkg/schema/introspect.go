package schema

import (
	"fmt"
	"regexp"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// IntrospectOptions steers model type resolution. Model or ModelType fix the
// answer outright. Candidates limits guessing to the named types.
type IntrospectOptions struct {
	Model      *ModelType
	ModelType  string
	Candidates []string
}

var compositeID = regexp.MustCompile(`^(\w+):`)

// Introspect resolves the model type of v. In order it tries the explicit
// options, the instance's own type (Schematic or Entity), a composite
// identifier "code:id", and finally guessing: each candidate scores +1 for
// every declared field present on v and -10 for every one absent; owner
// linkage fields do not count. The highest score wins and ties go to the
// type registered first. Primitive types never take part in guessing, except
// that a scalar v among candidates resolves to the first primitive candidate
// whose kind accepts it.
func (e *Engine) Introspect(v any, opts IntrospectOptions) (*ModelType, error) {
	if opts.Model != nil {
		return opts.Model, nil
	}
	if opts.ModelType != "" {
		mt, ok := e.ModelType(opts.ModelType)
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownModelType, opts.ModelType)
		}
		return mt, nil
	}

	switch x := v.(type) {
	case Schematic:
		if mt := x.Schema(); mt != nil {
			return mt, nil
		}
	}
	if ent, ok := v.(Entity); ok {
		if mt, ok := e.ModelType(ent.TypeName()); ok {
			return mt, nil
		}
	}
	if mt, ok := e.fromComposite(v); ok {
		return mt, nil
	}

	candidates := e.candidates(opts.Candidates)
	keys, plain := fieldKeys(v)
	if !plain {
		for _, mt := range candidates {
			if mt.IsPrimitive() {
				if _, err := mt.primitive.Coerce(v); err == nil {
					return mt, nil
				}
			}
		}
		return nil, fmt.Errorf("%w: cannot infer the type of %T", types.ErrUnknownModelType, v)
	}

	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	var best *ModelType
	bestScore := 0
	for _, mt := range candidates {
		if mt.IsPrimitive() {
			continue
		}
		score := 0
		for _, f := range mt.fields {
			if IsOwnerField(f.name) {
				continue
			}
			if present[f.name] {
				score++
			} else {
				score -= 10
			}
		}
		if best == nil || score > bestScore {
			best, bestScore = mt, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no candidate type", types.ErrUnknownModelType)
	}
	return best, nil
}

func (e *Engine) fromComposite(v any) (*ModelType, bool) {
	var id string
	switch x := v.(type) {
	case string:
		id = x
	case map[string]any:
		if name, ok := x["modelType"].(string); ok {
			if mt, ok := e.ModelType(name); ok {
				return mt, true
			}
		}
		id, _ = x["id"].(string)
	case Entity:
		raw, _ := x.Get("id")
		id, _ = raw.(string)
	}
	m := compositeID.FindStringSubmatch(id)
	if m == nil {
		return nil, false
	}
	return e.ModelType(e.opts.typeCode(m[1]))
}

func (e *Engine) candidates(names []string) []*ModelType {
	if len(names) == 0 {
		return e.UserModelTypes()
	}
	// Registration order decides ties, so walk the registry, not names.
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[NormalizeTypeName(n)] = true
	}
	var out []*ModelType
	for _, mt := range e.ModelTypes() {
		if want[mt.name] {
			out = append(out, mt)
		}
	}
	return out
}

// fieldKeys returns the field names present on a map or entity value.
func fieldKeys(v any) ([]string, bool) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		return keys, true
	case Entity:
		var keys []string
		x.Range(func(k string, _ any) bool {
			keys = append(keys, k)
			return true
		})
		return keys, true
	}
	return nil, false
}
