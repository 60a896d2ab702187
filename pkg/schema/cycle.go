package schema

import (
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// MaxDepth bounds how deeply Decompose, Validate and the cycle check descend
// into a value graph.
const MaxDepth = 64

// cycleWalker finds instances reachable from themselves. Only entities are
// tracked by identity; plain maps and slices are traversed, and a plain
// container that contains itself is not reported.
type cycleWalker struct {
	entities map[Handle]bool
	plain    map[uintptr]bool
}

// CheckCycles returns an error wrapping ErrCyclicGraph when an entity in v is
// reachable from itself, and ErrGraphTooDeep when v nests beyond MaxDepth.
func CheckCycles(v any) error {
	w := cycleWalker{entities: make(map[Handle]bool), plain: make(map[uintptr]bool)}
	return w.walk(v, 0)
}

func (w *cycleWalker) walk(v any, depth int) error {
	if v == nil {
		return nil
	}
	if depth > MaxDepth {
		return types.ErrGraphTooDeep
	}
	if e, ok := v.(Entity); ok {
		h := e.Handle()
		if w.entities[h] {
			return fmt.Errorf("%w: %s instance refers back to itself", types.ErrCyclicGraph, e.TypeName())
		}
		w.entities[h] = true
		var err error
		e.Range(func(_ string, child any) bool {
			err = w.walk(child, depth+1)
			return err == nil
		})
		delete(w.entities, h)
		return err
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.Len() == 0 {
			return nil
		}
		p := rv.Pointer()
		if w.plain[p] {
			return nil
		}
		w.plain[p] = true
		defer delete(w.plain, p)
		if rv.Kind() == reflect.Map {
			iter := rv.MapRange()
			for iter.Next() {
				if err := w.walk(iter.Value().Interface(), depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := w.walk(rv.Index(i).Interface(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := w.walk(rv.Index(i).Interface(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Pointer:
		if !rv.IsNil() && rv.Elem().Kind() != reflect.Struct {
			return w.walk(rv.Elem().Interface(), depth+1)
		}
	}
	return nil
}
