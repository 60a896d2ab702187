package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// ValidateOptions configures Validate. Context selects the validators and
// flags in effect.
type ValidateOptions struct {
	Context types.Context

	depth int
}

// FieldError is the failure of one field.
type FieldError struct {
	Model string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Model, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ValidationError collects every field failure of one Validate call. It
// matches types.ErrValidation and each underlying cause with errors.Is.
type ValidationError struct {
	Model string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %v", e.Model, e.Err)
}

// Unwrap exposes ErrValidation and every collected failure.
func (e *ValidationError) Unwrap() []error {
	return append([]error{types.ErrValidation}, multierr.Errors(e.Err)...)
}

// Fields maps each failing field name to its error.
func (e *ValidationError) Fields() map[string]error {
	out := make(map[string]error)
	for _, err := range multierr.Errors(e.Err) {
		var fe *FieldError
		if errors.As(err, &fe) {
			out[fe.Field] = fe.Err
		}
	}
	return out
}

// Validate checks v against m. Every validator of every field runs
// concurrently and all of them finish before Validate returns; failures
// are combined into one *ValidationError. Relation fields are validated
// against their target types. Cyclic value graphs are rejected up front.
func (m *ModelType) Validate(ctx context.Context, v any, opts ValidateOptions) error {
	if err := CheckCycles(v); err != nil {
		return fmt.Errorf("validate %s: %w", m.name, err)
	}
	return m.validate(ctx, v, opts)
}

func (m *ModelType) validate(ctx context.Context, v any, opts ValidateOptions) error {
	if opts.depth > MaxDepth {
		return fmt.Errorf("validate %s: %w", m.name, types.ErrGraphTooDeep)
	}
	if vd, ok := m.impl.(Validator); ok {
		return vd.Validate(ctx, m, v, opts)
	}

	errs := make([]error, len(m.fields))
	var wg sync.WaitGroup
	for i, f := range m.fields {
		wg.Add(1)
		go func(i int, f *FieldType) {
			defer wg.Done()
			raw, _ := m.valueOf(v, f.name)
			if err := m.validateField(ctx, f, raw, opts); err != nil {
				errs[i] = &FieldError{Model: m.name, Field: f.name, Err: err}
			}
		}(i, f)
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return &ValidationError{Model: m.name, Err: err}
	}
	return nil
}

func (m *ModelType) validateField(ctx context.Context, f *FieldType, v any, opts ValidateOptions) error {
	cctx := opts.Context
	validators := f.Validators(cctx)
	results := make([]error, len(validators)+1)

	var wg sync.WaitGroup
	for i, fn := range validators {
		wg.Add(1)
		go func(i int, fn ValidatorFunc) {
			defer wg.Done()
			results[i] = fn(ctx, v)
		}(i, fn)
	}

	if f.IsRelation() {
		results[len(validators)] = m.validateRelation(ctx, f, v, opts)
	} else {
		results[len(validators)] = checkScalar(f, v, cctx)
	}
	wg.Wait()
	return multierr.Combine(results...)
}

// checkScalar applies the field's own constraints: the value must fit the
// kind, and a not-null field without a default or generated value must be
// set.
func checkScalar(f *FieldType, v any, ctx types.Context) error {
	if v == nil {
		if f.Flag(PropNotNull, ctx) && f.DefaultValue(ctx) == nil && !f.Flag(PropAutoIncrement, ctx) {
			return types.ErrNullValue
		}
		return nil
	}
	_, err := f.Kind().Coerce(v)
	return err
}

func (m *ModelType) validateRelation(ctx context.Context, f *FieldType, v any, opts ValidateOptions) error {
	elems, err := relationElements(f, v)
	if err != nil {
		return err
	}
	child := opts
	child.depth++
	var errs []error
	for _, elem := range elems {
		target, err := m.engine.relationTarget(f, elem)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if target.IsPrimitive() {
			if _, err := target.primitive.Coerce(elem); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := target.validate(ctx, elem, child); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}
