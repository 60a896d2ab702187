package schema

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Required rejects nil, empty strings and empty collections.
func Required(_ context.Context, v any) error {
	if isEmpty(v) {
		return types.ErrRequired
	}
	return nil
}

// MaxLength returns a validator that rejects strings longer than n runes.
func MaxLength(n int) ValidatorFunc {
	return func(_ context.Context, v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if l := len([]rune(s)); l > n {
			return fmt.Errorf("%w: length %d exceeds %d", types.ErrInvalidValue, l, n)
		}
		return nil
	}
}

// Pattern returns a validator that rejects strings not matching expr.
func Pattern(expr string) ValidatorFunc {
	re := regexp.MustCompile(expr)
	return func(_ context.Context, v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if !re.MatchString(s) {
			return fmt.Errorf("%w: %q does not match %s", types.ErrInvalidValue, s, expr)
		}
		return nil
	}
}

// OneOfValues returns a validator that accepts only the listed strings.
func OneOfValues(allowed ...string) ValidatorFunc {
	return func(_ context.Context, v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("%w: %q not in [%s]", types.ErrInvalidValue, s, strings.Join(allowed, ", "))
	}
}

// Range returns a validator that rejects numbers outside [min, max]. Values
// that are not numbers pass.
func Range(min, max float64) ValidatorFunc {
	return func(_ context.Context, v any) error {
		if v == nil {
			return nil
		}
		n, err := KindDecimal.Coerce(v)
		if err != nil {
			return nil
		}
		if f := n.(float64); f < min || f > max {
			return fmt.Errorf("%w: %v outside [%v, %v]", types.ErrInvalidValue, v, min, max)
		}
		return nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case string:
		return x == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
