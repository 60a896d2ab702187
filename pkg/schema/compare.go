package schema

import "fmt"

// DiffKind classifies one schema difference.
type DiffKind uint8

// Difference kinds, seen from the local side.
const (
	DiffMissing   DiffKind = iota // present locally only
	DiffExtra                     // present remotely only
	DiffDifferent                 // present on both sides but not equivalent
)

func (k DiffKind) String() string {
	switch k {
	case DiffMissing:
		return "missing"
	case DiffExtra:
		return "extra"
	default:
		return "different"
	}
}

// DiffScope says whether a difference concerns a whole model type or one of
// its fields.
type DiffScope uint8

// Difference scopes.
const (
	ScopeModel DiffScope = iota
	ScopeField
)

// Difference is one entry a comparison reports. Local and Remote hold the
// *ModelType or *FieldType on each side; the absent side is nil.
type Difference struct {
	Kind   DiffKind
	Scope  DiffScope
	Model  string
	Field  string
	Local  any
	Remote any
}

func (d Difference) String() string {
	if d.Scope == ScopeField {
		return fmt.Sprintf("%s field %s.%s", d.Kind, d.Model, d.Field)
	}
	return fmt.Sprintf("%s model %s", d.Kind, d.Model)
}

// Verdict is a reporter's answer to a difference.
type Verdict uint8

// Verdicts. Report counts the difference, Ignore discards it, Abort counts
// it and stops the comparison.
const (
	Report Verdict = iota
	Ignore
	Abort
)

// Reporter receives each difference found by a comparison.
type Reporter func(d Difference) Verdict

// Collect returns a reporter that appends every difference to out.
func Collect(out *[]Difference) Reporter {
	return func(d Difference) Verdict {
		*out = append(*out, d)
		return Report
	}
}

type comparison struct {
	report  Reporter
	counted int
	aborted bool
}

func (c *comparison) add(d Difference) {
	if c.aborted {
		return
	}
	v := Report
	if c.report != nil {
		v = c.report(d)
	}
	switch v {
	case Ignore:
	case Abort:
		c.counted++
		c.aborted = true
	default:
		c.counted++
	}
}

// CompareTo walks the union of field names of m and other and reports fields
// missing on either side or not equivalent. It returns true when no
// difference was counted.
func (m *ModelType) CompareTo(other *ModelType, r Reporter) bool {
	c := &comparison{report: r}
	m.compareFields(other, c)
	return c.counted == 0
}

func (m *ModelType) compareFields(other *ModelType, c *comparison) {
	for _, name := range unionNames(m.FieldNames(), other.FieldNames()) {
		if c.aborted {
			return
		}
		local, lok := m.Field(name)
		remote, rok := other.Field(name)
		d := Difference{Scope: ScopeField, Model: m.name, Field: name}
		switch {
		case !lok:
			d.Kind, d.Remote = DiffExtra, remote
		case !rok:
			d.Kind, d.Local = DiffMissing, local
		case !local.Equivalent(remote):
			d.Kind, d.Local, d.Remote = DiffDifferent, local, remote
		default:
			continue
		}
		c.add(d)
	}
}

// Compare walks the union of model type names of e and other. Types present
// on one side only are reported at model scope; types present on both are
// compared field by field, and a type with field differences is reported as
// different too. It returns true when no difference was counted.
func (e *Engine) Compare(other *Engine, r Reporter) bool {
	c := &comparison{report: r}
	for _, name := range unionNames(e.TypeNames(), other.TypeNames()) {
		if c.aborted {
			break
		}
		local, lok := e.ModelType(name)
		remote, rok := other.ModelType(name)
		d := Difference{Scope: ScopeModel, Model: name}
		switch {
		case !lok:
			d.Kind, d.Remote = DiffExtra, remote
		case !rok:
			d.Kind, d.Local = DiffMissing, local
		default:
			before := c.counted
			local.compareFields(remote, c)
			if c.counted == before {
				continue
			}
			d.Kind, d.Local, d.Remote = DiffDifferent, local, remote
		}
		c.add(d)
	}
	return c.counted == 0
}

// unionNames returns a's names in order followed by b's names not in a.
func unionNames(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, n := range a {
		seen[n] = true
		out = append(out, n)
	}
	for _, n := range b {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out
}
