package types

import "fmt"

// Context names a configuration variant under which a field's properties may
// differ from the default. The set is closed: every context a field can be
// configured under is listed here.
type Context uint8

// Known contexts. ContextDefault ("*") is the fallback for every read.
const (
	ContextDefault Context = iota
	ContextSQLite
	ContextMemory

	// NumContexts is the number of known contexts.
	NumContexts = int(ContextMemory) + 1
)

var contextNames = [NumContexts]string{
	ContextDefault: "*",
	ContextSQLite:  "sqlite",
	ContextMemory:  "memory",
}

// String returns the context's configuration name.
func (c Context) String() string {
	if int(c) < NumContexts {
		return contextNames[c]
	}
	return fmt.Sprintf("context(%d)", uint8(c))
}

// Valid reports whether c is one of the known contexts.
func (c Context) Valid() bool {
	return int(c) < NumContexts
}

// ParseContext maps a configuration name to its Context. An empty name
// selects ContextDefault. Returns ErrUnknownContext for any other name.
func ParseContext(name string) (Context, error) {
	if name == "" {
		return ContextDefault, nil
	}
	for i, n := range contextNames {
		if n == name {
			return Context(i), nil
		}
	}
	return ContextDefault, fmt.Errorf("%w: %q", ErrUnknownContext, name)
}

// Contexts lists every known context in declaration order.
func Contexts() []Context {
	out := make([]Context, NumContexts)
	for i := range out {
		out[i] = Context(i)
	}
	return out
}
