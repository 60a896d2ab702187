package types

import "strings"

// Permission is a bitmask of access rights a principal holds on a target.
type Permission uint8

// Permission flags.
const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExecute

	PermNone Permission = 0
	PermFull            = PermRead | PermWrite | PermExecute
)

// Has reports whether every flag in want is set in p.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

func (p Permission) String() string {
	if p == PermNone {
		return "none"
	}
	var parts []string
	if p&PermRead != 0 {
		parts = append(parts, "read")
	}
	if p&PermWrite != 0 {
		parts = append(parts, "write")
	}
	if p&PermExecute != 0 {
		parts = append(parts, "execute")
	}
	return strings.Join(parts, "|")
}
