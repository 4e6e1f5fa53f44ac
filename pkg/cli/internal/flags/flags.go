// Package flags holds flag value types shared by CLI commands.
package flags

import "strings"

// Repeated collects every occurrence of a flag. Each occurrence is kept
// whole, so values may contain commas.
type Repeated []string

// String joins the collected values for help output.
func (r *Repeated) String() string {
	if r == nil {
		return ""
	}
	return strings.Join(*r, ", ")
}

// Set records one occurrence.
func (r *Repeated) Set(value string) error {
	*r = append(*r, value)
	return nil
}

// Type names the flag value in help output.
func (r *Repeated) Type() string {
	return "value"
}

// Reset forgets every collected value.
func (r *Repeated) Reset() {
	*r = nil
}
