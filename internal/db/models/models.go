// Package models defines the persisted entities of the job history store.
package models

// DefaultListLimit is the number of rows returned when no limit is given
const DefaultListLimit = 20

// MaxListLimit bounds a single list query
const MaxListLimit = 500

// ListOptions provides pagination options for list operations
type ListOptions struct {
	Limit  int
	Offset int
}

// WithDefaults clamps the options into a usable range.
func (o *ListOptions) WithDefaults() *ListOptions {
	out := ListOptions{}
	if o != nil {
		out = *o
	}
	if out.Limit <= 0 {
		out.Limit = DefaultListLimit
	}
	if out.Limit > MaxListLimit {
		out.Limit = MaxListLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return &out
}
