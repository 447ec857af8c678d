package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
)

// Row holds the final attribute values of one result row in declaration order.
// It is writable while the pipeline and row processors run and read-only after.
type Row struct {
	names  []string
	index  map[string]int
	values []any
	sealed bool
}

// NewRow creates an empty row with one slot per attribute name.
func NewRow(names []string) *Row {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &Row{
		names:  names,
		index:  index,
		values: make([]any, len(names)),
	}
}

// Get returns the value of an attribute and whether the attribute exists.
func (r *Row) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Value returns the value of an attribute, or nil.
func (r *Row) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Set stores the value of an attribute.
func (r *Row) Set(name string, value any) error {
	if r.sealed {
		return apperrors.ErrRowSealed
	}
	i, ok := r.index[name]
	if !ok {
		return fmt.Errorf("unknown attribute %q", name)
	}
	r.values[i] = value
	return nil
}

// Seal makes the row read-only.
func (r *Row) Seal() {
	r.sealed = true
}

// Sealed reports whether the row is read-only.
func (r *Row) Sealed() bool {
	return r.sealed
}

// Names returns the attribute names in declaration order.
func (r *Row) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of attributes.
func (r *Row) Len() int {
	return len(r.names)
}

// Map returns a copy of the row as a map.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the row as an object with keys in declaration order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attribute %q: %w", n, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
