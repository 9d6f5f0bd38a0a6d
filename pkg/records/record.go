// Package records defines the open-schema record type used throughout corral
// and the canonical schema that reconciled records are projected onto.
//
// A Record is an ordered field bag: fields beyond the canonical schema are
// preserved in first-seen order and never silently dropped. Records carry no
// surrogate key; identity is established by content (name, URL) during
// linkage.
package records

import "strings"

// Record is an ordered mapping of field name to string value.
// The zero value is not usable; construct with New or FromMap.
type Record struct {
	order  []string
	values map[string]string
}

// New returns an empty Record.
func New() *Record {
	return &Record{values: make(map[string]string)}
}

// FromMap builds a Record from a map using the given field order.
// Fields present in the map but absent from order are appended after it,
// in no particular order guarantee beyond per-build stability.
func FromMap(values map[string]string, order []string) *Record {
	r := New()
	for _, f := range order {
		if v, ok := values[f]; ok {
			r.Set(f, v)
		}
	}
	for f, v := range values {
		if !r.Has(f) {
			r.Set(f, v)
		}
	}
	return r
}

// Get returns the value for a field, or "" when absent.
func (r *Record) Get(field string) string {
	return r.values[field]
}

// GetTrimmed returns the whitespace-trimmed value for a field.
func (r *Record) GetTrimmed(field string) string {
	return strings.TrimSpace(r.values[field])
}

// Set stores a value, appending the field to the order on first write.
func (r *Record) Set(field, value string) {
	if _, ok := r.values[field]; !ok {
		r.order = append(r.order, field)
	}
	r.values[field] = value
}

// Has reports whether the field is present (possibly empty).
func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Delete removes a field and its value.
func (r *Record) Delete(field string) {
	if _, ok := r.values[field]; !ok {
		return
	}
	delete(r.values, field)
	for i, f := range r.order {
		if f == field {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of fields present.
func (r *Record) Len() int {
	return len(r.order)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		order:  make([]string, len(r.order)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.order, r.order)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Project returns a copy of the record re-ordered onto the schema:
// canonical fields first (missing ones defaulted to ""), then any extra
// fields in their original first-seen order. Extra fields always pass
// through, per the open-schema contract.
func (r *Record) Project(schema *Schema) *Record {
	out := New()
	for _, f := range schema.Fields() {
		out.Set(f, r.values[f])
	}
	for _, f := range r.order {
		if !out.Has(f) {
			out.Set(f, r.values[f])
		}
	}
	return out
}

// Map returns the record's values as a plain map. Mutating the result does
// not affect the record.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// CloneAll deep-copies a slice of records. Used for corpus checkpoints.
func CloneAll(recs []*Record) []*Record {
	out := make([]*Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
