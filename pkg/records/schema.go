package records

import (
	"fmt"

	"github.com/corralhq/corral/pkg/errors"
)

// Well-known canonical field names. The schema is open, records may carry
// any fields, but these names are the linkage and merge vocabulary.
const (
	FieldName        = "Name"
	FieldWebsite     = "Website"
	FieldXHandle     = "X Handle"
	FieldXLink       = "X Link"
	FieldTelegram    = "Telegram"
	FieldCategory    = "Category"
	FieldBucket      = "Bucket"
	FieldNotes       = "Notes"
	FieldSource      = "Source"
	FieldEvidence    = "Evidence URLs"
	FieldProfileName = "Profile Name"
	FieldRootID      = "Root ID"
	FieldMatchedURL  = "Matched URL"
	FieldMatchedVia  = "Matched Via"
	FieldRefStatus   = "Reference Status"
	FieldSuspect     = "Suspect Support?"
	FieldAdoption    = "General Adoption"
	FieldWebOnly     = "Web3 No Asset"
	FieldFinalStatus = "Final Status"
)

// Schema is an ordered canonical field list with required and computed
// subsets. Computed fields are derived by formulas upstream and must only be
// carried through, never overwritten by merge logic.
type Schema struct {
	fields   []string
	required map[string]bool
	computed map[string]bool
}

// NewSchema builds a schema from an ordered field list.
func NewSchema(fields []string, required, computed []string) *Schema {
	s := &Schema{
		fields:   append([]string(nil), fields...),
		required: make(map[string]bool, len(required)),
		computed: make(map[string]bool, len(computed)),
	}
	for _, f := range required {
		s.required[f] = true
	}
	for _, f := range computed {
		s.computed[f] = true
	}
	return s
}

// Default returns the canonical project-catalog schema.
func Default() *Schema {
	return NewSchema(
		[]string{
			FieldName,
			FieldWebsite,
			FieldXHandle,
			FieldXLink,
			FieldTelegram,
			FieldCategory,
			FieldBucket,
			FieldNotes,
			FieldSource,
			FieldEvidence,
			FieldProfileName,
			FieldRootID,
			FieldMatchedURL,
			FieldMatchedVia,
			FieldRefStatus,
			FieldSuspect,
			FieldAdoption,
			FieldWebOnly,
			FieldFinalStatus,
		},
		[]string{FieldName},
		[]string{FieldFinalStatus},
	)
}

// Fields returns the canonical field names in order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether a field is part of the canonical schema.
func (s *Schema) Has(field string) bool {
	for _, f := range s.fields {
		if f == field {
			return true
		}
	}
	return false
}

// IsRequired reports whether a field must be present for a record set to be
// considered valid.
func (s *Schema) IsRequired(field string) bool {
	return s.required[field]
}

// IsComputed reports whether a field is formula-derived and read-only to
// merge logic.
func (s *Schema) IsComputed(field string) bool {
	return s.computed[field]
}

// Computed returns the computed field names, in schema order.
func (s *Schema) Computed() []string {
	var out []string
	for _, f := range s.fields {
		if s.computed[f] {
			out = append(out, f)
		}
	}
	return out
}

// Empty returns a record with every canonical field initialized to "".
func (s *Schema) Empty() *Record {
	r := New()
	for _, f := range s.fields {
		r.Set(f, "")
	}
	return r
}

// Validate rejects a record set that is missing a required field. The reason
// names the first offending record and field so callers can surface it
// directly to the user.
func (s *Schema) Validate(recs []*Record) error {
	for i, r := range recs {
		for _, f := range s.fields {
			if s.required[f] && r.GetTrimmed(f) == "" {
				return errors.NewValidationError(f, nil,
					fmt.Sprintf("record %d is missing required field %q", i+1, f))
			}
		}
	}
	return nil
}
