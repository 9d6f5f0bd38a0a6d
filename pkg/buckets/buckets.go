// Package buckets defines the named partitions that incoming records are
// split into during reconciliation. Bucket definitions live in a YAML file so
// operators can provision new partitions without a rebuild.
package buckets

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/records"
)

// Bucket is one named partition of the catalog.
type Bucket struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// Set is an ordered collection of bucket definitions.
type Set struct {
	Buckets []Bucket `yaml:"buckets"`
}

// LoadFile reads bucket definitions from a YAML file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("bucket definitions", path)
		}
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data)
}

// Parse decodes bucket definitions from YAML.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, errors.WrapParse("yaml", "bucket definitions", err)
	}
	for i, b := range set.Buckets {
		if strings.TrimSpace(b.ID) == "" {
			return nil, errors.NewValidationError("id", b, "bucket definition has empty id")
		}
		set.Buckets[i].ID = strings.TrimSpace(b.ID)
	}
	return &set, nil
}

// Resolve maps a raw classification value to a known bucket ID. It tries, in
// order: exact ID match, exact name or alias match, then containment against
// bucket names. All comparisons are case-insensitive. Returns "" when nothing
// matches.
func (s *Set) Resolve(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}

	for _, b := range s.Buckets {
		if v == strings.ToLower(b.ID) || v == strings.ToLower(b.Name) {
			return b.ID
		}
		for _, alias := range b.Aliases {
			if v == strings.ToLower(alias) {
				return b.ID
			}
		}
	}

	for _, b := range s.Buckets {
		name := strings.ToLower(b.Name)
		if name != "" && (strings.Contains(v, name) || strings.Contains(name, v)) {
			return b.ID
		}
	}
	return ""
}

// Lookup returns the bucket with the given ID.
func (s *Set) Lookup(id string) (Bucket, bool) {
	for _, b := range s.Buckets {
		if b.ID == id {
			return b, true
		}
	}
	return Bucket{}, false
}

// IDs returns the bucket IDs in definition order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = b.ID
	}
	return out
}

// Split groups records by their classification field, resolving each value to
// a known bucket. Records whose value resolves get the field rewritten to the
// canonical bucket ID. Unresolvable records are grouped under their raw value
// so the caller may provision a new bucket, and those distinct raw values are
// returned separately in first-seen order.
func (s *Set) Split(recs []*records.Record, field string) (map[string][]*records.Record, []string) {
	groups := make(map[string][]*records.Record)
	var unmatched []string
	seenUnmatched := make(map[string]bool)

	for _, r := range recs {
		raw := r.GetTrimmed(field)
		if id := s.Resolve(raw); id != "" {
			r.Set(field, id)
			groups[id] = append(groups[id], r)
			continue
		}
		if raw != "" && !seenUnmatched[raw] {
			unmatched = append(unmatched, raw)
			seenUnmatched[raw] = true
		}
		key := raw
		if key == "" {
			key = "__unknown__"
		}
		groups[key] = append(groups[key], r)
	}
	return groups, unmatched
}
