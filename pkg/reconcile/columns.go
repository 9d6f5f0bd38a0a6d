package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corralhq/corral/pkg/match"
	"github.com/corralhq/corral/pkg/records"
)

// SkipColumn is the mapping target that discards an incoming column.
const SkipColumn = "__skip__"

// columnAliases maps lowercased incoming column names to canonical fields.
// Grown from real researcher spreadsheets; extend as new variants show up.
var columnAliases = map[string]string{
	"project":         records.FieldName,
	"name":            records.FieldName,
	"url":             records.FieldWebsite,
	"site":            records.FieldWebsite,
	"homepage":        records.FieldWebsite,
	"description":     records.FieldNotes,
	"tags":            records.FieldCategory,
	"categories":      records.FieldCategory,
	"tags/categories": records.FieldCategory,
	"ecosystem":       records.FieldBucket,
	"chain":           records.FieldBucket,
	"status":          records.FieldRefStatus,
	"twitter handle":  records.FieldXHandle,
	"x":               records.FieldXHandle,
	"twitter":         records.FieldXLink,
	"twitter link":    records.FieldXLink,
	"twitter url":     records.FieldXLink,
	"x link":          records.FieldXLink,
	"tg":              records.FieldTelegram,
	"telegram link":   records.FieldTelegram,
}

// computedValueSets lists the closed value-sets that identify formula-derived
// columns. A column counts as computed only when every observed value belongs
// to its set.
var computedValueSets = map[string]map[string]bool{
	records.FieldFinalStatus: {
		"":                    true,
		"Skipped":             true,
		"Added":               true,
		"Added Not Validated": true,
		"Validated":           true,
		"To be added":         true,
		"Not Processed":       true,
	},
}

// Reference-catalog match columns come in a primary and an optional secondary
// group; mapping resolution collapses them to one set, preferring whichever
// group carries a root ID.
var (
	primaryRefColumns = map[string]string{
		"profile": records.FieldProfileName,
		"root_id": records.FieldRootID,
		"url":     records.FieldMatchedURL,
		"via":     records.FieldMatchedVia,
	}
	secondaryRefColumns = map[string]string{
		"profile": records.FieldProfileName + " 2",
		"root_id": records.FieldRootID + " 2",
		"url":     records.FieldMatchedURL + " 2",
		"via":     records.FieldMatchedVia + " 2",
	}
)

// MappingKind classifies the outcome of mapping one incoming column.
type MappingKind string

const (
	// MappingMatched is a case-insensitive exact header match.
	MappingMatched MappingKind = "matched"
	// MappingSuggested came from the alias table or fuzzy similarity and
	// should be confirmed by the operator.
	MappingSuggested MappingKind = "suggested"
	// MappingUnmapped found a plausible target already consumed by an
	// earlier column.
	MappingUnmapped MappingKind = "unmapped"
	// MappingExtra resembles no canonical field; it passes through as-is.
	MappingExtra MappingKind = "extra"
)

// ColumnMapping is the proposed mapping for one incoming column.
type ColumnMapping struct {
	Incoming   string
	MappedTo   string
	Confidence string
	Kind       MappingKind
}

// AutoMapColumns proposes a canonical target for each incoming header using
// three tiers: case-insensitive exact match, the alias table, then fuzzy name
// similarity above 0.7. Each canonical target is consumed at most once, in
// input column order; a later column whose target is taken comes back
// unmapped rather than double-mapping.
func AutoMapColumns(incomingHeaders []string, canonical []string) []ColumnMapping {
	canonicalLower := make(map[string]string, len(canonical))
	for _, c := range canonical {
		canonicalLower[strings.ToLower(c)] = c
	}
	used := make(map[string]bool)

	var mappings []ColumnMapping
	for _, incoming := range incomingHeaders {
		lower := strings.ToLower(strings.TrimSpace(incoming))
		m := ColumnMapping{Incoming: incoming, Kind: MappingExtra}
		contested := false

		if target, ok := canonicalLower[lower]; ok {
			if !used[target] {
				used[target] = true
				m.MappedTo = target
				m.Confidence = "exact"
				m.Kind = MappingMatched
				mappings = append(mappings, m)
				continue
			}
			contested = true
		}

		if target, ok := columnAliases[lower]; ok {
			if !used[target] {
				used[target] = true
				m.MappedTo = target
				m.Confidence = "alias"
				m.Kind = MappingSuggested
				mappings = append(mappings, m)
				continue
			}
			contested = true
		}

		bestScore := 0.0
		bestTarget := ""
		for _, canon := range canonical {
			if used[canon] {
				continue
			}
			score := match.Similarity(lower, strings.ToLower(canon))
			if score > 0.7 && score > bestScore {
				bestScore = score
				bestTarget = canon
			}
		}
		if bestTarget != "" {
			used[bestTarget] = true
			m.MappedTo = bestTarget
			m.Confidence = fmt.Sprintf("fuzzy (%.0f%%)", bestScore*100)
			m.Kind = MappingSuggested
		} else if contested {
			m.Kind = MappingUnmapped
		}
		mappings = append(mappings, m)
	}
	return mappings
}

// DetectComputedColumns flags fields as formula-derived when every observed
// value across all records belongs to the known closed value-set for that
// field name.
func DetectComputedColumns(recs []*records.Record) []string {
	if len(recs) == 0 {
		return nil
	}
	var computed []string
	for field, expected := range computedValueSets {
		if !recs[0].Has(field) {
			continue
		}
		allMatch := true
		for _, r := range recs {
			if !expected[r.GetTrimmed(field)] {
				allMatch = false
				break
			}
		}
		if allMatch {
			computed = append(computed, field)
		}
	}
	sort.Strings(computed)
	return computed
}

// resolveRefColumns picks the better of the primary and secondary
// reference-catalog column groups on a record: whichever has a non-empty root
// ID, preferring primary on a tie.
func resolveRefColumns(r *records.Record) map[string]string {
	primary := make(map[string]string, len(primaryRefColumns))
	for key, col := range primaryRefColumns {
		primary[key] = r.GetTrimmed(col)
	}
	secondary := make(map[string]string, len(secondaryRefColumns))
	for key, col := range secondaryRefColumns {
		secondary[key] = r.GetTrimmed(col)
	}

	chosen := primary
	if primary["root_id"] == "" && secondary["root_id"] != "" {
		chosen = secondary
	}
	return map[string]string{
		records.FieldProfileName: chosen["profile"],
		records.FieldRootID:      chosen["root_id"],
		records.FieldMatchedURL:  chosen["url"],
		records.FieldMatchedVia:  chosen["via"],
	}
}

// ApplyColumnMapping rewrites records from the incoming schema to the
// canonical one. mapping is incoming column to canonical field; a SkipColumn
// target discards the column. Incoming columns absent from the mapping pass
// through under their original names. When secondary reference-catalog
// columns are present, the primary/secondary pair is collapsed via
// resolveRefColumns instead of mapped directly.
func ApplyColumnMapping(recs []*records.Record, mapping map[string]string, computed []string) []*records.Record {
	hasSecondaryRef := false
	if len(recs) > 0 {
		for _, col := range secondaryRefColumns {
			if recs[0].Has(col) {
				hasSecondaryRef = true
				break
			}
		}
	}
	primaryTargets := make(map[string]bool, len(primaryRefColumns))
	for _, col := range primaryRefColumns {
		primaryTargets[col] = true
	}

	out := make([]*records.Record, 0, len(recs))
	for _, r := range recs {
		mapped := records.New()
		for _, incoming := range r.Fields() {
			target, ok := mapping[incoming]
			if !ok {
				target = incoming
			}
			if target == SkipColumn {
				continue
			}
			if hasSecondaryRef && (primaryTargets[target] || isSecondaryRef(incoming)) {
				continue
			}
			mapped.Set(target, strings.TrimSpace(r.Get(incoming)))
		}
		if hasSecondaryRef {
			resolved := resolveRefColumns(r)
			for _, field := range []string{
				records.FieldProfileName,
				records.FieldRootID,
				records.FieldMatchedURL,
				records.FieldMatchedVia,
			} {
				mapped.Set(field, resolved[field])
			}
		}
		out = append(out, mapped)
	}
	return out
}

func isSecondaryRef(col string) bool {
	for _, c := range secondaryRefColumns {
		if c == col {
			return true
		}
	}
	return false
}
