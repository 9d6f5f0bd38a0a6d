package reconcile

import (
	"net/url"
	"strings"

	"github.com/corralhq/corral/pkg/records"
)

// Strategy resolves a field conflict between an existing and an incoming
// value.
type Strategy string

const (
	// StrategyAppend concatenates ours and theirs with "; " unless theirs
	// is already contained in ours. The default.
	StrategyAppend Strategy = "append"
	// StrategyKeepOurs prefers the existing non-empty value.
	StrategyKeepOurs Strategy = "keep_ours"
	// StrategyKeepTheirs prefers the incoming non-empty value.
	StrategyKeepTheirs Strategy = "keep_theirs"
	// StrategySkip leaves the field alone, same as StrategyKeepOurs.
	StrategySkip Strategy = "skip"
)

// refIDParam is the query parameter under which the reference catalog's
// admin URLs embed a root identifier.
const refIDParam = "rootId"

// FieldDiff is one conflicting field between an incoming and existing record.
// Computed fields are flagged but still reported; callers treat them as
// informational.
type FieldDiff struct {
	Field      string
	Ours       string
	Theirs     string
	IsComputed bool
}

// ComputeFieldDiffs compares two records field by field and returns only the
// fields whose trimmed values differ with at least one side non-empty. Field
// order follows the existing record, then any incoming-only fields.
func ComputeFieldDiffs(incoming, existing *records.Record, computed []string) []FieldDiff {
	computedSet := make(map[string]bool, len(computed))
	for _, c := range computed {
		computedSet[c] = true
	}

	fields := existing.Fields()
	for _, f := range incoming.Fields() {
		if !existing.Has(f) {
			fields = append(fields, f)
		}
	}

	var diffs []FieldDiff
	for _, field := range fields {
		ours := existing.GetTrimmed(field)
		theirs := incoming.GetTrimmed(field)
		if ours == theirs {
			continue
		}
		diffs = append(diffs, FieldDiff{
			Field:      field,
			Ours:       ours,
			Theirs:     theirs,
			IsComputed: computedSet[field],
		})
	}
	return diffs
}

// ApplyMergeStrategy resolves one field conflict. An unknown strategy falls
// back to StrategyAppend.
func ApplyMergeStrategy(ours, theirs string, strategy Strategy) string {
	switch strategy {
	case StrategyKeepTheirs:
		if theirs != "" {
			return theirs
		}
		return ours
	case StrategyKeepOurs, StrategySkip:
		if ours != "" {
			return ours
		}
		return theirs
	}
	if ours != "" && theirs != "" && ours != theirs {
		if strings.Contains(ours, theirs) {
			return ours
		}
		return ours + "; " + theirs
	}
	if ours != "" {
		return ours
	}
	return theirs
}

// ResolvedDiff is a FieldDiff with its chosen strategy and outcome.
type ResolvedDiff struct {
	FieldDiff
	Strategy Strategy
	Resolved string
}

// MergeItem previews the merge of one duplicate pair.
type MergeItem struct {
	Name      string
	Score     float64
	Method    string
	Conflicts []ResolvedDiff
}

// MergePreview summarizes what ExecuteMerge will do, without touching the
// corpus.
type MergePreview struct {
	NewCount   int
	MergeCount int
	SkipCount  int
	Items      []MergeItem
}

// Preview resolves every duplicate's diffs against the chosen strategies and
// reports what a merge would change. Duplicates whose only diffs are computed
// fields count as skips.
func Preview(duplicates []Duplicate, fresh []*records.Record, strategies map[string]Strategy, computed []string) *MergePreview {
	preview := &MergePreview{NewCount: len(fresh)}

	for _, dup := range duplicates {
		actionable := actionableDiffs(dup.Incoming, dup.Existing, computed)
		if len(actionable) == 0 {
			preview.SkipCount++
			continue
		}

		item := MergeItem{
			Name:   dup.Existing.Get(records.FieldName),
			Score:  dup.Score,
			Method: dup.Method,
		}
		for _, diff := range actionable {
			strategy := strategyFor(strategies, diff.Field)
			item.Conflicts = append(item.Conflicts, ResolvedDiff{
				FieldDiff: diff,
				Strategy:  strategy,
				Resolved:  ApplyMergeStrategy(diff.Ours, diff.Theirs, strategy),
			})
		}
		preview.Items = append(preview.Items, item)
		preview.MergeCount++
	}
	return preview
}

// MergeOutcome reports per-entity results of an executed merge.
type MergeOutcome struct {
	Added   int
	Updated int
	Skipped int
}

// ExecuteMerge applies duplicate merges to the existing records in place,
// then appends the genuinely new records projected onto the schema with the
// given bucket, extra fields passing through. Duplicates whose existing
// record can no longer be found by name, or whose diffs are all computed, are
// skipped. A best-effort pass afterwards extracts reference root IDs embedded
// in admin-style matched URLs. Returns the merged set and per-entity counts.
func ExecuteMerge(
	existing []*records.Record,
	fresh []*records.Record,
	duplicates []Duplicate,
	strategies map[string]Strategy,
	computed []string,
	schema *records.Schema,
	bucketID string,
) ([]*records.Record, MergeOutcome) {
	byName := make(map[string]int, len(existing))
	for i, r := range existing {
		if name := strings.ToLower(r.GetTrimmed(records.FieldName)); name != "" {
			if _, ok := byName[name]; !ok {
				byName[name] = i
			}
		}
	}

	var outcome MergeOutcome

	for _, dup := range duplicates {
		idx, ok := byName[strings.ToLower(dup.Existing.GetTrimmed(records.FieldName))]
		if !ok {
			outcome.Skipped++
			continue
		}
		actionable := actionableDiffs(dup.Incoming, existing[idx], computed)
		if len(actionable) == 0 {
			outcome.Skipped++
			continue
		}
		for _, diff := range actionable {
			strategy := strategyFor(strategies, diff.Field)
			existing[idx].Set(diff.Field, ApplyMergeStrategy(diff.Ours, diff.Theirs, strategy))
		}
		outcome.Updated++
	}

	for _, in := range fresh {
		added := in.Project(schema)
		if bucketID != "" && added.GetTrimmed(records.FieldBucket) == "" {
			added.Set(records.FieldBucket, bucketID)
		}
		existing = append(existing, added)
		outcome.Added++
	}

	extractRootIDs(existing)
	return existing, outcome
}

func actionableDiffs(incoming, existing *records.Record, computed []string) []FieldDiff {
	var actionable []FieldDiff
	for _, diff := range ComputeFieldDiffs(incoming, existing, computed) {
		if !diff.IsComputed {
			actionable = append(actionable, diff)
		}
	}
	return actionable
}

// strategyFor resolves the strategy for a field, with "*" as a catch-all
// entry and append as the final default.
func strategyFor(strategies map[string]Strategy, field string) Strategy {
	if s, ok := strategies[field]; ok && s != "" {
		return s
	}
	if s, ok := strategies["*"]; ok && s != "" {
		return s
	}
	return StrategyAppend
}

// extractRootIDs fills an empty root ID field from an admin-style matched URL
// that embeds the identifier as a query parameter. Malformed URLs are left
// alone.
func extractRootIDs(recs []*records.Record) int {
	count := 0
	for _, r := range recs {
		matchedURL := r.Get(records.FieldMatchedURL)
		if r.GetTrimmed(records.FieldRootID) != "" || !strings.Contains(matchedURL, refIDParam+"=") {
			continue
		}
		parsed, err := url.Parse(matchedURL)
		if err != nil {
			continue
		}
		if id := parsed.Query().Get(refIDParam); id != "" {
			r.Set(records.FieldRootID, id)
			count++
		}
	}
	return count
}
