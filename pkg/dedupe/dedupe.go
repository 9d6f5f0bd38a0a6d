// Package dedupe collapses near-duplicate records in a corpus. Records are
// grouped by normalized name, sub-grouped by website domain, and each
// remaining group is merged into a single survivor that keeps the richest
// record as its base.
package dedupe

import (
	"sort"
	"strings"

	"github.com/corralhq/corral/pkg/match"
	"github.com/corralhq/corral/pkg/records"
)

// mergeFields are filled first-non-empty-wins from poorer group members,
// scanned in richness order. Notes and evidence have their own concatenating
// merge and are handled separately.
var mergeFields = []string{
	records.FieldWebsite,
	records.FieldXLink,
	records.FieldXHandle,
	records.FieldTelegram,
	records.FieldCategory,
	records.FieldBucket,
	records.FieldProfileName,
	records.FieldRootID,
	records.FieldMatchedURL,
	records.FieldMatchedVia,
	records.FieldRefStatus,
	records.FieldSuspect,
	records.FieldAdoption,
	records.FieldWebOnly,
}

// Kind classifies a merge for audit output.
type Kind string

const (
	// KindExact marks a merge where every absorbed name was identical,
	// case and punctuation aside.
	KindExact Kind = "exact"
	// KindFuzzy marks a merge where the absorbed names differed beyond
	// case and punctuation, so the survivor carries a machine-readable
	// annotation for human review.
	KindFuzzy Kind = "fuzzy"
	// KindSplit marks a name group kept apart because its members point at
	// distinct website domains.
	KindSplit Kind = "split"
)

// Merge describes one group decision, for dry-run preview and summaries.
type Merge struct {
	Kind    Kind
	Names   []string
	Domain  string
	Removed int
}

// Result summarizes a deduplication pass.
type Result struct {
	Total        int
	Unique       int
	ExactRemoved int
	FuzzyRemoved int
	Merges       []Merge
}

// Removed returns the total number of records absorbed into survivors.
func (r Result) Removed() int {
	return r.ExactRemoved + r.FuzzyRemoved
}

// Changed reports whether any merge occurred. Callers persist the reduced
// set only when this is true.
func (r Result) Changed() bool {
	return r.Removed() > 0
}

// Engine deduplicates record sets. The zero configuration (via New) keeps
// records with distinct non-empty domains separate.
type Engine struct {
	weights     map[string]int
	domainSplit bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the field-importance table used to pick merge bases.
func WithWeights(weights map[string]int) Option {
	return func(e *Engine) {
		e.weights = weights
	}
}

// WithDomainSplit controls whether same-name records with different non-empty
// website domains are kept as distinct groups. The default (true) never
// merges across domains. Disabling it merges an entire name group regardless
// of domain, which is aggressive and intended for curated corpora where the
// website column is known to be noisy.
func WithDomainSplit(split bool) Option {
	return func(e *Engine) {
		e.domainSplit = split
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		weights:     records.DefaultWeights,
		domainSplit: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deduplicate merges near-duplicate records and returns the reduced set plus
// a summary. Input order is preserved: each survivor occupies the position of
// its group's first member. Records with an empty name are never grouped and
// pass through untouched. The input slice is not modified.
func (e *Engine) Deduplicate(recs []*records.Record) ([]*records.Record, Result) {
	result := Result{Total: len(recs)}

	// Phase 1: group indexes by normalized name.
	nameGroups := make(map[string][]int)
	var nameOrder []string
	for i, r := range recs {
		name := r.GetTrimmed(records.FieldName)
		if name == "" {
			continue
		}
		norm := match.Normalize(name)
		if _, ok := nameGroups[norm]; !ok {
			nameOrder = append(nameOrder, norm)
		}
		nameGroups[norm] = append(nameGroups[norm], i)
	}

	type survivor struct {
		pos int
		rec *records.Record
	}
	var out []survivor
	grouped := make(map[int]bool)

	keep := func(idx int, rec *records.Record) {
		out = append(out, survivor{pos: idx, rec: rec})
	}

	for _, norm := range nameOrder {
		indices := nameGroups[norm]
		for _, idx := range indices {
			grouped[idx] = true
		}
		if len(indices) == 1 {
			keep(indices[0], recs[indices[0]].Clone())
			continue
		}

		if !e.domainSplit {
			merged, m := e.mergeGroup(recs, indices, "")
			keep(indices[0], merged)
			result.record(m)
			continue
		}

		// Phase 2: sub-group a multi-record name group by website domain.
		domainGroups := make(map[string][]int)
		var domainOrder []string
		for _, idx := range indices {
			domain := match.Domain(recs[idx].GetTrimmed(records.FieldWebsite))
			if _, ok := domainGroups[domain]; !ok {
				domainOrder = append(domainOrder, domain)
			}
			domainGroups[domain] = append(domainGroups[domain], idx)
		}

		if len(domainGroups) == 1 {
			merged, m := e.mergeGroup(recs, indices, domainOrder[0])
			keep(indices[0], merged)
			result.record(m)
			continue
		}

		// An empty domain is missing data, not a distinguishing feature:
		// absorb those records into the largest non-empty domain bucket,
		// first-seen order breaking ties.
		emptyIndices := domainGroups[""]
		delete(domainGroups, "")
		nonEmpty := domainOrder[:0]
		for _, d := range domainOrder {
			if d != "" {
				nonEmpty = append(nonEmpty, d)
			}
		}
		absorber := ""
		if len(emptyIndices) > 0 {
			for _, d := range nonEmpty {
				if absorber == "" || len(domainGroups[d]) > len(domainGroups[absorber]) {
					absorber = d
				}
			}
		}

		var splitNames []string
		for _, domain := range nonEmpty {
			group := domainGroups[domain]
			if domain == absorber && len(emptyIndices) > 0 {
				group = append(append([]int(nil), group...), emptyIndices...)
				sort.Ints(group)
				emptyIndices = nil
			}
			if len(group) == 1 {
				keep(group[0], recs[group[0]].Clone())
			} else {
				merged, m := e.mergeGroup(recs, group, domain)
				keep(group[0], merged)
				result.record(m)
			}
			for _, idx := range group {
				splitNames = append(splitNames, recs[idx].GetTrimmed(records.FieldName))
			}
		}
		for _, idx := range emptyIndices {
			keep(idx, recs[idx].Clone())
		}

		if len(nonEmpty) > 1 {
			result.Merges = append(result.Merges, Merge{
				Kind:  KindSplit,
				Names: splitNames,
			})
		}
	}

	// Records with an empty name pass through in place.
	for i, r := range recs {
		if !grouped[i] {
			keep(i, r.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	final := make([]*records.Record, len(out))
	for i, s := range out {
		final[i] = s.rec
	}
	result.Unique = len(final)
	return final, result
}

func (r *Result) record(m Merge) {
	r.Merges = append(r.Merges, m)
	if m.Kind == KindFuzzy {
		r.FuzzyRemoved += m.Removed
	} else {
		r.ExactRemoved += m.Removed
	}
}

// mergeGroup merges the records at the given indices into one survivor.
func (e *Engine) mergeGroup(recs []*records.Record, indices []int, domain string) (*records.Record, Merge) {
	group := make([]*records.Record, len(indices))
	for i, idx := range indices {
		group[i] = recs[idx]
	}

	names := distinctTrimmed(group, records.FieldName)
	isFuzzy := distinctKeyCount(names) > 1

	merged := mergeRecords(group, e.weights, isFuzzy)

	kind := KindExact
	if isFuzzy {
		kind = KindFuzzy
	}
	return merged, Merge{
		Kind:    kind,
		Names:   names,
		Domain:  domain,
		Removed: len(group) - 1,
	}
}

// mergeRecords folds a duplicate group into one record. The richest record is
// the base; poorer records fill its empty fields, boolean flags OR in, and
// notes, evidence, and provenance concatenate distinctly.
func mergeRecords(group []*records.Record, weights map[string]int, isFuzzy bool) *records.Record {
	if len(group) == 1 {
		return group[0].Clone()
	}

	scored := make([]*records.Record, len(group))
	copy(scored, group)
	sort.SliceStable(scored, func(i, j int) bool {
		return records.Richness(scored[i], weights) > records.Richness(scored[j], weights)
	})

	names := distinctTrimmed(group, records.FieldName)
	sources := distinctTrimmed(group, records.FieldSource)

	base := scored[0].Clone()
	for _, other := range scored[1:] {
		for _, field := range mergeFields {
			otherVal := other.GetTrimmed(field)
			if records.BoolFields[field] {
				if records.IsTrue(otherVal) {
					base.Set(field, otherVal)
				}
				continue
			}
			if base.GetTrimmed(field) == "" && otherVal != "" {
				base.Set(field, otherVal)
			}
		}
	}

	if notes := mergeNotes(scored); notes != "" {
		base.Set(records.FieldNotes, notes)
	}
	if evidence := mergeParts(scored, records.FieldEvidence); evidence != "" {
		base.Set(records.FieldEvidence, evidence)
	}
	if len(sources) > 1 {
		base.Set(records.FieldSource, strings.Join(sources, "; "))
	}

	if isFuzzy && len(names) > 1 {
		annotation := "(fuzzy dedup: merged from " + strings.Join(names, "; ") + ")"
		if existing := base.GetTrimmed(records.FieldNotes); existing != "" {
			base.Set(records.FieldNotes, existing+" | "+annotation)
		} else {
			base.Set(records.FieldNotes, annotation)
		}
	}
	return base
}

// mergeNotes keeps the richest record's note as primary and appends the
// pipe-separated enrichment segments of later notes that the primary does not
// already contain.
func mergeNotes(scored []*records.Record) string {
	var notes []string
	seen := make(map[string]bool)
	for _, r := range scored {
		note := r.GetTrimmed(records.FieldNotes)
		if note != "" && !seen[note] {
			notes = append(notes, note)
			seen[note] = true
		}
	}
	if len(notes) == 0 {
		return ""
	}

	primary := notes[0]
	var extras []string
	for _, note := range notes[1:] {
		parts := strings.Split(note, " | ")
		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			if part != "" && !strings.Contains(primary, part) {
				extras = append(extras, part)
			}
		}
	}
	if len(extras) > 0 {
		primary = primary + " | " + strings.Join(extras, " | ")
	}
	return primary
}

// mergeParts unions the pipe-separated segments of a field across the group,
// first-seen order, duplicates dropped.
func mergeParts(scored []*records.Record, field string) string {
	var parts []string
	seen := make(map[string]bool)
	for _, r := range scored {
		val := r.GetTrimmed(field)
		if val == "" {
			continue
		}
		for _, part := range strings.Split(val, " | ") {
			part = strings.TrimSpace(part)
			if part != "" && !seen[part] {
				parts = append(parts, part)
				seen[part] = true
			}
		}
	}
	return strings.Join(parts, " | ")
}

// distinctKeyCount counts names that remain distinct once case and
// punctuation are ignored. Only such differences make a merge fuzzy;
// "Thala" absorbing "thala" is exact and carries no annotation.
func distinctKeyCount(names []string) int {
	seen := make(map[string]bool)
	for _, name := range names {
		seen[match.RawKey(name)] = true
	}
	return len(seen)
}

func distinctTrimmed(group []*records.Record, field string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range group {
		val := r.GetTrimmed(field)
		if val != "" && !seen[val] {
			out = append(out, val)
			seen[val] = true
		}
	}
	return out
}
