package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/pkg/records"
)

func TestParseInputTSV(t *testing.T) {
	headers, recs, err := ParseInput("Name\tWebsite\nThala\thttps://thala.fi\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Website"}, headers)
	require.Len(t, recs, 1)
	assert.Equal(t, "Thala", recs[0].Get(records.FieldName))
}

func TestParseInputCSV(t *testing.T) {
	headers, recs, err := ParseInput("Name,Website\nThala,https://thala.fi\nAries,\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Website"}, headers)
	require.Len(t, recs, 2)
	assert.Equal(t, "", recs[1].Get(records.FieldWebsite))
}

func TestParseInputRaggedRows(t *testing.T) {
	_, recs, err := ParseInput("Name,Website,Notes\nThala,https://thala.fi\nAries,https://aries.io,note,overflow\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Short row padded, long row truncated to the header width.
	assert.Equal(t, "", recs[0].Get(records.FieldNotes))
	assert.Equal(t, "note", recs[1].Get(records.FieldNotes))
	assert.Equal(t, 3, recs[1].Len())
}

func TestParseInputEmpty(t *testing.T) {
	headers, recs, err := ParseInput("   \n  ")
	require.NoError(t, err)
	assert.Empty(t, headers)
	assert.Empty(t, recs)
}

func TestAutoMapColumns(t *testing.T) {
	canonical := records.Default().Fields()
	headers := []string{"Name", "url", "Twitter Handle", "Websitee", "Random Junk"}

	mappings := AutoMapColumns(headers, canonical)
	require.Len(t, mappings, 5)

	assert.Equal(t, records.FieldName, mappings[0].MappedTo)
	assert.Equal(t, MappingMatched, mappings[0].Kind)

	assert.Equal(t, records.FieldWebsite, mappings[1].MappedTo)
	assert.Equal(t, MappingSuggested, mappings[1].Kind)
	assert.Equal(t, "alias", mappings[1].Confidence)

	assert.Equal(t, records.FieldXHandle, mappings[2].MappedTo)
	assert.Equal(t, MappingSuggested, mappings[2].Kind)

	// "Websitee" is close to Website, but Website is already consumed by
	// "url": first-fit wins, the later candidate comes back unmapped or
	// fuzzy-mapped to something else, never double-mapped.
	for i, m := range mappings {
		for j, other := range mappings {
			if i != j && m.MappedTo != "" {
				assert.NotEqual(t, m.MappedTo, other.MappedTo,
					"columns %q and %q mapped to the same field", m.Incoming, other.Incoming)
			}
		}
	}

	assert.Equal(t, MappingExtra, mappings[4].Kind)
	assert.Empty(t, mappings[4].MappedTo)
}

func TestAutoMapColumnsFirstFit(t *testing.T) {
	canonical := []string{records.FieldName, records.FieldWebsite}
	mappings := AutoMapColumns([]string{"name", "project"}, canonical)

	require.Len(t, mappings, 2)
	assert.Equal(t, records.FieldName, mappings[0].MappedTo)
	assert.Empty(t, mappings[1].MappedTo)
	assert.Equal(t, MappingUnmapped, mappings[1].Kind)
}

func TestDetectComputedColumns(t *testing.T) {
	mk := func(status string) *records.Record {
		r := records.New()
		r.Set(records.FieldName, "x")
		r.Set(records.FieldFinalStatus, status)
		return r
	}

	computed := DetectComputedColumns([]*records.Record{mk("Added"), mk("Validated"), mk("")})
	assert.Equal(t, []string{records.FieldFinalStatus}, computed)

	// A hand-edited value outside the closed set disqualifies the column.
	computed = DetectComputedColumns([]*records.Record{mk("Added"), mk("totally custom")})
	assert.Empty(t, computed)
}

func TestApplyColumnMapping(t *testing.T) {
	r := records.New()
	r.Set("project", "Thala")
	r.Set("url", " https://thala.fi ")
	r.Set("internal id", "17")
	r.Set("junk", "x")

	mapping := map[string]string{
		"project": records.FieldName,
		"url":     records.FieldWebsite,
		"junk":    SkipColumn,
	}

	out := ApplyColumnMapping([]*records.Record{r}, mapping, nil)
	require.Len(t, out, 1)

	assert.Equal(t, "Thala", out[0].Get(records.FieldName))
	assert.Equal(t, "https://thala.fi", out[0].Get(records.FieldWebsite))
	// Unmapped columns pass through under their original name.
	assert.Equal(t, "17", out[0].Get("internal id"))
	assert.False(t, out[0].Has("junk"))
}

func TestApplyColumnMappingSecondaryRef(t *testing.T) {
	r := records.New()
	r.Set(records.FieldName, "Thala")
	r.Set(records.FieldProfileName, "")
	r.Set(records.FieldRootID, "")
	r.Set(records.FieldMatchedURL, "")
	r.Set(records.FieldMatchedVia, "")
	r.Set(records.FieldProfileName+" 2", "Thala Labs")
	r.Set(records.FieldRootID+" 2", "root-2")
	r.Set(records.FieldMatchedURL+" 2", "https://ref.example/root-2")
	r.Set(records.FieldMatchedVia+" 2", "name")

	mapping := map[string]string{records.FieldName: records.FieldName}
	out := ApplyColumnMapping([]*records.Record{r}, mapping, nil)
	require.Len(t, out, 1)

	// The secondary group wins because only it carries a root ID.
	assert.Equal(t, "root-2", out[0].Get(records.FieldRootID))
	assert.Equal(t, "Thala Labs", out[0].Get(records.FieldProfileName))
	assert.False(t, out[0].Has(records.FieldRootID+" 2"))
}

func existingCorpus() []*records.Record {
	mk := func(name, website string) *records.Record {
		r := records.New()
		r.Set(records.FieldName, name)
		r.Set(records.FieldWebsite, website)
		return r
	}
	return []*records.Record{
		mk("Thala", "https://thala.fi"),
		mk("Aries Markets", "https://ariesmarkets.xyz"),
	}
}

func TestFindDuplicatesByNameCapitalization(t *testing.T) {
	in := records.New()
	in.Set(records.FieldName, "THALA")

	dups, fresh := FindDuplicates([]*records.Record{in}, existingCorpus(), 0.8)
	require.Len(t, dups, 1)
	assert.Empty(t, fresh)
	assert.Equal(t, MethodName, dups[0].Method)
	assert.Equal(t, 1.0, dups[0].Score)
	assert.Equal(t, "Thala", dups[0].Existing.Get(records.FieldName))
}

func TestFindDuplicatesByURL(t *testing.T) {
	in := records.New()
	in.Set(records.FieldName, "Zenith")
	in.Set(records.FieldWebsite, "https://www.thala.fi/")

	dups, fresh := FindDuplicates([]*records.Record{in}, existingCorpus(), 0.8)
	require.Len(t, dups, 1)
	assert.Empty(t, fresh)
	assert.Equal(t, MethodURL, dups[0].Method)
	assert.Equal(t, 1.0, dups[0].Score)
}

func TestFindDuplicatesNew(t *testing.T) {
	in := records.New()
	in.Set(records.FieldName, "Cellana")
	in.Set(records.FieldWebsite, "https://cellana.finance")

	dups, fresh := FindDuplicates([]*records.Record{in}, existingCorpus(), 0.8)
	assert.Empty(t, dups)
	assert.Len(t, fresh, 1)
}

func TestReconcileURLDomainEquality(t *testing.T) {
	// Two rows naming the same project completely differently still collapse
	// into one record because their website URLs normalize identically.
	existing := []*records.Record{records.New()}
	existing[0].Set(records.FieldName, "Foo Swap")
	existing[0].Set(records.FieldWebsite, "https://foo.io/")

	in := records.New()
	in.Set(records.FieldName, "foo.io")
	in.Set(records.FieldWebsite, "https://www.foo.io")

	dups, fresh := FindDuplicates([]*records.Record{in}, existing, 0.8)
	require.Len(t, dups, 1)
	require.Empty(t, fresh)

	merged, outcome := ExecuteMerge(existing, fresh, dups, nil, nil, records.Default(), "aptos")
	assert.Len(t, merged, 1)
	assert.Equal(t, 1, outcome.Updated)
	assert.Equal(t, 0, outcome.Added)
}

func TestComputeFieldDiffs(t *testing.T) {
	ours := records.New()
	ours.Set(records.FieldName, "Thala")
	ours.Set(records.FieldNotes, "lending")
	ours.Set(records.FieldCategory, "")
	ours.Set(records.FieldFinalStatus, "Added")

	theirs := records.New()
	theirs.Set(records.FieldName, "Thala")
	theirs.Set(records.FieldNotes, "lending + CDP")
	theirs.Set(records.FieldCategory, "")
	theirs.Set(records.FieldFinalStatus, "Validated")

	diffs := ComputeFieldDiffs(theirs, ours, []string{records.FieldFinalStatus})
	require.Len(t, diffs, 2)

	assert.Equal(t, records.FieldNotes, diffs[0].Field)
	assert.False(t, diffs[0].IsComputed)
	assert.Equal(t, records.FieldFinalStatus, diffs[1].Field)
	assert.True(t, diffs[1].IsComputed)
}

func TestApplyMergeStrategy(t *testing.T) {
	tests := []struct {
		ours, theirs string
		strategy     Strategy
		want         string
	}{
		{"a", "b", StrategyAppend, "a; b"},
		{"a; b", "b", StrategyAppend, "a; b"},
		{"", "b", StrategyAppend, "b"},
		{"a", "", StrategyAppend, "a"},
		{"a", "b", StrategyKeepOurs, "a"},
		{"", "b", StrategyKeepOurs, "b"},
		{"a", "b", StrategyKeepTheirs, "b"},
		{"a", "", StrategyKeepTheirs, "a"},
		{"a", "b", StrategySkip, "a"},
	}
	for _, tt := range tests {
		got := ApplyMergeStrategy(tt.ours, tt.theirs, tt.strategy)
		assert.Equal(t, tt.want, got, "ApplyMergeStrategy(%q, %q, %q)", tt.ours, tt.theirs, tt.strategy)
	}
}

func TestPreview(t *testing.T) {
	existing := existingCorpus()

	in := records.New()
	in.Set(records.FieldName, "Thala")
	in.Set(records.FieldNotes, "CDP stablecoin")

	same := records.New()
	same.Set(records.FieldName, "Aries Markets")
	same.Set(records.FieldWebsite, "https://ariesmarkets.xyz")

	fresh := records.New()
	fresh.Set(records.FieldName, "Cellana")

	dups, news := FindDuplicates([]*records.Record{in, same, fresh}, existing, 0.8)
	preview := Preview(dups, news, nil, nil)

	assert.Equal(t, 1, preview.NewCount)
	assert.Equal(t, 1, preview.MergeCount)
	assert.Equal(t, 1, preview.SkipCount)
	require.Len(t, preview.Items, 1)

	// An incoming blank against an existing value is still a diff; the
	// append resolution just keeps ours.
	require.Len(t, preview.Items[0].Conflicts, 2)
	website := preview.Items[0].Conflicts[0]
	assert.Equal(t, records.FieldWebsite, website.Field)
	assert.Equal(t, "https://thala.fi", website.Resolved)
	notes := preview.Items[0].Conflicts[1]
	assert.Equal(t, records.FieldNotes, notes.Field)
	assert.Equal(t, "CDP stablecoin", notes.Resolved)
}

func TestExecuteMerge(t *testing.T) {
	existing := existingCorpus()
	existing[0].Set(records.FieldNotes, "lending")

	in := records.New()
	in.Set(records.FieldName, "Thala")
	in.Set(records.FieldNotes, "CDP")

	fresh := records.New()
	fresh.Set(records.FieldName, "Cellana")
	fresh.Set(records.FieldWebsite, "https://cellana.finance")
	fresh.Set("internal id", "42")

	dups, news := FindDuplicates([]*records.Record{in, fresh}, existing, 0.8)
	merged, outcome := ExecuteMerge(existing, news, dups,
		map[string]Strategy{records.FieldNotes: StrategyAppend}, nil, records.Default(), "aptos")

	assert.Equal(t, 1, outcome.Updated)
	assert.Equal(t, 1, outcome.Added)
	assert.Equal(t, 0, outcome.Skipped)
	require.Len(t, merged, 3)

	assert.Equal(t, "lending; CDP", merged[0].Get(records.FieldNotes))

	added := merged[2]
	assert.Equal(t, "Cellana", added.Get(records.FieldName))
	assert.Equal(t, "aptos", added.Get(records.FieldBucket))
	// Extra fields outside the canonical schema still come along.
	assert.Equal(t, "42", added.Get("internal id"))
}

func TestExecuteMergeExtractsRootID(t *testing.T) {
	r := records.New()
	r.Set(records.FieldName, "Thala")
	r.Set(records.FieldMatchedURL, "https://admin.ref.example/?rootId=abc-123")
	r.Set(records.FieldRootID, "")

	merged, _ := ExecuteMerge([]*records.Record{r}, nil, nil, nil, nil, records.Default(), "")
	assert.Equal(t, "abc-123", merged[0].Get(records.FieldRootID))
}
