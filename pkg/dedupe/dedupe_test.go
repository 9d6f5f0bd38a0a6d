package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/pkg/records"
)

func rec(fields map[string]string) *records.Record {
	return records.FromMap(fields, []string{
		records.FieldName,
		records.FieldWebsite,
		records.FieldNotes,
		records.FieldSource,
	})
}

func names(recs []*records.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Get(records.FieldName)
	}
	return out
}

func TestDeduplicateExact(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "Thala", records.FieldWebsite: "https://thala.fi"}),
		rec(map[string]string{records.FieldName: "Thala", records.FieldWebsite: "https://thala.fi", records.FieldTelegram: "t.me/thala"}),
		rec(map[string]string{records.FieldName: "Aries"}),
	}

	out, result := New().Deduplicate(input)

	require.Len(t, out, 2)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Unique)
	assert.Equal(t, 1, result.ExactRemoved)
	assert.Equal(t, 0, result.FuzzyRemoved)
	assert.True(t, result.Changed())

	// Telegram filled from the absorbed record.
	assert.Equal(t, "t.me/thala", out[0].Get(records.FieldTelegram))
	assert.Equal(t, []string{"Thala", "Aries"}, names(out))
}

func TestDeduplicateCaseAndPunctuationDifferencesAreExact(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "Thala", records.FieldNotes: "CDP stablecoin"}),
		rec(map[string]string{records.FieldName: "thala"}),
		rec(map[string]string{records.FieldName: "Merkle-Trade"}),
		rec(map[string]string{records.FieldName: "Merkle Trade"}),
	}

	out, result := New().Deduplicate(input)

	require.Len(t, out, 2)
	assert.Equal(t, 2, result.ExactRemoved)
	assert.Equal(t, 0, result.FuzzyRemoved)
	for _, r := range out {
		assert.NotContains(t, r.Get(records.FieldNotes), "fuzzy dedup")
	}
}

func TestDeduplicateFuzzyAnnotation(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "Thala", records.FieldWebsite: "https://thala.fi"}),
		rec(map[string]string{records.FieldName: "Thala Labs", records.FieldWebsite: "https://thala.fi"}),
	}

	out, result := New().Deduplicate(input)

	require.Len(t, out, 1)
	assert.Equal(t, 1, result.FuzzyRemoved)
	assert.Equal(t, 0, result.ExactRemoved)
	assert.Contains(t, out[0].Get(records.FieldNotes), "(fuzzy dedup: merged from Thala; Thala Labs)")
}

func TestDeduplicateDomainSplit(t *testing.T) {
	// Three rows share a normalized name: two distinct domains stay split,
	// and the empty-domain row is absorbed into one bucket rather than
	// surviving on its own. Two final groups, not one or three.
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "PancakeSwap", records.FieldWebsite: "https://pancakeswap.finance"}),
		rec(map[string]string{records.FieldName: "Pancake", records.FieldWebsite: "https://pancake.io"}),
		rec(map[string]string{records.FieldName: "Pancake Swap"}),
	}

	out, result := New().Deduplicate(input)

	require.Len(t, out, 2)
	assert.Equal(t, 1, result.ExactRemoved)
	assert.Equal(t, 0, result.FuzzyRemoved)
	assert.Equal(t, []string{"PancakeSwap", "Pancake"}, names(out))

	var kinds []Kind
	for _, m := range result.Merges {
		kinds = append(kinds, m.Kind)
	}
	assert.Contains(t, kinds, KindSplit)
}

func TestDeduplicateEmptyDomainAbsorbed(t *testing.T) {
	// An empty-domain row is missing data, not a different project: it folds
	// into the sole non-empty domain bucket.
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "PancakeSwap", records.FieldWebsite: "https://pancakeswap.finance", records.FieldSource: "defillama"}),
		rec(map[string]string{records.FieldName: "Pancake Swap", records.FieldSource: "manual"}),
	}

	out, result := New().Deduplicate(input)

	require.Len(t, out, 1)
	assert.Equal(t, 1, result.ExactRemoved)
	assert.Equal(t, "defillama; manual", out[0].Get(records.FieldSource))
}

func TestDeduplicateDistinctDomainsNeverMerge(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "PancakeSwap", records.FieldWebsite: "https://pancakeswap.finance"}),
		rec(map[string]string{records.FieldName: "Pancake", records.FieldWebsite: "https://pancake.io"}),
	}
	out, result := New().Deduplicate(input)
	assert.Len(t, out, 2)
	assert.False(t, result.Changed())
}

func TestDeduplicateBoolOrWins(t *testing.T) {
	richer := rec(map[string]string{
		records.FieldName:    "Thala",
		records.FieldWebsite: "https://thala.fi",
		records.FieldRootID:  "root-1",
	})
	poorer := rec(map[string]string{
		records.FieldName:    "Thala",
		records.FieldWebsite: "https://thala.fi",
	})
	poorer.Set(records.FieldSuspect, "TRUE")

	out, _ := New().Deduplicate([]*records.Record{poorer, richer})

	require.Len(t, out, 1)
	// The richer record is the merge base, yet TRUE still wins.
	assert.Equal(t, "root-1", out[0].Get(records.FieldRootID))
	assert.Equal(t, "TRUE", out[0].Get(records.FieldSuspect))
}

func TestDeduplicateRichnessOrderDeterministic(t *testing.T) {
	a := rec(map[string]string{
		records.FieldName:    "Thala",
		records.FieldWebsite: "https://thala.fi",
		records.FieldNotes:   "from scan A",
	})
	b := rec(map[string]string{
		records.FieldName:    "Thala",
		records.FieldWebsite: "https://thala.fi",
		records.FieldRootID:  "root-1",
		records.FieldNotes:   "from scan B",
	})

	out1, _ := New().Deduplicate([]*records.Record{a.Clone(), b.Clone()})
	out2, _ := New().Deduplicate([]*records.Record{b.Clone(), a.Clone()})

	require.Len(t, out1, 1)
	require.Len(t, out2, 1)
	// b is richer in both orders, so its note leads both times.
	assert.Equal(t, out1[0].Get(records.FieldNotes), out2[0].Get(records.FieldNotes))
	assert.Equal(t, "root-1", out1[0].Get(records.FieldRootID))
}

func TestDeduplicateIdempotent(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "Thala", records.FieldWebsite: "https://thala.fi"}),
		rec(map[string]string{records.FieldName: "Thala Labs", records.FieldWebsite: "https://thala.fi"}),
		rec(map[string]string{records.FieldName: "Aries", records.FieldWebsite: "https://ariesmarkets.xyz"}),
		rec(map[string]string{records.FieldName: "Aries Markets", records.FieldWebsite: "https://ariesmarkets.xyz"}),
	}

	once, first := New().Deduplicate(input)
	require.True(t, first.Changed())

	twice, second := New().Deduplicate(once)
	assert.False(t, second.Changed())
	assert.Equal(t, len(once), len(twice))
}

func TestDeduplicateEvidenceUnion(t *testing.T) {
	a := rec(map[string]string{
		records.FieldName:     "Thala",
		records.FieldWebsite:  "https://thala.fi",
		records.FieldEvidence: "https://a.example | https://b.example",
	})
	b := rec(map[string]string{
		records.FieldName:     "Thala",
		records.FieldWebsite:  "https://thala.fi",
		records.FieldEvidence: "https://b.example | https://c.example",
	})

	out, _ := New().Deduplicate([]*records.Record{a, b})

	require.Len(t, out, 1)
	assert.Equal(t, "https://a.example | https://b.example | https://c.example",
		out[0].Get(records.FieldEvidence))
}

func TestDeduplicateEmptyNamesPassThrough(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "", records.FieldWebsite: "https://mystery.io"}),
		rec(map[string]string{records.FieldName: "", records.FieldWebsite: "https://mystery.io"}),
	}

	out, result := New().Deduplicate(input)
	assert.Len(t, out, 2)
	assert.False(t, result.Changed())
}

func TestDeduplicateNoDomainSplit(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "PancakeSwap", records.FieldWebsite: "https://pancakeswap.finance"}),
		rec(map[string]string{records.FieldName: "Pancake", records.FieldWebsite: "https://pancake.io"}),
	}

	out, result := New(WithDomainSplit(false)).Deduplicate(input)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, result.FuzzyRemoved)
}

func TestDeduplicatePreservesInputOrder(t *testing.T) {
	input := []*records.Record{
		rec(map[string]string{records.FieldName: "Aries"}),
		rec(map[string]string{records.FieldName: "Thala", records.FieldWebsite: "https://thala.fi"}),
		rec(map[string]string{records.FieldName: "Cellana"}),
		rec(map[string]string{records.FieldName: "Thala", records.FieldWebsite: "https://thala.fi"}),
	}

	out, _ := New().Deduplicate(input)
	assert.Equal(t, []string{"Aries", "Thala", "Cellana"}, names(out))
}
