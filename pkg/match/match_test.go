package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips amm suffix", "PancakeSwap AMM", "pancake"},
		{"strips stacked suffixes", "Thala Labs Finance", "thala"},
		{"strips version suffix", "Aptin Finance V2", "aptin"},
		{"strips lsd suffix", "Thala LSD", "thala"},
		{"plain name unchanged", "aurora", "aurora"},
		{"punctuation removed", "Ref.Finance", "ref"},
		{"empty stays empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Thala Labs Finance",
		"PancakeSwap AMM",
		"Burrow Cash",
		"Aptin Finance V2",
		"SOME-weird.Name!!",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	assert.Equal(t, Normalize("thala"), Normalize("Thala Labs Finance"))
	assert.Equal(t, Normalize("PANCAKESWAP"), Normalize("pancakeswap"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("aurora", "aurora"))
	assert.Equal(t, 0.0, Similarity("", "aurora"))
	assert.Equal(t, Similarity("burrow", "burro"), Similarity("burro", "burrow"), "similarity must be symmetric")
	assert.Greater(t, Similarity("burrow", "burro"), 0.8)
	assert.Less(t, Similarity("aurora", "pancake"), 0.5)
}

func TestFindMatch(t *testing.T) {
	candidates := []string{"Aurora", "Burrow", "Ref Finance", "Meta Pool"}

	t.Run("exact after normalization", func(t *testing.T) {
		got, score := FindMatch("aurora", candidates, 0.8)
		require.Equal(t, "Aurora", got)
		assert.Equal(t, 1.0, score)
	})

	t.Run("suffix stripped exact", func(t *testing.T) {
		got, score := FindMatch("Ref", candidates, 0.8)
		require.Equal(t, "Ref Finance", got)
		assert.Equal(t, 1.0, score)
	})

	t.Run("containment", func(t *testing.T) {
		got, score := FindMatch("metapoolstaking", candidates, 0.8)
		require.Equal(t, "Meta Pool", got)
		assert.Equal(t, 0.9, score)
	})

	t.Run("no match below threshold", func(t *testing.T) {
		got, score := FindMatch("zzzzz", candidates, 0.8)
		assert.Empty(t, got)
		assert.Zero(t, score)
	})

	t.Run("round trip on own name", func(t *testing.T) {
		for _, c := range candidates {
			got, score := FindMatch(c, candidates, 0.8)
			assert.Equal(t, c, got)
			assert.Equal(t, 1.0, score)
		}
	})
}

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://aurora.dev", "aurora.dev"},
		{"https://www.aurora.dev/", "aurora.dev"},
		{"https://aurora.plus/app", "aurora.plus"},
		{"auroraswap.net", "auroraswap.net"},
		{"https://foo.io:8443/x", "foo.io"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Domain(tt.in), "Domain(%q)", tt.in)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://foo.io/", "foo.io"},
		{"http://www.foo.io/path/", "foo.io/path"},
		{"https://foo.io/app?utm_source=x", "foo.io/app"},
		{"FOO.io", "foo.io"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), "NormalizeURL(%q)", tt.in)
	}
}
