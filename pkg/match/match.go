// Package match provides name normalization and fuzzy similarity scoring for
// record linkage. It is the single source of truth for duplicate semantics:
// both the deduplication engine and the reconciliation engine's duplicate
// detector resolve names through FindMatch, so a pair of names that counts
// as a duplicate in one subsystem counts as a duplicate in the other.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripSuffixes is the vocabulary removed during normalization: generic
// business/product words that distinguish branding, not identity.
var stripSuffixes = []string{
	"protocol",
	"finance",
	"labs",
	"wallet",
	"exchange",
	"market",
	"markets",
	"swap",
	"amm",
	"lsd",
	"cdp",
	"cex",
	`v\d+`, // version suffixes like V2, V3
}

var (
	suffixPattern  = regexp.MustCompile(`(?i)\s*(` + strings.Join(stripSuffixes, "|") + `)$`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]`)
	asciiFold      = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize canonicalizes a project name for comparison: folds Unicode to
// ASCII, lowercases, strips the suffix vocabulary repeatedly until a fixed
// point, then removes all non-alphanumeric characters.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
//
//	"PancakeSwap AMM"     -> "pancake"
//	"Thala Labs Finance"  -> "thala"
//	"Aptin Finance V2"    -> "aptin"
func Normalize(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err == nil {
		name = folded
	}
	name = strings.ToLower(name)
	for {
		next := suffixPattern.ReplaceAllString(name, "")
		if next == name {
			break
		}
		name = next
	}
	return nonAlnum.ReplaceAllString(name, "")
}

// RawKey lowercases and strips non-alphanumerics without suffix removal.
// Index builders key on both Normalize and RawKey so that suffix-bearing
// names remain findable under their full spelling.
func RawKey(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err == nil {
		name = folded
	}
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "")
}

// Similarity returns a character-level similarity ratio in [0,1] based on
// edit distance. Symmetric; 1.0 iff the strings are identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

// FindMatch finds the best match for name among candidates using a
// three-tier policy:
//
//	1.0        exact match after normalization (first such candidate)
//	0.9        one normalized form contains the other (first such candidate)
//	>threshold highest fuzzy similarity of normalized forms
//
// Returns ("", 0) when nothing clears the threshold. Ties break to
// first-seen order in candidates.
func FindMatch(name string, candidates []string, threshold float64) (string, float64) {
	normalized := Normalize(name)

	best := ""
	bestScore := 0.0

	for _, candidate := range candidates {
		candNorm := Normalize(candidate)

		if normalized == candNorm {
			return candidate, 1.0
		}

		if normalized != "" && candNorm != "" &&
			(strings.Contains(candNorm, normalized) || strings.Contains(normalized, candNorm)) {
			if bestScore < 0.9 {
				best = candidate
				bestScore = 0.9
			}
		}

		if sim := Similarity(normalized, candNorm); sim > threshold && sim > bestScore {
			best = candidate
			bestScore = sim
		}
	}

	if best == "" {
		return "", 0.0
	}
	return best, bestScore
}
