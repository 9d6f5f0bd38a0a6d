// Package expand links corpus records that still lack a verified
// cross-reference against the bulk-downloaded reference catalog. Strategies
// run in a configurable order; each one only sees records earlier strategies
// left unmatched.
package expand

import (
	"context"
	"regexp"
	"strings"

	"github.com/corralhq/corral/pkg/match"
)

// Entry types.
const (
	TypeProfile = "profile"
	TypeProduct = "product"
	TypeRoot    = "root"
)

// Entry is one reference-catalog candidate, flattened from the catalog's
// profile/product/root shapes.
type Entry struct {
	Name        string
	Type        string
	ID          string
	Status      string
	ProductType string
	RootSlug    string
	RootURL     string
	RootID      string
}

// Source supplies catalog data to the strategies. The bulk entries are
// fetched once per run and cached by the Matcher; slug and social lookups
// are per-call.
type Source interface {
	// Entries returns every profile and product in the catalog.
	Entries(ctx context.Context) ([]Entry, error)
	// RootBySlug resolves a candidate slug, or nil when unknown.
	RootBySlug(ctx context.Context, slug string) (*Entry, error)
	// RootTwitterHandles returns the lowercased Twitter/X handles attached
	// to a root, without the leading @.
	RootTwitterHandles(ctx context.Context, rootID string) ([]string, error)
}

var nonAlnumSpace = regexp.MustCompile(`[^a-z0-9 ]`)

// index holds the two lookup tables the batch strategies work from.
type index struct {
	byName   map[string][]Entry // normalized and raw name keys
	byDomain map[string][]Entry // root domain, one entry per root
}

func buildIndex(entries []Entry) *index {
	idx := &index{
		byName:   make(map[string][]Entry),
		byDomain: make(map[string][]Entry),
	}
	seenRoots := make(map[string]bool)

	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if len(name) >= 2 {
			norm := match.Normalize(name)
			if norm != "" {
				idx.byName[norm] = append(idx.byName[norm], e)
			}
			// Suffix-bearing names stay findable under their raw spelling.
			if raw := match.RawKey(name); raw != "" && raw != norm {
				idx.byName[raw] = append(idx.byName[raw], e)
			}
		}

		if e.RootURL == "" || e.RootID == "" || seenRoots[e.RootID] {
			continue
		}
		seenRoots[e.RootID] = true
		if domain := match.Domain(e.RootURL); domain != "" {
			idx.byDomain[domain] = append(idx.byDomain[domain], e)
		}
	}
	return idx
}

// pickBest chooses among multiple entries sharing one lookup key. Profiles
// beat products, active status beats the rest, and closer raw-name
// similarity to the record's name breaks remaining ties.
func pickBest(candidates []Entry, recordName string) (Entry, bool) {
	if len(candidates) == 0 {
		return Entry{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	recordRaw := match.RawKey(recordName)
	best := candidates[0]
	bestScore := -1.0
	for _, e := range candidates {
		score := 0.0
		if e.Type == TypeProfile {
			score += 2.0
		}
		switch e.Status {
		case "Active":
			score += 1.0
		case "Live":
			score += 0.8
		}
		score += match.Similarity(match.RawKey(e.Name), recordRaw)
		if score > bestScore {
			best = e
			bestScore = score
		}
	}
	return best, true
}

// confidence scores how well a record name matches an entry name: 1.0 for
// equal normalized forms, 0.98 for equal raw forms, 0.90 for containment,
// else fuzzy similarity of the normalized forms.
func confidence(recordName, entryName string) float64 {
	normRecord := match.Normalize(recordName)
	normEntry := match.Normalize(entryName)
	if normRecord == normEntry {
		return 1.0
	}

	rawRecord := match.RawKey(recordName)
	rawEntry := match.RawKey(entryName)
	if rawRecord == rawEntry {
		return 0.98
	}
	if rawRecord != "" && rawEntry != "" &&
		(strings.Contains(rawEntry, rawRecord) || strings.Contains(rawRecord, rawEntry)) {
		return 0.90
	}
	return match.Similarity(normRecord, normEntry)
}

// meaningfulWords lowercases, strips punctuation, splits, and drops stop
// words. Used by the word-overlap guard.
func meaningfulWords(name string) map[string]bool {
	stop := map[string]bool{
		"the": true, "a": true, "an": true, "of": true, "and": true,
		"for": true, "on": true, "in": true, "by": true, "is": true,
	}
	words := make(map[string]bool)
	for _, w := range strings.Fields(nonAlnumSpace.ReplaceAllString(strings.ToLower(name), "")) {
		if !stop[w] {
			words[w] = true
		}
	}
	return words
}
