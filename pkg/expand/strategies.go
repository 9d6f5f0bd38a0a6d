package expand

import (
	"context"
	"regexp"
	"strings"

	"github.com/corralhq/corral/pkg/logging"
	"github.com/corralhq/corral/pkg/match"
	"github.com/corralhq/corral/pkg/records"
)

// Strategy names, in the default execution order.
const (
	StrategyName   = "name"
	StrategyDomain = "domain"
	StrategySlug   = "slug"
	StrategySocial = "social"
)

// DefaultStrategies runs the cheap batch strategies plus slug lookup. The
// social strategy crawls catalog socials per root and is opt-in.
var DefaultStrategies = []string{StrategyName, StrategyDomain, StrategySlug}

// candidate is a record (by index) still awaiting a match.
type candidate struct {
	idx int
	rec *records.Record
}

// matchName matches candidate names against the batch name index, applying
// three guards before accepting: word overlap, domain cross-check, and
// normalization sensitivity.
func (m *Matcher) matchName(candidates []candidate, idx *index) []Match {
	var out []Match
	for _, c := range candidates {
		name := c.rec.GetTrimmed(records.FieldName)
		if name == "" {
			continue
		}

		norm := match.Normalize(name)
		if len(norm) < m.minNormLen {
			continue
		}
		entries := idx.byName[norm]
		if len(entries) == 0 {
			if raw := match.RawKey(name); len(raw) >= m.minNormLen {
				entries = idx.byName[raw]
			}
		}

		best, ok := pickBest(entries, name)
		if !ok {
			continue
		}
		conf := confidence(name, best.Name)
		if conf < m.threshold {
			continue
		}

		// Guard: names that share no meaningful words are likely different
		// projects even when the normalized keys collide.
		recordWords := meaningfulWords(name)
		entryWords := meaningfulWords(best.Name)
		if len(recordWords) > 0 && len(entryWords) > 0 && !overlaps(recordWords, entryWords) {
			continue
		}

		rawRecord := match.RawKey(name)
		rawEntry := match.RawKey(best.Name)

		// Guard: raw names differ and both sides have URLs. Disagreeing
		// domains mean high false-positive risk, so require near-identical
		// raw names.
		if rawRecord != rawEntry {
			recDomain := match.Domain(c.rec.GetTrimmed(records.FieldWebsite))
			entryDomain := match.Domain(best.RootURL)
			if recDomain != "" && entryDomain != "" && recDomain != entryDomain {
				if match.Similarity(rawRecord, rawEntry) < 0.90 {
					continue
				}
			}
		}

		// Guard: normalization stripped something material from the record's
		// name. If the raw names also differ, demand high raw similarity.
		if norm != rawRecord && rawRecord != rawEntry {
			if match.Similarity(rawRecord, rawEntry) < 0.85 {
				continue
			}
		}

		out = append(out, Match{Index: c.idx, Entry: best, Method: StrategyName, Confidence: conf})
	}
	return out
}

// matchDomain matches candidate website domains against catalog root
// domains. Exact domain agreement is strong evidence, so confidence is a
// flat 0.95, but generic shared domains are excluded outright.
func (m *Matcher) matchDomain(candidates []candidate, idx *index) []Match {
	var out []Match
	for _, c := range candidates {
		domain := match.Domain(c.rec.GetTrimmed(records.FieldWebsite))
		if len(domain) < 4 || m.excludedDomains[domain] {
			continue
		}
		entries := idx.byDomain[domain]
		if len(entries) == 0 {
			continue
		}
		best, ok := pickBest(entries, c.rec.GetTrimmed(records.FieldName))
		if !ok {
			continue
		}
		out = append(out, Match{Index: c.idx, Entry: best, Method: StrategyDomain, Confidence: 0.95})
	}
	return out
}

// matchSlug generates candidate slugs from each record's name and domain and
// resolves them directly against the catalog, short-circuiting per record on
// the first hit. One network call per candidate slug.
func (m *Matcher) matchSlug(ctx context.Context, candidates []candidate) ([]Match, error) {
	var out []Match
	for _, c := range candidates {
		name := c.rec.GetTrimmed(records.FieldName)
		if name == "" {
			continue
		}

		for _, slug := range generateSlugs(name, c.rec.GetTrimmed(records.FieldWebsite)) {
			if len(slug) < 3 {
				continue
			}
			entry, err := m.source.RootBySlug(ctx, slug)
			if err != nil {
				// Provider trouble aborts this record's lookups, not the
				// whole expansion run.
				logging.Ctx(ctx).Warn().Err(err).Str("slug", slug).Msg("slug lookup failed")
				break
			}
			if entry == nil {
				continue
			}
			if conf := confidence(name, entry.Name); conf >= m.slugThreshold {
				out = append(out, Match{Index: c.idx, Entry: *entry, Method: StrategySlug, Confidence: conf})
				break
			}
		}
	}
	return out, nil
}

// matchSocial cross-references the records' social handles against handles
// crawled from catalog roots. The crawl walks profile entries and stops
// early once every candidate handle is resolved.
func (m *Matcher) matchSocial(ctx context.Context, candidates []candidate, entries []Entry) ([]Match, error) {
	handleToRecords := make(map[string][]candidate)
	for _, c := range candidates {
		handle := strings.ToLower(c.rec.GetTrimmed(records.FieldXHandle))
		handle = strings.TrimPrefix(handle, "@")
		if len(handle) > 1 {
			handleToRecords[handle] = append(handleToRecords[handle], c)
		}
	}
	if len(handleToRecords) == 0 {
		return nil, nil
	}

	var out []Match
	matched := make(map[int]bool)
	seenRoots := make(map[string]bool)

	for _, e := range entries {
		if e.Type != TypeProfile || e.RootID == "" || seenRoots[e.RootID] {
			continue
		}
		seenRoots[e.RootID] = true

		handles, err := m.source.RootTwitterHandles(ctx, e.RootID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("root_id", e.RootID).Msg("social lookup failed")
			continue
		}
		for _, handle := range handles {
			for _, c := range handleToRecords[handle] {
				if matched[c.idx] {
					continue
				}
				matched[c.idx] = true
				out = append(out, Match{Index: c.idx, Entry: e, Method: StrategySocial, Confidence: 0.92})
			}
		}

		if len(matched) == countRecords(handleToRecords) {
			break
		}
	}
	return out, nil
}

func countRecords(handleToRecords map[string][]candidate) int {
	n := 0
	for _, recs := range handleToRecords {
		n += len(recs)
	}
	return n
}

func overlaps(a, b map[string]bool) bool {
	for w := range a {
		if b[w] {
			return true
		}
	}
	return false
}

var (
	slugUnderscore = regexp.MustCompile(`[^a-z0-9_]`)
	slugHyphen     = regexp.MustCompile(`[^a-z0-9-]`)
	underscoreRuns = regexp.MustCompile(`_+`)
	hyphenRuns     = regexp.MustCompile(`-+`)
)

// generateSlugs derives candidate catalog slugs from a name and website:
// underscored name, hyphenated name, underscored domain, and the domain's
// first label.
func generateSlugs(name, website string) []string {
	var slugs []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			slugs = append(slugs, s)
			seen[s] = true
		}
	}

	lower := strings.ToLower(name)
	under := strings.NewReplacer(" ", "_", "-", "_").Replace(lower)
	under = strings.Trim(underscoreRuns.ReplaceAllString(slugUnderscore.ReplaceAllString(under, ""), "_"), "_")
	add(under)

	hyphen := strings.NewReplacer(" ", "-", "_", "-").Replace(lower)
	hyphen = strings.Trim(hyphenRuns.ReplaceAllString(slugHyphen.ReplaceAllString(hyphen, ""), "-"), "-")
	add(hyphen)

	if domain := match.Domain(website); domain != "" {
		domainSlug := strings.NewReplacer(".", "_", "-", "_").Replace(domain)
		add(strings.Trim(underscoreRuns.ReplaceAllString(domainSlug, "_"), "_"))
		if label, _, ok := strings.Cut(domain, "."); ok {
			add(label)
		}
	}
	return slugs
}
