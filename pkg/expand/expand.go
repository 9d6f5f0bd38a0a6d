package expand

import (
	"context"
	"strings"

	"github.com/corralhq/corral/pkg/logging"
	"github.com/corralhq/corral/pkg/records"
)

// Marker is appended to a record's evidence when expansion matches it, so
// incremental runs skip records already processed.
const Marker = "expanded-ref"

// DefaultThreshold is the minimum confidence for a name-strategy match.
const DefaultThreshold = 0.85

// DefaultSlugThreshold is the minimum confidence for a slug-strategy match,
// slightly lower because the slug itself already had to resolve.
const DefaultSlugThreshold = 0.80

// DefaultMinNormalizedLen rejects normalized names too short to match
// safely.
const DefaultMinNormalizedLen = 4

// DefaultExcludedDomains are too generic for domain matching: social
// platforms and shared hosting that many unrelated projects sit on.
var DefaultExcludedDomains = []string{
	"x.com", "twitter.com", "t.me", "telegram.org",
	"discord.gg", "discord.com", "github.com", "youtube.com",
	"reddit.com", "medium.com", "mirror.xyz", "linkedin.com",
	"facebook.com", "instagram.com", "google.com", "apple.com",
}

// Match links one record (by index into the expanded slice) to a catalog
// entry.
type Match struct {
	Index      int
	Entry      Entry
	Method     string
	Confidence float64
}

// Result summarizes an expansion run.
type Result struct {
	Total      int
	Candidates int
	Matched    int
	ByStrategy map[string]int
	Matches    []Match
}

// Matcher runs expansion strategies against a catalog source. Construct with
// New.
type Matcher struct {
	source          Source
	strategies      []string
	threshold       float64
	slugThreshold   float64
	minNormLen      int
	excludedDomains map[string]bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithStrategies overrides the strategy execution order.
func WithStrategies(strategies ...string) Option {
	return func(m *Matcher) {
		if len(strategies) > 0 {
			m.strategies = strategies
		}
	}
}

// WithThreshold overrides the name-strategy confidence floor.
func WithThreshold(t float64) Option {
	return func(m *Matcher) {
		m.threshold = t
	}
}

// WithExcludedDomains replaces the domain denylist.
func WithExcludedDomains(domains ...string) Option {
	return func(m *Matcher) {
		m.excludedDomains = make(map[string]bool, len(domains))
		for _, d := range domains {
			m.excludedDomains[strings.ToLower(d)] = true
		}
	}
}

// New creates a Matcher reading from the given catalog source.
func New(source Source, opts ...Option) *Matcher {
	m := &Matcher{
		source:        source,
		strategies:    DefaultStrategies,
		threshold:     DefaultThreshold,
		slugThreshold: DefaultSlugThreshold,
		minNormLen:    DefaultMinNormalizedLen,
	}
	m.excludedDomains = make(map[string]bool, len(DefaultExcludedDomains))
	for _, d := range DefaultExcludedDomains {
		m.excludedDomains[d] = true
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expand finds matches for every record that still lacks a reference link.
// Strategies run in order; a record matched by an earlier strategy is
// invisible to later ones. The records themselves are not modified; pass
// the result to Apply to write matches back.
func (m *Matcher) Expand(ctx context.Context, recs []*records.Record) (*Result, error) {
	result := &Result{Total: len(recs), ByStrategy: make(map[string]int)}

	var candidates []candidate
	for i, r := range recs {
		if !needsMatch(r) {
			continue
		}
		candidates = append(candidates, candidate{idx: i, rec: r})
	}
	result.Candidates = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	var entries []Entry
	var idx *index
	if m.needsBatch() {
		var err error
		entries, err = m.source.Entries(ctx)
		if err != nil {
			return nil, err
		}
		idx = buildIndex(entries)
		logging.Ctx(ctx).Debug().
			Int("entries", len(entries)).
			Int("name_keys", len(idx.byName)).
			Int("domains", len(idx.byDomain)).
			Msg("built catalog indexes")
	}

	matched := make(map[int]bool)
	remaining := func() []candidate {
		var out []candidate
		for _, c := range candidates {
			if !matched[c.idx] {
				out = append(out, c)
			}
		}
		return out
	}

	for _, strategy := range m.strategies {
		var found []Match
		var err error
		switch strategy {
		case StrategyName:
			found = m.matchName(remaining(), idx)
		case StrategyDomain:
			found = m.matchDomain(remaining(), idx)
		case StrategySlug:
			found, err = m.matchSlug(ctx, remaining())
		case StrategySocial:
			found, err = m.matchSocial(ctx, remaining(), entries)
		default:
			logging.Ctx(ctx).Warn().Str("strategy", strategy).Msg("unknown expansion strategy")
			continue
		}
		if err != nil {
			return nil, err
		}

		kept := 0
		for _, f := range found {
			if matched[f.Index] {
				continue
			}
			matched[f.Index] = true
			result.Matches = append(result.Matches, f)
			kept++
		}
		result.ByStrategy[strategy] = kept
	}

	result.Matched = len(result.Matches)
	return result, nil
}

// needsBatch reports whether any configured strategy requires the bulk
// catalog download.
func (m *Matcher) needsBatch() bool {
	for _, s := range m.strategies {
		if s == StrategyName || s == StrategyDomain || s == StrategySocial {
			return true
		}
	}
	return false
}

// needsMatch reports whether a record is still awaiting a reference link:
// no reference status, no expansion marker, and no human note clearing a
// previous false positive.
func needsMatch(r *records.Record) bool {
	if r.GetTrimmed(records.FieldRefStatus) != "" {
		return false
	}
	if strings.Contains(r.Get(records.FieldEvidence), Marker) {
		return false
	}
	notes := strings.ToLower(r.Get(records.FieldNotes))
	if strings.Contains(notes, "false positive") && strings.Contains(notes, "match cleared") {
		return false
	}
	return true
}

// Apply writes matches back onto the records: reference status, profile
// name, root ID, matched URL, the method tag, and an evidence line with the
// expansion marker.
func Apply(recs []*records.Record, matches []Match) {
	for _, m := range matches {
		if m.Index < 0 || m.Index >= len(recs) {
			continue
		}
		r := recs[m.Index]

		status := m.Entry.Status
		if status == "" {
			status = "Found"
		}
		r.Set(records.FieldRefStatus, status)
		r.Set(records.FieldProfileName, m.Entry.Name)
		r.Set(records.FieldRootID, m.Entry.RootID)
		r.Set(records.FieldMatchedURL, m.Entry.RootURL)
		r.Set(records.FieldMatchedVia, m.Method)

		evidence := "Ref: " + m.Entry.Name + " (" + m.Entry.Type + ")"
		if m.Entry.ProductType != "" {
			evidence += " [" + m.Entry.ProductType + "]"
		}
		evidence += " | " + Marker
		if existing := r.GetTrimmed(records.FieldEvidence); existing != "" {
			evidence = existing + " | " + evidence
		}
		r.Set(records.FieldEvidence, evidence)
	}
}
