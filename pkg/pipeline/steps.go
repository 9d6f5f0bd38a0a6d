package pipeline

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/corralhq/corral/pkg/dedupe"
	"github.com/corralhq/corral/pkg/expand"
	"github.com/corralhq/corral/pkg/logging"
	"github.com/corralhq/corral/pkg/match"
	"github.com/corralhq/corral/pkg/records"
)

// DedupeStep collapses duplicate records using a dedupe engine.
type DedupeStep struct {
	Engine *dedupe.Engine
}

func (s *DedupeStep) Name() string        { return "dedupe" }
func (s *DedupeStep) Description() string { return "Merge exact and fuzzy duplicate records" }

func (s *DedupeStep) Run(ctx context.Context, st *State) (Result, error) {
	engine := s.Engine
	if engine == nil {
		engine = dedupe.New()
	}
	deduped, res := engine.Deduplicate(st.Records)
	st.Records = deduped
	return Result{
		"total":         res.Total,
		"unique":        res.Unique,
		"exact_removed": res.ExactRemoved,
		"fuzzy_removed": res.FuzzyRemoved,
	}, nil
}

// ExpandStep links unmatched records to the reference catalog and writes
// the match columns onto the records it resolves.
type ExpandStep struct {
	Matcher *expand.Matcher
}

func (s *ExpandStep) Name() string        { return "expand" }
func (s *ExpandStep) Description() string { return "Match records against the reference catalog" }

func (s *ExpandStep) Run(ctx context.Context, st *State) (Result, error) {
	res, err := s.Matcher.Expand(ctx, st.Records)
	if err != nil {
		return nil, err
	}
	expand.Apply(st.Records, res.Matches)

	out := Result{
		"total":      res.Total,
		"candidates": res.Candidates,
		"matched":    res.Matched,
	}
	for strategy, n := range res.ByStrategy {
		out["matched_"+strategy] = n
	}
	return out, nil
}

// Provider looks up supplementary data for a record by name. Implementations
// wrap external data services; a lookup miss is reported as empty data, not
// an error.
type Provider interface {
	// Name identifies the provider in logs and Source annotations.
	Name() string

	// Fetch returns field values keyed by record field name for the given
	// project name. A nil or empty map means the provider knows nothing
	// about the project.
	Fetch(ctx context.Context, query string) (map[string]string, error)
}

// EnrichStep fills empty record fields from an external provider. Provider
// errors are logged and treated as misses so one flaky lookup does not fail
// the whole run.
type EnrichStep struct {
	Provider Provider
}

func (s *EnrichStep) Name() string { return "enrich-" + s.Provider.Name() }

func (s *EnrichStep) Description() string {
	return "Fill empty fields from " + s.Provider.Name()
}

func (s *EnrichStep) Run(ctx context.Context, st *State) (Result, error) {
	log := logging.Ctx(ctx)
	enriched := 0
	misses := 0

	for _, rec := range st.Records {
		name := rec.GetTrimmed(records.FieldName)
		if name == "" {
			continue
		}

		data, err := s.Provider.Fetch(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("project", name).Msg("provider lookup failed")
			misses++
			continue
		}
		if len(data) == 0 {
			misses++
			continue
		}

		filled := false
		for field, value := range data {
			if strings.TrimSpace(value) == "" {
				continue
			}
			if rec.GetTrimmed(field) != "" {
				continue
			}
			rec.Set(field, strings.TrimSpace(value))
			filled = true
		}
		if filled {
			enriched++
		}
	}

	return Result{
		"total":    len(st.Records),
		"enriched": enriched,
		"misses":   misses,
	}, nil
}

var spaceRunRE = regexp.MustCompile(`\s+`)

// DefaultNoteSources are the scraper names whose "CATEGORIES from SOURCE"
// preambles get stripped from Notes.
var DefaultNoteSources = []string{"Generic Scraper"}

// NotesCleanupStep strips scraper preambles, emoji, and trailing punctuation
// from the Notes column. Only the first " | " segment is cleaned; later
// segments hold enrichment findings and pass through untouched.
type NotesCleanupStep struct {
	// Sources are the scraper names recognized in preambles. Defaults to
	// DefaultNoteSources.
	Sources []string
}

func (s *NotesCleanupStep) Name() string        { return "notes" }
func (s *NotesCleanupStep) Description() string { return "Clean scraper noise out of Notes" }

func (s *NotesCleanupStep) Run(ctx context.Context, st *State) (Result, error) {
	sources := s.Sources
	if len(sources) == 0 {
		sources = DefaultNoteSources
	}
	cleaner := NewNoteCleaner(sources)

	cleaned := 0
	for _, rec := range st.Records {
		before := rec.Get(records.FieldNotes)
		after := cleaner.Clean(before)
		if after != before {
			rec.Set(records.FieldNotes, after)
			cleaned++
		}
	}
	return Result{
		"total":     len(st.Records),
		"cleaned":   cleaned,
		"unchanged": len(st.Records) - cleaned,
	}, nil
}

// NoteCleaner normalizes Notes values. Scraper ingests leave a
// "CATEGORIES from SOURCE - description" preamble; categories and source
// already have their own columns so the prefix is pure noise. Only preambles
// naming a known source are stripped.
type NoteCleaner struct {
	prefixRE *regexp.Regexp
	bareRE   *regexp.Regexp
}

// NewNoteCleaner builds a cleaner recognizing the given scraper names.
func NewNoteCleaner(sources []string) *NoteCleaner {
	quoted := make([]string, len(sources))
	for i, src := range sources {
		quoted[i] = regexp.QuoteMeta(src)
	}
	alt := strings.Join(quoted, "|")
	return &NoteCleaner{
		prefixRE: regexp.MustCompile(`(?i)^.+?\s+from\s+(?:` + alt + `)\s*-\s*`),
		bareRE:   regexp.MustCompile(`(?i)^.+?\s+from\s+(?:` + alt + `)\s*$`),
	}
}

// Clean normalizes a single Notes value.
func (c *NoteCleaner) Clean(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return ""
	}

	parts := strings.Split(note, " | ")
	head := parts[0]

	if c.bareRE.MatchString(head) {
		head = ""
	} else {
		head = c.prefixRE.ReplaceAllString(head, "")
	}

	head = stripEmoji(head)
	head = spaceRunRE.ReplaceAllString(head, " ")
	head = strings.Trim(head, " -;|,.")

	out := []string{}
	if head != "" {
		out = append(out, head)
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

func stripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows, stars
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D || r == 0x2122 || r == 0x00A9 || r == 0x00AE:
		return true
	case r >= 0x2190 && r <= 0x21FF && !unicode.IsLetter(r):
		return true
	}
	return false
}

// SourceFixupStep replaces a placeholder scraper name in the Source column
// with the hostname of the record's website, deduplicating the resulting
// source list.
type SourceFixupStep struct {
	// Placeholder is the source value to replace. Defaults to
	// "Generic Scraper".
	Placeholder string
}

func (s *SourceFixupStep) Name() string        { return "sources" }
func (s *SourceFixupStep) Description() string { return "Replace placeholder Source values" }

func (s *SourceFixupStep) Run(ctx context.Context, st *State) (Result, error) {
	placeholder := s.Placeholder
	if placeholder == "" {
		placeholder = "Generic Scraper"
	}

	fixed := 0
	ok := 0
	for _, rec := range st.Records {
		source := rec.GetTrimmed(records.FieldSource)
		if !strings.Contains(source, placeholder) {
			ok++
			continue
		}

		replacement := match.Domain(rec.GetTrimmed(records.FieldWebsite))
		if replacement == "" {
			ok++
			continue
		}

		rec.Set(records.FieldSource, dedupeSources(strings.ReplaceAll(source, placeholder, replacement)))
		fixed++
	}
	return Result{
		"total":      len(st.Records),
		"fixed":      fixed,
		"already_ok": ok,
	}, nil
}

func dedupeSources(source string) string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range strings.Split(source, ";") {
		p = strings.TrimSpace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		out = append(out, p)
	}
	return strings.Join(out, "; ")
}
