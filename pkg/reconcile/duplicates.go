package reconcile

import (
	"strings"

	"github.com/corralhq/corral/pkg/match"
	"github.com/corralhq/corral/pkg/records"
)

// Match methods recorded on duplicates.
const (
	MethodName = "name"
	MethodURL  = "url"
)

// DefaultThreshold is the fuzzy name-similarity floor for duplicate
// detection.
const DefaultThreshold = 0.8

// Duplicate pairs an incoming record with the existing record it collides
// with, plus how and how confidently the link was made.
type Duplicate struct {
	Incoming *records.Record
	Existing *records.Record
	Score    float64
	Method   string
}

// FindDuplicates links incoming records against the existing corpus. Name
// matching via match.FindMatch runs first; when it fails, an exact match of
// the normalized website URL is tried. A record that matches neither way is
// returned in the new slice.
func FindDuplicates(incoming, existing []*records.Record, threshold float64) ([]Duplicate, []*records.Record) {
	existingNames := make([]string, len(existing))
	for i, r := range existing {
		existingNames[i] = r.Get(records.FieldName)
	}
	existingByURL := make(map[string]int)
	for i, r := range existing {
		if url := match.NormalizeURL(r.GetTrimmed(records.FieldWebsite)); url != "" {
			if _, ok := existingByURL[url]; !ok {
				existingByURL[url] = i
			}
		}
	}

	var duplicates []Duplicate
	var fresh []*records.Record

	for _, in := range incoming {
		name := in.Get(records.FieldName)
		matched := false

		if strings.TrimSpace(name) != "" {
			if matchName, score := match.FindMatch(name, existingNames, threshold); matchName != "" {
				for _, ex := range existing {
					if ex.Get(records.FieldName) == matchName {
						duplicates = append(duplicates, Duplicate{
							Incoming: in,
							Existing: ex,
							Score:    score,
							Method:   MethodName,
						})
						matched = true
						break
					}
				}
			}
		}

		if !matched {
			if url := match.NormalizeURL(in.GetTrimmed(records.FieldWebsite)); url != "" {
				if idx, ok := existingByURL[url]; ok {
					duplicates = append(duplicates, Duplicate{
						Incoming: in,
						Existing: existing[idx],
						Score:    1.0,
						Method:   MethodURL,
					})
					matched = true
				}
			}
		}

		if !matched {
			fresh = append(fresh, in)
		}
	}
	return duplicates, fresh
}
