package records

import "strings"

// boolTrue is the stored representation of a set boolean flag. The tabular
// store has no native booleans, so flags are the strings TRUE/FALSE/"".
const boolTrue = "TRUE"

// DefaultWeights scores fields by how much a populated value says about a
// record. Cross-reference fields dominate: a record already matched to the
// reference catalog is almost always the better merge base.
var DefaultWeights = map[string]int{
	FieldMatchedURL:  10,
	FieldRootID:      10,
	FieldProfileName: 10,
	FieldWebsite:     5,
	FieldSuspect:     5,
	FieldXLink:       3,
	FieldXHandle:     3,
	FieldAdoption:    3,
	FieldEvidence:    3,
	FieldTelegram:    2,
	FieldCategory:    1,
	FieldNotes:       1,
}

// BoolFields are flag fields where TRUE wins during merges and only a TRUE
// value counts toward richness.
var BoolFields = map[string]bool{
	FieldSuspect:  true,
	FieldAdoption: true,
	FieldWebOnly:  true,
}

// Richness scores a record by weighted presence of important fields.
// Boolean flags count only when TRUE. Used to pick the base of a merge
// group: highest score wins, input order breaks ties.
func Richness(r *Record, weights map[string]int) int {
	if weights == nil {
		weights = DefaultWeights
	}
	score := 0
	for field, weight := range weights {
		val := r.GetTrimmed(field)
		if val == "" || val == "FALSE" {
			continue
		}
		if BoolFields[field] {
			if val == boolTrue {
				score += weight
			}
			continue
		}
		score += weight
	}
	return score
}

// IsTrue reports whether a stored flag value is set. Hand-edited sheets
// arrive with mixed casing and stray whitespace.
func IsTrue(val string) bool {
	return strings.EqualFold(strings.TrimSpace(val), boolTrue)
}
