package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/pkg/errors"
)

func TestRecordOrderPreserved(t *testing.T) {
	r := New()
	r.Set("c", "3")
	r.Set("a", "1")
	r.Set("b", "2")
	assert.Equal(t, []string{"c", "a", "b"}, r.Fields())

	// Rewriting a value keeps the original position.
	r.Set("a", "one")
	assert.Equal(t, []string{"c", "a", "b"}, r.Fields())
	assert.Equal(t, "one", r.Get("a"))
}

func TestFromMapHonorsOrder(t *testing.T) {
	r := FromMap(map[string]string{"b": "2", "a": "1"}, []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, r.Fields())
}

func TestGetTrimmed(t *testing.T) {
	r := New()
	r.Set(FieldName, "  Thala  ")
	assert.Equal(t, "Thala", r.GetTrimmed(FieldName))
	assert.Equal(t, "", r.GetTrimmed("absent"))
}

func TestDelete(t *testing.T) {
	r := FromMap(map[string]string{"a": "1", "b": "2"}, []string{"a", "b"})
	r.Delete("a")
	assert.False(t, r.Has("a"))
	assert.Equal(t, []string{"b"}, r.Fields())
	r.Delete("a") // idempotent
}

func TestCloneIndependence(t *testing.T) {
	r := FromMap(map[string]string{FieldName: "Thala"}, []string{FieldName})
	c := r.Clone()
	c.Set(FieldName, "Changed")
	c.Set(FieldWebsite, "https://x.example")

	assert.Equal(t, "Thala", r.Get(FieldName))
	assert.False(t, r.Has(FieldWebsite))
}

func TestProjectSchemaFirstThenExtras(t *testing.T) {
	r := New()
	r.Set("Internal ID", "42")
	r.Set(FieldName, "Thala")

	p := r.Project(Default())
	fields := p.Fields()
	assert.Equal(t, FieldName, fields[0])
	assert.Equal(t, "Internal ID", fields[len(fields)-1])
	assert.Equal(t, "42", p.Get("Internal ID"))
	assert.Equal(t, "", p.Get(FieldWebsite))
}

func TestDefaultSchema(t *testing.T) {
	s := Default()
	assert.True(t, s.Has(FieldName))
	assert.True(t, s.IsRequired(FieldName))
	assert.False(t, s.IsRequired(FieldWebsite))
	assert.True(t, s.IsComputed(FieldFinalStatus))
	assert.Equal(t, []string{FieldFinalStatus}, s.Computed())
}

func TestSchemaValidate(t *testing.T) {
	s := Default()

	ok := FromMap(map[string]string{FieldName: "Thala"}, []string{FieldName})
	require.NoError(t, s.Validate([]*Record{ok}))

	bad := FromMap(map[string]string{FieldName: "   "}, []string{FieldName})
	err := s.Validate([]*Record{ok, bad})
	assert.True(t, errors.IsValidationError(err))
}

func TestRichnessWeights(t *testing.T) {
	rich := FromMap(map[string]string{
		FieldName:   "Thala",
		FieldRootID: "abc",
	}, []string{FieldName, FieldRootID})
	poor := FromMap(map[string]string{
		FieldName:  "Thala",
		FieldNotes: "a note",
	}, []string{FieldName, FieldNotes})

	assert.Greater(t, Richness(rich, DefaultWeights), Richness(poor, DefaultWeights))
}

func TestRichnessBoolFieldsCountOnlyWhenTrue(t *testing.T) {
	truthy := FromMap(map[string]string{FieldSuspect: "TRUE"}, []string{FieldSuspect})
	falsy := FromMap(map[string]string{FieldSuspect: "FALSE"}, []string{FieldSuspect})

	assert.Greater(t, Richness(truthy, DefaultWeights), Richness(falsy, DefaultWeights))
}

func TestIsTrue(t *testing.T) {
	assert.True(t, IsTrue("TRUE"))
	assert.True(t, IsTrue("true"))
	assert.True(t, IsTrue(" True "))
	assert.False(t, IsTrue("FALSE"))
	assert.False(t, IsTrue(""))
}
