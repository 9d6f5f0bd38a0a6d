package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/records"
)

func testRecord(values map[string]string) *records.Record {
	order := []string{records.FieldName, records.FieldWebsite, records.FieldBucket}
	return records.FromMap(values, order)
}

func TestCSVSaveLoadRoundTrip(t *testing.T) {
	s := NewCSV(t.TempDir(), nil)

	recs := []*records.Record{
		testRecord(map[string]string{
			records.FieldName:    "Thala",
			records.FieldWebsite: "https://thala.fi",
			records.FieldBucket:  "aptos",
		}),
		testRecord(map[string]string{
			records.FieldName: "Aries",
		}),
	}
	require.NoError(t, s.Save(recs, "aptos"))

	loaded, err := s.Load("aptos")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Thala", loaded[0].Get(records.FieldName))
	assert.Equal(t, "https://thala.fi", loaded[0].Get(records.FieldWebsite))
	assert.Equal(t, "Aries", loaded[1].Get(records.FieldName))
	assert.Equal(t, "", loaded[1].Get(records.FieldWebsite))
}

func TestCSVLoadMissingCorpus(t *testing.T) {
	s := NewCSV(t.TempDir(), nil)
	_, err := s.Load("nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestCSVColumnOrderSchemaFirstThenExtras(t *testing.T) {
	s := NewCSV(t.TempDir(), nil)

	rec := testRecord(map[string]string{records.FieldName: "Thala"})
	rec.Set("Internal ID", "42")
	require.NoError(t, s.Save([]*records.Record{rec}, "aptos"))

	data, err := os.ReadFile(s.Path("aptos"))
	require.NoError(t, err)
	header := strings.SplitN(string(data), "\n", 2)[0]

	assert.True(t, strings.HasPrefix(header, records.FieldName+","))
	assert.True(t, strings.HasSuffix(strings.TrimRight(header, "\r"), ",Internal ID"))
}

func TestCSVSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	s := NewCSV(dir, nil)

	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Thala"})}, "aptos"))
	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Aries"})}, "aptos"))

	loaded, err := s.Load("aptos")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Aries", loaded[0].Get(records.FieldName))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(s.Path("aptos")))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestCSVBackupRestore(t *testing.T) {
	s := NewCSV(t.TempDir(), nil)

	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Thala"})}, "aptos"))

	handle, err := s.Backup("aptos", "pre-dedupe")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(handle), "pre-dedupe")

	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Mangled"})}, "aptos"))
	require.NoError(t, s.Restore(handle, "aptos"))

	loaded, err := s.Load("aptos")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Thala", loaded[0].Get(records.FieldName))
}

func TestCSVDiscardBackup(t *testing.T) {
	s := NewCSV(t.TempDir(), nil)
	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Thala"})}, "aptos"))

	handle, err := s.Backup("aptos", "pre-step")
	require.NoError(t, err)

	require.NoError(t, s.DiscardBackup(handle))
	_, statErr := os.Stat(handle)
	assert.True(t, os.IsNotExist(statErr))

	// Discarding twice is fine.
	require.NoError(t, s.DiscardBackup(handle))
}

func TestCSVBackupMissingCorpus(t *testing.T) {
	s := NewCSV(t.TempDir(), nil)
	_, err := s.Backup("nope", "pre-dedupe")
	assert.Error(t, err)
}

func TestMemoryImplementsStore(t *testing.T) {
	var _ Store = NewMemory()
	var _ Store = NewCSV(t.TempDir(), nil)
}

func TestMemoryBackupRestore(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Thala"})}, "aptos"))

	handle, err := s.Backup("aptos", "pre-step")
	require.NoError(t, err)

	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Mangled"})}, "aptos"))
	require.NoError(t, s.Restore(handle, "aptos"))

	loaded, err := s.Load("aptos")
	require.NoError(t, err)
	assert.Equal(t, "Thala", loaded[0].Get(records.FieldName))
}

func TestMemoryLoadIsolation(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Save([]*records.Record{testRecord(map[string]string{records.FieldName: "Thala"})}, "aptos"))

	first, err := s.Load("aptos")
	require.NoError(t, err)
	first[0].Set(records.FieldName, "Mutated")

	second, err := s.Load("aptos")
	require.NoError(t, err)
	assert.Equal(t, "Thala", second[0].Get(records.FieldName))
}
