package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/cmd/corral/app"
)

func TestImportCommandPreview(t *testing.T) {
	t.Chdir(t.TempDir())

	var err error
	application, err = app.New("test", "", "")
	require.NoError(t, err)

	input := "Name\tWebsite\nThala\thttps://thala.fi\n"
	path := filepath.Join(t.TempDir(), "fresh.tsv")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	var buf bytes.Buffer
	importCmd.SetOut(&buf)
	require.NoError(t, runImport(importCmd, []string{"aptos", path}))

	out := buf.String()
	// Column mapping confidences are labels, not numbers.
	assert.Contains(t, out, "exact")
	assert.Contains(t, out, "Preview only")
}
