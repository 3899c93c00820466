package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadCommand(t *testing.T) {
	h := newHarness(t)
	defer h.close()

	dep := h.zen.AddPublished(map[string]string{"S1.tgz": "payload", "README": "read me"})
	h.gh.Commit("ufo-models", "catalog", "Metadata/S1.json", `{"Model Doi": "`+dep.DOI()+`"}`)
	dir := filepath.Join(h.dir, "downloads")

	stdout, stderr, err := h.execute("download", "--dir", dir, "S1")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "S1", "S1.tgz"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.FileExists(t, filepath.Join(dir, "S1", "README"))

	assert.Contains(t, stdout, "S1.json: 2 files in "+filepath.Join(dir, "S1"))
	assert.Contains(t, stderr, "100%")
	assert.Contains(t, stderr, "✓ 1 of 1 models downloaded")
}

func TestDownloadPrompts(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, "S1.json, ", filepath.Join(dir, "models"))
	defer h.close()

	dep := h.zen.AddPublished(map[string]string{"S1.tgz": "payload"})
	h.gh.Commit("ufo-models", "catalog", "Metadata/S1.json", `{"Model Doi": "`+dep.DOI()+`"}`)

	_, _, err := h.execute("download")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "models", "S1", "S1.tgz"))
	assert.Equal(t, []string{
		"Enter a comma separated list of metadata filenames to download:",
		"Please name your download folder:",
	}, h.script.Asked)
}

func TestDownloadSuggestsCatalogFiles(t *testing.T) {
	h := newHarness(t)
	defer h.close()

	_, stderr, err := h.execute("download", "-d", filepath.Join(h.dir, "downloads"), "SM_NL0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 downloads failed")
	assert.Contains(t, stderr, "CATALOG FILE NOT FOUND")
	assert.Contains(t, stderr, "SM_NL0.json")
	assert.Contains(t, stderr, "SM_NLO.json")
}

func TestCatalogNames(t *testing.T) {
	assert.Equal(t, []string{"S1.json", "S2.V2.json"}, catalogNames([]string{" S1", "", "S2.V2.json ", "  "}))
	assert.Nil(t, catalogNames([]string{""}))
}
