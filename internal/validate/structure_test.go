package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/resolve"
)

// fakeResolver fails every reference listed in broken
type fakeResolver struct {
	broken map[string]bool
	seen   []string
}

func (f *fakeResolver) DOI(ctx context.Context, doi string) error {
	return f.URL(ctx, resolve.WhichDOI, "https://doi.org/"+doi)
}

func (f *fakeResolver) ArXiv(ctx context.Context, id string) error {
	return f.URL(ctx, resolve.WhichArXiv, "https://arxiv.org/abs/"+id)
}

func (f *fakeResolver) URL(_ context.Context, which, url string) error {
	f.seen = append(f.seen, url)
	if f.broken[url] {
		return &errors.UnresolvableReferenceError{Which: which, URL: url, Status: 404}
	}
	return nil
}

const validMetadata = `{
  "Author": [
    {"name": "Ada", "contact": "ada@example.org", "affiliation": "CERN"},
    {"name": "Bob"}
  ],
  "Paper_id": {"doi": "10.1000/xyz", "arXiv": "2101.00001"},
  "Description": "A scalar extension",
  "Custom field": [1, 2]
}`

func writeDir(t *testing.T, metadata string, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte(metadata), 0o644))
	}
	for _, name := range extra {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	return dir
}

func TestStructureValidPackage(t *testing.T) {
	dir := writeDir(t, validMetadata, "S1.zip")
	res := &fakeResolver{}

	result, err := Structure(context.Background(), dir, res, StructureOptions{})
	require.NoError(t, err)

	assert.Equal(t, "S1.zip", result.ArchiveName)
	assert.Equal(t, filepath.Join(dir, "S1.zip"), result.Archive)
	assert.False(t, result.IsDir)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "A scalar extension", result.Document.String(catalog.KeyDescription))
	assert.True(t, result.Document.Has("Custom field"))
	assert.Equal(t, []string{"https://doi.org/10.1000/xyz", "https://arxiv.org/abs/2101.00001"}, res.seen)
}

func TestStructureDecompressedDirectory(t *testing.T) {
	dir := writeDir(t, validMetadata)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "S1"), 0o755))

	result, err := Structure(context.Background(), dir, &fakeResolver{}, StructureOptions{})
	require.NoError(t, err)
	assert.True(t, result.IsDir)
	assert.Equal(t, "S1", result.ArchiveName)
}

func TestStructureFailures(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		extra    []string
		field    string
		code     string
	}{
		{
			name:     "three entries",
			metadata: validMetadata,
			extra:    []string{"S1.zip", "README"},
			code:     errors.ErrLayout,
		},
		{
			name:  "no metadata",
			extra: []string{"S1.zip", "notes.json"},
			field: MetadataFile,
			code:  errors.ErrMetadataField,
		},
		{
			name:     "malformed metadata",
			metadata: `{"Author": [`,
			extra:    []string{"S1.zip"},
			field:    MetadataFile,
			code:     errors.ErrMetadataField,
		},
		{
			name:     "author without contact",
			metadata: `{"Author": [{"name": "Ada"}], "Paper_id": {"doi": "10.1000/xyz"}, "Description": "d"}`,
			extra:    []string{"S1.zip"},
			field:    catalog.KeyAuthor,
			code:     errors.ErrMetadataField,
		},
		{
			name:     "author without name",
			metadata: `{"Author": [{"name": " ", "contact": "a@b.org"}], "Paper_id": {"doi": "10.1000/xyz"}, "Description": "d"}`,
			extra:    []string{"S1.zip"},
			field:    catalog.KeyAuthor,
			code:     errors.ErrMetadataField,
		},
		{
			name:     "no authors",
			metadata: `{"Author": [], "Paper_id": {"doi": "10.1000/xyz"}, "Description": "d"}`,
			extra:    []string{"S1.zip"},
			field:    catalog.KeyAuthor,
			code:     errors.ErrMetadataField,
		},
		{
			name:     "paper without ids",
			metadata: `{"Author": [{"name": "Ada", "contact": "a@b.org"}], "Paper_id": {}, "Description": "d"}`,
			extra:    []string{"S1.zip"},
			field:    catalog.KeyPaperID,
			code:     errors.ErrMetadataField,
		},
		{
			name:     "empty description",
			metadata: `{"Author": [{"name": "Ada", "contact": "a@b.org"}], "Paper_id": {"arXiv": "2101.00001"}, "Description": "  "}`,
			extra:    []string{"S1.zip"},
			field:    catalog.KeyDescription,
			code:     errors.ErrMetadataField,
		},
		{
			name:     "unsupported archive",
			metadata: validMetadata,
			extra:    []string{"S1.rar"},
			code:     errors.ErrInvalidArchiveFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeDir(t, tt.metadata, tt.extra...)

			_, err := Structure(context.Background(), dir, &fakeResolver{}, StructureOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Code(err), "got %v", err)

			if tt.field != "" {
				var field *errors.MetadataFieldError
				require.ErrorAs(t, err, &field)
				assert.Equal(t, tt.field, field.Field)
			}
		})
	}
}

func TestStructureAuthorWithoutContactNamesTheProblem(t *testing.T) {
	dir := writeDir(t, `{"Author": [{"name": "Ada"}, {"name": "Bob"}], "Paper_id": {"doi": "10.1000/xyz"}, "Description": "d"}`, "S1.zip")

	_, err := Structure(context.Background(), dir, &fakeResolver{}, StructureOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact")
}

func TestStructureInvalidEmailIsAWarning(t *testing.T) {
	dir := writeDir(t, `{"Author": [{"name": "Ada", "contact": "ada at cern"}], "Paper_id": {"doi": "10.1000/xyz"}, "Description": "d"}`, "S1.zip")

	result, err := Structure(context.Background(), dir, &fakeResolver{}, StructureOptions{})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "ada at cern")
}

func TestStructureUnresolvableReferences(t *testing.T) {
	metadata := `{
  "Author": [{"name": "Ada", "contact": "ada@example.org"}],
  "Paper_id": {"doi": "10.1000/xyz"},
  "Description": "d",
  "Model Homepage": "https://models.example.org/S1"
}`
	res := &fakeResolver{broken: map[string]bool{"https://models.example.org/S1": true}}

	t.Run("hard failure", func(t *testing.T) {
		dir := writeDir(t, metadata, "S1.zip")

		_, err := Structure(context.Background(), dir, res, StructureOptions{})
		var unresolved *errors.UnresolvableReferenceError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, resolve.WhichHomepage, unresolved.Which)
	})

	t.Run("as warnings", func(t *testing.T) {
		dir := writeDir(t, metadata, "S1.zip")

		result, err := Structure(context.Background(), dir, res, StructureOptions{ReferencesAsWarnings: true})
		require.NoError(t, err)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "https://models.example.org/S1")
	})
}

func TestStructureReportsChecks(t *testing.T) {
	dir := writeDir(t, `{"Author": [{"name": "Ada", "contact": "a@b.org"}], "Paper_id": {}, "Description": "d"}`, "S1.zip")
	rec := &recorder{}

	_, err := Structure(context.Background(), dir, &fakeResolver{}, StructureOptions{Reporter: rec})
	require.Error(t, err)
	assert.Equal(t, []string{"Check paper information in initial metadata"}, rec.failed)
	assert.Len(t, rec.names, 4)
}
