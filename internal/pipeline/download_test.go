package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/github"
)

func TestDownload(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := newEnv(t)
	defer e.close()

	dep := e.zen.AddPublished(map[string]string{"S1.tgz": "payload", "README": "read me"})
	e.gh.Commit("ufo-models", "catalog", "Metadata/S1.json", `{"Model Doi": "`+dep.DOI()+`"}`)
	e.gh.Commit("ufo-models", "catalog", "Metadata/Draft.json", `{"Model Doi": "0"}`)

	dir := filepath.Join(t.TempDir(), "downloads")
	results, err := e.p.Download(context.Background(), []string{"S1.json", "Draft.json", "Missing.json"}, dir)
	require.NoError(t, err)
	require.Len(t, results, 3)

	ok := results[0]
	require.NoError(t, ok.Err)
	assert.Equal(t, dep.DOI(), ok.DOI)
	assert.Equal(t, filepath.Join(dir, "S1"), ok.Dir)
	assert.Len(t, ok.Paths, 2)
	data, err := os.ReadFile(filepath.Join(dir, "S1", "S1.tgz"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	var field *errors.MetadataFieldError
	require.ErrorAs(t, results[1].Err, &field)
	assert.True(t, stderrors.Is(results[2].Err, github.ErrNotFound))
}
