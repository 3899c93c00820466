package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ufo-models/ufometa/internal/cli/prompt"
	"github.com/ufo-models/ufometa/internal/github/githubtest"
	"github.com/ufo-models/ufometa/internal/ufotest"
	"github.com/ufo-models/ufometa/internal/zenodo/zenodotest"
)

// harness runs commands against stub Zenodo, GitHub and reference servers
type harness struct {
	t      *testing.T
	dir    string
	zen    *zenodotest.Server
	gh     *githubtest.Server
	refs   *httptest.Server
	script *prompt.Script
	config string
}

func newHarness(t *testing.T, answers ...interface{}) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		dir:    t.TempDir(),
		zen:    zenodotest.New(t, "zen-token"),
		gh:     githubtest.New(t, "gh-token", "alice"),
		script: prompt.NewScript(answers...),
	}

	// every reference resolves unless its path mentions "missing"
	r := chi.NewRouter()
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.URL.Path, "missing") {
			http.NotFound(w, req)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h.refs = httptest.NewServer(r)

	h.gh.AddRepo("ufo-models", "catalog", map[string]string{
		"Metadata/SM_NLO.json": `{"Model name": "SM_NLO", "Paper_id": {"arXiv": "1405.0301"}, "Model Doi": "10.5072/zenodo.7", "All Particles": {"e-": 11, "S0": 9000006}}`,
	})

	h.config = filepath.Join(h.dir, "ufometa.yaml")
	config := fmt.Sprintf(`
zenodo:
  base_url: %s
  token: zen-token
  rate_limit: 1000
github:
  api_url: %s
  raw_url: %s
  token: gh-token
  rate_limit: 1000
  upstream_owner: ufo-models
  upstream_repo: catalog
validation:
  doi_resolver: %s/doi/
  arxiv_resolver: %s/abs/
cache:
  backend: memory
index:
  path: %s
log:
  level: error
`, h.zen.URL, h.gh.URL, h.gh.RawURL(), h.refs.URL, h.refs.URL, filepath.Join(h.dir, "index", "catalog.db"))
	require.NoError(t, os.WriteFile(h.config, []byte(config), 0o644))
	return h
}

func (h *harness) close() {
	h.refs.Close()
	h.zen.Close()
	h.gh.Close()
}

// execute runs the root command with args and returns stdout and stderr
func (h *harness) execute(args ...string) (string, string, error) {
	app := &App{
		Prompter:  h.script,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	cmd := newRootCommand(app)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", h.config, "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func metadata(extra ...string) string {
	fields := []string{
		`"Author": [{"name": "Ada", "contact": "ada@example.org", "affiliation": "CERN"}]`,
		`"Paper_id": {"arXiv": "2101.00001"}`,
		`"Description": "A scalar extension"`,
	}
	return "{\n  " + strings.Join(append(fields, extra...), ",\n  ") + "\n}\n"
}

// writePackage lays out dir/<name> holding metadata.json and the decompressed
// model S1
func (h *harness) writePackage(name, meta string) string {
	h.t.Helper()
	pkg := filepath.Join(h.dir, name)
	ufotest.WritePackage(h.t, filepath.Join(pkg, "S1"), ufotest.Files())
	require.NoError(h.t, os.WriteFile(filepath.Join(pkg, "metadata.json"), []byte(meta), 0o644))
	return pkg
}

// writeList writes a model list file naming packages
func (h *harness) writeList(packages ...string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, "models.txt")
	content := "# models to process\n\n" + strings.Join(packages, "\n") + "\n"
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
