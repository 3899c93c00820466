package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/cli/prompt"
	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/github"
	"github.com/ufo-models/ufometa/internal/github/githubtest"
	"github.com/ufo-models/ufometa/internal/ufotest"
	"github.com/ufo-models/ufometa/internal/zenodo"
	"github.com/ufo-models/ufometa/internal/zenodo/zenodotest"
)

type fakeResolver struct {
	broken map[string]bool
}

func (f *fakeResolver) DOIURL(doi string) string { return "https://doi.org/" + doi }

func (f *fakeResolver) DOI(ctx context.Context, doi string) error {
	return f.URL(ctx, "doi", f.DOIURL(doi))
}

func (f *fakeResolver) ArXiv(ctx context.Context, id string) error {
	return f.URL(ctx, "arXiv", "https://arxiv.org/abs/"+id)
}

func (f *fakeResolver) URL(_ context.Context, which, url string) error {
	if f.broken[url] {
		return &errors.UnresolvableReferenceError{Which: which, URL: url, Status: 404}
	}
	return nil
}

type recorder struct {
	names  []string
	failed []string
}

func (r *recorder) Check(name string, err error) {
	r.names = append(r.names, name)
	if err != nil {
		r.failed = append(r.failed, name)
	}
}

func metadata(extra ...string) string {
	fields := []string{
		`"Author": [{"name": "Ada", "contact": "ada@example.org", "affiliation": "CERN"}, {"name": "Bob"}]`,
		`"Paper_id": {"arXiv": "2101.00001"}`,
		`"Description": "A scalar extension"`,
	}
	return "{\n  " + strings.Join(append(fields, extra...), ",\n  ") + "\n}\n"
}

// writePackage lays out a package directory holding metadata.json and the
// decompressed model directory S1
func writePackage(t *testing.T, meta string) string {
	t.Helper()
	pkg := filepath.Join(t.TempDir(), "pkg")
	ufotest.WritePackage(t, filepath.Join(pkg, "S1"), ufotest.Files())
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "metadata.json"), []byte(meta), 0o644))
	return pkg
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

type env struct {
	zen      *zenodotest.Server
	gh       *githubtest.Server
	script   *prompt.Script
	reporter *recorder
	p        *Pipeline
}

func newEnv(t *testing.T, answers ...interface{}) *env {
	t.Helper()
	e := &env{
		zen:      zenodotest.New(t, "zen-token"),
		gh:       githubtest.New(t, "gh-token", "alice"),
		script:   prompt.NewScript(answers...),
		reporter: &recorder{},
	}
	e.gh.AddRepo("ufo-models", "catalog", map[string]string{
		"Metadata/SM.json": `{"Model name": "SM", "Model Doi": "10.5072/zenodo.7"}`,
	})

	transport := &http.Transport{DisableKeepAlives: true}
	e.p = New(Config{
		Catalog: CatalogRepo{Owner: "ufo-models", Repo: "catalog"},
		Now:     fixedNow,
	}, Deps{
		Resolver: &fakeResolver{},
		Zenodo:   zenodo.New(zenodo.Config{BaseURL: e.zen.URL, Token: "zen-token", RateLimit: 1000, Transport: transport}),
		GitHub: github.New(github.Config{
			APIURL:    e.gh.URL,
			RawURL:    e.gh.RawURL(),
			Token:     "gh-token",
			RateLimit: 1000,
			Transport: transport,
		}),
		Prompter: e.script,
		Reporter: e.reporter,
	})
	return e
}

func (e *env) close() {
	e.zen.Close()
	e.gh.Close()
}

func (e *env) catalogFile(t *testing.T, name string) *catalog.Document {
	t.Helper()
	data, ok := e.gh.File("alice", "catalog", "Metadata/"+name)
	require.True(t, ok, "catalog file %s", name)
	doc, err := catalog.ParseDocument(data)
	require.NoError(t, err)
	return doc
}

func TestReadList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.txt")
	require.NoError(t, os.WriteFile(path, []byte("# models\n\n/data/S1\n  /data/2HDM  \n#/data/old\n"), 0o644))

	packages, err := ReadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/S1", "/data/2HDM"}, packages)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = ReadList(empty)
	assert.Error(t, err)
}

func TestValidateReportsEveryCheck(t *testing.T) {
	rec := &recorder{}
	p := New(Config{}, Deps{Resolver: &fakeResolver{}, Reporter: rec})

	v, err := p.Validate(context.Background(), writePackage(t, metadata()))
	require.NoError(t, err)

	assert.Equal(t, "S1", v.Structure.ArchiveName)
	assert.True(t, v.Structure.IsDir)
	assert.Equal(t, map[string]int{"S0": 9000006}, v.Derived.AllParticles)
	assert.Contains(t, rec.names, "File count check")
	assert.Contains(t, rec.names, "Check model files and imports")
	assert.Contains(t, rec.names, "Check particles.py")
	assert.Empty(t, rec.failed)
}

func TestValidateBrokenModel(t *testing.T) {
	pkg := writePackage(t, metadata())
	require.NoError(t, os.Remove(filepath.Join(pkg, "S1", "vertices.py")))

	rec := &recorder{}
	p := New(Config{}, Deps{Resolver: &fakeResolver{}, Reporter: rec})

	_, err := p.Validate(context.Background(), pkg)
	var structure *errors.PackageStructureError
	require.ErrorAs(t, err, &structure)
	assert.Equal(t, []string{"vertices.py"}, structure.Missing)
	assert.Equal(t, []string{"Check model files and imports"}, rec.failed)
}

func TestGenerateIsDeterministic(t *testing.T) {
	pkg := writePackage(t, metadata(`"Custom field": {"kept": true}`))

	run := func(outDir string) []byte {
		p := New(Config{OutDir: outDir}, Deps{
			Resolver: &fakeResolver{},
			Prompter: prompt.NewScript("S1", "1.0", "https://example.org/s1"),
		})
		gen, err := p.Generate(context.Background(), pkg)
		require.NoError(t, err)
		assert.Equal(t, "S1.json", gen.Name)
		assert.Equal(t, filepath.Join(outDir, "S1.json"), gen.Path)
		data, err := os.ReadFile(gen.Path)
		require.NoError(t, err)
		return data
	}

	first := run(t.TempDir())
	second := run(t.TempDir())
	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("generated metadata differs between runs (-first +second):\n%s", diff)
	}

	doc, err := catalog.ParseDocument(first)
	require.NoError(t, err)
	keys := doc.Keys()
	assert.Equal(t, []string{"Author", "Paper_id", "Description", "Custom field", catalog.KeyModelName}, keys[:5])
	assert.Equal(t, "https://example.org/s1", doc.String(catalog.KeyHomepage))
	assert.Equal(t, catalog.UnassignedDOI, doc.String(catalog.KeyModelDOI))

	var pdgLike map[string]map[string]float64
	_, err = doc.Get(catalog.KeyPDGLike, &pdgLike)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]float64{"S0": {"id": 9000006, "spin": 1, "charge": 0}}, pdgLike)
}

func TestGenerateWritesBesideThePackage(t *testing.T) {
	pkg := writePackage(t, metadata(`"Model Homepage": "https://example.org"`))
	script := prompt.NewScript("S1", "2.0")
	p := New(Config{}, Deps{Resolver: &fakeResolver{}, Prompter: script})

	gen, err := p.Generate(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(pkg), "S1.json"), gen.Path)
	assert.Equal(t, []string{"Please name your model:", "Please enter your model version:"}, script.Asked)
}

func TestGenerateRefusesMetadataCollision(t *testing.T) {
	parent := t.TempDir()
	var pkgs []string
	for _, name := range []string{"a", "b"} {
		pkg := filepath.Join(parent, name)
		ufotest.WritePackage(t, filepath.Join(pkg, "S1"), ufotest.Files())
		meta := metadata(`"Model Homepage": "https://example.org"`)
		require.NoError(t, os.WriteFile(filepath.Join(pkg, "metadata.json"), []byte(meta), 0o644))
		pkgs = append(pkgs, pkg)
	}
	script := prompt.NewScript("S1", "1.0", "S1", "2.0")
	p := New(Config{}, Deps{Resolver: &fakeResolver{}, Prompter: script})

	gen, err := p.Generate(context.Background(), pkgs[0])
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), pkgs[1])
	assert.ErrorIs(t, err, ErrMetadataCollision)

	// regenerating the same package replaces its own file
	script = prompt.NewScript("S1", "1.1")
	p.prompter = script
	_, err = p.Generate(context.Background(), pkgs[0])
	require.NoError(t, err)

	data, err := os.ReadFile(gen.Path)
	require.NoError(t, err)
	doc, err := catalog.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "1.1", doc.String(catalog.KeyModelVersion))
}

func TestBatchContinuesAfterFailures(t *testing.T) {
	good := writePackage(t, metadata())
	bad := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(bad, 0o755))

	p := New(Config{}, Deps{Resolver: &fakeResolver{}})
	report := p.Batch(context.Background(), []string{bad, good}, func(ctx context.Context, pkg string) ([]string, error) {
		v, err := p.Validate(ctx, pkg)
		if err != nil {
			return nil, err
		}
		return v.Warnings(), nil
	})

	require.Len(t, report.Results, 2)
	assert.Equal(t, p.RunID(), report.RunID)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, errors.ErrLayout, errors.Code(report.Results[0].Err))
	assert.NoError(t, report.Results[1].Err)

	out, err := report.JSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "error"`)
	assert.Contains(t, out, errors.ErrLayout)
}

func TestBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(Config{}, Deps{})
	calls := 0
	report := p.Batch(ctx, []string{"a", "b"}, func(ctx context.Context, pkg string) ([]string, error) {
		calls++
		cancel()
		return nil, nil
	})
	assert.Equal(t, 1, calls)
	assert.True(t, stderrors.Is(report.Results[1].Err, context.Canceled))
}

func TestUploadNewModel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "S1", "1.0", true)
	pkg := writePackage(t, metadata())

	session, err := e.p.OpenSession(ctx, ModeUpload)
	require.NoError(t, err)

	out, err := session.Process(ctx, pkg)
	require.NoError(t, err)
	assert.True(t, out.Published)
	assert.Equal(t, "S1.json", out.File)
	assert.True(t, strings.HasPrefix(out.DOI, zenodotest.Prefix))

	doc := e.catalogFile(t, "S1.json")
	assert.Equal(t, out.DOI, doc.String(catalog.KeyModelDOI))
	assert.Equal(t, "https://doi.org/"+out.DOI, doc.String(catalog.KeyHomepage))
	assert.FileExists(t, out.Local)

	deps := e.zen.Depositions()
	require.Len(t, deps, 1)
	assert.True(t, deps[0].Published)
	assert.Equal(t, []string{"S1.tgz"}, deps[0].FileNames())
	assert.Equal(t, "S1", deps[0].Metadata["title"])
	assert.Equal(t, "2026-03-14", deps[0].Metadata["publication_date"])

	pr, err := session.Close(ctx)
	require.NoError(t, err)
	require.NotNil(t, pr)
	pulls := e.gh.Pulls()
	require.Len(t, pulls, 1)
	assert.Equal(t, "Upload metadata for a new model", pulls[0].Title)
	assert.Equal(t, "alice:main", pulls[0].Head)
	assert.Equal(t, 0, e.script.Remaining())
}

func TestUploadRenamesTakenFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "S1", "1.0", true, "no suffix", "S1 scalar.json", false)
	e.gh.Commit("ufo-models", "catalog", "Metadata/S1.json", `{"Model Doi": "10.5072/zenodo.3"}`)
	pkg := writePackage(t, metadata())

	session, err := e.p.OpenSession(ctx, ModeUpload)
	require.NoError(t, err)

	out, err := session.Process(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, "S1_scalar.json", out.File)
	assert.False(t, out.Published)
	assert.Contains(t, e.script.Asked[2], "10.5072/zenodo.3")
	assert.Contains(t, e.reporter.failed, "Check metadata file name ends with .json")
	assert.Equal(t, []string{"S1_scalar.json"}, session.Committed())
}

func TestUploadAbortOnTakenFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "S1", "1.0", false)
	e.gh.Commit("ufo-models", "catalog", "Metadata/S1.json", `{"Model Doi": "10.5072/zenodo.3"}`)

	session, err := e.p.OpenSession(ctx, ModeUpload)
	require.NoError(t, err)

	_, err = session.Process(ctx, writePackage(t, metadata()))
	assert.True(t, stderrors.Is(err, ErrAborted))
	assert.Empty(t, e.zen.Depositions())

	pr, err := session.Close(ctx)
	require.NoError(t, err)
	assert.Nil(t, pr)
}

func TestOpenSessionRejectsStaleFork(t *testing.T) {
	e := newEnv(t)
	e.gh.AddRepo("alice", "catalog", map[string]string{"Metadata/Old.json": "{}"})

	_, err := e.p.OpenSession(context.Background(), ModeUpload)
	assert.True(t, stderrors.Is(err, ErrForkOutOfSync))
	assert.Equal(t, []string{"Check fork of the catalog is in sync with upstream"}, e.reporter.failed)
}

func TestNewVersion(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "S1", "2", []string{"S1.tgz"}, true)
	old := e.zen.AddPublished(map[string]string{"S1.tgz": "old archive", "notes.txt": "notes"})
	pkg := writePackage(t, metadata(fmt.Sprintf(`"Existing Model Doi": %q`, old.ConceptDOI())))

	session, err := e.p.OpenSession(ctx, ModeNewVersion)
	require.NoError(t, err)

	out, err := session.Process(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, "S1.V2.json", out.File)
	assert.True(t, out.Published)

	deps := e.zen.Depositions()
	require.Len(t, deps, 2)
	draft := deps[1]
	assert.Equal(t, old.ConceptID, draft.ConceptID)
	assert.Equal(t, []string{"notes.txt", "S1.tgz"}, draft.FileNames())
	assert.NotEqual(t, "old archive", string(draft.Files["S1.tgz"]))
	assert.Equal(t, "2", draft.Metadata["version"])

	doc := e.catalogFile(t, "S1.V2.json")
	assert.Equal(t, draft.DOI(), doc.String(catalog.KeyModelDOI))
	assert.Equal(t, old.ConceptDOI(), doc.String(catalog.KeyExistingDOI))

	_, err = session.Close(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Upload metadata for a model's new version", e.gh.Pulls()[0].Title)
}

func TestNewVersionNeedsZenodoPredecessor(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		extra []string
		check func(t *testing.T, err error)
	}{
		{
			name: "missing field",
			check: func(t *testing.T, err error) {
				var field *errors.MetadataFieldError
				require.ErrorAs(t, err, &field)
				assert.Equal(t, catalog.KeyExistingDOI, field.Field)
			},
		},
		{
			name:  "not on zenodo",
			extra: []string{`"Existing Model Doi": "10.1000/other.5"`},
			check: func(t *testing.T, err error) {
				var field *errors.MetadataFieldError
				require.ErrorAs(t, err, &field)
				assert.Equal(t, "must be a Zenodo DOI", field.Reason)
			},
		},
		{
			name:  "unknown concept",
			extra: []string{`"Existing Model Doi": "10.5072/zenodo.424242"`},
			check: func(t *testing.T, err error) {
				var missing *errors.MissingPredecessorError
				require.ErrorAs(t, err, &missing)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "S1", "2")
			session, err := e.p.OpenSession(ctx, ModeNewVersion)
			require.NoError(t, err)

			_, err = session.Process(ctx, writePackage(t, metadata(tt.extra...)))
			tt.check(t, err)
			assert.Empty(t, session.Committed())
		})
	}
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "S1", "1.0")
	pkg := writePackage(t, metadata(`"Model Doi": "10.5072/zenodo.555"`))

	session, err := e.p.OpenSession(ctx, ModePush)
	require.NoError(t, err)

	out, err := session.Process(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, "10.5072/zenodo.555", out.DOI)

	doc := e.catalogFile(t, "S1.json")
	assert.Equal(t, "https://doi.org/10.5072/zenodo.555", doc.String(catalog.KeyHomepage))
	assert.Empty(t, e.zen.Depositions())
	assert.NotContains(t, e.reporter.names, "Validating Zenodo access token")
}

func TestPushRequiresResolvableDOI(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "S1", "1.0")
	e.p.resolver = &fakeResolver{broken: map[string]bool{"https://doi.org/10.5072/zenodo.555": true}}

	session, err := e.p.OpenSession(ctx, ModePush)
	require.NoError(t, err)

	_, err = session.Process(ctx, writePackage(t, metadata(`"Model Doi": "10.5072/zenodo.555"`)))
	var ref *errors.UnresolvableReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "Model Doi", ref.Which)
}

func TestSyncIndex(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.gh.Commit("ufo-models", "catalog", "Metadata/Broken.json", "not json")
	e.gh.Commit("ufo-models", "catalog", "Metadata/notes.txt", "ignored")

	ix, err := catalog.OpenIndex(ctx, ":memory:")
	require.NoError(t, err)
	defer ix.Close()

	n, err := e.p.SyncIndex(ctx, ix)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, err := ix.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SM.json"}, files)

	listed, err := e.p.CatalogFiles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Broken.json", "SM.json"}, listed)
}
