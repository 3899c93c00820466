// Package pipeline runs the per-package workflows of ufometa: validation,
// metadata generation, archival upload, new versions, catalog pushes and
// downloads. Packages are processed one at a time; every extraction lives in
// a workspace released before the next package starts.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/archive"
	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/cli/prompt"
	"github.com/ufo-models/ufometa/internal/github"
	"github.com/ufo-models/ufometa/internal/loader"
	"github.com/ufo-models/ufometa/internal/logging"
	"github.com/ufo-models/ufometa/internal/model"
	"github.com/ufo-models/ufometa/internal/validate"
	"github.com/ufo-models/ufometa/internal/zenodo"
)

// Resolver checks references and builds DOI links
type Resolver interface {
	validate.Resolver
	DOIURL(doi string) string
}

// Depositor is the archival deposit service
type Depositor interface {
	ListDepositions(ctx context.Context) ([]zenodo.Deposition, error)
	CreateDeposition(ctx context.Context) (*zenodo.Deposition, error)
	GetDeposition(ctx context.Context, id string) (*zenodo.Deposition, error)
	UploadPath(ctx context.Context, bucket, filePath string) error
	UpdateMetadata(ctx context.Context, id int, md zenodo.Metadata) (*zenodo.Deposition, error)
	Publish(ctx context.Context, id int) (*zenodo.Deposition, error)
	NewVersion(ctx context.Context, id string) (*zenodo.Deposition, error)
	ListFiles(ctx context.Context, id string) ([]zenodo.DraftFile, error)
	DeleteFile(ctx context.Context, f zenodo.DraftFile) error
	GetRecord(ctx context.Context, id string) (*zenodo.Record, error)
	FindRecordByDOI(ctx context.Context, doi string) (*zenodo.Record, error)
	DownloadFile(ctx context.Context, f zenodo.RecordFile, dir string) (string, error)
}

// CatalogHost is the service hosting the shared catalog repository
type CatalogHost interface {
	CurrentUser(ctx context.Context) (*github.User, error)
	ListContents(ctx context.Context, owner, repo, path string) ([]github.ContentEntry, error)
	FetchRaw(ctx context.Context, owner, repo, branch, path string) ([]byte, error)
	CreateFork(ctx context.Context, owner, repo string) (*github.Repository, error)
	GetBranch(ctx context.Context, owner, repo, branch string) (*github.Branch, error)
	IsAncestor(ctx context.Context, owner, repo, child, parent string) (bool, error)
	CreateFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error
	CreatePullRequest(ctx context.Context, owner, repo string, in github.PullRequestInput) (*github.PullRequest, error)
}

// CatalogRepo locates the catalog: the upstream repository, its branch and
// the directory holding the metadata files
type CatalogRepo struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

// Config tunes a Pipeline
type Config struct {
	Catalog CatalogRepo

	// ReferencesAsWarnings downgrades unresolvable references to warnings
	ReferencesAsWarnings bool

	// OutDir receives generated metadata files. Empty means the directory
	// holding the package.
	OutDir string

	// DownloadConcurrency bounds parallel downloads (default 4)
	DownloadConcurrency int

	// OnDownload, when set, is called once per finished download. Calls are
	// serialized.
	OnDownload func(Download)

	// Now stamps publication dates (default time.Now)
	Now func() time.Time
}

// Deps are the collaborators of a Pipeline. Zenodo and GitHub may be nil
// for the offline workflows.
type Deps struct {
	Resolver Resolver
	Zenodo   Depositor
	GitHub   CatalogHost
	Prompter prompt.Prompter
	Reporter validate.Reporter
	Logger   *zap.Logger
}

// Pipeline runs workflows. Every log line it writes carries the run id.
type Pipeline struct {
	cfg      Config
	resolver Resolver
	zenodo   Depositor
	github   CatalogHost
	prompter prompt.Prompter
	reporter validate.Reporter
	logger   *zap.Logger
	runID    string

	mu      sync.Mutex
	written map[string]string // metadata path -> package that wrote it
}

// ErrMetadataCollision is returned when a second package of the same run
// would overwrite a metadata file written for another package
var ErrMetadataCollision = stderrors.New("metadata file already written in this run")

// New builds a Pipeline with a fresh run id
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.Catalog.Branch == "" {
		cfg.Catalog.Branch = "main"
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "Metadata"
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	runID := uuid.NewString()
	return &Pipeline{
		cfg:      cfg,
		resolver: deps.Resolver,
		zenodo:   deps.Zenodo,
		github:   deps.GitHub,
		prompter: deps.Prompter,
		reporter: reporter,
		logger:   logging.Or(deps.Logger).With(zap.String("run_id", runID)),
		runID:    runID,
	}
}

type nopReporter struct{}

func (nopReporter) Check(string, error) {}

// RunID identifies this pipeline's run in logs and reports
func (p *Pipeline) RunID() string {
	return p.runID
}

// Validated is a package that passed every check
type Validated struct {
	Package   string
	Structure *validate.StructureResult
	Derived   *model.Derived
}

// Warnings returns the warnings collected while validating
func (v *Validated) Warnings() []string {
	return v.Structure.Warnings
}

// Validate runs the structural checks on pkg, loads the model entry in a
// scratch workspace and runs the content checks
func (p *Pipeline) Validate(ctx context.Context, pkg string) (*Validated, error) {
	log := p.logger.With(zap.String("package", pkg))
	log.Info("validating package")

	structure, err := validate.Structure(ctx, pkg, p.resolver, validate.StructureOptions{
		ReferencesAsWarnings: p.cfg.ReferencesAsWarnings,
		Reporter:             p.reporter,
		Logger:               log,
	})
	if err != nil {
		return nil, err
	}

	derived, err := p.loadContent(structure.Archive)
	if err != nil {
		return nil, err
	}
	log.Info("package is valid",
		zap.Int("particles", len(derived.AllParticles)),
		zap.Int("vertices", derived.Vertices),
		zap.Bool("nlo", derived.NLO))
	return &Validated{Package: pkg, Structure: structure, Derived: derived}, nil
}

func (p *Pipeline) loadContent(entry string) (*model.Derived, error) {
	ws, err := archive.Open(entry)
	if err != nil {
		p.reporter.Check("Check model archive can be decompressed", err)
		return nil, err
	}
	defer ws.Close()

	tables, err := loader.Load(ws.Dir)
	p.reporter.Check("Check model files and imports", err)
	if err != nil {
		return nil, err
	}
	return validate.CheckContent(tables, p.reporter)
}

// synthesize asks for the model name and version, and the homepage when
// askHomepage is set and the document has none, then merges the answers
// with the derived metadata
func (p *Pipeline) synthesize(v *Validated, askHomepage bool) (*catalog.Document, error) {
	if p.prompter == nil {
		return nil, fmt.Errorf("metadata synthesis needs a prompter")
	}
	var in catalog.UserInput
	var err error
	if in.Name, err = p.prompter.Input("Please name your model:", ""); err != nil {
		return nil, err
	}
	if in.Version, err = p.prompter.Input("Please enter your model version:", ""); err != nil {
		return nil, err
	}
	if askHomepage && !v.Structure.Document.Has(catalog.KeyHomepage) {
		if in.Homepage, err = p.prompter.Input("Please enter your model homepage:", ""); err != nil {
			return nil, err
		}
	}
	return catalog.Synthesize(v.Structure.Document, v.Derived, in)
}

// Generated is the result of Generate
type Generated struct {
	*Validated
	Document *catalog.Document
	Name     string
	Path     string
}

// Generate validates pkg, synthesizes its catalog record and writes it as
// <base>.json
func (p *Pipeline) Generate(ctx context.Context, pkg string) (*Generated, error) {
	v, err := p.Validate(ctx, pkg)
	if err != nil {
		return nil, err
	}
	doc, err := p.synthesize(v, true)
	if err != nil {
		return nil, err
	}
	name, err := catalog.MetadataName(v.Structure.ArchiveName)
	if err != nil {
		return nil, err
	}
	path, err := p.writeLocal(pkg, name, doc)
	if err != nil {
		return nil, err
	}
	p.logger.Info("metadata generated", zap.String("package", pkg), zap.String("file", path))
	return &Generated{Validated: v, Document: doc, Name: name, Path: path}, nil
}

// writeLocal writes doc under name next to pkg, or into OutDir when set.
// Within one run each path belongs to the first package that wrote it.
func (p *Pipeline) writeLocal(pkg, name string, doc *catalog.Document) (string, error) {
	dir := p.cfg.OutDir
	if dir == "" {
		dir = filepath.Dir(filepath.Clean(pkg))
	}
	data, err := doc.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	path := filepath.Join(dir, name)

	p.mu.Lock()
	defer p.mu.Unlock()
	owner := filepath.Clean(pkg)
	if prev, ok := p.written[path]; ok && prev != owner {
		return "", fmt.Errorf("%w: %s was generated for %s", ErrMetadataCollision, path, prev)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	if p.written == nil {
		p.written = make(map[string]string)
	}
	p.written[path] = owner
	return path, nil
}
