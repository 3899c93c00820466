package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/archive"
	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/github"
	"github.com/ufo-models/ufometa/internal/resolve"
	"github.com/ufo-models/ufometa/internal/validate"
	"github.com/ufo-models/ufometa/internal/zenodo"
)

// Mode selects what a publishing session does with each package
type Mode int

const (
	// ModeUpload deposits new models and registers them in the catalog
	ModeUpload Mode = iota
	// ModeNewVersion deposits new versions of already deposited models
	ModeNewVersion
	// ModePush registers already deposited models in the catalog only
	ModePush
)

func (m Mode) String() string {
	switch m {
	case ModeUpload:
		return "upload"
	case ModeNewVersion:
		return "new-version"
	case ModePush:
		return "push"
	default:
		return "unknown"
	}
}

const pullRequestBody = "Upload metadata for new model(s)"

var (
	// ErrAborted is returned when the user declines to continue
	ErrAborted = stderrors.New("aborted by user")

	// ErrForkOutOfSync is returned when the user's catalog fork lags
	// behind upstream
	ErrForkOutOfSync = stderrors.New("your fork of the catalog repository is out of sync with upstream; sync it and retry")
)

// Outcome describes one published package
type Outcome struct {
	Package   string
	File      string
	DOI       string
	Local     string
	Published bool
	Warnings  []string
}

// Session publishes a batch of packages. OpenSession checks the tokens and
// the fork; Close opens the pull request for everything committed.
type Session struct {
	p           *Pipeline
	mode        Mode
	user        string
	fork        *github.Repository
	depositions []zenodo.Deposition
	committed   []string
}

// OpenSession verifies the credentials and forks the catalog. The fork must
// contain the upstream head.
func (p *Pipeline) OpenSession(ctx context.Context, mode Mode) (*Session, error) {
	if p.github == nil || (mode != ModePush && p.zenodo == nil) {
		return nil, fmt.Errorf("%s needs the archive and catalog clients", mode)
	}
	if p.prompter == nil {
		return nil, fmt.Errorf("%s needs a prompter", mode)
	}
	s := &Session{p: p, mode: mode}

	if mode != ModePush {
		deps, err := p.zenodo.ListDepositions(ctx)
		p.reporter.Check("Validating Zenodo access token", err)
		if err != nil {
			return nil, err
		}
		s.depositions = deps
	}

	user, err := p.github.CurrentUser(ctx)
	p.reporter.Check("Validating GitHub access token", err)
	if err != nil {
		return nil, err
	}
	s.user = user.Login

	err = s.checkFork(ctx)
	p.reporter.Check("Check fork of the catalog is in sync with upstream", err)
	if err != nil {
		return nil, err
	}
	p.logger.Info("session opened", zap.Stringer("mode", mode), zap.String("user", s.user), zap.String("fork", s.fork.FullName))
	return s, nil
}

func (s *Session) checkFork(ctx context.Context) error {
	up := s.p.cfg.Catalog
	fork, err := s.p.github.CreateFork(ctx, up.Owner, up.Repo)
	if err != nil {
		return err
	}
	s.fork = fork

	upstream, err := s.p.github.GetBranch(ctx, up.Owner, up.Repo, up.Branch)
	if err != nil {
		return err
	}
	head, err := s.p.github.GetBranch(ctx, fork.Owner.Login, fork.Name, up.Branch)
	if err != nil {
		return err
	}
	synced, err := s.p.github.IsAncestor(ctx, fork.Owner.Login, fork.Name, head.Commit.SHA, upstream.Commit.SHA)
	if err != nil {
		return err
	}
	if !synced {
		return ErrForkOutOfSync
	}
	return nil
}

// Committed lists the catalog files committed so far
func (s *Session) Committed() []string {
	return append([]string(nil), s.committed...)
}

// Process runs the session's workflow on one package
func (s *Session) Process(ctx context.Context, pkg string) (*Outcome, error) {
	switch s.mode {
	case ModeUpload:
		return s.upload(ctx, pkg)
	case ModeNewVersion:
		return s.newVersion(ctx, pkg)
	case ModePush:
		return s.push(ctx, pkg)
	default:
		return nil, fmt.Errorf("unknown mode %d", s.mode)
	}
}

// Close opens one pull request from the fork for every committed file. It
// does nothing when nothing was committed.
func (s *Session) Close(ctx context.Context) (*github.PullRequest, error) {
	if len(s.committed) == 0 {
		return nil, nil
	}
	up := s.p.cfg.Catalog
	title := "Upload metadata for a new model"
	if s.mode == ModeNewVersion {
		title = "Upload metadata for a model's new version"
	}
	pr, err := s.p.github.CreatePullRequest(ctx, up.Owner, up.Repo, github.PullRequestInput{
		Title: title,
		Body:  pullRequestBody,
		Head:  s.fork.Owner.Login + ":" + up.Branch,
		Base:  up.Branch,
	})
	if err != nil {
		return nil, err
	}
	s.p.logger.Info("pull request opened", zap.Int("number", pr.Number), zap.Strings("files", s.committed))
	return pr, nil
}

func (s *Session) upload(ctx context.Context, pkg string) (*Outcome, error) {
	p := s.p
	v, err := p.Validate(ctx, pkg)
	if err != nil {
		return nil, err
	}
	doc, err := p.synthesize(v, false)
	if err != nil {
		return nil, err
	}
	name, err := catalog.MetadataName(v.Structure.ArchiveName)
	if err != nil {
		return nil, err
	}
	if name, err = s.freeName(ctx, name); err != nil {
		return nil, err
	}

	dep, err := p.zenodo.CreateDeposition(ctx)
	if err != nil {
		return nil, err
	}
	return s.deposit(ctx, v, doc, dep, name, name)
}

func (s *Session) newVersion(ctx context.Context, pkg string) (*Outcome, error) {
	p := s.p
	v, err := p.Validate(ctx, pkg)
	if err != nil {
		return nil, err
	}
	existing := v.Structure.Document.String(catalog.KeyExistingDOI)
	if err := p.checkArchivedDOI(ctx, resolve.WhichExistingDOI, catalog.KeyExistingDOI, existing); err != nil {
		return nil, err
	}
	doc, err := p.synthesize(v, false)
	if err != nil {
		return nil, err
	}
	base, err := catalog.MetadataName(v.Structure.ArchiveName)
	if err != nil {
		return nil, err
	}
	name, err := catalog.VersionedName(base, doc.String(catalog.KeyModelVersion))
	if err != nil {
		return nil, err
	}
	if name, err = s.freeName(ctx, name); err != nil {
		return nil, err
	}

	previous, err := zenodo.MatchConcept(s.depositions, existing)
	if err != nil {
		return nil, err
	}
	oldID := zenodo.LastSegment(previous.Links.Latest)
	record, err := p.zenodo.GetRecord(ctx, oldID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(record.Files))
	for _, f := range record.Files {
		names = append(names, f.Name())
	}
	stale, err := p.prompter.MultiSelect(
		fmt.Sprintf("Your previous upload contains %s. Select the files to delete in the new version:", strings.Join(names, ", ")),
		names)
	if err != nil {
		return nil, err
	}

	nv, err := p.zenodo.NewVersion(ctx, oldID)
	if err != nil {
		return nil, err
	}
	draftID := zenodo.LastSegment(nv.Links.LatestDraft)
	if err := s.deleteFiles(ctx, draftID, stale); err != nil {
		return nil, err
	}
	draft, err := p.zenodo.GetDeposition(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return s.deposit(ctx, v, doc, draft, name, base)
}

func (s *Session) push(ctx context.Context, pkg string) (*Outcome, error) {
	p := s.p
	v, err := p.Validate(ctx, pkg)
	if err != nil {
		return nil, err
	}
	doi := v.Structure.Document.String(catalog.KeyModelDOI)
	if err := p.checkArchivedDOI(ctx, resolve.WhichModelDOI, catalog.KeyModelDOI, doi); err != nil {
		return nil, err
	}
	doc, err := p.synthesize(v, false)
	if err != nil {
		return nil, err
	}
	if err := p.assignDOI(doc, doc.String(catalog.KeyModelDOI)); err != nil {
		return nil, err
	}
	name, err := catalog.MetadataName(v.Structure.ArchiveName)
	if err != nil {
		return nil, err
	}
	if name, err = s.freeName(ctx, name); err != nil {
		return nil, err
	}
	local, err := p.writeLocal(pkg, name, doc)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, name, name, doc); err != nil {
		return nil, err
	}
	return &Outcome{Package: pkg, File: name, DOI: doc.String(catalog.KeyModelDOI), Local: local, Warnings: v.Warnings()}, nil
}

// deposit uploads the model entry into dep, describes it, records the
// reserved DOI, commits the catalog file and publishes on confirmation.
// commitName names the model in the commit message.
func (s *Session) deposit(ctx context.Context, v *Validated, doc *catalog.Document, dep *zenodo.Deposition, name, commitName string) (*Outcome, error) {
	p := s.p
	if err := p.uploadEntry(ctx, dep.Links.Bucket, v.Structure); err != nil {
		return nil, err
	}
	md, err := p.depositMetadata(doc)
	if err != nil {
		return nil, err
	}
	if _, err := p.zenodo.UpdateMetadata(ctx, dep.ID, md); err != nil {
		return nil, err
	}

	doi := dep.ReservedDOI()
	if err := p.assignDOI(doc, doi); err != nil {
		return nil, err
	}
	local, err := p.writeLocal(v.Package, name, doc)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, name, commitName, doc); err != nil {
		return nil, err
	}

	out := &Outcome{Package: v.Package, File: name, DOI: doi, Local: local, Warnings: v.Warnings()}
	publish, err := p.prompter.Confirm(fmt.Sprintf("Your draft is ready at DOI %s. Do you want to publish your model?", doi), false)
	if err != nil {
		return nil, err
	}
	if publish {
		published, err := p.zenodo.Publish(ctx, dep.ID)
		if err != nil {
			return nil, err
		}
		out.Published = true
		p.logger.Info("model published", zap.String("doi", doi), zap.String("record", published.Links.RecordHTML))
	}
	return out, nil
}

// freeName returns name, or a user-chosen replacement while name is taken
// in the upstream catalog
func (s *Session) freeName(ctx context.Context, name string) (string, error) {
	p := s.p
	up := p.cfg.Catalog
	for {
		data, err := p.github.FetchRaw(ctx, up.Owner, up.Repo, up.Branch, path.Join(up.Path, name))
		if stderrors.Is(err, github.ErrNotFound) {
			return name, nil
		}
		if err != nil {
			return "", err
		}

		taken := "unknown"
		if existing, err := catalog.ParseDocument(data); err == nil {
			taken = existing.String(catalog.KeyModelDOI)
		}
		p.logger.Warn("metadata file name already used", zap.String("file", name), zap.String("model_doi", taken))
		ok, err := p.prompter.Confirm(fmt.Sprintf(
			"The metadata file name %s is used by the model with DOI %s. Do you want to continue your upload?", name, taken), false)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrAborted
		}

		for {
			input, err := p.prompter.Input("Please rename your metadata file:", "")
			if err != nil {
				return "", err
			}
			renamed, err := catalog.Rename(input)
			if err != nil {
				p.reporter.Check("Check metadata file name ends with .json", err)
				continue
			}
			name = renamed
			break
		}
	}
}

func (s *Session) deleteFiles(ctx context.Context, draftID string, stale []string) error {
	if len(stale) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(stale))
	for _, name := range stale {
		drop[name] = true
	}
	files, err := s.p.zenodo.ListFiles(ctx, draftID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if !drop[f.Filename] {
			continue
		}
		if err := s.p.zenodo.DeleteFile(ctx, f); err != nil {
			return err
		}
		s.p.logger.Info("deleted file from new version", zap.String("file", f.Filename))
	}
	return nil
}

func (s *Session) commit(ctx context.Context, name, commitName string, doc *catalog.Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	message := "Upload metadata for model: " + strings.TrimSuffix(commitName, ".json")
	target := path.Join(s.p.cfg.Catalog.Path, name)
	if err := s.p.github.CreateFile(ctx, s.fork.Owner.Login, s.fork.Name, s.p.cfg.Catalog.Branch, target, message, data); err != nil {
		return err
	}
	s.committed = append(s.committed, name)
	return nil
}

// checkArchivedDOI requires doi to be a Zenodo DOI that resolves
func (p *Pipeline) checkArchivedDOI(ctx context.Context, which, field, doi string) error {
	if strings.TrimSpace(doi) == "" {
		return &errors.MetadataFieldError{Field: field, Reason: "field does not exist in metadata"}
	}
	if !strings.Contains(doi, "zenodo") {
		return &errors.MetadataFieldError{Field: field, Reason: "must be a Zenodo DOI"}
	}
	return p.resolver.URL(ctx, which, p.resolver.DOIURL(doi))
}

// assignDOI records the archival DOI and points an empty homepage at it
func (p *Pipeline) assignDOI(doc *catalog.Document, doi string) error {
	if err := doc.Set(catalog.KeyModelDOI, doi); err != nil {
		return err
	}
	if strings.TrimSpace(doc.String(catalog.KeyHomepage)) == "" {
		if err := doc.Set(catalog.KeyHomepage, p.resolver.DOIURL(doi)); err != nil {
			return err
		}
	}
	return catalog.ValidateRecord(doc)
}

func (p *Pipeline) depositMetadata(doc *catalog.Document) (zenodo.Metadata, error) {
	authors, err := doc.Authors()
	if err != nil {
		return zenodo.Metadata{}, fmt.Errorf("failed to read authors: %w", err)
	}
	creators := make([]zenodo.Creator, len(authors))
	for i, a := range authors {
		creators[i] = zenodo.Creator{Name: a.Name, Affiliation: a.Affiliation}
	}
	return zenodo.Metadata{
		Title:           doc.String(catalog.KeyModelName),
		UploadType:      "dataset",
		Description:     doc.String(catalog.KeyDescription),
		Creators:        creators,
		Version:         doc.String(catalog.KeyModelVersion),
		PublicationDate: p.cfg.Now().Format("2006-01-02"),
	}, nil
}

// uploadEntry uploads the model archive. A decompressed directory is packed
// into a .tgz first.
func (p *Pipeline) uploadEntry(ctx context.Context, bucket string, structure *validate.StructureResult) error {
	if !structure.IsDir {
		return p.zenodo.UploadPath(ctx, bucket, structure.Archive)
	}
	tmp, err := os.MkdirTemp("", "ufometa-pack-*")
	if err != nil {
		return fmt.Errorf("failed to create pack directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	out := filepath.Join(tmp, structure.ArchiveName+".tgz")
	if err := archive.Pack(structure.Archive, out); err != nil {
		return err
	}
	return p.zenodo.UploadPath(ctx, bucket, out)
}
