// Package validate checks model packages: the layout and metadata of the
// package directory, then the physics content resolved by the loader.
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/archive"
	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/logging"
	"github.com/ufo-models/ufometa/internal/resolve"
)

// MetadataFile is the metadata document every package carries
const MetadataFile = "metadata.json"

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

// Resolver checks that references resolve
type Resolver interface {
	DOI(ctx context.Context, doi string) error
	ArXiv(ctx context.Context, id string) error
	URL(ctx context.Context, which, url string) error
}

// Reporter receives the outcome of every named check as it completes
type Reporter interface {
	Check(name string, err error)
}

type nopReporter struct{}

func (nopReporter) Check(string, error) {}

// StructureOptions tunes Structure
type StructureOptions struct {
	// ReferencesAsWarnings records unresolvable references as warnings
	// instead of failing
	ReferencesAsWarnings bool

	Reporter Reporter
	Logger   *zap.Logger
}

// StructureResult describes a structurally valid package directory
type StructureResult struct {
	Document *catalog.Document

	// Archive is the path of the model entry and ArchiveName its base name
	Archive     string
	ArchiveName string
	IsDir       bool

	Warnings []string
}

// Structure checks the package directory dir: exactly two entries, a
// well-formed metadata.json with authors, paper and description, resolvable
// references and a model entry in a supported format
func Structure(ctx context.Context, dir string, resolver Resolver, opts StructureOptions) (*StructureResult, error) {
	rep := opts.Reporter
	if rep == nil {
		rep = nopReporter{}
	}
	s := &structureCheck{
		ctx:      ctx,
		resolver: resolver,
		opts:     opts,
		rep:      rep,
		logger:   logging.Or(opts.Logger),
		result:   &StructureResult{},
	}
	if err := s.run(dir); err != nil {
		return nil, err
	}
	return s.result, nil
}

type structureCheck struct {
	ctx      context.Context
	resolver Resolver
	opts     StructureOptions
	rep      Reporter
	logger   *zap.Logger
	result   *StructureResult
}

func (s *structureCheck) check(name string, err error) error {
	s.rep.Check(name, err)
	return err
}

func (s *structureCheck) warn(msg string) {
	s.logger.Warn(msg)
	s.result.Warnings = append(s.result.Warnings, msg)
}

func (s *structureCheck) run(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return s.check("File count check", fmt.Errorf("failed to read package directory: %w", err))
	}
	if len(entries) != 2 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		sort.Strings(names)
		return s.check("File count check", &errors.LayoutError{
			Path:   dir,
			Reason: fmt.Sprintf("expected exactly 2 entries (metadata.json and the model), found %d: %s", len(entries), strings.Join(names, ", ")),
		})
	}
	s.check("File count check", nil)

	if err := s.check(`Check if initial "metadata.json" exists and correctly formatted`, s.readMetadata(dir)); err != nil {
		return err
	}
	if err := s.check("Check author information and contact information in initial metadata", s.checkAuthors()); err != nil {
		return err
	}
	if err := s.check("Check paper information in initial metadata", s.checkPaper()); err != nil {
		return err
	}
	if err := s.check("Check model description in initial metadata", s.checkDescription()); err != nil {
		return err
	}
	if err := s.check("Check model homepage in initial metadata", s.checkHomepage()); err != nil {
		return err
	}

	for _, e := range entries {
		if e.Name() == MetadataFile {
			continue
		}
		s.result.Archive = filepath.Join(dir, e.Name())
		s.result.ArchiveName = e.Name()
		s.result.IsDir = e.IsDir()
		if !e.IsDir() && archive.FormatOf(e.Name()) == archive.FormatNone {
			return s.check("Check model archive format", &errors.ArchiveFormatError{Name: e.Name()})
		}
	}
	s.check("Check model archive format", nil)
	return nil
}

func (s *structureCheck) readMetadata(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return &errors.MetadataFieldError{Field: MetadataFile, Reason: "file is missing"}
	}
	doc, err := catalog.ParseDocument(data)
	if err != nil {
		return &errors.MetadataFieldError{Field: MetadataFile, Reason: err.Error()}
	}
	s.result.Document = doc
	return nil
}

func (s *structureCheck) checkAuthors() error {
	doc := s.result.Document
	authors, err := doc.Authors()
	if err != nil {
		return &errors.MetadataFieldError{Field: catalog.KeyAuthor, Reason: "must be a list of {name, contact, affiliation} objects"}
	}
	if len(authors) == 0 {
		return &errors.MetadataFieldError{Field: catalog.KeyAuthor}
	}

	contacts := 0
	for i, author := range authors {
		if strings.TrimSpace(author.Name) == "" {
			return &errors.MetadataFieldError{Field: catalog.KeyAuthor, Reason: fmt.Sprintf("author %d has no name", i+1)}
		}
		if author.Contact == "" {
			continue
		}
		contacts++
		if !emailPattern.MatchString(strings.TrimSpace(author.Contact)) {
			s.warn(fmt.Sprintf("author contact %q of %s is not a valid email address", author.Contact, author.Name))
		}
	}
	if contacts == 0 {
		return &errors.MetadataFieldError{Field: catalog.KeyAuthor, Reason: "no author has contact information"}
	}
	return nil
}

func (s *structureCheck) checkPaper() error {
	doc := s.result.Document
	if !doc.Has(catalog.KeyPaperID) {
		return &errors.MetadataFieldError{Field: catalog.KeyPaperID}
	}
	paper, err := doc.Paper()
	if err != nil {
		return &errors.MetadataFieldError{Field: catalog.KeyPaperID, Reason: "must be an object with doi and/or arXiv"}
	}
	if paper.DOI == "" && paper.ArXiv == "" {
		return &errors.MetadataFieldError{Field: catalog.KeyPaperID, Reason: "does not contain doi or arXiv ID"}
	}

	if paper.DOI != "" {
		if err := s.reference(s.resolver.DOI(s.ctx, paper.DOI)); err != nil {
			return err
		}
	}
	if paper.ArXiv != "" {
		if err := s.reference(s.resolver.ArXiv(s.ctx, paper.ArXiv)); err != nil {
			return err
		}
	}
	return nil
}

func (s *structureCheck) checkDescription() error {
	if strings.TrimSpace(s.result.Document.String(catalog.KeyDescription)) == "" {
		return &errors.MetadataFieldError{Field: catalog.KeyDescription}
	}
	return nil
}

func (s *structureCheck) checkHomepage() error {
	homepage := strings.TrimSpace(s.result.Document.String(catalog.KeyHomepage))
	if homepage == "" {
		return nil
	}
	return s.reference(s.resolver.URL(s.ctx, resolve.WhichHomepage, homepage))
}

// reference applies the references-as-warnings policy to a lookup result
func (s *structureCheck) reference(err error) error {
	if err == nil || !s.opts.ReferencesAsWarnings {
		return err
	}
	s.warn(err.Error())
	return nil
}
