package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/logging"
	"github.com/ufo-models/ufometa/internal/pdgid"
)

// SearchKey selects what a search query matches against
type SearchKey string

const (
	SearchPaper SearchKey = "paper"
	SearchDOI   SearchKey = "doi"
	SearchPDG   SearchKey = "pdg"
	SearchName  SearchKey = "name"
)

// SearchKeys lists the valid keys in display order
var SearchKeys = []SearchKey{SearchPaper, SearchDOI, SearchPDG, SearchName}

// ErrOnlySMParticles rejects a particle search that every model would match
var ErrOnlySMParticles = stderrors.New("all particles you are looking for are Standard Model elementary particles contained in every model; try again with BSM particles")

// ParseSearchKey accepts a key name, case-insensitively, including the long
// forms "Paper_id", "Model Doi" and "pdg code"
func ParseSearchKey(s string) (SearchKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paper", "paper_id":
		return SearchPaper, nil
	case "doi", "model doi":
		return SearchDOI, nil
	case "pdg", "pdg code":
		return SearchPDG, nil
	case "name":
		return SearchName, nil
	}
	return "", fmt.Errorf("invalid search key %q (expected paper, doi, pdg or name)", s)
}

// ConceptResolver maps a version DOI to the concept DOI shared by all
// versions of a deposit
type ConceptResolver interface {
	ConceptDOI(ctx context.Context, doi string) (string, error)
}

// Searcher answers catalog searches from an index
type Searcher struct {
	index    *Index
	concepts ConceptResolver
	logger   *zap.Logger
}

// NewSearcher creates a searcher. concepts may be nil, in which case DOI
// searches only follow Existing Model Doi links.
func NewSearcher(index *Index, concepts ConceptResolver, logger *zap.Logger) *Searcher {
	return &Searcher{index: index, concepts: concepts, logger: logging.Or(logger)}
}

// Search returns the catalog files matching query, in file name order
func (s *Searcher) Search(ctx context.Context, key SearchKey, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	switch key {
	case SearchPaper:
		return s.index.FilesWithPaperID(ctx, query)
	case SearchDOI:
		return s.byDOI(ctx, query)
	case SearchPDG:
		codes, err := parseCodes(query)
		if err != nil {
			return nil, err
		}
		return s.byCodes(ctx, codes)
	case SearchName:
		codes, found, err := s.index.CodesForNames(ctx, splitList(query))
		if err != nil || !found {
			return nil, err
		}
		return s.byCodes(ctx, codes)
	}
	return nil, fmt.Errorf("invalid search key %q", key)
}

func (s *Searcher) byCodes(ctx context.Context, codes []int) ([]string, error) {
	if onlySM(codes) {
		return nil, ErrOnlySMParticles
	}
	return s.index.FilesWithCodes(ctx, codes)
}

// byDOI finds the record with doi and every other version of it: records
// sharing its Existing Model Doi, and records whose Model Doi belongs to
// that concept
func (s *Searcher) byDOI(ctx context.Context, doi string) ([]string, error) {
	first, err := s.index.FileByDOI(ctx, doi)
	if err != nil || first == "" {
		return nil, err
	}

	rows, err := s.index.Summaries(ctx, []string{first})
	if err != nil {
		return nil, err
	}
	results := []string{first}
	if len(rows) == 0 || rows[0].ExistingDOI == "" {
		return results, nil
	}
	concept := rows[0].ExistingDOI

	files, err := s.index.Files(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.index.Summaries(ctx, files)
	if err != nil {
		return nil, err
	}
	for _, row := range all {
		if row.File == first {
			continue
		}
		if row.ExistingDOI != "" {
			if row.ExistingDOI == concept {
				results = append(results, row.File)
			}
			continue
		}
		if s.concepts == nil || row.ModelDOI == "" {
			continue
		}
		c, err := s.concepts.ConceptDOI(ctx, row.ModelDOI)
		if err != nil {
			s.logger.Warn("failed to look up concept doi",
				zap.String("file", row.File),
				zap.String("doi", row.ModelDOI),
				zap.Error(err))
			continue
		}
		if c == concept {
			results = append(results, row.File)
		}
	}
	return results, nil
}

func onlySM(codes []int) bool {
	for _, code := range codes {
		if !pdgid.IsSMElementary(code) {
			return false
		}
	}
	return true
}

func parseCodes(query string) ([]int, error) {
	parts := splitList(query)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no pdg codes given")
	}
	codes := make([]int, len(parts))
	for i, part := range parts {
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid pdg code %q", part)
		}
		codes[i] = code
	}
	return codes, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
