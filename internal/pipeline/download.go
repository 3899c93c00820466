package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/errors"
)

// Download is the outcome of downloading one catalog entry
type Download struct {
	File  string
	DOI   string
	Dir   string
	Paths []string
	Err   error
}

// Download fetches every archived file of the models recorded in the named
// catalog files into dir/<model>. Downloads run in parallel up to the
// configured bound; a failed entry does not stop the others.
func (p *Pipeline) Download(ctx context.Context, files []string, dir string) ([]Download, error) {
	if p.github == nil || p.zenodo == nil {
		return nil, fmt.Errorf("download needs the archive and catalog clients")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	results := make([]Download, len(files))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.cfg.DownloadConcurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = p.downloadOne(ctx, file, dir)
			if p.cfg.OnDownload != nil {
				mu.Lock()
				p.cfg.OnDownload(results[i])
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func (p *Pipeline) downloadOne(ctx context.Context, file, dir string) Download {
	result := Download{File: file}
	log := p.logger.With(zap.String("file", file))

	up := p.cfg.Catalog
	data, err := p.github.FetchRaw(ctx, up.Owner, up.Repo, up.Branch, path.Join(up.Path, file))
	if err != nil {
		result.Err = err
		return result
	}
	doc, err := catalog.ParseDocument(data)
	if err != nil {
		result.Err = &errors.MetadataFieldError{Field: file, Reason: err.Error()}
		return result
	}
	result.DOI = doc.String(catalog.KeyModelDOI)
	if result.DOI == "" || result.DOI == catalog.UnassignedDOI {
		result.Err = &errors.MetadataFieldError{Field: catalog.KeyModelDOI, Reason: "no archival DOI recorded in " + file}
		return result
	}

	record, err := p.zenodo.FindRecordByDOI(ctx, result.DOI)
	if err != nil {
		result.Err = err
		return result
	}
	result.Dir = filepath.Join(dir, strings.TrimSuffix(file, ".json"))
	if err := os.MkdirAll(result.Dir, 0o755); err != nil {
		result.Err = fmt.Errorf("failed to create %s: %w", result.Dir, err)
		return result
	}
	for _, f := range record.Files {
		written, err := p.zenodo.DownloadFile(ctx, f, result.Dir)
		if err != nil {
			result.Err = err
			return result
		}
		result.Paths = append(result.Paths, written)
	}
	log.Info("model downloaded", zap.String("doi", result.DOI), zap.Int("files", len(result.Paths)))
	return result
}
