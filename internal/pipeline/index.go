package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/catalog"
)

// CatalogFiles lists the metadata files of the upstream catalog
func (p *Pipeline) CatalogFiles(ctx context.Context) ([]string, error) {
	if p.github == nil {
		return nil, fmt.Errorf("listing the catalog needs the catalog client")
	}
	up := p.cfg.Catalog
	entries, err := p.github.ListContents(ctx, up.Owner, up.Repo, up.Path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.Type == "file" && strings.HasSuffix(entry.Name, ".json") {
			files = append(files, entry.Name)
		}
	}
	return files, nil
}

// SyncIndex loads every metadata file of the upstream catalog into ix and
// returns the number indexed. Files that are not valid JSON objects are
// logged and skipped.
func (p *Pipeline) SyncIndex(ctx context.Context, ix *catalog.Index) (int, error) {
	files, err := p.CatalogFiles(ctx)
	if err != nil {
		return 0, err
	}

	up := p.cfg.Catalog
	indexed := 0
	for _, file := range files {
		data, err := p.github.FetchRaw(ctx, up.Owner, up.Repo, up.Branch, path.Join(up.Path, file))
		if err != nil {
			return indexed, err
		}
		doc, err := catalog.ParseDocument(data)
		if err != nil {
			p.logger.Warn("skipping malformed catalog file", zap.String("file", file), zap.Error(err))
			continue
		}
		if err := ix.Put(ctx, file, doc); err != nil {
			return indexed, err
		}
		indexed++
	}
	p.logger.Info("catalog index synced", zap.Int("files", indexed))
	return indexed, nil
}
