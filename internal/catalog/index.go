package catalog

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotIndexed is returned for a catalog file the index does not hold
var ErrNotIndexed = stderrors.New("catalog file not indexed")

var indexSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		file TEXT PRIMARY KEY,
		model_name TEXT NOT NULL DEFAULT '',
		model_doi TEXT NOT NULL DEFAULT '',
		existing_doi TEXT NOT NULL DEFAULT '',
		paper TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS paper_ids (
		file TEXT NOT NULL,
		paper_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS particles (
		file TEXT NOT NULL,
		name TEXT NOT NULL,
		pdg_code INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_paper_ids_paper_id ON paper_ids (paper_id)`,
	`CREATE INDEX IF NOT EXISTS idx_particles_pdg_code ON particles (pdg_code)`,
	`CREATE INDEX IF NOT EXISTS idx_particles_name ON particles (name)`,
}

// Summary is the row search results are displayed with
type Summary struct {
	File        string `json:"file" yaml:"file"`
	ModelName   string `json:"model_name" yaml:"model_name"`
	PaperID     string `json:"paper_id" yaml:"paper_id"`
	ModelDOI    string `json:"model_doi" yaml:"model_doi"`
	ExistingDOI string `json:"existing_doi,omitempty" yaml:"existing_doi,omitempty"`
}

// Index is a SQLite index of catalog records keyed by catalog file name
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if needed) the index database at path. Use
// ":memory:" for a throwaway index.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog index: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	ix, err := NewIndex(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

// NewIndex wraps an open database and creates the index tables
func NewIndex(ctx context.Context, db *sql.DB) (*Index, error) {
	for _, stmt := range indexSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create catalog index: %w", err)
		}
	}
	return &Index{db: db}, nil
}

// Close closes the database
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Put stores doc under file, replacing any previous record
func (ix *Index) Put(ctx context.Context, file string, doc *Document) (err error) {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", file, err)
	}
	var particles map[string]int
	if _, err := doc.Get(KeyAllParticles, &particles); err != nil {
		return fmt.Errorf("%s: %q is not a name to code map: %w", file, KeyAllParticles, err)
	}
	paper, _ := doc.Paper()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"records", "paper_ids", "particles"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE file = ?", file); err != nil {
			return fmt.Errorf("failed to replace %s: %w", file, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (file, model_name, model_doi, existing_doi, paper, document) VALUES (?, ?, ?, ?, ?, ?)`,
		file, doc.String(KeyModelName), doc.String(KeyModelDOI), doc.String(KeyExistingDOI),
		DisplayPaperID(paper), string(data))
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", file, err)
	}
	for _, id := range doc.PaperIDs() {
		if _, err = tx.ExecContext(ctx, `INSERT INTO paper_ids (file, paper_id) VALUES (?, ?)`, file, id); err != nil {
			return fmt.Errorf("failed to index paper ids of %s: %w", file, err)
		}
	}
	for name, code := range particles {
		if _, err = tx.ExecContext(ctx, `INSERT INTO particles (file, name, pdg_code) VALUES (?, ?, ?)`, file, name, code); err != nil {
			return fmt.Errorf("failed to index particles of %s: %w", file, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", file, err)
	}
	return nil
}

// Get returns the stored document of file
func (ix *Index) Get(ctx context.Context, file string) (*Document, error) {
	var data string
	err := ix.db.QueryRowContext(ctx, `SELECT document FROM records WHERE file = ?`, file).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", file, ErrNotIndexed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return ParseDocument([]byte(data))
}

// Files lists every indexed catalog file in name order
func (ix *Index) Files(ctx context.Context) ([]string, error) {
	return ix.files(ctx, `SELECT file FROM records ORDER BY file`)
}

// FilesWithPaperID lists the files whose Paper_id holds id
func (ix *Index) FilesWithPaperID(ctx context.Context, id string) ([]string, error) {
	return ix.files(ctx, `SELECT DISTINCT file FROM paper_ids WHERE paper_id = ? ORDER BY file`, id)
}

// FileByDOI returns the first file whose Model Doi or Existing Model Doi is
// doi, or "" when there is none
func (ix *Index) FileByDOI(ctx context.Context, doi string) (string, error) {
	files, err := ix.files(ctx,
		`SELECT file FROM records WHERE model_doi = ? OR existing_doi = ? ORDER BY file LIMIT 1`, doi, doi)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[0], nil
}

// FilesWithCodes lists the files declaring every one of codes
func (ix *Index) FilesWithCodes(ctx context.Context, codes []int) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(codes)+1)
	for _, code := range codes {
		args = append(args, code)
	}
	args = append(args, len(distinctInts(codes)))
	query := `SELECT file FROM particles WHERE pdg_code IN (` + placeholders(len(codes)) + `)
		GROUP BY file HAVING COUNT(DISTINCT pdg_code) = ? ORDER BY file`
	return ix.files(ctx, query, args...)
}

// CodesForNames looks up the codes of the named particles in the first file
// that declares all of them. It reports false when no file does.
func (ix *Index) CodesForNames(ctx context.Context, names []string) ([]int, bool, error) {
	if len(names) == 0 {
		return nil, false, nil
	}
	args := make([]interface{}, 0, len(names)+1)
	for _, name := range names {
		args = append(args, name)
	}
	args = append(args, len(distinctStrings(names)))
	query := `SELECT file FROM particles WHERE name IN (` + placeholders(len(names)) + `)
		GROUP BY file HAVING COUNT(DISTINCT name) = ? ORDER BY file LIMIT 1`
	files, err := ix.files(ctx, query, args...)
	if err != nil || len(files) == 0 {
		return nil, false, err
	}

	rows, err := ix.db.QueryContext(ctx, `SELECT name, pdg_code FROM particles WHERE file = ?`, files[0])
	if err != nil {
		return nil, false, fmt.Errorf("failed to query particles: %w", err)
	}
	defer rows.Close()
	byName := make(map[string]int)
	for rows.Next() {
		var name string
		var code int
		if err := rows.Scan(&name, &code); err != nil {
			return nil, false, fmt.Errorf("failed to scan particle: %w", err)
		}
		byName[name] = code
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to query particles: %w", err)
	}

	codes := make([]int, len(names))
	for i, name := range names {
		codes[i] = byName[name]
	}
	return codes, true, nil
}

// Summaries returns the display rows of files, in the given order. Files the
// index does not hold are skipped.
func (ix *Index) Summaries(ctx context.Context, files []string) ([]Summary, error) {
	out := make([]Summary, 0, len(files))
	for _, file := range files {
		s := Summary{File: file}
		err := ix.db.QueryRowContext(ctx,
			`SELECT model_name, paper, model_doi, existing_doi FROM records WHERE file = ?`, file).
			Scan(&s.ModelName, &s.PaperID, &s.ModelDOI, &s.ExistingDOI)
		if stderrors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (ix *Index) files(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog index: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return nil, fmt.Errorf("failed to scan catalog file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query catalog index: %w", err)
	}
	return files, nil
}

// DisplayPaperID picks the paper identifier shown in result tables: arXiv
// when present, otherwise the doi with any https://doi.org/ prefix removed
func DisplayPaperID(paper PaperID) string {
	if paper.ArXiv != "" {
		return paper.ArXiv
	}
	if strings.Contains(paper.DOI, "doi.org") && len(paper.DOI) > len("https://doi.org/") {
		return paper.DOI[len("https://doi.org/"):]
	}
	return paper.DOI
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func distinctInts(xs []int) map[int]bool {
	out := make(map[int]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

func distinctStrings(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}
