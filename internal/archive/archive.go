// Package archive unpacks model archives into scoped temporary workspaces
// and packs decompressed model directories for upload.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ufo-models/ufometa/internal/errors"
)

// Format is a supported archive container
type Format int

const (
	FormatNone Format = iota
	FormatZip
	FormatTar
	FormatTarGz
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tgz"
	default:
		return "none"
	}
}

// FormatOf returns the archive format implied by a file name
func FormatOf(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.gz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	default:
		return FormatNone
	}
}

// Workspace is a temporary directory holding one extracted model. Close
// removes it together with everything extracted into it.
type Workspace struct {
	// Dir is the extracted model directory
	Dir string
	// Source is the archive or directory the workspace was filled from
	Source string

	root string
}

// Open fills a fresh workspace from an archive or a decompressed directory.
// Directories are copied so later normalization never touches the original.
func Open(source string) (ws *Workspace, err error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open model archive: %w", err)
	}

	format := FormatOf(source)
	if !info.IsDir() && format == FormatNone {
		return nil, &errors.ArchiveFormatError{Name: filepath.Base(source)}
	}

	root, err := os.MkdirTemp("", "ufometa-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	ws = &Workspace{Dir: filepath.Join(root, "model"), Source: source, root: root}
	defer func() {
		if err != nil {
			_ = ws.Close()
			ws = nil
		}
	}()

	if info.IsDir() {
		err = copyTree(source, ws.Dir)
	} else {
		err = Extract(source, ws.Dir)
	}
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Close removes the workspace. It is safe to call more than once.
func (ws *Workspace) Close() error {
	if ws == nil || ws.root == "" {
		return nil
	}
	root := ws.root
	ws.root = ""
	return os.RemoveAll(root)
}

// Extract unpacks an archive into dest, creating dest if needed
func Extract(archivePath, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve extraction directory: %w", err)
	}

	switch FormatOf(archivePath) {
	case FormatZip:
		return extractZip(archivePath, absDest)
	case FormatTar:
		f, err := os.Open(archivePath)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer f.Close()
		return extractTar(f, absDest)
	case FormatTarGz:
		f, err := os.Open(archivePath)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read gzip stream: %w", err)
		}
		defer gz.Close()
		return extractTar(gz, absDest)
	default:
		return &errors.ArchiveFormatError{Name: filepath.Base(archivePath)}
	}
}

// safeJoin resolves an archive entry name under dest and rejects names that
// would escape it
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path in archive: %s", name)
	}
	return target, nil
}

func extractZip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer r.Close()

	for _, file := range r.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
		if err := extractZipFile(file, target); err != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
	}
	return nil
}

func extractZipFile(file *zip.File, target string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return writeFile(target, rc, file.Mode())
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar archive: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := writeFile(target, tr, header.FileInfo().Mode()); err != nil {
				return fmt.Errorf("failed to extract %s: %w", header.Name, err)
			}
		default:
			// links and devices are never part of a model package
		}
	}
}

func writeFile(target string, r io.Reader, mode fs.FileMode) (err error) {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = io.Copy(f, r) //nolint:gosec // model archives are small and user supplied
	return err
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		info, err := d.Info()
		if err != nil {
			return err
		}
		return writeFile(target, in, info.Mode())
	})
}

// Pack writes dir as a gzip-compressed tarball at out. Entries are rooted at
// the directory's base name, the layout Normalize expects to promote.
func Pack(dir, out string) (err error) {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(out)
		}
	}()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	base := filepath.Base(dir)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}
		header.Name = filepath.ToSlash(filepath.Join(base, rel))
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if walkErr != nil {
		return fmt.Errorf("failed to pack %s: %w", dir, walkErr)
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
