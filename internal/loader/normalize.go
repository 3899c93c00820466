package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ufo-models/ufometa/internal/errors"
)

const initFile = "__init__.py"

// promoteDir is the scratch name a nested package is moved to while its
// contents are lifted into the root
const promoteDir = ".ufometa-promote"

// ModelIndependentFiles must exist in every package
var ModelIndependentFiles = []string{
	"__init__.py",
	"object_library.py",
	"function_library.py",
	"write_param_card.py",
}

// ModelDependentFiles hold the required content tables
var ModelDependentFiles = []string{
	"parameters.py",
	"particles.py",
	"coupling_orders.py",
	"couplings.py",
	"lorentz.py",
	"vertices.py",
}

// Normalize turns an extracted archive into a flat package directory. It
// strips interpreter artifacts, then either accepts a root that already
// holds __init__.py or promotes the single nested package directory.
func Normalize(dir string) error {
	if err := stripArtifacts(dir); err != nil {
		return err
	}

	if isFile(filepath.Join(dir, initFile)) {
		return nil
	}

	entries, err := visibleEntries(dir)
	if err != nil {
		return err
	}

	var packages []string
	for _, entry := range entries {
		if entry.IsDir() && isFile(filepath.Join(dir, entry.Name(), initFile)) {
			packages = append(packages, entry.Name())
		}
	}

	switch {
	case len(packages) == 1 && len(entries) == 1:
		return promote(dir, packages[0])
	case len(packages) > 1:
		return &errors.LayoutError{Path: dir, Reason: fmt.Sprintf(
			"found %d package directories (%s); expected exactly one",
			len(packages), strings.Join(packages, ", "))}
	case len(packages) == 1:
		return &errors.LayoutError{Path: dir, Reason: fmt.Sprintf(
			"package directory %s sits next to %d other entries; expected it alone",
			packages[0], len(entries)-1)}
	default:
		return &errors.LayoutError{Path: dir, Reason: "no __init__.py at the root or in a single top-level directory"}
	}
}

// CheckRequiredFiles reports every required file missing from a flat package
func CheckRequiredFiles(dir string) error {
	var missing []string
	for _, group := range [][]string{ModelIndependentFiles, ModelDependentFiles} {
		for _, name := range group {
			if !isFile(filepath.Join(dir, name)) {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return &errors.PackageStructureError{Missing: missing}
	}
	return nil
}

func stripArtifacts(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if name == "__pycache__" || name == "__MACOSX" {
				if err := os.RemoveAll(path); err != nil {
					return fmt.Errorf("removing %s: %w", name, err)
				}
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".pyc") || strings.HasSuffix(name, ".pyo") || strings.HasSuffix(name, "~") {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing %s: %w", name, err)
			}
		}
		return nil
	})
}

// visibleEntries lists dir without dotfiles
func visibleEntries(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading package directory: %w", err)
	}
	visible := entries[:0]
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		visible = append(visible, entry)
	}
	return visible, nil
}

// promote lifts the contents of dir/sub into dir. The subdirectory is renamed
// first so a child with the same name as sub cannot collide with it.
func promote(dir, sub string) error {
	scratch := filepath.Join(dir, promoteDir)
	if err := os.Rename(filepath.Join(dir, sub), scratch); err != nil {
		return fmt.Errorf("promoting package directory: %w", err)
	}

	children, err := os.ReadDir(scratch)
	if err != nil {
		return fmt.Errorf("promoting package directory: %w", err)
	}
	for _, child := range children {
		target := filepath.Join(dir, child.Name())
		if _, err := os.Lstat(target); err == nil {
			return &errors.LayoutError{Path: dir, Reason: fmt.Sprintf("cannot promote %s/%s: %s already exists", sub, child.Name(), child.Name())}
		}
		if err := os.Rename(filepath.Join(scratch, child.Name()), target); err != nil {
			return fmt.Errorf("promoting %s: %w", child.Name(), err)
		}
	}
	return os.Remove(scratch)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
