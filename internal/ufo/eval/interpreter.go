// Package eval resolves the declarative Python of a UFO model package into
// runtime values without executing it. Module bodies are walked statement by
// statement: imports, assignments, class definitions and constructor calls
// are modelled, function bodies are never entered, and anything else
// degrades to an opaque value.
package eval

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/ufo-models/ufometa/internal/errors"
)

// InitModule is the module name of the package's __init__.py
const InitModule = "__init__"

// Interpreter evaluates the modules of one package. All namespaces live on
// the Interpreter and are dropped with it; nothing is shared between two
// Interpreters.
type Interpreter struct {
	fsys     fs.FS
	sources  map[string]string // module name -> file name
	subpkgs  map[string]bool
	parsed   map[string]*source
	modules  map[string]*Module
	external map[string]*Module
}

// New creates an Interpreter over the package rooted at fsys
func New(fsys fs.FS) (*Interpreter, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list package files: %w", err)
	}

	in := &Interpreter{
		fsys:     fsys,
		sources:  make(map[string]string),
		subpkgs:  make(map[string]bool),
		parsed:   make(map[string]*source),
		modules:  make(map[string]*Module),
		external: make(map[string]*Module),
	}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			if _, err := fs.Stat(fsys, path.Join(name, "__init__.py")); err == nil {
				in.subpkgs[name] = true
			}
		case strings.HasSuffix(name, ".py"):
			in.sources[strings.TrimSuffix(name, ".py")] = name
		}
	}
	return in, nil
}

// Has reports whether the package contains module name
func (in *Interpreter) Has(name string) bool {
	_, ok := in.sources[name]
	return ok
}

// SourceModules returns the names of all top-level modules, sorted
func (in *Interpreter) SourceModules() []string {
	names := make([]string, 0, len(in.sources))
	for name := range in.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckSyntax parses every module of the package without evaluating any of
// them. The first module that fails, in name order, is reported.
func (in *Interpreter) CheckSyntax() error {
	for _, name := range in.SourceModules() {
		if _, err := in.parse(name); err != nil {
			return err
		}
	}
	return nil
}

// Import evaluates a package module, and the modules it imports, once.
// Later calls return the cached namespace.
func (in *Interpreter) Import(name string) (*Module, error) {
	return in.importPackageModule(name)
}

// Close releases the syntax trees of every parsed module
func (in *Interpreter) Close() {
	for name, src := range in.parsed {
		src.close()
		delete(in.parsed, name)
	}
}

// parse parses one module, caching the tree
func (in *Interpreter) parse(name string) (*source, error) {
	if src, ok := in.parsed[name]; ok {
		return src, nil
	}
	file, ok := in.sources[name]
	if !ok {
		return nil, &errors.ImportFailure{
			Kind:    errors.MissingDependency,
			Message: fmt.Sprintf("No module named '%s'", name),
		}
	}
	data, err := fs.ReadFile(in.fsys, file)
	if err != nil {
		return nil, &errors.ImportFailure{
			Kind:    errors.MissingDependency,
			File:    file,
			Message: err.Error(),
		}
	}

	src, err := parseSource(file, data)
	if err != nil {
		return nil, err
	}
	in.parsed[name] = src
	return src, nil
}

func (in *Interpreter) importPackageModule(name string) (*Module, error) {
	if mod, ok := in.modules[name]; ok {
		return mod, nil
	}
	src, err := in.parse(name)
	if err != nil {
		return nil, err
	}

	// registered before evaluation so that import cycles see the partially
	// initialized module
	mod := newModule(name, in.sources[name])
	in.modules[name] = mod

	f := &frame{in: in, mod: mod, src: src}
	if err := f.execBody(src.root()); err != nil {
		delete(in.modules, name)
		return nil, err
	}
	mod.done = true
	return mod, nil
}

// importModule resolves an absolute "import a.b.c" to the module bound for
// its first segment and the module named by the full path
func (in *Interpreter) importModule(dotted string, loc location) (top, leaf *Module, err error) {
	first, _, nested := strings.Cut(dotted, ".")

	switch {
	case in.Has(first):
		if nested {
			return nil, nil, failure(errors.MissingDependency, loc,
				"No module named '%s'; '%s' is not a package", dotted, first)
		}
		mod, err := in.importPackageModule(first)
		if err != nil {
			return nil, nil, err
		}
		return mod, mod, nil

	case in.subpkgs[first]:
		return in.externalModule(first), in.externalModule(dotted), nil

	case legacyModules[first]:
		return nil, nil, failure(errors.IncompatibleRuntime, loc,
			"module '%s' only exists in Python 2", first)

	case stdlibModules[first]:
		return in.externalModule(first), in.externalModule(dotted), nil
	}

	return nil, nil, failure(errors.MissingDependency, loc, "No module named '%s'", first)
}

func (in *Interpreter) externalModule(name string) *Module {
	if mod, ok := in.external[name]; ok {
		return mod
	}
	mod := newModule(name, "")
	mod.External = true
	mod.done = true
	in.external[name] = mod
	return mod
}

// failure builds an ImportFailure at loc
func failure(kind errors.ImportKind, loc location, format string, args ...interface{}) *errors.ImportFailure {
	return &errors.ImportFailure{
		Kind:    kind,
		File:    loc.File,
		Line:    loc.Line,
		Column:  loc.Column,
		Message: fmt.Sprintf(format, args...),
	}
}
