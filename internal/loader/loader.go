// Package loader turns a UFO model package directory into content tables.
// Package files are parsed and evaluated by internal/ufo/eval; nothing in the
// package is ever executed.
package loader

import (
	"os"
	"sort"
	"strings"

	"github.com/ufo-models/ufometa/internal/model"
	"github.com/ufo-models/ufometa/internal/ufo/eval"
)

const objectLibrary = "object_library"

// Load normalizes dir, checks its required files and resolves every
// present content module into a table
func Load(dir string) (*model.Tables, error) {
	if err := Normalize(dir); err != nil {
		return nil, err
	}
	if err := CheckRequiredFiles(dir); err != nil {
		return nil, err
	}

	in, err := eval.New(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	defer in.Close()
	if err := in.CheckSyntax(); err != nil {
		return nil, err
	}
	if _, err := in.Import(eval.InitModule); err != nil {
		return nil, err
	}

	lib, err := in.Import(objectLibrary)
	if err != nil {
		return nil, err
	}

	tables := model.NewTables()
	for _, info := range model.Kinds {
		if !in.Has(info.Module()) {
			continue
		}
		mod, err := in.Import(info.Module())
		if err != nil {
			return nil, err
		}
		tables.Set(collect(info, mod, libraryClass(lib, info.Class)))
	}
	return tables, nil
}

// libraryClass returns the class object_library binds under name, or nil
// when the library does not define it
func libraryClass(lib *eval.Module, name string) *eval.Class {
	v, ok := lib.Lookup(name)
	if !ok {
		return nil
	}
	class, _ := v.(*eval.Class)
	return class
}

// collect keeps the non-dunder bindings of mod whose value was built by
// class itself. Subclasses and same-named classes from elsewhere do not count.
func collect(info model.KindInfo, mod *eval.Module, class *eval.Class) *model.Table {
	table := &model.Table{Kind: info.Kind, File: info.File}
	if class == nil {
		return table
	}

	names := mod.Names()
	sort.Strings(names)
	for _, name := range names {
		if strings.HasPrefix(name, "__") {
			continue
		}
		v, _ := mod.Lookup(name)
		obj, ok := v.(*eval.Object)
		if !ok || obj.Class != class {
			continue
		}
		table.Objects = append(table.Objects, toObject(name, obj))
	}
	return table
}

func toObject(name string, obj *eval.Object) model.Object {
	attrs := make(map[string]interface{}, len(obj.AttrNames()))
	for _, attr := range obj.AttrNames() {
		v, _ := obj.Attr(attr)
		attrs[attr] = native(v)
	}
	return model.Object{
		Name:  name,
		Class: obj.Class.Name,
		Attrs: attrs,
		File:  obj.File,
		Line:  obj.Line,
	}
}

// native converts an evaluated value into the plain Go shapes model.Object
// documents
func native(v eval.Value) interface{} {
	switch x := v.(type) {
	case eval.Int:
		return int(x)
	case eval.Float:
		return float64(x)
	case eval.Complex:
		return complex128(x)
	case eval.Str:
		return string(x)
	case eval.Bool:
		return bool(x)
	case eval.NoneType:
		return nil
	case *eval.List:
		return natives(x.Items)
	case *eval.Tuple:
		return natives(x.Items)
	case *eval.Dict:
		entries := make([]model.Entry, len(x.Keys))
		for i := range x.Keys {
			entries[i] = model.Entry{Key: native(x.Keys[i]), Value: native(x.Values[i])}
		}
		return entries
	case *eval.Object:
		ref := model.Ref{Class: x.Class.Name}
		if name, ok := x.Attr("name"); ok {
			ref.Name, _ = eval.AsString(name)
		}
		return ref
	case nil:
		return nil
	default:
		return model.Unknown{Desc: eval.Repr(v)}
	}
}

func natives(items []eval.Value) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = native(item)
	}
	return out
}
