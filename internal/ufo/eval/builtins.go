package eval

import (
	"math"

	"github.com/ufo-models/ufometa/internal/errors"
)

// stdlibModules lists top-level Python 3 standard library modules. Importing
// one yields an external module whose attributes are opaque.
var stdlibModules = map[string]bool{
	"__future__": true, "abc": true, "argparse": true, "array": true, "ast": true,
	"bisect": true, "builtins": true, "cmath": true, "codecs": true, "collections": true,
	"contextlib": true, "copy": true, "csv": true, "dataclasses": true, "datetime": true,
	"decimal": true, "enum": true, "errno": true, "fnmatch": true, "fractions": true,
	"functools": true, "gc": true, "glob": true, "gzip": true, "hashlib": true,
	"heapq": true, "importlib": true, "inspect": true, "io": true, "itertools": true,
	"json": true, "keyword": true, "logging": true, "math": true, "numbers": true,
	"operator": true, "os": true, "pathlib": true, "pickle": true, "platform": true,
	"pprint": true, "random": true, "re": true, "shutil": true, "signal": true,
	"site": true, "string": true, "struct": true, "subprocess": true, "sys": true,
	"tarfile": true, "tempfile": true, "textwrap": true, "threading": true, "time": true,
	"traceback": true, "types": true, "typing": true, "unittest": true, "warnings": true,
	"weakref": true, "zipfile": true,
}

// legacyModules only exist in the Python 2 standard library
var legacyModules = map[string]bool{
	"__builtin__": true, "ConfigParser": true, "Queue": true, "StringIO": true,
	"Tkinter": true, "commands": true, "cPickle": true, "cStringIO": true,
	"exceptions": true, "httplib": true, "urllib2": true, "urlparse": true,
}

// legacyBuiltins were removed from the builtins in Python 3
var legacyBuiltins = map[string]bool{
	"basestring": true, "cmp": true, "execfile": true, "file": true, "long": true,
	"raw_input": true, "reduce": true, "reload": true, "unichr": true, "unicode": true,
	"xrange": true,
}

// builtinNames are resolvable without a binding
var builtinNames = map[string]bool{
	"abs": true, "all": true, "any": true, "bool": true, "callable": true,
	"chr": true, "classmethod": true, "complex": true, "dict": true, "dir": true,
	"divmod": true, "enumerate": true, "eval": true, "exec": true, "filter": true,
	"float": true, "format": true, "frozenset": true, "getattr": true, "globals": true,
	"hasattr": true, "hash": true, "id": true, "input": true, "int": true,
	"isinstance": true, "issubclass": true, "iter": true, "len": true, "list": true,
	"locals": true, "map": true, "max": true, "min": true, "next": true,
	"object": true, "open": true, "ord": true, "pow": true, "print": true,
	"property": true, "range": true, "repr": true, "reversed": true, "round": true,
	"set": true, "setattr": true, "slice": true, "sorted": true, "staticmethod": true,
	"str": true, "sum": true, "super": true, "tuple": true, "type": true,
	"vars": true, "zip": true, "NotImplemented": true, "Ellipsis": true,

	"BaseException": true, "Exception": true, "ArithmeticError": true,
	"AssertionError": true, "AttributeError": true, "ImportError": true,
	"IndexError": true, "KeyError": true, "ModuleNotFoundError": true,
	"NameError": true, "NotImplementedError": true, "OSError": true, "IOError": true,
	"RuntimeError": true, "StopIteration": true, "SyntaxError": true,
	"TypeError": true, "ValueError": true, "ZeroDivisionError": true,
	"Warning": true, "DeprecationWarning": true, "UserWarning": true,
}

// exceptionsFor maps a failure kind to the exception names an except clause
// may use to catch it
var exceptionsFor = map[errors.ImportKind][]string{
	errors.IncompatibleRuntime: {"SyntaxError"},
	errors.MissingDependency:   {"ImportError", "ModuleNotFoundError"},
	errors.UnresolvedReference: {"NameError", "AttributeError", "ImportError"},
	errors.BadCallSignature:    {"TypeError"},
}

// callBuiltin evaluates the builtins that show up in parameter and particle
// declarations. Everything else returns an opaque value.
func callBuiltin(name string, args []Value, loc location) (Value, error) {
	switch name {
	case "complex":
		switch len(args) {
		case 0:
			return Complex(0), nil
		case 1:
			if c, ok := toComplex(args[0]); ok {
				return Complex(c), nil
			}
		case 2:
			re, ok1 := toComplex(args[0])
			im, ok2 := toComplex(args[1])
			if ok1 && ok2 {
				return Complex(re + im*complex(0, 1)), nil
			}
		}

	case "float":
		if len(args) == 0 {
			return Float(0), nil
		}
		if f, ok := AsFloat(args[0]); ok {
			return Float(f), nil
		}
		if _, ok := args[0].(Complex); ok {
			return nil, failure(errors.BadCallSignature, loc, "can't convert complex to float")
		}

	case "int":
		if len(args) == 0 {
			return Int(0), nil
		}
		if f, ok := AsFloat(args[0]); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return Int(int64(f)), nil
		}

	case "abs":
		if len(args) == 1 {
			switch x := args[0].(type) {
			case Int:
				if x < 0 {
					return -x, nil
				}
				return x, nil
			case Float:
				return Float(math.Abs(float64(x))), nil
			case Complex:
				return Float(math.Hypot(real(x), imag(x))), nil
			}
		}

	case "bool":
		if len(args) == 0 {
			return Bool(false), nil
		}
		if b, known := truth(args[0]); known {
			return Bool(b), nil
		}

	case "str":
		if len(args) == 1 {
			if s, ok := args[0].(Str); ok {
				return s, nil
			}
		}

	case "len":
		if len(args) == 1 {
			switch x := args[0].(type) {
			case Str:
				return Int(len([]rune(string(x)))), nil
			case *List:
				return Int(len(x.Items)), nil
			case *Tuple:
				return Int(len(x.Items)), nil
			case *Dict:
				return Int(x.Len()), nil
			}
		}

	case "list", "tuple":
		items, ok := []Value{}, true
		if len(args) == 1 {
			items, ok = sequenceItems(args[0])
		}
		if ok && len(args) <= 1 {
			if name == "list" {
				return &List{Items: append([]Value(nil), items...)}, nil
			}
			return &Tuple{Items: append([]Value(nil), items...)}, nil
		}

	case "print":
		return None, nil
	}

	return &Opaque{Desc: name + "() result"}, nil
}

// sequenceItems returns the items of a list or tuple
func sequenceItems(v Value) ([]Value, bool) {
	switch x := v.(type) {
	case *List:
		return x.Items, true
	case *Tuple:
		return x.Items, true
	}
	return nil, false
}
