package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a runtime value produced by evaluating package source
type Value interface {
	TypeName() string
}

// Int is a Python int that fits in 64 bits
type Int int64

// Float is a Python float
type Float float64

// Complex is a Python complex number
type Complex complex128

// Str is a Python str (bytes literals are folded into it)
type Str string

// Bool is a Python bool
type Bool bool

// NoneType is the type of None
type NoneType struct{}

// None is the single None value
var None = NoneType{}

// List is a Python list
type List struct {
	Items []Value
}

// Tuple is a Python tuple
type Tuple struct {
	Items []Value
}

// Dict is a Python dict. Keys keep insertion order and are compared with
// Equal, so tuples of objects work as keys the way UFO vertices use them.
type Dict struct {
	Keys   []Value
	Values []Value
}

// Get returns the value stored under key
func (d *Dict) Get(key Value) (Value, bool) {
	for i, k := range d.Keys {
		if eq, known := Equal(k, key); known && eq {
			return d.Values[i], true
		}
	}
	return nil, false
}

// Set stores value under key, replacing an equal key in place
func (d *Dict) Set(key, value Value) {
	for i, k := range d.Keys {
		if eq, known := Equal(k, key); known && eq {
			d.Values[i] = value
			return
		}
	}
	d.Keys = append(d.Keys, key)
	d.Values = append(d.Values, value)
}

// Len returns the number of entries
func (d *Dict) Len() int { return len(d.Keys) }

// Class is a class defined by a package module. Only the require_args
// declarations of its body are evaluated.
type Class struct {
	Name           string
	Module         string
	Bases          []*Class
	RequireArgs    []string
	RequireArgsAll []string
	declaresArgs   bool
	declaresAll    bool
	namespace      map[string]Value
}

// lookup finds a class attribute, searching bases depth first
func (c *Class) lookup(name string) (Value, bool) {
	if name == "require_args" {
		if args, ok := c.requiredArgs(); ok {
			return strList(args), true
		}
	}
	if name == "require_args_all" {
		if all := c.allArgs(); all != nil {
			return strList(all), true
		}
	}
	if v, ok := c.namespace[name]; ok {
		return v, true
	}
	for _, base := range c.Bases {
		if v, ok := base.lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

func strList(items []string) *List {
	out := &List{Items: make([]Value, len(items))}
	for i, item := range items {
		out.Items[i] = Str(item)
	}
	return out
}

// requiredArgs returns the require_args list, inherited from the first base
// that declares one.
func (c *Class) requiredArgs() ([]string, bool) {
	if c.declaresArgs {
		return c.RequireArgs, true
	}
	for _, base := range c.Bases {
		if args, ok := base.requiredArgs(); ok {
			return args, true
		}
	}
	return nil, false
}

func (c *Class) allArgs() []string {
	if c.declaresAll {
		return c.RequireArgsAll
	}
	for _, base := range c.Bases {
		if all := base.allArgs(); all != nil {
			return all
		}
	}
	return nil
}

// QualifiedName returns module.Name
func (c *Class) QualifiedName() string {
	return c.Module + "." + c.Name
}

// Object is an instance constructed by calling a package class. Positional
// arguments are bound to the class's require_args in order.
type Object struct {
	Class *Class
	attrs map[string]Value
	order []string
	File  string
	Line  int
}

func newObject(class *Class, file string, line int) *Object {
	return &Object{Class: class, attrs: make(map[string]Value), File: file, Line: line}
}

// Attr returns an attribute set at construction
func (o *Object) Attr(name string) (Value, bool) {
	v, ok := o.attrs[name]
	return v, ok
}

// AttrNames returns attribute names in the order they were set
func (o *Object) AttrNames() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

func (o *Object) set(name string, v Value) {
	if _, exists := o.attrs[name]; !exists {
		o.order = append(o.order, name)
	}
	o.attrs[name] = v
}

// Module is an evaluated module namespace. External modules come from the
// Python standard library and have no known contents.
type Module struct {
	Name     string
	File     string
	External bool
	names    map[string]Value
	seen     map[string]bool
	order    []string
	done     bool

	// set after "from <stdlib> import *", whose names cannot be known
	unknownStar bool
}

func newModule(name, file string) *Module {
	m := &Module{Name: name, File: file, names: make(map[string]Value), seen: make(map[string]bool)}
	m.names["__name__"] = Str(name)
	m.names["__file__"] = Str(file)
	m.names["__doc__"] = None
	return m
}

// Lookup returns a top-level binding
func (m *Module) Lookup(name string) (Value, bool) {
	v, ok := m.names[name]
	return v, ok
}

// Names returns the top-level names bound by the module's own code, in first
// binding order
func (m *Module) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Module) bind(name string, v Value) {
	if !m.seen[name] {
		m.seen[name] = true
		m.order = append(m.order, name)
	}
	m.names[name] = v
}

func (m *Module) unbind(name string) {
	delete(m.names, name)
	if !m.seen[name] {
		return
	}
	delete(m.seen, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Function is a def or lambda. Bodies are never run; only the parameter
// list is kept so constructor calls can be checked against __init__.
type Function struct {
	Name string
	// Params lists the named parameters in order. The first Positional of
	// them may be passed positionally.
	Params      []Param
	Positional  int
	VarArgs     bool
	VarKeywords bool
}

// Param is a named parameter. Default is nil when the parameter is required.
type Param struct {
	Name    string
	Default Value
}

// Builtin is a builtin function or type
type Builtin struct {
	Name string
}

// Method is a method bound to a receiver
type Method struct {
	Receiver Value
	Name     string
}

// Opaque stands in for a value the evaluator does not model
type Opaque struct {
	Desc string
}

func (Int) TypeName() string       { return "int" }
func (Float) TypeName() string     { return "float" }
func (Complex) TypeName() string   { return "complex" }
func (Str) TypeName() string       { return "str" }
func (Bool) TypeName() string      { return "bool" }
func (NoneType) TypeName() string  { return "NoneType" }
func (*List) TypeName() string     { return "list" }
func (*Tuple) TypeName() string    { return "tuple" }
func (*Dict) TypeName() string     { return "dict" }
func (*Class) TypeName() string    { return "type" }
func (o *Object) TypeName() string { return o.Class.Name }
func (*Module) TypeName() string   { return "module" }
func (*Function) TypeName() string { return "function" }
func (*Builtin) TypeName() string  { return "builtin_function_or_method" }
func (*Method) TypeName() string   { return "method" }
func (*Opaque) TypeName() string   { return "object" }

// Repr renders v roughly the way Python's repr would
func Repr(v Value) string {
	switch x := v.(type) {
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return formatFloat(float64(x))
	case Complex:
		return fmt.Sprintf("(%s%+gj)", formatFloat(real(x)), imag(x))
	case Str:
		return strconv.Quote(string(x))
	case Bool:
		if x {
			return "True"
		}
		return "False"
	case NoneType:
		return "None"
	case *List:
		return "[" + joinRepr(x.Items) + "]"
	case *Tuple:
		if len(x.Items) == 1 {
			return "(" + Repr(x.Items[0]) + ",)"
		}
		return "(" + joinRepr(x.Items) + ")"
	case *Dict:
		parts := make([]string, len(x.Keys))
		for i := range x.Keys {
			parts[i] = Repr(x.Keys[i]) + ": " + Repr(x.Values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Class:
		return "<class '" + x.QualifiedName() + "'>"
	case *Object:
		if name, ok := x.attrs["name"].(Str); ok {
			return string(name)
		}
		return "<" + x.Class.QualifiedName() + " object>"
	case *Module:
		return "<module '" + x.Name + "'>"
	case *Function:
		return "<function " + x.Name + ">"
	case *Builtin:
		return "<built-in function " + x.Name + ">"
	case *Method:
		return "<bound method " + x.Name + ">"
	case *Opaque:
		return "<" + x.Desc + ">"
	default:
		return "<?>"
	}
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Repr(item)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Equal compares two values. known is false when either side is not modelled.
func Equal(a, b Value) (eq bool, known bool) {
	if x, y, ok := numericPair(a, b); ok {
		return x == y, true
	}
	switch x := a.(type) {
	case Str:
		y, ok := b.(Str)
		return ok && x == y, true
	case NoneType:
		_, ok := b.(NoneType)
		return ok, true
	case *Tuple:
		y, ok := b.(*Tuple)
		if !ok {
			return false, isModelled(b)
		}
		return equalItems(x.Items, y.Items)
	case *List:
		y, ok := b.(*List)
		if !ok {
			return false, isModelled(b)
		}
		return equalItems(x.Items, y.Items)
	case *Object, *Class, *Module, *Function, *Builtin:
		return a == b, true
	case *Opaque:
		return false, false
	}
	if _, ok := b.(*Opaque); ok {
		return false, false
	}
	return false, isModelled(a)
}

func equalItems(a, b []Value) (bool, bool) {
	if len(a) != len(b) {
		return false, true
	}
	for i := range a {
		eq, known := Equal(a[i], b[i])
		if !known {
			return false, false
		}
		if !eq {
			return false, true
		}
	}
	return true, true
}

func isModelled(v Value) bool {
	_, opaque := v.(*Opaque)
	return !opaque
}

// numericPair widens two numeric values to complex for comparison
func numericPair(a, b Value) (complex128, complex128, bool) {
	x, ok := toComplex(a)
	if !ok {
		return 0, 0, false
	}
	y, ok := toComplex(b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func toComplex(v Value) (complex128, bool) {
	switch x := v.(type) {
	case Int:
		return complex(float64(x), 0), true
	case Float:
		return complex(float64(x), 0), true
	case Complex:
		return complex128(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsInt converts an int-valued Value. Floats with an integral value are accepted.
func AsInt(v Value) (int, bool) {
	switch x := v.(type) {
	case Int:
		return int(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	case Float:
		if float64(x) == float64(int64(x)) {
			return int(x), true
		}
	}
	return 0, false
}

// AsFloat converts a real numeric Value
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	case Complex:
		if imag(x) == 0 {
			return real(x), true
		}
	}
	return 0, false
}

// AsString converts a Str
func AsString(v Value) (string, bool) {
	s, ok := v.(Str)
	return string(s), ok
}

// truth returns Python truthiness. known is false for opaque values.
func truth(v Value) (value bool, known bool) {
	switch x := v.(type) {
	case Bool:
		return bool(x), true
	case Int:
		return x != 0, true
	case Float:
		return x != 0, true
	case Complex:
		return x != 0, true
	case Str:
		return x != "", true
	case NoneType:
		return false, true
	case *List:
		return len(x.Items) > 0, true
	case *Tuple:
		return len(x.Items) > 0, true
	case *Dict:
		return len(x.Keys) > 0, true
	case *Class, *Object, *Module, *Function, *Builtin, *Method:
		return true, true
	}
	return false, false
}
