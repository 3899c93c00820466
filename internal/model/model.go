// Package model holds the content tables resolved from a UFO model package.
package model

import "sort"

// Kind identifies a content table
type Kind string

const (
	Parameter     Kind = "Parameter"
	Particle      Kind = "Particle"
	CouplingOrder Kind = "CouplingOrder"
	Coupling      Kind = "Coupling"
	Lorentz       Kind = "Lorentz"
	Vertex        Kind = "Vertex"
	Propagator    Kind = "Propagator"
	Decay         Kind = "Decay"
	CTCoupling    Kind = "CTCoupling"
	CTParameter   Kind = "CTParameter"
	CTVertex      Kind = "CTVertex"
)

// Presence says whether a table must exist
type Presence int

const (
	Required Presence = iota
	Optional
	CounterTerm
)

// KindInfo describes where a kind is declared and which object_library
// class its objects are built from
type KindInfo struct {
	Kind     Kind
	File     string
	Class    string
	Presence Presence
}

// Module returns the module name of the declaring file
func (k KindInfo) Module() string {
	return k.File[:len(k.File)-len(".py")]
}

// Kinds lists every content table in validation order
var Kinds = []KindInfo{
	{Parameter, "parameters.py", "Parameter", Required},
	{Particle, "particles.py", "Particle", Required},
	{CouplingOrder, "coupling_orders.py", "CouplingOrder", Required},
	{Coupling, "couplings.py", "Coupling", Required},
	{Lorentz, "lorentz.py", "Lorentz", Required},
	{Vertex, "vertices.py", "Vertex", Required},
	{Propagator, "propagators.py", "Propagator", Optional},
	{Decay, "decays.py", "Decay", Optional},
	{CTCoupling, "CT_couplings.py", "Coupling", CounterTerm},
	{CTParameter, "CT_parameters.py", "CTParameter", CounterTerm},
	{CTVertex, "CT_vertices.py", "CTVertex", CounterTerm},
}

// Info returns the description of kind
func Info(kind Kind) (KindInfo, bool) {
	for _, info := range Kinds {
		if info.Kind == kind {
			return info, true
		}
	}
	return KindInfo{}, false
}

// Ref points at another package object by class and declared name
type Ref struct {
	Class string
	Name  string
}

// Unknown stands in for a value that could not be resolved statically
type Unknown struct {
	Desc string
}

// Entry is one key/value pair of a dict attribute
type Entry struct {
	Key   interface{}
	Value interface{}
}

// Object is one declared content object. Attribute values are nil, bool,
// int, float64, complex128, string, []interface{}, []Entry, Ref or Unknown.
type Object struct {
	Name  string
	Class string
	Attrs map[string]interface{}
	File  string
	Line  int
}

// Attr returns an attribute value
func (o Object) Attr(name string) (interface{}, bool) {
	v, ok := o.Attrs[name]
	return v, ok
}

// DeclaredName returns the object's name attribute, falling back to the
// binding name
func (o Object) DeclaredName() string {
	if s, ok := o.Attrs["name"].(string); ok {
		return s
	}
	return o.Name
}

// Table is the content of one kind, ordered by binding name
type Table struct {
	Kind    Kind
	File    string
	Objects []Object
}

// Len returns the number of objects
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Objects)
}

// Tables holds the tables of one package. Absent optional modules have no
// table at all; present modules always have one, possibly empty.
type Tables struct {
	tables map[Kind]*Table
}

// NewTables creates an empty set of tables
func NewTables() *Tables {
	return &Tables{tables: make(map[Kind]*Table)}
}

// Set stores a table, replacing any previous table of the same kind
func (ts *Tables) Set(t *Table) {
	ts.tables[t.Kind] = t
}

// Get returns the table of kind and whether its module was present
func (ts *Tables) Get(kind Kind) (*Table, bool) {
	t, ok := ts.tables[kind]
	return t, ok
}

// Count returns the number of objects of kind, 0 when absent
func (ts *Tables) Count(kind Kind) int {
	t, _ := ts.Get(kind)
	return t.Len()
}

// Present returns the kinds that have a table, in Kinds order
func (ts *Tables) Present() []Kind {
	var kinds []Kind
	for _, info := range Kinds {
		if _, ok := ts.tables[info.Kind]; ok {
			kinds = append(kinds, info.Kind)
		}
	}
	return kinds
}

// SortObjects orders objects by binding name
func SortObjects(objects []Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Name < objects[j].Name
	})
}
