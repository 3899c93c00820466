package eval

import (
	"math"
	"math/cmplx"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ufo-models/ufometa/internal/errors"
)

func (f *frame) eval(n *sitter.Node) (Value, error) {
	if n == nil {
		return &Opaque{Desc: "expression"}, nil
	}

	switch n.Type() {
	case "identifier":
		return f.lookup(f.text(n), f.at(n))

	case "integer":
		return numberLiteral(f.text(n), false), nil
	case "float":
		return numberLiteral(f.text(n), true), nil
	case "string":
		return f.src.stringLiteral(n), nil
	case "concatenated_string":
		var b strings.Builder
		for _, part := range namedChildren(n) {
			v := f.src.stringLiteral(part)
			s, ok := v.(Str)
			if !ok {
				return v, nil
			}
			b.WriteString(string(s))
		}
		return Str(b.String()), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "none":
		return None, nil

	case "parenthesized_expression", "as_pattern", "list_splat", "dictionary_splat":
		return f.eval(firstNamed(n))

	case "unary_operator":
		operand, err := f.eval(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return unaryOp(n.ChildByFieldName("operator").Type(), operand), nil

	case "not_operator":
		operand, err := f.eval(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return unaryOp("not", operand), nil

	case "binary_operator":
		left, err := f.eval(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := f.eval(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return binaryOp(n.ChildByFieldName("operator").Type(), left, right), nil

	case "boolean_operator":
		return f.evalBoolOp(n)

	case "comparison_operator":
		return f.evalCompare(n)

	case "conditional_expression":
		parts := namedChildren(n)
		if len(parts) != 3 {
			return &Opaque{Desc: "conditional expression"}, nil
		}
		test, err := f.eval(parts[1])
		if err != nil {
			return nil, err
		}
		taken, known := truth(test)
		switch {
		case !known:
			return &Opaque{Desc: "conditional expression"}, nil
		case taken:
			return f.eval(parts[0])
		default:
			return f.eval(parts[2])
		}

	case "lambda":
		return &Function{Name: "<lambda>", VarArgs: true, VarKeywords: true}, nil

	case "call":
		return f.evalCall(n)

	case "attribute":
		obj, err := f.eval(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		return f.attribute(obj, f.text(n.ChildByFieldName("attribute")), f.at(n))

	case "subscript":
		return f.evalSubscript(n)

	case "slice":
		for _, part := range namedChildren(n) {
			if _, err := f.eval(part); err != nil {
				return nil, err
			}
		}
		return &Opaque{Desc: "slice"}, nil

	case "tuple", "expression_list":
		items, err := f.evalItems(namedChildren(n))
		if err != nil || items == nil {
			return &Opaque{Desc: "tuple"}, err
		}
		return &Tuple{Items: items}, nil

	case "list":
		items, err := f.evalItems(namedChildren(n))
		if err != nil || items == nil {
			return &Opaque{Desc: "list"}, err
		}
		return &List{Items: items}, nil

	case "set":
		if _, err := f.evalItems(namedChildren(n)); err != nil {
			return nil, err
		}
		return &Opaque{Desc: "set"}, nil

	case "dictionary":
		return f.evalDict(n)

	case "list_comprehension", "dictionary_comprehension", "set_comprehension", "generator_expression":
		// comprehension variables are never bound, so the element cannot be evaluated
		return &Opaque{Desc: "comprehension"}, nil

	case "named_expression":
		value, err := f.eval(n.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		f.bind(f.text(n.ChildByFieldName("name")), value)
		return value, nil

	case "yield", "await":
		return &Opaque{Desc: "generator"}, nil
	}
	return &Opaque{Desc: "expression"}, nil
}

// lookup resolves a bare name: class scope, module globals, builtins
func (f *frame) lookup(name string, loc location) (Value, error) {
	if f.class != nil {
		if v, ok := f.class[name]; ok {
			return v, nil
		}
	}
	if v, ok := f.mod.names[name]; ok {
		return v, nil
	}
	// submodules become attributes of the package once imported
	if f.mod.Name == InitModule {
		if sub, ok := f.in.modules[name]; ok && name != InitModule {
			return sub, nil
		}
	}
	if builtinNames[name] {
		return &Builtin{Name: name}, nil
	}
	if f.mod.unknownStar {
		return &Opaque{Desc: name}, nil
	}
	if legacyBuiltins[name] {
		return nil, failure(errors.IncompatibleRuntime, loc,
			"name '%s' is only defined in Python 2", name)
	}
	return nil, failure(errors.UnresolvedReference, loc, "name '%s' is not defined", name)
}

func (f *frame) attribute(obj Value, name string, loc location) (Value, error) {
	switch o := obj.(type) {
	case *Module:
		if o.External {
			return &Opaque{Desc: o.Name + "." + name}, nil
		}
		if v, ok := o.Lookup(name); ok {
			return v, nil
		}
		if o.Name == InitModule {
			if sub, ok := f.in.modules[name]; ok {
				return sub, nil
			}
		}
		if o.unknownStar {
			return &Opaque{Desc: o.Name + "." + name}, nil
		}
		return nil, failure(errors.UnresolvedReference, loc,
			"module '%s' has no attribute '%s'", o.Name, name)

	case *Object:
		if v, ok := o.attrs[name]; ok {
			return v, nil
		}
		if v, ok := o.Class.lookup(name); ok {
			if _, isFunc := v.(*Function); isFunc {
				return &Method{Receiver: o, Name: name}, nil
			}
			return v, nil
		}
		return nil, failure(errors.UnresolvedReference, loc,
			"'%s' object has no attribute '%s'", o.Class.Name, name)

	case *Class:
		if v, ok := o.lookup(name); ok {
			return v, nil
		}
		return &Opaque{Desc: o.Name + "." + name}, nil

	case Complex:
		switch name {
		case "real":
			return Float(real(o)), nil
		case "imag":
			return Float(imag(o)), nil
		}
	case Int, Float:
		switch name {
		case "real":
			return o, nil
		case "imag":
			return Int(0), nil
		}
	}
	return &Opaque{Desc: obj.TypeName() + "." + name}, nil
}

// evalIndex evaluates the subscript of a subscript node. Several
// comma-separated subscripts form a tuple.
func (f *frame) evalIndex(n *sitter.Node) (Value, error) {
	parts := namedChildren(n)
	if len(parts) < 2 {
		return &Opaque{Desc: "subscript"}, nil
	}
	if len(parts) == 2 {
		return f.eval(parts[1])
	}
	items := make([]Value, 0, len(parts)-1)
	for _, part := range parts[1:] {
		v, err := f.eval(part)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return &Tuple{Items: items}, nil
}

func (f *frame) evalSubscript(n *sitter.Node) (Value, error) {
	obj, err := f.eval(n.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}
	index, err := f.evalIndex(n)
	if err != nil {
		return nil, err
	}

	switch container := obj.(type) {
	case *List, *Tuple:
		items, _ := sequenceItems(container)
		if i, ok := index.(Int); ok {
			if i < 0 {
				i += Int(len(items))
			}
			if i >= 0 && int(i) < len(items) {
				return items[i], nil
			}
		}
	case *Dict:
		if v, ok := container.Get(index); ok {
			return v, nil
		}
	}
	return &Opaque{Desc: "subscript"}, nil
}

// evalItems evaluates display elements. A nil slice without error means a
// starred element could not be expanded.
func (f *frame) evalItems(elements []*sitter.Node) ([]Value, error) {
	items := make([]Value, 0, len(elements))
	expanded := true
	for _, elem := range elements {
		v, err := f.eval(elem)
		if err != nil {
			return nil, err
		}
		if elem.Type() == "list_splat" {
			inner, ok := sequenceItems(v)
			if !ok {
				expanded = false
				continue
			}
			items = append(items, inner...)
			continue
		}
		items = append(items, v)
	}
	if !expanded {
		return nil, nil
	}
	return items, nil
}

func (f *frame) evalDict(n *sitter.Node) (Value, error) {
	d := &Dict{}
	opaque := false
	for _, entry := range namedChildren(n) {
		switch entry.Type() {
		case "dictionary_splat":
			value, err := f.eval(entry)
			if err != nil {
				return nil, err
			}
			if src, ok := value.(*Dict); ok {
				for j := range src.Keys {
					d.Set(src.Keys[j], src.Values[j])
				}
			} else {
				opaque = true
			}

		case "pair":
			key, err := f.eval(entry.ChildByFieldName("key"))
			if err != nil {
				return nil, err
			}
			value, err := f.eval(entry.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			if !isModelled(key) {
				opaque = true
				continue
			}
			d.Set(key, value)
		}
	}
	if opaque {
		return &Opaque{Desc: "dict"}, nil
	}
	return d, nil
}

func (f *frame) evalBoolOp(n *sitter.Node) (Value, error) {
	left, err := f.eval(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	right := n.ChildByFieldName("right")
	value, known := truth(left)
	if !known {
		if _, err := f.eval(right); err != nil {
			return nil, err
		}
		return &Opaque{Desc: "boolean operation"}, nil
	}
	op := n.ChildByFieldName("operator").Type()
	if op == "and" && !value || op == "or" && value {
		return left, nil
	}
	return f.eval(right)
}

// evalCompare evaluates a comparison chain. Operands are the named children;
// the anonymous tokens between them spell the operators, so "not" "in"
// becomes "not in".
func (f *frame) evalCompare(n *sitter.Node) (Value, error) {
	var left Value
	var op []string
	result := true
	known := true
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() {
			op = append(op, c.Type())
			continue
		}
		if c.Type() == "comment" {
			continue
		}
		right, err := f.eval(c)
		if err != nil {
			return nil, err
		}
		if left != nil {
			ok, decided := compare(strings.Join(op, " "), left, right)
			if !decided {
				known = false
			} else if !ok {
				result = false
			}
		}
		left, op = right, nil
	}
	if !result {
		return Bool(false), nil
	}
	if !known {
		return &Opaque{Desc: "comparison"}, nil
	}
	return Bool(true), nil
}

func compare(op string, a, b Value) (result bool, known bool) {
	switch op {
	case "==":
		return Equal(a, b)
	case "!=":
		eq, known := Equal(a, b)
		return !eq, known
	case "is", "is not":
		same, known := identical(a, b)
		if op == "is not" {
			same = !same
		}
		return same, known
	case "in", "not in":
		found, known := contains(b, a)
		if op == "not in" {
			found = !found
		}
		return found, known
	}

	if x, ok := AsFloat(a); ok {
		if y, ok := AsFloat(b); ok {
			switch op {
			case "<":
				return x < y, true
			case "<=":
				return x <= y, true
			case ">":
				return x > y, true
			case ">=":
				return x >= y, true
			}
		}
	}
	if x, ok := a.(Str); ok {
		if y, ok := b.(Str); ok {
			switch op {
			case "<":
				return x < y, true
			case "<=":
				return x <= y, true
			case ">":
				return x > y, true
			case ">=":
				return x >= y, true
			}
		}
	}
	return false, false
}

func identical(a, b Value) (bool, bool) {
	_, aNone := a.(NoneType)
	_, bNone := b.(NoneType)
	if aNone || bNone {
		if !isModelled(a) || !isModelled(b) {
			return false, false
		}
		return aNone && bNone, true
	}
	if x, ok := a.(Bool); ok {
		if y, ok := b.(Bool); ok {
			return x == y, true
		}
	}
	switch a.(type) {
	case *Object, *Class, *Module, *List, *Tuple, *Dict, *Function:
		return a == b, isModelled(b)
	}
	return false, false
}

func contains(container, item Value) (bool, bool) {
	switch c := container.(type) {
	case Str:
		s, ok := item.(Str)
		if !ok {
			return false, false
		}
		return strings.Contains(string(c), string(s)), true
	case *Dict:
		_, found := c.Get(item)
		return found, isModelled(item)
	case *List, *Tuple:
		items, _ := sequenceItems(c)
		allKnown := true
		for _, elem := range items {
			eq, known := Equal(elem, item)
			if known && eq {
				return true, true
			}
			if !known {
				allKnown = false
			}
		}
		return false, allKnown
	}
	return false, false
}

func unaryOp(op string, v Value) Value {
	if op == "not" {
		if b, known := truth(v); known {
			return Bool(!b)
		}
		return &Opaque{Desc: "not"}
	}

	if b, ok := v.(Bool); ok {
		v = Int(0)
		if b {
			v = Int(1)
		}
	}
	switch x := v.(type) {
	case Int:
		switch op {
		case "-":
			return -x
		case "+":
			return x
		case "~":
			return ^x
		}
	case Float:
		switch op {
		case "-":
			return -x
		case "+":
			return x
		}
	case Complex:
		switch op {
		case "-":
			return -x
		case "+":
			return x
		}
	}
	return &Opaque{Desc: "unary operation"}
}

// binaryOp applies an arithmetic operator. Python 3 true division is used
// throughout. Unsupported operand types and arithmetic faults yield an
// opaque value.
func binaryOp(op string, a, b Value) Value {
	a, b = boolToInt(a), boolToInt(b)

	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return intOp(op, x, y)
		case Float:
			return floatOp(op, float64(x), float64(y))
		case Complex:
			return complexOp(op, complex(float64(x), 0), complex128(y))
		case *List, *Tuple, Str:
			if op == "*" {
				return repeat(b, x)
			}
		}
	case Float:
		switch y := b.(type) {
		case Int:
			return floatOp(op, float64(x), float64(y))
		case Float:
			return floatOp(op, float64(x), float64(y))
		case Complex:
			return complexOp(op, complex(float64(x), 0), complex128(y))
		}
	case Complex:
		if y, ok := toComplex(b); ok {
			return complexOp(op, complex128(x), y)
		}
	case Str:
		switch y := b.(type) {
		case Str:
			if op == "+" {
				return x + y
			}
		case Int:
			if op == "*" {
				return repeat(a, y)
			}
		}
	case *List:
		if y, ok := b.(*List); ok && op == "+" {
			return &List{Items: append(append([]Value(nil), x.Items...), y.Items...)}
		}
		if y, ok := b.(Int); ok && op == "*" {
			return repeat(a, y)
		}
	case *Tuple:
		if y, ok := b.(*Tuple); ok && op == "+" {
			return &Tuple{Items: append(append([]Value(nil), x.Items...), y.Items...)}
		}
		if y, ok := b.(Int); ok && op == "*" {
			return repeat(a, y)
		}
	}
	return &Opaque{Desc: "binary operation"}
}

func boolToInt(v Value) Value {
	if b, ok := v.(Bool); ok {
		if b {
			return Int(1)
		}
		return Int(0)
	}
	return v
}

func intOp(op string, x, y Int) Value {
	switch op {
	case "+":
		if r := x + y; (r > x) == (y > 0) {
			return r
		}
		return Float(float64(x) + float64(y))
	case "-":
		if r := x - y; (r < x) == (y > 0) {
			return r
		}
		return Float(float64(x) - float64(y))
	case "*":
		if x == 0 || y == 0 {
			return Int(0)
		}
		if r := x * y; r/y == x && !(x == -1 && y == math.MinInt64) && !(y == -1 && x == math.MinInt64) {
			return r
		}
		return Float(float64(x) * float64(y))
	case "/":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		return Float(float64(x) / float64(y))
	case "//":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return q
	case "%":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		r := x % y
		if r != 0 && ((r < 0) != (y < 0)) {
			r += y
		}
		return r
	case "**":
		if y < 0 {
			return floatOp(op, float64(x), float64(y))
		}
		result := math.Pow(float64(x), float64(y))
		if math.Abs(result) < 1<<53 {
			return Int(int64(result))
		}
		return Float(result)
	case "&":
		return x & y
	case "|":
		return x | y
	case "^":
		return x ^ y
	case "<<":
		if y >= 0 && y < 63 {
			return x << uint(y)
		}
	case ">>":
		if y >= 0 {
			if y > 63 {
				y = 63
			}
			return x >> uint(y)
		}
	}
	return &Opaque{Desc: "integer operation"}
}

func floatOp(op string, x, y float64) Value {
	switch op {
	case "+":
		return Float(x + y)
	case "-":
		return Float(x - y)
	case "*":
		return Float(x * y)
	case "/":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		return Float(x / y)
	case "//":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		return Float(math.Floor(x / y))
	case "%":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return Float(r)
	case "**":
		if x < 0 && y != math.Trunc(y) {
			return Complex(cmplx.Pow(complex(x, 0), complex(y, 0)))
		}
		return Float(math.Pow(x, y))
	}
	return &Opaque{Desc: "float operation"}
}

func complexOp(op string, x, y complex128) Value {
	switch op {
	case "+":
		return Complex(x + y)
	case "-":
		return Complex(x - y)
	case "*":
		return Complex(x * y)
	case "/":
		if y == 0 {
			return &Opaque{Desc: "division by zero"}
		}
		return Complex(x / y)
	case "**":
		return Complex(cmplx.Pow(x, y))
	}
	return &Opaque{Desc: "complex operation"}
}

func repeat(seq Value, n Int) Value {
	if n < 0 {
		n = 0
	}
	if n > 1<<16 {
		return &Opaque{Desc: "repeated sequence"}
	}
	switch s := seq.(type) {
	case Str:
		return Str(strings.Repeat(string(s), int(n)))
	case *List:
		var items []Value
		for i := Int(0); i < n; i++ {
			items = append(items, s.Items...)
		}
		return &List{Items: items}
	case *Tuple:
		var items []Value
		for i := Int(0); i < n; i++ {
			items = append(items, s.Items...)
		}
		return &Tuple{Items: items}
	}
	return &Opaque{Desc: "repeated sequence"}
}
