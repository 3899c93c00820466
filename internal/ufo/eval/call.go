package eval

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ufo-models/ufometa/internal/errors"
)

// callArgs holds evaluated call arguments. open is set when a starred or
// double-starred argument could not be expanded, so the full argument list
// is unknown.
type callArgs struct {
	positional []Value
	names      []string
	keywords   map[string]Value
	open       bool
}

func (f *frame) evalCall(n *sitter.Node) (Value, error) {
	fn, err := f.eval(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	loc := f.at(n)
	args, err := f.evalArgs(n.ChildByFieldName("arguments"), loc)
	if err != nil {
		return nil, err
	}

	switch callee := fn.(type) {
	case *Class:
		return construct(callee, args, loc)
	case *Builtin:
		if args.open {
			return &Opaque{Desc: callee.Name + "() result"}, nil
		}
		return callBuiltin(callee.Name, args.positional, loc)
	case *Method:
		return callMethod(callee, args, loc)
	}
	return &Opaque{Desc: "call result"}, nil
}

func (f *frame) evalArgs(list *sitter.Node, loc location) (*callArgs, error) {
	args := &callArgs{keywords: make(map[string]Value)}
	if list == nil {
		return args, nil
	}
	if list.Type() == "generator_expression" {
		args.positional = append(args.positional, &Opaque{Desc: "generator"})
		return args, nil
	}

	for _, arg := range namedChildren(list) {
		switch arg.Type() {
		case "keyword_argument":
			v, err := f.eval(arg.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			if err := args.addKeyword(f.text(arg.ChildByFieldName("name")), v, loc); err != nil {
				return nil, err
			}

		case "dictionary_splat":
			v, err := f.eval(arg)
			if err != nil {
				return nil, err
			}
			d, ok := v.(*Dict)
			if !ok {
				args.open = true
				continue
			}
			for i, key := range d.Keys {
				name, ok := key.(Str)
				if !ok {
					return nil, failure(errors.BadCallSignature, loc, "keywords must be strings")
				}
				if err := args.addKeyword(string(name), d.Values[i], loc); err != nil {
					return nil, err
				}
			}

		case "list_splat":
			v, err := f.eval(arg)
			if err != nil {
				return nil, err
			}
			items, ok := sequenceItems(v)
			if !ok {
				args.open = true
				continue
			}
			args.positional = append(args.positional, items...)

		default:
			v, err := f.eval(arg)
			if err != nil {
				return nil, err
			}
			args.positional = append(args.positional, v)
		}
	}
	return args, nil
}

func (a *callArgs) addKeyword(name string, v Value, loc location) error {
	if _, dup := a.keywords[name]; dup {
		return failure(errors.BadCallSignature, loc, "keyword argument repeated: '%s'", name)
	}
	a.keywords[name] = v
	a.names = append(a.names, name)
	return nil
}

// signature is the parameter list a constructor call binds against, self
// excluded
type signature struct {
	params      []Param
	positional  int
	varArgs     bool
	varKeywords bool
}

func (s signature) accepts(name string) bool {
	for _, p := range s.params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// signature derives the constructor signature from the nearest __init__.
// An __init__ taking only *args and **kwargs stores its arguments under
// require_args, so that list is bound instead; it is also used when no
// __init__ is defined at all.
func (c *Class) signature() signature {
	if v, ok := c.lookup("__init__"); ok {
		if init, ok := v.(*Function); ok {
			params, positional := init.Params, init.Positional
			if positional > 0 {
				params, positional = params[1:], positional-1
			}
			if len(params) > 0 || !init.VarArgs {
				return signature{
					params:      params,
					positional:  positional,
					varArgs:     init.VarArgs,
					varKeywords: init.VarKeywords,
				}
			}
		}
	}

	required, declared := c.requiredArgs()
	if !declared {
		return signature{varArgs: true, varKeywords: true}
	}
	params := make([]Param, len(required))
	for i, name := range required {
		params[i] = Param{Name: name}
	}
	return signature{params: params, positional: len(params), varArgs: true, varKeywords: true}
}

// construct instantiates a package class the way its __init__ binds
// arguments: positionals fill the parameters in order, keywords fill the
// rest, and every parameter without a default must end up with exactly one
// value. Defaults of parameters listed in require_args are stored too.
func construct(class *Class, args *callArgs, loc location) (Value, error) {
	obj := newObject(class, loc.File, loc.Line)
	sig := class.signature()

	for i, v := range args.positional {
		if i >= sig.positional {
			if sig.varArgs {
				break
			}
			return nil, failure(errors.BadCallSignature, loc,
				"%s() takes %d positional arguments but %d were given",
				class.Name, sig.positional+1, len(args.positional)+1)
		}
		obj.set(sig.params[i].Name, v)
	}
	for _, name := range args.names {
		if _, dup := obj.attrs[name]; dup {
			return nil, failure(errors.BadCallSignature, loc,
				"%s() got multiple values for argument '%s'", class.Name, name)
		}
		if !sig.varKeywords && !sig.accepts(name) {
			return nil, failure(errors.BadCallSignature, loc,
				"%s() got an unexpected keyword argument '%s'", class.Name, name)
		}
		obj.set(name, args.keywords[name])
	}

	if args.open {
		return obj, nil
	}
	stored, _ := class.requiredArgs()
	for _, p := range sig.params {
		if _, ok := obj.attrs[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, failure(errors.BadCallSignature, loc,
				"%s() missing required argument: '%s'", class.Name, p.Name)
		}
		for _, name := range stored {
			if name == p.Name {
				obj.set(name, p.Default)
			}
		}
	}
	return obj, nil
}

func callMethod(m *Method, args *callArgs, loc location) (Value, error) {
	obj, ok := m.Receiver.(*Object)
	if !ok || m.Name != "anti" || len(args.positional) > 0 || len(args.names) > 0 {
		return &Opaque{Desc: m.Name + "() result"}, nil
	}
	return anti(obj, loc)
}

// anti builds the antiparticle of a particle object: identifiers and charge
// change sign, names swap, and options outside require_args_all are negated.
// Color triplets and sextets become their conjugates; singlets and octets
// are kept.
func anti(p *Object, loc location) (Value, error) {
	name := p.attrs["name"]
	antiname := p.attrs["antiname"]
	if name != nil && antiname != nil {
		if same, known := Equal(name, antiname); known && same {
			label, ok := AsString(name)
			if !ok {
				label = Repr(name)
			}
			return nil, failure(errors.BadCallSignature, loc, "%s has no anti particle.", label)
		}
	}

	keep := make(map[string]bool)
	all := p.Class.allArgs()
	if all == nil {
		all, _ = p.Class.requiredArgs()
	}
	for _, arg := range all {
		keep[arg] = true
	}

	out := newObject(p.Class, loc.File, loc.Line)
	swap := map[string]string{
		"name": "antiname", "antiname": "name",
		"texname": "antitexname", "antitexname": "texname",
	}
	for _, attr := range p.order {
		v := p.attrs[attr]
		switch {
		case swap[attr] != "":
			if other, ok := p.attrs[swap[attr]]; ok {
				v = other
			}
		case attr == "pdg_code" || attr == "charge":
			v = unaryOp("-", v)
		case attr == "color":
			if c, ok := AsInt(v); !ok || (c != 1 && c != 8) {
				v = unaryOp("-", v)
			}
		case !keep[attr]:
			v = unaryOp("-", v)
		}
		out.set(attr, v)
	}
	return out, nil
}
