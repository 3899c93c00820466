package eval

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ufo-models/ufometa/internal/errors"
)

// frame is the execution state of one module body, or of a class body
// nested in it
type frame struct {
	in    *Interpreter
	mod   *Module
	src   *source
	class map[string]Value
}

func (f *frame) bind(name string, v Value) {
	if f.class != nil {
		f.class[name] = v
		return
	}
	f.mod.bind(name, v)
}

func (f *frame) bound(name string) bool {
	if f.class != nil {
		if _, ok := f.class[name]; ok {
			return true
		}
	}
	_, ok := f.mod.names[name]
	return ok
}

func (f *frame) at(n *sitter.Node) location {
	return f.src.at(n)
}

func (f *frame) text(n *sitter.Node) string {
	return f.src.text(n)
}

// execBody runs the statements of a module or block node
func (f *frame) execBody(block *sitter.Node) error {
	for _, stmt := range namedChildren(block) {
		if err := f.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) exec(stmt *sitter.Node) error {
	switch stmt.Type() {
	case "import_statement":
		return f.execImport(stmt)
	case "import_from_statement":
		return f.execFromImport(stmt)
	case "future_import_statement":
		for _, alias := range f.src.importAliases(stmt) {
			f.bind(alias.bound(), &Opaque{Desc: "__future__." + alias.name})
		}
		return nil

	case "expression_statement":
		for _, e := range namedChildren(stmt) {
			var err error
			switch e.Type() {
			case "assignment":
				err = f.execAssign(e)
			case "augmented_assignment":
				err = f.execAugAssign(e)
			default:
				_, err = f.eval(e)
			}
			if err != nil {
				return err
			}
		}
		return nil

	case "delete_statement":
		for _, target := range namedChildren(stmt) {
			if err := f.delete(target); err != nil {
				return err
			}
		}
		return nil

	case "decorated_definition":
		for _, c := range namedChildren(stmt) {
			if c.Type() != "decorator" {
				continue
			}
			if _, err := f.eval(firstNamed(c)); err != nil {
				return err
			}
		}
		return f.exec(stmt.ChildByFieldName("definition"))

	case "class_definition":
		return f.execClass(stmt)
	case "function_definition":
		return f.execFunction(stmt)

	case "if_statement":
		return f.execIf(stmt)
	case "try_statement":
		return f.execTry(stmt)
	case "for_statement", "while_statement", "with_statement", "match_statement":
		return f.execLoop(stmt)
	}

	// pass, global, nonlocal, assert, raise and the loop keywords leave the
	// namespace untouched
	return nil
}

// execAssign handles plain, chained and annotated assignment. Targets are
// bound left to right.
func (f *frame) execAssign(n *sitter.Node) error {
	var targets []*sitter.Node
	for n.Type() == "assignment" {
		targets = append(targets, n.ChildByFieldName("left"))
		right := n.ChildByFieldName("right")
		if right == nil {
			// a bare annotation binds nothing
			return nil
		}
		n = right
	}

	value, err := f.eval(n)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if err := f.assign(target, value); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) execAugAssign(n *sitter.Node) error {
	target := n.ChildByFieldName("left")
	current, err := f.eval(target)
	if err != nil {
		return err
	}
	operand, err := f.eval(n.ChildByFieldName("right"))
	if err != nil {
		return err
	}
	op := strings.TrimSuffix(n.ChildByFieldName("operator").Type(), "=")
	return f.assign(target, binaryOp(op, current, operand))
}

// importAlias is one "name [as asName]" clause of an import statement
type importAlias struct {
	name   string
	asName string
}

// bound is the name a from-import binds
func (a importAlias) bound() string {
	if a.asName != "" {
		return a.asName
	}
	return a.name
}

// importAliases lists the imported names of an import statement. For from
// imports only the names after the import keyword are returned.
func (s *source) importAliases(n *sitter.Node) []importAlias {
	afterImport := n.Type() == "import_statement"
	var aliases []importAlias
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() {
			if c.Type() == "import" {
				afterImport = true
			}
			continue
		}
		if !afterImport {
			continue
		}
		switch c.Type() {
		case "dotted_name":
			aliases = append(aliases, importAlias{name: s.dottedName(c)})
		case "aliased_import":
			aliases = append(aliases, importAlias{
				name:   s.dottedName(c.ChildByFieldName("name")),
				asName: s.text(c.ChildByFieldName("alias")),
			})
		}
	}
	return aliases
}

func (f *frame) execImport(n *sitter.Node) error {
	for _, alias := range f.src.importAliases(n) {
		top, leaf, err := f.in.importModule(alias.name, f.at(n))
		if err != nil {
			return err
		}
		if alias.asName != "" {
			f.bind(alias.asName, leaf)
		} else {
			first, _, _ := strings.Cut(alias.name, ".")
			f.bind(first, top)
		}
	}
	return nil
}

func (f *frame) execFromImport(n *sitter.Node) error {
	loc := f.at(n)
	level, module := 0, ""
	if target := n.ChildByFieldName("module_name"); target != nil {
		if target.Type() == "relative_import" {
			for _, c := range namedChildren(target) {
				switch c.Type() {
				case "import_prefix":
					level = strings.Count(f.text(c), ".")
				case "dotted_name":
					module = f.src.dottedName(c)
				}
			}
		} else {
			module = f.src.dottedName(target)
		}
	}
	star := false
	for _, c := range namedChildren(n) {
		if c.Type() == "wildcard_import" {
			star = true
		}
	}
	names := f.src.importAliases(n)

	if level > 1 {
		return failure(errors.MissingDependency, loc,
			"attempted relative import beyond top-level package")
	}

	// "from . import a, b" names sibling modules or __init__ bindings
	if level == 1 && module == "" {
		for _, alias := range names {
			value, err := f.packageMember(alias.name, loc)
			if err != nil {
				return err
			}
			f.bind(alias.bound(), value)
		}
		return nil
	}

	var mod *Module
	if level == 1 {
		if !f.in.Has(module) {
			return failure(errors.MissingDependency, loc, "No module named '.%s'", module)
		}
		m, err := f.in.importPackageModule(module)
		if err != nil {
			return err
		}
		mod = m
	} else {
		_, leaf, err := f.in.importModule(module, loc)
		if err != nil {
			return err
		}
		mod = leaf
	}

	if star {
		f.importStar(mod)
		return nil
	}

	for _, alias := range names {
		if mod.External {
			f.bind(alias.bound(), &Opaque{Desc: mod.Name + "." + alias.name})
			continue
		}
		value, ok := mod.Lookup(alias.name)
		if !ok {
			msg := "cannot import name '%s' from '%s'"
			if !mod.done {
				msg += " (most likely due to a circular import)"
			}
			return failure(errors.UnresolvedReference, loc, msg, alias.name, mod.Name)
		}
		f.bind(alias.bound(), value)
	}
	return nil
}

// packageMember resolves a name imported from the package itself
func (f *frame) packageMember(name string, loc location) (Value, error) {
	if f.in.Has(name) && name != InitModule {
		return f.in.importPackageModule(name)
	}
	if f.in.subpkgs[name] {
		return f.in.externalModule(name), nil
	}
	if init, ok := f.in.modules[InitModule]; ok {
		if value, ok := init.Lookup(name); ok {
			return value, nil
		}
	}
	return nil, failure(errors.UnresolvedReference, loc,
		"cannot import name '%s' from the model package", name)
}

func (f *frame) importStar(mod *Module) {
	if mod.External {
		f.mod.unknownStar = true
		return
	}
	if all, ok := mod.Lookup("__all__"); ok {
		if items, ok := sequenceItems(all); ok {
			for _, item := range items {
				if name, ok := item.(Str); ok {
					if value, ok := mod.Lookup(string(name)); ok {
						f.bind(string(name), value)
					}
				}
			}
			return
		}
	}
	for _, name := range mod.Names() {
		if !strings.HasPrefix(name, "_") {
			f.bind(name, mod.names[name])
		}
	}
	if mod.unknownStar {
		f.mod.unknownStar = true
	}
}

// execClass defines a class. The body runs in its own scope so that
// require_args, require_args_all and __init__ can be read back; methods are
// bound but never run.
func (f *frame) execClass(n *sitter.Node) error {
	name := f.text(n.ChildByFieldName("name"))
	class := &Class{Name: name, Module: f.mod.Name}

	for _, arg := range namedChildren(n.ChildByFieldName("superclasses")) {
		if arg.Type() == "keyword_argument" {
			if _, err := f.eval(arg.ChildByFieldName("value")); err != nil {
				return err
			}
			continue
		}
		base, err := f.eval(arg)
		if err != nil {
			return err
		}
		if c, ok := base.(*Class); ok {
			class.Bases = append(class.Bases, c)
		}
	}

	body := &frame{in: f.in, mod: f.mod, src: f.src, class: make(map[string]Value)}
	if err := body.execBody(n.ChildByFieldName("body")); err != nil {
		return err
	}
	if args, ok := stringList(body.class["require_args"]); ok {
		class.RequireArgs = args
		class.declaresArgs = true
	}
	if all, ok := stringList(body.class["require_args_all"]); ok {
		class.RequireArgsAll = all
		class.declaresAll = true
	}
	class.namespace = body.class

	f.bind(name, class)
	return nil
}

func stringList(v Value) ([]string, bool) {
	items, ok := sequenceItems(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(Str)
		if !ok {
			return nil, false
		}
		out = append(out, string(s))
	}
	return out, true
}

// execFunction binds a def. Default values are evaluated as Python does at
// definition time; the body is not.
func (f *frame) execFunction(n *sitter.Node) error {
	fn := &Function{Name: f.text(n.ChildByFieldName("name"))}
	if err := f.parameters(fn, n.ChildByFieldName("parameters")); err != nil {
		return err
	}
	f.bind(fn.Name, fn)
	return nil
}

func (f *frame) parameters(fn *Function, params *sitter.Node) error {
	positional := true
	var add func(p *sitter.Node) error
	add = func(p *sitter.Node) error {
		switch p.Type() {
		case "identifier":
			fn.Params = append(fn.Params, Param{Name: f.text(p)})
		case "typed_parameter":
			return add(firstNamed(p))
		case "default_parameter", "typed_default_parameter":
			value, err := f.eval(p.ChildByFieldName("value"))
			if err != nil {
				return err
			}
			fn.Params = append(fn.Params, Param{Name: f.text(p.ChildByFieldName("name")), Default: value})
		case "list_splat_pattern":
			fn.VarArgs = true
			positional = false
			return nil
		case "keyword_separator":
			positional = false
			return nil
		case "dictionary_splat_pattern":
			fn.VarKeywords = true
			return nil
		default:
			return nil
		}
		if positional {
			fn.Positional++
		}
		return nil
	}

	for _, p := range namedChildren(params) {
		if err := add(p); err != nil {
			return err
		}
	}
	return nil
}

// execLoop evaluates the header of a loop, with or match statement. The
// body is not run; the names it would bind become opaque.
func (f *frame) execLoop(n *sitter.Node) error {
	var headers []*sitter.Node
	switch n.Type() {
	case "for_statement":
		headers = append(headers, n.ChildByFieldName("right"))
	case "while_statement":
		headers = append(headers, n.ChildByFieldName("condition"))
	case "with_statement":
		for _, clause := range namedChildren(n) {
			if clause.Type() != "with_clause" {
				continue
			}
			for _, item := range namedChildren(clause) {
				value := item.ChildByFieldName("value")
				if value != nil && value.Type() == "as_pattern" {
					value = firstNamed(value)
				}
				headers = append(headers, value)
			}
		}
	case "match_statement":
		headers = append(headers, n.ChildByFieldName("subject"))
	}
	for _, header := range headers {
		if header == nil {
			continue
		}
		if _, err := f.eval(header); err != nil {
			return err
		}
	}
	f.bindOpaque(n, "loop or with binding")
	return nil
}

func (f *frame) execIf(n *sitter.Node) error {
	branches := []*sitter.Node{n}
	var elseBody *sitter.Node
	for _, clause := range namedChildren(n) {
		switch clause.Type() {
		case "elif_clause":
			branches = append(branches, clause)
		case "else_clause":
			elseBody = clause.ChildByFieldName("body")
		}
	}

	for _, branch := range branches {
		test, err := f.eval(branch.ChildByFieldName("condition"))
		if err != nil {
			return err
		}
		taken, known := truth(test)
		if !known {
			// the outcome cannot be decided statically
			f.bindOpaque(n, "conditional binding")
			return nil
		}
		if taken {
			return f.execBody(branch.ChildByFieldName("consequence"))
		}
	}
	if elseBody != nil {
		return f.execBody(elseBody)
	}
	return nil
}

func (f *frame) execTry(n *sitter.Node) error {
	var handlers []*sitter.Node
	var elseBody, finallyBody *sitter.Node
	for _, clause := range namedChildren(n) {
		switch clause.Type() {
		case "except_clause", "except_group_clause":
			handlers = append(handlers, clause)
		case "else_clause":
			elseBody = clause.ChildByFieldName("body")
		case "finally_clause":
			finallyBody = firstNamed(clause)
		}
	}

	err := f.execBody(n.ChildByFieldName("body"))
	if err != nil {
		fail, ok := err.(*errors.ImportFailure)
		if !ok {
			return err
		}
		handler := f.matchHandler(handlers, fail.Kind)
		if handler == nil {
			return err
		}
		if _, target := f.src.exceptParts(handler); target != nil {
			if err := f.assign(target, &Opaque{Desc: "exception"}); err != nil {
				return err
			}
		}
		if err := f.execBody(lastNamed(handler)); err != nil {
			return err
		}
	} else if elseBody != nil {
		if err := f.execBody(elseBody); err != nil {
			return err
		}
	}

	if finallyBody != nil {
		return f.execBody(finallyBody)
	}
	return nil
}

// exceptParts splits an except clause into the caught expression and the
// "as" target. Either may be nil.
func (s *source) exceptParts(clause *sitter.Node) (caught, target *sitter.Node) {
	var exprs []*sitter.Node
	for _, c := range namedChildren(clause) {
		if c.Type() != "block" {
			exprs = append(exprs, c)
		}
	}
	if len(exprs) == 0 {
		return nil, nil
	}
	caught = exprs[0]
	if caught.Type() == "as_pattern" {
		for _, c := range namedChildren(caught) {
			if c.Type() == "as_pattern_target" {
				target = firstNamed(c)
			}
		}
		return firstNamed(caught), target
	}
	if len(exprs) > 1 {
		target = exprs[1]
	}
	return caught, target
}

func lastNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[len(children)-1]
}

// matchHandler finds the except clause that would catch a failure of kind
func (f *frame) matchHandler(handlers []*sitter.Node, kind errors.ImportKind) *sitter.Node {
	for _, handler := range handlers {
		caught, _ := f.src.exceptParts(handler)
		if caught == nil {
			return handler
		}
		for _, name := range f.exceptionNames(caught) {
			if name == "Exception" || name == "BaseException" {
				return handler
			}
			for _, c := range exceptionsFor[kind] {
				if name == c {
					return handler
				}
			}
		}
	}
	return nil
}

func (f *frame) exceptionNames(n *sitter.Node) []string {
	switch n.Type() {
	case "identifier":
		return []string{f.text(n)}
	case "attribute":
		return []string{f.text(n.ChildByFieldName("attribute"))}
	case "tuple", "parenthesized_expression", "expression_list":
		var names []string
		for _, elem := range namedChildren(n) {
			names = append(names, f.exceptionNames(elem)...)
		}
		return names
	}
	return nil
}

// bindOpaque binds every not yet bound name the statement could bind
func (f *frame) bindOpaque(stmt *sitter.Node, desc string) {
	for _, name := range f.src.boundNames(stmt) {
		if !f.bound(name) {
			f.bind(name, &Opaque{Desc: desc})
		}
	}
}

// assign stores value into an assignment target
func (f *frame) assign(target *sitter.Node, value Value) error {
	switch target.Type() {
	case "identifier":
		f.bind(f.text(target), value)
		return nil

	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "expression_list":
		return f.unpack(namedChildren(target), value, f.at(target))

	case "parenthesized_expression":
		return f.assign(firstNamed(target), value)

	case "list_splat_pattern", "list_splat":
		return f.assign(firstNamed(target), value)

	case "attribute":
		obj, err := f.eval(target.ChildByFieldName("object"))
		if err != nil {
			return err
		}
		if o, ok := obj.(*Object); ok {
			o.set(f.text(target.ChildByFieldName("attribute")), value)
		}
		return nil

	case "subscript":
		obj, err := f.eval(target.ChildByFieldName("value"))
		if err != nil {
			return err
		}
		index, err := f.evalIndex(target)
		if err != nil {
			return err
		}
		switch container := obj.(type) {
		case *Dict:
			if isModelled(index) {
				container.Set(index, value)
			}
		case *List:
			if i, ok := AsInt(index); ok {
				if i < 0 {
					i += len(container.Items)
				}
				if i >= 0 && i < len(container.Items) {
					container.Items[i] = value
				}
			}
		}
		return nil
	}
	return nil
}

func isStarTarget(n *sitter.Node) bool {
	switch n.Type() {
	case "list_splat_pattern", "list_splat":
		return true
	}
	return false
}

func (f *frame) unpack(targets []*sitter.Node, value Value, loc location) error {
	items, ok := sequenceItems(value)
	star := -1
	for i, target := range targets {
		if isStarTarget(target) {
			star = i
		}
	}

	switch {
	case !ok:
		for _, target := range targets {
			if err := f.assign(target, &Opaque{Desc: "unpacked value"}); err != nil {
				return err
			}
		}
		return nil

	case star < 0 && len(items) != len(targets):
		return failure(errors.BadCallSignature, loc,
			"cannot unpack %d values into %d targets", len(items), len(targets))

	case star >= 0 && len(items) < len(targets)-1:
		return failure(errors.BadCallSignature, loc,
			"not enough values to unpack (expected at least %d, got %d)", len(targets)-1, len(items))
	}

	if star < 0 {
		for i, target := range targets {
			if err := f.assign(target, items[i]); err != nil {
				return err
			}
		}
		return nil
	}

	after := len(targets) - star - 1
	for i := 0; i < star; i++ {
		if err := f.assign(targets[i], items[i]); err != nil {
			return err
		}
	}
	rest := append([]Value(nil), items[star:len(items)-after]...)
	if err := f.assign(targets[star], &List{Items: rest}); err != nil {
		return err
	}
	for i := 0; i < after; i++ {
		if err := f.assign(targets[star+1+i], items[len(items)-after+i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) delete(target *sitter.Node) error {
	switch target.Type() {
	case "identifier":
		name := f.text(target)
		if f.class != nil {
			if _, ok := f.class[name]; ok {
				delete(f.class, name)
				return nil
			}
		} else if f.mod.seen[name] {
			f.mod.unbind(name)
			return nil
		}
		return failure(errors.UnresolvedReference, f.at(target), "name '%s' is not defined", name)

	case "tuple", "list", "expression_list", "parenthesized_expression":
		for _, elem := range namedChildren(target) {
			if err := f.delete(elem); err != nil {
				return err
			}
		}
		return nil
	}

	// del obj.attr and del obj[key] only need their operands to resolve
	_, err := f.eval(target)
	return err
}
