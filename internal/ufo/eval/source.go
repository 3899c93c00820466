package eval

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/ufo-models/ufometa/internal/errors"
)

const legacySuffix = " (Python 2 only syntax; the model is not compatible with Python 3)"

var (
	// leading zeros on a nonzero decimal are Python 2 octal literals
	legacyOctal = regexp.MustCompile(`^0[0-9_]*[1-9][0-9_]*[lL]?$`)
	longSuffix  = regexp.MustCompile(`^(0[xXoObB])?[0-9a-fA-F_]+[lL]$`)
)

// source is one parsed module file. The tree stays open for the lifetime of
// the Interpreter because evaluation walks its nodes lazily.
type source struct {
	file string
	data []byte
	tree *sitter.Tree
}

// location is a 1-based position in a module file
type location struct {
	File   string
	Line   int
	Column int
}

// parseSource parses data with the tree-sitter Python grammar and rejects
// trees that contain syntax errors or Python 2 only constructs
func parseSource(file string, data []byte) (*source, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, data)
	if err != nil {
		return nil, &errors.ImportFailure{
			Kind:    errors.IncompatibleRuntime,
			File:    file,
			Message: err.Error(),
		}
	}

	src := &source{file: file, data: data, tree: tree}
	if err := src.check(); err != nil {
		tree.Close()
		return nil, err
	}
	return src, nil
}

func (s *source) close() {
	s.tree.Close()
}

func (s *source) root() *sitter.Node {
	return s.tree.RootNode()
}

func (s *source) text(n *sitter.Node) string {
	return n.Content(s.data)
}

func (s *source) at(n *sitter.Node) location {
	p := n.StartPoint()
	return location{File: s.file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// check reports the first syntax problem in document order
func (s *source) check() error {
	var fail *errors.ImportFailure
	walk(s.root(), func(n *sitter.Node) bool {
		if fail != nil {
			return false
		}
		msg, legacy := s.syntaxIssue(n)
		if msg == "" {
			return true
		}
		if legacy {
			msg += legacySuffix
		}
		fail = failure(errors.IncompatibleRuntime, s.at(n), "%s", msg)
		return false
	})
	if fail != nil {
		return fail
	}
	return nil
}

// syntaxIssue inspects one node. legacy is set when the construct is valid
// Python 2.
func (s *source) syntaxIssue(n *sitter.Node) (msg string, legacy bool) {
	if n.IsMissing() {
		return fmt.Sprintf("invalid syntax, expected '%s'", n.Type()), false
	}

	switch n.Type() {
	case "ERROR":
		return "invalid syntax", strings.Contains(s.text(n), "`") || strings.Contains(s.line(n), "`")
	case "print_statement":
		return "Missing parentheses in call to 'print'", true
	case "exec_statement":
		return "Missing parentheses in call to 'exec'", true
	case "<>":
		if !n.IsNamed() {
			return "invalid syntax", true
		}
	case "integer":
		text := s.text(n)
		if legacyOctal.MatchString(text) {
			return "leading zeros in decimal integer literals are not permitted", true
		}
		if longSuffix.MatchString(text) {
			return "invalid decimal literal", true
		}
	case "except_clause":
		if hasToken(n, ",") {
			return "multiple exception types must be parenthesized", true
		}
	case "parameters", "lambda_parameters":
		for _, p := range namedChildren(n) {
			if p.Type() == "tuple_pattern" {
				return "invalid syntax", true
			}
		}
	}
	return "", false
}

// line returns the source line n starts on
func (s *source) line(n *sitter.Node) string {
	start := int(n.StartByte())
	if start > len(s.data) {
		return ""
	}
	begin := strings.LastIndexByte(string(s.data[:start]), '\n') + 1
	end := strings.IndexByte(string(s.data[start:]), '\n')
	if end < 0 {
		return string(s.data[begin:])
	}
	return string(s.data[begin : start+end])
}

// walk visits n and its descendants in document order, anonymous tokens
// included. Children are skipped when visit returns false.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

// namedChildren returns the named children of n without comments
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment", "line_continuation":
			continue
		}
		out = append(out, c)
	}
	return out
}

// firstNamed returns the first named child of n, or nil
func firstNamed(n *sitter.Node) *sitter.Node {
	if children := namedChildren(n); len(children) > 0 {
		return children[0]
	}
	return nil
}

// hasToken reports whether n has an anonymous child token tok
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

// dottedName joins the identifiers of a dotted_name node
func (s *source) dottedName(n *sitter.Node) string {
	if n.Type() != "dotted_name" {
		return s.text(n)
	}
	var parts []string
	for _, c := range namedChildren(n) {
		parts = append(parts, s.text(c))
	}
	return strings.Join(parts, ".")
}

// boundNames lists every name the statement could bind in the enclosing
// scope, in order of first appearance. Function and class bodies are not
// entered.
func (s *source) boundNames(stmt *sitter.Node) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	var targets func(n *sitter.Node)
	targets = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier":
			add(s.text(n))
		case "pattern_list", "tuple_pattern", "list_pattern", "list_splat_pattern",
			"tuple", "list", "parenthesized_expression", "expression_list", "list_splat",
			"as_pattern_target":
			for _, c := range namedChildren(n) {
				targets(c)
			}
		}
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition":
			add(s.text(n.ChildByFieldName("name")))
			return
		case "lambda", "list_comprehension", "dictionary_comprehension",
			"set_comprehension", "generator_expression":
			return
		case "assignment", "for_statement", "for_in_clause":
			if left := n.ChildByFieldName("left"); left != nil {
				targets(left)
			}
		case "augmented_assignment":
			targets(n.ChildByFieldName("left"))
			return
		case "named_expression":
			add(s.text(n.ChildByFieldName("name")))
		case "as_pattern_target":
			targets(n)
			return
		case "import_statement", "import_from_statement", "future_import_statement":
			for _, alias := range s.importAliases(n) {
				if alias.asName != "" {
					add(alias.asName)
				} else {
					first, _, _ := strings.Cut(alias.name, ".")
					add(first)
				}
			}
			return
		case "except_clause":
			if _, target := s.exceptParts(n); target != nil {
				targets(target)
			}
		}
		for _, c := range namedChildren(n) {
			visit(c)
		}
	}
	visit(stmt)
	return names
}
