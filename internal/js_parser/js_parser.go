package js_parser

// The syntax tree comes from tree-sitter's JavaScript grammar. This file
// converts its concrete syntax tree into the small closed AST in "js_ast",
// keeping byte ranges so that passes can edit the original text.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

type ParseError struct {
	KeyPath  string
	Range    logger.Range
	Location *logger.MsgLocation
	Text     string
}

func (e *ParseError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s:%d:%d: %s", e.Location.File, e.Location.Line, e.Location.Column, e.Text)
	}
	return fmt.Sprintf("%s: %s", e.KeyPath, e.Text)
}

func (e *ParseError) ExitCode() int {
	return exitcode.Unsupported
}

// Parsers are not safe for concurrent use, so each call borrows one
var parsers = sync.Pool{
	New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(javascript.GetLanguage())
		return parser
	},
}

func Parse(ctx context.Context, source logger.Source) (*js_ast.AST, error) {
	contents := []byte(source.Contents)
	parser := parsers.Get().(*sitter.Parser)
	tree, err := parser.ParseCtx(ctx, nil, contents)
	parsers.Put(parser)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source.KeyPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, newParseError(&source, root)
	}

	p := converter{source: &source}
	result := &js_ast.AST{}
	for _, child := range namedChildren(root) {
		if child.Type() == "hash_bang_line" {
			result.Hashbang = p.text(child)
			continue
		}
		result.Stmts = append(result.Stmts, p.stmt(child))
	}
	return result, nil
}

func newParseError(source *logger.Source, root *sitter.Node) *ParseError {
	node := firstError(root)
	if node == nil {
		node = root
	}
	r := rangeOf(node)

	var text string
	switch {
	case node.IsMissing():
		text = fmt.Sprintf("Expected %q", node.Type())
	case r.Len > 0:
		snippet := source.TextForRange(r)
		if len(snippet) > 20 {
			snippet = snippet[:20] + "..."
		}
		text = fmt.Sprintf("Unexpected %q", snippet)
	default:
		text = "Unexpected end of file"
	}

	return &ParseError{
		KeyPath:  source.KeyPath,
		Range:    r,
		Location: source.LocationForRange(r),
		Text:     text,
	}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstError(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func rangeOf(node *sitter.Node) logger.Range {
	return logger.RangeBetween(int32(node.StartByte()), int32(node.EndByte()))
}

// Comments are "extras" in the grammar and may appear between any two nodes
func namedChildren(node *sitter.Node) []*sitter.Node {
	var children []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "comment", "html_comment":
			continue
		}
		children = append(children, child)
	}
	return children
}

func hasToken(node *sitter.Node, token string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if !child.IsNamed() && child.Type() == token {
			return true
		}
	}
	return false
}

func childOfType(node *sitter.Node, kind string) *sitter.Node {
	for _, child := range namedChildren(node) {
		if child.Type() == kind {
			return child
		}
	}
	return nil
}

func isStatementKind(kind string) bool {
	switch kind {
	case "statement_block", "else_clause", "switch_body", "switch_case",
		"switch_default", "catch_clause", "finally_clause":
		return true
	}
	return strings.HasSuffix(kind, "_statement") || strings.HasSuffix(kind, "_declaration")
}

type converter struct {
	source *logger.Source
}

func (p *converter) text(node *sitter.Node) string {
	return p.source.Contents[node.StartByte():node.EndByte()]
}

func (p *converter) stmts(nodes []*sitter.Node) []js_ast.Stmt {
	stmts := make([]js_ast.Stmt, 0, len(nodes))
	for _, node := range nodes {
		stmts = append(stmts, p.stmt(node))
	}
	return stmts
}

func (p *converter) stmt(node *sitter.Node) js_ast.Stmt {
	stmt := js_ast.Stmt{Range: rangeOf(node)}

	if count := int(node.ChildCount()); count > 0 && node.Type() != "empty_statement" {
		if last := node.Child(count - 1); !last.IsNamed() && last.Type() == ";" && last.EndByte() > last.StartByte() {
			stmt.Terminated = true
		}
	}

	switch node.Type() {
	case "import_statement":
		stmt.Data = p.importStmt(node)

	case "export_statement":
		stmt.Data = p.exportStmt(node)

		// The ";" of "export const a = 1;" belongs to the declaration
		if s, ok := stmt.Data.(*js_ast.SExportDecl); ok && s.Decl.Terminated {
			stmt.Terminated = true
		}

	case "lexical_declaration", "variable_declaration":
		stmt.Data = p.local(node)

	case "function_declaration", "generator_function_declaration":
		stmt.Data = &js_ast.SFunction{Fn: p.fn(node)}

	case "class_declaration":
		stmt.Data = &js_ast.SClass{Class: p.class(node)}

	case "statement_block":
		stmt.Data = &js_ast.SBlock{Stmts: p.stmts(namedChildren(node))}

	case "expression_statement":
		children := namedChildren(node)
		if len(children) == 1 {
			stmt.Data = &js_ast.SExpr{Value: p.expr(children[0])}
		} else {
			stmt.Data = p.opaqueStmt(node, false)
		}

	case "empty_statement":
		stmt.Data = &js_ast.SEmpty{}

	case "for_in_statement":
		// "for (const k of o)" binds "k" inside the loop
		if kind := node.ChildByFieldName("kind"); kind != nil {
			local := &js_ast.SLocal{Kind: localKind(p.text(kind))}
			left := node.ChildByFieldName("left")
			local.Decls = []js_ast.Decl{{Binding: p.expr(left)}}
			opaque := &js_ast.SOpaque{Kind: node.Type(), Scoped: true}
			opaque.Stmts = append(opaque.Stmts, js_ast.Stmt{Range: rangeOf(left), Data: local})
			if right := node.ChildByFieldName("right"); right != nil {
				opaque.Exprs = append(opaque.Exprs, p.expr(right))
			}
			if body := node.ChildByFieldName("body"); body != nil {
				opaque.Stmts = append(opaque.Stmts, p.stmt(body))
			}
			stmt.Data = opaque
		} else {
			stmt.Data = p.opaqueStmt(node, false)
		}

	case "catch_clause":
		opaque := &js_ast.SOpaque{Kind: node.Type(), Scoped: true}
		if param := node.ChildByFieldName("parameter"); param != nil {
			local := &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: []js_ast.Decl{{Binding: p.expr(param)}}}
			opaque.Stmts = append(opaque.Stmts, js_ast.Stmt{Range: rangeOf(param), Data: local})
		}
		if body := node.ChildByFieldName("body"); body != nil {
			opaque.Stmts = append(opaque.Stmts, p.stmt(body))
		}
		stmt.Data = opaque

	case "for_statement", "switch_body":
		stmt.Data = p.opaqueStmt(node, true)

	default:
		stmt.Data = p.opaqueStmt(node, false)
	}

	return stmt
}

func (p *converter) opaqueStmt(node *sitter.Node, scoped bool) *js_ast.SOpaque {
	opaque := &js_ast.SOpaque{Kind: node.Type(), Scoped: scoped}
	for _, child := range namedChildren(node) {
		if isStatementKind(child.Type()) {
			opaque.Stmts = append(opaque.Stmts, p.stmt(child))
		} else {
			opaque.Exprs = append(opaque.Exprs, p.expr(child))
		}
	}
	return opaque
}

func localKind(text string) js_ast.LocalKind {
	switch text {
	case "let":
		return js_ast.LocalLet
	case "const":
		return js_ast.LocalConst
	default:
		return js_ast.LocalVar
	}
}

func (p *converter) local(node *sitter.Node) *js_ast.SLocal {
	local := &js_ast.SLocal{Kind: js_ast.LocalVar}
	if node.Type() == "lexical_declaration" {
		if kind := node.ChildByFieldName("kind"); kind != nil {
			local.Kind = localKind(p.text(kind))
		} else if node.ChildCount() > 0 {
			local.Kind = localKind(p.text(node.Child(0)))
		}
	}
	for _, child := range namedChildren(node) {
		if child.Type() != "variable_declarator" {
			continue
		}
		decl := js_ast.Decl{Binding: p.expr(child.ChildByFieldName("name"))}
		if value := child.ChildByFieldName("value"); value != nil {
			expr := p.expr(value)
			decl.Value = &expr
		}
		local.Decls = append(local.Decls, decl)
	}
	return local
}

func (p *converter) path(node *sitter.Node) js_ast.Path {
	return js_ast.Path{Range: rangeOf(node), Text: p.stringValue(node)}
}

func (p *converter) clauseItem(node *sitter.Node) js_ast.ClauseItem {
	var item js_ast.ClauseItem
	if name := node.ChildByFieldName("name"); name != nil {
		item.NameRange = rangeOf(name)
		if name.Type() == "string" {
			item.Name = p.stringValue(name)
			item.NameIsString = true
		} else {
			item.Name = p.text(name)
		}
	}
	if alias := node.ChildByFieldName("alias"); alias != nil {
		item.AliasRange = rangeOf(alias)
		if alias.Type() == "string" {
			item.Alias = p.stringValue(alias)
			item.AliasIsString = true
		} else {
			item.Alias = p.text(alias)
		}
	}
	return item
}

func (p *converter) identifier(node *sitter.Node) *js_ast.Expr {
	return &js_ast.Expr{Range: rangeOf(node), Data: &js_ast.EIdentifier{Name: p.text(node)}}
}

func (p *converter) importStmt(node *sitter.Node) *js_ast.SImport {
	s := &js_ast.SImport{}
	if source := node.ChildByFieldName("source"); source != nil {
		s.Source = p.path(source)
	} else if source := childOfType(node, "string"); source != nil {
		s.Source = p.path(source)
	}

	clause := childOfType(node, "import_clause")
	if clause == nil {
		return s
	}
	for _, child := range namedChildren(clause) {
		switch child.Type() {
		case "identifier":
			s.DefaultName = p.identifier(child)
		case "namespace_import":
			if name := childOfType(child, "identifier"); name != nil {
				s.NamespaceName = p.identifier(name)
			}
		case "named_imports":
			s.HasItems = true
			for _, specifier := range namedChildren(child) {
				if specifier.Type() == "import_specifier" {
					s.Items = append(s.Items, p.clauseItem(specifier))
				}
			}
		}
	}
	return s
}

func (p *converter) exportStmt(node *sitter.Node) js_ast.S {
	var source *js_ast.Path
	if sourceNode := node.ChildByFieldName("source"); sourceNode != nil {
		path := p.path(sourceNode)
		source = &path
	}

	if namespace := childOfType(node, "namespace_export"); namespace != nil {
		s := &js_ast.SExportStar{}
		if source != nil {
			s.Source = *source
		}
		for _, child := range namedChildren(namespace) {
			alias := js_ast.ClauseItem{Name: "*", AliasRange: rangeOf(child)}
			if child.Type() == "string" {
				alias.Alias = p.stringValue(child)
				alias.AliasIsString = true
			} else {
				alias.Alias = p.text(child)
			}
			s.Alias = &alias
		}
		return s
	}

	if clause := childOfType(node, "export_clause"); clause != nil {
		s := &js_ast.SExportClause{Source: source}
		for _, specifier := range namedChildren(clause) {
			if specifier.Type() == "export_specifier" {
				s.Items = append(s.Items, p.clauseItem(specifier))
			}
		}
		return s
	}

	if hasToken(node, "*") {
		s := &js_ast.SExportStar{}
		if source != nil {
			s.Source = *source
		}
		return s
	}

	if hasToken(node, "default") {
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return &js_ast.SExportDefault{Value: p.stmt(decl)}
		}
		if value := node.ChildByFieldName("value"); value != nil {
			return &js_ast.SExportDefault{Value: js_ast.Stmt{
				Range: rangeOf(value),
				Data:  &js_ast.SExpr{Value: p.expr(value)},
			}}
		}
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		return &js_ast.SExportDecl{Decl: p.stmt(decl)}
	}
	return p.opaqueStmt(node, false)
}

func (p *converter) fn(node *sitter.Node) js_ast.Fn {
	fn := js_ast.Fn{IsArrow: node.Type() == "arrow_function"}
	if name := node.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
		fn.Name = p.identifier(name)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		for _, param := range namedChildren(params) {
			fn.Args = append(fn.Args, p.expr(param))
		}
	} else if param := node.ChildByFieldName("parameter"); param != nil {
		fn.Args = append(fn.Args, p.expr(param))
	}
	if body := node.ChildByFieldName("body"); body != nil {
		if body.Type() == "statement_block" {
			fn.Body = p.stmts(namedChildren(body))
		} else {
			value := p.expr(body)
			fn.Body = []js_ast.Stmt{{Range: value.Range, Data: &js_ast.SExpr{Value: value}}}
		}
	}
	return fn
}

func (p *converter) class(node *sitter.Node) js_ast.Class {
	var class js_ast.Class
	if name := node.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
		class.Name = p.identifier(name)
	}
	if heritage := childOfType(node, "class_heritage"); heritage != nil {
		if children := namedChildren(heritage); len(children) > 0 {
			extends := p.expr(children[0])
			class.Extends = &extends
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		for _, member := range namedChildren(body) {
			class.Members = append(class.Members, p.expr(member))
		}
	}
	return class
}

// Property keys are never bindings. Only computed keys hold expressions.
func (p *converter) propertyKey(node *sitter.Node, opaque *js_ast.EOpaque) {
	if node != nil && node.Type() == "computed_property_name" {
		for _, child := range namedChildren(node) {
			opaque.Exprs = append(opaque.Exprs, p.expr(child))
		}
	}
}

func (p *converter) expr(node *sitter.Node) js_ast.Expr {
	expr := js_ast.Expr{Range: rangeOf(node)}

	switch node.Type() {
	case "identifier":
		expr.Data = &js_ast.EIdentifier{Name: p.text(node)}

	case "assignment_expression":
		expr.Data = &js_ast.EAssign{
			Target: p.expr(node.ChildByFieldName("left")),
			Value:  p.expr(node.ChildByFieldName("right")),
		}

	case "member_expression":
		property := node.ChildByFieldName("property")
		expr.Data = &js_ast.EDot{
			Target:    p.expr(node.ChildByFieldName("object")),
			Name:      p.text(property),
			NameRange: rangeOf(property),
		}

	case "subscript_expression":
		expr.Data = &js_ast.EIndex{
			Target: p.expr(node.ChildByFieldName("object")),
			Index:  p.expr(node.ChildByFieldName("index")),
		}

	case "sequence_expression":
		expr.Data = &js_ast.ESequence{Exprs: p.sequence(node, nil)}

	case "string":
		expr.Data = &js_ast.EString{Value: p.stringValue(node)}

	case "shorthand_property_identifier", "shorthand_property_identifier_pattern":
		expr.Data = &js_ast.EShorthand{Name: p.text(node)}

	case "function_expression", "function", "generator_function", "arrow_function":
		expr.Data = &js_ast.EFunction{Fn: p.fn(node)}

	case "class":
		expr.Data = &js_ast.EClass{Class: p.class(node)}

	case "pair", "pair_pattern", "field_definition":
		opaque := &js_ast.EOpaque{Kind: node.Type()}
		if node.Type() == "field_definition" {
			p.propertyKey(node.ChildByFieldName("property"), opaque)
		} else {
			p.propertyKey(node.ChildByFieldName("key"), opaque)
		}
		if value := node.ChildByFieldName("value"); value != nil {
			opaque.Exprs = append(opaque.Exprs, p.expr(value))
		}
		expr.Data = opaque

	case "method_definition":
		opaque := &js_ast.EOpaque{Kind: node.Type()}
		p.propertyKey(node.ChildByFieldName("name"), opaque)
		fn := p.fn(node)
		fn.Name = nil
		opaque.Exprs = append(opaque.Exprs, js_ast.Expr{Range: expr.Range, Data: &js_ast.EFunction{Fn: fn}})
		expr.Data = opaque

	case "property_identifier", "private_property_identifier", "statement_identifier":
		expr.Data = &js_ast.EOpaque{Kind: node.Type()}

	default:
		opaque := &js_ast.EOpaque{Kind: node.Type()}
		for _, child := range namedChildren(node) {
			if isStatementKind(child.Type()) {
				opaque.Stmts = append(opaque.Stmts, p.stmt(child))
			} else {
				opaque.Exprs = append(opaque.Exprs, p.expr(child))
			}
		}
		expr.Data = opaque
	}

	return expr
}

// Older grammars nest "a, b, c" as "a, (b, c)"
func (p *converter) sequence(node *sitter.Node, exprs []js_ast.Expr) []js_ast.Expr {
	for _, child := range namedChildren(node) {
		if child.Type() == "sequence_expression" {
			exprs = p.sequence(child, exprs)
		} else {
			exprs = append(exprs, p.expr(child))
		}
	}
	return exprs
}

func (p *converter) stringValue(node *sitter.Node) string {
	if node.Type() != "string" {
		return p.text(node)
	}
	sb := strings.Builder{}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "string_fragment":
			sb.WriteString(p.text(child))
		case "escape_sequence":
			sb.WriteString(unescape(p.text(child)))
		}
	}
	return sb.String()
}

func unescape(escape string) string {
	switch escape {
	case "\\'":
		return "'"
	case "\\\"":
		return "\""
	}
	if strings.HasPrefix(escape, "\\\r") || strings.HasPrefix(escape, "\\\n") {
		return ""
	}
	if value, err := strconv.Unquote("\"" + escape + "\""); err == nil {
		return value
	}
	return escape[1:]
}
