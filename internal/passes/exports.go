package passes

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
	"github.com/evanw/esclosure/internal/surface"
)

// ExportChunk keeps the exports of an ES module chunk alive through the
// compiler, which has no notion of "export".
//
// Before compiling, every export statement is lifted out of the chunk and
// each exported binding is assigned to a property of "window" instead. The
// compiler has to keep those assignments, and with them the bindings they
// refer to, since "window" is visible to code it can't see.
//
// After compiling, the assignments are found again by the property name and
// turned back into export statements. A property is restored at most once.
type ExportChunk struct {
	deps   *Deps
	output config.OutputOptions

	// Every export of the chunk in source order, and the ones that have not
	// been restored yet keyed by exported name
	details  []surface.ExportDetail
	pending  map[string]surface.ExportDetail
	restored map[string]bool

	// The number of exports declared in this chunk rather than re-exported
	localCount int
}

func NewExportChunk(deps *Deps, output config.OutputOptions) *ExportChunk {
	return &ExportChunk{
		deps:     deps,
		output:   output,
		pending:  make(map[string]surface.ExportDetail),
		restored: make(map[string]bool),
	}
}

func (p *ExportChunk) Name() string { return "ExportChunk" }

func windowAssignment(exported string, value string) string {
	return "window[" + string(helpers.QuoteSingle(exported)) + "] = " + value + ";"
}

func (p *ExportChunk) Pre(ctx context.Context, source logger.Source) (patch.Result, error) {
	if !p.output.IsESMFormat() {
		return patch.Unchanged(source), nil
	}

	tree, err := p.deps.Cache.Parse(ctx, source)
	if err != nil {
		return patch.Result{}, err
	}
	details, err := surface.ExportDetails(tree, &source, p.deps.Registry.GetName)
	if err != nil {
		return patch.Result{}, err
	}

	var edits []patch.Edit
	removed := make(map[logger.Range]bool)
	appended := strings.Builder{}

	for _, detail := range details {
		p.details = append(p.details, detail)
		p.pending[detail.Exported] = detail
		if detail.IsLocal() {
			p.localCount++
		}

		// The items of one "export {...}" statement share its range
		if !removed[detail.Range] {
			removed[detail.Range] = true
			if detail.Binding == "" {
				edits = append(edits, patch.Replace(detail.Range, "window['default'] = "))
			} else {
				edits = append(edits, patch.Remove(detail.Range))
			}
		}

		if detail.Binding != "" {
			appended.WriteString("\n")
			appended.WriteString(windowAssignment(detail.Exported, detail.Binding))
		}
	}

	// A default expression becomes an expression statement and needs a
	// terminator of its own
	for _, stmt := range tree.Stmts {
		if s, ok := stmt.Data.(*js_ast.SExportDefault); ok && !stmt.Terminated && isDefaultExpression(s) {
			edits = append(edits, patch.Insert(s.Value.Range.End(), ";"))
		}
	}

	if appended.Len() > 0 {
		edits = append(edits, patch.Append(&source, appended.String()))
	}
	if len(edits) == 0 {
		return patch.Unchanged(source), nil
	}
	return patch.Apply(source, edits)
}

func isDefaultExpression(s *js_ast.SExportDefault) bool {
	switch value := s.Value.Data.(type) {
	case *js_ast.SExpr:
		return true
	case *js_ast.SFunction:
		return value.Fn.Name == nil
	case *js_ast.SClass:
		return value.Class.Name == nil
	}
	return false
}

// Only re-exported names need to be declared: their bindings are not in
// the chunk at all
func (p *ExportChunk) Extern() (string, bool) {
	if !p.output.IsESMFormat() {
		return "", false
	}
	sb := strings.Builder{}
	for _, detail := range p.details {
		if !detail.IsLocal() && js_ast.IsValidBindingName(detail.Binding) {
			sb.WriteString("function ")
			sb.WriteString(detail.Binding)
			sb.WriteString("(){};\n")
		}
	}
	if sb.Len() == 0 {
		return "", false
	}
	return externOverview + sb.String(), true
}

type exportGroup struct {
	source string
	items  []surface.ExportItem
}

// Returns the assignment in "window.name = value" or "window['name'] =
// value"
func rootedAssignment(expr js_ast.Expr) (*js_ast.EAssign, string, bool) {
	assign, ok := expr.Data.(*js_ast.EAssign)
	if !ok {
		return nil, "", false
	}
	target, name, ok := js_ast.MemberPropertyName(assign.Target)
	if !ok {
		return nil, "", false
	}
	if id, ok := target.Data.(*js_ast.EIdentifier); !ok || id.Name != "window" {
		return nil, "", false
	}
	return assign, name, true
}

// What becomes of one operand of a top-level expression statement
type restoration struct {
	matched bool

	// An empty prefix drops the operand. Otherwise the prefix replaces
	// "window.name = " and the operand becomes a statement of its own.
	prefix string
	assign *js_ast.EAssign
}

type restorer struct {
	*ExportChunk
	source *logger.Source

	// Every name the compiler's output refers to or declares
	taken map[string]bool

	groups   []*exportGroup
	bySource map[string]*exportGroup
	locals   []surface.ExportItem
}

func (r *restorer) restore(operand js_ast.Expr) restoration {
	assign, name, ok := rootedAssignment(operand)
	if !ok {
		return restoration{}
	}
	detail, ok := r.pending[name]
	if !ok {
		if r.restored[name] {
			r.warn(r.source, operand.Range, fmt.Sprintf("The export %q was already restored", name))
		}
		return restoration{}
	}
	delete(r.pending, name)
	r.restored[name] = true

	switch {
	case detail.IsDefault():
		return restoration{matched: true, prefix: "export default ", assign: assign}

	case !detail.IsLocal():
		group, ok := r.bySource[*detail.Source]
		if !ok {
			group = &exportGroup{source: *detail.Source}
			r.bySource[*detail.Source] = group
			r.groups = append(r.groups, group)
		}
		group.items = append(group.items, surface.ExportItem{Local: detail.Local, Exported: detail.Exported})
		return restoration{matched: true}
	}

	if id, ok := assign.Value.Data.(*js_ast.EIdentifier); ok {
		r.locals = append(r.locals, surface.ExportItem{Local: id.Name, Exported: detail.Exported})
		return restoration{matched: true}
	}
	if r.localCount == 1 && detail.Local == detail.Exported &&
		js_ast.IsValidBindingName(detail.Exported) && !r.taken[detail.Exported] {
		r.taken[detail.Exported] = true
		return restoration{matched: true, prefix: "export const " + detail.Exported + " = ", assign: assign}
	}
	local := r.freshName(detail)
	r.locals = append(r.locals, surface.ExportItem{Local: local, Exported: detail.Exported})
	return restoration{matched: true, prefix: "const " + local + " = ", assign: assign}
}

// The compiler renames top-level bindings freely, so the binding for an
// inlined value must not collide with any of them
func (r *restorer) freshName(detail surface.ExportDetail) string {
	base := detail.Exported
	if !js_ast.IsValidBindingName(base) {
		base = detail.Local
	}
	name := base
	for i := 1; r.taken[name]; i++ {
		name = fmt.Sprintf("%s$%d", base, i)
	}
	r.taken[name] = true
	return name
}

func takenNames(tree *js_ast.AST) map[string]bool {
	taken := make(map[string]bool)
	js_ast.Visit(tree.Stmts, js_ast.Visitor{
		Enter: func(node js_ast.ExprOrStmt, ancestors []js_ast.ExprOrStmt) {
			if node.Expr == nil {
				return
			}
			switch e := node.Expr.Data.(type) {
			case *js_ast.EIdentifier:
				taken[e.Name] = true
			case *js_ast.EShorthand:
				taken[e.Name] = true
			}
		},
	})
	return taken
}

// Regenerates "a(), window.x = b, c()" with every restored operand taken
// out of the sequence. Operands that stay are joined back together.
func (r *restorer) splitSequence(operands []js_ast.Expr, restorations []restoration, terminated bool) string {
	var pieces []string
	var group []string
	flush := func() {
		if len(group) > 0 {
			text := strings.Join(group, ",")
			if len(pieces) > 0 && startsAmbiguously(text) {
				text = "(" + text + ")"
			}
			pieces = append(pieces, text)
			group = nil
		}
	}
	for i, operand := range operands {
		switch restored := restorations[i]; {
		case !restored.matched:
			group = append(group, r.source.TextForRange(operand.Range))
		case restored.prefix != "":
			flush()
			pieces = append(pieces, restored.prefix+r.source.TextForRange(restored.assign.Value.Range))
		}
	}
	flush()
	if len(pieces) == 0 {
		return ""
	}
	text := strings.Join(pieces, ";")
	if terminated {
		text += ";"
	}
	return text
}

// An expression statement can't start with these
func startsAmbiguously(text string) bool {
	for _, prefix := range []string{"{", "function", "class", "async function", "let["} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// Whether another statement can follow without a ";" in between
func endsStatement(stmt js_ast.Stmt) bool {
	if stmt.Terminated {
		return true
	}
	switch s := stmt.Data.(type) {
	case *js_ast.SFunction, *js_ast.SClass, *js_ast.SBlock, *js_ast.SEmpty:
		return true
	case *js_ast.SExportDecl:
		return endsStatement(s.Decl)
	case *js_ast.SExportDefault:
		return endsStatement(s.Value)
	case *js_ast.SOpaque:
		if s.Kind == "switch_body" {
			return true
		}
		// "if", "for", "try" and friends end with their last child
		for i := len(s.Stmts) - 1; i >= 0; i-- {
			if s.Stmts[i].Range.End() == stmt.Range.End() {
				return endsStatement(s.Stmts[i])
			}
		}
	}
	return false
}

func (p *ExportChunk) Post(ctx context.Context, source logger.Source) (patch.Result, error) {
	if !p.output.IsESMFormat() {
		return patch.Unchanged(source), nil
	}

	tree, err := p.deps.Cache.Parse(ctx, source)
	if err != nil {
		return patch.Result{}, err
	}

	var edits []patch.Edit
	removedStmts := make(map[int]bool)
	r := &restorer{
		ExportChunk: p,
		source:      &source,
		taken:       takenNames(tree),
		bySource:    make(map[string]*exportGroup),
	}

	// The compiler may move the assignments anywhere, so look at every use
	// of "window". Only statements at the top level can become exports.
	topLevel := make(map[*js_ast.Stmt]int, len(tree.Stmts))
	for i := range tree.Stmts {
		topLevel[&tree.Stmts[i]] = i
	}
	matches := make(map[int]bool)
	js_ast.Visit(tree.Stmts, js_ast.Visitor{
		Enter: func(node js_ast.ExprOrStmt, ancestors []js_ast.ExprOrStmt) {
			if node.Expr == nil || len(ancestors) == 0 || ancestors[0].Stmt == nil {
				return
			}
			if id, ok := node.Expr.Data.(*js_ast.EIdentifier); ok && id.Name == "window" {
				if i, ok := topLevel[ancestors[0].Stmt]; ok {
					matches[i] = true
				}
			}
		},
	})

	for i, stmt := range tree.Stmts {
		if !matches[i] {
			continue
		}
		expr, ok := stmt.Data.(*js_ast.SExpr)
		if !ok {
			continue
		}

		// Minifiers join adjacent expression statements with commas
		seq, ok := expr.Value.Data.(*js_ast.ESequence)
		if !ok {
			restored := r.restore(expr.Value)
			switch {
			case !restored.matched:
			case restored.prefix == "":
				edits = append(edits, patch.Remove(stmt.Range))
				removedStmts[i] = true
			default:
				prefix := logger.RangeBetween(restored.assign.Target.Range.Loc.Start, restored.assign.Value.Range.Loc.Start)
				edits = append(edits, patch.Replace(prefix, restored.prefix))
			}
			continue
		}

		restorations := make([]restoration, len(seq.Exprs))
		anyMatched := false
		for j, operand := range seq.Exprs {
			restorations[j] = r.restore(operand)
			anyMatched = anyMatched || restorations[j].matched
		}
		if !anyMatched {
			continue
		}
		if text := r.splitSequence(seq.Exprs, restorations, stmt.Terminated); text != "" {
			edits = append(edits, patch.Replace(stmt.Range, text))
		} else {
			edits = append(edits, patch.Remove(stmt.Range))
			removedStmts[i] = true
		}
	}

	// Re-exports go first, after a "#!" line if there is one
	var offset int32
	if _, line, ok := hashbangLine(source.Contents); ok {
		offset = line.End()
	}
	for _, group := range r.groups {
		edits = append(edits, patch.Insert(offset, fmt.Sprintf("export{%s}from%s;",
			surface.FormatExportItems(group.items), helpers.QuoteSingle(group.source))))
	}

	if len(r.locals) > 0 {
		end := int32(len(strings.TrimRight(source.Contents, " \t\r\n")))
		if end < int32(len(source.Contents)) {
			edits = append(edits, patch.Remove(logger.RangeBetween(end, int32(len(source.Contents)))))
		}
		separator := ""
		for i := len(tree.Stmts) - 1; i >= 0; i-- {
			if removedStmts[i] {
				continue
			}
			if !endsStatement(tree.Stmts[i]) {
				separator = ";"
			}
			break
		}
		edits = append(edits, patch.Insert(end, separator+"export{"+surface.FormatExportItems(r.locals)+"}"))
	}

	if len(edits) == 0 {
		return patch.Unchanged(source), nil
	}
	return patch.Apply(source, edits)
}

// The compiler's output no longer assigns some exports to "window", so the
// chunk would silently lose them
type LostExportsError struct {
	FileName string
	Names    []string
}

func (e *LostExportsError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, name := range e.Names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("The compiler output for %s no longer contains the exports %s", e.FileName, strings.Join(quoted, ", "))
}

func (e *LostExportsError) ExitCode() int {
	return exitcode.CompilerFailed
}

// Exports that were never found in the compiler's output
func (p *ExportChunk) Pending() []surface.ExportDetail {
	var pending []surface.ExportDetail
	for _, detail := range p.details {
		if _, ok := p.pending[detail.Exported]; ok {
			pending = append(pending, detail)
		}
	}
	return pending
}

func (p *ExportChunk) warn(source *logger.Source, r logger.Range, text string) {
	if p.deps.Log.AddMsg != nil {
		p.deps.Log.AddWarning(source, r, text)
	}
}
