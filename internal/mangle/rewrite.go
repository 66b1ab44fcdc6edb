package mangle

import (
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/patch"
)

// Rewrite returns the edits that respell every reference to a registered
// name with its mangled form.
//
// Renaming is scope-aware. Each scope starts with a copy of the names its
// parent may rename, then removes the names it declares itself before any of
// its children are visited. A local that shadows a registered name is left
// alone along with every reference to it. Declarations inside an export
// statement are the exported bindings and stay renamable.
//
// Property names are never renamed. Items of import and export clauses that
// name a binding of another module are renamed whenever they are registered.
func (r *Registry) Rewrite(tree *js_ast.AST) []patch.Edit {
	rw := rewriter{mangled: r.snapshot()}
	if len(rw.mangled) == 0 {
		return nil
	}

	program := make(scope, len(rw.mangled))
	for name := range rw.mangled {
		program[name] = true
	}
	program.removeLexical(tree.Stmts)
	program.removeHoisted(tree.Stmts)

	rw.scopes = []scope{program}
	rw.stmts(tree.Stmts)
	return rw.edits
}

type scope map[string]bool

func (s scope) clone() scope {
	clone := make(scope, len(s))
	for name := range s {
		clone[name] = true
	}
	return clone
}

func (s scope) remove(names []string) {
	for _, name := range names {
		delete(s, name)
	}
}

// Removes "let", "const", "class" and function declarations made directly
// in this block
func (s scope) removeLexical(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		lexical, _ := js_ast.DeclaredByStmt(stmt)
		s.remove(lexical)
	}
}

// Removes "var" declarations, which belong to the nearest function no matter
// how deeply they are nested in blocks
func (s scope) removeHoisted(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		switch st := stmt.Data.(type) {
		case *js_ast.SLocal:
			_, hoisted := js_ast.DeclaredByStmt(stmt)
			s.remove(hoisted)
		case *js_ast.SBlock:
			s.removeHoisted(st.Stmts)
		case *js_ast.SOpaque:
			s.removeHoisted(st.Stmts)
		}
	}
}

type rewriter struct {
	mangled map[string]string
	scopes  []scope
	edits   []patch.Edit
}

func (rw *rewriter) current() scope {
	return rw.scopes[len(rw.scopes)-1]
}

func (rw *rewriter) push() scope {
	s := rw.current().clone()
	rw.scopes = append(rw.scopes, s)
	return s
}

func (rw *rewriter) pop() {
	rw.scopes = rw.scopes[:len(rw.scopes)-1]
}

func (rw *rewriter) renameInScope(expr *js_ast.Expr) {
	if expr == nil {
		return
	}
	if id, ok := expr.Data.(*js_ast.EIdentifier); ok && rw.current()[id.Name] {
		rw.edits = append(rw.edits, patch.Replace(expr.Range, rw.mangled[id.Name]))
	}
}

func (rw *rewriter) renameClauseItem(item js_ast.ClauseItem, nameInScope bool) {
	if !item.NameIsString {
		if mangled, ok := rw.mangled[item.Name]; ok {
			switch {
			case !nameInScope || rw.current()[item.Name]:
				rw.edits = append(rw.edits, patch.Replace(item.NameRange, mangled))
			case item.Alias == "":
				// The binding kept its name but importers expect the mangled one
				rw.edits = append(rw.edits, patch.Insert(item.NameRange.End(), " as "+mangled))
			}
		}
	}
	if item.Alias != "" && !item.AliasIsString {
		if mangled, ok := rw.mangled[item.Alias]; ok {
			rw.edits = append(rw.edits, patch.Replace(item.AliasRange, mangled))
		}
	}
}

func (rw *rewriter) stmts(stmts []js_ast.Stmt) {
	for i := range stmts {
		rw.stmt(&stmts[i])
	}
}

func (rw *rewriter) stmt(stmt *js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SImport:
		rw.renameInScope(s.DefaultName)
		rw.renameInScope(s.NamespaceName)
		for _, item := range s.Items {
			// The imported name belongs to the other module, the alias is local
			if !item.NameIsString {
				if mangled, ok := rw.mangled[item.Name]; ok {
					rw.edits = append(rw.edits, patch.Replace(item.NameRange, mangled))
				}
			}
			if item.Alias != "" && rw.current()[item.Alias] {
				rw.edits = append(rw.edits, patch.Replace(item.AliasRange, rw.mangled[item.Alias]))
			}
		}

	case *js_ast.SExportClause:
		for _, item := range s.Items {
			rw.renameClauseItem(item, s.Source == nil)
		}

	case *js_ast.SExportDecl:
		rw.stmt(&s.Decl)

	case *js_ast.SExportDefault:
		rw.stmt(&s.Value)

	case *js_ast.SLocal:
		for i := range s.Decls {
			rw.expr(&s.Decls[i].Binding)
			if s.Decls[i].Value != nil {
				rw.expr(s.Decls[i].Value)
			}
		}

	case *js_ast.SFunction:
		rw.renameInScope(s.Fn.Name)
		rw.fn(&s.Fn, false)

	case *js_ast.SClass:
		rw.renameInScope(s.Class.Name)
		rw.class(&s.Class, false)

	case *js_ast.SBlock:
		rw.push().removeLexical(s.Stmts)
		rw.stmts(s.Stmts)
		rw.pop()

	case *js_ast.SExpr:
		rw.expr(&s.Value)

	case *js_ast.SOpaque:
		if s.Scoped {
			rw.push().removeLexical(s.Stmts)
		}
		for i := range s.Exprs {
			rw.expr(&s.Exprs[i])
		}
		rw.stmts(s.Stmts)
		if s.Scoped {
			rw.pop()
		}

	case *js_ast.SExportStar, *js_ast.SEmpty:

	default:
		panic("Internal error")
	}
}

// Function expressions bind their own name inside their body
func (rw *rewriter) fn(fn *js_ast.Fn, isExpr bool) {
	s := rw.push()
	if isExpr && fn.Name != nil {
		s.remove(js_ast.DeclaredNames(*fn.Name))
	}
	for _, arg := range fn.Args {
		s.remove(js_ast.DeclaredNames(arg))
	}
	s.removeLexical(fn.Body)
	s.removeHoisted(fn.Body)

	for i := range fn.Args {
		rw.expr(&fn.Args[i])
	}
	rw.stmts(fn.Body)
	rw.pop()
}

func (rw *rewriter) class(class *js_ast.Class, isExpr bool) {
	if class.Extends != nil {
		rw.expr(class.Extends)
	}
	s := rw.push()
	if isExpr && class.Name != nil {
		s.remove(js_ast.DeclaredNames(*class.Name))
	}
	for i := range class.Members {
		rw.expr(&class.Members[i])
	}
	rw.pop()
}

func (rw *rewriter) expr(expr *js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EIdentifier:
		rw.renameInScope(expr)

	case *js_ast.EShorthand:
		if rw.current()[e.Name] {
			rw.edits = append(rw.edits, patch.Replace(expr.Range, e.Name+": "+rw.mangled[e.Name]))
		}

	case *js_ast.EAssign:
		rw.expr(&e.Target)
		rw.expr(&e.Value)

	case *js_ast.EDot:
		rw.expr(&e.Target)

	case *js_ast.EIndex:
		rw.expr(&e.Target)
		rw.expr(&e.Index)

	case *js_ast.ESequence:
		for i := range e.Exprs {
			rw.expr(&e.Exprs[i])
		}

	case *js_ast.EFunction:
		rw.fn(&e.Fn, true)

	case *js_ast.EClass:
		rw.class(&e.Class, true)

	case *js_ast.EOpaque:
		for i := range e.Exprs {
			rw.expr(&e.Exprs[i])
		}
		rw.stmts(e.Stmts)

	case *js_ast.EString:

	default:
		panic("Internal error")
	}
}
