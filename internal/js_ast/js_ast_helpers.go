package js_ast

// Opaque node kinds that the helpers below look into
const (
	KindObjectPattern           = "object_pattern"
	KindArrayPattern            = "array_pattern"
	KindPairPattern             = "pair_pattern"
	KindAssignmentPattern       = "assignment_pattern"
	KindObjectAssignmentPattern = "object_assignment_pattern"
	KindRestPattern             = "rest_pattern"
)

// The placeholder local name of "export default <expression>"
const DefaultPlaceholder = "*default*"

func IsIdentifier(expr Expr) bool {
	_, ok := expr.Data.(*EIdentifier)
	return ok
}

func IsAssign(expr Expr) bool {
	_, ok := expr.Data.(*EAssign)
	return ok
}

func IsBlock(stmt Stmt) bool {
	_, ok := stmt.Data.(*SBlock)
	return ok
}

func IsEmpty(stmt Stmt) bool {
	_, ok := stmt.Data.(*SEmpty)
	return ok
}

func IsImport(stmt Stmt) bool {
	_, ok := stmt.Data.(*SImport)
	return ok
}

// Either "export {...}" (with or without "from") or an exported declaration
func IsExportNamed(stmt Stmt) bool {
	switch stmt.Data.(type) {
	case *SExportClause, *SExportDecl:
		return true
	}
	return false
}

func IsExportDefault(stmt Stmt) bool {
	_, ok := stmt.Data.(*SExportDefault)
	return ok
}

func IsExportAll(stmt Stmt) bool {
	_, ok := stmt.Data.(*SExportStar)
	return ok
}

func LiteralName(expr Expr) (string, bool) {
	if str, ok := expr.Data.(*EString); ok {
		return str.Value, true
	}
	return "", false
}

// Returns the target and the property name of both "a.b" and "a['b']"
func MemberPropertyName(expr Expr) (Expr, string, bool) {
	switch e := expr.Data.(type) {
	case *EDot:
		return e.Target, e.Name, true
	case *EIndex:
		if name, ok := LiteralName(e.Index); ok {
			return e.Target, name, true
		}
	}
	return Expr{}, "", false
}

// Returns the names bound by a binding pattern in source order
func DeclaredNames(binding Expr) []string {
	var names []string
	var visit func(Expr)
	visit = func(expr Expr) {
		switch e := expr.Data.(type) {
		case *EIdentifier:
			names = append(names, e.Name)
		case *EShorthand:
			names = append(names, e.Name)
		case *EOpaque:
			switch e.Kind {
			case KindObjectPattern, KindArrayPattern, KindRestPattern:
				for _, item := range e.Exprs {
					visit(item)
				}
			case KindPairPattern:
				// The key is either a property name (not a node) or a computed
				// expression, and the value always comes last
				if len(e.Exprs) > 0 {
					visit(e.Exprs[len(e.Exprs)-1])
				}
			case KindAssignmentPattern, KindObjectAssignmentPattern:
				if len(e.Exprs) > 0 {
					visit(e.Exprs[0])
				}
			}
		}
	}
	visit(binding)
	return names
}

// Names that "stmt" declares in the scope it appears in. "var" declarations
// are reported separately since they belong to the enclosing function.
func DeclaredByStmt(stmt Stmt) (lexical []string, hoisted []string) {
	switch s := stmt.Data.(type) {
	case *SLocal:
		for _, decl := range s.Decls {
			if s.Kind == LocalVar {
				hoisted = append(hoisted, DeclaredNames(decl.Binding)...)
			} else {
				lexical = append(lexical, DeclaredNames(decl.Binding)...)
			}
		}
	case *SFunction:
		if s.Fn.Name != nil {
			lexical = append(lexical, DeclaredNames(*s.Fn.Name)...)
		}
	case *SClass:
		if s.Class.Name != nil {
			lexical = append(lexical, DeclaredNames(*s.Class.Name)...)
		}
	}
	return
}

type ExprOrStmt struct {
	Expr *Expr
	Stmt *Stmt
}

// A read-only traversal. "ancestors" lists the enclosing nodes from the
// outermost statement down to the parent, and must not be retained.
type Visitor struct {
	Enter func(node ExprOrStmt, ancestors []ExprOrStmt)
	Leave func(node ExprOrStmt, ancestors []ExprOrStmt)
}

func Visit(stmts []Stmt, visitor Visitor) {
	w := walker{visitor: visitor}
	for i := range stmts {
		w.stmt(&stmts[i])
	}
}

type walker struct {
	visitor   Visitor
	ancestors []ExprOrStmt
}

func (w *walker) enter(node ExprOrStmt) {
	if w.visitor.Enter != nil {
		w.visitor.Enter(node, w.ancestors)
	}
	w.ancestors = append(w.ancestors, node)
}

func (w *walker) leave(node ExprOrStmt) {
	w.ancestors = w.ancestors[:len(w.ancestors)-1]
	if w.visitor.Leave != nil {
		w.visitor.Leave(node, w.ancestors)
	}
}

func (w *walker) stmts(stmts []Stmt) {
	for i := range stmts {
		w.stmt(&stmts[i])
	}
}

func (w *walker) exprs(exprs []Expr) {
	for i := range exprs {
		w.expr(&exprs[i])
	}
}

func (w *walker) optionalExpr(expr *Expr) {
	if expr != nil {
		w.expr(expr)
	}
}

func (w *walker) stmt(stmt *Stmt) {
	node := ExprOrStmt{Stmt: stmt}
	w.enter(node)

	switch s := stmt.Data.(type) {
	case *SImport:
		w.optionalExpr(s.DefaultName)
		w.optionalExpr(s.NamespaceName)
	case *SExportDecl:
		w.stmt(&s.Decl)
	case *SExportDefault:
		w.stmt(&s.Value)
	case *SLocal:
		for i := range s.Decls {
			w.expr(&s.Decls[i].Binding)
			w.optionalExpr(s.Decls[i].Value)
		}
	case *SFunction:
		w.fn(&s.Fn)
	case *SClass:
		w.class(&s.Class)
	case *SBlock:
		w.stmts(s.Stmts)
	case *SExpr:
		w.expr(&s.Value)
	case *SOpaque:
		w.exprs(s.Exprs)
		w.stmts(s.Stmts)
	case *SExportClause, *SExportStar, *SEmpty:
	default:
		panic("Internal error")
	}

	w.leave(node)
}

func (w *walker) expr(expr *Expr) {
	node := ExprOrStmt{Expr: expr}
	w.enter(node)

	switch e := expr.Data.(type) {
	case *EAssign:
		w.expr(&e.Target)
		w.expr(&e.Value)
	case *EDot:
		w.expr(&e.Target)
	case *EIndex:
		w.expr(&e.Target)
		w.expr(&e.Index)
	case *ESequence:
		w.exprs(e.Exprs)
	case *EFunction:
		w.fn(&e.Fn)
	case *EClass:
		w.class(&e.Class)
	case *EOpaque:
		w.exprs(e.Exprs)
		w.stmts(e.Stmts)
	case *EIdentifier, *EString, *EShorthand:
	default:
		panic("Internal error")
	}

	w.leave(node)
}

func (w *walker) fn(fn *Fn) {
	w.optionalExpr(fn.Name)
	w.exprs(fn.Args)
	w.stmts(fn.Body)
}

func (w *walker) class(class *Class) {
	w.optionalExpr(class.Name)
	w.optionalExpr(class.Extends)
	w.exprs(class.Members)
}
