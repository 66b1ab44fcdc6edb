package js_ast

import "github.com/evanw/esclosure/internal/logger"

// Every AST node has a range into the text it was parsed from. A range is
// only meaningful for that exact snapshot: once a pass rewrites the text, the
// next pass parses it again.
//
// Only the syntax that the transform passes inspect has a dedicated node.
// Everything else is an opaque node that still carries its children, so
// visitors see every identifier and every nested scope.

type AST struct {
	Hashbang string
	Stmts    []Stmt
}

type Stmt struct {
	Range logger.Range
	Data  S

	// True when the statement ends with its own ";" token. A statement that
	// relies on automatic semicolon insertion does not.
	Terminated bool
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type S interface{ isStmt() }

type Path struct {
	Range logger.Range // Includes the quotes
	Text  string
}

// One item of "import {a as b}" or "export {a as b}". For imports "Name" is
// the imported name and "Alias" the local binding. For exports "Name" is the
// local binding and "Alias" the exported name. "Alias" is empty when there
// is no "as" clause.
type ClauseItem struct {
	Name       string
	NameRange  logger.Range
	Alias      string
	AliasRange logger.Range

	// ES2022 allows "import {'a-b' as c}" and "export {c as 'a-b'}"
	NameIsString  bool
	AliasIsString bool
}

func (item ClauseItem) LocalName() string {
	if item.Alias != "" {
		return item.Alias
	}
	return item.Name
}

type SImport struct {
	DefaultName   *Expr // EIdentifier
	NamespaceName *Expr // EIdentifier
	Items         []ClauseItem
	HasItems      bool // "import {} from 'x'" still has braces
	Source        Path
}

// "export {a, b as c}" or "export {a} from 'x'"
type SExportClause struct {
	Items  []ClauseItem
	Source *Path
}

// "export const|let|var|function|class ..."
type SExportDecl struct {
	Decl Stmt // An SLocal, SFunction or SClass
}

type SExportDefault struct {
	Value Stmt // An SFunction, SClass or SExpr
}

// "export * from 'x'" or "export * as ns from 'x'"
type SExportStar struct {
	Alias  *ClauseItem
	Source Path
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

func (kind LocalKind) String() string {
	switch kind {
	case LocalVar:
		return "var"
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	default:
		panic("Internal error")
	}
}

type Decl struct {
	Binding Expr
	Value   *Expr
}

type SLocal struct {
	Kind  LocalKind
	Decls []Decl
}

type SFunction struct {
	Fn Fn
}

type SClass struct {
	Class Class
}

type SBlock struct {
	Stmts []Stmt
}

type SExpr struct {
	Value Expr
}

type SEmpty struct{}

// Any other statement. "Scoped" statements ("for", "catch", "switch")
// introduce a block scope around their children.
type SOpaque struct {
	Kind   string
	Stmts  []Stmt
	Exprs  []Expr
	Scoped bool
}

func (*SImport) isStmt()        {}
func (*SExportClause) isStmt()  {}
func (*SExportDecl) isStmt()    {}
func (*SExportDefault) isStmt() {}
func (*SExportStar) isStmt()    {}
func (*SLocal) isStmt()         {}
func (*SFunction) isStmt()      {}
func (*SClass) isStmt()         {}
func (*SBlock) isStmt()         {}
func (*SExpr) isStmt()          {}
func (*SEmpty) isStmt()         {}
func (*SOpaque) isStmt()        {}

type Expr struct {
	Range logger.Range
	Data  E
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type E interface{ isExpr() }

// Both references and bindings
type EIdentifier struct {
	Name string
}

type EAssign struct {
	Target Expr
	Value  Expr
}

// "a.b"
type EDot struct {
	Target    Expr
	Name      string
	NameRange logger.Range
}

// "a[b]"
type EIndex struct {
	Target Expr
	Index  Expr
}

// "a, b, c" with nested sequences flattened
type ESequence struct {
	Exprs []Expr
}

type EString struct {
	Value string
}

// "{a}" in an object literal or an object pattern
type EShorthand struct {
	Name string
}

type EFunction struct {
	Fn Fn
}

type EClass struct {
	Class Class
}

// Any other expression, pattern or class member. "Stmts" holds nested
// statements such as the body of a class static block.
type EOpaque struct {
	Kind  string
	Stmts []Stmt
	Exprs []Expr
}

func (*EIdentifier) isExpr() {}
func (*EAssign) isExpr()     {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*ESequence) isExpr()   {}
func (*EString) isExpr()     {}
func (*EShorthand) isExpr()  {}
func (*EFunction) isExpr()   {}
func (*EClass) isExpr()      {}
func (*EOpaque) isExpr()     {}

type Fn struct {
	Name    *Expr // EIdentifier, nil for anonymous functions and methods
	Args    []Expr
	Body    []Stmt
	IsArrow bool
}

type Class struct {
	Name    *Expr // EIdentifier
	Extends *Expr
	Members []Expr
}
