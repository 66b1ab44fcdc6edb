package js_parser

import (
	"context"
	"testing"

	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, contents string) *js_ast.AST {
	t.Helper()
	tree, err := Parse(context.Background(), test.SourceForTest(contents))
	require.NoError(t, err)
	return tree
}

func expectParseError(t *testing.T, contents string, line int) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		_, err := Parse(context.Background(), test.SourceForTest(contents))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		require.NotNil(t, parseErr.Location)
		assert.Equal(t, "<stdin>", parseErr.Location.File)
		assert.Equal(t, line, parseErr.Location.Line)
	})
}

func TestImport(t *testing.T) {
	tree := parse(t, "import a, {b as c, d} from './x';")
	require.Len(t, tree.Stmts, 1)
	s, ok := tree.Stmts[0].Data.(*js_ast.SImport)
	require.True(t, ok)

	assert.True(t, tree.Stmts[0].Terminated)
	assert.Equal(t, "./x", s.Source.Text)
	require.NotNil(t, s.DefaultName)
	assert.Equal(t, "a", s.DefaultName.Data.(*js_ast.EIdentifier).Name)
	assert.Nil(t, s.NamespaceName)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "b", s.Items[0].Name)
	assert.Equal(t, "c", s.Items[0].Alias)
	assert.Equal(t, "c", s.Items[0].LocalName())
	assert.Equal(t, "d", s.Items[1].Name)
	assert.Equal(t, "", s.Items[1].Alias)
}

func TestImportNamespace(t *testing.T) {
	tree := parse(t, "import * as ns from \"y\"")
	s := tree.Stmts[0].Data.(*js_ast.SImport)
	require.NotNil(t, s.NamespaceName)
	assert.Equal(t, "ns", s.NamespaceName.Data.(*js_ast.EIdentifier).Name)
	assert.Equal(t, "y", s.Source.Text)
	assert.False(t, tree.Stmts[0].Terminated)
}

func TestExports(t *testing.T) {
	tree := parse(t, `export {a, b as c};
export {d} from './m';
export * from './x';
export * as ns from './z';
export const e = 1;
export default 1 + 2;
`)
	require.Len(t, tree.Stmts, 6)

	clause := tree.Stmts[0].Data.(*js_ast.SExportClause)
	assert.Nil(t, clause.Source)
	require.Len(t, clause.Items, 2)
	assert.Equal(t, "b", clause.Items[1].Name)
	assert.Equal(t, "c", clause.Items[1].Alias)

	from := tree.Stmts[1].Data.(*js_ast.SExportClause)
	require.NotNil(t, from.Source)
	assert.Equal(t, "./m", from.Source.Text)

	star := tree.Stmts[2].Data.(*js_ast.SExportStar)
	assert.Nil(t, star.Alias)
	assert.Equal(t, "./x", star.Source.Text)

	namespace := tree.Stmts[3].Data.(*js_ast.SExportStar)
	require.NotNil(t, namespace.Alias)
	assert.Equal(t, "ns", namespace.Alias.Alias)

	decl := tree.Stmts[4].Data.(*js_ast.SExportDecl)
	_, ok := decl.Decl.Data.(*js_ast.SLocal)
	assert.True(t, ok)
	assert.True(t, tree.Stmts[4].Terminated)

	def := tree.Stmts[5].Data.(*js_ast.SExportDefault)
	_, ok = def.Value.Data.(*js_ast.SExpr)
	assert.True(t, ok)

	assert.True(t, js_ast.IsExportNamed(tree.Stmts[1]))
	assert.True(t, js_ast.IsExportAll(tree.Stmts[3]))
	assert.True(t, js_ast.IsExportDefault(tree.Stmts[5]))
}

func TestExportDefaultDeclarations(t *testing.T) {
	tree := parse(t, "export default function f() {}\nexport default class C {}")
	fn := tree.Stmts[0].Data.(*js_ast.SExportDefault).Value.Data.(*js_ast.SFunction)
	assert.Equal(t, "f", fn.Fn.Name.Data.(*js_ast.EIdentifier).Name)
	class := tree.Stmts[1].Data.(*js_ast.SExportDefault).Value.Data.(*js_ast.SClass)
	assert.Equal(t, "C", class.Class.Name.Data.(*js_ast.EIdentifier).Name)
}

func TestHashbangAndComments(t *testing.T) {
	tree := parse(t, "#!/usr/bin/env node\n/* c */ a; // d\n")
	assert.Equal(t, "#!/usr/bin/env node", tree.Hashbang)
	require.Len(t, tree.Stmts, 1)
	assert.True(t, tree.Stmts[0].Terminated)
}

func TestMembersAndStrings(t *testing.T) {
	tree := parse(t, "window.a = b; window['c\\'d'] = e")
	require.Len(t, tree.Stmts, 2)

	first := tree.Stmts[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EAssign)
	target, name, ok := js_ast.MemberPropertyName(first.Target)
	require.True(t, ok)
	assert.Equal(t, "a", name)
	assert.Equal(t, "window", target.Data.(*js_ast.EIdentifier).Name)

	second := tree.Stmts[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EAssign)
	_, name, ok = js_ast.MemberPropertyName(second.Target)
	require.True(t, ok)
	assert.Equal(t, "c'd", name)
	assert.False(t, tree.Stmts[1].Terminated)
}

func TestSequence(t *testing.T) {
	contents := "f(a, b), window.a = a, (c, d), window.b = b;"
	tree := parse(t, contents)
	require.Len(t, tree.Stmts, 1)
	seq, ok := tree.Stmts[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.ESequence)
	require.True(t, ok)

	// The parenthesized sequence is a single operand
	require.Len(t, seq.Exprs, 4)
	texts := make([]string, len(seq.Exprs))
	for i, expr := range seq.Exprs {
		texts[i] = contents[expr.Range.Loc.Start:expr.Range.End()]
	}
	assert.Equal(t, []string{"f(a, b)", "window.a = a", "(c, d)", "window.b = b"}, texts)
	_, ok = seq.Exprs[1].Data.(*js_ast.EAssign)
	assert.True(t, ok)
}

func TestDeclaredNames(t *testing.T) {
	tree := parse(t, "const {a, b: [c, ...d], e = 1} = x;")
	local := tree.Stmts[0].Data.(*js_ast.SLocal)
	assert.Equal(t, js_ast.LocalConst, local.Kind)
	assert.Equal(t, []string{"a", "c", "d", "e"}, js_ast.DeclaredNames(local.Decls[0].Binding))
}

func TestEmptyStatement(t *testing.T) {
	tree := parse(t, "a;;")
	require.Len(t, tree.Stmts, 2)
	assert.True(t, js_ast.IsEmpty(tree.Stmts[1]))
	assert.False(t, tree.Stmts[1].Terminated)
}

func TestParseErrors(t *testing.T) {
	expectParseError(t, "let = ;", 1)
	expectParseError(t, "a;\nb(;", 2)
}
