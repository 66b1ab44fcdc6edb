package surface

import (
	"context"
	"testing"

	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/js_parser"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, contents string) (*js_ast.AST, *logger.Source) {
	t.Helper()
	source := test.SourceForTest(contents)
	tree, err := js_parser.Parse(context.Background(), source)
	require.NoError(t, err)
	return tree, &source
}

func exportDetails(t *testing.T, contents string) []ExportDetail {
	t.Helper()
	tree, source := parse(t, contents)
	details, err := ExportDetails(tree, source, nil)
	require.NoError(t, err)
	return details
}

func ptr(text string) *string {
	return &text
}

func TestExportClause(t *testing.T) {
	details := exportDetails(t, "let a, b; export {a, b as c};")
	r := logger.RangeBetween(10, 29)
	assert.Equal(t, []ExportDetail{
		{Local: "a", Exported: "a", Binding: "a", Range: r, Type: NamedConstant},
		{Local: "b", Exported: "c", Binding: "b", Range: r, Type: NamedConstant},
	}, details)
}

func TestExportAggregate(t *testing.T) {
	details := exportDetails(t, "export {d, e as f} from './m';")
	r := logger.RangeBetween(0, 30)
	assert.Equal(t, []ExportDetail{
		{Local: "d", Exported: "d", Binding: "d", Source: ptr("./m"), Range: r, Type: NamedAggregate},
		{Local: "e", Exported: "f", Binding: "f", Source: ptr("./m"), Range: r, Type: NamedAggregate},
	}, details)
	assert.False(t, details[0].IsLocal())
}

func TestExportDeclarations(t *testing.T) {
	details := exportDetails(t, "export const a = 1, {b} = c;\nexport let d;\nexport function f() {}\nexport class C {}")
	require.Len(t, details, 5)

	prefix := logger.RangeBetween(0, 7)
	assert.Equal(t, ExportDetail{Local: "a", Exported: "a", Binding: "a", Range: prefix, Type: NamedConstant}, details[0])
	assert.Equal(t, "b", details[1].Exported)
	assert.Equal(t, NamedVariable, details[2].Type)
	assert.Equal(t, NamedFunction, details[3].Type)
	assert.Equal(t, "f", details[3].Local)
	assert.Equal(t, NamedClass, details[4].Type)
	assert.Equal(t, "C", details[4].Local)
}

func TestExportDefault(t *testing.T) {
	details := exportDetails(t, "export default 1 + 2;")
	assert.Equal(t, []ExportDetail{{
		Local:    js_ast.DefaultPlaceholder,
		Exported: "default",
		Range:    logger.RangeBetween(0, 15),
		Type:     Default,
	}}, details)
	assert.True(t, details[0].IsDefault())

	details = exportDetails(t, "export default function f() {}")
	require.Len(t, details, 1)
	assert.Equal(t, NamedDefaultFunction, details[0].Type)
	assert.Equal(t, "f", details[0].Local)
	assert.Equal(t, "f", details[0].Binding)

	details = exportDetails(t, "export default class C {}")
	require.Len(t, details, 1)
	assert.Equal(t, Default, details[0].Type)
	assert.Equal(t, "C", details[0].Local)
}

func TestExportNamesAreResolved(t *testing.T) {
	tree, source := parse(t, "const a_x = 1; export {a_x as b_x};")
	resolve := func(name string) (string, bool) {
		switch name {
		case "a_x":
			return "a", true
		case "b_x":
			return "b", true
		}
		return "", false
	}
	details, err := ExportDetails(tree, source, resolve)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "a", details[0].Local)
	assert.Equal(t, "b", details[0].Exported)
	assert.Equal(t, "a_x", details[0].Binding)
}

func TestExportAllIsRejected(t *testing.T) {
	for _, contents := range []string{"export * from './x';", "export * as ns from './x';"} {
		tree, source := parse(t, contents)
		details, err := ExportDetails(tree, source, nil)
		var unsupported *UnsupportedSyntaxError
		require.ErrorAs(t, err, &unsupported)
		assert.Nil(t, details)
		assert.Equal(t, "<stdin>", unsupported.ModuleID)
		assert.Equal(t, int32(0), unsupported.Range.Loc.Start)
	}
}

func TestDuplicateExportIsRejected(t *testing.T) {
	tree, source := parse(t, "let a, b; export {a as c, b as c};")
	_, err := ExportDetails(tree, source, nil)
	var unsupported *UnsupportedSyntaxError
	require.ErrorAs(t, err, &unsupported)
}

func TestSpecifiers(t *testing.T) {
	tree, _ := parse(t, "import a, {b as c, d} from './x'; import * as ns from 'y'; import 'z';")
	imports := Imports(tree)
	require.Len(t, imports, 3)

	first := imports[0].Specifiers
	require.NotNil(t, first.Default)
	assert.Equal(t, "a", *first.Default)
	assert.Equal(t, []ImportBinding{{Imported: "b", Local: "c"}, {Local: "d"}}, first.Specific)
	assert.Equal(t, []string{"a", "c", "d"}, first.Local)
	assert.False(t, first.Namespace)

	second := imports[1].Specifiers
	assert.True(t, second.Namespace)
	assert.Equal(t, []string{"ns"}, second.Local)

	assert.Equal(t, "z", imports[2].Source)
	assert.Empty(t, imports[2].Specifiers.Local)
}

func TestAliasingIsStructural(t *testing.T) {
	tree, _ := parse(t, "import {a as a} from 'x';")
	set := Imports(tree)[0].Specifiers
	assert.Equal(t, []ImportBinding{{Imported: "a", Local: "a"}}, set.Specific)
}

func expectFormatted(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		tree, _ := parse(t, contents)
		imp := Imports(tree)[0]
		test.AssertEqualWithDiff(t, FormatSpecifiers(imp.Specifiers, imp.Source), expected)
	})
}

func TestFormatSpecifiers(t *testing.T) {
	expectFormatted(t, "import a from './x'", "import a from'./x';")
	expectFormatted(t, "import * as ns from './x'", "import * as ns from'./x';")
	expectFormatted(t, "import {b, c as d} from './x'", "import{b,c as d}from'./x';")
	expectFormatted(t, "import a, {b} from './x'", "import a,{b}from'./x';")
	expectFormatted(t, "import a, * as ns from './x'", "import a,* as ns from'./x';")
	expectFormatted(t, "import './x'", "import './x';")
}

func TestFormatExportItems(t *testing.T) {
	assert.Equal(t, "a,b as c,d as 'e-f'", FormatExportItems([]ExportItem{
		{Local: "a", Exported: "a"},
		{Local: "b", Exported: "c"},
		{Local: "d", Exported: "e-f"},
	}))
}
