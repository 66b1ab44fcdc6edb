package mangle_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/evanw/esclosure/internal/js_parser"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/mangle"
	"github.com/evanw/esclosure/internal/patch"
	"github.com/evanw/esclosure/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceIDIsStable(t *testing.T) {
	r := mangle.NewRegistry()
	id := r.SourceID("/src/a.js")
	assert.True(t, strings.HasPrefix(id, "f_"))
	assert.Equal(t, id, r.SourceID("/src/a.js"))
	assert.Equal(t, id, mangle.NewRegistry().SourceID("/src/a.js"))
	assert.NotEqual(t, id, r.SourceID("/src/b.js"))

	path, ok := r.GetSource(id)
	require.True(t, ok)
	assert.Equal(t, "/src/a.js", path)
}

func TestMangleIsIdempotent(t *testing.T) {
	r := mangle.NewRegistry()
	id := r.SourceID("/src/a.js")

	first, err := r.Mangle("foo", id)
	require.NoError(t, err)
	assert.Equal(t, "foo_"+id, first)

	second, err := r.Mangle("foo", id)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	name, ok := r.GetName(first)
	require.True(t, ok)
	assert.Equal(t, "foo", name)

	mangled, ok := r.GetMangledName("foo")
	require.True(t, ok)
	assert.Equal(t, first, mangled)
}

func TestMangleReportsConflicts(t *testing.T) {
	r := mangle.NewRegistry()
	a := r.SourceID("/src/a.js")
	b := r.SourceID("/src/b.js")

	_, err := r.Mangle("foo", a)
	require.NoError(t, err)

	_, err = r.Mangle("foo", b)
	var conflict *mangle.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "foo", conflict.Name)
	assert.Equal(t, "foo_"+a, conflict.Stored)
	assert.Equal(t, "foo_"+b, conflict.Requested)

	// The first registration wins
	mangled, _ := r.GetMangledName("foo")
	assert.Equal(t, "foo_"+a, mangled)
}

func TestMangleSkipsNamesThatAreNotBindings(t *testing.T) {
	r := mangle.NewRegistry()
	id := r.SourceID("/src/a.js")
	for _, name := range []string{"default", "*default*", "class"} {
		mangled, err := r.Mangle(name, id)
		require.NoError(t, err)
		assert.Equal(t, name, mangled)
	}
	assert.Empty(t, r.Names())
}

func TestMangleConcurrently(t *testing.T) {
	r := mangle.NewRegistry()
	results := make([]string, 32)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mangled, err := r.Mangle("shared", r.SourceID("/src/shared.js"))
			assert.NoError(t, err)
			results[i] = mangled
		}(i)
	}
	wg.Wait()

	for _, mangled := range results {
		assert.Equal(t, results[0], mangled)
	}
	assert.Equal(t, []string{"shared"}, r.Names())
}

func expectRewritten(t *testing.T, r *mangle.Registry, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		source := test.SourceForTest(contents)
		tree, err := js_parser.Parse(context.Background(), source)
		require.NoError(t, err)
		result, err := patch.Apply(source, r.Rewrite(tree))
		require.NoError(t, err)
		test.AssertEqualWithDiff(t, result.Text, expected)
	})
}

func TestRewrite(t *testing.T) {
	r := mangle.NewRegistry()
	id := r.SourceID("/src/a.js")
	_, err := r.Mangle("a", id)
	require.NoError(t, err)
	_, err = r.Mangle("b", id)
	require.NoError(t, err)
	a, b := "a_"+id, "b_"+id

	expectRewritten(t, r, "a(b);\n", a+"("+b+");\n")
	expectRewritten(t, r, "import {a} from './a';\n", "import {"+a+"} from './a';\n")
	expectRewritten(t, r, "import {a as c} from './a';\nc();\n", "import {"+a+" as c} from './a';\nc();\n")
	expectRewritten(t, r, "import b from './a';\nb();\n", "import "+b+" from './a';\n"+b+"();\n")
	expectRewritten(t, r, "export {a as b};\n", "export {"+a+" as "+b+"};\n")
	expectRewritten(t, r, "export {a} from './a';\n", "export {"+a+"} from './a';\n")
	expectRewritten(t, r, "export const a = 1;\n", "export const "+a+" = 1;\n")
	expectRewritten(t, r, "export function a() {}\n", "export function "+a+"() {}\n")

	// Property names stay as they are
	expectRewritten(t, r, "a.a = b['b'];\n", a+".a = "+b+"['b'];\n")
	expectRewritten(t, r, "const o = {a};\n", "const o = {a: "+a+"};\n")

	// Local declarations shadow registered names
	expectRewritten(t, r, "const a = 1;\na(b);\n", "const a = 1;\na("+b+");\n")
	expectRewritten(t, r, "function f(a) { return a + b; }\na();\n",
		"function f(a) { return a + "+b+"; }\n"+a+"();\n")
	expectRewritten(t, r, "{ let a = 1; a(); }\na();\n", "{ let a = 1; a(); }\n"+a+"();\n")
	expectRewritten(t, r, "function f() { if (x) { var b = 1; } return b; }\nb();\n",
		"function f() { if (x) { var b = 1; } return b; }\n"+b+"();\n")
	expectRewritten(t, r, "(function a() { a(); })();\na();\n", "(function a() { a(); })();\n"+a+"();\n")
	expectRewritten(t, r, "try {} catch (a) { a(); }\na();\n", "try {} catch (a) { a(); }\n"+a+"();\n")
	expectRewritten(t, r, "for (const a of b) a();\n", "for (const a of "+b+") a();\n")

	// An exported local that keeps its name is exported under the mangled one
	expectRewritten(t, r, "const a = 1;\nexport {a};\n", "const a = 1;\nexport {a as "+a+"};\n")
	expectRewritten(t, r, "const a = 1;\nexport {a as b};\n", "const a = 1;\nexport {a as "+b+"};\n")
}

func TestRewriteWithEmptyRegistry(t *testing.T) {
	source := test.SourceForTest("a(b);")
	tree, err := js_parser.Parse(context.Background(), source)
	require.NoError(t, err)
	assert.Empty(t, mangle.NewRegistry().Rewrite(tree))
}

func TestDebug(t *testing.T) {
	r := mangle.NewRegistry()
	id := r.SourceID("/src/a.js")
	_, err := r.Mangle("a", id)
	require.NoError(t, err)

	log := logger.NewDeferLog()
	r.Debug(log)
	msgs := log.Done()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Mangle state: 1 sources, 1 names", msgs[0].Text)
	assert.Equal(t, []string{"source /src/a.js -> " + id, "name a -> a_" + id}, msgs[0].Notes)
}
