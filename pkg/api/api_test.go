package api_test

import (
	"context"
	"strings"
	"testing"

	"github.com/evanw/esclosure/internal/compiler"
	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/passes"
	"github.com/evanw/esclosure/internal/sourcemap"
	"github.com/evanw/esclosure/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var esm = api.OutputOptions{Format: api.FormatESModule}

type mapResolver map[string]string

func (r mapResolver) Resolve(ctx context.Context, specifier string, importer string) (string, bool) {
	id, ok := r[specifier]
	return id, ok
}

// Returns a fixed text no matter the input
type constCompiler struct {
	code string
	err  error
}

func (c constCompiler) Name() string { return "const" }

func (c constCompiler) Compile(ctx context.Context, input api.CompilerInput) (api.CompilerOutput, error) {
	return api.CompilerOutput{Code: c.code}, c.err
}

func newPlugin(t *testing.T, options api.Options) *api.Plugin {
	t.Helper()
	if options.Compiler == nil {
		options.Compiler = compiler.Identity{}
	}
	plugin, err := api.New(options)
	require.NoError(t, err)
	return plugin
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := api.New(api.Options{CompileOptions: map[string][]string{"warning_level": {"VERBOSE"}}})
	assert.ErrorIs(t, err, config.ErrWarningsLanguageOutUnspecified)
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))

	_, err = api.New(api.Options{CompileOptions: map[string][]string{
		"warning_level": {"VERBOSE"},
		"language_out":  {"NO_TRANSPILE"},
	}})
	assert.ErrorIs(t, err, config.ErrWarningsLanguageOutInvalid)

	_, err = api.New(api.Options{Env: api.Env{Compiler: "uglify"}})
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))
}

func TestNewWarnsAboutCodeSplitting(t *testing.T) {
	plugin := newPlugin(t, api.Options{
		CompileOptions: map[string][]string{"compilation_level": {"ADVANCED_OPTIMIZATIONS"}},
		EntryPoints:    2,
	})
	warnings := plugin.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Code Splitting with Closure Compiler ADVANCED_OPTIMIZATIONS is not currently supported.", warnings[0].Text)

	plugin = newPlugin(t, api.Options{EntryPoints: 2})
	assert.Empty(t, plugin.Warnings())
}

func TestRenderChunkRestoresExports(t *testing.T) {
	plugin := newPlugin(t, api.Options{})
	result, err := plugin.RenderChunk(context.Background(), api.Chunk{
		FileName: "index.js",
		Code:     "const a = compute();\nfunction b() {}\nexport {a, b as c};\n",
	}, esm)
	require.NoError(t, err)

	assert.Contains(t, result.Code, "const a = compute();")
	assert.True(t, strings.HasSuffix(result.Code, "export{a,b as c}"))
	assert.NotContains(t, result.Code, "window")
	assert.Empty(t, plugin.Warnings())

	require.NotEmpty(t, result.Map)
	sm, err := sourcemap.Decode(result.Map)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.js"}, sm.Sources)

	// "function b" didn't move
	pos, ok := sm.Trace(1, 0)
	require.True(t, ok)
	assert.Equal(t, int32(1), pos.Line)
}

func TestRenderChunkWithoutMap(t *testing.T) {
	plugin := newPlugin(t, api.Options{Compiler: constCompiler{code: "console.log(1)"}})
	result, err := plugin.RenderChunk(context.Background(), api.Chunk{FileName: "a.js", Code: "console.log(1);"}, esm)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", result.Code)
	assert.Empty(t, result.Map)
}

func TestRenderChunkFailsOnLostExports(t *testing.T) {
	plugin := newPlugin(t, api.Options{Compiler: constCompiler{code: "console.log(1)"}})
	_, err := plugin.RenderChunk(context.Background(), api.Chunk{FileName: "a.js", Code: "export const a = 1, b = 2;"}, esm)
	var lost *passes.LostExportsError
	require.ErrorAs(t, err, &lost)
	assert.Equal(t, []string{"a", "b"}, lost.Names)
	assert.Equal(t, exitcode.CompilerFailed, exitcode.Get(err))
	assert.Equal(t, `The compiler output for a.js no longer contains the exports "a", "b"`, err.Error())

	msgs := plugin.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, err.Error(), msgs[0].Text)
}

func TestRenderChunkRestoresMinifiedExports(t *testing.T) {
	plugin := newPlugin(t, api.Options{Compiler: constCompiler{
		code: "function a(){return 1}function b(){return 2}console.log(a(),b()),window.a=a,window.b=b;\n",
	}})
	result, err := plugin.RenderChunk(context.Background(), api.Chunk{
		FileName: "a.js",
		Code:     "function a() { return 1; }\nfunction b() { return 2; }\nconsole.log(a(), b());\nexport {a, b};\n",
	}, esm)
	require.NoError(t, err)
	assert.Equal(t, "function a(){return 1}function b(){return 2}console.log(a(),b());export{a,b}", result.Code)
}

func TestMessagesCanBeReadRepeatedly(t *testing.T) {
	plugin := newPlugin(t, api.Options{
		CompileOptions: map[string][]string{"compilation_level": {"ADVANCED_OPTIMIZATIONS"}},
		EntryPoints:    2,
		LogLevel:       api.LogLevelSilent,
	})
	first := plugin.Warnings()
	require.Len(t, first, 1)
	first[0].Text = "changed"

	second := plugin.Warnings()
	require.Len(t, second, 1)
	assert.Equal(t, "Code Splitting with Closure Compiler ADVANCED_OPTIMIZATIONS is not currently supported.", second[0].Text)
	assert.Equal(t, second, plugin.Messages())

	plugin.Done()
	plugin.Done()
	assert.Equal(t, second, plugin.Warnings())
}

func TestRenderChunkCompilerFailure(t *testing.T) {
	failure := &compiler.Error{Compiler: "Google Closure Compiler", ExitStatus: 2, Diagnostics: "ERROR - bad\n"}
	plugin := newPlugin(t, api.Options{Compiler: constCompiler{err: failure}})
	_, err := plugin.RenderChunk(context.Background(), api.Chunk{FileName: "a.js", Code: "1;"}, esm)
	require.Error(t, err)
	assert.Equal(t, "Google Closure Compiler exit 2: ERROR - bad\n", err.Error())
	assert.Equal(t, exitcode.CompilerFailed, exitcode.Get(err))
}

func TestRenderChunkUnsupportedSyntax(t *testing.T) {
	plugin := newPlugin(t, api.Options{})
	_, err := plugin.RenderChunk(context.Background(), api.Chunk{FileName: "a.js", Code: "export * from './b';"}, esm)
	assert.Equal(t, exitcode.Unsupported, exitcode.Get(err))
}

func TestRenderChunkKeepsHashbang(t *testing.T) {
	plugin := newPlugin(t, api.Options{})
	result, err := plugin.RenderChunk(context.Background(), api.Chunk{
		FileName: "cli.js",
		Code:     "#!/usr/bin/env node\nconsole.log(1);\n",
	}, api.OutputOptions{Format: api.FormatCommonJS})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Code, "#!/usr/bin/env node\nconsole.log(1)"))
	assert.Equal(t, 1, strings.Count(result.Code, "#!"))
}

func TestTransformModulesShareMangledNames(t *testing.T) {
	plugin := newPlugin(t, api.Options{
		MangleSources: true,
		Resolver:      mapResolver{"./a.js": "/src/a.js", "./c.js": "/src/c.js"},
	})
	results, err := plugin.TransformModules(context.Background(), []api.Module{
		{ID: "/src/a.js", Code: "export const value = 1;\n"},
		{ID: "/src/b.js", Code: "import {value} from './a.js';\nconsole.log(value);\n"},
		{ID: "/src/c.js", Code: "const count = 1;\nexport {count};\n"},
		{ID: "/src/d.js", Code: "import {count} from './c.js';\nconsole.log(count);\n"},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "/src/a.js", results[0].Module.ID)

	assert.Equal(t, []string{"count", "value"}, plugin.MangledNames())
	a, b := results[0].Result.Code, results[1].Result.Code
	start := strings.Index(a, "value_f_")
	require.GreaterOrEqual(t, start, 0)
	end := strings.IndexAny(a[start:], " ;=")
	require.Greater(t, end, 0)
	mangled := a[start : start+end]
	assert.Contains(t, b, "console.log("+mangled+")")
	assert.NotEmpty(t, results[1].Result.Map)

	// The local binding keeps its name and is exported under the name importers use
	c, d := results[2].Result.Code, results[3].Result.Code
	start = strings.Index(d, "console.log(count_f_")
	require.GreaterOrEqual(t, start, 0)
	start += len("console.log(")
	end = strings.Index(d[start:], ")")
	require.Greater(t, end, 0)
	mangled = d[start : start+end]
	assert.Contains(t, c, "const count = 1;")
	assert.Contains(t, c, "export {count as "+mangled+"};")
}

func TestTransformModuleWithoutMangling(t *testing.T) {
	plugin := newPlugin(t, api.Options{})
	result, err := plugin.TransformModule(context.Background(), "/src/a.js", "#!/usr/bin/env node\nexport const value = 1;\n")
	require.NoError(t, err)
	assert.Equal(t, "export const value = 1;\n", result.Code)
	assert.Empty(t, plugin.MangledNames())
}

func TestRenderChunksStopsAtFirstError(t *testing.T) {
	plugin := newPlugin(t, api.Options{})
	_, err := plugin.RenderChunks(context.Background(), []api.Chunk{
		{FileName: "a.js", Code: "export const a = 1;"},
		{FileName: "b.js", Code: "export * from './c';"},
	}, esm)
	assert.Equal(t, exitcode.Unsupported, exitcode.Get(err))

	results, err := plugin.RenderChunks(context.Background(), []api.Chunk{
		{FileName: "a.js", Code: "export const a = 1;"},
		{FileName: "b.js", Code: "export const b = 2;"},
	}, esm)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b.js", results[1].Chunk.FileName)
	assert.Contains(t, results[1].Result.Code, "const b = 2;")
	assert.True(t, strings.HasSuffix(results[1].Result.Code, "export{b}"))
}

func TestDebugSinkSeesEveryUnit(t *testing.T) {
	sink := &recordingSink{}
	plugin := newPlugin(t, api.Options{DebugSink: sink})
	_, err := plugin.RenderChunk(context.Background(), api.Chunk{FileName: "a.js", Code: "1;"}, esm)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre a.js: completed", "post a.js: completed"}, sink.units)
}

type recordingSink struct {
	units []string
}

func (s *recordingSink) Record(unit api.Unit, steps []api.Step) error {
	s.units = append(s.units, unit.String())
	return nil
}
