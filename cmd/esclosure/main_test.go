package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, _ := newRootCommand()
	stdout := bytes.Buffer{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-level", "silent"))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestChunkFromStdin(t *testing.T) {
	out, err := execute(t, "const a = f();\nexport {a};\n", "chunk", "--compiler", "identity")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "export{a}"))
	assert.NotContains(t, out, "window")
}

func TestChunkWritesSourceMap(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.js")
	outfile := filepath.Join(dir, "out.js")
	require.NoError(t, os.WriteFile(input, []byte("console.log(1);\n"), 0644))

	_, err := execute(t, "", "chunk", input, "--compiler", "identity", "--format", "cjs", "--outfile", outfile, "--sourcemap")
	require.NoError(t, err)

	code, err := os.ReadFile(outfile)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)\n//# sourceMappingURL=out.js.map\n", string(code))

	data, err := os.ReadFile(outfile + ".map")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file": "out.js"`)
}

func TestUsageErrors(t *testing.T) {
	_, err := execute(t, "", "chunk", "--sourcemap")
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))

	_, err = execute(t, "", "chunk", "--format", "nope", "--compiler", "identity")
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))

	_, err = execute(t, "", "chunk", "--flag", "=1", "--compiler", "identity")
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))

	_, err = execute(t, "", "chunk", "--compiler", "identity", "--flag", "warning_level=VERBOSE")
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))
}

func TestModuleMangles(t *testing.T) {
	out, err := execute(t, "export const value = 1;\n", "module", "--mangle")
	require.NoError(t, err)
	assert.Contains(t, out, "export const value_f_")
}

func TestUnsupportedSyntax(t *testing.T) {
	_, err := execute(t, "export * from './x';\n", "chunk", "--compiler", "identity")
	assert.Equal(t, exitcode.Unsupported, exitcode.Get(err))
}
