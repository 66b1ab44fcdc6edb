package compiler

// The compiler is a black box: it receives one chunk of code plus extern
// files and returns minified code with a source map back to its input.
// Several backends implement the same interface. Closure Compiler is the
// one the transforms are designed for, and the in-process backends exist
// for environments without a JVM and for tests.

import (
	"context"
	"fmt"

	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/sourcemap"
)

type Input struct {
	Code string

	// The name the output will be written to
	FileName string

	// The text of every extern file
	Externs []string

	Options config.CompileOptions
	Output  config.OutputOptions
}

type Output struct {
	Code string

	// Maps "Code" back to "Input.Code". Nil when the backend can't produce
	// a source map.
	Map *sourcemap.SourceMap

	// Anything the compiler printed that wasn't fatal
	Diagnostics string
}

type Compiler interface {
	Name() string
	Compile(ctx context.Context, input Input) (Output, error)
}

// Error is a failed compilation. The compiler's own diagnostics are kept
// verbatim.
type Error struct {
	Compiler    string
	ExitStatus  int
	Diagnostics string
}

func (e *Error) Error() string {
	if e.ExitStatus == 0 {
		return fmt.Sprintf("%s %s", e.Compiler, e.Diagnostics)
	}
	return fmt.Sprintf("%s exit %d: %s", e.Compiler, e.ExitStatus, e.Diagnostics)
}

func (e *Error) ExitCode() int {
	return exitcode.CompilerFailed
}

// New returns the backend selected by the environment
func New(env config.Env) (Compiler, error) {
	switch env.Compiler {
	case config.CompilerClosure:
		return &Closure{Bin: env.ClosureBin, Java: env.Java, Jar: env.ClosureJar}, nil
	case config.CompilerEsbuild:
		return Esbuild{}, nil
	case config.CompilerMinify:
		return Minify{}, nil
	case config.CompilerIdentity:
		return Identity{}, nil
	}
	return nil, &config.Error{Text: fmt.Sprintf("Unknown compiler %q", env.Compiler)}
}

// Identity hands its input back unchanged
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Compile(ctx context.Context, input Input) (Output, error) {
	sm := sourcemap.Identity(input.Code)
	sm.Sources = []string{input.FileName}
	return Output{Code: input.Code, Map: sm}, nil
}
