// This API exposes the transforms that let a bundler hand its output to
// Google Closure Compiler. A host bundler creates one "Plugin" per build and
// calls "TransformModule" for every module it loads and "RenderChunk" for
// every chunk it writes. Both are safe to call from multiple goroutines.
//
// Example usage:
//
//	plugin, err := api.New(api.Options{
//	    CompileOptions: map[string][]string{
//	        "compilation_level": {"ADVANCED"},
//	    },
//	})
//	if err != nil {
//	    os.Exit(1)
//	}
//
//	result, err := plugin.RenderChunk(ctx, api.Chunk{
//	    FileName: "index.js",
//	    Code:     code,
//	}, api.OutputOptions{Format: api.FormatESModule})
package api

import (
	"github.com/evanw/esclosure/internal/cache"
	"github.com/evanw/esclosure/internal/compiler"
	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/passes"
	"github.com/evanw/esclosure/internal/transform"
)

type Format = config.Format

const (
	FormatIIFE     = config.FormatIIFE
	FormatCommonJS = config.FormatCommonJS
	FormatESModule = config.FormatESModule
	FormatAMD      = config.FormatAMD
	FormatUMD      = config.FormatUMD
	FormatSystem   = config.FormatSystem
)

type OutputOptions = config.OutputOptions

// Settings normally read from the environment with "config.FromEnv"
type Env = config.Env

// Maps an import specifier to the id of the module it refers to. Without a
// resolver the specifier itself is used.
type Resolver = passes.Resolver

type Compiler = compiler.Compiler
type CompilerInput = compiler.Input
type CompilerOutput = compiler.Output

type DebugSink = transform.DebugSink
type Unit = transform.Unit
type Step = transform.Step

type CacheStats = cache.Stats

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelVerbose
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	Text     string
	Location *Location
	Notes    []string
}

type Options struct {
	Color      StderrColor
	ErrorLimit int
	LogLevel   LogLevel

	// Also log how long every pass took
	Timing bool

	// The compiler's own command line flags without the leading "--"
	CompileOptions map[string][]string

	// Rename every exported and imported binding to a name that is unique
	// across modules. This lets ADVANCED optimizations rename properties
	// without breaking cross-module references.
	MangleSources bool

	// When nil, a compiler is selected from "Env"
	Compiler Compiler
	Env      Env

	Resolver Resolver

	// Receives the transform log of every module and chunk. "DebugDir" adds
	// a sink writing one file per unit.
	DebugSink DebugSink
	DebugDir  string

	// Number of parsed snapshots kept in memory
	CacheSize int

	// How many entry points the host bundler was given
	EntryPoints int
}

type Chunk struct {
	FileName string

	// The id of the entry module this chunk was created for, if any
	FacadeModuleID string

	Code string
}

type Module struct {
	ID   string
	Code string
}

type Result struct {
	Code string

	// Source map v3 JSON. Empty when some step produced no map.
	Map []byte
}

type ChunkResult struct {
	Chunk  Chunk
	Result Result
}

type ModuleResult struct {
	Module Module
	Result Result
}
