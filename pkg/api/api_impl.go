package api

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/evanw/esclosure/internal/cache"
	"github.com/evanw/esclosure/internal/compiler"
	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/mangle"
	"github.com/evanw/esclosure/internal/passes"
	"github.com/evanw/esclosure/internal/sourcemap"
	"github.com/evanw/esclosure/internal/transform"
	"golang.org/x/sync/errgroup"
)

type Plugin struct {
	options        Options
	compileOptions config.CompileOptions
	plugin         config.PluginOptions
	compiler       compiler.Compiler
	log            logger.Log
	deps           *passes.Deps
	runner         *transform.Runner
	done           sync.Once
}

func validateColor(value StderrColor) logger.StderrColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelVerbose:
		return logger.LevelVerbose
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		panic("Invalid log level")
	}
}

func newLog(options Options) logger.Log {
	if options.LogLevel == LogLevelSilent {
		return logger.NewDeferLog()
	}
	return logger.NewStderrLog(logger.OutputOptions{
		IncludeSource: true,
		ErrorLimit:    options.ErrorLimit,
		Color:         validateColor(options.Color),
		LogLevel:      validateLogLevel(options.LogLevel),
	})
}

func isAdvanced(options config.CompileOptions) bool {
	level, _ := options.Get("compilation_level")
	return strings.HasPrefix(strings.ToUpper(level), "ADVANCED")
}

// New validates the configuration before any work is done. Every module and
// chunk of one build must go through the same plugin since the mangled names
// of one module are only known to the plugin that transformed it.
func New(options Options) (*Plugin, error) {
	compileOptions := config.CompileOptions{}
	for key, values := range options.CompileOptions {
		compileOptions.Set(key, values...)
	}
	if err := config.Validate(compileOptions); err != nil {
		return nil, err
	}

	c := options.Compiler
	if c == nil {
		env := options.Env
		if env.Compiler == "" {
			env.Compiler = config.CompilerClosure
		}
		var err error
		if c, err = compiler.New(env); err != nil {
			return nil, err
		}
	}

	parseCache, err := cache.NewParseCache(options.CacheSize)
	if err != nil {
		return nil, err
	}

	log := newLog(options)
	var sinks transform.Sinks
	if options.DebugSink != nil {
		sinks = append(sinks, options.DebugSink)
	}
	if options.DebugDir != "" {
		sinks = append(sinks, transform.DirSink{Dir: options.DebugDir})
	}
	if options.LogLevel == LogLevelVerbose {
		sinks = append(sinks, transform.LogSink{Log: log})
	}
	runner := &transform.Runner{Log: log, Timing: options.Timing}
	if len(sinks) > 0 {
		runner.Sink = sinks
	}

	if isAdvanced(compileOptions) && options.EntryPoints > 1 {
		log.AddWarning(nil, logger.Range{}, "Code Splitting with Closure Compiler ADVANCED_OPTIMIZATIONS is not currently supported.")
	}

	return &Plugin{
		options:        options,
		compileOptions: compileOptions,
		plugin:         config.PluckPluginOptions(compileOptions),
		compiler:       c,
		log:            log,
		runner:         runner,
		deps: &passes.Deps{
			Registry: mangle.NewRegistry(),
			Cache:    parseCache,
			Memory:   passes.NewMemory(),
			Resolver: options.Resolver,
			Log:      log,
		},
	}, nil
}

func encodeMap(sm *sourcemap.SourceMap, file string) []byte {
	if sm == nil {
		return nil
	}
	return sourcemap.Encode(sm, file)
}

// TransformModule runs the source passes over one module as the bundler
// loads it
func (p *Plugin) TransformModule(ctx context.Context, id string, code string) (Result, error) {
	stages := passes.SourceStages(passes.NewSourcePasses(p.deps, p.options.MangleSources))
	out, err := p.runner.SourceLifecycle(ctx, id, code, stages)
	if err != nil {
		return Result{}, err
	}
	return Result{Code: out.Code, Map: encodeMap(out.Map, id)}, nil
}

// RenderChunk prepares one chunk for the compiler, compiles it, and restores
// its exports in the compiler's output. The source map maps the final code
// back to "chunk.Code".
func (p *Plugin) RenderChunk(ctx context.Context, chunk Chunk, output OutputOptions) (Result, error) {
	chunkPasses := passes.NewChunkPasses(p.deps, passes.Chunk{
		FileName:       chunk.FileName,
		FacadeModuleID: chunk.FacadeModuleID,
	}, output, p.plugin)

	pre, err := p.runner.ChunkLifecycle(ctx, chunk.FileName, transform.PhasePre, chunk.Code, passes.PreStages(chunkPasses))
	if err != nil {
		return Result{}, err
	}

	compiled, err := p.compiler.Compile(ctx, compiler.Input{
		Code:     pre.Code,
		FileName: chunk.FileName,
		Externs:  passes.Externs(chunkPasses),
		Options:  p.compileOptions,
		Output:   output,
	})
	if err != nil {
		return Result{}, err
	}
	if compiled.Diagnostics != "" {
		p.log.AddVerbose(fmt.Sprintf("Output from %s for %s", p.compiler.Name(), chunk.FileName), compiled.Diagnostics)
	}

	post, err := p.runner.ChunkLifecycle(ctx, chunk.FileName, transform.PhasePost, compiled.Code, passes.PostStages(chunkPasses))
	if err != nil {
		return Result{}, err
	}

	for _, pass := range chunkPasses {
		if exports, ok := pass.(*passes.ExportChunk); ok {
			if pending := exports.Pending(); len(pending) > 0 {
				err := &passes.LostExportsError{FileName: chunk.FileName}
				for _, detail := range pending {
					err.Names = append(err.Names, detail.Exported)
				}
				p.log.AddError(nil, logger.Range{}, err.Error())
				return Result{}, err
			}
		}
	}

	sm := sourcemap.Compose(pre.Map, compiled.Map, post.Map)
	file := output.File
	if file == "" {
		file = chunk.FileName
	}
	return Result{Code: post.Code, Map: encodeMap(sm, file)}, nil
}

func limit() int {
	return runtime.GOMAXPROCS(0)
}

// TransformModules runs "TransformModule" for every module in parallel. The
// first error cancels the modules that haven't finished.
func (p *Plugin) TransformModules(ctx context.Context, modules []Module) ([]ModuleResult, error) {
	results := make([]ModuleResult, len(modules))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit())
	for i, module := range modules {
		group.Go(func() error {
			result, err := p.TransformModule(ctx, module.ID, module.Code)
			if err != nil {
				return err
			}
			results[i] = ModuleResult{Module: module, Result: result}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Plugin) RenderChunks(ctx context.Context, chunks []Chunk, output OutputOptions) ([]ChunkResult, error) {
	results := make([]ChunkResult, len(chunks))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit())
	for i, chunk := range chunks {
		group.Go(func() error {
			result, err := p.RenderChunk(ctx, chunk, output)
			if err != nil {
				return err
			}
			results[i] = ChunkResult{Chunk: chunk, Result: result}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MangledNames lists the original names registered so far
func (p *Plugin) MangledNames() []string {
	return p.deps.Registry.Names()
}

// DebugNames logs the mangle registry at the verbose level
func (p *Plugin) DebugNames() {
	p.deps.Registry.Debug(p.log)
}

func (p *Plugin) CacheStats() CacheStats {
	return p.deps.Cache.Stats()
}

func messagesOfKind(kind logger.MsgKind, msgs []logger.Msg) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind == kind {
			var location *Location
			if loc := msg.Location; loc != nil {
				location = &Location{
					File:     loc.File,
					Line:     loc.Line,
					Column:   loc.Column,
					Length:   loc.Length,
					LineText: loc.LineText,
				}
			}
			filtered = append(filtered, Message{
				Text:     msg.Text,
				Location: location,
				Notes:    append([]string{}, msg.Notes...),
			})
		}
	}
	return filtered
}

// Warnings logged so far, sorted by location
func (p *Plugin) Warnings() []Message {
	return messagesOfKind(logger.Warning, p.log.Peek())
}

// Done finishes the log, which prints the summary line when logging to
// stderr. Only the first call does anything.
func (p *Plugin) Done() {
	p.done.Do(func() {
		p.log.Done()
	})
}

// Everything logged so far at the error, warning and info levels
func (p *Plugin) Messages() []Message {
	msgs := p.log.Peek()
	var all []Message
	for _, kind := range []logger.MsgKind{logger.Error, logger.Warning, logger.Info} {
		all = append(all, messagesOfKind(kind, msgs)...)
	}
	return all
}
