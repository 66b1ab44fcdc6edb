package passes

// Source passes run once per module before bundling. Chunk passes run on
// every rendered chunk, once before the compiler ("Pre") and once on the
// compiler's output ("Post"). Passes never edit text in place: each one
// parses the snapshot it is given and returns a list of edits applied with
// "patch.Apply".

import (
	"context"

	"github.com/evanw/esclosure/internal/cache"
	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/mangle"
	"github.com/evanw/esclosure/internal/patch"
	"github.com/evanw/esclosure/internal/transform"
)

// Resolver maps an import specifier to the canonical id of the module it
// refers to, as the host bundler would. Returning false keeps the specifier.
type Resolver interface {
	Resolve(ctx context.Context, specifier string, importer string) (string, bool)
}

// Everything passes share across units
type Deps struct {
	Registry *mangle.Registry
	Cache    *cache.ParseCache
	Memory   *Memory
	Resolver Resolver
	Log      logger.Log
}

func (d *Deps) resolve(ctx context.Context, specifier string, importer string) string {
	if d.Resolver != nil {
		if id, ok := d.Resolver.Resolve(ctx, specifier, importer); ok {
			return id
		}
	}
	return specifier
}

type SourcePass interface {
	Name() string
	Transform(ctx context.Context, source logger.Source) (patch.Result, error)
}

type ChunkPass interface {
	Name() string
	Pre(ctx context.Context, source logger.Source) (patch.Result, error)
	Post(ctx context.Context, source logger.Source) (patch.Result, error)

	// The text of an extern file for the compiler, if this pass needs one.
	// Only valid after "Pre" has run.
	Extern() (string, bool)
}

// Chunk passes embed this for the phases they don't take part in
type noopChunk struct{}

func (noopChunk) Pre(ctx context.Context, source logger.Source) (patch.Result, error) {
	return patch.Unchanged(source), nil
}

func (noopChunk) Post(ctx context.Context, source logger.Source) (patch.Result, error) {
	return patch.Unchanged(source), nil
}

func (noopChunk) Extern() (string, bool) {
	return "", false
}

// The import and export passes are opt-in. Mangling every module's exported
// names only pays off when the compiler renames properties across modules,
// and it rejects modules that reuse a name another module already exports.
func NewSourcePasses(deps *Deps, mangleSources bool) []SourcePass {
	passes := []SourcePass{&HashbangSource{deps: deps}}
	if mangleSources {
		passes = append(passes, &ImportSource{deps: deps}, &ExportSource{deps: deps})
	}
	return passes
}

type Chunk struct {
	FileName string

	// The entry module this chunk was built for, if any
	FacadeModuleID string
}

// Chunk passes keep state between "Pre" and "Post", so every chunk gets its
// own instances. The order matters: "ASIChunk" must come last.
func NewChunkPasses(deps *Deps, chunk Chunk, output config.OutputOptions, plugin config.PluginOptions) []ChunkPass {
	return []ChunkPass{
		&HashbangChunk{deps: deps, chunk: chunk},
		&StrictChunk{deps: deps, output: output, plugin: plugin},
		NewExportChunk(deps, output),
		&CJSChunk{output: output},
		&IIFEChunk{output: output},
		&ASIChunk{deps: deps},
	}
}

func SourceStages(passes []SourcePass) []transform.Stage {
	stages := make([]transform.Stage, len(passes))
	for i, pass := range passes {
		stages[i] = transform.Stage{Name: pass.Name(), Run: pass.Transform}
	}
	return stages
}

func PreStages(passes []ChunkPass) []transform.Stage {
	stages := make([]transform.Stage, len(passes))
	for i, pass := range passes {
		stages[i] = transform.Stage{Name: pass.Name(), Run: pass.Pre}
	}
	return stages
}

func PostStages(passes []ChunkPass) []transform.Stage {
	stages := make([]transform.Stage, len(passes))
	for i, pass := range passes {
		stages[i] = transform.Stage{Name: pass.Name(), Run: pass.Post}
	}
	return stages
}

func Externs(passes []ChunkPass) []string {
	var externs []string
	for _, pass := range passes {
		if extern, ok := pass.Extern(); ok {
			externs = append(externs, extern)
		}
	}
	return externs
}
