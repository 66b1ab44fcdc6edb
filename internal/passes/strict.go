package passes

import (
	"context"

	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
)

// ES modules are always strict, so the directive the bundler emits is
// redundant there. Other formats keep it unless told otherwise.
type StrictChunk struct {
	noopChunk
	deps   *Deps
	output config.OutputOptions
	plugin config.PluginOptions
}

func (p *StrictChunk) Name() string { return "StrictChunk" }

func (p *StrictChunk) Pre(ctx context.Context, source logger.Source) (patch.Result, error) {
	if !p.output.IsESMFormat() && !p.plugin.RemoveStrictDirective {
		return patch.Unchanged(source), nil
	}

	tree, err := p.deps.Cache.Parse(ctx, source)
	if err != nil {
		return patch.Result{}, err
	}
	if len(tree.Stmts) == 0 {
		return patch.Unchanged(source), nil
	}

	first := tree.Stmts[0]
	expr, ok := first.Data.(*js_ast.SExpr)
	if !ok {
		return patch.Unchanged(source), nil
	}
	if value, ok := js_ast.LiteralName(expr.Value); !ok || value != "use strict" {
		return patch.Unchanged(source), nil
	}

	// Take the line break with it so the chunk doesn't start with a blank line
	r := first.Range
	if end := int(r.End()); end < len(source.Contents) && source.Contents[end] == '\n' {
		r.Len++
	}
	return patch.Apply(source, []patch.Edit{patch.Remove(r)})
}
