package passes

import (
	"context"

	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
)

// ASIChunk drops the semicolon that ends the chunk. Trailing empty
// statements go first, then the terminator of the last real statement.
// Running it on its own output changes nothing.
type ASIChunk struct {
	noopChunk
	deps *Deps
}

func (p *ASIChunk) Name() string { return "ASIChunk" }

func (p *ASIChunk) Post(ctx context.Context, source logger.Source) (patch.Result, error) {
	tree, err := p.deps.Cache.Parse(ctx, source)
	if err != nil {
		return patch.Result{}, err
	}

	var edits []patch.Edit
	stmts := tree.Stmts
	for len(stmts) > 0 && js_ast.IsEmpty(stmts[len(stmts)-1]) {
		edits = append(edits, patch.Remove(stmts[len(stmts)-1].Range))
		stmts = stmts[:len(stmts)-1]
	}

	if len(stmts) > 0 {
		if last := stmts[len(stmts)-1]; last.Terminated {
			end := last.Range.End()
			edits = append(edits, patch.Remove(logger.RangeBetween(end-1, end)))
		}
	}

	if len(edits) == 0 {
		return patch.Unchanged(source), nil
	}
	return patch.Apply(source, edits)
}
