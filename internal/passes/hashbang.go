package passes

import (
	"context"
	"strings"

	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
)

// Returns the "#!" line without its line terminator and the range to
// remove, which includes the terminator
func hashbangLine(contents string) (string, logger.Range, bool) {
	if !strings.HasPrefix(contents, "#!") {
		return "", logger.Range{}, false
	}
	end := strings.IndexAny(contents, "\r\n")
	if end < 0 {
		return contents, logger.RangeBetween(0, int32(len(contents))), true
	}
	removed := end + 1
	if contents[end] == '\r' && removed < len(contents) && contents[removed] == '\n' {
		removed++
	}
	return contents[:end], logger.RangeBetween(0, int32(removed)), true
}

// The compiler rejects a "#!" line, so it is taken out of the module and
// restored on the chunk built for it
type HashbangSource struct {
	deps *Deps
}

func (p *HashbangSource) Name() string { return "HashbangSource" }

func (p *HashbangSource) Transform(ctx context.Context, source logger.Source) (patch.Result, error) {
	line, r, ok := hashbangLine(source.Contents)
	if !ok {
		return patch.Unchanged(source), nil
	}
	p.deps.Memory.RememberHashbang(source.KeyPath, line)
	return patch.Apply(source, []patch.Edit{patch.Remove(r)})
}

type HashbangChunk struct {
	noopChunk
	deps  *Deps
	chunk Chunk
}

func (p *HashbangChunk) Name() string { return "HashbangChunk" }

func (p *HashbangChunk) Pre(ctx context.Context, source logger.Source) (patch.Result, error) {
	line, r, ok := hashbangLine(source.Contents)
	if !ok {
		return patch.Unchanged(source), nil
	}
	p.deps.Memory.RememberHashbang(p.chunk.FileName, line)
	return patch.Apply(source, []patch.Edit{patch.Remove(r)})
}

func (p *HashbangChunk) Post(ctx context.Context, source logger.Source) (patch.Result, error) {
	line, ok := p.deps.Memory.Hashbang(p.chunk.FileName)
	if !ok && p.chunk.FacadeModuleID != "" {
		line, ok = p.deps.Memory.Hashbang(p.chunk.FacadeModuleID)
	}
	if !ok || strings.HasPrefix(source.Contents, "#!") {
		return patch.Unchanged(source), nil
	}
	return patch.Apply(source, []patch.Edit{patch.Prepend(line + "\n")})
}
