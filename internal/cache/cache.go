package cache

import (
	"context"
	"sync/atomic"

	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/js_parser"
	"github.com/evanw/esclosure/internal/logger"
	lru "github.com/hashicorp/golang-lru/v2"
)

// This is a cache of parsed snapshots shared by every pass of every unit.
// Passes often parse the same text: the source passes each parse the module,
// and a chunk pass parses whatever the previous pass left unchanged.
//
//   - The cached ASTs must be considered immutable. There is no way to
//     enforce this in Go, but please be disciplined about this. Passes only
//     read the tree and describe their rewrite as a list of edits.
//
//   - The key is a hash of the text alone. Ranges in the tree are relative to
//     that text, so two units with identical contents share an entry.
//
//   - Parse errors are not cached since they mention the unit's path.
type ParseCache struct {
	entries *lru.Cache[string, *js_ast.AST]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

const DefaultParseCacheSize = 256

func NewParseCache(size int) (*ParseCache, error) {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	entries, err := lru.New[string, *js_ast.AST](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{entries: entries}, nil
}

// A nil cache parses every time
func (c *ParseCache) Parse(ctx context.Context, source logger.Source) (*js_ast.AST, error) {
	if c == nil {
		return js_parser.Parse(ctx, source)
	}

	key := helpers.HashString(source.Contents)
	if tree, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return tree, nil
	}

	c.misses.Add(1)
	tree, err := js_parser.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, tree)
	return tree, nil
}

type Stats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

func (c *ParseCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Len: c.entries.Len()}
}
