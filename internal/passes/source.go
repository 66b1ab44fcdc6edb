package passes

import (
	"context"

	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
	"github.com/evanw/esclosure/internal/surface"
)

// ImportSource renames every imported binding after the module it comes
// from, then renames the references to those bindings
type ImportSource struct {
	deps *Deps
}

func (p *ImportSource) Name() string { return "ImportSource" }

func (p *ImportSource) Transform(ctx context.Context, source logger.Source) (patch.Result, error) {
	tree, err := p.deps.Cache.Parse(ctx, source)
	if err != nil {
		return patch.Result{}, err
	}

	registry := p.deps.Registry
	for _, imp := range surface.Imports(tree) {
		sourceID := registry.SourceID(p.deps.resolve(ctx, imp.Source, source.KeyPath))
		set := imp.Specifiers

		var names []string
		if set.Default != nil {
			names = append(names, *set.Default)
		}
		for _, binding := range set.Specific {
			if binding.Imported != "" {
				names = append(names, binding.Imported)
			}
			names = append(names, binding.Local)
		}
		names = append(names, set.Local...)

		for _, name := range names {
			if _, err := registry.Mangle(name, sourceID); err != nil {
				return patch.Result{}, err
			}
		}
	}

	return patch.Apply(source, registry.Rewrite(tree))
}

// ExportSource renames every exported binding after the module that
// declares it. Re-exports are named after the module they come from.
type ExportSource struct {
	deps *Deps
}

func (p *ExportSource) Name() string { return "ExportSource" }

func (p *ExportSource) Transform(ctx context.Context, source logger.Source) (patch.Result, error) {
	tree, err := p.deps.Cache.Parse(ctx, source)
	if err != nil {
		return patch.Result{}, err
	}

	details, err := surface.ExportDetails(tree, &source, nil)
	if err != nil {
		return patch.Result{}, err
	}

	registry := p.deps.Registry
	for _, detail := range details {
		path := source.KeyPath
		if detail.Source != nil {
			path = p.deps.resolve(ctx, *detail.Source, source.KeyPath)
		}
		sourceID := registry.SourceID(path)
		if _, err := registry.Mangle(detail.Exported, sourceID); err != nil {
			return patch.Result{}, err
		}
		if _, err := registry.Mangle(detail.Local, sourceID); err != nil {
			return patch.Result{}, err
		}
	}

	return patch.Apply(source, registry.Rewrite(tree))
}
