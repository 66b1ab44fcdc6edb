package sourcemap

import "sort"

// Compose chains maps produced by consecutive rewrites of the same text. The
// first map describes snapshot 1 in terms of snapshot 0, the second snapshot 2
// in terms of snapshot 1, and so on. The result describes the last snapshot in
// terms of snapshot 0. If any map is missing the lineage is lost and the
// result is nil.
func Compose(maps ...*SourceMap) *SourceMap {
	if len(maps) == 0 {
		return nil
	}
	for _, sm := range maps {
		if sm == nil {
			return nil
		}
	}
	result := maps[0]
	for _, outer := range maps[1:] {
		result = composePair(result, outer)
	}
	return result
}

// The breakpoints of both layers are kept. Each outer segment is traced
// through the inner map, and every inner breakpoint that falls inside the
// segment starts a new segment of its own.
func composePair(inner *SourceMap, outer *SourceMap) *SourceMap {
	result := &SourceMap{
		Sources:        inner.Sources,
		SourcesContent: inner.SourcesContent,
		Mappings:       make([]Mapping, 0, len(outer.Mappings)),
	}

	for i, b := range outer.Mappings {
		width := int32(-1)
		if i+1 < len(outer.Mappings) && outer.Mappings[i+1].GeneratedLine == b.GeneratedLine {
			width = outer.Mappings[i+1].GeneratedColumn - b.GeneratedColumn
			if width == 0 {
				continue
			}
		}

		line := inner.mappingsForLine(b.OriginalLine)
		first := sort.Search(len(line), func(k int) bool {
			return line[k].GeneratedColumn > b.OriginalColumn
		})

		if first > 0 {
			a := line[first-1]
			result.Mappings = append(result.Mappings, Mapping{
				GeneratedLine:   b.GeneratedLine,
				GeneratedColumn: b.GeneratedColumn,
				SourceIndex:     a.SourceIndex,
				OriginalLine:    a.OriginalLine,
				OriginalColumn:  a.OriginalColumn + (b.OriginalColumn - a.GeneratedColumn),
			})
		}

		for _, a := range line[first:] {
			delta := a.GeneratedColumn - b.OriginalColumn
			if width >= 0 && delta >= width {
				break
			}
			result.Mappings = append(result.Mappings, Mapping{
				GeneratedLine:   b.GeneratedLine,
				GeneratedColumn: b.GeneratedColumn + delta,
				SourceIndex:     a.SourceIndex,
				OriginalLine:    a.OriginalLine,
				OriginalColumn:  a.OriginalColumn,
			})
		}
	}

	return result
}

func (sm *SourceMap) mappingsForLine(line int32) []Mapping {
	mappings := sm.Mappings
	start := sort.Search(len(mappings), func(i int) bool {
		return mappings[i].GeneratedLine >= line
	})
	end := start
	for end < len(mappings) && mappings[end].GeneratedLine == line {
		end++
	}
	return mappings[start:end]
}
