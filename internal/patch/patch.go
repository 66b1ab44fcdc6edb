package patch

// A pass never mutates the text it was given. It describes its rewrite as a
// list of edits against that snapshot, and "Apply" produces the next snapshot
// along with a source map fragment from the new text back to the old one.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/sourcemap"
)

type Edit struct {
	Range logger.Range
	Text  string
}

func Replace(r logger.Range, text string) Edit {
	return Edit{Range: r, Text: text}
}

func Remove(r logger.Range) Edit {
	return Edit{Range: r}
}

func Insert(offset int32, text string) Edit {
	return Edit{Range: logger.Range{Loc: logger.Loc{Start: offset}}, Text: text}
}

func Prepend(text string) Edit {
	return Insert(0, text)
}

func Append(source *logger.Source, text string) Edit {
	return Insert(int32(len(source.Contents)), text)
}

type Result struct {
	Text string
	Map  *sourcemap.SourceMap
}

// Unchanged is the result of a pass that had nothing to do.
func Unchanged(source logger.Source) Result {
	sm := sourcemap.Identity(source.Contents)
	sm.Sources = []string{source.KeyPath}
	return Result{Text: source.Contents, Map: sm}
}

type OverlapError struct {
	KeyPath string
	First   logger.Range
	Second  logger.Range
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping edits in %s: [%d, %d) and [%d, %d)",
		e.KeyPath, e.First.Loc.Start, e.First.End(), e.Second.Loc.Start, e.Second.End())
}

type OutOfRangeError struct {
	KeyPath string
	Range   logger.Range
	Length  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("edit [%d, %d) is outside of %s (length %d)",
		e.Range.Loc.Start, e.Range.End(), e.KeyPath, e.Length)
}

func Apply(source logger.Source, edits []Edit) (Result, error) {
	contents := source.Contents
	n := int32(len(contents))

	for _, edit := range edits {
		if edit.Range.Loc.Start < 0 || edit.Range.Len < 0 || edit.Range.End() > n {
			return Result{}, &OutOfRangeError{KeyPath: source.KeyPath, Range: edit.Range, Length: len(contents)}
		}
	}

	// Inserts come before a replacement that starts at the same offset so
	// that they are never swallowed by it
	sorted := append([]Edit{}, edits...)
	sort.SliceStable(sorted, func(i int, j int) bool {
		a, b := sorted[i].Range, sorted[j].Range
		if a.Loc.Start != b.Loc.Start {
			return a.Loc.Start < b.Loc.Start
		}
		return a.Len == 0 && b.Len != 0
	})

	var last logger.Range
	hasLast := false
	for _, edit := range sorted {
		if hasLast && edit.Range.Loc.Start < last.End() {
			return Result{}, &OverlapError{KeyPath: source.KeyPath, First: last, Second: edit.Range}
		}
		if edit.Range.Len > 0 {
			last = edit.Range
			hasLast = true
		}
	}

	b := builder{contents: contents}
	for _, edit := range sorted {
		b.unchanged(edit.Range.Loc.Start)
		b.replacement(edit)
	}
	b.unchanged(n)

	return Result{
		Text: b.text.String(),
		Map: &sourcemap.SourceMap{
			Sources:  []string{source.KeyPath},
			Mappings: b.mappings,
		},
	}, nil
}

type builder struct {
	contents  string
	text      strings.Builder
	mappings  []sourcemap.Mapping
	cursor    int32
	generated sourcemap.LineColumnOffset
	original  sourcemap.LineColumnOffset
}

func (b *builder) addMapping() {
	mapping := sourcemap.Mapping{
		GeneratedLine:   int32(b.generated.Lines),
		GeneratedColumn: int32(b.generated.Columns),
		OriginalLine:    int32(b.original.Lines),
		OriginalColumn:  int32(b.original.Columns),
	}

	// A later mapping at the same generated position wins
	if last := len(b.mappings) - 1; last >= 0 &&
		b.mappings[last].GeneratedLine == mapping.GeneratedLine &&
		b.mappings[last].GeneratedColumn == mapping.GeneratedColumn {
		b.mappings[last] = mapping
		return
	}
	b.mappings = append(b.mappings, mapping)
}

// Copies the original text up to "end". Every line of the copied run starts
// with a mapping.
func (b *builder) unchanged(end int32) {
	if b.cursor >= end {
		return
	}
	run := b.contents[b.cursor:end]
	b.addMapping()

	for len(run) > 0 {
		lineEnd := strings.IndexAny(run, "\r\n")
		if lineEnd == -1 {
			b.advance(run)
			break
		}
		if run[lineEnd] == '\r' && lineEnd+1 < len(run) && run[lineEnd+1] == '\n' {
			lineEnd++
		}
		b.advance(run[:lineEnd+1])
		run = run[lineEnd+1:]
		if len(run) > 0 {
			b.addMapping()
		}
	}

	b.cursor = end
}

func (b *builder) advance(text string) {
	b.text.WriteString(text)
	b.generated.AdvanceString(text)
	b.original.AdvanceString(text)
}

func (b *builder) replacement(edit Edit) {
	if edit.Text != "" {
		b.addMapping()
		b.text.WriteString(edit.Text)
		b.generated.AdvanceString(edit.Text)
	}
	if edit.Range.Len > 0 {
		b.original.AdvanceString(b.contents[edit.Range.Loc.Start:edit.Range.End()])
		b.cursor = edit.Range.End()
	}
}
