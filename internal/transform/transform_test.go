package transform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
	"github.com/evanw/esclosure/internal/sourcemap"
	"github.com/evanw/esclosure/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replaceStage(name string, old string, new string) transform.Stage {
	return transform.Stage{Name: name, Run: func(ctx context.Context, source logger.Source) (patch.Result, error) {
		index := strings.Index(source.Contents, old)
		if index < 0 {
			return patch.Unchanged(source), nil
		}
		return patch.Apply(source, []patch.Edit{
			patch.Replace(logger.RangeBetween(int32(index), int32(index+len(old))), new),
		})
	}}
}

func TestLifecycleThreadsTextAndComposesMaps(t *testing.T) {
	sink := &transform.MemorySink{}
	runner := transform.Runner{Sink: sink}

	out, err := runner.SourceLifecycle(context.Background(), "a.js", "let a = 1;\nlet b = 2;\n", []transform.Stage{
		replaceStage("first", "a", "alpha"),
		replaceStage("second", "b", "beta"),
	})
	require.NoError(t, err)
	assert.Equal(t, "let alpha = 1;\nlet beta = 2;\n", out.Code)

	assert.Equal(t, []transform.Step{
		{Name: transform.StepBefore, Text: "let a = 1;\nlet b = 2;\n"},
		{Name: "first", Text: "let alpha = 1;\nlet b = 2;\n"},
		{Name: "second", Text: "let alpha = 1;\nlet beta = 2;\n"},
		{Name: transform.StepAfter, Text: "let alpha = 1;\nlet beta = 2;\n"},
	}, out.Steps)

	// "=" on the second line moved from column 6 to column 9
	pos, ok := out.Map.Trace(1, 9)
	require.True(t, ok)
	assert.Equal(t, sourcemap.OriginalPosition{Line: 1, Column: 6}, pos)

	steps, unit, ok := sink.Steps("a.js", transform.PhaseSource)
	require.True(t, ok)
	assert.Equal(t, out.Steps, steps)
	assert.Equal(t, transform.StateCompleted, unit.State)
}

func TestLifecycleWithoutPasses(t *testing.T) {
	runner := transform.Runner{}
	out, err := runner.ChunkLifecycle(context.Background(), "chunk.js", transform.PhasePost, "x;\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "x;\n", out.Code)
	require.NotNil(t, out.Map)
	assert.Equal(t, []string{"chunk.js"}, out.Map.Sources)
}

func TestLifecycleRecordsFailures(t *testing.T) {
	sink := &transform.MemorySink{}
	runner := transform.Runner{Sink: sink}
	failure := errors.New("no good")

	_, err := runner.ChunkLifecycle(context.Background(), "chunk.js", transform.PhasePre, "x", []transform.Stage{
		replaceStage("first", "x", "y"),
		{Name: "broken", Run: func(context.Context, logger.Source) (patch.Result, error) {
			return patch.Result{}, failure
		}},
		replaceStage("never", "y", "z"),
	})
	require.ErrorIs(t, err, failure)
	assert.Equal(t, "no good", err.Error())

	var passErr *transform.PassError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, "broken", passErr.Pass)
	assert.Equal(t, transform.StateFailed, passErr.Unit.State)
	assert.Equal(t, "pre chunk.js: failed", passErr.Unit.String())

	steps, _, ok := sink.Steps("chunk.js", transform.PhasePre)
	require.True(t, ok)
	assert.Equal(t, []transform.Step{
		{Name: transform.StepBefore, Text: "x"},
		{Name: "first", Text: "y"},
		{Name: transform.StepAfter},
	}, steps)
}

func TestLifecycleRecoversPanics(t *testing.T) {
	runner := transform.Runner{}
	_, err := runner.SourceLifecycle(context.Background(), "a.js", "x", []transform.Stage{
		{Name: "panics", Run: func(context.Context, logger.Source) (patch.Result, error) {
			panic("oops")
		}},
	})
	var panicErr *helpers.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "oops", panicErr.Value)
	assert.Equal(t, exitcode.Internal, exitcode.Get(err))
}

func TestLifecycleStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := transform.Runner{}
	_, err := runner.SourceLifecycle(ctx, "a.js", "x", []transform.Stage{replaceStage("first", "x", "y")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLifecycleLogsTiming(t *testing.T) {
	log := logger.NewDeferLog()
	runner := transform.Runner{Log: log, Timing: true}
	_, err := runner.SourceLifecycle(context.Background(), "a.js", "x", []transform.Stage{replaceStage("first", "x", "y")})
	require.NoError(t, err)

	msgs := log.Done()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Timing for source a.js", msgs[0].Text)
	require.Len(t, msgs[0].Notes, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Notes[0], "first: "))
}

func TestUnitString(t *testing.T) {
	unit := transform.Unit{Name: "a.js", Phase: transform.PhasePost, State: transform.StateRunning, Index: 1, Count: 6}
	assert.Equal(t, "post a.js: running (2 of 6)", unit.String())
	unit.State = transform.StatePending
	assert.Equal(t, "post a.js: pending", unit.String())
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	runner := transform.Runner{Sink: transform.DirSink{Dir: dir}}
	_, err := runner.ChunkLifecycle(context.Background(), "out/chunk.js", transform.PhasePost, "x", []transform.Stage{replaceStage("first", "x", "y")})
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "post-out_chunk.js.log"))
	require.NoError(t, err)
	assert.Equal(t, "// post out/chunk.js: completed\n\n// before\nx\n\n// first\ny\n\n// after\ny\n", string(contents))
}

func TestLogSink(t *testing.T) {
	log := logger.NewDeferLog()
	runner := transform.Runner{Sink: transform.Sinks{transform.LogSink{Log: log}}}
	_, err := runner.SourceLifecycle(context.Background(), "a.js", "x", nil)
	require.NoError(t, err)

	msgs := log.Done()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Transform log for source a.js: completed", msgs[0].Text)
	assert.Equal(t, []string{"before:\nx", "after:\nx"}, msgs[0].Notes)
}
