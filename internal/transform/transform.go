package transform

// Every unit of work (one module in the source phase, one chunk before or
// after compilation) runs its passes strictly in order. Each pass sees an
// immutable snapshot of the text and returns the next snapshot along with a
// source map back to the one it was given. The lifecycle threads the text
// through the passes, composes the maps, and records every intermediate text
// so that a failing unit can be inspected afterward.

import (
	"context"
	"fmt"

	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/internal/patch"
	"github.com/evanw/esclosure/internal/sourcemap"
)

type State uint8

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	panic("Internal error")
}

type Phase uint8

const (
	PhaseSource Phase = iota
	PhasePre
	PhasePost
)

func (p Phase) String() string {
	switch p {
	case PhaseSource:
		return "source"
	case PhasePre:
		return "pre"
	case PhasePost:
		return "post"
	}
	panic("Internal error")
}

type Unit struct {
	Name  string
	Phase Phase
	State State

	// While running, the zero-based index of the current pass
	Index int
	Count int
}

func (u Unit) String() string {
	if u.State == StateRunning {
		return fmt.Sprintf("%s %s: running (%d of %d)", u.Phase, u.Name, u.Index+1, u.Count)
	}
	return fmt.Sprintf("%s %s: %s", u.Phase, u.Name, u.State)
}

// The names of the first and last entries of every transform log
const (
	StepBefore = "before"
	StepAfter  = "after"
)

type Step struct {
	Name string
	Text string
}

type Func func(ctx context.Context, source logger.Source) (patch.Result, error)

type Stage struct {
	Name string
	Run  Func
}

type Output struct {
	Code string

	// Maps "Code" back to the text the lifecycle was given
	Map *sourcemap.SourceMap

	Steps []Step
}

// A failed pass. The message is the message of the underlying error so
// that diagnostics read the same as they would without the lifecycle.
type PassError struct {
	Unit Unit
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return e.Err.Error()
}

func (e *PassError) Unwrap() error {
	return e.Err
}

type Runner struct {
	// Receives the transform log of every unit, successful or not
	Sink DebugSink

	// Pass timings are logged at the verbose level when "Timing" is set
	Log    logger.Log
	Timing bool
}

func (r *Runner) SourceLifecycle(ctx context.Context, id string, code string, stages []Stage) (Output, error) {
	return r.run(ctx, Unit{Name: id, Phase: PhaseSource}, code, stages)
}

func (r *Runner) ChunkLifecycle(ctx context.Context, fileName string, phase Phase, code string, stages []Stage) (Output, error) {
	return r.run(ctx, Unit{Name: fileName, Phase: phase}, code, stages)
}

func (r *Runner) run(ctx context.Context, unit Unit, code string, stages []Stage) (Output, error) {
	var timer *helpers.Timer
	if r.Timing && r.Log.AddMsg != nil {
		timer = &helpers.Timer{}
	}

	unit.Count = len(stages)
	unit.State = StateRunning
	steps := []Step{{Name: StepBefore, Text: code}}
	maps := make([]*sourcemap.SourceMap, 0, len(stages))
	text := code

	for i, stage := range stages {
		unit.Index = i
		if err := ctx.Err(); err != nil {
			return r.fail(unit, stage.Name, steps, err)
		}

		timer.Begin(stage.Name)
		result, err := runStage(ctx, stage, logger.Source{
			KeyPath:    unit.Name,
			PrettyPath: unit.Name,
			Contents:   text,
		})
		timer.End(stage.Name)
		if err != nil {
			return r.fail(unit, stage.Name, steps, err)
		}

		steps = append(steps, Step{Name: stage.Name, Text: result.Text})
		maps = append(maps, result.Map)
		text = result.Text
	}

	unit.State = StateCompleted
	steps = append(steps, Step{Name: StepAfter, Text: text})
	r.record(unit, steps)
	timer.Log(r.Log, fmt.Sprintf("Timing for %s %s", unit.Phase, unit.Name))

	sm := sourcemap.Compose(maps...)
	if len(stages) == 0 {
		sm = patch.Unchanged(logger.Source{KeyPath: unit.Name, Contents: code}).Map
	}
	return Output{Code: text, Map: sm, Steps: steps}, nil
}

func (r *Runner) fail(unit Unit, pass string, steps []Step, err error) (Output, error) {
	unit.State = StateFailed
	steps = append(steps, Step{Name: StepAfter})
	r.record(unit, steps)
	return Output{}, &PassError{Unit: unit, Pass: pass, Err: err}
}

func (r *Runner) record(unit Unit, steps []Step) {
	if r.Sink == nil {
		return
	}
	if err := r.Sink.Record(unit, steps); err != nil && r.Log.AddMsg != nil {
		r.Log.AddWarning(nil, logger.Range{}, fmt.Sprintf("Failed to record the transform log for %s: %s", unit.Name, err.Error()))
	}
}

func runStage(ctx context.Context, stage Stage, source logger.Source) (result patch.Result, err error) {
	defer func() {
		if value := recover(); value != nil {
			err = exitcode.Set(&helpers.PanicError{Value: value, Stack: helpers.PrettyPrintedStack()}, exitcode.Internal)
		}
	}()
	return stage.Run(ctx, source)
}
