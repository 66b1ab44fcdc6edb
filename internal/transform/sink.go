package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/logger"
)

type DebugSink interface {
	Record(unit Unit, steps []Step) error
}

// DirSink writes one file per unit and phase into "Dir". A unit that runs
// again overwrites its previous file.
type DirSink struct {
	Dir string
}

func (s DirSink) Record(unit Unit, steps []Step) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, DebugFileName(unit)), FormatSteps(unit, steps), 0644)
}

func DebugFileName(unit Unit) string {
	sb := strings.Builder{}
	for _, c := range unit.Name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '_' {
			sb.WriteRune(c)
		} else {
			sb.WriteByte('_')
		}
	}
	return fmt.Sprintf("%s-%s.log", unit.Phase, sb.String())
}

func FormatSteps(unit Unit, steps []Step) []byte {
	j := helpers.Joiner{}
	j.AddString(fmt.Sprintf("// %s\n", unit))
	for _, step := range steps {
		j.AddString(fmt.Sprintf("\n// %s\n", step.Name))
		j.AddString(step.Text)
		j.EnsureNewlineAtEnd()
	}
	return j.Done()
}

// LogSink prints every transform log as a verbose message
type LogSink struct {
	Log logger.Log
}

func (s LogSink) Record(unit Unit, steps []Step) error {
	notes := make([]string, 0, len(steps))
	for _, step := range steps {
		notes = append(notes, step.Name+":\n"+step.Text)
	}
	s.Log.AddVerbose(fmt.Sprintf("Transform log for %s", unit), notes...)
	return nil
}

// MemorySink keeps every transform log, keyed by unit name and phase
type MemorySink struct {
	mutex sync.Mutex
	logs  map[string][]Step
	units map[string]Unit
}

func memoryKey(name string, phase Phase) string {
	return phase.String() + ":" + name
}

func (s *MemorySink) Record(unit Unit, steps []Step) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.logs == nil {
		s.logs = make(map[string][]Step)
		s.units = make(map[string]Unit)
	}
	key := memoryKey(unit.Name, unit.Phase)
	s.logs[key] = append([]Step{}, steps...)
	s.units[key] = unit
	return nil
}

func (s *MemorySink) Steps(name string, phase Phase) ([]Step, Unit, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	key := memoryKey(name, phase)
	steps, ok := s.logs[key]
	return steps, s.units[key], ok
}

// Sinks records into every sink and returns the first error
type Sinks []DebugSink

func (s Sinks) Record(unit Unit, steps []Step) error {
	var first error
	for _, sink := range s {
		if err := sink.Record(unit, steps); err != nil && first == nil {
			first = err
		}
	}
	return first
}
