package mangle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
)

// A Registry remembers every name that crosses a module boundary together
// with the module it comes from. One registry is created per compilation and
// handed to every pass. All methods are safe for concurrent use.
//
// The four maps only ever grow. Recording the same pair twice is harmless,
// and recording a different mangled value for a known name is a conflict
// that is reported instead of resolved.
type Registry struct {
	mutex         sync.RWMutex
	sourceToID    map[string]string
	idToSource    map[string]string
	nameToMangled map[string]string
	mangledToName map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		sourceToID:    make(map[string]string),
		idToSource:    make(map[string]string),
		nameToMangled: make(map[string]string),
		mangledToName: make(map[string]string),
	}
}

type ConflictError struct {
	Name      string
	Stored    string
	Requested string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Cannot mangle %q to %q because it was already mangled to %q", e.Name, e.Requested, e.Stored)
}

func (e *ConflictError) ExitCode() int {
	return exitcode.Internal
}

// The id is a valid identifier suffix and only depends on the path, so it
// is also stable across compilations.
func createID(path string) string {
	return "f_" + helpers.HashString(path)
}

func mangledValue(name string, sourceID string) string {
	return name + "_" + sourceID
}

func (r *Registry) SourceID(path string) string {
	r.mutex.RLock()
	id, ok := r.sourceToID[path]
	r.mutex.RUnlock()
	if ok {
		return id
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if id, ok := r.sourceToID[path]; ok {
		return id
	}
	id = createID(path)
	r.sourceToID[path] = id
	r.idToSource[id] = path
	return id
}

// Mangle records "name" as coming from the module with "sourceID" and
// returns its mangled spelling. Names that can never be written as a binding
// (such as "default") are returned unchanged and not recorded.
func (r *Registry) Mangle(name string, sourceID string) (string, error) {
	if !js_ast.IsValidBindingName(name) {
		return name, nil
	}
	mangled := mangledValue(name, sourceID)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if stored, ok := r.nameToMangled[name]; ok && stored != mangled {
		return "", &ConflictError{Name: name, Stored: stored, Requested: mangled}
	}
	if stored, ok := r.mangledToName[mangled]; ok && stored != name {
		return "", &ConflictError{Name: name, Stored: stored, Requested: mangled}
	}
	r.nameToMangled[name] = mangled
	r.mangledToName[mangled] = name
	return mangled, nil
}

func (r *Registry) GetMangledName(name string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	mangled, ok := r.nameToMangled[name]
	return mangled, ok
}

func (r *Registry) GetName(mangled string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	name, ok := r.mangledToName[mangled]
	return name, ok
}

func (r *Registry) GetSource(sourceID string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	path, ok := r.idToSource[sourceID]
	return path, ok
}

// Names returns the registered original names in sorted order
func (r *Registry) Names() []string {
	r.mutex.RLock()
	names := make([]string, 0, len(r.nameToMangled))
	for name := range r.nameToMangled {
		names = append(names, name)
	}
	r.mutex.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) snapshot() map[string]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make(map[string]string, len(r.nameToMangled))
	for name, mangled := range r.nameToMangled {
		names[name] = mangled
	}
	return names
}

func (r *Registry) Debug(log logger.Log) {
	r.mutex.RLock()
	var notes []string
	for _, path := range sortedKeys(r.sourceToID) {
		notes = append(notes, fmt.Sprintf("source %s -> %s", path, r.sourceToID[path]))
	}
	for _, name := range sortedKeys(r.nameToMangled) {
		notes = append(notes, fmt.Sprintf("name %s -> %s", name, r.nameToMangled[name]))
	}
	text := fmt.Sprintf("Mangle state: %d sources, %d names", len(r.sourceToID), len(r.nameToMangled))
	r.mutex.RUnlock()

	log.AddVerbose(text, notes...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
