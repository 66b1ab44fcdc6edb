package passes

import "sync"

// Memory holds what a pass removes from the text and a later pass puts
// back. Removed hashbangs are keyed by the module or chunk they came from.
type Memory struct {
	mutex     sync.Mutex
	hashbangs map[string]string
}

func NewMemory() *Memory {
	return &Memory{hashbangs: make(map[string]string)}
}

func (m *Memory) RememberHashbang(key string, hashbang string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.hashbangs[key] = hashbang
}

func (m *Memory) Hashbang(key string) (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	hashbang, ok := m.hashbangs[key]
	return hashbang, ok
}
