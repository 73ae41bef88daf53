package medium

import "sync"

// Memory is an in-process Medium. Keys enumerate in insertion order.
// A zero QuotaBytes means unlimited.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	order []string
	quota int

	// FailSets forces every Set to return a plain error, for tests that
	// need an unavailable medium.
	FailSets bool
}

// NewMemory creates an empty in-memory medium.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// NewMemoryWithQuota creates an in-memory medium that rejects writes
// once the sum of key+value byte lengths would exceed quotaBytes.
func NewMemoryWithQuota(quotaBytes int) *Memory {
	m := NewMemory()
	m.quota = quotaBytes
	return m
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSets {
		return errDisabled
	}
	delta := len(key) + len(value)
	if old, ok := m.data[key]; ok {
		delta -= len(key) + len(old)
	}
	if m.quota > 0 && m.usedLocked()+delta > m.quota {
		return ErrQuotaExceeded
	}
	if _, ok := m.data[key]; !ok {
		m.order = append(m.order, key)
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return nil
	}
	delete(m.data, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *Memory) Key(i int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.order) {
		return ""
	}
	return m.order[i]
}

// usedLocked sums key+value byte lengths. Caller holds mu.
func (m *Memory) usedLocked() int {
	used := 0
	for k, v := range m.data {
		used += len(k) + len(v)
	}
	return used
}
