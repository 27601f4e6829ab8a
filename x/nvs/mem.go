package nvs

import "sync"

// Mem is a RAM backed Store. Useful on hosts and in tests; contents are
// lost with the process.
type Mem struct {
	mu    sync.Mutex
	ns    map[string]map[string]entry
	fault error
}

func NewMem() *Mem { return &Mem{ns: make(map[string]map[string]entry)} }

// SetFault makes every subsequent Commit fail with err (nil clears it).
func (m *Mem) SetFault(err error) {
	m.mu.Lock()
	m.fault = err
	m.mu.Unlock()
}

func (m *Mem) OpenNamespace(name string, mode Mode) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ns[name]; !ok {
		if mode == ReadOnly {
			return nil, ErrNotFound
		}
		m.ns[name] = make(map[string]entry)
	}
	h := &memHandle{m: m, name: name}
	h.staged = staged{mode: mode, lookup: h.committed}
	return h, nil
}

type memHandle struct {
	staged
	m    *Mem
	name string
}

func (h *memHandle) committed(key string) (entry, bool, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	e, ok := h.m.ns[h.name][key]
	return e, ok, nil
}

func (h *memHandle) Commit() error {
	if h.closed {
		return ErrClosed
	}
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if h.m.fault != nil {
		return h.m.fault
	}
	ns := h.m.ns[h.name]
	for k, e := range h.pending {
		ns[k] = e
	}
	h.pending = nil
	return nil
}

func (h *memHandle) Close() error {
	h.closed = true
	h.pending = nil
	return nil
}
