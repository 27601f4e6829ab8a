// Package nvs is a small namespaced key/value store in the style of flash
// NVS: typed entries, staged writes, explicit Commit.
package nvs

import (
	"encoding/binary"
	"errors"
)

type Mode uint8

const (
	ReadOnly Mode = iota
	ReadWrite
)

var (
	ErrNotFound     = errors.New("nvs: not found")
	ErrTypeMismatch = errors.New("nvs: type mismatch")
	ErrReadOnly     = errors.New("nvs: read only")
	ErrClosed       = errors.New("nvs: handle closed")
)

// Store opens namespaces. Opening a namespace that has never been written
// in ReadOnly mode fails with ErrNotFound.
type Store interface {
	OpenNamespace(name string, mode Mode) (Handle, error)
}

// Handle is one open namespace. Writes become visible to other handles
// only after Commit.
type Handle interface {
	GetBlob(key string) ([]byte, error)
	SetBlob(key string, v []byte) error
	GetU8(key string) (uint8, error)
	SetU8(key string, v uint8) error
	GetU32(key string) (uint32, error)
	SetU32(key string, v uint32) error
	Commit() error
	Close() error
}

type kind uint8

const (
	kindBlob kind = iota + 1
	kindU8
	kindU32
)

type entry struct {
	k    kind
	data []byte
}

func u8Entry(v uint8) entry { return entry{k: kindU8, data: []byte{v}} }

func u32Entry(v uint32) entry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return entry{k: kindU32, data: b}
}

func blobEntry(v []byte) entry {
	return entry{k: kindBlob, data: append([]byte(nil), v...)}
}

func (e entry) blob() ([]byte, error) {
	if e.k != kindBlob {
		return nil, ErrTypeMismatch
	}
	return append([]byte(nil), e.data...), nil
}

func (e entry) u8() (uint8, error) {
	if e.k != kindU8 || len(e.data) != 1 {
		return 0, ErrTypeMismatch
	}
	return e.data[0], nil
}

func (e entry) u32() (uint32, error) {
	if e.k != kindU32 || len(e.data) != 4 {
		return 0, ErrTypeMismatch
	}
	return binary.LittleEndian.Uint32(e.data), nil
}

// staged holds uncommitted writes shared by both backends. lookup falls
// back to the committed view.
type staged struct {
	mode    Mode
	pending map[string]entry
	closed  bool
	lookup  func(key string) (entry, bool, error)
}

func (s *staged) get(key string) (entry, error) {
	if s.closed {
		return entry{}, ErrClosed
	}
	if e, ok := s.pending[key]; ok {
		return e, nil
	}
	e, ok, err := s.lookup(key)
	if err != nil {
		return entry{}, err
	}
	if !ok {
		return entry{}, ErrNotFound
	}
	return e, nil
}

func (s *staged) set(key string, e entry) error {
	if s.closed {
		return ErrClosed
	}
	if s.mode != ReadWrite {
		return ErrReadOnly
	}
	if s.pending == nil {
		s.pending = make(map[string]entry)
	}
	s.pending[key] = e
	return nil
}

func (s *staged) GetBlob(key string) ([]byte, error) {
	e, err := s.get(key)
	if err != nil {
		return nil, err
	}
	return e.blob()
}

func (s *staged) GetU8(key string) (uint8, error) {
	e, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return e.u8()
}

func (s *staged) GetU32(key string) (uint32, error) {
	e, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return e.u32()
}

func (s *staged) SetBlob(key string, v []byte) error { return s.set(key, blobEntry(v)) }
func (s *staged) SetU8(key string, v uint8) error    { return s.set(key, u8Entry(v)) }
func (s *staged) SetU32(key string, v uint32) error  { return s.set(key, u32Entry(v)) }
