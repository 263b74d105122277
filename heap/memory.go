package heap

import (
	"bytes"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/objrt"
	"github.com/wippyai/objrt/errors"
)

var _ objrt.Memory = (*Memory)(nil)
var _ objrt.MemorySizer = (*Memory)(nil)

// Memory adapts a wazero api.Memory to objrt.Memory.
type Memory struct {
	mem api.Memory
}

// WrapMemory wraps a wazero memory. It returns nil for a nil memory.
func WrapMemory(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{mem: mem}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// Grow adds delta pages and reports whether the memory could grow.
func (m *Memory) Grow(delta uint32) bool {
	_, ok := m.mem.Grow(delta)
	return ok
}

// Read returns a view of length bytes at offset. The view is invalidated
// by the next Grow; copy it before allocating.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseHeap, offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseHeap, offset, uint32(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseHeap, offset, 1)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseHeap, offset, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseHeap, offset, 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Memory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseHeap, offset, 1)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseHeap, offset, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Memory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseHeap, offset, 8)
	}
	return nil
}

// ReadCString returns a copy of the bytes from offset up to the first NUL.
// A string running off the end of memory is an out of bounds error.
func (m *Memory) ReadCString(offset uint32) ([]byte, error) {
	size := m.mem.Size()
	if offset >= size {
		return nil, errors.OutOfBounds(errors.PhaseHeap, offset, 1)
	}
	tail, _ := m.mem.Read(offset, size-offset)
	n := bytes.IndexByte(tail, 0)
	if n < 0 {
		return nil, errors.New(errors.PhaseHeap, errors.KindOutOfBounds).
			Detail("unterminated string at offset %d", offset).
			Value(offset).
			Build()
	}
	out := make([]byte, n)
	copy(out, tail[:n])
	return out, nil
}

// zero clears length bytes at offset.
func (m *Memory) zero(offset, length uint32) error {
	view, ok := m.mem.Read(offset, length)
	if !ok {
		return errors.OutOfBounds(errors.PhaseHeap, offset, length)
	}
	clear(view)
	return nil
}
