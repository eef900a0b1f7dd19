// Package memory implements the VM's flat, byte-addressable memory
// region: a single growable-at-construction buffer with a downward
// growing stack at its top, bounds-checked sized accessors, and the
// ability to swap its backing storage for a shared-memory-style
// region when a debugger is attached.
package memory

import (
	"encoding/binary"

	"rvm/catalog"
)

// Address is a VM memory address. The ABI commits to 8-byte addresses.
type Address = uint64

// Memory is a flat byte buffer with program-order bounds checking.
// It has a single writer at any moment; the debug channel's shared
// view is layered on top by the debugchan package, not here.
type Memory struct {
	buf []byte
}

// New allocates a zeroed memory region of the given size in bytes.
func New(size int) *Memory {
	return &Memory{buf: make([]byte, size)}
}

// Size returns the memory's total addressable byte count.
func (m *Memory) Size() int { return len(m.buf) }

// Bytes exposes the raw backing buffer. Callers that replace it must
// use SetBacking so the size accounting stays consistent.
func (m *Memory) Bytes() []byte { return m.buf }

// SetBacking replaces the memory's backing storage, e.g. with a
// shared-memory region of equal size supplied by the debug channel.
func (m *Memory) SetBacking(buf []byte) { m.buf = buf }

func inBounds(m *Memory, addr Address, size int) bool {
	if size < 0 {
		return false
	}
	end := addr + uint64(size)
	return end >= addr && end <= uint64(len(m.buf))
}

// ReadByte reads a single byte at addr.
func (m *Memory) ReadByte(addr Address) (byte, catalog.ErrorKind) {
	if !inBounds(m, addr, 1) {
		return 0, catalog.OutOfBounds
	}
	return m.buf[addr], catalog.NoError
}

// WriteByte writes a single byte at addr.
func (m *Memory) WriteByte(addr Address, v byte) catalog.ErrorKind {
	if !inBounds(m, addr, 1) {
		return catalog.OutOfBounds
	}
	m.buf[addr] = v
	return catalog.NoError
}

// ReadSized reads size bytes (1, 2, 4 or 8) at addr and returns them
// as a zero-extended little-endian uint64.
func (m *Memory) ReadSized(addr Address, size uint8) (uint64, catalog.ErrorKind) {
	if !inBounds(m, addr, int(size)) {
		return 0, catalog.OutOfBounds
	}
	var tmp [8]byte
	copy(tmp[:size], m.buf[addr:addr+uint64(size)])
	return binary.LittleEndian.Uint64(tmp[:]), catalog.NoError
}

// WriteSized truncates value to size bytes and writes it little-endian
// at addr.
func (m *Memory) WriteSized(addr Address, size uint8, value uint64) catalog.ErrorKind {
	if !inBounds(m, addr, int(size)) {
		return catalog.OutOfBounds
	}
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], value)
	copy(m.buf[addr:addr+uint64(size)], tmp[:size])
	return catalog.NoError
}

// ReadBytes copies n bytes starting at addr into a fresh slice.
func (m *Memory) ReadBytes(addr Address, n int) ([]byte, catalog.ErrorKind) {
	if !inBounds(m, addr, n) {
		return nil, catalog.OutOfBounds
	}
	out := make([]byte, n)
	copy(out, m.buf[addr:addr+uint64(n)])
	return out, catalog.NoError
}

// WriteBytes writes data verbatim starting at addr.
func (m *Memory) WriteBytes(addr Address, data []byte) catalog.ErrorKind {
	if !inBounds(m, addr, len(data)) {
		return catalog.OutOfBounds
	}
	copy(m.buf[addr:addr+uint64(len(data))], data)
	return catalog.NoError
}

// CopyBlock copies n bytes from src to dst, correctly handling
// overlapping regions (as Go's builtin copy already does for slices
// of the same underlying array).
func (m *Memory) CopyBlock(dst, src Address, n int) catalog.ErrorKind {
	if !inBounds(m, src, n) || !inBounds(m, dst, n) {
		return catalog.OutOfBounds
	}
	copy(m.buf[dst:dst+uint64(n)], m.buf[src:src+uint64(n)])
	return catalog.NoError
}
