// Package cpu implements the VM's register file and the flag-setting
// rules for arithmetic, increment/decrement and compare instructions.
package cpu

import (
	"encoding/binary"
	"math"

	"rvm/catalog"
)

// Registers is the fixed-size register file, addressed by
// catalog.Register.
type Registers struct {
	values [catalog.RegisterCount]uint64
}

// Get returns the full 64-bit content of a register.
func (r *Registers) Get(reg catalog.Register) uint64 {
	return r.values[reg]
}

// GetMasked returns the low n bytes of a register, masking off the rest.
func (r *Registers) GetMasked(reg catalog.Register, n uint8) uint64 {
	if n >= 8 {
		return r.values[reg]
	}
	return r.values[reg] & (math.MaxUint64 >> ((8 - n) * 8))
}

// Set stores value into reg.
func (r *Registers) Set(reg catalog.Register, value uint64) {
	r.values[reg] = value
}

// SetError stores an error kind into the error register.
func (r *Registers) SetError(kind catalog.ErrorKind) {
	r.values[catalog.Error] = uint64(kind)
}

// Error returns the current error register as an ErrorKind.
func (r *Registers) Error() catalog.ErrorKind {
	return catalog.ErrorKind(r.values[catalog.Error])
}

// IncPC advances the program counter by offset bytes.
func (r *Registers) IncPC(offset uint64) {
	r.values[catalog.ProgramCounter] += offset
}

// PC returns the program counter.
func (r *Registers) PC() uint64 { return r.values[catalog.ProgramCounter] }

// SetPC sets the program counter.
func (r *Registers) SetPC(addr uint64) { r.values[catalog.ProgramCounter] = addr }

// StackTop returns the stack top pointer.
func (r *Registers) StackTop() uint64 { return r.values[catalog.StackTopPointer] }

// AsBytes exposes the register file as its little-endian byte
// representation, matching the on-wire layout used by the debug
// channel's shared register view.
func (r *Registers) AsBytes() []byte {
	out := make([]byte, catalog.RegisterCount*catalog.RegisterContentSize)
	for i, v := range r.values {
		binary.LittleEndian.PutUint64(out[i*8:], v)
	}
	return out
}

// LoadBytes overwrites the register file from its byte representation
// (the inverse of AsBytes), used when a debugger writes a modified
// register snapshot back.
func (r *Registers) LoadBytes(b []byte) {
	for i := range r.values {
		r.values[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
}

// Flags bundles the four comparison/arithmetic flag registers for
// convenient bulk updates. The remainder register is not part of this
// bundle: it holds a value, not a boolean, and is only ever touched by
// the integer division/modulo handlers via SetRemainder.
type Flags struct {
	Zero, Sign, Carry, Overflow bool
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// ApplyFlags writes a Flags bundle into the flag registers.
func (r *Registers) ApplyFlags(f Flags) {
	r.values[catalog.ZeroFlag] = b2u(f.Zero)
	r.values[catalog.SignFlag] = b2u(f.Sign)
	r.values[catalog.CarryFlag] = b2u(f.Carry)
	r.values[catalog.OverflowFlag] = b2u(f.Overflow)
}

// ReadFlags reads the current flag registers.
func (r *Registers) ReadFlags() Flags {
	return Flags{
		Zero:     r.values[catalog.ZeroFlag] != 0,
		Sign:     r.values[catalog.SignFlag] != 0,
		Carry:    r.values[catalog.CarryFlag] != 0,
		Overflow: r.values[catalog.OverflowFlag] != 0,
	}
}

// SetRemainder stores the result of the most recent division/modulo
// into rf, per the ISA's "rf holds the remainder" rule.
func (r *Registers) SetRemainder(v uint64) {
	r.values[catalog.RemainderFlag] = v
}

// ApplyZeroSignOnly sets zf/sf from result, leaving cf/of/rf alone.
// Used by INC/DEC and the bitwise family.
func (r *Registers) ApplyZeroSignOnly(result uint64, resultIsNegative bool) {
	r.values[catalog.ZeroFlag] = b2u(result == 0)
	r.values[catalog.SignFlag] = b2u(resultIsNegative)
}

// ApplyZeroSignBool sets zf/sf directly from already-evaluated
// booleans, used by float arithmetic where the zero/sign tests must
// run on the float domain (so -0.0 reads as zero) rather than on the
// raw bit pattern.
func (r *Registers) ApplyZeroSignBool(zero, sign bool) {
	r.values[catalog.ZeroFlag] = b2u(zero)
	r.values[catalog.SignFlag] = b2u(sign)
}
