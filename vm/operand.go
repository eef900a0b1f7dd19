package vm

import (
	"encoding/binary"

	"rvm/catalog"
	"rvm/vm/cpu"
	"rvm/vm/memory"
)

// addrMode names one of the four addressing modes the ISA's sized
// instruction families share: a bare register, an address held in a
// register, an immediate constant, or a literal address.
type addrMode uint8

const (
	modeReg addrMode = iota
	modeAddrInReg
	modeConst
	modeAddrLiteral
)

// readOperand decodes one source operand starting at code[pos],
// returning its zero-extended value and how many bytes it consumed.
func readOperand(mode addrMode, sized bool, size uint8, code []byte, pos int, regs *cpu.Registers, mem *memory.Memory) (value uint64, consumed int, kind catalog.ErrorKind) {
	switch mode {
	case modeReg:
		if pos >= len(code) {
			return 0, 0, catalog.OutOfBounds
		}
		reg := catalog.Register(code[pos])
		if sized {
			return regs.GetMasked(reg, size), 1, catalog.NoError
		}
		return regs.Get(reg), 1, catalog.NoError

	case modeAddrInReg:
		if pos >= len(code) {
			return 0, 0, catalog.OutOfBounds
		}
		reg := catalog.Register(code[pos])
		addr := regs.Get(reg)
		v, k := mem.ReadSized(addr, size)
		return v, 1, k

	case modeConst:
		if pos+int(size) > len(code) {
			return 0, 0, catalog.OutOfBounds
		}
		var tmp [8]byte
		copy(tmp[:size], code[pos:pos+int(size)])
		return binary.LittleEndian.Uint64(tmp[:]), int(size), catalog.NoError

	case modeAddrLiteral:
		if pos+8 > len(code) {
			return 0, 0, catalog.OutOfBounds
		}
		addr := binary.LittleEndian.Uint64(code[pos : pos+8])
		v, k := mem.ReadSized(addr, size)
		return v, 8, k

	default:
		return 0, 0, catalog.GenericError
	}
}

// writeOperand decodes a destination operand and stores value into
// it, returning how many bytes of code the destination descriptor
// consumed.
func writeOperand(mode addrMode, sized bool, size uint8, code []byte, pos int, regs *cpu.Registers, mem *memory.Memory, value uint64) (consumed int, kind catalog.ErrorKind) {
	switch mode {
	case modeReg:
		if pos >= len(code) {
			return 0, catalog.OutOfBounds
		}
		reg := catalog.Register(code[pos])
		if sized {
			mask := uint64(1)<<(size*8) - 1
			if size >= 8 {
				mask = ^uint64(0)
			}
			regs.Set(reg, value&mask)
		} else {
			regs.Set(reg, value)
		}
		return 1, catalog.NoError

	case modeAddrInReg:
		if pos >= len(code) {
			return 0, catalog.OutOfBounds
		}
		reg := catalog.Register(code[pos])
		addr := regs.Get(reg)
		return 1, mem.WriteSized(addr, size, value)

	case modeAddrLiteral:
		if pos+8 > len(code) {
			return 0, catalog.OutOfBounds
		}
		addr := binary.LittleEndian.Uint64(code[pos : pos+8])
		return 8, mem.WriteSized(addr, size, value)

	default:
		return 0, catalog.GenericError
	}
}

// operandWidth reports how many code bytes an operand descriptor
// consumes without performing the read. The next-pc calculator does
// not call it; it sizes operands through operandBytes.
func operandWidth(mode addrMode) int {
	if mode == modeAddrLiteral {
		return 8
	}
	if mode == modeConst {
		return -1 // caller must add the handled size separately
	}
	return 1
}
