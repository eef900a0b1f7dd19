package vm

import (
	"encoding/binary"

	"rvm/catalog"
	"rvm/vm/cpu"
	"rvm/vm/memory"
)

// operandBytes decodes just enough of a single operand descriptor to
// report its width, sharing the same size-prefix and addressing-mode
// tables the real handlers use, without reading or writing any value.
func operandBytes(mode addrMode, sized bool, size uint8) int {
	return operandConsumedWidth(mode, size)
}

// InstructionLength reports how many bytes, starting at pos (the byte
// immediately after the opcode), the instruction at pos occupies. It
// is the same descriptor-table walk every exec* handler performs to
// advance pc, factored out so the debug channel's step-in logic can
// size an instruction without executing it.
func InstructionLength(op catalog.Opcode, code []byte, pos int) (int, catalog.ErrorKind) {
	switch {
	case op == catalog.NoOperation, op == catalog.Interrupt, op == catalog.Breakpoint,
		op == catalog.Exit, op == catalog.Return,
		isArithmetic(op):
		return 0, catalog.NoError

	case op == catalog.SwapBytesEndianness:
		return 1, catalog.NoError

	case isBitwise(op):
		return 0, catalog.NoError

	case op == catalog.IncReg || op == catalog.DecReg:
		return 1, catalog.NoError

	case op == catalog.IncAddrInReg || op == catalog.IncAddrLiteral:
		d := incDescriptors[op]
		return sizedOperandLength(code, pos, d.mode, d.sized)

	case op == catalog.DecAddrInReg || op == catalog.DecAddrLiteral:
		d := decDescriptors[op]
		return sizedOperandLength(code, pos, d.mode, d.sized)

	case isMove(op):
		d := moveDescriptors[op]
		return twoOperandLength(code, pos, d)

	case isCompare(op):
		d := compareDescriptors[op]
		return twoOperandLength(code, pos, d)

	case isMemCopy(op):
		d := memCopyCountDescriptors[op]
		size, n, kind := readSizePrefixPure(code, pos, d.sized)
		if kind != catalog.NoError {
			return 0, kind
		}
		pos += n
		if pos+2 > len(code) {
			return 0, catalog.OutOfBounds
		}
		width := operandBytes(d.mode, d.sized, size)
		return n + 2 + width, catalog.NoError

	case isPush(op):
		d := pushDescriptors[op]
		return sizedOperandLength(code, pos, d.mode, d.sized)

	case isPushSP(op):
		d := pushSPDescriptors[op]
		return sizedOperandLength(code, pos, d.mode, d.sized)

	case isPopSP(op):
		d := popSPDescriptors[op]
		return sizedOperandLength(code, pos, d.mode, d.sized)

	case isPopInto(op):
		mode := popIntoDescriptors[op]
		return operandBytes(mode, false, catalog.AddressSize), catalog.NoError

	case op == catalog.CallReg:
		return 1, catalog.NoError

	case op == catalog.Jump || op == catalog.CallConst ||
		(op >= catalog.JumpNotZero && op <= catalog.JumpNotSign):
		return 8, catalog.NoError

	default:
		return 0, catalog.GenericError
	}
}

func readSizePrefixPure(code []byte, pos int, sized bool) (size uint8, consumed int, kind catalog.ErrorKind) {
	if !sized {
		return 8, 0, catalog.NoError
	}
	if pos >= len(code) {
		return 0, 0, catalog.OutOfBounds
	}
	return code[pos], 1, catalog.NoError
}

func sizedOperandLength(code []byte, pos int, mode addrMode, sized bool) (int, catalog.ErrorKind) {
	size, n, kind := readSizePrefixPure(code, pos, sized)
	if kind != catalog.NoError {
		return 0, kind
	}
	return n + operandBytes(mode, sized, size), catalog.NoError
}

func twoOperandLength(code []byte, pos int, d twoOperandDescriptor) (int, catalog.ErrorKind) {
	size, n, kind := readSizePrefixPure(code, pos, d.sized)
	if kind != catalog.NoError {
		return 0, kind
	}
	dstWidth := operandBytes(d.dst, d.sized, size)
	srcWidth := operandBytes(d.src, d.sized, size)
	return n + dstWidth + srcWidth, catalog.NoError
}

// NextProgramCounter is the pure "next-pc calculator" the debug
// channel's step-in/continue logic uses: given the instruction
// currently at pc, it reports where execution would transfer to
// without mutating registers or memory (a CALL's push and a RETURN's
// pop are skipped; only their target is computed).
func NextProgramCounter(code []byte, pc uint64, regs *cpu.Registers, mem *memory.Memory) (uint64, catalog.ErrorKind) {
	if pc >= uint64(len(code)) {
		return pc, catalog.OutOfBounds
	}
	op := catalog.Opcode(code[pc])
	pos := int(pc) + 1

	switch {
	case op == catalog.Return:
		target, kind := mem.ReadSized(regs.StackTop(), catalog.AddressSize)
		if kind != catalog.NoError {
			return pc, kind
		}
		return target, catalog.NoError

	case op == catalog.CallReg:
		if pos >= len(code) {
			return pc, catalog.OutOfBounds
		}
		return regs.Get(catalog.Register(code[pos])), catalog.NoError

	case op == catalog.CallConst, op == catalog.Jump,
		(op >= catalog.JumpNotZero && op <= catalog.JumpNotSign):
		if pos+8 > len(code) {
			return pc, catalog.OutOfBounds
		}
		target := binary.LittleEndian.Uint64(code[pos : pos+8])
		if op == catalog.CallConst || op == catalog.Jump || ConditionTaken(op, regs.ReadFlags()) {
			return target, catalog.NoError
		}
		return pc + 9, catalog.NoError

	default:
		n, kind := InstructionLength(op, code, pos)
		if kind != catalog.NoError {
			return pc, kind
		}
		return uint64(pos + n), catalog.NoError
	}
}
