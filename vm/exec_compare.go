package vm

import (
	"rvm/catalog"
	"rvm/vm/cpu"
)

// execCompare implements the CMP family: computes left - right and
// sets flags without storing the result anywhere, mirroring the
// layout execMove uses to decode a two-operand instruction.
func (v *VM) execCompare(op catalog.Opcode, code []byte, pos int) error {
	d := compareDescriptors[op]
	pc := v.Regs.PC()

	size, n, kind := v.readSizePrefix(code, pos, d.sized)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	pos += n

	leftPos := pos
	leftConsumed := operandConsumedWidth(d.dst, size)
	rightPos := pos + leftConsumed

	left, _, kind := readOperand(d.dst, d.sized, size, code, leftPos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(rightPos))
		return nil
	}

	right, rightConsumed, kind := readOperand(d.src, d.sized, size, code, rightPos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(rightPos + rightConsumed))
		return nil
	}

	_, flags := cpu.IntegerSub(left, right)
	v.Regs.ApplyFlags(flags)
	v.Regs.SetError(catalog.NoError)
	v.Regs.SetPC(uint64(rightPos + rightConsumed))
	return nil
}

// execBitwise implements AND/OR/XOR/NOT/SHL/SHR: like the arithmetic
// family, these operate implicitly on r1 (and r2 where a second
// operand is needed) with no operand bytes following the opcode.
// SWAP_BYTES_ENDIANNESS is the one bitwise opcode that names its own
// register operand instead.
func (v *VM) execBitwise(op catalog.Opcode, code []byte, pos int) error {
	pc := v.Regs.PC()

	if op == catalog.SwapBytesEndianness {
		if pos >= len(code) {
			v.Regs.SetError(catalog.OutOfBounds)
			v.Regs.SetPC(pc + 1)
			return nil
		}
		reg := catalog.Register(code[pos])
		result := swapBytes64(v.Regs.Get(reg))
		v.Regs.Set(reg, result)
		v.Regs.ApplyZeroSignOnly(result, cpu.SignBitSet(result, 8))
		v.Regs.SetError(catalog.NoError)
		v.Regs.SetPC(uint64(pos + 1))
		return nil
	}

	a, b := v.Regs.Get(catalog.R1), v.Regs.Get(catalog.R2)

	var result uint64
	switch op {
	case catalog.And:
		result = a & b
	case catalog.Or:
		result = a | b
	case catalog.Xor:
		result = a ^ b
	case catalog.Not:
		result = ^a
	case catalog.ShiftLeft:
		result = a << (b & 63)
	case catalog.ShiftRight:
		result = a >> (b & 63)
	default:
		v.Regs.SetError(catalog.GenericError)
		v.Regs.SetPC(pc + 1)
		return nil
	}

	v.Regs.Set(catalog.R1, result)
	v.Regs.ApplyZeroSignOnly(result, cpu.SignBitSet(result, 8))
	v.Regs.SetError(catalog.NoError)
	v.Regs.SetPC(pc + 1)
	return nil
}

func swapBytes64(v uint64) uint64 {
	var out uint64
	for i := 0; i < 8; i++ {
		out = (out << 8) | (v & 0xff)
		v >>= 8
	}
	return out
}
