package vm

import (
	"math"

	"rvm/catalog"
	"rvm/vm/cpu"
)

// execArithmetic implements the INTEGER_*/FLOAT_* family: all ten
// operate implicitly on r1 and r2, writing the result back to r1. No
// operand bytes follow the opcode.
func (v *VM) execArithmetic(op catalog.Opcode, code []byte, pos int) error {
	pc := v.Regs.PC()
	a, b := v.Regs.Get(catalog.R1), v.Regs.Get(catalog.R2)

	switch op {
	case catalog.IntegerAdd:
		result, flags := cpu.IntegerAdd(a, b)
		v.Regs.Set(catalog.R1, result)
		v.Regs.ApplyFlags(flags)
		v.Regs.SetError(catalog.NoError)

	case catalog.IntegerSub:
		result, flags := cpu.IntegerSub(a, b)
		v.Regs.Set(catalog.R1, result)
		v.Regs.ApplyFlags(flags)
		v.Regs.SetError(catalog.NoError)

	case catalog.IntegerMul:
		result, flags := cpu.IntegerMul(a, b)
		v.Regs.Set(catalog.R1, result)
		v.Regs.ApplyFlags(flags)
		v.Regs.SetError(catalog.NoError)

	case catalog.IntegerDiv:
		q, r, ok := cpu.IntegerDivMod(a, b)
		if !ok {
			v.Regs.SetError(catalog.ZeroDivision)
			break
		}
		v.Regs.Set(catalog.R1, q)
		v.Regs.SetRemainder(r)
		v.Regs.ApplyFlags(cpu.ResultFlags(q))
		v.Regs.SetError(catalog.NoError)

	case catalog.IntegerMod:
		_, r, ok := cpu.IntegerDivMod(a, b)
		if !ok {
			v.Regs.SetError(catalog.ZeroDivision)
			break
		}
		v.Regs.Set(catalog.R1, r)
		v.Regs.SetRemainder(r)
		v.Regs.ApplyFlags(cpu.ResultFlags(r))
		v.Regs.SetError(catalog.NoError)

	case catalog.FloatAdd, catalog.FloatSub, catalog.FloatMul, catalog.FloatDiv, catalog.FloatMod:
		v.execFloatArithmetic(op, a, b)

	default:
		v.Regs.SetError(catalog.GenericError)
	}

	v.Regs.SetPC(pc + 1)
	return nil
}

func (v *VM) execFloatArithmetic(op catalog.Opcode, a, b uint64) {
	fa, fb := math.Float64frombits(a), math.Float64frombits(b)

	var result float64
	var zero, sign, ok bool
	switch op {
	case catalog.FloatAdd:
		result, zero, sign = cpu.FloatAdd(fa, fb)
		ok = true
	case catalog.FloatSub:
		result, zero, sign = cpu.FloatSub(fa, fb)
		ok = true
	case catalog.FloatMul:
		result, zero, sign = cpu.FloatMul(fa, fb)
		ok = true
	case catalog.FloatDiv:
		result, zero, sign, ok = cpu.FloatDiv(fa, fb)
	case catalog.FloatMod:
		result, zero, sign, ok = cpu.FloatMod(fa, fb)
	}

	if !ok {
		v.Regs.SetError(catalog.ZeroDivision)
		return
	}
	v.Regs.Set(catalog.R1, math.Float64bits(result))
	v.Regs.ApplyZeroSignBool(zero, sign)
	v.Regs.SetError(catalog.NoError)
}

// execIncDec implements INC_*/DEC_*: zf/sf only, cf/of untouched.
func (v *VM) execIncDec(op catalog.Opcode, code []byte, pos int, isInc bool) error {
	descs := incDescriptors
	delta := int64(1)
	if !isInc {
		descs = decDescriptors
		delta = -1
	}
	d := descs[op]
	pc := v.Regs.PC()

	size, n, kind := v.readSizePrefix(code, pos, d.sized)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	pos += n

	value, consumed, kind := readOperand(d.mode, d.sized, size, code, pos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(pos + consumed))
		return nil
	}

	result := uint64(int64(value) + delta)
	_, kind = writeOperand(d.mode, d.sized, size, code, pos, &v.Regs, v.Mem, result)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(pos + consumed))
		return nil
	}

	v.Regs.ApplyZeroSignOnly(result, cpu.SignBitSet(result, size))
	v.Regs.SetError(catalog.NoError)
	v.Regs.SetPC(uint64(pos + consumed))
	return nil
}
