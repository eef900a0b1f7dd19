package vm

import (
	"encoding/binary"

	"rvm/catalog"
	"rvm/vm/cpu"
)

// execControlFlow implements JUMP/the twelve conditional jumps/CALL/
// RETURN. Unconditional JUMP and every conditional jump carry an
// 8-byte literal target address; CALL_CONST carries the same, while
// CALL_REG carries a single register holding the target. RETURN takes
// no operand and pops its target off the stack.
func (v *VM) execControlFlow(op catalog.Opcode, code []byte, pos int) error {
	pc := v.Regs.PC()

	switch op {
	case catalog.Return:
		top := v.Regs.StackTop()
		target, kind := v.Mem.ReadSized(top, catalog.AddressSize)
		if kind != catalog.NoError {
			v.Regs.SetError(kind)
			v.Regs.SetPC(pc + 1)
			return nil
		}
		v.Regs.Set(catalog.StackTopPointer, top+catalog.AddressSize)
		v.Regs.SetError(catalog.NoError)
		v.Regs.SetPC(target)
		return nil

	case catalog.CallReg:
		if pos >= len(code) {
			v.Regs.SetError(catalog.OutOfBounds)
			v.Regs.SetPC(pc + 1)
			return nil
		}
		target := v.Regs.Get(catalog.Register(code[pos]))
		return v.doCall(uint64(pos+1), target)

	default:
		// JUMP and CALL_CONST and every conditional jump share the
		// 8-byte literal address encoding.
		if pos+8 > len(code) {
			v.Regs.SetError(catalog.OutOfBounds)
			v.Regs.SetPC(pc + 1)
			return nil
		}
		target := binary.LittleEndian.Uint64(code[pos : pos+8])
		next := uint64(pos + 8)

		if op == catalog.CallConst {
			return v.doCall(next, target)
		}

		v.Regs.SetError(catalog.NoError)
		if op == catalog.Jump || ConditionTaken(op, v.Regs.ReadFlags()) {
			v.Regs.SetPC(target)
		} else {
			v.Regs.SetPC(next)
		}
		return nil
	}
}

// doCall pushes returnAddr onto the stack and transfers control to
// target.
func (v *VM) doCall(returnAddr, target uint64) error {
	newTop := v.Regs.StackTop() - catalog.AddressSize
	kind := v.Mem.WriteSized(newTop, catalog.AddressSize, returnAddr)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(returnAddr)
		return nil
	}
	v.Regs.Set(catalog.StackTopPointer, newTop)
	v.Regs.SetError(catalog.NoError)
	v.Regs.SetPC(target)
	return nil
}

// ConditionTaken evaluates whether a conditional jump opcode should
// branch given the current flags. It is exported so the debug
// channel's next-pc calculator can mirror this decision without
// executing the instruction.
func ConditionTaken(op catalog.Opcode, f cpu.Flags) bool {
	switch op {
	case catalog.JumpZero:
		return f.Zero
	case catalog.JumpNotZero:
		return !f.Zero
	case catalog.JumpGreater:
		return !f.Zero && f.Sign == f.Overflow
	case catalog.JumpGreaterOrEqual:
		return f.Sign == f.Overflow
	case catalog.JumpLess:
		return f.Sign != f.Overflow
	case catalog.JumpLessOrEqual:
		return f.Zero || f.Sign != f.Overflow
	case catalog.JumpCarry:
		return f.Carry
	case catalog.JumpNotCarry:
		return !f.Carry
	case catalog.JumpOverflow:
		return f.Overflow
	case catalog.JumpNotOverflow:
		return !f.Overflow
	case catalog.JumpSign:
		return f.Sign
	case catalog.JumpNotSign:
		return !f.Sign
	default:
		return false
	}
}
