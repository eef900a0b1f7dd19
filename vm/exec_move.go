package vm

import "rvm/catalog"

func (v *VM) readSizePrefix(code []byte, pos int, sized bool) (size uint8, consumed int, kind catalog.ErrorKind) {
	if !sized {
		return 8, 0, catalog.NoError
	}
	if pos >= len(code) {
		return 0, 0, catalog.OutOfBounds
	}
	return code[pos], 1, catalog.NoError
}

func (v *VM) execMove(op catalog.Opcode, code []byte, pos int) error {
	d := moveDescriptors[op]
	pc := v.Regs.PC()

	size, n, kind := v.readSizePrefix(code, pos, d.sized)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	pos += n

	// The destination descriptor is decoded first (its bytes precede
	// the source's in the instruction stream) but only consumes the
	// operand's addressing bytes here; the value itself is written
	// after the source is read.
	dstPos := pos
	dstConsumed := operandConsumedWidth(d.dst, size)
	srcPos := pos + dstConsumed

	value, srcConsumed, kind := readOperand(d.src, d.sized, size, code, srcPos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(srcPos + srcConsumed))
		return nil
	}

	_, kind = writeOperand(d.dst, d.sized, size, code, dstPos, &v.Regs, v.Mem, value)
	v.Regs.SetError(kind)
	v.Regs.SetPC(uint64(srcPos + srcConsumed))
	return nil
}

// operandConsumedWidth reports how many code bytes an operand
// descriptor occupies in the instruction stream, given the already
// resolved handled size.
func operandConsumedWidth(mode addrMode, size uint8) int {
	switch mode {
	case modeReg, modeAddrInReg:
		return 1
	case modeAddrLiteral:
		return 8
	case modeConst:
		return int(size)
	default:
		return 0
	}
}

func (v *VM) execMemCopy(op catalog.Opcode, code []byte, pos int) error {
	d := memCopyCountDescriptors[op]
	pc := v.Regs.PC()

	size, n, kind := v.readSizePrefix(code, pos, d.sized)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	pos += n

	if pos+2 > len(code) {
		v.Regs.SetError(catalog.OutOfBounds)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	dstReg := catalog.Register(code[pos])
	srcReg := catalog.Register(code[pos+1])
	pos += 2

	count, consumed, kind := readOperand(d.mode, d.sized, size, code, pos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(pos + consumed))
		return nil
	}

	dstAddr := v.Regs.Get(dstReg)
	srcAddr := v.Regs.Get(srcReg)
	kind = v.Mem.CopyBlock(dstAddr, srcAddr, int(count))
	v.Regs.SetError(kind)
	v.Regs.SetPC(uint64(pos + consumed))
	return nil
}
