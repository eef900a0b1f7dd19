package vm

import "rvm/catalog"

func (v *VM) execPush(op catalog.Opcode, code []byte, pos int) error {
	d := pushDescriptors[op]
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

	newTop := v.Regs.StackTop() - uint64(size)
	kind = v.Mem.WriteSized(newTop, size, value)
	if kind == catalog.NoError {
		v.Regs.Set(catalog.StackTopPointer, newTop)
	} else {
		v.Regs.SetError(kind)
	}
	v.Regs.SetPC(uint64(pos + consumed))
	return nil
}

func (v *VM) execPushSP(op catalog.Opcode, code []byte, pos int) error {
	d := pushSPDescriptors[op]
	pc := v.Regs.PC()

	size, n, kind := v.readSizePrefix(code, pos, d.sized)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	pos += n

	amount, consumed, kind := readOperand(d.mode, d.sized, size, code, pos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(pos + consumed))
		return nil
	}

	newTop := v.Regs.StackTop() - amount
	if newTop > v.Regs.StackTop() {
		v.Regs.SetError(catalog.StackOverflow)
	} else {
		v.Regs.Set(catalog.StackTopPointer, newTop)
		v.Regs.SetError(catalog.NoError)
	}
	v.Regs.SetPC(uint64(pos + consumed))
	return nil
}

func (v *VM) execPopSP(op catalog.Opcode, code []byte, pos int) error {
	d := popSPDescriptors[op]
	pc := v.Regs.PC()

	size, n, kind := v.readSizePrefix(code, pos, d.sized)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}
	pos += n

	amount, consumed, kind := readOperand(d.mode, d.sized, size, code, pos, &v.Regs, v.Mem)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(uint64(pos + consumed))
		return nil
	}

	v.Regs.Set(catalog.StackTopPointer, v.Regs.StackTop()+amount)
	v.Regs.SetError(catalog.NoError)
	v.Regs.SetPC(uint64(pos + consumed))
	return nil
}

func (v *VM) execPopInto(op catalog.Opcode, code []byte, pos int) error {
	mode := popIntoDescriptors[op]
	pc := v.Regs.PC()

	top := v.Regs.StackTop()
	value, kind := v.Mem.ReadSized(top, catalog.AddressSize)
	if kind != catalog.NoError {
		v.Regs.SetError(kind)
		v.Regs.SetPC(pc + 1)
		return nil
	}

	consumed, kind := writeOperand(mode, false, catalog.AddressSize, code, pos, &v.Regs, v.Mem, value)
	if kind == catalog.NoError {
		v.Regs.Set(catalog.StackTopPointer, top+catalog.AddressSize)
	}
	v.Regs.SetError(kind)
	v.Regs.SetPC(uint64(pos + consumed))
	return nil
}
