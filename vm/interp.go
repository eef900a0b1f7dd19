// Package vm implements the fetch/decode/execute loop over the
// catalog's instruction set: a dispatch table keyed by opcode driving
// arithmetic, memory, control-flow and interrupt handling.
package vm

import (
	"runtime/debug"

	"rvm/catalog"
	"rvm/vm/cpu"
	"rvm/vm/hostio"
	"rvm/vm/memory"
)

// Controller lets an attached debugger gate the fetch/decode/execute
// loop and learn about breakpoint hits, without the interpreter
// itself knowing anything about the shared-memory protocol.
type Controller interface {
	// Gate runs before every fetch. It blocks while the VM is meant to
	// be paused and reports whether the VM should terminate instead of
	// fetching the next instruction.
	Gate() (terminate bool)
	// NotifyBreakpoint is called once pc has been advanced past an
	// executed BREAKPOINT instruction.
	NotifyBreakpoint()
}

// VM is the interpreter's mutable state: registers, memory and the
// host services INTERRUPT reaches.
type VM struct {
	Regs cpu.Registers
	Mem  *memory.Memory
	Host *hostio.Host
}

// New builds a VM over the given memory, with the program's entry
// address already placed in pc.
func New(mem *memory.Memory, host *hostio.Host, entry uint64) *VM {
	v := &VM{Mem: mem, Host: host}
	v.Regs.SetPC(entry)
	v.Regs.Set(catalog.StackTopPointer, uint64(mem.Size()))
	v.Regs.Set(catalog.StackFrameBasePointer, uint64(mem.Size()))
	v.Regs.Set(catalog.ProgramEndPointer, uint64(mem.Size()))
	return v
}

// ExitError is returned by Run when the program halted via EXIT or
// the Terminate host service.
type ExitError struct {
	Code uint64
}

func (e *ExitError) Error() string { return "program exited" }

// Run executes instructions until EXIT, a host-requested termination,
// or the controller (if any) asks the loop to stop. It disables the
// garbage collector for the duration of the hot loop and restores the
// previous setting on return, mirroring the cost of running a tight
// fetch/decode/execute loop under Go's GC.
func (v *VM) Run(ctrl Controller) error {
	prevGOGC := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(prevGOGC)

	for {
		if ctrl != nil {
			if terminate := ctrl.Gate(); terminate {
				return &ExitError{Code: v.Regs.Get(catalog.Error)}
			}
		}
		exit, err := v.Step(ctrl)
		if err != nil {
			return err
		}
		if exit {
			return &ExitError{Code: v.Regs.Get(catalog.Error)}
		}
	}
}

// Step fetches, decodes and executes exactly one instruction. It
// returns exit=true once an EXIT opcode or a Terminate interrupt has
// been handled.
func (v *VM) Step(ctrl Controller) (exit bool, err error) {
	code := v.Mem.Bytes()
	pc := v.Regs.PC()
	if pc >= uint64(len(code)) {
		v.Regs.SetError(catalog.OutOfBounds)
		return true, nil
	}
	op := catalog.Opcode(code[pc])
	pos := int(pc) + 1

	switch {
	case op == catalog.Breakpoint:
		v.Regs.SetPC(pc + 1)
		if ctrl != nil {
			ctrl.NotifyBreakpoint()
		}
		return false, nil

	case op == catalog.Exit:
		return true, nil

	case op == catalog.NoOperation:
		v.Regs.SetPC(pc + 1)
		return false, nil

	case op == catalog.Interrupt:
		v.Regs.SetPC(pc + 1)
		if termErr := hostio.Dispatch(&v.Regs, v.Mem, v.Host); termErr != nil {
			if t, ok := termErr.(*hostio.Terminated); ok {
				v.Regs.SetError(catalog.ErrorKind(t.Code))
				return true, nil
			}
			v.Regs.SetError(catalog.GenericError)
		}
		return false, nil

	case catalog.IsJumpInstruction(op):
		return false, v.execControlFlow(op, code, pos)

	case isArithmetic(op):
		return false, v.execArithmetic(op, code, pos)

	case op == catalog.IncReg || op == catalog.IncAddrInReg || op == catalog.IncAddrLiteral:
		return false, v.execIncDec(op, code, pos, true)

	case op == catalog.DecReg || op == catalog.DecAddrInReg || op == catalog.DecAddrLiteral:
		return false, v.execIncDec(op, code, pos, false)

	case isMove(op):
		return false, v.execMove(op, code, pos)

	case isMemCopy(op):
		return false, v.execMemCopy(op, code, pos)

	case isPush(op):
		return false, v.execPush(op, code, pos)

	case isPushSP(op):
		return false, v.execPushSP(op, code, pos)

	case isPopInto(op):
		return false, v.execPopInto(op, code, pos)

	case isPopSP(op):
		return false, v.execPopSP(op, code, pos)

	case isCompare(op):
		return false, v.execCompare(op, code, pos)

	case isBitwise(op):
		return false, v.execBitwise(op, code, pos)

	default:
		v.Regs.SetError(catalog.InvalidData)
		v.Regs.SetPC(pc + 1)
		return false, nil
	}
}

func isArithmetic(op catalog.Opcode) bool {
	return op >= catalog.IntegerAdd && op <= catalog.FloatMod
}

func isMove(op catalog.Opcode) bool {
	_, ok := moveDescriptors[op]
	return ok
}

func isMemCopy(op catalog.Opcode) bool {
	_, ok := memCopyCountDescriptors[op]
	return ok
}

func isPush(op catalog.Opcode) bool {
	_, ok := pushDescriptors[op]
	return ok
}

func isPushSP(op catalog.Opcode) bool {
	_, ok := pushSPDescriptors[op]
	return ok
}

func isPopInto(op catalog.Opcode) bool {
	_, ok := popIntoDescriptors[op]
	return ok
}

func isPopSP(op catalog.Opcode) bool {
	_, ok := popSPDescriptors[op]
	return ok
}

func isCompare(op catalog.Opcode) bool {
	_, ok := compareDescriptors[op]
	return ok
}

func isBitwise(op catalog.Opcode) bool {
	switch op {
	case catalog.And, catalog.Or, catalog.Xor, catalog.Not,
		catalog.ShiftLeft, catalog.ShiftRight, catalog.SwapBytesEndianness:
		return true
	}
	return false
}
