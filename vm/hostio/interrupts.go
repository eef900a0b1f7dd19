// Package hostio implements the host-side services a running program
// reaches through the INTERRUPT instruction: console I/O, a bump
// allocator, memory-size queries and program termination. Every
// service executes synchronously on the calling VM thread and must
// never retain a reference to VM memory past the call that invoked it.
package hostio

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"rvm/catalog"
	"rvm/vm/cpu"
	"rvm/vm/memory"
)

// Interrupt identifies a host service, read from the int register.
type Interrupt uint64

const (
	ReadByte Interrupt = iota
	PrintBytes
	PrintInt
	PrintFloat
	Allocate
	Free
	MemorySize
	Terminate
)

// Host owns the resources host services need: buffered stdin, the
// output writer and the allocator's free-list bookkeeping.
type Host struct {
	in  *bufio.Reader
	out io.Writer

	heapTop  memory.Address
	heapHigh memory.Address
	free     []freeBlock
}

type freeBlock struct {
	addr memory.Address
	size uint64
}

// NewHost builds a Host reading from in and writing to out, with its
// allocator's free heap region spanning [heapBase, heapLimit).
func NewHost(in io.Reader, out io.Writer, heapBase, heapLimit memory.Address) *Host {
	return &Host{
		in:       bufio.NewReader(in),
		out:      out,
		heapTop:  heapBase,
		heapHigh: heapLimit,
	}
}

// Terminated is returned by Dispatch when the program requested exit
// through the Terminate service rather than the EXIT opcode.
type Terminated struct {
	Code uint64
}

func (t *Terminated) Error() string { return "program requested termination" }

// Dispatch executes the interrupt named by regs' int register,
// mutating regs and mem as the service requires. A returned
// *Terminated signals the VM loop to stop.
func Dispatch(regs *cpu.Registers, mem *memory.Memory, host *Host) error {
	switch Interrupt(regs.Get(catalog.IntReg)) {

	case ReadByte:
		b, err := host.in.ReadByte()
		if err != nil {
			if err == io.EOF {
				regs.SetError(catalog.EndOfFile)
			} else {
				regs.SetError(catalog.GenericError)
			}
			return nil
		}
		regs.Set(catalog.Input, uint64(b))
		regs.SetError(catalog.NoError)

	case PrintBytes:
		addr := regs.Get(catalog.Print)
		n := regs.Get(catalog.R1)
		data, kind := mem.ReadBytes(addr, int(n))
		if kind != catalog.NoError {
			regs.SetError(kind)
			return nil
		}
		if _, err := host.out.Write(data); err != nil {
			regs.SetError(catalog.WriteZero)
			return nil
		}
		regs.SetError(catalog.NoError)

	case PrintInt:
		regs.SetError(catalog.NoError)
		writeDecimalSigned(host.out, int64(regs.Get(catalog.R1)))

	case PrintFloat:
		regs.SetError(catalog.NoError)
		writeFloat(host.out, math.Float64frombits(regs.Get(catalog.R1)))

	case Allocate:
		addr, ok := host.alloc(regs.Get(catalog.R1))
		if !ok {
			regs.SetError(catalog.OutOfMemory)
			return nil
		}
		regs.Set(catalog.R1, uint64(addr))
		regs.SetError(catalog.NoError)

	case Free:
		host.free = append(host.free, freeBlock{addr: memory.Address(regs.Get(catalog.R1)), size: regs.Get(catalog.R2)})
		regs.SetError(catalog.NoError)

	case MemorySize:
		regs.Set(catalog.R1, uint64(mem.Size()))
		regs.SetError(catalog.NoError)

	case Terminate:
		return &Terminated{Code: regs.Get(catalog.Error)}

	default:
		regs.SetError(catalog.InvalidInput)
	}
	return nil
}

func (h *Host) alloc(size uint64) (memory.Address, bool) {
	for i, blk := range h.free {
		if blk.size >= size {
			h.free = append(h.free[:i], h.free[i+1:]...)
			return blk.addr, true
		}
	}
	if h.heapTop+size > h.heapHigh {
		return 0, false
	}
	addr := h.heapTop
	h.heapTop += size
	return addr, true
}

func writeDecimalSigned(w io.Writer, v int64) {
	io.WriteString(w, strconv.FormatInt(v, 10))
}

func writeFloat(w io.Writer, f float64) {
	io.WriteString(w, strconv.FormatFloat(f, 'g', -1, 64))
}
