// Package debugchan implements the shared-memory debug protocol: a
// region prefixing VM memory that lets an external controller pause,
// step, inspect and resume a running program without any channel,
// socket or IPC library standing between them. The VM side implements
// vm.Controller; the debugger side drives the same region from
// whatever goroutine holds a reference to it.
package debugchan

import (
	"sync/atomic"
	"time"

	"rvm/catalog"
	"rvm/vm/cpu"
)

// registersSize is the byte width of the register file section.
const registersSize = catalog.RegisterCount * catalog.RegisterContentSize

// pollInterval is how long each side sleeps between polls while
// waiting: the controller polls the update counter, the paused VM
// polls the running and terminate flags. The VM and controller run on independent schedules
// connected only by these flags, so the handshake is a plain
// busy-wait with a sleep, as the protocol describes itself.
const pollInterval = 200 * time.Microsecond

// Region is the shared state a VM and an attached controller
// communicate through: a running flag, a terminate flag and an
// update counter (one-shot/volatile handshake primitives), the VM's
// full register file, and the VM's addressable memory.
//
// The protocol's own description models the three control flags as
// raw bytes of one shared-memory buffer read with volatile
// loads/stores. Go's sync/atomic only operates on aligned 32/64-bit
// words (or the atomic.Bool/Uint32 wrapper types), not on individual
// bytes of a slice, so those three fields are realized here as atomic
// struct fields rather than offsets into a byte buffer; the register
// file and VM memory remain plain byte buffers, exactly as spec'd,
// since access to them is already serialized by the running-flag
// handshake rather than by atomicity of the bytes themselves.
type Region struct {
	running   atomic.Bool
	terminate atomic.Bool
	counter   atomic.Uint32

	regBytes []byte // little-endian snapshot of the register file, synced at pause/resume
	memBuf   []byte // VM's addressable memory
}

// NewRegion allocates a region with memSize bytes of VM memory, with
// the VM initially running.
func NewRegion(memSize int) *Region {
	r := &Region{
		regBytes: make([]byte, registersSize),
		memBuf:   make([]byte, memSize),
	}
	r.running.Store(true)
	return r
}

// Memory returns the VM-memory byte buffer, suitable for
// memory.Memory.SetBacking.
func (r *Region) Memory() []byte { return r.memBuf }

// syncFromRegisters copies the VM's live register file into the
// shared snapshot. Called by the VM side at every observable state
// transition, never while the controller might be reading it.
func (r *Region) syncFromRegisters(regs *cpu.Registers) {
	copy(r.regBytes, regs.AsBytes())
}

// syncIntoRegisters overwrites the VM's live register file from the
// shared snapshot, picking up any edit a paused controller made.
func (r *Region) syncIntoRegisters(regs *cpu.Registers) {
	regs.LoadBytes(r.regBytes)
}

// Registers returns a copy of the shared register snapshot. Only
// meaningful while the VM is paused.
func (r *Region) Registers() []byte {
	out := make([]byte, len(r.regBytes))
	copy(out, r.regBytes)
	return out
}

// WriteRegisters overwrites the shared register snapshot. Only safe
// while the VM is paused; it is picked up the next time the VM
// resumes.
func (r *Region) WriteRegisters(b []byte) {
	copy(r.regBytes, b)
}

func (r *Region) bumpCounter() { r.counter.Add(1) }

func (r *Region) sleep() { time.Sleep(pollInterval) }
