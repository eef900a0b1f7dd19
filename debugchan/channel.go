package debugchan

import (
	"fmt"
	"sync"

	"rvm/catalog"
	"rvm/vm"
	"rvm/vm/cpu"
	"rvm/vm/memory"
)

// breakpointEntry records what a breakpoint overwrote so it can be
// restored, and whether it should be reinstated after being stepped
// past.
type breakpointEntry struct {
	replaced   byte
	persistent bool
}

// Channel is the VM-side and controller-side handle onto one debug
// region. It implements vm.Controller for the VM's fetch loop and
// exposes the pause/step/inspect/resume operations an attached
// controller drives it with.
type Channel struct {
	region *Region
	regs   *cpu.Registers
	mem    *memory.Memory

	mu               sync.Mutex
	breakpoints      map[uint64]breakpointEntry
	lastPersistentBP *uint64
}

// New builds a Channel over region, wired to the live VM state it
// pauses and inspects. mem must already have its backing storage set
// to region.Memory() so VM writes land in the same buffer the
// controller reads from.
func New(region *Region, regs *cpu.Registers, mem *memory.Memory) *Channel {
	return &Channel{
		region:      region,
		regs:        regs,
		mem:         mem,
		breakpoints: make(map[uint64]breakpointEntry),
	}
}

// Gate implements vm.Controller. It blocks the fetch loop while the
// region's running flag is clear, syncing the register snapshot out
// on the way into a pause and back in on the way out of one.
func (c *Channel) Gate() (terminate bool) {
	if c.region.terminate.Load() {
		return true
	}
	if c.region.running.Load() {
		return false
	}

	c.region.syncFromRegisters(c.regs)
	c.region.bumpCounter()

	for !c.region.running.Load() {
		if c.region.terminate.Load() {
			return true
		}
		c.region.sleep()
	}

	c.region.syncIntoRegisters(c.regs)
	c.region.bumpCounter()
	return false
}

// NotifyBreakpoint implements vm.Controller. BREAKPOINT has already
// advanced pc past itself; the register file is copied into the
// shared snapshot before the running flag is cleared, so a controller
// that sees the VM paused reads the registers as of the breakpoint.
// Gate then performs the wait/resume dance on the loop's next
// iteration.
func (c *Channel) NotifyBreakpoint() {
	c.region.syncFromRegisters(c.regs)
	c.region.running.Store(false)
}

// IsPaused reports whether the VM has most recently been observed
// paused (running flag clear).
func (c *Channel) IsPaused() bool { return !c.region.running.Load() }

// IsTerminated reports whether termination has been requested.
func (c *Channel) IsTerminated() bool { return c.region.terminate.Load() }

// NotStoppedError is returned by operations that require the VM to be
// paused first.
type NotStoppedError struct{}

func (*NotStoppedError) Error() string { return "debug channel: VM is not paused" }

func (c *Channel) assertStopped() error {
	if c.region.running.Load() {
		return &NotStoppedError{}
	}
	return nil
}

// Pause clears the running flag and waits for the VM to observe it,
// i.e. for the update counter to advance. It is a no-op if the VM is
// already paused or terminated.
func (c *Channel) Pause() {
	if c.region.terminate.Load() || !c.region.running.Load() {
		return
	}
	old := c.region.counter.Load()
	c.region.running.Store(false)
	c.waitForCounter(old)
}

// Resume sets the running flag and waits for the VM to observe it.
func (c *Channel) Resume() {
	if c.region.terminate.Load() {
		return
	}
	old := c.region.counter.Load()
	c.region.running.Store(true)
	c.waitForCounter(old)
}

func (c *Channel) waitForCounter(old uint32) {
	for c.region.counter.Load() == old && !c.region.terminate.Load() {
		c.region.sleep()
	}
}

// Terminate sets the one-shot, irreversible terminate flag.
func (c *Channel) Terminate() { c.region.terminate.Store(true) }

// ReadRegisters returns a copy of the paused VM's register file.
func (c *Channel) ReadRegisters() ([]byte, error) {
	if err := c.assertStopped(); err != nil {
		return nil, err
	}
	return c.region.Registers(), nil
}

// WriteRegisters overwrites the paused VM's register file, picked up
// the next time it resumes.
func (c *Channel) WriteRegisters(b []byte) error {
	if err := c.assertStopped(); err != nil {
		return err
	}
	c.region.WriteRegisters(b)
	return nil
}

// ReadMemory returns a copy of n bytes of VM memory starting at addr.
// Only guaranteed consistent while the VM is paused.
func (c *Channel) ReadMemory(addr uint64, n int) ([]byte, error) {
	data, kind := c.mem.ReadBytes(addr, n)
	if kind != catalog.NoError {
		return nil, fmt.Errorf("debug channel: read memory: %v", kind)
	}
	return data, nil
}

// WriteMemory writes data into VM memory starting at addr. Must only
// be called while the VM is paused.
func (c *Channel) WriteMemory(addr uint64, data []byte) error {
	if err := c.assertStopped(); err != nil {
		return err
	}
	if kind := c.mem.WriteBytes(addr, data); kind != catalog.NoError {
		return fmt.Errorf("debug channel: write memory: %v", kind)
	}
	return nil
}

// AddBreakpoint installs a breakpoint at location, replacing whatever
// opcode byte was there and recording it for restoration. If a
// breakpoint already exists at location, its originally replaced byte
// is preserved and only the persistence flag is updated.
func (c *Channel) AddBreakpoint(location uint64, persistent bool) error {
	if err := c.assertStopped(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.breakpoints[location]
	if !exists {
		b, kind := c.mem.ReadByte(location)
		if kind != catalog.NoError {
			return fmt.Errorf("debug channel: add breakpoint at %d: %v", location, kind)
		}
		entry = breakpointEntry{replaced: b}
	}
	entry.persistent = persistent
	c.breakpoints[location] = entry

	if kind := c.mem.WriteByte(location, byte(catalog.Breakpoint)); kind != catalog.NoError {
		return fmt.Errorf("debug channel: add breakpoint at %d: %v", location, kind)
	}
	return nil
}

// RemoveBreakpoint restores the original opcode at location and drops
// it from the table, if present.
func (c *Channel) RemoveBreakpoint(location uint64) error {
	if err := c.assertStopped(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.breakpoints[location]
	if !ok {
		return nil
	}
	delete(c.breakpoints, location)
	if kind := c.mem.WriteByte(location, entry.replaced); kind != catalog.NoError {
		return fmt.Errorf("debug channel: remove breakpoint at %d: %v", location, kind)
	}
	return nil
}

func (c *Channel) removeIfTemporary(location uint64) {
	entry, ok := c.breakpoints[location]
	if ok && !entry.persistent {
		delete(c.breakpoints, location)
	}
}

// restoreHitInstruction undoes the breakpoint substitution at the
// instruction the VM most recently stopped at (pc-1, since BREAKPOINT
// advances pc past itself before pausing), and reports the address
// and original opcode so the caller can compute where execution
// should go next. ok is false if the VM did not stop at a breakpoint
// (e.g. it was paused directly by the controller).
func (c *Channel) restoreHitInstruction() (addr uint64, op catalog.Opcode, ok bool) {
	pc := c.regs.PC()
	if pc == 0 {
		return 0, 0, false
	}
	hit := pc - 1

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, present := c.breakpoints[hit]
	if !present {
		return 0, 0, false
	}

	c.regs.SetPC(hit)
	// Gate reloads the live registers from the snapshot on resume, so
	// the rewound pc goes into the snapshot as well.
	var snap cpu.Registers
	snap.LoadBytes(c.region.Registers())
	snap.SetPC(hit)
	c.region.WriteRegisters(snap.AsBytes())
	c.mem.WriteByte(hit, entry.replaced)

	if entry.persistent {
		h := hit
		c.lastPersistentBP = &h
	}
	c.removeIfTemporary(hit)

	return hit, catalog.Opcode(entry.replaced), true
}

// StepIn executes exactly one instruction and stops again. If the VM
// is currently stopped at a breakpoint, the replaced instruction is
// restored, its next program counter computed without executing it,
// a temporary breakpoint is installed there, and the VM is resumed so
// it runs exactly that one instruction before stopping again. If a
// persistent breakpoint was just stepped past, it is reinstated
// first.
func (c *Channel) StepIn() error {
	if err := c.assertStopped(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.lastPersistentBP != nil {
		c.mem.WriteByte(*c.lastPersistentBP, byte(catalog.Breakpoint))
		c.lastPersistentBP = nil
	}
	c.mu.Unlock()

	hit, _, ok := c.restoreHitInstruction()
	if ok {
		next, kind := vm.NextProgramCounter(c.mem.Bytes(), hit, c.regs, c.mem)
		if kind != catalog.NoError {
			return fmt.Errorf("debug channel: computing next pc: %v", kind)
		}
		if err := c.AddBreakpoint(next, false); err != nil {
			return err
		}
	}

	c.Resume()
	return nil
}

// Continue restores any breakpoint the VM is currently stopped at (so
// the instruction it replaced actually runs) and resumes execution
// without installing a new temporary breakpoint.
func (c *Channel) Continue() error {
	if err := c.assertStopped(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.lastPersistentBP != nil {
		c.mem.WriteByte(*c.lastPersistentBP, byte(catalog.Breakpoint))
		c.lastPersistentBP = nil
	}
	c.mu.Unlock()

	c.restoreHitInstruction()
	c.Resume()
	return nil
}
