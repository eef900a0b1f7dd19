package debugchan

// Snapshot is a core-dump-style capture of a paused VM: its full
// register file followed by its entire addressable memory, in the
// same order the shared region holds them.
type Snapshot struct {
	Registers []byte
	Memory    []byte
}

// Snapshot captures the paused VM's register file and memory. It is a
// pure read with no side effects on the channel or region.
func (c *Channel) Snapshot() (Snapshot, error) {
	regs, err := c.ReadRegisters()
	if err != nil {
		return Snapshot{}, err
	}
	mem, err := c.ReadMemory(0, c.mem.Size())
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Registers: regs, Memory: mem}, nil
}

// Bytes concatenates the snapshot into one buffer, the on-disk shape
// of a core dump: registers immediately followed by memory.
func (s Snapshot) Bytes() []byte {
	out := make([]byte, 0, len(s.Registers)+len(s.Memory))
	out = append(out, s.Registers...)
	out = append(out, s.Memory...)
	return out
}
