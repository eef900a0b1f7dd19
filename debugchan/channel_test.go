package debugchan_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rvm/asm"
	"rvm/catalog"
	"rvm/debugchan"
	"rvm/vm"
	"rvm/vm/cpu"
	"rvm/vm/hostio"
	"rvm/vm/memory"
)

// buildImage assembles src and returns its loadable code and entry pc.
func buildImage(t *testing.T, src string) ([]byte, uint64) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.asm"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	image, err := asm.Assemble(dir, "main.asm", asm.Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	const trailerSize = 8
	code := image[:len(image)-trailerSize]
	var entry uint64
	for i := 0; i < trailerSize; i++ {
		entry |= uint64(image[len(code)+i]) << (8 * uint(i))
	}
	return code, entry
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBreakpointStepIn(t *testing.T) {
	code, entry := buildImage(t, ".text:\nmov8 r1 1\nmov8 r2 2\niadd\nexit\n")

	region := debugchan.NewRegion(1 << 16)
	mem := memory.New(len(region.Memory()))
	mem.SetBacking(region.Memory())
	if kind := mem.WriteBytes(0, code); kind != catalog.NoError {
		t.Fatalf("loading program: %v", kind)
	}

	host := hostio.NewHost(strings.NewReader(""), &bytes.Buffer{}, memory.Address(len(code)), memory.Address(mem.Size()))
	m := vm.New(mem, host, entry)
	ch := debugchan.New(region, &m.Regs, mem)

	runDone := make(chan error, 1)
	go func() { runDone <- m.Run(ch) }()

	ch.Pause()
	if !ch.IsPaused() {
		t.Fatal("channel should report paused after Pause")
	}

	const iaddPC = 22
	if got, kind := mem.ReadByte(iaddPC); kind != catalog.NoError || catalog.Opcode(got) != catalog.IntegerAdd {
		t.Fatalf("expected iadd opcode at %d, got %d (err %v)", iaddPC, got, kind)
	}
	if err := ch.AddBreakpoint(iaddPC, true); err != nil {
		t.Fatalf("add breakpoint: %v", err)
	}
	if b, kind := mem.ReadByte(iaddPC); kind != catalog.NoError || catalog.Opcode(b) != catalog.Breakpoint {
		t.Fatalf("expected BREAKPOINT opcode installed at %d", iaddPC)
	}

	ch.Resume()
	waitUntil(t, ch.IsPaused)

	if pc := m.Regs.PC(); pc != iaddPC+1 {
		t.Fatalf("pc = %d, want %d (one past the breakpoint)", pc, iaddPC+1)
	}

	if err := ch.StepIn(); err != nil {
		t.Fatalf("step in: %v", err)
	}
	waitUntil(t, ch.IsPaused)

	regs, err := ch.ReadRegisters()
	if err != nil {
		t.Fatalf("read registers: %v", err)
	}
	var decoded cpu.Registers
	decoded.LoadBytes(regs)
	if got := decoded.Get(catalog.R1); got != 3 {
		t.Fatalf("r1 = %d, want 3", got)
	}

	if b, kind := mem.ReadByte(iaddPC); kind != catalog.NoError || catalog.Opcode(b) != catalog.IntegerAdd {
		t.Fatalf("breakpoint byte at %d should be restored to iadd, got %d", iaddPC, b)
	}

	ch.Terminate()
	<-runDone
}

func TestSnapshot(t *testing.T) {
	code, entry := buildImage(t, ".text:\nmov8 r1 9\nexit\n")

	region := debugchan.NewRegion(1 << 12)
	mem := memory.New(len(region.Memory()))
	mem.SetBacking(region.Memory())
	if kind := mem.WriteBytes(0, code); kind != catalog.NoError {
		t.Fatalf("loading program: %v", kind)
	}
	host := hostio.NewHost(strings.NewReader(""), &bytes.Buffer{}, memory.Address(len(code)), memory.Address(mem.Size()))
	m := vm.New(mem, host, entry)
	ch := debugchan.New(region, &m.Regs, mem)

	runDone := make(chan error, 1)
	go func() { runDone <- m.Run(ch) }()

	ch.Pause()
	snap, err := ch.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Memory) != mem.Size() {
		t.Fatalf("snapshot memory length = %d, want %d", len(snap.Memory), mem.Size())
	}
	if got := len(snap.Bytes()); got != len(snap.Registers)+len(snap.Memory) {
		t.Fatalf("Bytes() length = %d, want registers+memory", got)
	}
	var decoded cpu.Registers
	decoded.LoadBytes(snap.Registers)
	if got := len(snap.Registers); got != catalog.RegisterCount*catalog.RegisterContentSize {
		t.Fatalf("register snapshot length = %d, want %d", got, catalog.RegisterCount*catalog.RegisterContentSize)
	}

	ch.Terminate()
	<-runDone
}

func TestPauseResumeLiveness(t *testing.T) {
	code, entry := buildImage(t, ".text:\nmov8 r1 1\nmov8 r1 1\nmov8 r1 1\nexit\n")

	region := debugchan.NewRegion(1 << 16)
	mem := memory.New(len(region.Memory()))
	mem.SetBacking(region.Memory())
	if kind := mem.WriteBytes(0, code); kind != catalog.NoError {
		t.Fatalf("loading program: %v", kind)
	}
	host := hostio.NewHost(strings.NewReader(""), &bytes.Buffer{}, memory.Address(len(code)), memory.Address(mem.Size()))
	m := vm.New(mem, host, entry)
	ch := debugchan.New(region, &m.Regs, mem)

	runDone := make(chan error, 1)
	go func() { runDone <- m.Run(ch) }()

	for i := 0; i < 5; i++ {
		ch.Pause()
		if !ch.IsPaused() {
			t.Fatal("expected paused")
		}
		ch.Resume()
	}

	ch.Terminate()
	<-runDone
}
