package vm_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rvm/asm"
	"rvm/catalog"
	"rvm/vm"
	"rvm/vm/hostio"
	"rvm/vm/memory"
)

// assembleAndRun writes files into a fresh temp directory, assembles
// main (the key into files) and runs the result to completion,
// returning the VM so the caller can inspect its registers.
func assembleAndRun(t *testing.T, files map[string]string, main string) *vm.VM {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	image, err := asm.Assemble(dir, main, asm.Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	const trailerSize = 8
	code := image[:len(image)-trailerSize]
	entryAddr := readEntry(image)

	mem := memory.New(1 << 16)
	if kind := mem.WriteBytes(0, code); kind != catalog.NoError {
		t.Fatalf("loading program: %v", kind)
	}

	host := hostio.NewHost(os.Stdin, os.Stdout, memory.Address(len(code)), memory.Address(mem.Size()))
	m := vm.New(mem, host, entryAddr)

	var exitErr *vm.ExitError
	if err := m.Run(nil); !errors.As(err, &exitErr) {
		t.Fatalf("run: %v", err)
	}
	return m
}

func readEntry(image []byte) uint64 {
	n := len(image)
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(image[n-8+i]) << (8 * uint(i))
	}
	return v
}

func TestMinimumProgram(t *testing.T) {
	m := assembleAndRun(t, map[string]string{
		"main.asm": "\n.text:\nexit\n",
	}, "main.asm")
	if got := m.Regs.Get(catalog.Error); got != 0 {
		t.Fatalf("error register = %d, want 0", got)
	}
}

func TestAddTwoNumbers(t *testing.T) {
	m := assembleAndRun(t, map[string]string{
		"main.asm": ".text:\nmov8 r1 5\nmov8 r2 7\niadd\nexit\n",
	}, "main.asm")
	if got := m.Regs.Get(catalog.R1); got != 12 {
		t.Fatalf("r1 = %d, want 12", got)
	}
	if got := m.Regs.Get(catalog.ZeroFlag); got != 0 {
		t.Fatalf("zf = %d, want 0", got)
	}
	if got := m.Regs.Get(catalog.SignFlag); got != 0 {
		t.Fatalf("sf = %d, want 0", got)
	}
}

func TestIncludeAndExport(t *testing.T) {
	m := assembleAndRun(t, map[string]string{
		"a.asm": "@@FOO\ndn 8 0xDEADBEEFCAFEBABE\n",
		"b.asm": ".include:\n\"a.asm\"\n.text:\nmov8 r1 [FOO]\nexit\n",
	}, "b.asm")
	if got := m.Regs.Get(catalog.R1); got != 0xDEADBEEFCAFEBABE {
		t.Fatalf("r1 = %#x, want 0xDEADBEEFCAFEBABE", got)
	}
}

func TestInlineMacro(t *testing.T) {
	m := assembleAndRun(t, map[string]string{
		"main.asm": "%- K: 42\n.text:\nmov8 r1 =K\nexit\n",
	}, "main.asm")
	if got := m.Regs.Get(catalog.R1); got != 42 {
		t.Fatalf("r1 = %d, want 42", got)
	}
}

func TestFunctionMacro(t *testing.T) {
	m := assembleAndRun(t, map[string]string{
		"main.asm": "%%- DOUBLE a :\nmov8 r1 {a}\nmov8 r2 {a}\niadd\n%endmacro\n.text:\nmov8 r2 10\n!DOUBLE r2\nexit\n",
	}, "main.asm")
	if got := m.Regs.Get(catalog.R1); got != 20 {
		t.Fatalf("r1 = %d, want 20", got)
	}
}
