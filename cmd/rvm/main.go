// Command rvm loads a binary image produced by rvmasm and runs it to
// completion, reporting the exit code carried in the error register.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"rvm/catalog"
	"rvm/vm"
	"rvm/vm/hostio"
	"rvm/vm/memory"
)

func main() {
	memSize := flag.Int("mem", 1<<20, "VM memory size in bytes")
	storagePath := flag.String("storage", "", "attach a storage file (unsupported: storage-file emulation is out of scope)")
	quiet := flag.Bool("quiet", false, "suppress the exit-code diagnostic on nonzero exit")
	flag.Parse()
	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: rvm [-mem bytes] [-storage path] [-quiet] <image>")
		os.Exit(1)
	}
	if *storagePath != "" {
		fmt.Fprintln(os.Stderr, "rvm: storage files are not supported")
		os.Exit(1)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "rvm:", err)
		os.Exit(1)
	}

	code, entry, err := splitImage(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rvm:", err)
		os.Exit(1)
	}

	mem := memory.New(*memSize)
	if kind := mem.WriteBytes(0, code); kind != catalog.NoError {
		fmt.Fprintln(os.Stderr, "rvm: program does not fit in memory:", kind)
		os.Exit(1)
	}

	host := hostio.NewHost(os.Stdin, os.Stdout, memory.Address(len(code)), memory.Address(*memSize))
	m := vm.New(mem, host, entry)

	err = m.Run(nil)
	exitErr, ok := err.(*vm.ExitError)
	if !ok {
		fmt.Fprintln(os.Stderr, "rvm:", err)
		os.Exit(1)
	}
	if exitErr.Code != 0 && !*quiet {
		fmt.Fprintln(os.Stderr, "rvm: exited with code", exitErr.Code)
	}
	os.Exit(int(exitErr.Code))
}

// splitImage separates the loadable program text from the trailing
// 8-byte entry address. Images built with debug info attach a
// reserved header and trailer around the text too, but those are
// meant for an attached debugger or viewer, not for direct execution,
// so rvm only ever runs the undecorated (non -g) layout.
func splitImage(raw []byte) (code []byte, entry uint64, err error) {
	const trailerSize = 8
	if len(raw) < trailerSize {
		return nil, 0, fmt.Errorf("image too short: %d bytes", len(raw))
	}
	split := len(raw) - trailerSize
	entry = binary.LittleEndian.Uint64(raw[split:])
	return raw[:split], entry, nil
}
