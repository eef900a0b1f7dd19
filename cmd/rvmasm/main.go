// Command rvmasm assembles a textual program into a binary image,
// following the module's main unit through every file it includes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rvm/asm"
)

// includePathList collects repeated -I flags into a slice, in the
// order given on the command line.
type includePathList []string

func (l *includePathList) String() string { return strings.Join(*l, ":") }

func (l *includePathList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var includes includePathList
	flag.Var(&includes, "I", "additional include search path (repeatable)")
	output := flag.String("o", "", "output image path (default: input path with .bin extension)")
	debugInfo := flag.Bool("g", false, "emit debug info section (labels, source positions)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: rvmasm [-I path]... [-o output] [-g] <input>")
		os.Exit(1)
	}
	input := args[0]

	out := *output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".bin"
	}

	callerDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rvmasm:", err)
		os.Exit(1)
	}

	image, err := asm.Assemble(callerDir, input, asm.Options{
		IncludePaths: []string(includes),
		Debug:        *debugInfo,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "rvmasm:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(out, image, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "rvmasm:", err)
		os.Exit(1)
	}
}
