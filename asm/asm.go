// Package asm drives the assembler front end end to end: it resolves
// a main unit through the module manager, tokenizes and parses it
// (recursing into every unit it `.include`s), hands the result to the
// code generator, and stitches the final byte image together with its
// optional debug trailer and entry-point address.
package asm

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"rvm/asm/codegen"
	"rvm/asm/debuginfo"
	"rvm/asm/module"
	"rvm/asm/parser"
	"rvm/asm/symtab"
)

// EntryLabel names the label whose address becomes the program's
// entry point.
const EntryLabel = "text"

// MissingEntryPointError reports that the main unit never defined the
// entry label.
type MissingEntryPointError struct {
	Path string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("%s: missing entry point: no %q label defined", e.Path, EntryLabel)
}

// Options configures one assembly run.
type Options struct {
	IncludePaths []string
	Debug        bool
}

type driver struct {
	mgr     *module.Manager
	gen     *codegen.Generator
	debug   bool
	exports map[string]*symtab.Exported // canonical path -> exported symbols, once assembled
}

// Assemble resolves path relative to callerDir, assembles it and every
// unit it transitively includes into one shared byte image, and
// returns the finished bytes: optional debug header slot, program
// text, failsafe EXIT, optional debug trailer, 8-byte entry address.
func Assemble(callerDir, path string, opts Options) ([]byte, error) {
	mgr := module.New(opts.IncludePaths)
	canonical, err := mgr.ResolvePath(callerDir, path)
	if err != nil {
		return nil, err
	}

	d := &driver{
		mgr:     mgr,
		gen:     codegen.New(opts.Debug),
		debug:   opts.Debug,
		exports: make(map[string]*symtab.Exported),
	}

	var header []byte
	if opts.Debug {
		header = make([]byte, 64) // reserved 4x(start,end) section header, filled in below
	}

	mainSyms := symtab.New()
	if _, err := d.assembleUnit(canonical, mainSyms); err != nil {
		return nil, err
	}

	code, err := d.gen.Finish()
	if err != nil {
		return nil, err
	}

	image := append(header, code...)

	if opts.Debug {
		trailer, sections := debuginfo.Generate(d.gen.Labels, d.gen.Instructions, uint64(len(image)))
		image = append(image, trailer...)
		copy(image[:64], debuginfo.WriteHeader(sections))
	}

	entry, ok := mainSyms.GetResolvedLabel(EntryLabel)
	if !ok {
		return nil, &MissingEntryPointError{Path: canonical}
	}
	trailer := make([]byte, 8)
	binary.LittleEndian.PutUint64(trailer, entry)
	image = append(image, trailer...)

	return image, nil
}

// assembleUnit loads, parses and code-generates canonical if it
// hasn't already been emitted into the shared image, returning its
// exported symbols either way.
func (d *driver) assembleUnit(canonical string, syms *symtab.Table) (*symtab.Exported, error) {
	if exports, ok := d.exports[canonical]; ok {
		return exports, nil
	}

	unit, alreadyLoaded, err := d.mgr.Load(canonical)
	if err != nil {
		return nil, err
	}
	if alreadyLoaded {
		// Loaded earlier but not yet fully assembled, which only a
		// cyclic include reaches (a finished unit was answered from
		// d.exports above) -- nothing further to emit; export what
		// syms, the table the includer passed in, holds so far.
		exports := syms.ExportSymbols()
		d.exports[canonical] = exports
		return exports, nil
	}

	unitDir := filepath.Dir(canonical)

	include := func(requested string, reExport bool) error {
		resolved, err := d.mgr.ResolvePath(unitDir, requested)
		if err != nil {
			return err
		}
		childSyms := symtab.New()
		exports, err := d.assembleUnit(resolved, childSyms)
		if err != nil {
			return err
		}
		return syms.ImportSymbols(exports, reExport)
	}

	nodes, err := parser.Parse(unit.Path, unit.Lines, syms, include)
	if err != nil {
		return nil, err
	}

	if err := d.gen.Walk(nodes, syms); err != nil {
		return nil, err
	}

	exports := syms.ExportSymbols()
	d.exports[canonical] = exports
	return exports, nil
}
