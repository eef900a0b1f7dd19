// Package symtab tracks the labels, inline macros, function macros and
// interned string statics a single compilation unit declares, and the
// subset of each it re-exports to importers.
package symtab

import (
	"fmt"

	"rvm/asm/token"
)

// LabelDef is a declared label: its defining token for diagnostics, and
// its resolved address once codegen has assigned one.
type LabelDef struct {
	Name   string
	Source token.Token
	Value  *uint64
}

// Resolved reports whether the label has been assigned an address yet.
func (d *LabelDef) Resolved() bool { return d.Value != nil }

// InlineMacroDef is a `=NAME body...` substitution: every occurrence of
// NAME is replaced by Body before parsing continues.
type InlineMacroDef struct {
	Name   string
	Source token.Token
	Body   []token.Token
}

// FunctionMacroDef is a `!NAME(params) body` substitution: Params maps a
// parameter name to its positional index in an invocation, and Body is
// the macro's token lines with `{param}` placeholders left intact for
// the parser to substitute per-invocation.
type FunctionMacroDef struct {
	Name   string
	Source token.Token
	Params map[string]int
	Body   token.TokenLines
}

// StaticID identifies one interned static value, stable for the
// lifetime of the Table that produced it.
type StaticID int

// Static is presently only a string literal; the assembler has no
// array or struct static data.
type Static struct {
	String string
}

// RedeclarationError reports that a symbol name was declared twice in a
// scope where that isn't allowed (either two local declarations, or an
// import colliding with an existing or previously imported symbol).
type RedeclarationError struct {
	Kind   string // "label", "inline macro", "function macro"
	Name   string
	First  token.Token
	Second token.Token
}

func (e *RedeclarationError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s %q already declared at %s:%d:%d",
		e.Second.Module, e.Second.Line, e.Second.Col, e.Kind, e.Name,
		e.First.Module, e.First.Line, e.First.Col)
}

// Table is one compilation unit's symbol namespace. A zero Table is not
// usable; construct with New.
type Table struct {
	labels         map[string]*LabelDef
	inlineMacros   map[string]*InlineMacroDef
	functionMacros map[string]*FunctionMacroDef
	statics        []Static

	exportLabels   []string
	exportInline   []string
	exportFunction []string
}

// New builds an empty symbol table.
func New() *Table {
	return &Table{
		labels:         make(map[string]*LabelDef),
		inlineMacros:   make(map[string]*InlineMacroDef),
		functionMacros: make(map[string]*FunctionMacroDef),
	}
}

// DeclareLabel registers a new, as-yet-unresolved label. Redeclaring an
// existing name is a RedeclarationError; the caller decides whether
// that's fatal.
func (t *Table) DeclareLabel(name string, source token.Token, export bool) error {
	if old, ok := t.labels[name]; ok {
		return &RedeclarationError{"label", name, old.Source, source}
	}
	t.labels[name] = &LabelDef{Name: name, Source: source}
	if export {
		t.exportLabels = append(t.exportLabels, name)
	}
	return nil
}

// DefineLabel assigns the resolved address of an already-declared
// label. Panics if name was never declared, mirroring the assembler's
// invariant that definition always follows declaration within the same
// pass.
func (t *Table) DefineLabel(name string, address uint64) {
	d, ok := t.labels[name]
	if !ok {
		panic("symtab: DefineLabel of undeclared label " + name)
	}
	v := address
	d.Value = &v
}

// GetResolvedLabel returns the address of a defined label.
func (t *Table) GetResolvedLabel(name string) (uint64, bool) {
	d, ok := t.labels[name]
	if !ok || d.Value == nil {
		return 0, false
	}
	return *d.Value, true
}

// GetLabel returns the raw label definition, resolved or not, for
// diagnostics (e.g. reporting every still-undefined label at the end of
// a pass).
func (t *Table) GetLabel(name string) (*LabelDef, bool) {
	d, ok := t.labels[name]
	return d, ok
}

// DeclareInlineMacro registers a `=NAME` substitution.
func (t *Table) DeclareInlineMacro(name string, source token.Token, body []token.Token, export bool) error {
	if old, ok := t.inlineMacros[name]; ok {
		return &RedeclarationError{"inline macro", name, old.Source, source}
	}
	t.inlineMacros[name] = &InlineMacroDef{Name: name, Source: source, Body: body}
	if export {
		t.exportInline = append(t.exportInline, name)
	}
	return nil
}

// GetInlineMacro looks up an inline macro by name.
func (t *Table) GetInlineMacro(name string) (*InlineMacroDef, bool) {
	m, ok := t.inlineMacros[name]
	return m, ok
}

// DeclareFunctionMacro registers a `!NAME` parameterized macro.
func (t *Table) DeclareFunctionMacro(name string, source token.Token, params map[string]int, body token.TokenLines, export bool) error {
	if old, ok := t.functionMacros[name]; ok {
		return &RedeclarationError{"function macro", name, old.Source, source}
	}
	t.functionMacros[name] = &FunctionMacroDef{Name: name, Source: source, Params: params, Body: body}
	if export {
		t.exportFunction = append(t.exportFunction, name)
	}
	return nil
}

// GetFunctionMacro looks up a function macro by name.
func (t *Table) GetFunctionMacro(name string) (*FunctionMacroDef, bool) {
	m, ok := t.functionMacros[name]
	return m, ok
}

// DeclareStatic records a string literal and returns the ID GetStatic
// looks it up by. Code generation does not read the recorded statics.
func (t *Table) DeclareStatic(s string) StaticID {
	id := StaticID(len(t.statics))
	t.statics = append(t.statics, Static{String: s})
	return id
}

// GetStatic returns a previously interned static by ID.
func (t *Table) GetStatic(id StaticID) Static {
	return t.statics[id]
}

// Exported bundles one unit's exported symbols, ready to be merged into
// an importing unit's table.
type Exported struct {
	Labels         []*LabelDef
	InlineMacros   []*InlineMacroDef
	FunctionMacros []*FunctionMacroDef
}

// ExportSymbols collects the subset of t's symbols that were declared
// with export=true.
func (t *Table) ExportSymbols() *Exported {
	e := &Exported{
		Labels:         make([]*LabelDef, 0, len(t.exportLabels)),
		InlineMacros:   make([]*InlineMacroDef, 0, len(t.exportInline)),
		FunctionMacros: make([]*FunctionMacroDef, 0, len(t.exportFunction)),
	}
	for _, name := range t.exportLabels {
		e.Labels = append(e.Labels, t.labels[name])
	}
	for _, name := range t.exportInline {
		e.InlineMacros = append(e.InlineMacros, t.inlineMacros[name])
	}
	for _, name := range t.exportFunction {
		e.FunctionMacros = append(e.FunctionMacros, t.functionMacros[name])
	}
	return e
}

// ImportSymbols merges an importer's exported symbols into t. When
// reExport is true, the imported names are also added to t's own export
// lists, so a module can re-publish symbols it only pulled in via
// include. Any name collision with an existing or already-imported
// symbol is a RedeclarationError.
func (t *Table) ImportSymbols(imports *Exported, reExport bool) error {
	for _, l := range imports.Labels {
		if old, ok := t.labels[l.Name]; ok {
			return &RedeclarationError{"label", l.Name, old.Source, l.Source}
		}
		t.labels[l.Name] = l
		if reExport {
			t.exportLabels = append(t.exportLabels, l.Name)
		}
	}
	for _, m := range imports.InlineMacros {
		if old, ok := t.inlineMacros[m.Name]; ok {
			return &RedeclarationError{"inline macro", m.Name, old.Source, m.Source}
		}
		t.inlineMacros[m.Name] = m
		if reExport {
			t.exportInline = append(t.exportInline, m.Name)
		}
	}
	for _, m := range imports.FunctionMacros {
		if old, ok := t.functionMacros[m.Name]; ok {
			return &RedeclarationError{"function macro", m.Name, old.Source, m.Source}
		}
		t.functionMacros[m.Name] = m
		if reExport {
			t.exportFunction = append(t.exportFunction, m.Name)
		}
	}
	return nil
}
