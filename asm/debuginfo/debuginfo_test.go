package debuginfo_test

import (
	"testing"

	"rvm/asm/codegen"
	"rvm/asm/debuginfo"
	"rvm/asm/token"
)

func TestRoundTrip(t *testing.T) {
	labels := []codegen.LabelRecord{
		{Name: "main", Address: 0, Source: token.Token{Module: "a.asm", Line: 3, Col: 1}},
		{Name: "loop", Address: 11, Source: token.Token{Module: "a.asm", Line: 5, Col: 1}},
		{Name: "helper", Address: 30, Source: token.Token{Module: "b.asm", Line: 2, Col: 1}},
	}
	instructions := []codegen.InstructionRecord{
		{PC: 0, Source: token.Token{Module: "a.asm", Line: 3, Col: 1}},
		{PC: 11, Source: token.Token{Module: "a.asm", Line: 4, Col: 1}},
		{PC: 30, Source: token.Token{Module: "b.asm", Line: 2, Col: 1}},
	}

	trailer, sections := debuginfo.Generate(labels, instructions, 0)

	header := debuginfo.WriteHeader(sections)
	parsed, ok := debuginfo.ParseHeader(header)
	if !ok {
		t.Fatal("ParseHeader failed on a freshly written header")
	}
	if parsed != sections {
		t.Fatalf("parsed sections = %+v, want %+v", parsed, sections)
	}

	gotLabels := debuginfo.ReadLabels(trailer, parsed)
	if len(gotLabels) != len(labels) {
		t.Fatalf("got %d labels, want %d", len(gotLabels), len(labels))
	}
	for i, want := range labels {
		got := gotLabels[i]
		if got.Name != want.Name || got.Address != want.Address ||
			got.SourceFile != want.Source.Module ||
			got.Line != uint32(want.Source.Line) || got.Column != uint32(want.Source.Col) {
			t.Fatalf("label %d = %+v, want name=%s addr=%d file=%s line=%d col=%d",
				i, got, want.Name, want.Address, want.Source.Module, want.Source.Line, want.Source.Col)
		}
	}

	gotInstructions := debuginfo.ReadInstructions(trailer, parsed)
	if len(gotInstructions) != len(instructions) {
		t.Fatalf("got %d instructions, want %d", len(gotInstructions), len(instructions))
	}
	for i, want := range instructions {
		got := gotInstructions[i]
		if got.PC != want.PC || got.SourceFile != want.Source.Module ||
			got.Line != uint32(want.Source.Line) || got.Column != uint32(want.Source.Col) {
			t.Fatalf("instruction %d = %+v, want pc=%d file=%s line=%d col=%d",
				i, got, want.PC, want.Source.Module, want.Source.Line, want.Source.Col)
		}
	}
}

func TestDedupedNamePool(t *testing.T) {
	labels := []codegen.LabelRecord{
		{Name: "dup", Address: 1, Source: token.Token{Module: "a.asm", Line: 1, Col: 1}},
		{Name: "dup", Address: 2, Source: token.Token{Module: "a.asm", Line: 2, Col: 1}},
	}
	trailer, sections := debuginfo.Generate(labels, nil, 0)
	got := debuginfo.ReadLabels(trailer, sections)
	if len(got) != 2 || got[0].Name != "dup" || got[1].Name != "dup" {
		t.Fatalf("expected both records to decode to the deduped name, got %+v", got)
	}
	if sections.LabelNames.End-sections.LabelNames.Start != uint64(len("dup")+1) {
		t.Fatalf("expected the name pool to contain exactly one copy of %q", "dup")
	}
}
