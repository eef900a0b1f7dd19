package asm_test

import (
	"os"
	"path/filepath"
	"testing"

	"rvm/asm"
	"rvm/asm/codegen"
)

func writeAndAssemble(t *testing.T, src string) ([]byte, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.asm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return asm.Assemble(dir, path, asm.Options{})
}

func TestMissingEntryPoint(t *testing.T) {
	_, err := writeAndAssemble(t, ".data:\ndn 8 1\n")
	if err == nil {
		t.Fatal("expected an error for a program with no .text label")
	}
	if _, ok := err.(*asm.MissingEntryPointError); !ok {
		t.Fatalf("expected *asm.MissingEntryPointError, got %T: %v", err, err)
	}
}

func TestArityMismatchOnImplicitMnemonic(t *testing.T) {
	_, err := writeAndAssemble(t, ".text:\nmov8 r1 1\nmov8 r2 2\niadd r1 r2\nexit\n")
	if err == nil {
		t.Fatal("expected an arity mismatch error for iadd with operands")
	}
	cerr, ok := err.(*codegen.Error)
	if !ok {
		t.Fatalf("expected *codegen.Error, got %T: %v", err, err)
	}
	if cerr.Kind != codegen.ArgumentArityMismatch {
		t.Fatalf("error kind = %v, want ArgumentArityMismatch", cerr.Kind)
	}
}

func TestUnknownMnemonic(t *testing.T) {
	_, err := writeAndAssemble(t, ".text:\nbogus 1 2\nexit\n")
	if err == nil {
		t.Fatal("expected an unknown-mnemonic error")
	}
	cerr, ok := err.(*codegen.Error)
	if !ok {
		t.Fatalf("expected *codegen.Error, got %T: %v", err, err)
	}
	if cerr.Kind != codegen.UnknownMnemonic {
		t.Fatalf("error kind = %v, want UnknownMnemonic", cerr.Kind)
	}
}

func TestUnresolvedInclude(t *testing.T) {
	_, err := writeAndAssemble(t, ".include:\n\"does-not-exist.asm\"\n.text:\nexit\n")
	if err == nil {
		t.Fatal("expected a path resolution error for a missing include")
	}
}
