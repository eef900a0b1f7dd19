package symtab_test

import (
	"testing"

	"rvm/asm/symtab"
	"rvm/asm/token"
)

func tok(name string) token.Token {
	return token.Token{Kind: token.Ident, Text: name, Module: "t.asm", Line: 1, Col: 1}
}

func TestDeclareRedeclareLabel(t *testing.T) {
	tbl := symtab.New()
	if err := tbl.DeclareLabel("foo", tok("foo"), false); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	err := tbl.DeclareLabel("foo", tok("foo"), false)
	if _, ok := err.(*symtab.RedeclarationError); !ok {
		t.Fatalf("expected RedeclarationError, got %v", err)
	}
}

func TestDefineAndResolveLabel(t *testing.T) {
	tbl := symtab.New()
	if err := tbl.DeclareLabel("foo", tok("foo"), false); err != nil {
		t.Fatal(err)
	}
	if _, ok := tbl.GetResolvedLabel("foo"); ok {
		t.Fatal("label should be unresolved before DefineLabel")
	}
	tbl.DefineLabel("foo", 42)
	addr, ok := tbl.GetResolvedLabel("foo")
	if !ok || addr != 42 {
		t.Fatalf("GetResolvedLabel = (%d, %v), want (42, true)", addr, ok)
	}
}

func TestExportImportSymbols(t *testing.T) {
	producer := symtab.New()
	if err := producer.DeclareLabel("PUB", tok("PUB"), true); err != nil {
		t.Fatal(err)
	}
	if err := producer.DeclareLabel("priv", tok("priv"), false); err != nil {
		t.Fatal(err)
	}
	producer.DefineLabel("PUB", 100)
	producer.DefineLabel("priv", 200)

	exports := producer.ExportSymbols()
	if len(exports.Labels) != 1 || exports.Labels[0].Name != "PUB" {
		t.Fatalf("expected only PUB exported, got %+v", exports.Labels)
	}

	consumer := symtab.New()
	if err := consumer.ImportSymbols(exports, false); err != nil {
		t.Fatal(err)
	}
	addr, ok := consumer.GetResolvedLabel("PUB")
	if !ok || addr != 100 {
		t.Fatalf("imported PUB = (%d, %v), want (100, true)", addr, ok)
	}
	if _, ok := consumer.GetResolvedLabel("priv"); ok {
		t.Fatal("priv should not be visible to the importer")
	}

	// The consumer did not itself declare PUB as exported, so it
	// should not re-export it by default.
	if len(consumer.ExportSymbols().Labels) != 0 {
		t.Fatal("import without re-export should not add to the importer's own export list")
	}
}

func TestImportReExport(t *testing.T) {
	producer := symtab.New()
	if err := producer.DeclareLabel("PUB", tok("PUB"), true); err != nil {
		t.Fatal(err)
	}
	producer.DefineLabel("PUB", 7)
	exports := producer.ExportSymbols()

	relay := symtab.New()
	if err := relay.ImportSymbols(exports, true); err != nil {
		t.Fatal(err)
	}
	if len(relay.ExportSymbols().Labels) != 1 {
		t.Fatal("re-exported import should appear in the relay's own export list")
	}
}

func TestImportCollision(t *testing.T) {
	a := symtab.New()
	if err := a.DeclareLabel("X", tok("X"), true); err != nil {
		t.Fatal(err)
	}
	a.DefineLabel("X", 1)

	consumer := symtab.New()
	if err := consumer.DeclareLabel("X", tok("X"), false); err != nil {
		t.Fatal(err)
	}
	err := consumer.ImportSymbols(a.ExportSymbols(), false)
	if _, ok := err.(*symtab.RedeclarationError); !ok {
		t.Fatalf("expected RedeclarationError on import collision, got %v", err)
	}
}
