// Package parser expands macros and turns a module's tokenized source
// into a flat sequence of nodes the code generator walks.
package parser

import "rvm/asm/token"

// OperandKind classifies one instruction operand as written in source,
// before codegen resolves it to a wire-level addressing mode.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandAddrInRegister
	OperandNumber
	OperandAddrLiteral
	OperandLabel
	OperandAddrAtLabel
	OperandCurrentPos
)

// Operand is one parsed instruction argument.
type Operand struct {
	Kind     OperandKind
	Register string // register mnemonic, for OperandRegister/OperandAddrInRegister
	Number   uint64 // for OperandNumber/OperandAddrLiteral
	IsFloat  bool
	Float    float64
	Label    string // for OperandLabel/OperandAddrAtLabel
	Source   token.Token
}

// NodeKind discriminates the entries codegen walks.
type NodeKind int

const (
	NodeLabel NodeKind = iota
	NodeInstruction
	NodeRawBytes
	NodeNumber
	NodeOffsetFrom
)

// Node is one codegen-ready unit of work: either a label definition, an
// instruction with resolved mnemonic and operands, or one of the
// pseudo-instruction payload kinds.
type Node struct {
	Kind   NodeKind
	Source token.Token

	// NodeLabel
	LabelName string
	Export    bool

	// NodeInstruction
	Mnemonic string
	Operands []Operand

	// NodeRawBytes (ds/dcs/db)
	Bytes []byte

	// NodeNumber (dn)
	NumberSize uint8
	Number     uint64

	// NodeOffsetFrom (offsetfrom LABEL)
	OffsetLabel string
}
