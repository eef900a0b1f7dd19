// Package codegen turns a parsed node sequence into a byte image,
// resolving labels against the table parser.Parse already populated.
package codegen

import "rvm/catalog"

// OperandClass names the addressing mode of one emitted operand. It
// mirrors the VM decoder's addrMode one for one; the two are kept as
// separate types because they belong to different sides of the wire
// format, not because they can diverge.
type OperandClass int

const (
	ClassReg OperandClass = iota
	ClassAddrInReg
	ClassConst
	ClassAddrLiteral
)

// pair is a lookup key for two-operand instruction families.
type pair struct {
	dst, src OperandClass
}

// handledSizeWidth is the fixed on-wire width of the "handled size" byte.
const handledSizeWidth = catalog.HandledSizeSpecifierSize
