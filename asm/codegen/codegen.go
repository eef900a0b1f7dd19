package codegen

import (
	"encoding/binary"

	"rvm/asm/parser"
	"rvm/asm/symtab"
	"rvm/asm/token"
	"rvm/catalog"
)

// LabelRecord pins a resolved label to the debug info the generator
// collected while walking, for asm/debuginfo to serialise.
type LabelRecord struct {
	Name    string
	Address uint64
	Source  token.Token
}

// InstructionRecord pins one emitted instruction's starting offset to
// its source position.
type InstructionRecord struct {
	PC     uint64
	Source token.Token
}

type patchKind int

const (
	patchAddress patchKind = iota // fixed 8-byte address/addrLiteral slot
	patchConst                    // sizeVal-byte constant slot (bare label used as a number)
	patchOffset                   // offsetfrom: (pos - label address), 8 bytes, signed
)

type patch struct {
	kind  patchKind
	pos   int
	width uint8
	label string
	syms  *symtab.Table
	at    token.Token
}

// Generator walks parsed node sequences from one or more units into a
// single shared byte image. Each unit keeps its own symbol table, so
// Walk takes the table to resolve that unit's labels against; patches
// remember which table they belong to and are resolved at Finish,
// once every included unit has been walked.
type Generator struct {
	debug   bool
	code    []byte
	patches []patch
	syms    *symtab.Table // table of the unit currently being walked; set by Walk

	Labels       []LabelRecord
	Instructions []InstructionRecord
}

// New builds an empty Generator. When debug is true, label and
// instruction records are collected as each unit is walked.
func New(debug bool) *Generator {
	return &Generator{debug: debug}
}

// Len reports the current length of the byte image, i.e. the address
// the next emitted byte would occupy.
func (g *Generator) Len() uint64 { return uint64(len(g.code)) }

// Walk appends the bytes for every node in nodes to the image,
// resolving and defining labels against syms.
func (g *Generator) Walk(nodes []parser.Node, syms *symtab.Table) error {
	g.syms = syms
	for _, n := range nodes {
		switch n.Kind {
		case parser.NodeLabel:
			addr := g.Len()
			g.syms.DefineLabel(n.LabelName, addr)
			if g.debug {
				g.Labels = append(g.Labels, LabelRecord{Name: n.LabelName, Address: addr, Source: n.Source})
			}

		case parser.NodeInstruction:
			if g.debug {
				g.Instructions = append(g.Instructions, InstructionRecord{PC: g.Len(), Source: n.Source})
			}
			if err := g.emitInstruction(n); err != nil {
				return err
			}

		case parser.NodeRawBytes:
			g.code = append(g.code, n.Bytes...)

		case parser.NodeNumber:
			if err := g.emitSizedLiteral(n.Source, n.Number, n.NumberSize); err != nil {
				return err
			}

		case parser.NodeOffsetFrom:
			g.patches = append(g.patches, patch{kind: patchOffset, pos: len(g.code), width: 8, label: n.OffsetLabel, syms: g.syms, at: n.Source})
			g.code = append(g.code, make([]byte, 8)...)
		}
	}
	return nil
}

// Finish appends the failsafe EXIT opcode and resolves every deferred
// label reference, returning the final byte image.
func (g *Generator) Finish() ([]byte, error) {
	g.code = append(g.code, byte(catalog.Exit))

	for _, p := range g.patches {
		addr, ok := p.syms.GetResolvedLabel(p.label)
		if !ok {
			return nil, errAt(UnresolvedLabel, p.at, "undefined label %q", p.label)
		}
		switch p.kind {
		case patchAddress:
			binary.LittleEndian.PutUint64(g.code[p.pos:p.pos+8], addr)
		case patchConst:
			if minBytesFor(addr) > int(p.width) {
				return nil, errAt(NumberTooLarge, p.at, "label %q address does not fit in %d byte(s)", p.label, p.width)
			}
			putUintSized(g.code[p.pos:p.pos+int(p.width)], addr, p.width)
		case patchOffset:
			offset := uint64(int64(p.pos) - int64(addr))
			binary.LittleEndian.PutUint64(g.code[p.pos:p.pos+8], offset)
		}
	}
	return g.code, nil
}

func (g *Generator) emitSizedLiteral(at token.Token, value uint64, size uint8) error {
	if minBytesFor(value) > int(size) {
		return errAt(NumberTooLarge, at, "value does not fit in %d byte(s)", size)
	}
	buf := make([]byte, size)
	putUintSized(buf, value, size)
	g.code = append(g.code, buf...)
	return nil
}

func (g *Generator) emitInstruction(n parser.Node) error {
	sp, ok := mnemonics[n.Mnemonic]
	if !ok {
		return errAt(UnknownMnemonic, n.Source, "unknown mnemonic %q", n.Mnemonic)
	}

	switch sp.shape {
	case shapeImplicit:
		if len(n.Operands) != 0 {
			return errAt(ArgumentArityMismatch, n.Source, "%q takes no operands", n.Mnemonic)
		}
		g.code = append(g.code, byte(sp.opcode))
		return nil

	case shapeOneReg:
		if len(n.Operands) != 1 || n.Operands[0].Kind != parser.OperandRegister {
			return errAt(OperandTypeMismatch, n.Source, "%q expects a single register operand", n.Mnemonic)
		}
		reg, ok := catalog.RegisterFromName(n.Operands[0].Register)
		if !ok {
			return errAt(OperandTypeMismatch, n.Operands[0].Source, "unknown register %q", n.Operands[0].Register)
		}
		g.code = append(g.code, byte(sp.opcode), byte(reg))
		return nil

	case shapeAddress:
		if len(n.Operands) != 1 {
			return errAt(ArgumentArityMismatch, n.Source, "%q expects one address operand", n.Mnemonic)
		}
		g.code = append(g.code, byte(sp.opcode))
		return g.emitAddressOperand(n.Operands[0])

	case shapeOneOperand, shapePopInto:
		if len(n.Operands) != 1 {
			return errAt(ArgumentArityMismatch, n.Source, "%q expects one operand", n.Mnemonic)
		}
		class, err := classify(n.Operands[0])
		if err != nil {
			return err
		}
		opcode, ok := sp.one[class]
		if !ok {
			return errAt(OperandTypeMismatch, n.Operands[0].Source, "%q does not accept this operand form", n.Mnemonic)
		}
		g.code = append(g.code, byte(opcode))
		if sp.sized {
			g.code = append(g.code, sp.sizeVal)
		}
		return g.emitOperand(class, n.Operands[0], sp.sizeVal)

	case shapeTwoOperand:
		if len(n.Operands) != 2 {
			return errAt(ArgumentArityMismatch, n.Source, "%q expects two operands", n.Mnemonic)
		}
		dstClass, err := classify(n.Operands[0])
		if err != nil {
			return err
		}
		srcClass, err := classify(n.Operands[1])
		if err != nil {
			return err
		}
		opcode, ok := sp.two[pair{dstClass, srcClass}]
		if !ok {
			return errAt(OperandTypeMismatch, n.Source, "%q does not accept this operand combination", n.Mnemonic)
		}
		g.code = append(g.code, byte(opcode))
		if sp.sized {
			g.code = append(g.code, sp.sizeVal)
		}
		if err := g.emitOperand(dstClass, n.Operands[0], sp.sizeVal); err != nil {
			return err
		}
		return g.emitOperand(srcClass, n.Operands[1], sp.sizeVal)

	case shapeMemCopy:
		if len(n.Operands) != 3 {
			return errAt(ArgumentArityMismatch, n.Source, "%q expects destination, source and count", n.Mnemonic)
		}
		if n.Operands[0].Kind != parser.OperandRegister || n.Operands[1].Kind != parser.OperandRegister {
			return errAt(OperandTypeMismatch, n.Source, "%q expects register destination and source", n.Mnemonic)
		}
		countClass, err := classify(n.Operands[2])
		if err != nil {
			return err
		}
		opcode, ok := sp.one[countClass]
		if !ok {
			return errAt(OperandTypeMismatch, n.Operands[2].Source, "%q does not accept this count operand form", n.Mnemonic)
		}
		dstReg, ok := catalog.RegisterFromName(n.Operands[0].Register)
		if !ok {
			return errAt(OperandTypeMismatch, n.Operands[0].Source, "unknown register %q", n.Operands[0].Register)
		}
		srcReg, ok := catalog.RegisterFromName(n.Operands[1].Register)
		if !ok {
			return errAt(OperandTypeMismatch, n.Operands[1].Source, "unknown register %q", n.Operands[1].Register)
		}
		g.code = append(g.code, byte(opcode))
		if sp.sized {
			g.code = append(g.code, sp.sizeVal)
		}
		g.code = append(g.code, byte(dstReg), byte(srcReg))
		return g.emitOperand(countClass, n.Operands[2], sp.sizeVal)

	default:
		return errAt(UnknownMnemonic, n.Source, "unhandled instruction shape for %q", n.Mnemonic)
	}
}

// classify maps a source-level operand to its wire addressing class.
func classify(op parser.Operand) (OperandClass, error) {
	switch op.Kind {
	case parser.OperandRegister:
		return ClassReg, nil
	case parser.OperandAddrInRegister:
		return ClassAddrInReg, nil
	case parser.OperandNumber, parser.OperandCurrentPos, parser.OperandLabel:
		return ClassConst, nil
	case parser.OperandAddrLiteral, parser.OperandAddrAtLabel:
		return ClassAddrLiteral, nil
	default:
		return 0, errAt(OperandTypeMismatch, op.Source, "unrecognized operand")
	}
}

func (g *Generator) emitOperand(class OperandClass, op parser.Operand, sizeVal uint8) error {
	switch class {
	case ClassReg, ClassAddrInReg:
		reg, ok := catalog.RegisterFromName(op.Register)
		if !ok {
			return errAt(OperandTypeMismatch, op.Source, "unknown register %q", op.Register)
		}
		g.code = append(g.code, byte(reg))
		return nil

	case ClassConst:
		switch op.Kind {
		case parser.OperandNumber:
			if op.IsFloat && sizeVal < 8 {
				return errAt(NumberTooLarge, op.Source, "floating point literal requires 8 bytes")
			}
			return g.emitSizedLiteral(op.Source, op.Number, sizeVal)
		case parser.OperandCurrentPos:
			return g.emitSizedLiteral(op.Source, g.Len(), sizeVal)
		case parser.OperandLabel:
			g.patches = append(g.patches, patch{kind: patchConst, pos: len(g.code), width: sizeVal, label: op.Label, syms: g.syms, at: op.Source})
			g.code = append(g.code, make([]byte, sizeVal)...)
			return nil
		default:
			return errAt(OperandTypeMismatch, op.Source, "expected a numeric operand")
		}

	case ClassAddrLiteral:
		switch op.Kind {
		case parser.OperandAddrLiteral:
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, op.Number)
			g.code = append(g.code, buf...)
			return nil
		case parser.OperandAddrAtLabel:
			g.patches = append(g.patches, patch{kind: patchAddress, pos: len(g.code), width: 8, label: op.Label, syms: g.syms, at: op.Source})
			g.code = append(g.code, make([]byte, 8)...)
			return nil
		default:
			return errAt(OperandTypeMismatch, op.Source, "expected an address operand")
		}

	default:
		return errAt(OperandTypeMismatch, op.Source, "unsupported operand class")
	}
}

func (g *Generator) emitAddressOperand(op parser.Operand) error {
	switch op.Kind {
	case parser.OperandNumber:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, op.Number)
		g.code = append(g.code, buf...)
		return nil
	case parser.OperandCurrentPos:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, g.Len())
		g.code = append(g.code, buf...)
		return nil
	case parser.OperandLabel:
		g.patches = append(g.patches, patch{kind: patchAddress, pos: len(g.code), width: 8, label: op.Label, syms: g.syms, at: op.Source})
		g.code = append(g.code, make([]byte, 8)...)
		return nil
	default:
		return errAt(OperandTypeMismatch, op.Source, "expected a numeric or label address operand")
	}
}

// minBytesFor reports the minimal power-of-two byte width needed to
// represent v, mirroring the source ISA's conservative size-fit check.
func minBytesFor(v uint64) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	case v <= 0xffffffff:
		return 4
	default:
		return 8
	}
}

func putUintSized(dst []byte, v uint64, size uint8) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	copy(dst, tmp[:size])
}
