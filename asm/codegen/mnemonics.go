package codegen

import (
	"strconv"

	"rvm/catalog"
)

// shape names which byte layout a mnemonic's operands follow.
type shape int

const (
	shapeImplicit    shape = iota // no operand bytes at all
	shapeOneReg                   // one bare register byte (SWAP_BYTES_ENDIANNESS, CALL_REG)
	shapeOneOperand               // one operand, optionally sized (push/pushsp/popsp/inc/dec)
	shapePopInto                  // one unsized operand among reg/addr-in-reg/addr-literal
	shapeTwoOperand               // dst, src, optionally sized (mov/cmp)
	shapeMemCopy                  // dst reg, src reg, count operand, optionally sized
	shapeAddress                  // one 8-byte address/label operand (jumps, calls)
)

// spec is one resolved mnemonic's encoding rule.
type spec struct {
	shape   shape
	sized   bool
	sizeVal uint8 // handled-size prefix byte this variant writes, when sized
	opcode  catalog.Opcode            // shapeImplicit, shapeOneReg, shapeAddress
	one     map[OperandClass]catalog.Opcode
	two     map[pair]catalog.Opcode
}

// mustSize parses a sized-mnemonic's numeric suffix ("1"/"2"/"4"/"8")
// into the byte value the instruction's size prefix encodes.
func mustSize(suffix string) uint8 {
	n, err := strconv.Atoi(suffix)
	if err != nil {
		panic("codegen: bad size suffix " + suffix)
	}
	return uint8(n)
}

// mnemonics maps every assembler mnemonic to its encoding spec. It is
// the data-driven table the code generator walks; it must agree
// byte-for-byte with the decode side in vm/descriptor.go.
var mnemonics = buildMnemonics()

func buildMnemonics() map[string]spec {
	m := make(map[string]spec)

	implicit := func(name string, op catalog.Opcode) {
		m[name] = spec{shape: shapeImplicit, opcode: op}
	}

	implicit("iadd", catalog.IntegerAdd)
	implicit("isub", catalog.IntegerSub)
	implicit("imul", catalog.IntegerMul)
	implicit("idiv", catalog.IntegerDiv)
	implicit("imod", catalog.IntegerMod)
	implicit("fadd", catalog.FloatAdd)
	implicit("fsub", catalog.FloatSub)
	implicit("fmul", catalog.FloatMul)
	implicit("fdiv", catalog.FloatDiv)
	implicit("fmod", catalog.FloatMod)
	implicit("and", catalog.And)
	implicit("or", catalog.Or)
	implicit("xor", catalog.Xor)
	implicit("not", catalog.Not)
	implicit("shl", catalog.ShiftLeft)
	implicit("shr", catalog.ShiftRight)
	implicit("nop", catalog.NoOperation)
	implicit("ret", catalog.Return)
	implicit("intr", catalog.Interrupt)
	implicit("exit", catalog.Exit)
	implicit("brk", catalog.Breakpoint)

	m["swapbytes"] = spec{shape: shapeOneReg, opcode: catalog.SwapBytesEndianness}
	m["call"] = spec{shape: shapeOneReg, opcode: catalog.CallReg}

	for _, jump := range []struct {
		name string
		op   catalog.Opcode
	}{
		{"jmp", catalog.Jump},
		{"jmpnz", catalog.JumpNotZero},
		{"jmpz", catalog.JumpZero},
		{"jmpgr", catalog.JumpGreater},
		{"jmpge", catalog.JumpGreaterOrEqual},
		{"jmplt", catalog.JumpLess},
		{"jmple", catalog.JumpLessOrEqual},
		{"jmpcr", catalog.JumpCarry},
		{"jmpncr", catalog.JumpNotCarry},
		{"jmpof", catalog.JumpOverflow},
		{"jmpnof", catalog.JumpNotOverflow},
		{"jmpsn", catalog.JumpSign},
		{"jmpnsn", catalog.JumpNotSign},
		{"callc", catalog.CallConst},
	} {
		m[jump.name] = spec{shape: shapeAddress, opcode: jump.op}
	}

	for _, inc := range []struct {
		suffix string
		sized  bool
		table  map[OperandClass]catalog.Opcode
	}{
		{"", false, map[OperandClass]catalog.Opcode{ClassReg: catalog.IncReg}},
		{"1", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.IncAddrInReg, ClassAddrLiteral: catalog.IncAddrLiteral}},
		{"2", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.IncAddrInReg, ClassAddrLiteral: catalog.IncAddrLiteral}},
		{"4", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.IncAddrInReg, ClassAddrLiteral: catalog.IncAddrLiteral}},
		{"8", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.IncAddrInReg, ClassAddrLiteral: catalog.IncAddrLiteral}},
	} {
		sp := spec{shape: shapeOneOperand, sized: inc.sized, one: inc.table}
		if inc.sized {
			sp.sizeVal = mustSize(inc.suffix)
		}
		m["inc"+inc.suffix] = sp
	}
	for _, dec := range []struct {
		suffix string
		sized  bool
		table  map[OperandClass]catalog.Opcode
	}{
		{"", false, map[OperandClass]catalog.Opcode{ClassReg: catalog.DecReg}},
		{"1", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.DecAddrInReg, ClassAddrLiteral: catalog.DecAddrLiteral}},
		{"2", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.DecAddrInReg, ClassAddrLiteral: catalog.DecAddrLiteral}},
		{"4", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.DecAddrInReg, ClassAddrLiteral: catalog.DecAddrLiteral}},
		{"8", true, map[OperandClass]catalog.Opcode{ClassAddrInReg: catalog.DecAddrInReg, ClassAddrLiteral: catalog.DecAddrLiteral}},
	} {
		sp := spec{shape: shapeOneOperand, sized: dec.sized, one: dec.table}
		if dec.sized {
			sp.sizeVal = mustSize(dec.suffix)
		}
		m["dec"+dec.suffix] = sp
	}

	pushUnsized := map[OperandClass]catalog.Opcode{ClassReg: catalog.PushFromReg}
	pushSized := map[OperandClass]catalog.Opcode{
		ClassReg: catalog.PushFromRegSized, ClassAddrInReg: catalog.PushFromAddrInReg,
		ClassConst: catalog.PushFromConst, ClassAddrLiteral: catalog.PushFromAddrLiteral,
	}
	m["push"] = spec{shape: shapeOneOperand, sized: false, one: pushUnsized}
	for _, n := range []string{"1", "2", "4", "8"} {
		m["push"+n] = spec{shape: shapeOneOperand, sized: true, sizeVal: mustSize(n), one: pushSized}
	}

	pushSPUnsized := map[OperandClass]catalog.Opcode{ClassReg: catalog.PushStackPointerReg}
	pushSPSized := map[OperandClass]catalog.Opcode{
		ClassReg: catalog.PushStackPointerRegSized, ClassAddrInReg: catalog.PushStackPointerAddrInReg,
		ClassConst: catalog.PushStackPointerConst, ClassAddrLiteral: catalog.PushStackPointerAddrLiteral,
	}
	m["pushsp"] = spec{shape: shapeOneOperand, sized: false, one: pushSPUnsized}
	for _, n := range []string{"1", "2", "4", "8"} {
		m["pushsp"+n] = spec{shape: shapeOneOperand, sized: true, sizeVal: mustSize(n), one: pushSPSized}
	}

	popSPUnsized := map[OperandClass]catalog.Opcode{ClassReg: catalog.PopStackPointerReg}
	popSPSized := map[OperandClass]catalog.Opcode{
		ClassReg: catalog.PopStackPointerRegSized, ClassAddrInReg: catalog.PopStackPointerAddrInReg,
		ClassConst: catalog.PopStackPointerConst, ClassAddrLiteral: catalog.PopStackPointerAddrLiteral,
	}
	m["popsp"] = spec{shape: shapeOneOperand, sized: false, one: popSPUnsized}
	for _, n := range []string{"1", "2", "4", "8"} {
		m["popsp"+n] = spec{shape: shapeOneOperand, sized: true, sizeVal: mustSize(n), one: popSPSized}
	}

	m["pop"] = spec{shape: shapePopInto, one: map[OperandClass]catalog.Opcode{
		ClassReg: catalog.PopIntoReg, ClassAddrInReg: catalog.PopIntoAddrInReg, ClassAddrLiteral: catalog.PopIntoAddrLiteral,
	}}

	m["mov"] = spec{shape: shapeTwoOperand, sized: false, two: map[pair]catalog.Opcode{
		{ClassReg, ClassReg}: catalog.MoveIntoRegFromReg,
	}}
	movSized := map[pair]catalog.Opcode{
		{ClassReg, ClassReg}:               catalog.MoveIntoRegFromRegSized,
		{ClassReg, ClassAddrInReg}:         catalog.MoveIntoRegFromAddrInReg,
		{ClassReg, ClassConst}:             catalog.MoveIntoRegFromConst,
		{ClassReg, ClassAddrLiteral}:       catalog.MoveIntoRegFromAddrLiteral,
		{ClassAddrInReg, ClassReg}:         catalog.MoveIntoAddrInRegFromReg,
		{ClassAddrInReg, ClassAddrInReg}:   catalog.MoveIntoAddrInRegFromAddrInReg,
		{ClassAddrInReg, ClassConst}:       catalog.MoveIntoAddrInRegFromConst,
		{ClassAddrInReg, ClassAddrLiteral}: catalog.MoveIntoAddrInRegFromAddrLiteral,
		{ClassAddrLiteral, ClassReg}:       catalog.MoveIntoAddrLiteralFromReg,
		{ClassAddrLiteral, ClassAddrInReg}: catalog.MoveIntoAddrLiteralFromAddrInReg,
		{ClassAddrLiteral, ClassConst}:     catalog.MoveIntoAddrLiteralFromConst,
		{ClassAddrLiteral, ClassAddrLiteral}: catalog.MoveIntoAddrLiteralFromAddrLiteral,
	}
	for _, n := range []string{"1", "2", "4", "8"} {
		m["mov"+n] = spec{shape: shapeTwoOperand, sized: true, sizeVal: mustSize(n), two: movSized}
	}

	m["cmp"] = spec{shape: shapeTwoOperand, sized: false, two: map[pair]catalog.Opcode{
		{ClassReg, ClassReg}: catalog.CompareRegReg,
	}}
	cmpSized := map[pair]catalog.Opcode{
		{ClassReg, ClassReg}:                     catalog.CompareRegRegSized,
		{ClassReg, ClassAddrInReg}:               catalog.CompareRegAddrInReg,
		{ClassReg, ClassConst}:                   catalog.CompareRegConst,
		{ClassReg, ClassAddrLiteral}:             catalog.CompareRegAddrLiteral,
		{ClassAddrInReg, ClassReg}:               catalog.CompareAddrInRegReg,
		{ClassAddrInReg, ClassAddrInReg}:         catalog.CompareAddrInRegAddrInReg,
		{ClassAddrInReg, ClassConst}:             catalog.CompareAddrInRegConst,
		{ClassAddrInReg, ClassAddrLiteral}:       catalog.CompareAddrInRegAddrLiteral,
		{ClassConst, ClassReg}:                   catalog.CompareConstReg,
		{ClassConst, ClassAddrInReg}:             catalog.CompareConstAddrInReg,
		{ClassConst, ClassConst}:                 catalog.CompareConstConst,
		{ClassConst, ClassAddrLiteral}:           catalog.CompareConstAddrLiteral,
		{ClassAddrLiteral, ClassReg}:             catalog.CompareAddrLiteralReg,
		{ClassAddrLiteral, ClassAddrInReg}:       catalog.CompareAddrLiteralAddrInReg,
		{ClassAddrLiteral, ClassConst}:           catalog.CompareAddrLiteralConst,
		{ClassAddrLiteral, ClassAddrLiteral}:     catalog.CompareAddrLiteralAddrLiteral,
	}
	for _, n := range []string{"1", "2", "4", "8"} {
		m["cmp"+n] = spec{shape: shapeTwoOperand, sized: true, sizeVal: mustSize(n), two: cmpSized}
	}

	memcpyUnsized := map[OperandClass]catalog.Opcode{ClassReg: catalog.MemCopyBlockReg}
	memcpySized := map[OperandClass]catalog.Opcode{
		ClassReg: catalog.MemCopyBlockRegSized, ClassAddrInReg: catalog.MemCopyBlockAddrInReg,
		ClassConst: catalog.MemCopyBlockConst, ClassAddrLiteral: catalog.MemCopyBlockAddrLiteral,
	}
	m["memcpy"] = spec{shape: shapeMemCopy, sized: false, one: memcpyUnsized}
	for _, n := range []string{"1", "2", "4", "8"} {
		m["memcpy"+n] = spec{shape: shapeMemCopy, sized: true, sizeVal: mustSize(n), one: memcpySized}
	}

	return m
}
