package vm

import "rvm/catalog"

// twoOperandDescriptor describes one of the move/compare family's
// opcodes: which addressing mode each operand uses, and whether a
// handled-size byte precedes the operands.
type twoOperandDescriptor struct {
	dst, src addrMode
	sized    bool
}

var moveDescriptors = map[catalog.Opcode]twoOperandDescriptor{
	catalog.MoveIntoRegFromReg:                 {modeReg, modeReg, false},
	catalog.MoveIntoRegFromRegSized:             {modeReg, modeReg, true},
	catalog.MoveIntoRegFromAddrInReg:            {modeReg, modeAddrInReg, true},
	catalog.MoveIntoRegFromConst:                {modeReg, modeConst, true},
	catalog.MoveIntoRegFromAddrLiteral:          {modeReg, modeAddrLiteral, true},
	catalog.MoveIntoAddrInRegFromReg:            {modeAddrInReg, modeReg, true},
	catalog.MoveIntoAddrInRegFromAddrInReg:      {modeAddrInReg, modeAddrInReg, true},
	catalog.MoveIntoAddrInRegFromConst:          {modeAddrInReg, modeConst, true},
	catalog.MoveIntoAddrInRegFromAddrLiteral:    {modeAddrInReg, modeAddrLiteral, true},
	catalog.MoveIntoAddrLiteralFromReg:          {modeAddrLiteral, modeReg, true},
	catalog.MoveIntoAddrLiteralFromAddrInReg:    {modeAddrLiteral, modeAddrInReg, true},
	catalog.MoveIntoAddrLiteralFromConst:        {modeAddrLiteral, modeConst, true},
	catalog.MoveIntoAddrLiteralFromAddrLiteral:  {modeAddrLiteral, modeAddrLiteral, true},
}

var compareDescriptors = map[catalog.Opcode]twoOperandDescriptor{
	catalog.CompareRegReg:                 {modeReg, modeReg, false},
	catalog.CompareRegRegSized:            {modeReg, modeReg, true},
	catalog.CompareRegAddrInReg:           {modeReg, modeAddrInReg, true},
	catalog.CompareRegConst:               {modeReg, modeConst, true},
	catalog.CompareRegAddrLiteral:         {modeReg, modeAddrLiteral, true},
	catalog.CompareAddrInRegReg:           {modeAddrInReg, modeReg, true},
	catalog.CompareAddrInRegAddrInReg:     {modeAddrInReg, modeAddrInReg, true},
	catalog.CompareAddrInRegConst:         {modeAddrInReg, modeConst, true},
	catalog.CompareAddrInRegAddrLiteral:   {modeAddrInReg, modeAddrLiteral, true},
	catalog.CompareConstReg:               {modeConst, modeReg, true},
	catalog.CompareConstAddrInReg:         {modeConst, modeAddrInReg, true},
	catalog.CompareConstConst:             {modeConst, modeConst, true},
	catalog.CompareConstAddrLiteral:       {modeConst, modeAddrLiteral, true},
	catalog.CompareAddrLiteralReg:         {modeAddrLiteral, modeReg, true},
	catalog.CompareAddrLiteralAddrInReg:   {modeAddrLiteral, modeAddrInReg, true},
	catalog.CompareAddrLiteralConst:       {modeAddrLiteral, modeConst, true},
	catalog.CompareAddrLiteralAddrLiteral: {modeAddrLiteral, modeAddrLiteral, true},
}

// oneOperandDescriptor describes single-operand families: push,
// push-stack-pointer, pop-stack-pointer, and the mem-copy count
// operand.
type oneOperandDescriptor struct {
	mode  addrMode
	sized bool
}

var pushDescriptors = map[catalog.Opcode]oneOperandDescriptor{
	catalog.PushFromReg:         {modeReg, false},
	catalog.PushFromRegSized:    {modeReg, true},
	catalog.PushFromAddrInReg:   {modeAddrInReg, true},
	catalog.PushFromConst:       {modeConst, true},
	catalog.PushFromAddrLiteral: {modeAddrLiteral, true},
}

var pushSPDescriptors = map[catalog.Opcode]oneOperandDescriptor{
	catalog.PushStackPointerReg:         {modeReg, false},
	catalog.PushStackPointerRegSized:    {modeReg, true},
	catalog.PushStackPointerAddrInReg:   {modeAddrInReg, true},
	catalog.PushStackPointerConst:       {modeConst, true},
	catalog.PushStackPointerAddrLiteral: {modeAddrLiteral, true},
}

var popSPDescriptors = map[catalog.Opcode]oneOperandDescriptor{
	catalog.PopStackPointerReg:         {modeReg, false},
	catalog.PopStackPointerRegSized:    {modeReg, true},
	catalog.PopStackPointerAddrInReg:   {modeAddrInReg, true},
	catalog.PopStackPointerConst:       {modeConst, true},
	catalog.PopStackPointerAddrLiteral: {modeAddrLiteral, true},
}

var memCopyCountDescriptors = map[catalog.Opcode]oneOperandDescriptor{
	catalog.MemCopyBlockReg:         {modeReg, false},
	catalog.MemCopyBlockRegSized:    {modeReg, true},
	catalog.MemCopyBlockAddrInReg:   {modeAddrInReg, true},
	catalog.MemCopyBlockConst:       {modeConst, true},
	catalog.MemCopyBlockAddrLiteral: {modeAddrLiteral, true},
}

// popIntoDescriptors: POP_INTO_* always pops a full 8-byte value,
// there is no sized pendant in the catalogue.
var popIntoDescriptors = map[catalog.Opcode]addrMode{
	catalog.PopIntoReg:         modeReg,
	catalog.PopIntoAddrInReg:   modeAddrInReg,
	catalog.PopIntoAddrLiteral: modeAddrLiteral,
}

// incDecDescriptors maps INC/DEC opcodes to their operand's
// addressing mode. Only INC_REG/DEC_REG are unsized (whole register);
// the ADDR_* forms always carry a handled size.
var incDescriptors = map[catalog.Opcode]oneOperandDescriptor{
	catalog.IncReg:         {modeReg, false},
	catalog.IncAddrInReg:   {modeAddrInReg, true},
	catalog.IncAddrLiteral: {modeAddrLiteral, true},
}

var decDescriptors = map[catalog.Opcode]oneOperandDescriptor{
	catalog.DecReg:         {modeReg, false},
	catalog.DecAddrInReg:   {modeAddrInReg, true},
	catalog.DecAddrLiteral: {modeAddrLiteral, true},
}
