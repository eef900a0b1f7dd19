package parser

import (
	"encoding/binary"
	"fmt"
	"math"

	"rvm/asm/symtab"
	"rvm/asm/token"
	"rvm/catalog"
	"rvm/vm/hostio"
)

// IncludeFunc resolves and recursively assembles an included unit,
// importing its exported symbols into the current table. reExport is
// true when the `.include:` entry was prefixed with `@@`.
type IncludeFunc func(requestedPath string, reExport bool) error

const maxMacroSplices = 100000

// Parse expands macros and walks unitLines, declaring every label and
// macro it meets into syms and returning the flat node sequence for
// codegen.
func Parse(unitPath string, unitLines token.TokenLines, syms *symtab.Table, include IncludeFunc) ([]Node, error) {
	queue := append([]token.Line(nil), unitLines...)
	var nodes []Node
	autoCounter := 0
	autoLabel := func(prefix string) string {
		autoCounter++
		return fmt.Sprintf("__%s_%s_%d", prefix, unitPath, autoCounter)
	}

	for len(queue) > 0 {
		line := queue[0]
		queue = queue[1:]

		toks, err := expandInlineMacros(line.Tokens, syms)
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 {
			continue
		}
		first := toks[0]

		switch {
		case first.Is("%"):
			if len(toks) < 2 {
				return nil, errAt(MissingToken, first, "incomplete macro definition")
			}
			if toks[1].Is("%") {
				if err := parseFunctionMacroDef(&queue, toks, syms); err != nil {
					return nil, err
				}
			} else if err := parseInlineMacroDef(toks, syms); err != nil {
				return nil, err
			}

		case first.Is("!"):
			expanded, err := expandFunctionMacroCall(toks, syms)
			if err != nil {
				return nil, err
			}
			queue = append(expanded, queue...)

		case first.Is("."):
			if len(toks) < 3 || toks[1].Kind != token.Ident || !toks[2].Is(":") {
				return nil, errAt(UnexpectedToken, first, "malformed section declaration")
			}
			name := toks[1].Text
			if name == "include" {
				if err := parseIncludeSection(&queue, include); err != nil {
					return nil, err
				}
			} else {
				if err := syms.DeclareLabel(name, toks[1], false); err != nil {
					return nil, err
				}
				nodes = append(nodes, Node{Kind: NodeLabel, Source: toks[1], LabelName: name})
			}

		case first.Is("@"):
			idx := 1
			export := false
			if idx < len(toks) && toks[idx].Is("@") {
				export = true
				idx++
			}
			if idx >= len(toks) || toks[idx].Kind != token.Ident {
				return nil, errAt(MissingToken, first, "expected label name")
			}
			name := toks[idx].Text
			if err := syms.DeclareLabel(name, toks[idx], export); err != nil {
				return nil, err
			}
			nodes = append(nodes, Node{Kind: NodeLabel, Source: toks[idx], LabelName: name})

		case first.Kind == token.Ident && isPseudo(first.Text):
			n, err := parsePseudo(first, toks[1:], syms, autoLabel)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n...)

		case first.Kind == token.Ident:
			ops, err := parseOperands(toks[1:])
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, Node{Kind: NodeInstruction, Source: first, Mnemonic: first.Text, Operands: ops})

		default:
			return nil, errAt(UnexpectedToken, first, "unexpected token %q", first.Text)
		}
	}

	return nodes, nil
}

func isSectionStart(line token.Line) bool {
	return len(line.Tokens) > 0 && line.Tokens[0].Is(".")
}

func parseIncludeSection(queue *[]token.Line, include IncludeFunc) error {
	for len(*queue) > 0 && !isSectionStart((*queue)[0]) {
		line := (*queue)[0]
		*queue = (*queue)[1:]
		it := line.Tokens
		if len(it) == 0 {
			continue
		}
		reExport := false
		k := 0
		if it[k].Is("@") && k+1 < len(it) && it[k+1].Is("@") {
			reExport = true
			k += 2
		}
		if k >= len(it) || it[k].Kind != token.String {
			return errAt(UnexpectedToken, it[0], "expected quoted include path")
		}
		if include == nil {
			return errAt(UnexpectedToken, it[k], "include directive used without an include handler")
		}
		if err := include(it[k].Text, reExport); err != nil {
			return err
		}
	}
	return nil
}

func parseInlineMacroDef(toks []token.Token, syms *symtab.Table) error {
	idx := 1
	if idx >= len(toks) || !toks[idx].Is("-") {
		return errAt(UnexpectedToken, toks[0], "expected '-' in inline macro definition")
	}
	idx++
	export := false
	if idx < len(toks) && toks[idx].Is("@") {
		export = true
		idx++
	}
	if idx >= len(toks) || toks[idx].Kind != token.Ident {
		return errAt(MissingToken, toks[0], "expected macro name")
	}
	name := toks[idx].Text
	source := toks[idx]
	idx++
	if idx >= len(toks) || !toks[idx].Is(":") {
		return errAt(MissingToken, toks[0], "expected ':' in inline macro definition")
	}
	idx++
	body := append([]token.Token(nil), toks[idx:]...)
	return syms.DeclareInlineMacro(name, source, body, export)
}

func parseFunctionMacroDef(queue *[]token.Line, toks []token.Token, syms *symtab.Table) error {
	idx := 2
	if idx >= len(toks) || !toks[idx].Is("-") {
		return errAt(UnexpectedToken, toks[0], "expected '-' in function macro definition")
	}
	idx++
	export := false
	if idx < len(toks) && toks[idx].Is("@") {
		export = true
		idx++
	}
	if idx >= len(toks) || toks[idx].Kind != token.Ident {
		return errAt(MissingToken, toks[0], "expected macro name")
	}
	name := toks[idx].Text
	source := toks[idx]
	idx++

	params := make(map[string]int)
	for idx < len(toks) && !toks[idx].Is(":") {
		if toks[idx].Kind != token.Ident {
			return errAt(UnexpectedToken, toks[idx], "expected parameter name")
		}
		if _, dup := params[toks[idx].Text]; dup {
			return errAt(DuplicateMacroParameter, toks[idx], "duplicate macro parameter %q", toks[idx].Text)
		}
		params[toks[idx].Text] = len(params)
		idx++
	}
	if idx >= len(toks) {
		return errAt(MissingToken, toks[0], "expected ':' in function macro definition")
	}
	idx++

	var body token.TokenLines
	if idx < len(toks) {
		expanded, err := expandInlineMacros(toks[idx:], syms)
		if err != nil {
			return err
		}
		body = append(body, token.Line{Tokens: expanded})
	}

	closed := false
	for len(*queue) > 0 {
		next := (*queue)[0]
		*queue = (*queue)[1:]
		if len(next.Tokens) >= 2 && next.Tokens[0].Is("%") && next.Tokens[1].Is("endmacro") {
			closed = true
			break
		}
		expanded, err := expandInlineMacros(next.Tokens, syms)
		if err != nil {
			return err
		}
		body = append(body, token.Line{Tokens: expanded, Number: next.Number, Text: next.Text})
	}
	if !closed {
		return errAt(MissingEndMacro, source, "missing %%endmacro for macro %q", name)
	}

	return syms.DeclareFunctionMacro(name, source, params, body, export)
}

func expandFunctionMacroCall(toks []token.Token, syms *symtab.Table) ([]token.Line, error) {
	if len(toks) < 2 || toks[1].Kind != token.Ident {
		return nil, errAt(MissingToken, toks[0], "expected macro name after '!'")
	}
	name := toks[1].Text
	def, ok := syms.GetFunctionMacro(name)
	if !ok {
		return nil, errAt(UndefinedMacro, toks[1], "undefined function macro %q", name)
	}
	args := toks[2:]
	if len(args) != len(def.Params) {
		return nil, errAt(ArgumentArityMismatch, toks[0], "macro %q expects %d arguments, got %d", name, len(def.Params), len(args))
	}
	out := make([]token.Line, 0, len(def.Body))
	for _, bodyLine := range def.Body {
		out = append(out, token.Line{Tokens: substituteParams(bodyLine.Tokens, def.Params, args), Number: bodyLine.Number, Text: bodyLine.Text})
	}
	return out, nil
}

func substituteParams(toks []token.Token, params map[string]int, args []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	i := 0
	for i < len(toks) {
		if toks[i].Is("{") && i+2 < len(toks) && toks[i+1].Kind == token.Ident && toks[i+2].Is("}") {
			if idx, ok := params[toks[i+1].Text]; ok {
				out = append(out, args[idx])
				i += 3
				continue
			}
		}
		out = append(out, toks[i])
		i++
	}
	return out
}

// expandInlineMacros splices every `=NAME` invocation in toks with its
// stored definition, restarting the scan from the splice point so
// macros nested inside a body expand too.
func expandInlineMacros(toks []token.Token, syms *symtab.Table) ([]token.Token, error) {
	toks = append([]token.Token(nil), toks...)
	i := 0
	splices := 0
	for i < len(toks) {
		if !toks[i].Is("=") {
			i++
			continue
		}
		if i+1 >= len(toks) || toks[i+1].Kind != token.Ident {
			return nil, errAt(MissingToken, toks[i], "expected macro name after '='")
		}
		name := toks[i+1].Text
		def, ok := syms.GetInlineMacro(name)
		if !ok {
			return nil, errAt(UndefinedMacro, toks[i+1], "undefined inline macro %q", name)
		}
		splices++
		if splices > maxMacroSplices {
			return nil, errAt(UndefinedMacro, toks[i+1], "macro %q expansion did not terminate", name)
		}
		spliced := make([]token.Token, 0, len(toks)-2+len(def.Body))
		spliced = append(spliced, toks[:i]...)
		spliced = append(spliced, def.Body...)
		spliced = append(spliced, toks[i+2:]...)
		toks = spliced
	}
	return toks, nil
}

func isPseudo(name string) bool {
	switch name {
	case "dn", "ds", "dcs", "db", "da", "offsetfrom", "printstr":
		return true
	default:
		return false
	}
}

func parsePseudo(kw token.Token, rest []token.Token, syms *symtab.Table, autoLabel func(string) string) ([]Node, error) {
	switch kw.Text {
	case "dn":
		if len(rest) != 2 || rest[0].Kind != token.Number {
			return nil, errAt(ArgumentArityMismatch, kw, "dn expects a size and a number")
		}
		var val uint64
		switch rest[1].Kind {
		case token.Number:
			val = rest[1].Number
		case token.Float:
			val = math.Float64bits(rest[1].FloatV)
		default:
			return nil, errAt(OperandTypeMismatch, rest[1], "dn value must be numeric")
		}
		return []Node{{Kind: NodeNumber, Source: kw, NumberSize: uint8(rest[0].Number), Number: val}}, nil

	case "ds":
		if len(rest) != 1 || rest[0].Kind != token.String {
			return nil, errAt(OperandTypeMismatch, kw, "ds expects a string literal")
		}
		return []Node{{Kind: NodeRawBytes, Source: kw, Bytes: []byte(rest[0].Text)}}, nil

	case "dcs":
		if len(rest) != 1 || rest[0].Kind != token.String {
			return nil, errAt(OperandTypeMismatch, kw, "dcs expects a string literal")
		}
		return []Node{{Kind: NodeRawBytes, Source: kw, Bytes: append([]byte(rest[0].Text), 0)}}, nil

	case "db":
		nums, err := parseBracketedNumbers(kw, rest)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, len(nums))
		for i, n := range nums {
			buf[i] = byte(n)
		}
		return []Node{{Kind: NodeRawBytes, Source: kw, Bytes: buf}}, nil

	case "da":
		nums, err := parseBracketedNumbers(kw, rest)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 0, len(nums)*8)
		var tmp [8]byte
		for _, n := range nums {
			binary.LittleEndian.PutUint64(tmp[:], n)
			buf = append(buf, tmp[:]...)
		}
		return []Node{{Kind: NodeRawBytes, Source: kw, Bytes: buf}}, nil

	case "offsetfrom":
		if len(rest) != 1 || rest[0].Kind != token.Ident {
			return nil, errAt(OperandTypeMismatch, kw, "offsetfrom expects a label name")
		}
		return []Node{{Kind: NodeOffsetFrom, Source: kw, OffsetLabel: rest[0].Text}}, nil

	case "printstr":
		if len(rest) != 1 || rest[0].Kind != token.String {
			return nil, errAt(OperandTypeMismatch, kw, "printstr expects a string literal")
		}
		str := rest[0].Text
		start := autoLabel("str")
		after := autoLabel("afterstr")
		if err := syms.DeclareLabel(start, kw, false); err != nil {
			return nil, err
		}
		if err := syms.DeclareLabel(after, kw, false); err != nil {
			return nil, err
		}
		return []Node{
			{Kind: NodeInstruction, Source: kw, Mnemonic: "jmp", Operands: []Operand{{Kind: OperandLabel, Label: after, Source: kw}}},
			{Kind: NodeLabel, Source: kw, LabelName: start},
			{Kind: NodeRawBytes, Source: kw, Bytes: []byte(str)},
			{Kind: NodeLabel, Source: kw, LabelName: after},
			{Kind: NodeInstruction, Source: kw, Mnemonic: "mov8", Operands: []Operand{
				{Kind: OperandRegister, Register: "print", Source: kw},
				{Kind: OperandLabel, Label: start, Source: kw},
			}},
			{Kind: NodeInstruction, Source: kw, Mnemonic: "mov8", Operands: []Operand{
				{Kind: OperandRegister, Register: "r1", Source: kw},
				{Kind: OperandNumber, Number: uint64(len(str)), Source: kw},
			}},
			{Kind: NodeInstruction, Source: kw, Mnemonic: "mov1", Operands: []Operand{
				{Kind: OperandRegister, Register: "int", Source: kw},
				{Kind: OperandNumber, Number: uint64(hostio.PrintBytes), Source: kw},
			}},
			{Kind: NodeInstruction, Source: kw, Mnemonic: "intr"},
		}, nil

	default:
		return nil, errAt(UnexpectedToken, kw, "unknown pseudo-instruction %q", kw.Text)
	}
}

func parseBracketedNumbers(kw token.Token, toks []token.Token) ([]uint64, error) {
	if len(toks) < 2 || !toks[0].Is("[") || !toks[len(toks)-1].Is("]") {
		return nil, errAt(UnexpectedToken, kw, "expected a bracketed list of numbers")
	}
	inner := toks[1 : len(toks)-1]
	var nums []uint64
	expectNumber := true
	for _, t := range inner {
		if expectNumber {
			if t.Kind != token.Number {
				return nil, errAt(OperandTypeMismatch, t, "expected a number in array literal")
			}
			nums = append(nums, t.Number)
			expectNumber = false
		} else {
			if !t.Is(",") {
				return nil, errAt(UnexpectedToken, t, "expected ','")
			}
			expectNumber = true
		}
	}
	return nums, nil
}

func parseOperands(toks []token.Token) ([]Operand, error) {
	var ops []Operand
	i := 0
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.Kind == token.Number:
			ops = append(ops, Operand{Kind: OperandNumber, Number: t.Number, Source: t})
			i++

		case t.Kind == token.Float:
			ops = append(ops, Operand{Kind: OperandNumber, Number: math.Float64bits(t.FloatV), IsFloat: true, Float: t.FloatV, Source: t})
			i++

		case t.Kind == token.Char:
			ops = append(ops, Operand{Kind: OperandNumber, Number: t.Number, Source: t})
			i++

		case t.Is("$"):
			ops = append(ops, Operand{Kind: OperandCurrentPos, Source: t})
			i++

		case t.Kind == token.Ident:
			if _, ok := catalog.RegisterFromName(t.Text); ok {
				ops = append(ops, Operand{Kind: OperandRegister, Register: t.Text, Source: t})
			} else {
				ops = append(ops, Operand{Kind: OperandLabel, Label: t.Text, Source: t})
			}
			i++

		case t.Is("["):
			i++
			if i >= len(toks) {
				return nil, errAt(MissingToken, t, "unclosed '['")
			}
			inner := toks[i]
			i++
			if i >= len(toks) || !toks[i].Is("]") {
				return nil, errAt(MissingToken, inner, "expected ']'")
			}
			i++
			switch {
			case inner.Kind == token.Number:
				ops = append(ops, Operand{Kind: OperandAddrLiteral, Number: inner.Number, Source: inner})
			case inner.Kind == token.Ident:
				if _, ok := catalog.RegisterFromName(inner.Text); ok {
					ops = append(ops, Operand{Kind: OperandAddrInRegister, Register: inner.Text, Source: inner})
				} else {
					ops = append(ops, Operand{Kind: OperandAddrAtLabel, Label: inner.Text, Source: inner})
				}
			default:
				return nil, errAt(UnexpectedToken, inner, "invalid address operand")
			}

		default:
			return nil, errAt(UnexpectedToken, t, "unexpected token %q in operand list", t.Text)
		}
	}
	return ops, nil
}
