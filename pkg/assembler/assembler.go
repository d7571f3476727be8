// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package assembler translates LC-3 assembly source into program images.
//
// Source is line oriented. Each line holds an optional label, an optional
// instruction or directive, and an optional ';' comment. Operands are
// separated by commas or whitespace. Numeric operands are decimal (#12, 12,
// #-3) or hex (x3000, 0x3000). A $(...) operand is a Starlark expression in
// which every label is predeclared as its address.
package assembler

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/lassandro/golc3/pkg/encoding"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Assembler is a two pass assembler. Symbols holds the label addresses of
// the last assembled program.
type Assembler struct {
	Symbols map[string]uint16

	statements []*statement
	origin     uint16
}

// Assemble translates input with a fresh Assembler.
func Assemble(input io.Reader) (encoding.Image, error) {
	var asm Assembler
	return asm.Assemble(input)
}

func (asm *Assembler) Assemble(input io.Reader) (encoding.Image, error) {
	asm.Symbols = make(map[string]uint16)
	asm.statements = nil

	if err := asm.parse(input); err != nil {
		return encoding.Image{}, err
	}

	if err := asm.layout(); err != nil {
		return encoding.Image{}, err
	}

	img := encoding.Image{Origin: asm.origin}

	for _, st := range asm.statements {
		words, err := asm.encode(st)

		if err != nil {
			return encoding.Image{}, &SyntaxError{st.Line, st.Text, err}
		}

		img.Words = append(img.Words, words...)
	}

	return img, nil
}

func isBranch(op string) (uint16, bool) {
	if !strings.HasPrefix(op, "BR") {
		return 0, false
	}

	rest := op[2:]
	mask := uint16(0)

	for _, flag := range []struct {
		Name byte
		Bit  uint16
	}{{'N', 0b100}, {'Z', 0b010}, {'P', 0b001}} {
		if len(rest) > 0 && rest[0] == flag.Name {
			mask |= flag.Bit
			rest = rest[1:]
		}
	}

	if rest != "" {
		return 0, false
	}

	// A bare BR is unconditional
	if mask == 0 {
		mask = 0b111
	}

	return mask, true
}

func isOp(token string) bool {
	op := strings.ToUpper(token)

	if _, exists := instructions[op]; exists {
		return true
	}

	if _, exists := isBranch(op); exists {
		return true
	}

	return directives[op]
}

// tokenize splits a line into operands, keeping quoted strings and $(...)
// expressions whole and dropping the comment.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case c == ';':
			flush()
			return tokens, nil

		case c == '"':
			flush()

			end := i + 1
			for ; end < len(line) && line[end] != '"'; end++ {
				if line[end] == '\\' {
					end++
				}
			}

			if end >= len(line) {
				return nil, ErrString
			}

			tokens = append(tokens, line[i:end+1])
			i = end

		case c == '$' && i+1 < len(line) && line[i+1] == '(':
			flush()

			depth := 0
			end := i + 1
			for ; end < len(line); end++ {
				if line[end] == '(' {
					depth++
				} else if line[end] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}

			if end >= len(line) {
				return nil, ErrExpression
			}

			tokens = append(tokens, line[i:end+1])
			i = end

		case c == ',' || unicode.IsSpace(rune(c)):
			flush()

		default:
			current.WriteByte(c)
		}
	}

	flush()

	return tokens, nil
}

func (asm *Assembler) parse(input io.Reader) error {
	scanner := bufio.NewScanner(input)
	lineno := 0

	for scanner.Scan() {
		lineno++
		text := scanner.Text()

		tokens, err := tokenize(text)

		if err != nil {
			return &SyntaxError{lineno, text, err}
		}

		if len(tokens) == 0 {
			continue
		}

		st := &statement{Line: lineno, Text: strings.TrimSpace(text)}

		if !isOp(tokens[0]) {
			label := strings.TrimSuffix(tokens[0], ":")

			if !labelPattern.MatchString(label) || isRegister(label) {
				return &SyntaxError{lineno, st.Text, ErrLabel}
			}

			st.Label = label
			tokens = tokens[1:]
		}

		if len(tokens) > 0 {
			if !isOp(tokens[0]) {
				return &SyntaxError{
					lineno, st.Text,
					fmt.Errorf("%w '%s'", ErrUnknownOp, tokens[0]),
				}
			}

			st.Op = strings.ToUpper(tokens[0])
			st.Args = tokens[1:]
		}

		asm.statements = append(asm.statements, st)
	}

	return scanner.Err()
}

// layout assigns addresses and collects labels. Statements after .END are
// dropped.
func (asm *Assembler) layout() error {
	address := -1
	var placed []*statement

	for _, st := range asm.statements {
		if st.Op == DIRECTIVE_ORIG {
			if address >= 0 {
				return &SyntaxError{st.Line, st.Text, ErrDuplicateOrigin}
			}

			if len(st.Args) != 1 {
				return &SyntaxError{st.Line, st.Text, ErrOperandCount}
			}

			origin, err := asm.value(st.Args[0], LITERAL_WORD)

			if err != nil {
				return &SyntaxError{st.Line, st.Text, err}
			}

			asm.origin = origin
			address = int(origin)
		} else if address < 0 {
			return &SyntaxError{st.Line, st.Text, ErrMissingOrigin}
		}

		if st.Label != "" {
			if _, exists := asm.Symbols[st.Label]; exists {
				return &SyntaxError{
					st.Line, st.Text,
					fmt.Errorf("%w '%s'", ErrDuplicateLabel, st.Label),
				}
			}

			asm.Symbols[st.Label] = uint16(address)
		}

		if st.Op == DIRECTIVE_END {
			break
		}

		if st.Op == DIRECTIVE_ORIG || st.Op == "" {
			continue
		}

		size, err := asm.size(st)

		if err != nil {
			return &SyntaxError{st.Line, st.Text, err}
		}

		st.Address = uint16(address)
		st.Size = size
		address += size

		if address > encoding.IMAGE_MAX_WORDS {
			return &SyntaxError{st.Line, st.Text, ErrOverflow}
		}

		placed = append(placed, st)
	}

	if address < 0 {
		return &SyntaxError{0, "", ErrMissingOrigin}
	}

	asm.statements = placed

	return nil
}

func (asm *Assembler) size(st *statement) (int, error) {
	switch st.Op {
	case DIRECTIVE_BLKW:
		if len(st.Args) < 1 || len(st.Args) > 2 {
			return 0, ErrOperandCount
		}

		count, kind, err := asm.resolve(st.Args[0])

		if err != nil {
			return 0, err
		}

		if kind == OPERAND_ADDRESS && !isExpression(st.Args[0]) {
			return 0, ErrLiteral
		}

		if count < 0 || count > encoding.IMAGE_MAX_WORDS {
			return 0, ErrRange
		}

		return count, nil

	case DIRECTIVE_STRINGZ:
		if len(st.Args) != 1 {
			return 0, ErrOperandCount
		}

		text, err := unquote(st.Args[0])

		if err != nil {
			return 0, err
		}

		return len(text) + 1, nil
	}

	return 1, nil
}

func unquote(token string) (string, error) {
	text, err := strconv.Unquote(token)

	if err != nil || !strings.HasPrefix(token, `"`) {
		return "", ErrString
	}

	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return "", ErrString
		}
	}

	return text, nil
}

func isRegister(token string) bool {
	_, err := register(token)
	return err == nil
}

func register(token string) (uint16, error) {
	if len(token) != 2 || (token[0] != 'R' && token[0] != 'r') {
		return 0, ErrRegister
	}

	if token[1] < '0' || token[1] > '7' {
		return 0, ErrRegister
	}

	return uint16(token[1] - '0'), nil
}

func isExpression(token string) bool {
	return strings.HasPrefix(token, "$(") && strings.HasSuffix(token, ")")
}

func isHex(token string) bool {
	return strings.IndexAny(token, "xX") == 0 ||
		strings.HasPrefix(token, "0x") || strings.HasPrefix(token, "0X")
}

// evaluate runs a $(...) expression through Starlark with the labels known
// so far predeclared.
func (asm *Assembler) evaluate(expr string) (int, error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}

	for label, addr := range asm.Symbols {
		pred[label] = starlark.MakeInt(int(addr))
	}

	dict, err := starlark.ExecFileOptions(
		&opts, &thread, "expr", "rc = "+expr+"\n", pred,
	)

	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExpression, err)
	}

	result, ok := dict["rc"].(starlark.Int)

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrExpression, expr)
	}

	value, ok := result.Int64()

	if !ok {
		return 0, ErrRange
	}

	return int(value), nil
}

// resolve evaluates an operand to an integer. Labels and expressions resolve
// to addresses.
func (asm *Assembler) resolve(token string) (int, operandKind, error) {
	switch {
	case isExpression(token):
		value, err := asm.evaluate(token[2 : len(token)-1])
		return value, OPERAND_ADDRESS, err

	case isHex(token):
		if value, err := encoding.DecodeHex(token); err == nil {
			return int(value), OPERAND_HEX, nil
		}

	case token[0] == '#' || token[0] == '-' || unicode.IsDigit(rune(token[0])):
		value, err := encoding.DecodeInt(token)

		if err != nil {
			return 0, OPERAND_DECIMAL, fmt.Errorf("%w '%s'", ErrLiteral, token)
		}

		return int(value), OPERAND_DECIMAL, nil
	}

	if !labelPattern.MatchString(token) || isRegister(token) {
		return 0, OPERAND_DECIMAL, fmt.Errorf("%w '%s'", ErrLiteral, token)
	}

	addr, exists := asm.Symbols[token]

	if !exists {
		return 0, OPERAND_ADDRESS, fmt.Errorf("%w '%s'", ErrUnknownLabel, token)
	}

	return int(addr), OPERAND_ADDRESS, nil
}

// field truncates value to a bits wide field. Decimals must fit as signed
// values; hex may also spell out the raw bit pattern.
func field(value int, kind operandKind, bits uint16) (uint16, error) {
	mask := uint16(1<<bits - 1)

	if encoding.FitsSigned(value, bits) {
		return uint16(value) & mask, nil
	}

	if kind != OPERAND_DECIMAL && value >= 0 && value <= int(mask) {
		return uint16(value), nil
	}

	return 0, ErrRange
}

// value evaluates an absolute operand: immediates, .FILL words.
func (asm *Assembler) value(token string, bits uint16) (uint16, error) {
	value, kind, err := asm.resolve(token)

	if err != nil {
		return 0, err
	}

	return field(value, kind, bits)
}

// offset evaluates a PC-relative operand. Labels and expressions name the
// target address, numbers are the offset itself.
func (asm *Assembler) offset(token string, st *statement, bits uint16) (uint16, error) {
	value, kind, err := asm.resolve(token)

	if err != nil {
		return 0, err
	}

	if kind == OPERAND_ADDRESS {
		value -= int(st.Address) + 1

		if !encoding.FitsSigned(value, bits) {
			return 0, ErrRange
		}
	}

	return field(value, kind, bits)
}

func (asm *Assembler) trapvector(token string) (uint16, error) {
	value, _, err := asm.resolve(token)

	if err != nil {
		return 0, err
	}

	if value < 0 || value > 0xFF {
		return 0, ErrRange
	}

	return uint16(value), nil
}

func operands(st *statement, count int) error {
	if len(st.Args) != count {
		return fmt.Errorf(
			"%w: %s", ErrOperandCount,
			f("want %d, have %d", count, len(st.Args)),
		)
	}

	return nil
}

func registers(args []string) ([]uint16, error) {
	regs := make([]uint16, len(args))

	for i, arg := range args {
		reg, err := register(arg)

		if err != nil {
			return nil, fmt.Errorf("%w '%s'", err, arg)
		}

		regs[i] = reg
	}

	return regs, nil
}

// encode produces the words for a placed statement.
func (asm *Assembler) encode(st *statement) ([]uint16, error) {
	if mask, exists := isBranch(st.Op); exists {
		if err := operands(st, 1); err != nil {
			return nil, err
		}

		offset, err := asm.offset(st.Args[0], st, LITERAL_PCOFFSET9)

		if err != nil {
			return nil, err
		}

		return []uint16{mask<<9 | offset}, nil
	}

	base := instructions[st.Op]

	switch st.Op {
	case "ADD", "AND":
		if err := operands(st, 3); err != nil {
			return nil, err
		}

		regs, err := registers(st.Args[:2])

		if err != nil {
			return nil, err
		}

		base |= regs[0]<<9 | regs[1]<<6

		if isRegister(st.Args[2]) {
			sr2, _ := register(st.Args[2])
			return []uint16{base | sr2}, nil
		}

		imm, err := asm.value(st.Args[2], LITERAL_IMM5)

		if err != nil {
			return nil, err
		}

		return []uint16{base | 1<<5 | imm}, nil

	case "NOT":
		if err := operands(st, 2); err != nil {
			return nil, err
		}

		regs, err := registers(st.Args)

		if err != nil {
			return nil, err
		}

		return []uint16{base | regs[0]<<9 | regs[1]<<6}, nil

	case "JMP", "JSRR":
		if err := operands(st, 1); err != nil {
			return nil, err
		}

		regs, err := registers(st.Args)

		if err != nil {
			return nil, err
		}

		return []uint16{base | regs[0]<<6}, nil

	case "JSR":
		if err := operands(st, 1); err != nil {
			return nil, err
		}

		offset, err := asm.offset(st.Args[0], st, LITERAL_PCOFFSET11)

		if err != nil {
			return nil, err
		}

		return []uint16{base | offset}, nil

	case "LD", "LDI", "LEA", "ST", "STI":
		if err := operands(st, 2); err != nil {
			return nil, err
		}

		regs, err := registers(st.Args[:1])

		if err != nil {
			return nil, err
		}

		offset, err := asm.offset(st.Args[1], st, LITERAL_PCOFFSET9)

		if err != nil {
			return nil, err
		}

		return []uint16{base | regs[0]<<9 | offset}, nil

	case "LDR", "STR":
		if err := operands(st, 3); err != nil {
			return nil, err
		}

		regs, err := registers(st.Args[:2])

		if err != nil {
			return nil, err
		}

		offset, err := asm.value(st.Args[2], LITERAL_OFFSET6)

		if err != nil {
			return nil, err
		}

		return []uint16{base | regs[0]<<9 | regs[1]<<6 | offset}, nil

	case "TRAP":
		if err := operands(st, 1); err != nil {
			return nil, err
		}

		vector, err := asm.trapvector(st.Args[0])

		if err != nil {
			return nil, err
		}

		return []uint16{base | vector}, nil

	case DIRECTIVE_FILL:
		if err := operands(st, 1); err != nil {
			return nil, err
		}

		word, err := asm.value(st.Args[0], LITERAL_WORD)

		if err != nil {
			return nil, err
		}

		return []uint16{word}, nil

	case DIRECTIVE_BLKW:
		block := make([]uint16, st.Size)

		if len(st.Args) == 2 {
			word, err := asm.value(st.Args[1], LITERAL_WORD)

			if err != nil {
				return nil, err
			}

			for i := range block {
				block[i] = word
			}
		}

		return block, nil

	case DIRECTIVE_STRINGZ:
		text, _ := unquote(st.Args[0])
		words := make([]uint16, 0, len(text)+1)

		for i := 0; i < len(text); i++ {
			words = append(words, uint16(text[i]))
		}

		return append(words, 0), nil
	}

	// RET, RTI and the trap aliases take no operands
	if err := operands(st, 0); err != nil {
		return nil, err
	}

	return []uint16{base}, nil
}
