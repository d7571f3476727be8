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

package assembler

import (
	"github.com/lassandro/golc3/pkg/machine"
)

const (
	DIRECTIVE_ORIG    = ".ORIG"
	DIRECTIVE_FILL    = ".FILL"
	DIRECTIVE_BLKW    = ".BLKW"
	DIRECTIVE_STRINGZ = ".STRINGZ"
	DIRECTIVE_END     = ".END"
)

const (
	LITERAL_IMM5       uint16 = 5
	LITERAL_OFFSET6    uint16 = 6
	LITERAL_TRAPVEC8   uint16 = 8
	LITERAL_PCOFFSET9  uint16 = 9
	LITERAL_PCOFFSET11 uint16 = 11
	LITERAL_WORD       uint16 = 16
)

type operandKind uint

const (
	OPERAND_DECIMAL operandKind = iota
	OPERAND_HEX
	OPERAND_ADDRESS
)

func opcode(op machine.Opcode) uint16 {
	return uint16(op) << 12
}

func trap(vector machine.Trap) uint16 {
	return opcode(machine.OP_TRAP) | uint16(vector)
}

// Base encodings, operands are OR'ed in by the encoder
var instructions = map[string]uint16{
	"ADD":   opcode(machine.OP_ADD),
	"AND":   opcode(machine.OP_AND),
	"NOT":   opcode(machine.OP_NOT) | 0x3F,
	"JMP":   opcode(machine.OP_JMP),
	"RET":   opcode(machine.OP_JMP) | machine.REG_R7<<6,
	"JSR":   opcode(machine.OP_JSR) | 1<<11,
	"JSRR":  opcode(machine.OP_JSR),
	"LD":    opcode(machine.OP_LD),
	"LDI":   opcode(machine.OP_LDI),
	"LDR":   opcode(machine.OP_LDR),
	"LEA":   opcode(machine.OP_LEA),
	"ST":    opcode(machine.OP_ST),
	"STI":   opcode(machine.OP_STI),
	"STR":   opcode(machine.OP_STR),
	"RTI":   opcode(machine.OP_RTI),
	"TRAP":  opcode(machine.OP_TRAP),
	"GETC":  trap(machine.TRAP_GETC),
	"OUT":   trap(machine.TRAP_OUT),
	"PUTS":  trap(machine.TRAP_PUTS),
	"IN":    trap(machine.TRAP_IN),
	"PUTSP": trap(machine.TRAP_PUTSP),
	"HALT":  trap(machine.TRAP_HALT),
}

var directives = map[string]bool{
	DIRECTIVE_ORIG:    true,
	DIRECTIVE_FILL:    true,
	DIRECTIVE_BLKW:    true,
	DIRECTIVE_STRINGZ: true,
	DIRECTIVE_END:     true,
}
