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

package machine

//go:generate go tool stringer -linecomment -type=Opcode,Trap,State

const (
	MEMORY_SIZE = 1 << 16

	// Programs start in the user memory space
	PC_START uint16 = 0x3000
)

const (
	REG_R0 = iota
	REG_R1
	REG_R2
	REG_R3
	REG_R4
	REG_R5
	REG_R6
	REG_R7
	REG_PC
	REG_COND
	REG_COUNT
)

const (
	FLAG_POS  uint16 = 1 << 0
	FLAG_ZERO uint16 = 1 << 1
	FLAG_NEG  uint16 = 1 << 2
)

type Trap uint16

const (
	TRAP_GETC  Trap = 0x20 // GETC
	TRAP_OUT   Trap = 0x21 // OUT
	TRAP_PUTS  Trap = 0x22 // PUTS
	TRAP_IN    Trap = 0x23 // IN
	TRAP_PUTSP Trap = 0x24 // PUTSP
	TRAP_HALT  Trap = 0x25 // HALT
)

const (
	DEV_KBSR uint16 = 0xFE00
	DEV_KBDR uint16 = 0xFE02
)

// Keyboard status bit signalling a character in DEV_KBDR
const KBSR_READY uint16 = 1 << 15

type Opcode uint16

const (
	OP_BR   Opcode = 0b0000 // BR
	OP_ADD  Opcode = 0b0001 // ADD
	OP_LD   Opcode = 0b0010 // LD
	OP_ST   Opcode = 0b0011 // ST
	OP_JSR  Opcode = 0b0100 // JSR
	OP_AND  Opcode = 0b0101 // AND
	OP_LDR  Opcode = 0b0110 // LDR
	OP_STR  Opcode = 0b0111 // STR
	OP_RTI  Opcode = 0b1000 // RTI
	OP_NOT  Opcode = 0b1001 // NOT
	OP_LDI  Opcode = 0b1010 // LDI
	OP_STI  Opcode = 0b1011 // STI
	OP_JMP  Opcode = 0b1100 // JMP
	OP_RES  Opcode = 0b1101 // RES
	OP_LEA  Opcode = 0b1110 // LEA
	OP_TRAP Opcode = 0b1111 // TRAP
)

type State uint8

const (
	STATE_RUNNING State = iota // running
	STATE_HALTED               // halted
)

const (
	TRAP_IN_PROMPT = "Enter a character: "
	TRAP_HALT_TEXT = "HALT\n"
)
