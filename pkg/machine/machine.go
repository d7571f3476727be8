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

import (
	"errors"
	"io"

	"github.com/lassandro/golc3/pkg/encoding"
)

func NewMachine(console Console) *Machine {
	mc := &Machine{Console: console, Start: PC_START}

	if console != nil {
		mc.Memory.Keyboard = console
	}

	return mc
}

func (mc *Machine) State() State {
	return mc.state
}

func (mc *Machine) logf(format string, args ...interface{}) {
	if mc.Logger != nil {
		mc.Logger.Print(f(format, args...))
	}
}

// LoadImage places img in memory. Later images overwrite earlier ones where
// they overlap.
func (mc *Machine) LoadImage(img encoding.Image) error {
	if err := mc.Memory.LoadImage(img.Origin, img.Words); err != nil {
		return err
	}

	mc.logf("loaded %d words at %#04x", len(img.Words), img.Origin)

	return nil
}

// LoadFrom decodes an image from reader and loads it.
func (mc *Machine) LoadFrom(reader io.Reader) error {
	img, err := encoding.ReadImage(reader)

	if errors.Is(err, ErrInvalidProgram) {
		return err
	} else if err != nil {
		return &IOError{Op: f("read image"), Err: err}
	}

	return mc.LoadImage(img)
}

// Decode maps the top four bits of instruction to its opcode. RTI and RES
// have no implementation in this machine and always fail to decode.
func Decode(instruction uint16) (Opcode, error) {
	opcode := Opcode(instruction >> 12)

	switch opcode {
	case OP_RTI, OP_RES:
		return opcode, &InvalidOpcodeError{Code: uint16(opcode)}
	}

	return opcode, nil
}

// Flag derives the condition flag for a value written to a register.
func Flag(value uint16) uint16 {
	if value == 0 {
		return FLAG_ZERO
	} else if value>>15 == 1 {
		return FLAG_NEG
	}

	return FLAG_POS
}

func (mc *Machine) setFlags(reg uint16) {
	mc.Registers[REG_COND] = Flag(mc.Registers[reg])
}

// Run executes from mc.Start until a HALT trap or the first error. The
// terminal is put in raw mode for the duration and restored on every path
// out. A machine runs at most once.
func (mc *Machine) Run(term Terminal) (err error) {
	if mc.ran {
		return ErrAlreadyRun
	}

	mc.ran = true

	if term == nil {
		term = NopTerminal{}
	}

	if err := term.EnterRaw(); err != nil {
		return &IOError{Op: f("enter raw mode"), Err: err}
	}

	defer func() {
		if rerr := term.Restore(); rerr != nil && err == nil {
			err = &IOError{Op: f("restore terminal"), Err: rerr}
		}
	}()

	mc.Registers[REG_PC] = mc.Start
	mc.Registers[REG_COND] = FLAG_ZERO

	mc.logf("running from %#04x", mc.Start)

	for mc.state == STATE_RUNNING {
		if err := mc.Step(); err != nil {
			mc.logf("fault at %#04x: %v", mc.Registers[REG_PC]-1, err)
			return err
		}
	}

	mc.logf("halted at %#04x", mc.Registers[REG_PC]-1)

	return nil
}

// Instruction fields

func dr(instruction uint16) uint16 {
	return (instruction >> 9) & 0x7
}

func sr1(instruction uint16) uint16 {
	return (instruction >> 6) & 0x7
}

func sr2(instruction uint16) uint16 {
	return instruction & 0x7
}

func imm5(instruction uint16) uint16 {
	return encoding.SignExtend(instruction&0x1F, 5)
}

func offset6(instruction uint16) uint16 {
	return encoding.SignExtend(instruction&0x3F, 6)
}

func pcoffset9(instruction uint16) uint16 {
	return encoding.SignExtend(instruction&0x1FF, 9)
}

func pcoffset11(instruction uint16) uint16 {
	return encoding.SignExtend(instruction&0x7FF, 11)
}

// Step executes one instruction.
func (mc *Machine) Step() error {
	if mc.state == STATE_HALTED {
		return ErrHalted
	}

	instruction, err := mc.Memory.Read(mc.Registers[REG_PC])

	if err != nil {
		return err
	}

	mc.Registers[REG_PC]++

	opcode, err := Decode(instruction)

	if err != nil {
		return err
	}

	regs := &mc.Registers

	switch opcode {
	// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
	// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ADD:
		dest := dr(instruction)

		if (instruction>>5)&0x1 == 1 {
			regs[dest] = regs[sr1(instruction)] + imm5(instruction)
		} else {
			regs[dest] = regs[sr1(instruction)] + regs[sr2(instruction)]
		}

		mc.setFlags(dest)

	// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
	// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_AND:
		dest := dr(instruction)

		if (instruction>>5)&0x1 == 1 {
			regs[dest] = regs[sr1(instruction)] & imm5(instruction)
		} else {
			regs[dest] = regs[sr1(instruction)] & regs[sr2(instruction)]
		}

		mc.setFlags(dest)

	// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_NOT:
		dest := dr(instruction)

		regs[dest] = ^regs[sr1(instruction)]

		mc.setFlags(dest)

	// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_BR:
		if (instruction>>9)&0x7&regs[REG_COND] != 0 {
			regs[REG_PC] += pcoffset9(instruction)
		}

	// JMP  |1100    |000  |BaseR|000000      | Jump
	// RET  |1100    |000  |111  |000000      | Return
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JMP:
		regs[REG_PC] = regs[sr1(instruction)]

	// JSR  |0100    |1|PCoffset11            | Jump to subroutine
	// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JSR:
		// The link is saved first, so JSRR R7 falls through
		regs[REG_R7] = regs[REG_PC]

		if (instruction>>11)&0x1 == 1 {
			regs[REG_PC] += pcoffset11(instruction)
		} else {
			regs[REG_PC] = regs[sr1(instruction)]
		}

	// LD   |0010    |DR   |PCoffset9         | Load
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LD:
		dest := dr(instruction)
		value, err := mc.Memory.Read(regs[REG_PC] + pcoffset9(instruction))

		if err != nil {
			return err
		}

		regs[dest] = value

		mc.setFlags(dest)

	// LDI  |1010    |DR   |PCoffset9         | Load indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDI:
		dest := dr(instruction)
		addr, err := mc.Memory.Read(regs[REG_PC] + pcoffset9(instruction))

		if err != nil {
			return err
		}

		value, err := mc.Memory.Read(addr)

		if err != nil {
			return err
		}

		regs[dest] = value

		mc.setFlags(dest)

	// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDR:
		dest := dr(instruction)
		value, err := mc.Memory.Read(
			regs[sr1(instruction)] + offset6(instruction),
		)

		if err != nil {
			return err
		}

		regs[dest] = value

		mc.setFlags(dest)

	// LEA  |1110    |DR   |PCoffset9         | Load effective address
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LEA:
		dest := dr(instruction)

		regs[dest] = regs[REG_PC] + pcoffset9(instruction)

		mc.setFlags(dest)

	// ST   |0011    |SR   |PCoffset9         | Store
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ST:
		mc.Memory.Write(
			regs[REG_PC]+pcoffset9(instruction), regs[dr(instruction)],
		)

	// STI  |1011    |SR   |PCoffset9         | Store indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_STI:
		addr, err := mc.Memory.Read(regs[REG_PC] + pcoffset9(instruction))

		if err != nil {
			return err
		}

		mc.Memory.Write(addr, regs[dr(instruction)])

	// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_STR:
		mc.Memory.Write(
			regs[sr1(instruction)]+offset6(instruction), regs[dr(instruction)],
		)

	// TRAP |1111    |0000   |trapvect8       | System call
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_TRAP:
		vector := Trap(instruction & 0xFF)

		if err := mc.trap(vector); err != nil {
			return err
		}

		if vector == TRAP_HALT {
			mc.state = STATE_HALTED
		}
	}

	return nil
}
