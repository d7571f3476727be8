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

package machine_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/golc3/pkg/machine"
)

// testConsole is an in-memory console. Keys are queued with Type and Poll
// reports whether any are pending.
type testConsole struct {
	keys    []byte
	display bytes.Buffer
	flushed int

	PollErr  error
	WriteErr error
}

func (tc *testConsole) Type(s string) {
	tc.keys = append(tc.keys, s...)
}

func (tc *testConsole) ReadByte() (byte, error) {
	if len(tc.keys) == 0 {
		return 0, io.EOF
	}

	key := tc.keys[0]
	tc.keys = tc.keys[1:]

	return key, nil
}

func (tc *testConsole) Poll() (bool, error) {
	if tc.PollErr != nil {
		return false, tc.PollErr
	}

	return len(tc.keys) > 0, nil
}

func (tc *testConsole) WriteByte(c byte) error {
	if tc.WriteErr != nil {
		return tc.WriteErr
	}

	return tc.display.WriteByte(c)
}

func (tc *testConsole) Flush() error {
	tc.flushed = tc.display.Len()
	return nil
}

// Output returns what the program wrote, failing if part of it was never
// flushed.
func (tc *testConsole) Output(t *testing.T) string {
	assert.Equal(t, tc.display.Len(), tc.flushed, "unflushed display output")
	return tc.display.String()
}

type testMachineState struct {
	Registers [8]uint16
	Program   uint16
	Condition uint16
	Memory    map[uint16]uint16
}

type testCase struct {
	Name     string
	Steps    uint
	Keyboard string
	Display  string
	Input    testMachineState
	Output   testMachineState
}

func testMachineSuccess(t *testing.T, test *testCase) {
	if test.Input.Memory == nil && test.Output.Memory == nil {
		panic("No memory maps provided")
	}

	var console testConsole
	console.Type(test.Keyboard)

	mc := machine.NewMachine(&console)

	copy(mc.Registers[:8], test.Input.Registers[:])
	mc.Registers[machine.REG_PC] = test.Input.Program
	mc.Registers[machine.REG_COND] = test.Input.Condition

	for addr, value := range test.Input.Memory {
		mc.Memory.Write(addr, value)
	}

	if test.Steps == 0 {
		test.Steps = 1
	}

	for i := uint(0); i < test.Steps; i++ {
		require.NoError(t, mc.Step())
	}

	for i := 0; i < 8; i++ {
		assert.Equalf(
			t, test.Output.Registers[i], mc.Registers[i],
			"Register mismatch (test.Output.Registers[%d])", i,
		)
	}

	assert.Equal(
		t, test.Output.Program, mc.Registers[machine.REG_PC],
		"Program register mismatch (test.Output.Program)",
	)

	assert.Equal(
		t, test.Output.Condition, mc.Registers[machine.REG_COND],
		"Condition flag mismatch (test.Output.Condition)",
	)

	for i, value := range mc.Memory.Cells {
		input, expectingInput := test.Input.Memory[uint16(i)]
		output, expectingOutput := test.Output.Memory[uint16(i)]

		if expectingOutput {
			// Value was supposed to change
			if value != output {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Output.Memory[%#04x])\nhave:%#02x",
					output,
					i,
					value,
				)
			}
		} else if expectingInput {
			// Value was supposed to remain
			if value != input {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Input.Memory[%#04x])\nhave:%#02x",
					input,
					i,
					value,
				)
			}
		} else if value != 0 {
			// Value was expected to remain unitialized
			t.Fatalf(
				"Memory unexpectedly changed"+
					"\nwant:0x00 (test.Output.Memory[%#04x])\nhave:%#02x",
				i,
				value,
			)
		}
	}

	assert.Equal(t, test.Display, console.Output(t), "Display mismatch")
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testMachineSuccess(t, &test)
			})
		}
	})
}

func TestFlag(t *testing.T) {
	for v := 0; v <= 0xFFFF; v++ {
		value := uint16(v)
		flag := machine.Flag(value)

		switch {
		case value == 0:
			require.Equal(t, machine.FLAG_ZERO, flag, "%#04x", value)
		case value&0x8000 != 0:
			require.Equal(t, machine.FLAG_NEG, flag, "%#04x", value)
		default:
			require.Equal(t, machine.FLAG_POS, flag, "%#04x", value)
		}
	}
}

func TestDecode(t *testing.T) {
	for op := uint16(0); op < 16; op++ {
		for low := uint16(0); low < 1<<12; low++ {
			opcode, err := machine.Decode(op<<12 | low)

			require.Equal(t, machine.Opcode(op), opcode)

			if op == 8 || op == 13 {
				var invalid *machine.InvalidOpcodeError
				require.ErrorAs(t, err, &invalid)
				require.Equal(t, op, invalid.Code)
			} else {
				require.NoError(t, err)
			}
		}
	}
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "ADD", machine.OP_ADD.String())
	assert.Equal(t, "TRAP", machine.OP_TRAP.String())
	assert.Equal(t, "PUTSP", machine.TRAP_PUTSP.String())
	assert.Equal(t, "Trap(255)", machine.Trap(0xFF).String())
	assert.Equal(t, "halted", machine.STATE_HALTED.String())
}

// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAdd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "ADD SR2 Negative",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0x0001, // SR1
					2: 0x8001, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_000_001_0_00_010,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0x8002, // DR
					1: 0x0001, // SR1
					2: 0x8001, // SR2
				},
			},
		},
		{
			Name: "ADD SR2 Overflow Zero",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0xFFFF, // SR1
					2: 0x0001, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_000_001_0_00_010,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					0: 0x0000, // DR
					1: 0xFFFF, // SR1
					2: 0x0001, // SR2
				},
			},
		},
		{
			Name: "ADD imm5 Wraparound",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0xFFFF, // SR1
				},
				Memory: map[uint16]uint16{
					// ADD R0, R1, #1
					0x3000: 0b0001_000_001_1_00001,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					0: 0x0000, // DR
					1: 0xFFFF, // SR1
				},
			},
		},
		{
			Name: "ADD imm5 Negative",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x0005, // SR1
				},
				Memory: map[uint16]uint16{
					// ADD R0, R1, #-6
					0x3000: 0b0001_000_001_1_11010,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0xFFFF, // DR
					1: 0x0005, // SR1
				},
			},
		},
		{
			Name: "ADD imm5 Positive Same Register",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					3: 0x0001, // DR, SR1
				},
				Memory: map[uint16]uint16{
					// ADD R3, R3, #15
					0x3000: 0b0001_011_011_1_01111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					3: 0x0010, // DR, SR1
				},
			},
		},
	})
}

// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAnd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "AND SR2 Positive",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0xFF0F, // SR1
					7: 0x0FF0, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0101_000_001_0_00_111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x0F00, // DR
					1: 0xFF0F, // SR1
					7: 0x0FF0, // SR2
				},
			},
		},
		{
			Name: "AND imm5 Clear",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR, SR1
				},
				Memory: map[uint16]uint16{
					// AND R0, R0, #0
					0x3000: 0b0101_000_000_1_00000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
			},
		},
		{
			Name: "AND imm5 Sign Extended Mask",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x8001, // SR1
				},
				Memory: map[uint16]uint16{
					// AND R2, R1, #-1
					0x3000: 0b0101_010_001_1_11111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					1: 0x8001, // SR1
					2: 0x8001, // DR
				},
			},
		},
	})
}

// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestNot(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "NOT Negative",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x00FF, // SR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1001_000_001_111111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0xFF00, // DR
					1: 0x00FF, // SR
				},
			},
		},
		{
			Name: "NOT Zero",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0x1234, // DR
					1: 0xFFFF, // SR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1001_000_001_111111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					1: 0xFFFF, // SR
				},
			},
		},
	})
}

// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestBranch(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "BRz Taken",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_010_000000101,
				},
			},
			Output: testMachineState{
				Program:   0x3006,
				Condition: machine.FLAG_ZERO,
			},
		},
		{
			Name: "BRn Not Taken",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_100_000000101,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
			},
		},
		{
			Name: "BRnzp Backwards",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_POS,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_111_111111110,
				},
			},
			Output: testMachineState{
				Program:   0x2FFF,
				Condition: machine.FLAG_POS,
			},
		},
		{
			Name: "BR Empty Mask",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_000_000000101,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
			},
		},
		{
			Name: "BRnzp Wraparound",
			Input: testMachineState{
				Program:   0xFFFF,
				Condition: machine.FLAG_NEG,
				Memory: map[uint16]uint16{
					0xFFFF: 0b0000_111_000000001,
				},
			},
			Output: testMachineState{
				Program:   0x0001,
				Condition: machine.FLAG_NEG,
			},
		},
	})
}

// JMP  |1100    |000  |BaseR|000000      | Jump
// RET  |1100    |000  |111  |000000      | Return
// JSR  |0100    |1|PCoffset11            | Jump to subroutine
// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestJump(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "JMP",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					2: 0x4000, // BaseR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1100_000_010_000000,
				},
			},
			Output: testMachineState{
				Program: 0x4000,
				Registers: [8]uint16{
					2: 0x4000, // BaseR
				},
			},
		},
		{
			Name: "RET",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					7: 0x3050, // Link
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1100_000_111_000000,
				},
			},
			Output: testMachineState{
				Program: 0x3050,
				Registers: [8]uint16{
					7: 0x3050, // Link
				},
			},
		},
		{
			Name: "JSR Forward",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					7: 0xCAFE, // Link
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0100_1_00000010000,
				},
			},
			Output: testMachineState{
				Program: 0x3011,
				Registers: [8]uint16{
					7: 0x3001, // Link
				},
			},
		},
		{
			Name: "JSR Backward",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b0100_1_11111111111,
				},
			},
			Output: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					7: 0x3001, // Link
				},
			},
		},
		{
			Name: "JSRR",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					3: 0x5000, // BaseR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0100_0_00_011_000000,
				},
			},
			Output: testMachineState{
				Program:   0x5000,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					3: 0x5000, // BaseR
					7: 0x3001, // Link
				},
			},
		},
	})
}

func TestLoadStore(t *testing.T) {
	testSuccess(t, []testCase{
		// LD   |0010    |DR   |PCoffset9         | Load
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "LD Positive",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b0010_000_000000010,
					0x3003: 0x1234,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x1234, // DR
				},
			},
		},
		{
			Name: "LD Negative",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b0010_001_000000011,
					0x3004: 0x8000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					1: 0x8000, // DR
				},
			},
		},
		// LDI  |1010    |DR   |PCoffset9         | Load indirect
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "LDI Double Indirection",
			Input: testMachineState{
				Program: 0x0060,
				Memory: map[uint16]uint16{
					0x0060: 0b1010_000_000000011,
					100:    200,
					200:    0x1234,
				},
			},
			Output: testMachineState{
				Program:   0x0061,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x1234, // DR
				},
			},
		},
		// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "LDR Negative Offset",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x4002, // BaseR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0110_000_001_111110,
					0x4000: 0x7FFF,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x7FFF, // DR
					1: 0x4002, // BaseR
				},
			},
		},
		{
			Name: "LDR Wraparound",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0xFFFF, // BaseR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0110_000_001_000001,
					0x0000: 0xBEEF,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0xBEEF, // DR
					1: 0xFFFF, // BaseR
				},
			},
		},
		// LEA  |1110    |DR   |PCoffset9         | Load effective address
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "LEA",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b1110_101_111110000,
					0x2FF1: 0x8000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					5: 0x2FF1, // DR
				},
			},
		},
		// ST   |0011    |SR   |PCoffset9         | Store
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "ST",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					3: 0xABCD, // SR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0011_011_000000100,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					3: 0xABCD, // SR
				},
				Memory: map[uint16]uint16{
					0x3005: 0xABCD,
				},
			},
		},
		// STI  |1011    |SR   |PCoffset9         | Store indirect
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "STI",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					2: 0x55AA, // SR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1011_010_000000001,
					0x3002: 0x4000,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					2: 0x55AA, // SR
				},
				Memory: map[uint16]uint16{
					0x4000: 0x55AA,
				},
			},
		},
		// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		{
			Name: "STR",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					4: 0x1111, // SR
					5: 0x4000, // BaseR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0111_100_101_000101,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					4: 0x1111, // SR
					5: 0x4000, // BaseR
				},
				Memory: map[uint16]uint16{
					0x4005: 0x1111,
				},
			},
		},
		{
			Name: "STR Device Register",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0x1234, // SR
					1: 0xFE00, // BaseR (Keyboard Status Register)
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0111_000_001_000000,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					0: 0x1234, // SR
					1: 0xFE00, // BaseR (Keyboard Status Register)
				},
				Memory: map[uint16]uint16{
					0xFE00: 0x1234,
				},
			},
		},
	})
}

// TRAP |1111    |0000   |trapvect8       | System call
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestTrap(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "TRAP OUT",
			Display: "A",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0x0141, // Low byte 'A'
				},
				Memory: map[uint16]uint16{
					0x3000: 0xF021,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					0: 0x0141,
					7: 0x3001, // Link
				},
			},
		},
		{
			Name:    "TRAP PUTS",
			Display: "Hi",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0x4000, // String address
				},
				Memory: map[uint16]uint16{
					0x3000: 0xF022,
					0x4000: 'H',
					0x4001: 'i',
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					0: 0x4000,
					7: 0x3001, // Link
				},
			},
		},
		{
			Name:    "TRAP PUTSP",
			Display: "Hi!",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0x4000, // String address
				},
				Memory: map[uint16]uint16{
					0x3000: 0xF024,
					0x4000: 'i'<<8 | 'H',
					0x4001: '!',
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					0: 0x4000,
					7: 0x3001, // Link
				},
			},
		},
		{
			Name:     "TRAP GETC",
			Keyboard: "x",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0x3000: 0xF020,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 'x',
					7: 0x3001, // Link
				},
			},
		},
		{
			Name:     "TRAP IN",
			Keyboard: "y",
			Display:  machine.TRAP_IN_PROMPT + "y",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0xF023,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 'y',
					7: 0x3001, // Link
				},
			},
		},
		{
			Name:    "TRAP HALT",
			Display: "HALT\n",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0xF025,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					7: 0x3001, // Link
				},
			},
		},
	})
}

func TestTrapInvalid(t *testing.T) {
	var console testConsole
	mc := machine.NewMachine(&console)
	mc.Registers[machine.REG_PC] = 0x3000
	mc.Memory.Write(0x3000, 0xF0FF)

	var invalid *machine.InvalidOpcodeError
	require.ErrorAs(t, mc.Step(), &invalid)
	assert.Equal(t, uint16(0xFF), invalid.Code)
	assert.Equal(t, machine.STATE_RUNNING, mc.State())
}

func TestTrapGetcEndOfInput(t *testing.T) {
	var console testConsole
	mc := machine.NewMachine(&console)
	mc.Registers[machine.REG_PC] = 0x3000
	mc.Memory.Write(0x3000, 0xF020)

	var ioErr *machine.IOError
	require.ErrorAs(t, mc.Step(), &ioErr)
	assert.ErrorIs(t, ioErr, io.EOF)
}

func TestTrapWriteFailure(t *testing.T) {
	console := testConsole{WriteErr: io.ErrClosedPipe}
	mc := machine.NewMachine(&console)
	mc.Registers[machine.REG_PC] = 0x3000
	mc.Memory.Write(0x3000, 0xF025)

	err := mc.Step()

	var ioErr *machine.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, machine.STATE_RUNNING, mc.State())
}

func TestTrapNoConsole(t *testing.T) {
	mc := machine.NewMachine(nil)
	mc.Registers[machine.REG_PC] = 0x3000
	mc.Memory.Write(0x3000, 0xF021)

	assert.ErrorIs(t, mc.Step(), machine.ErrNoConsole)
}

// RTI  |1000    |000000000000            | Return from interrupt
// RES  |1101    |                        | Reserved (illegal)
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestReserved(t *testing.T) {
	for _, instruction := range []uint16{0x8000, 0x8FFF, 0xD000, 0xDABC} {
		var console testConsole
		mc := machine.NewMachine(&console)
		mc.Registers[machine.REG_PC] = 0x3000
		mc.Memory.Write(0x3000, instruction)

		var invalid *machine.InvalidOpcodeError
		require.ErrorAs(t, mc.Step(), &invalid)
		assert.Equal(t, instruction>>12, invalid.Code)
	}
}

func TestKeyboard(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:     "Read Keyboard",
			Steps:    2,
			Keyboard: "foobar",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xDEAD, // LDR[0] DR
					1: 0xFE00, // LDR[0] BaseR (Keyboard Status Register)
					2: 0xDEAD, // LDR[1] DR
					3: 0xFE02, // LDR[1] BaseR (Keyboard Data Register)
				},
				Memory: map[uint16]uint16{
					// LDR R0 R1 0x0
					0x3000: 0b0110_000_001_000000,
					// LDR R2 R3 0x0
					0x3001: 0b0110_010_011_000000,
				},
			},
			Output: testMachineState{
				Program:   0x3002,
				Condition: machine.FLAG_POS, // LDR[1] DR ('f', #102)
				Registers: [8]uint16{
					0: 0x8000, // LDR[0] DR (KBSR: 1 << 15)
					1: 0xFE00, // LDR[0] BaseR (Keyboard Status Register)
					2: 0x0066, // LDR[1] DR (KBDR: 'f', #102)
					3: 0xFE02, // LDR[1] BaseR (Keyboard Data Register)
				},
				Memory: map[uint16]uint16{
					0xFE00: 0x8000,
					0xFE02: 0x0066,
				},
			},
		},
		{
			Name: "Read Idle Keyboard",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					// LDI R0 #0 (address in next word)
					0x3000: 0b1010_000_000000000,
					0x3001: 0xFE00,
					// Stale status is cleared by the poll
					0xFE00: 0x8000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0xFE00: 0x0000,
				},
			},
		},
	})
}

func TestKeyboardPoll(t *testing.T) {
	var console testConsole
	mc := machine.NewMachine(&console)

	read := func(addr uint16) uint16 {
		value, err := mc.Memory.Read(addr)
		require.NoError(t, err)
		return value
	}

	assert.Zero(t, read(machine.DEV_KBSR))
	assert.Zero(t, read(machine.DEV_KBSR))

	console.Type("a")

	assert.Equal(t, machine.KBSR_READY, read(machine.DEV_KBSR))
	assert.Equal(t, uint16('a'), read(machine.DEV_KBDR))

	// Data register keeps the last key, status drops with no new input
	assert.Zero(t, read(machine.DEV_KBSR))
	assert.Equal(t, uint16('a'), read(machine.DEV_KBDR))
}

func TestKeyboardPollFailure(t *testing.T) {
	console := testConsole{PollErr: io.ErrUnexpectedEOF}
	mc := machine.NewMachine(&console)

	_, err := mc.Memory.Read(machine.DEV_KBSR)

	var ioErr *machine.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// Other addresses never touch the device
	value, err := mc.Memory.Read(machine.DEV_KBDR)
	assert.NoError(t, err)
	assert.Zero(t, value)
}

func TestKeyboardDetached(t *testing.T) {
	var mem machine.Memory
	mem.Write(machine.DEV_KBSR, 0x8000)

	value, err := mem.Read(machine.DEV_KBSR)
	require.NoError(t, err)
	assert.Zero(t, value)
}
