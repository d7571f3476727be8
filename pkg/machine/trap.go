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

// trap runs the system routine selected by vector. R7 receives the return
// address before dispatch, matching the hardware's TRAP linkage.
func (mc *Machine) trap(vector Trap) error {
	mc.Registers[REG_R7] = mc.Registers[REG_PC]

	switch vector {
	case TRAP_GETC:
		key, err := mc.getc(vector)

		if err != nil {
			return err
		}

		mc.Registers[REG_R0] = uint16(key)
		mc.setFlags(REG_R0)

	case TRAP_OUT:
		if err := mc.putc(vector, byte(mc.Registers[REG_R0])); err != nil {
			return err
		}

		return mc.flush(vector)

	case TRAP_PUTS:
		for addr := mc.Registers[REG_R0]; ; addr++ {
			value, err := mc.Memory.Read(addr)

			if err != nil {
				return err
			}

			if value == 0 {
				break
			}

			if err := mc.putc(vector, byte(value)); err != nil {
				return err
			}
		}

		return mc.flush(vector)

	case TRAP_IN:
		if err := mc.puts(vector, TRAP_IN_PROMPT); err != nil {
			return err
		}

		if err := mc.flush(vector); err != nil {
			return err
		}

		key, err := mc.getc(vector)

		if err != nil {
			return err
		}

		if err := mc.putc(vector, key); err != nil {
			return err
		}

		if err := mc.flush(vector); err != nil {
			return err
		}

		mc.Registers[REG_R0] = uint16(key)
		mc.setFlags(REG_R0)

	case TRAP_PUTSP:
		for addr := mc.Registers[REG_R0]; ; addr++ {
			value, err := mc.Memory.Read(addr)

			if err != nil {
				return err
			}

			if value == 0 {
				break
			}

			if err := mc.putc(vector, byte(value)); err != nil {
				return err
			}

			if high := byte(value >> 8); high != 0 {
				if err := mc.putc(vector, high); err != nil {
					return err
				}
			}
		}

		return mc.flush(vector)

	case TRAP_HALT:
		if err := mc.puts(vector, TRAP_HALT_TEXT); err != nil {
			return err
		}

		return mc.flush(vector)

	default:
		return &InvalidOpcodeError{Code: uint16(vector)}
	}

	return nil
}

func (mc *Machine) getc(vector Trap) (byte, error) {
	if mc.Console == nil {
		return 0, &IOError{Op: vector.String(), Err: ErrNoConsole}
	}

	key, err := mc.Console.ReadByte()

	if err != nil {
		return 0, &IOError{Op: vector.String(), Err: err}
	}

	return key, nil
}

func (mc *Machine) putc(vector Trap, c byte) error {
	if mc.Console == nil {
		return &IOError{Op: vector.String(), Err: ErrNoConsole}
	}

	if err := mc.Console.WriteByte(c); err != nil {
		return &IOError{Op: vector.String(), Err: err}
	}

	return nil
}

func (mc *Machine) puts(vector Trap, s string) error {
	for i := 0; i < len(s); i++ {
		if err := mc.putc(vector, s[i]); err != nil {
			return err
		}
	}

	return nil
}

func (mc *Machine) flush(vector Trap) error {
	if mc.Console == nil {
		return &IOError{Op: vector.String(), Err: ErrNoConsole}
	}

	if err := mc.Console.Flush(); err != nil {
		return &IOError{Op: vector.String(), Err: err}
	}

	return nil
}
