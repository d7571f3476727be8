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
	"fmt"
	"io"
)

// Read returns the word at addr. Reading DEV_KBSR first polls the keyboard
// without blocking and refreshes DEV_KBSR and DEV_KBDR, so that read is never
// idempotent. Every other address reads as plain storage.
func (mem *Memory) Read(addr uint16) (uint16, error) {
	if addr == DEV_KBSR {
		if err := mem.pollKeyboard(); err != nil {
			return 0, err
		}
	}

	return mem.Cells[addr], nil
}

func (mem *Memory) pollKeyboard() error {
	if mem.Keyboard == nil {
		mem.Cells[DEV_KBSR] = 0
		return nil
	}

	ready, err := mem.Keyboard.Poll()

	if err != nil {
		return &IOError{Op: f("keyboard poll"), Err: err}
	}

	if !ready {
		mem.Cells[DEV_KBSR] = 0
		return nil
	}

	key, err := mem.Keyboard.ReadByte()

	if errors.Is(err, io.EOF) {
		mem.Cells[DEV_KBSR] = 0
		return nil
	} else if err != nil {
		return &IOError{Op: f("keyboard read"), Err: err}
	}

	mem.Cells[DEV_KBSR] = KBSR_READY
	mem.Cells[DEV_KBDR] = uint16(key)

	return nil
}

// Write stores value at addr. Device registers are plain storage on write.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem.Cells[addr] = value
}

// LoadImage copies words into memory starting at origin.
func (mem *Memory) LoadImage(origin uint16, words []uint16) error {
	if end := int(origin) + len(words); end > MEMORY_SIZE {
		return fmt.Errorf(
			"%w: %s", ErrInvalidProgram,
			f("image at %#04x overruns memory by %d words",
				origin, end-MEMORY_SIZE),
		)
	}

	copy(mem.Cells[origin:], words)

	return nil
}
