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
	"log"
)

// Keyboard is the input half of the character stream. ReadByte blocks until a
// character arrives; Poll must answer immediately.
type Keyboard interface {
	ReadByte() (byte, error)
	Poll() (bool, error)
}

// Display is the output half of the character stream.
type Display interface {
	WriteByte(c byte) error
	Flush() error
}

type Console interface {
	Keyboard
	Display
}

// Terminal switches the host input between line-buffered and raw modes. Run
// enters raw mode once before the first instruction and restores it once
// after the last.
type Terminal interface {
	EnterRaw() error
	Restore() error
}

// NopTerminal leaves the host terminal alone.
type NopTerminal struct{}

func (NopTerminal) EnterRaw() error { return nil }
func (NopTerminal) Restore() error  { return nil }

type Registers [REG_COUNT]uint16

type Memory struct {
	Cells    [MEMORY_SIZE]uint16
	Keyboard Keyboard
}

type Machine struct {
	Console   Console
	Logger    *log.Logger
	Start     uint16
	Registers Registers
	Memory    Memory

	state State
	ran   bool
}
