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

	"github.com/lassandro/golc3/pkg/encoding"
	"github.com/lassandro/golc3/pkg/translate"
)

var f = translate.From

var (
	ErrInvalidProgram = encoding.ErrInvalidProgram
	ErrHalted         = errors.New(f("machine is halted"))
	ErrAlreadyRun     = errors.New(f("machine has already run"))
	ErrNoConsole      = errors.New(f("no console attached"))
)

// IOError wraps a failure of the console, the terminal or an image source.
type IOError struct {
	Op  string
	Err error
}

func (err *IOError) Error() string {
	return f("%s: %v", err.Op, err.Err)
}

func (err *IOError) Unwrap() error {
	return err.Err
}

// InvalidOpcodeError carries an opcode, or a trap vector, that has no handler.
type InvalidOpcodeError struct {
	Code uint16
}

func (err *InvalidOpcodeError) Error() string {
	return f("invalid opcode %#x", err.Code)
}
