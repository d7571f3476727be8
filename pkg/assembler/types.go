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
	"errors"

	"github.com/lassandro/golc3/pkg/translate"
)

var f = translate.From

var (
	ErrMissingOrigin   = errors.New(f("missing .ORIG"))
	ErrDuplicateOrigin = errors.New(f(".ORIG already given"))
	ErrUnknownOp       = errors.New(f("unknown instruction"))
	ErrOperandCount    = errors.New(f("wrong number of operands"))
	ErrRegister        = errors.New(f("invalid register"))
	ErrLiteral         = errors.New(f("invalid literal"))
	ErrRange           = errors.New(f("value out of range"))
	ErrLabel           = errors.New(f("invalid label"))
	ErrUnknownLabel    = errors.New(f("unknown label"))
	ErrDuplicateLabel  = errors.New(f("label redeclared"))
	ErrString          = errors.New(f("invalid string literal"))
	ErrExpression      = errors.New(f("invalid expression"))
	ErrOverflow        = errors.New(f("program overruns memory"))
)

// SyntaxError locates an assembly error in the source.
type SyntaxError struct {
	Line int
	Text string
	Err  error
}

func (err *SyntaxError) Error() string {
	return f("line %d '%s': %v", err.Line, err.Text, err.Err)
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}

type statement struct {
	Line    int
	Text    string
	Label   string
	Op      string
	Args    []string
	Address uint16
	Size    int
}
