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

// Package encoding holds the bit-level helpers shared by the machine and the
// assembler, and the codec for program images.
package encoding

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lassandro/golc3/pkg/translate"
)

var f = translate.From

var (
	ErrInvalidHex = errors.New(f("invalid hex string"))
	ErrInvalidInt = errors.New(f("invalid decimal string"))
)

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 || s[0] != '0' {
		return 0, ErrInvalidHex
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, ErrInvalidHex
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123, #-123, -123
func DecodeInt(s string) (int16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 16)

	if err != nil {
		return 0, ErrInvalidInt
	}

	return int16(result), nil
}

// SignExtend widens the low bitcount bits of value to 16 bits, preserving the
// two's-complement value of the field.
func SignExtend(value uint16, bitcount uint16) uint16 {
	if (value>>(bitcount-1))&0x1 == 1 {
		value |= (0xFFFF << bitcount)
	}

	return value
}

// FitsSigned reports whether value survives truncation to a bitcount-bit
// two's-complement field.
func FitsSigned(value int, bitcount uint16) bool {
	limit := 1 << (bitcount - 1)
	return value >= -limit && value < limit
}
