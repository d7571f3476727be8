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

// Package console implements the machine's character stream over host files.
package console

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// Console buffers both directions. Poll answers from the input buffer first
// and falls back to asking the host whether the descriptor is readable.
type Console struct {
	fd     int
	reader *bufio.Reader
	writer *bufio.Writer
}

// New attaches to a host input file, typically os.Stdin.
func New(input *os.File, output io.Writer) *Console {
	return &Console{
		fd:     int(input.Fd()),
		reader: bufio.NewReader(input),
		writer: bufio.NewWriter(output),
	}
}

// NewBuffered attaches to an arbitrary reader. Poll peeks the reader, so it
// only stays non-blocking for readers that never wait, such as in-memory
// buffers.
func NewBuffered(input io.Reader, output io.Writer) *Console {
	return &Console{
		fd:     -1,
		reader: bufio.NewReader(input),
		writer: bufio.NewWriter(output),
	}
}

func (c *Console) ReadByte() (byte, error) {
	return c.reader.ReadByte()
}

func (c *Console) Poll() (bool, error) {
	if c.reader.Buffered() > 0 {
		return true, nil
	}

	if c.fd < 0 {
		_, err := c.reader.Peek(1)

		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return err == nil, err
	}

	return pollReadable(c.fd)
}

func (c *Console) WriteByte(b byte) error {
	return c.writer.WriteByte(b)
}

func (c *Console) Flush() error {
	return c.writer.Flush()
}
