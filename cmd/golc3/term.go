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

package main

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// rawTerminal switches the controlling terminal to unbuffered, unechoed
// input. Reads still block until a byte arrives.
type rawTerminal struct {
	fd int

	mutex sync.Mutex
	saved *unix.Termios
}

func newRawTerminal(fd int) *rawTerminal {
	return &rawTerminal{fd: fd}
}

func (term *rawTerminal) EnterRaw() error {
	term.mutex.Lock()
	defer term.mutex.Unlock()

	termios, err := unix.IoctlGetTermios(term.fd, ioctlGetTermios)

	// Redirected input has no line discipline to change
	if errors.Is(err, unix.ENOTTY) {
		return nil
	} else if err != nil {
		return err
	}

	termstate := *termios

	termstate.Lflag &^= unix.ECHO | unix.ICANON
	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(
		term.fd, ioctlSetTermios, &termstate,
	); err != nil {
		return err
	}

	term.saved = termios

	return nil
}

// Restore puts back the settings saved by EnterRaw. It is safe to call more
// than once and from the interrupt handler.
func (term *rawTerminal) Restore() error {
	term.mutex.Lock()
	defer term.mutex.Unlock()

	if term.saved == nil {
		return nil
	}

	return unix.IoctlSetTermios(term.fd, ioctlSetTermios, term.saved)
}
