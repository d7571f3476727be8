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

//go:build unix

package console

import (
	"errors"

	"golang.org/x/sys/unix"
)

// pollReadable asks select(2) whether fd has input, without waiting.
func pollReadable(fd int) (bool, error) {
	var readfds unix.FdSet
	readfds.Set(fd)

	timeout := unix.Timeval{Sec: 0, Usec: 0}

	n, err := unix.Select(fd+1, &readfds, nil, nil, &timeout)

	if errors.Is(err, unix.EINTR) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return n > 0, nil
}
