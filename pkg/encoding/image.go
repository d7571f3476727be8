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

package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Words in a full address space
	IMAGE_MAX_WORDS = 1 << 16

	// Header (origin) plus a full address space
	IMAGE_MAX_BYTES = 2 + 2*IMAGE_MAX_WORDS
)

var ErrInvalidProgram = errors.New(f("invalid program format"))

// Image is a program as stored on disk: the origin it loads at, followed by
// the words placed at consecutive addresses from there.
type Image struct {
	Origin uint16
	Words  []uint16
}

// End is one past the last address the image occupies. It may exceed the
// address space, which loaders must reject.
func (img Image) End() int {
	return int(img.Origin) + len(img.Words)
}

// ReadImage decodes a big-endian image: a 2-byte origin, then 2-byte words.
// A trailing odd byte is ignored.
func ReadImage(reader io.Reader) (Image, error) {
	// One word past the limit so oversized images stay detectable
	data, err := io.ReadAll(io.LimitReader(reader, IMAGE_MAX_BYTES+2))

	if err != nil {
		return Image{}, err
	}

	if len(data) < 2 {
		return Image{}, fmt.Errorf(
			"%w: %s", ErrInvalidProgram, f("missing origin header"),
		)
	}

	img := Image{
		Origin: binary.BigEndian.Uint16(data),
		Words:  make([]uint16, (len(data)-2)/2),
	}

	for i := range img.Words {
		img.Words[i] = binary.BigEndian.Uint16(data[2+i*2:])
	}

	return img, nil
}

// WriteImage encodes img in the format read by ReadImage.
func WriteImage(writer io.Writer, img Image) error {
	if img.End() > IMAGE_MAX_WORDS {
		return fmt.Errorf(
			"%w: %s", ErrInvalidProgram, f("image overruns memory"),
		)
	}

	if err := binary.Write(writer, binary.BigEndian, img.Origin); err != nil {
		return err
	}

	return binary.Write(writer, binary.BigEndian, img.Words)
}
