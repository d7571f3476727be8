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
	"encoding/gob"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lassandro/golc3/pkg/assembler"
	"github.com/lassandro/golc3/pkg/encoding"
)

var helpvar bool
var symbolsvar bool
var outvar string

const usage = "golc3-asm [-symbols] [-out outfile] [filename]"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&symbolsvar, "symbols", false,
		"Writes the label table next to the output file with extension "+
			"'.sym'",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
}

// replaceExt swaps the extension of filename, appending one when it has none
func replaceExt(filename string, ext string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
}

func writeImage(filename string, img encoding.Image) error {
	file, err := os.Create(filename)

	if err != nil {
		return err
	}

	if err := encoding.WriteImage(file, img); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

func writeSymbols(filename string, symbols map[string]uint16) error {
	file, err := os.Create(filename)

	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(symbols); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

func golc3_asm() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var input io.Reader

	switch len(args) {
	case 0:
		input = os.Stdin
		log.SetPrefix("<stdin>: ")

		if outvar == "" {
			outvar = "out.obj"
		}

	case 1:
		file, err := os.Open(args[0])

		if err != nil {
			log.Println(err)
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())
		input = file
		log.SetPrefix(fmt.Sprintf("%s: ", filename))

		if outvar == "" {
			outvar = replaceExt(filename, ".obj")
		}

	default:
		log.Println(usage)
		return 2
	}

	var asm assembler.Assembler

	img, err := asm.Assemble(input)

	if err != nil {
		log.Println(err)
		return 1
	}

	if err := writeImage(outvar, img); err != nil {
		log.Println("Error writing output file")
		log.Println(err)
		return 1
	}

	if symbolsvar {
		if err := writeSymbols(
			replaceExt(outvar, ".sym"), asm.Symbols,
		); err != nil {
			log.Println("Error writing symbol file")
			log.Println(err)
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(golc3_asm())
}
