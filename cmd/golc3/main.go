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
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/lassandro/golc3/pkg/console"
	"github.com/lassandro/golc3/pkg/encoding"
	"github.com/lassandro/golc3/pkg/machine"
	"github.com/lassandro/golc3/pkg/translate"
)

var helpvar bool
var verbosevar bool
var startvar string

const usage = "golc3 [-help] [-verbose] [-start 0x3000] image..."

const (
	EXIT_SUCCESS         = 0
	EXIT_IO              = 1
	EXIT_USAGE           = 2
	EXIT_INVALID_OPCODE  = 3
	EXIT_INVALID_PROGRAM = 4
	EXIT_INTERRUPT       = 130
)

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&verbosevar, "verbose", false,
		"Logs image loading and the start and end of execution",
	)
	flag.StringVar(
		&startvar, "start", "",
		"Overrides the initial program counter (hex, default 0x3000)",
	)
}

// exitCode maps a run result to the process exit status.
func exitCode(err error) int {
	var opErr *machine.InvalidOpcodeError

	switch {
	case err == nil:
		return EXIT_SUCCESS
	case errors.As(err, &opErr):
		return EXIT_INVALID_OPCODE
	case errors.Is(err, machine.ErrInvalidProgram):
		return EXIT_INVALID_PROGRAM
	}

	return EXIT_IO
}

func report(err error) int {
	var opErr *machine.InvalidOpcodeError

	if errors.As(err, &opErr) {
		log.Print(translate.From("Invalid opcode: %#x", opErr.Code))
	} else if err != nil {
		log.Println(err)
	}

	return exitCode(err)
}

// loadImages loads every image in order, so later images win where they
// overlap.
func loadImages(mc *machine.Machine, paths []string) error {
	for _, path := range paths {
		file, err := os.Open(path)

		if err != nil {
			return &machine.IOError{Op: translate.From("open image"), Err: err}
		}

		err = mc.LoadFrom(file)
		file.Close()

		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return nil
}

func golc3() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return EXIT_SUCCESS
	}

	args := flag.Args()

	if len(args) == 0 {
		log.Println(usage)
		return EXIT_USAGE
	}

	con := console.New(os.Stdin, os.Stdout)
	mc := machine.NewMachine(con)

	if verbosevar {
		mc.Logger = log.Default()
	}

	if startvar != "" {
		start, err := encoding.DecodeHex(startvar)

		if err != nil {
			log.Printf("-start %s: %v", startvar, err)
			return EXIT_USAGE
		}

		mc.Start = start
	}

	if err := loadImages(mc, args); err != nil {
		return report(err)
	}

	term := newRawTerminal(int(os.Stdin.Fd()))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, unix.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		if _, ok := <-signals; ok {
			term.Restore()
			fmt.Println()
			os.Exit(EXIT_INTERRUPT)
		}
	}()

	return report(mc.Run(term))
}

func main() {
	os.Exit(golc3())
}
