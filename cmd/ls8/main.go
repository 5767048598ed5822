package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/io"
)

const usage = "ls8 [-v] [-hz rate] [-o image] source.ls8"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func run() int {
	var verbose bool
	var hz int
	var output string

	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&hz, "hz", emulator.DEFAULT_STEP_HZ, "Steps per second")
	flag.StringVar(&output, "o", "", "Assemble only; write the memory image to a file")

	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	inf, err := os.Open(args[0])
	if err != nil {
		log.Printf("%v: %v", args[0], err)
		return 1
	}
	defer inf.Close()

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.StepHz = hz

	asm := &cpu.Assembler{Verbose: verbose}
	for attr, val := range emu.Defines() {
		asm.Predefine(attr, val)
	}

	prog, err := asm.Parse(inf)
	if err != nil {
		log.Printf("%v: %v", args[0], err)
		return 1
	}
	emu.Program = prog

	if len(output) != 0 {
		err = os.WriteFile(output, prog.Binary(), 0o644)
		if err != nil {
			log.Printf("%v: %v", output, err)
			return 1
		}
		return 0
	}

	emu.Display.Output = os.Stdout

	// Keyboard input needs the terminal in non-canonical, no-echo,
	// non-blocking mode. Without a terminal the program runs deaf.
	if err := enterRawTerm(); err == nil {
		defer exitRawTerm()
		emu.Keys = &io.FileKeys{File: os.Stdin}
	}

	if err := emu.Reset(); err != nil {
		log.Println(err)
		return 1
	}

	last := time.Now()
	for {
		now := time.Now()
		done, err := emu.Advance(now.Sub(last))
		last = now

		if err != nil {
			log.Println(err)
			return 1
		}
		if done {
			return 0
		}

		time.Sleep(time.Millisecond)
	}
}

func main() {
	os.Exit(run())
}
