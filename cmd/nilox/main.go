// Command nilox is the nilox interpreter: no arguments starts a REPL, one
// argument runs a source file, anything else is a usage error.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"

	"github.com/nilox-lang/nilox"
	"github.com/nilox-lang/nilox/vm"
)

func main() {
	debug := os.Getenv("NILOX_DEBUG") != ""

	switch len(os.Args) {
	case 1:
		runRepl(debug)
	case 2:
		os.Exit(runFile(os.Args[1], debug))
	default:
		fmt.Fprintln(os.Stderr, "Usage: nilox [path]")
		os.Exit(64)
	}
}

// runFile reads path, interprets it, and returns the process exit code:
// 0 on success, 65 on compile error, 70 on runtime error, 74 if the file
// cannot be opened.
func runFile(path string, debug bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open file %q.\n", path)
		return 74
	}

	result, err := nilox.Interpret(string(source), debug)
	switch result {
	case vm.InterpretCompileError:
		fmt.Fprintln(os.Stderr, err)
		return 65
	case vm.InterpretRuntimeError:
		fmt.Fprintln(os.Stderr, err)
		return 70
	default:
		return 0
	}
}

// runRepl reads one line at a time via readline (for history and basic
// line editing) and interprets it immediately; an empty line exits.
func runRepl(debug bool) {
	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(74)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if line == "" {
			return
		}

		if _, err := nilox.Interpret(line+"\n", debug); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
