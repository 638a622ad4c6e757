// Command niloxdump is a developer tool for inspecting compiled bytecode;
// it is not part of the interpreter's core entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/nilox-lang/nilox/compiler"
	"github.com/nilox-lang/nilox/table"
	"github.com/nilox-lang/nilox/value"
)

// internTable is a standalone string interner backing a one-shot compile,
// since this tool never runs the resulting chunk and so never needs a VM.
type internTable struct {
	strings table.Table
}

func (t *internTable) Intern(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if existing := t.strings.FindString(chars, len(chars), hash); existing != nil {
		return existing
	}
	s := value.NewObjString(chars)
	t.strings.Set(s, value.BoolVal(true))
	return s
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&dumpCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// dumpCmd compiles a source file and prints its disassembly, without
// running it. It never executes code, so a malformed program that would
// fail at runtime can still be inspected.
type dumpCmd struct {
	name string
}

func (*dumpCmd) Name() string     { return "dump" }
func (*dumpCmd) Synopsis() string { return "Compile a source file and print its disassembled bytecode" }
func (*dumpCmd) Usage() string {
	return `dump <file>:
  Compile <file> and print its chunk's disassembly without running it.
`
}

func (cmd *dumpCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.name, "name", "script", "label printed in the disassembly header")
}

func (cmd *dumpCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "niloxdump: file not provided")
		return subcommands.ExitUsageError
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "niloxdump: failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	chunk := &compiler.Chunk{}
	c := compiler.New(string(source), chunk, &internTable{}, false)
	if !c.Compile() {
		fmt.Fprintf(os.Stderr, "niloxdump: compile error:\n%v\n", c.Errors())
		return subcommands.ExitFailure
	}

	fmt.Print(compiler.Disassemble(chunk, cmd.name))
	return subcommands.ExitSuccess
}
