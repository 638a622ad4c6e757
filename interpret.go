// Package nilox ties the compiler and VM together into the single
// entry point every caller (REPL, file runner, tests) goes through.
package nilox

import (
	"github.com/nilox-lang/nilox/compiler"
	"github.com/nilox-lang/nilox/vm"
)

// Interpret compiles source and, if compilation succeeds, runs it on a
// fresh VM. It is the driver contract every caller (REPL, file runner,
// tests) goes through rather than wiring the compiler and VM up
// themselves.
func Interpret(source string, debug bool) (vm.InterpretResult, error) {
	chunk := &compiler.Chunk{}
	machine := vm.New(debug)

	c := compiler.New(source, chunk, machine, debug)
	if !c.Compile() {
		return vm.InterpretCompileError, c.Errors()
	}

	return machine.Run(chunk)
}
