// Package vm implements the stack-based virtual machine that executes
// compiled nilox bytecode. It is the runtime environment: fetch an opcode
// at the instruction pointer, dispatch on it, repeat until OP_RETURN or a
// runtime error.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nilox-lang/nilox/compiler"
	"github.com/nilox-lang/nilox/table"
	"github.com/nilox-lang/nilox/value"
)

const stackMax = 256

// InterpretResult is the outcome of running a chunk to completion or
// failure, mirroring the three-way result the driver uses to pick an exit
// code.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is a stack-based bytecode interpreter. A VM owns its globals table,
// its string-intern table, and the head of the intrusive linked list of
// every heap object it has allocated; none of that state is expected to
// outlive the VM value it belongs to.
type VM struct {
	stack [stackMax]value.Value
	sp    int

	chunk *compiler.Chunk
	ip    int

	globals table.Table
	strings table.Table
	objects *value.ObjString

	debug bool
	out   io.Writer
}

// New creates a VM ready to Run chunks. When debug is true, Run prints the
// stack contents and a one-line disassembly before executing each
// instruction, via logrus at debug level; it raises the standard logrus
// logger to that level so the trace is not filtered out.
func New(debug bool) *VM {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return &VM{debug: debug, out: os.Stdout}
}

// SetOutput redirects PRINT output, letting tests capture it instead of
// writing to stdout.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// Intern returns the canonical *value.ObjString for chars, allocating one
// and linking it into vm.objects only if no equal string has been interned
// before. It implements compiler.Interner so the compiler can share this
// VM's string table while compiling.
func (vm *VM) Intern(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if existing := vm.strings.FindString(chars, len(chars), hash); existing != nil {
		return existing
	}
	s := value.NewObjString(chars)
	s.Next = vm.objects
	vm.objects = s
	vm.strings.Set(s, value.BoolVal(true))
	return s
}

func (vm *VM) resetStack() {
	vm.sp = 0
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

// Run executes chunk from the beginning, returning the outcome and, on a
// runtime error, the formatted diagnostic that should be surfaced to the
// user (message plus the `[line N] in script` trailer).
func (vm *VM) Run(chunk *compiler.Chunk) (InterpretResult, error) {
	vm.chunk = chunk
	vm.ip = 0
	vm.resetStack()

	for {
		if vm.debug {
			vm.traceStep()
		}

		instruction := compiler.Opcode(vm.readByte())
		switch instruction {
		case compiler.OpConstant:
			vm.push(chunk.Constants[vm.readByte()])

		case compiler.OpNil:
			vm.push(value.NilVal())
		case compiler.OpTrue:
			vm.push(value.BoolVal(true))
		case compiler.OpFalse:
			vm.push(value.BoolVal(false))

		case compiler.OpPop:
			vm.pop()

		case compiler.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])
		case compiler.OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case compiler.OpGetGlobal:
			name := chunk.Constants[vm.readByte()].AsString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case compiler.OpDefineGlobal:
			name := chunk.Constants[vm.readByte()].AsString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case compiler.OpSetGlobal:
			name := chunk.Constants[vm.readByte()].AsString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case compiler.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolVal(a.Equal(b)))
		case compiler.OpGreater:
			if res, err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.BoolVal(a > b) }); err != nil {
				return res, err
			}
		case compiler.OpLess:
			if res, err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.BoolVal(a < b) }); err != nil {
				return res, err
			}

		case compiler.OpAdd:
			switch {
			case vm.peek(0).IsString() && vm.peek(1).IsString():
				vm.concatenate()
			case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(value.NumberVal(a + b))
			default:
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}
		case compiler.OpSubtract:
			if res, err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(a - b) }); err != nil {
				return res, err
			}
		case compiler.OpMultiply:
			if res, err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(a * b) }); err != nil {
				return res, err
			}
		case compiler.OpDivide:
			if res, err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberVal(a / b) }); err != nil {
				return res, err
			}

		case compiler.OpNot:
			vm.push(value.BoolVal(vm.pop().IsFalsey()))
		case compiler.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.NumberVal(-vm.pop().AsNumber()))

		case compiler.OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())

		case compiler.OpJump:
			offset := vm.readUint16()
			vm.ip += int(offset)
		case compiler.OpJumpIfFalse:
			offset := vm.readUint16()
			if vm.peek(0).IsFalsey() {
				vm.ip += int(offset)
			}
		case compiler.OpLoop:
			offset := vm.readUint16()
			vm.ip -= int(offset)

		case compiler.OpReturn:
			return InterpretOK, nil

		default:
			return vm.runtimeError("Unknown opcode %d.", instruction)
		}
	}
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readUint16() uint16 {
	hi := vm.readByte()
	lo := vm.readByte()
	return uint16(hi)<<8 | uint16(lo)
}

// binaryNumberOp pops two numeric operands and pushes apply(a, b), or
// raises a runtime error if either operand is not a number. It returns
// (InterpretOK, nil) on success so callers can `if res, err := ...; err !=
// nil { return res, err }` without an extra branch.
func (vm *VM) binaryNumberOp(apply func(a, b float64) value.Value) (InterpretResult, error) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(apply(a, b))
	return InterpretOK, nil
}

// concatenate pops two string values (the caller has already verified
// both operands are strings), joins their bytes, interns the result, and
// pushes it.
func (vm *VM) concatenate() {
	b := vm.pop().AsString()
	a := vm.pop().AsString()
	vm.push(value.StringVal(vm.Intern(a.Chars + b.Chars)))
}

// runtimeError formats message, resets the stack, and returns
// InterpretRuntimeError plus an error rendering the exact diagnostic wire
// format: the message followed by a "[line N] in script" trailer.
func (vm *VM) runtimeError(format string, args ...any) (InterpretResult, error) {
	message := fmt.Sprintf(format, args...)
	line := vm.chunk.Lines[vm.ip-1]
	vm.resetStack()
	return InterpretRuntimeError, RuntimeError{Message: message, Line: line}
}

func (vm *VM) traceStep() {
	var stack string
	for i := 0; i < vm.sp; i++ {
		stack += fmt.Sprintf("[ %s ]", vm.stack[i].String())
	}
	_, instr := compiler.DisassembleInstruction(vm.chunk, vm.ip)
	logrus.WithField("component", "vm").Debugf("%s%s", stack, instr)
}
