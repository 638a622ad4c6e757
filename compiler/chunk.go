package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/nilox-lang/nilox/value"
)

// Opcode identifies one bytecode instruction. Every opcode is one byte;
// operand widths vary per instruction (see definitions below) rather than
// being fixed at two bytes, since most operands here index a 256-entry
// constant pool or local-slot array and never need more than a byte.
type Opcode byte

const (
	OpConstant Opcode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpReturn
)

// OpCodeDefinition names an opcode and the byte-width of each of its
// operands, in encoding order.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OpConstant:     {"OP_CONSTANT", []int{1}},
	OpNil:          {"OP_NIL", nil},
	OpTrue:         {"OP_TRUE", nil},
	OpFalse:        {"OP_FALSE", nil},
	OpPop:          {"OP_POP", nil},
	OpGetLocal:     {"OP_GET_LOCAL", []int{1}},
	OpSetLocal:     {"OP_SET_LOCAL", []int{1}},
	OpGetGlobal:    {"OP_GET_GLOBAL", []int{1}},
	OpDefineGlobal: {"OP_DEFINE_GLOBAL", []int{1}},
	OpSetGlobal:    {"OP_SET_GLOBAL", []int{1}},
	OpEqual:        {"OP_EQUAL", nil},
	OpGreater:      {"OP_GREATER", nil},
	OpLess:         {"OP_LESS", nil},
	OpAdd:          {"OP_ADD", nil},
	OpSubtract:     {"OP_SUBTRACT", nil},
	OpMultiply:     {"OP_MULTIPLY", nil},
	OpDivide:       {"OP_DIVIDE", nil},
	OpNot:          {"OP_NOT", nil},
	OpNegate:       {"OP_NEGATE", nil},
	OpPrint:        {"OP_PRINT", nil},
	OpJump:         {"OP_JUMP", []int{2}},
	OpJumpIfFalse:  {"OP_JUMP_IF_FALSE", []int{2}},
	OpLoop:         {"OP_LOOP", []int{2}},
	OpReturn:       {"OP_RETURN", nil},
}

// Get looks up an opcode's definition.
func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Chunk is a compiled unit of bytecode: a flat instruction stream, a
// constant pool, and a line number per instruction byte for error
// reporting. There is exactly one Chunk per program in this core (no
// function objects yet), owned jointly by the compiler that writes it and
// the VM that later executes it.
type Chunk struct {
	Code      []byte
	Lines     []int32
	Constants []value.Value
}

// WriteByte appends a single raw byte to the chunk, recording line as the
// source line that produced it.
func (c *Chunk) WriteByte(b byte, line int32) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOpcode appends op's byte form.
func (c *Chunk) WriteOpcode(op Opcode, line int32) {
	c.WriteByte(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index. The
// caller is responsible for checking against the 256-entry limit before
// emitting an OP_CONSTANT that references the index, since the operand is
// encoded in a single byte.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// WriteJump emits op followed by a two-byte placeholder offset and returns
// the offset of the first placeholder byte, for a later PatchJump call.
func (c *Chunk) WriteJump(op Opcode, line int32) int {
	c.WriteOpcode(op, line)
	c.WriteByte(0xff, line)
	c.WriteByte(0xff, line)
	return len(c.Code) - 2
}

// PatchJump backfills the placeholder written at offset with the distance
// from just after the placeholder to the current end of the chunk.
func (c *Chunk) PatchJump(offset int) error {
	jump := len(c.Code) - offset - 2
	if jump > 0xffff {
		return fmt.Errorf("too much code to jump over")
	}
	binary.BigEndian.PutUint16(c.Code[offset:offset+2], uint16(jump))
	return nil
}

// WriteLoop emits OP_LOOP with a back-jump offset to loopStart.
func (c *Chunk) WriteLoop(loopStart int, line int32) error {
	c.WriteOpcode(OpLoop, line)
	offset := len(c.Code) - loopStart + 2
	if offset > 0xffff {
		return fmt.Errorf("loop body too large")
	}
	c.WriteByte(byte(offset>>8), line)
	c.WriteByte(byte(offset), line)
	return nil
}
