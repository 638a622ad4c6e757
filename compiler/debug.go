package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders every instruction in chunk as a textual trace,
// labeled with name. Line numbers are deduplicated: an instruction on the
// same source line as its predecessor prints "   |" instead of repeating
// the number, matching the reference disassembler's display.
func Disassemble(chunk *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		var line string
		offset, line = DisassembleInstruction(chunk, offset)
		b.WriteString(line)
	}
	return b.String()
}

// DisassembleInstruction renders the instruction at offset and returns the
// offset of the following instruction along with the rendered line. It is
// also used directly by the VM's per-instruction debug trace.
func DisassembleInstruction(chunk *Chunk, offset int) (int, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])
	def, err := Get(op)
	if err != nil {
		fmt.Fprintf(&b, "Unknown opcode %d\n", op)
		return offset + 1, b.String()
	}

	switch {
	case len(def.OperandWidths) == 0:
		fmt.Fprintf(&b, "%s\n", def.Name)
		return offset + 1, b.String()
	case len(def.OperandWidths) == 1 && def.OperandWidths[0] == 1:
		slot := chunk.Code[offset+1]
		if op == OpConstant {
			fmt.Fprintf(&b, "%-16s %4d '%s'\n", def.Name, slot, chunk.Constants[slot])
		} else {
			fmt.Fprintf(&b, "%-16s %4d\n", def.Name, slot)
		}
		return offset + 2, b.String()
	case len(def.OperandWidths) == 1 && def.OperandWidths[0] == 2:
		jump := binary.BigEndian.Uint16(chunk.Code[offset+1 : offset+3])
		sign := 1
		if op == OpLoop {
			sign = -1
		}
		fmt.Fprintf(&b, "%-16s %4d -> %d\n", def.Name, offset, offset+3+sign*int(jump))
		return offset + 3, b.String()
	default:
		fmt.Fprintf(&b, "%s (unhandled operand shape)\n", def.Name)
		return offset + 1, b.String()
	}
}
