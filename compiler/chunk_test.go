package compiler

import (
	"testing"

	"github.com/nilox-lang/nilox/value"
)

func TestWriteByteTracksLines(t *testing.T) {
	var c Chunk
	c.WriteByte(0x01, 1)
	c.WriteByte(0x02, 1)
	c.WriteByte(0x03, 2)

	if len(c.Code) != len(c.Lines) {
		t.Fatalf("len(Code)=%d, len(Lines)=%d, want equal", len(c.Code), len(c.Lines))
	}
	wantLines := []int32{1, 1, 2}
	for i, want := range wantLines {
		if c.Lines[i] != want {
			t.Errorf("Lines[%d] = %d, want %d", i, c.Lines[i], want)
		}
	}
}

func TestAddConstantReturnsIndex(t *testing.T) {
	var c Chunk
	i0 := c.AddConstant(value.NumberVal(1))
	i1 := c.AddConstant(value.NumberVal(2))

	if i0 != 0 || i1 != 1 {
		t.Errorf("AddConstant() indices = %d, %d, want 0, 1", i0, i1)
	}
	if !c.Constants[i1].Equal(value.NumberVal(2)) {
		t.Errorf("Constants[%d] = %v, want 2", i1, c.Constants[i1])
	}
}

func TestWriteJumpAndPatchJump(t *testing.T) {
	var c Chunk
	c.WriteOpcode(OpTrue, 1)
	offset := c.WriteJump(OpJumpIfFalse, 1)
	c.WriteOpcode(OpPop, 1)
	c.WriteOpcode(OpNil, 1)

	if err := c.PatchJump(offset); err != nil {
		t.Fatalf("PatchJump() error = %v", err)
	}

	// distance from just after the two placeholder bytes to the current end.
	want := len(c.Code) - offset - 2
	got := int(c.Code[offset])<<8 | int(c.Code[offset+1])
	if got != want {
		t.Errorf("patched jump offset = %d, want %d", got, want)
	}
}

func TestWriteLoopBacktracksToStart(t *testing.T) {
	var c Chunk
	loopStart := len(c.Code)
	c.WriteOpcode(OpTrue, 1)
	c.WriteOpcode(OpPop, 1)

	if err := c.WriteLoop(loopStart, 1); err != nil {
		t.Fatalf("WriteLoop() error = %v", err)
	}

	opIdx := len(c.Code) - 3
	if Opcode(c.Code[opIdx]) != OpLoop {
		t.Fatalf("expected OP_LOOP at %d, got %d", opIdx, c.Code[opIdx])
	}
	offset := int(c.Code[opIdx+1])<<8 | int(c.Code[opIdx+2])
	if want := len(c.Code) - loopStart; offset != want {
		t.Errorf("loop offset = %d, want %d", offset, want)
	}
}

func TestGetUnknownOpcodeErrors(t *testing.T) {
	if _, err := Get(Opcode(255)); err == nil {
		t.Errorf("Get(255) error = nil, want non-nil")
	}
}
