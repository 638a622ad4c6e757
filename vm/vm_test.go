package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nilox-lang/nilox/compiler"
)

// run compiles and executes source against a fresh VM, capturing PRINT
// output. It fails the test immediately on a compile error, since these
// tests are about runtime behavior.
func run(t *testing.T, source string) (string, InterpretResult, error) {
	t.Helper()
	v := New(false)
	var out bytes.Buffer
	v.SetOutput(&out)

	chunk := &compiler.Chunk{}
	c := compiler.New(source, chunk, v, false)
	if !c.Compile() {
		t.Fatalf("compile error: %v", c.Errors())
	}

	result, err := v.Run(chunk)
	return out.String(), result, err
}

func TestPrintArithmeticAddition(t *testing.T) {
	out, result, err := run(t, "print 1 + 2;")
	if result != InterpretOK || err != nil {
		t.Fatalf("Run() = %v, %v, want OK, nil", result, err)
	}
	if got, want := strings.TrimSpace(out), "'3.0'"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrintStringConcatenation(t *testing.T) {
	out, _, err := run(t, `print "hi" + " there";`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := strings.TrimSpace(out), "hi there"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestGlobalVariableReassignment(t *testing.T) {
	out, _, err := run(t, "var a = 1; var b = 2; print a + b; a = a + 10; print a;")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "'3.0'" || lines[1] != "'11.0'" {
		t.Errorf("output lines = %v, want [\"'3.0'\" \"'11.0'\"]", lines)
	}
}

func TestUndefinedGlobalAfterBlockExitIsRuntimeError(t *testing.T) {
	out, result, err := run(t, "{ var x = 5; } print x;")
	if result != InterpretRuntimeError {
		t.Fatalf("Run() result = %v, want InterpretRuntimeError", result)
	}
	if err == nil || !strings.Contains(err.Error(), "Undefined variable 'x'.") {
		t.Errorf("Run() error = %v, want to mention undefined variable 'x'", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty (print x never executes)", out)
	}
}

func TestLogicalNegationOfEquality(t *testing.T) {
	out, _, err := run(t, "print !(5 == 4);")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := strings.TrimSpace(out), "true"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStringEqualityIsInterningBacked(t *testing.T) {
	out, _, err := run(t, `print "a" == "a";`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := strings.TrimSpace(out), "true"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestWhileLoopAccumulates(t *testing.T) {
	out, _, err := run(t, "var i = 0; var sum = 0; while (i < 5) { sum = sum + i; i = i + 1; } print sum;")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := strings.TrimSpace(out), "'10.0'"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestForLoopCountsDown(t *testing.T) {
	out, _, err := run(t, "for (var i = 3; i > 0; i = i - 1) print i;")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"'3.0'", "'2.0'", "'1.0'"}
	if len(lines) != len(want) {
		t.Fatalf("output lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestIfElseBranches(t *testing.T) {
	out, _, err := run(t, `if (1 < 2) print "yes"; else print "no";`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := strings.TrimSpace(out), "yes"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	out, _, err := run(t, `print false and (1/0 == 1); print true or (1/0 == 1);`)
	if err != nil {
		t.Fatalf("Run() error = %v (short-circuit should skip the dividing expression)", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "false" || lines[1] != "true" {
		t.Errorf("output lines = %v, want [false true]", lines)
	}
}

func TestNegateNonNumberIsRuntimeError(t *testing.T) {
	_, result, err := run(t, `print -"nope";`)
	if result != InterpretRuntimeError {
		t.Fatalf("Run() result = %v, want InterpretRuntimeError", result)
	}
	if err == nil || !strings.Contains(err.Error(), "Operand must be a number.") {
		t.Errorf("Run() error = %v, want to mention operand must be a number", err)
	}
}

func TestSetUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, result, err := run(t, "x = 1;")
	if result != InterpretRuntimeError {
		t.Fatalf("Run() result = %v, want InterpretRuntimeError", result)
	}
	if err == nil || !strings.Contains(err.Error(), "Undefined variable 'x'.") {
		t.Errorf("Run() error = %v, want to mention undefined variable 'x'", err)
	}
}
