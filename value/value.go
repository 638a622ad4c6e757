// Package value implements the tagged Value union and the heap Object
// model (currently only interned strings) shared by the compiler and the VM.
package value

import "fmt"

// Kind discriminates the tagged union carried by a Value.
type Kind int

const (
	// Nil is deliberately the zero value: a zero-initialized Value (as in a
	// freshly allocated, never-written table.Entry) must read as nil, not
	// as a false boolean, or table.Table's bucket classification breaks.
	Nil Kind = iota
	Bool
	Number
	Object
)

// Value is a tagged union over {bool, nil, float64, *ObjString}.
//
// There is only one heap object kind in this core (ObjString), so the Object
// arm holds a *ObjString directly rather than a polymorphic handle.
type Value struct {
	kind   Kind
	number float64
	boolean bool
	str    *ObjString
}

func BoolVal(b bool) Value   { return Value{kind: Bool, boolean: b} }
func NilVal() Value          { return Value{kind: Nil} }
func NumberVal(n float64) Value { return Value{kind: Number, number: n} }
func StringVal(s *ObjString) Value { return Value{kind: Object, str: s} }

func (v Value) IsBool() bool   { return v.kind == Bool }
func (v Value) IsNil() bool    { return v.kind == Nil }
func (v Value) IsNumber() bool { return v.kind == Number }
func (v Value) IsString() bool { return v.kind == Object && v.str != nil }

func (v Value) AsBool() bool        { return v.boolean }
func (v Value) AsNumber() float64   { return v.number }
func (v Value) AsString() *ObjString { return v.str }

// IsFalsey reports whether v belongs to the falsey set {nil, false}.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements structural, per-kind equality. Mixed-kind values are
// never equal. String equality reduces to pointer identity because all
// ObjStrings are interned.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Bool:
		return v.boolean == other.boolean
	case Nil:
		return true
	case Number:
		return v.number == other.number
	case Object:
		return v.str == other.str
	default:
		return false
	}
}

// String renders a Value using the quoted-number convention adopted for
// this build (see SPEC_FULL.md §6): numbers print as '<decimal>', booleans
// and nil print bare, and strings print their raw bytes.
func (v Value) String() string {
	switch v.kind {
	case Bool:
		if v.boolean {
			return "true"
		}
		return "false"
	case Nil:
		return "nil"
	case Number:
		return "'" + formatNumber(v.number) + "'"
	case Object:
		return v.str.Chars
	default:
		return "<invalid value>"
	}
}

// formatNumber mimics Python's str(float) well enough to reproduce the
// reference interpreter's printed output: integral values below 1e16 in
// magnitude keep a trailing ".0", everything else uses Go's shortest
// round-trippable %g form.
func formatNumber(n float64) string {
	if n > -1e16 && n < 1e16 && n == float64(int64(n)) {
		return fmt.Sprintf("%.1f", n)
	}
	return fmt.Sprintf("%g", n)
}
