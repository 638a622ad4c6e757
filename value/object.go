package value

// Obj is embedded in every heap object kind (only ObjString exists in this
// core) and threads it into the VM's singly-linked "all objects" list for
// bulk reclamation at shutdown.
type Obj struct {
	Next *ObjString
}

// ObjString is an immutable, interned string. Two ObjStrings with equal
// byte content are guaranteed to be the same pointer once both have passed
// through the VM's intern table.
type ObjString struct {
	Obj
	Chars  string
	Length int
	Hash   uint32
}

// HashString computes the FNV-1a 32-bit hash over s, matching the
// reference interpreter's hashString (offset basis 2166136261, prime
// 16777619, with 32-bit wraparound).
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// NewObjString constructs an ObjString for s. Callers outside the intern
// table (i.e. everyone) must go through VM.Intern instead of calling this
// directly, so that the interning law in spec §8 holds.
func NewObjString(s string) *ObjString {
	return &ObjString{Chars: s, Length: len(s), Hash: HashString(s)}
}
