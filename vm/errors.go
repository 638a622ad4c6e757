package vm

import "fmt"

// RuntimeError is a failure raised while executing bytecode, as opposed to
// one caught during compilation. Its Error() string is the exact
// diagnostic format the driver prints to the user: the message followed
// by a trailer naming the source line the VM was executing.
type RuntimeError struct {
	Message string
	Line    int32
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}
