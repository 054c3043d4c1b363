package frame

type (
	// Frame is a single entry of a captured call-stack trace. It is a closed
	// union: a stack is made of Native frames coming from the machine-code
	// unwinder and Python frames coming from the interpreter unwinder.
	// Sequences are ordered outermost caller first, innermost callee last.
	Frame interface {
		FunctionName() string

		frame()
	}

	// Native is a frame captured by unwinding the machine call stack.
	Native struct {
		InstructionAddr string
		File            string
		Function        string
		Line            int64
	}

	// Python is a frame captured by introspecting the interpreter's own
	// call-stack representation. Locals is a snapshot of the local variable
	// bindings visible in that frame; a missing key means the binding was
	// not captured, not that the variable is undefined.
	Python struct {
		File     string
		Function string
		Line     int64
		Locals   map[string]Value
	}
)

func (Native) frame() {}
func (Python) frame() {}

func (f Native) FunctionName() string {
	return f.Function
}

func (f Python) FunctionName() string {
	return f.Function
}
