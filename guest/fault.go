package guest

// Fault is the panic value of an unrecoverable guest failure. It is never
// turned into a value: on wasip1 the panic terminates the module, and the
// host reports the call as aborted.
type Fault struct {
	Message string
}

func (f Fault) Error() string {
	return "guest fault: " + f.Message
}

// Assert panics with a Fault when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic(Fault{Message: "assertion failed: " + msg})
	}
}

// InduceFault fails an assertion that can never hold.
func InduceFault() {
	two := 2
	Assert(two+two == 5, "2 + 2 == 5")
}
