package fresstest

// Exports of TinyWasm.
const (
	TinyAnswer = "answer" // () -> i32, returns 42
	TinyTrap   = "boom"   // () -> (), executes unreachable
)

// TinyWasm is a hand-assembled module for tests that need a real wazero
// instance: one page of memory exported as "memory" plus the two functions
// above.
var TinyWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x08, 0x02, 0x60, 0x00, 0x01, 0x7f, 0x60, 0x00, 0x00, // types: () -> i32, () -> ()
	0x03, 0x03, 0x02, 0x00, 0x01, // functions
	0x05, 0x03, 0x01, 0x00, 0x01, // memory: min 1 page
	0x07, 0x1a, 0x03, // exports
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
	0x04, 'b', 'o', 'o', 'm', 0x00, 0x01,
	0x0a, 0x0a, 0x02, // code
	0x04, 0x00, 0x41, 0x2a, 0x0b, // i32.const 42
	0x03, 0x00, 0x00, 0x0b, // unreachable
}
