// Package entities provides the plain data types shared by the guest runtime,
// the host runtime and the CLI. They carry no wire or memory behavior.
package entities
