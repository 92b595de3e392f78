// Command fresshost loads a guest module and exercises its exports from the
// host side of the value transfer protocol.
//
// Usage:
//
//	fresshost call [-config host.toml] <module.wasm> <export>
//	fresshost echo [-config host.toml] <module.wasm> <json>
//	fresshost schema
package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, term.IsTerminal(int(os.Stdout.Fd()))) //nolint:gosec // G115: file descriptors fit in int
	stop()
	os.Exit(code)
}
