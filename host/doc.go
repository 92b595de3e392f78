// Package host runs guest modules on wazero and speaks the value transfer
// protocol from the outside.
//
// An Executor owns a runtime with WASI and the fress_host import module.
// Each loaded guest becomes an Instance, which takes produced frames out of
// guest memory (read the 4-byte header, copy the payload, hand the frame back
// through deallocate, decode) and writes inputs into regions the guest
// allocates for it. A trap or exit inside a guest call aborts the instance;
// every later call on it fails with ErrInstanceAborted.
package host
