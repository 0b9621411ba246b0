// Package conhost implements a headless console host: it keeps the complete
// state of one or more text screen buffers and an input record queue on
// behalf of client programs, serves the condrv control protocol forwarded by
// a coordination server, and renders the active buffer to a controlling
// terminal as a minimal stream of VT escape sequences.
//
// A Console is created with New, bootstrapped with Init, and driven by Serve
// until the context is cancelled or the server connection fails. All state
// mutation happens on the Serve goroutine; the exported inspection methods
// are safe to call concurrently.
package conhost
