// Package api provides the HTTP API that front-ends drive: the drawing
// board, solving and chat streams, and the solution history.
package api

import "time"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8765")
	ListenAddr string

	// PersistTimeout bounds how long a stream waits for its result to be
	// stored before reporting done without an entry ID. Defaults to 5s.
	PersistTimeout time.Duration
}
