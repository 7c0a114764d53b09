package httpserver

import "errors"

var (
	// ErrStart is returned when the server fails to start listening.
	ErrStart = errors.New("failed to start http server")

	// ErrShutdown is returned when graceful shutdown does not complete in time.
	ErrShutdown = errors.New("failed to shut down http server gracefully")
)
