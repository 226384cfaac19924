//go:build unix

package main

import (
	"os"
	"syscall"
)

// SIGUSR1 reloads the TLS certificate
var reloadSignals = []os.Signal{syscall.SIGUSR1}
