//go:build windows

package main

import "os"

// no certificate reload on Windows
var reloadSignals []os.Signal
