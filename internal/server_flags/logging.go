package server_flags

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Logfile implements the flag.Value interface to redirect a logger. The
// argument may be "stdout", "stderr", "none", a file descriptor in the
// form "fd:N", or a file path with an optional "file:" prefix.
type Logfile struct {
	Logger **log.Logger
	Name   string
}

func (v *Logfile) String() string {
	if v.Logger == nil {
		return "Logger(nil)"
	} else if v.Name == "" {
		return "Logger(no name)"
	}
	return v.Name
}

func (v *Logfile) Set(s string) error {
	if v.Logger == nil || *v.Logger == nil {
		return errors.New("Logfile has no logger to configure")
	}
	w, err := openLog(s)
	if err != nil {
		return err
	}
	v.Name = s
	(*v.Logger).SetOutput(w)
	return nil
}

func openLog(s string) (io.Writer, error) {
	switch s {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "none":
		return io.Discard, nil
	}

	if fArg, found := strings.CutPrefix(s, "fd:"); found {
		fd, err := strconv.Atoi(fArg)
		if err != nil {
			return nil, errors.New(`Could not parse file descriptor "` + fArg + `" as an integer`)
		}
		f := os.NewFile(uintptr(fd), s)
		if f == nil {
			return nil, errors.New("Unable to open file descriptor " + fArg)
		}
		if _, err = f.Stat(); err != nil {
			return nil, fmt.Errorf("file descriptor %d is invalid: stat failed: %v", fd, err)
		}
		return f, nil
	}

	path, _ := strings.CutPrefix(s, "file:")
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
