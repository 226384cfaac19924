package server_flags

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Header implements the flag.Value interface for flags that contain http
// headers in the form "Name: value". Repeating a flag with the same name
// adds another value.
type Header http.Header

func (h *Header) String() string {
	if h == nil || *h == nil {
		return ""
	}
	return fmt.Sprintf("%v", http.Header(*h))
}

var validHeaderRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*:`)

func (h *Header) Set(value string) error {
	if !validHeaderRegex.MatchString(value) {
		return errors.New(`"` + value + `" does not look like a valid HTTP header`)
	}
	name, v, _ := strings.Cut(value, ":")
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New(`HTTP header "` + name + `" has no value`)
	}
	if *h == nil {
		*h = Header{}
	}
	http.Header(*h).Add(name, v)
	return nil
}

// Apply writes the headers to w, replacing any value already set for the
// same name
func (h Header) Apply(w http.ResponseWriter) {
	for k, v := range h {
		w.Header().Set(k, strings.Join(v, ", "))
	}
}
