package exitcode

import (
	"errors"
	"flag"
	"os"
)

const (
	Success = 0
	Failure = 1

	// Invalid configuration or command line usage
	Usage = 2

	// The input uses syntax that cannot be carried through the compiler,
	// or could not be parsed at all
	Unsupported = 3

	// The external compiler exited with a failure
	CompilerFailed = 4

	// An internal invariant was violated (a naming conflict in the mangle
	// registry or a panicking pass)
	Internal = 70
)

// Coder is an interface to control what value Get returns.
type Coder interface {
	error
	ExitCode() int
}

// Get gets the exit code associated with an error. Cases:
//
//     nil => 0
//     errors implementing Coder => value returned by ExitCode
//     flag.ErrHelp => 2
//     all other errors => 1
func Get(err error) int {
	if err == nil {
		return Success
	}

	if coder := Coder(nil); errors.As(err, &coder) {
		return coder.ExitCode()
	}

	if errors.Is(err, flag.ErrHelp) {
		return Usage
	}

	return Failure
}

// Set wraps an error in a Coder, setting its error code.
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return coder{err, code}
}

var _ Coder = coder{}

type coder struct {
	error
	int
}

func (co coder) ExitCode() int {
	return co.int
}

func (co coder) Unwrap() error {
	return co.error
}

// Exit is a convenience function that calls os.Exit
// with the exit code associated with err.
func Exit(err error) {
	os.Exit(Get(err))
}
