package downloader

import (
	"errors"
	"fmt"
)

// ErrorKind tells which side of the transfer failed.
type ErrorKind int

const (
	// KindHTTP covers request construction, transport failures, non-2xx
	// responses and body read failures.
	KindHTTP ErrorKind = iota + 1
	// KindIO covers opening, writing and closing the destination file.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

var (
	// ErrHTTP matches any *Error of kind KindHTTP via errors.Is.
	ErrHTTP = errors.New("http error")
	// ErrIO matches any *Error of kind KindIO via errors.Is.
	ErrIO = errors.New("io error")
)

// Error is the only error type returned by FetchAndSave.
type Error struct {
	Kind ErrorKind
	URL  string
	Path string
	// StatusCode and Status are set when the server answered with a non-2xx status.
	StatusCode int
	Status     string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTP && e.StatusCode != 0:
		return fmt.Sprintf("failed to download from %s: received status %s", e.URL, e.Status)
	case e.Kind == KindHTTP:
		return fmt.Sprintf("failed to download from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrHTTP:
		return e.Kind == KindHTTP
	case ErrIO:
		return e.Kind == KindIO
	}
	return false
}

func httpError(url string, err error) *Error {
	return &Error{Kind: KindHTTP, URL: url, Err: err}
}

func ioError(url, path string, err error) *Error {
	return &Error{Kind: KindIO, URL: url, Path: path, Err: err}
}
