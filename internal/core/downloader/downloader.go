// Package downloader streams a remote resource to a file on disk.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/afero"
)

// DefaultChunkSize is the read/write buffer size used when Options.ChunkSize is zero.
const DefaultChunkSize = 8192

// ErrInvalidChunkSize reports a chunk size that cannot drive the copy loop.
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// Options tunes a single FetchAndSave call. The zero value is ready to use.
type Options struct {
	// Client defaults to http.DefaultClient, which imposes no timeout.
	Client *http.Client
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// ChunkSize defaults to DefaultChunkSize. Negative values are rejected.
	ChunkSize int
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// FetchAndSave performs a GET request for url and writes the response body to
// destination, truncating any existing file. The destination is only opened
// once a 2xx status has been received. The parent directory must already
// exist. A file left partially written by a mid-stream failure is not removed.
//
// Once the request is attempted every returned error is a *Error; use
// errors.Is with ErrHTTP or ErrIO to tell the two failure families apart. A
// negative Options.ChunkSize is rejected up front with ErrInvalidChunkSize.
func FetchAndSave(ctx context.Context, url, destination string, opts Options) (err error) {
	opts = opts.withDefaults()
	if opts.ChunkSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, opts.ChunkSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return httpError(url, fmt.Errorf("failed to create GET request: %w", err))
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		return httpError(url, fmt.Errorf("failed to perform GET request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:       KindHTTP,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        fmt.Errorf("unexpected HTTP status %d", resp.StatusCode),
		}
	}

	file, err := opts.Fs.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return ioError(url, destination, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = ioError(url, destination, closeErr)
		}
	}()

	if _, err = CopyChunks(file, resp.Body, opts.ChunkSize); err != nil {
		var re *readError
		if errors.As(err, &re) {
			return httpError(url, fmt.Errorf("failed to read response body: %w", re.err))
		}
		return ioError(url, destination, err)
	}
	return nil
}

type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// CopyChunks moves src into dst using a buffer of chunkSize bytes and returns
// the number of bytes written. Failures are wrapped so callers can tell a
// failing reader from a failing writer.
func CopyChunks(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}

	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err != nil {
				return written, &writeError{err: err}
			}
			if w != n {
				return written, &writeError{err: io.ErrShortWrite}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, &readError{err: readErr}
		}
	}
}
