// Package iox holds small io helpers shared by the storage, transport and
// CLI layers.
package iox

import (
	"errors"
	"fmt"
	"io"
)

// DiscardClose closes c, ignoring the error. Meant for defers on read
// paths, where a close failure changes nothing.
func DiscardClose(c io.Closer) { _ = c.Close() }

// DiscardErr runs fn and drops its error, as in
// defer iox.DiscardErr(logger.Sync).
func DiscardErr(fn func() error) { _ = fn() }

// ErrTooLarge reports input beyond a ReadAllLimit bound.
var ErrTooLarge = errors.New("input exceeds size limit")

// ReadAllLimit reads r to EOF. It fails with ErrTooLarge as soon as more
// than limit bytes arrive instead of buffering the rest.
func ReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}
