// Package lode provides manifest storage backends for lapse.
//
// Manifests live either on the local filesystem or in any store supported
// by github.com/justapithecus/lode (memory, S3 and S3-compatible providers).
// Run history is kept in a Hive-partitioned lode dataset.
//
// Every backend failure surfaces as a *StorageError whose Kind is one of
// the sentinels below, so callers branch with errors.Is instead of
// matching provider messages.
package lode

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAccessDenied     = errors.New("access denied")
	ErrAuth             = errors.New("authentication failed")
	ErrDiskFull         = errors.New("no space left on device")
	ErrTimeout          = errors.New("operation timed out")
	ErrThrottled        = errors.New("rate limited")
	ErrNetwork          = errors.New("network error")

	errUnclassified = errors.New("storage error")
)

// StorageError is a backend failure tagged with its Kind. The provider
// error stays reachable through Unwrap.
type StorageError struct {
	Kind error
	// Op is one of "read", "write", "init" or "history".
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	target := e.Op
	if e.Path != "" {
		target += " " + e.Path
	}
	return fmt.Sprintf("%s: %v: %v", target, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches e against its Kind.
func (e *StorageError) Is(target error) bool { return e.Kind == target }

// NewStorageError tags err with kind.
func NewStorageError(kind error, op, path string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Path: path, Err: err}
}

func WrapReadError(err error, path string) error   { return wrap(err, "read", path) }
func WrapWriteError(err error, path string) error  { return wrap(err, "write", path) }
func WrapInitError(err error, target string) error { return wrap(err, "init", target) }

// wrap classifies err unless something below already did. nil stays nil.
func wrap(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if se := (*StorageError)(nil); errors.As(err, &se) {
		return err
	}
	return NewStorageError(classifyError(err), op, path, err)
}

// messageRules map provider error text to a kind. Order matters: the first
// rule with a matching fragment wins, so specific codes precede generic
// words like "denied" or "timeout".
var messageRules = []struct {
	kind      error
	fragments []string
}{
	{ErrAccessDenied, []string{"accessdenied", "forbidden", "403"}},
	{ErrPermissionDenied, []string{"permission denied", "eacces"}},
	{ErrNotFound, []string{"nosuchkey", "nosuchbucket", "no such file", "does not exist", "not found", "enoent", "404"}},
	{ErrDiskFull, []string{"no space left", "disk full", "enospc", "quota exceeded"}},
	{ErrThrottled, []string{"slowdown", "rate exceeded", "throttl", "toomanyrequests", "429"}},
	{ErrAuth, []string{"nocredentialproviders", "invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "credentials", "unauthorized", "401"}},
	{ErrNetwork, []string{"connection refused", "connection reset", "no route to host", "network unreachable", "no such host", "dial tcp"}},
	{ErrTimeout, []string{"deadline exceeded", "timed out", "timeout"}},
}

// classifyError picks the sentinel for err: wrapped fs errors and
// net-style Timeout() errors first, then messageRules.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	}
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, frag := range rule.fragments {
			if strings.Contains(msg, frag) {
				return rule.kind
			}
		}
	}
	return errUnclassified
}
