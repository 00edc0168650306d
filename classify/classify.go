// Package classify turns opaque errors from the object store, the
// key-value store, and the queue into sentinel errors callers can match
// with errors.Is, instead of string-matching each collaborator's error
// text. The approach mirrors the teacher's storage-error classifier: a
// declarative, ordered pattern table with typed-error checks first.
package classify

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Use errors.Is(err, classify.ErrXxx) for typed assertions.
var (
	ErrNotFound      = errors.New("not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrAuth          = errors.New("authentication failed")
	ErrThrottled     = errors.New("rate limited")
	ErrTimeout       = errors.New("operation timed out")
	ErrNetwork       = errors.New("network error")
	ErrConnectionLost = errors.New("connection lost")
	ErrUnclassified  = errors.New("unclassified error")
)

// Op names the failing operation, used only for error messages.
type Op string

const (
	OpList    Op = "list"
	OpGet     Op = "get"
	OpPut     Op = "put"
	OpPublish Op = "publish"
	OpConnect Op = "connect"
)

// Error wraps an underlying error with a sentinel classification and the
// operation/path it occurred on, preserving the original error in the
// chain for errors.As.
type Error struct {
	Kind error
	Op   Op
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether e's classification matches target.
func (e *Error) Is(target error) bool { return errors.Is(e.Kind, target) }

// Wrap classifies err and wraps it with op/path context. Returns nil if err
// is nil.
func Wrap(op Op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Path: path, Err: err}
}

type pattern struct {
	substrings []string
	kind       error
}

// table is checked in order; the first match wins, so a message matching
// several rows takes the earliest row's kind (access denied before not
// found, network before timeout, and so on).
var table = []pattern{
	{[]string{"AccessDenied", "Forbidden", "403"}, ErrAccessDenied},
	{[]string{"NoSuchKey", "NoSuchBucket", "does not exist", "not found", "404"}, ErrNotFound},
	{[]string{"SlowDown", "rate exceeded", "throttl", "429", "TooManyRequests", "LOADING", "BUSYGROUP"}, ErrThrottled},
	{[]string{"NoCredentialProviders", "credentials", "InvalidAccessKeyId",
		"SignatureDoesNotMatch", "ExpiredToken", "401", "Unauthorized", "NOAUTH", "WRONGPASS"}, ErrAuth},
	{[]string{"connection refused", "no route to host", "network unreachable",
		"dial tcp", "broken pipe", "EOF", "i/o timeout", "channel/connection is not open"}, ErrNetwork},
	{[]string{"timeout", "timed out", "deadline exceeded", "context deadline exceeded"}, ErrTimeout},
	{[]string{"connection closed", "use of closed network connection", "channel closed"}, ErrConnectionLost},
}

func classify(err error) error {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, p := range table {
		for _, sub := range p.substrings {
			if strings.Contains(msg, strings.ToLower(sub)) {
				return p.kind
			}
		}
	}
	return ErrUnclassified
}
