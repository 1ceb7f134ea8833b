// Package seaerr classifies the error kinds named by the codec
// specification and attaches caller position information, following the
// position-annotated error convention of github.com/mewkiz/pkg/errutil.
package seaerr

import (
	"fmt"

	"github.com/mewkiz/pkg/errutil"
)

// Kind distinguishes the broad classes of failure the codec can report.
type Kind int

const (
	// KindMalformed covers bad magic, wrong version, invalid header fields,
	// short chunks and sample-count mismatches after decode.
	KindMalformed Kind = iota
	// KindInvalidParameter covers out-of-range residual_bits and
	// inconsistent chunk_size after the first chunk.
	KindInvalidParameter
	// KindChannelClosed covers input-closed/output-closed conditions on the
	// stream driver's channels.
	KindChannelClosed
	// KindEncoderClosed covers an attempt to encode on a closed encoder.
	// Nothing in this module returns it: sea.Encoder has no close or
	// finalize operation.
	KindEncoderClosed
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed input"
	case KindInvalidParameter:
		return "invalid parameter"
	case KindChannelClosed:
		return "channel closed"
	case KindEncoderClosed:
		return "encoder closed"
	default:
		return "unknown error"
	}
}

// Error pairs a Kind with a human-readable description and, via errutil,
// the file/line/callee of the site that raised it.
type Error struct {
	Kind Kind
	err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.err.Error()
}

// Unwrap exposes the position-annotated cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.err
}

// New returns a Kind error built from msg, with caller position info
// attached the way library errors are attached throughout this module.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, err: errutil.New(fmt.Sprintf("%s: %s", kind, msg))}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap annotates an existing error with a Kind and caller position info.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: errutil.Err(err)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
