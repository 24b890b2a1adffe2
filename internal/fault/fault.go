// Package fault defines the error kinds that cross the wire between
// clients, the naming server and storage servers. A kind fits in one
// byte so replies can carry it verbatim and the caller can rebuild an
// error of the same kind.
package fault

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	// Unknown is the zero kind. It is never put on the wire; decoding
	// an unknown byte yields RemoteInvocation instead.
	Unknown Kind = iota
	NotFound
	InvalidArgument
	OutOfBounds
	NullArgument
	IllegalState
	RemoteInvocation
	IO
)

// If you add kinds here, add them to Kind.String as well.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InvalidArgument:
		return "invalid argument"
	case OutOfBounds:
		return "out of bounds"
	case NullArgument:
		return "null argument"
	case IllegalState:
		return "illegal state"
	case RemoteInvocation:
		return "remote invocation"
	case IO:
		return "i/o"
	}
	return "unknown"
}

// FromByte maps a wire byte back to a kind. Bytes minted by a newer
// (or corrupt) peer come back as RemoteInvocation.
func FromByte(b uint8) Kind {
	k := Kind(b)
	if k < NotFound || k > IO {
		return RemoteInvocation
	}
	return k
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func E(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind carried by err, looking through wrapping.
// Errors that carry no kind are reported as Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
