package measurement

import (
	"errors"
	"fmt"
)

var (
	ErrChainRejected  = errors.New("redirect chain rejected")
	ErrEmptyChain     = fmt.Errorf("%w: no hops", ErrChainRejected)
	ErrTerminalStatus = fmt.Errorf("%w: terminal status outside 2xx", ErrChainRejected)
	ErrFatalProbe     = fmt.Errorf("%w: probe failed to read or decode config", ErrChainRejected)
)

// MalformedRecordError wraps a JSONL line that could not be decoded.
type MalformedRecordError struct {
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed record: %v", e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// IncompleteClusterEntryError reports a Protocols entry lacking type, server
// or port.
type IncompleteClusterEntryError struct {
	Domain string
	Type   string
	Server string
	Port   string
}

func (e *IncompleteClusterEntryError) Error() string {
	return fmt.Sprintf("%s: incomplete protocol entry (type=%q server=%q port=%q)", e.Domain, e.Type, e.Server, e.Port)
}
