package ledger

import "fmt"

// FatalKind names one of the error classes spec §7 marks as fatal to
// the block: storage must be rolled back rather than merely surfaced
// to the caller.
type FatalKind string

const (
	FatalOverflow       FatalKind = "overflow"
	FatalNoAvailableEra FatalKind = "no_available_era"
	FatalRecordNotDeleted FatalKind = "record_not_deleted"
)

// FatalError wraps one of the block-fatal conditions. The runtime's
// block driver treats any FatalError as "abort the whole block", never
// as a recoverable per-action failure.
type FatalError struct {
	Kind FatalKind
	Msg  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newFatal(kind FatalKind, format string, args ...interface{}) error {
	return &FatalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err is one of the block-fatal conditions.
func IsFatal(err error) bool {
	_, ok := err.(*FatalError)
	return ok
}
