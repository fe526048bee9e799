package types

import "errors"

// ErrorKind is the closed set of failure classes an operation can end in.
type ErrorKind string

const (
	// NotConnected means no wallet is attached; the operation was not attempted.
	NotConnected ErrorKind = "NOT_CONNECTED"
	// RemoteRejected covers every failure reported by the cluster or the program.
	RemoteRejected ErrorKind = "REMOTE_REJECTED"
	// InvalidInput covers malformed user input caught before sending.
	InvalidInput ErrorKind = "INVALID_INPUT"
)

// NotConnectedMessage is shown whenever an operation is pressed without a wallet.
const NotConnectedMessage = "Wallet not connected yet."

// TipJarError is the only error type surfaced to the shell. Error returns the
// detail text unmodified.
type TipJarError struct {
	Kind   ErrorKind
	Detail string
	// Code is the program's custom error code, zero when none was recognised.
	Code uint32
	Err  error
}

func (e *TipJarError) Error() string {
	return e.Detail
}

func (e *TipJarError) Unwrap() error {
	return e.Err
}

func NewNotConnected() *TipJarError {
	return &TipJarError{Kind: NotConnected, Detail: NotConnectedMessage}
}

func NewInvalidInput(detail string, err error) *TipJarError {
	return &TipJarError{Kind: InvalidInput, Detail: detail, Err: err}
}

func NewRemoteRejected(detail string, code uint32, err error) *TipJarError {
	return &TipJarError{Kind: RemoteRejected, Detail: detail, Code: code, Err: err}
}

// Classify maps any error into a TipJarError. Errors that are not already
// classified are treated as remote rejections carrying their own text.
func Classify(err error) *TipJarError {
	if err == nil {
		return nil
	}
	var tjErr *TipJarError
	if errors.As(err, &tjErr) {
		return tjErr
	}
	return NewRemoteRejected(err.Error(), 0, err)
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind == kind
}

func (k ErrorKind) String() string {
	return string(k)
}
