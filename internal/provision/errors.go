package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
)

// Kind classifies a workflow failure.
type Kind string

const (
	KindNotFound             Kind = "NotFound"
	KindDataIntegrity        Kind = "DataIntegrityError"
	KindDeviceAccountMissing Kind = "DeviceAccountMissing"
	KindAlreadyActive        Kind = "AlreadyActive"
	KindDeviceDataMismatch   Kind = "DeviceDataMismatch"
	KindSchedulingFailed     Kind = "SchedulingFailed"
	KindActivationFailed     Kind = "ActivationFailed"
	KindVerificationFailed   Kind = "VerificationFailed"
	KindCommitWarning        Kind = "CommitWarning"
	KindPartialRejection     Kind = "PartialRejection"
	KindConnectivity         Kind = "ConnectivityError"
	KindAuth                 Kind = "AuthError"
	KindDeviceRejected       Kind = "DeviceRejected"
	KindUnauthorized         Kind = "Unauthorized"
	KindInternal             Kind = "InternalError"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNotFound             = errors.New("pending request not found")
	ErrDataIntegrity        = errors.New("decision does not match pending request")
	ErrDeviceAccountMissing = errors.New("device account missing")
	ErrAlreadyActive        = errors.New("device account already active")
	ErrDeviceDataMismatch   = errors.New("device account does not match pending request")
	ErrSchedulingFailed     = errors.New("expiry job installation failed")
	ErrActivationFailed     = errors.New("account activation failed")
	ErrVerificationFailed   = errors.New("account activation could not be verified")
	ErrCommitWarning        = errors.New("pending request could not be deleted")
	ErrPartialRejection     = errors.New("rejection partially applied")
	ErrConnectivity         = errors.New("device unreachable")
	ErrAuth                 = errors.New("device authentication failed")
	ErrDeviceRejected       = errors.New("device rejected command")
	ErrUnauthorized         = errors.New("invalid credentials")
	ErrInternal             = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindNotFound:             ErrNotFound,
	KindDataIntegrity:        ErrDataIntegrity,
	KindDeviceAccountMissing: ErrDeviceAccountMissing,
	KindAlreadyActive:        ErrAlreadyActive,
	KindDeviceDataMismatch:   ErrDeviceDataMismatch,
	KindSchedulingFailed:     ErrSchedulingFailed,
	KindActivationFailed:     ErrActivationFailed,
	KindVerificationFailed:   ErrVerificationFailed,
	KindCommitWarning:        ErrCommitWarning,
	KindPartialRejection:     ErrPartialRejection,
	KindConnectivity:         ErrConnectivity,
	KindAuth:                 ErrAuth,
	KindDeviceRejected:       ErrDeviceRejected,
	KindUnauthorized:         ErrUnauthorized,
	KindInternal:             ErrInternal,
}

// Mismatch is one field that differs between two sources of truth.
type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %q, got %q", m.Field, m.Expected, m.Actual)
}

// redacted stands in for credential values in mismatches.
const redacted = "<redacted>"

// Error is a failed workflow step.
type Error struct {
	Kind       Kind
	Username   string
	Mismatches []Mismatch
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Username != "" {
		b.WriteString(" [")
		b.WriteString(e.Username)
		b.WriteString("]")
	}
	for i, m := range e.Mismatches {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(m.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func newError(kind Kind, username string, err error) *Error {
	return &Error{Kind: kind, Username: username, Err: err}
}

// KindOf reports the kind of err. Errors that did not come from the engine
// are classified by their device or storage cause, and InternalError
// otherwise. KindOf(nil) is "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, device.ErrConnectivity):
		return KindConnectivity
	case errors.Is(err, device.ErrAuth):
		return KindAuth
	case errors.Is(err, device.ErrRejected):
		return KindDeviceRejected
	case errors.Is(err, common.ErrorNotFound):
		return KindNotFound
	}
	return KindInternal
}

// transportKind picks the kind for a device failure outside the saga.
func transportKind(err error) Kind {
	switch {
	case errors.Is(err, device.ErrAuth):
		return KindAuth
	case errors.Is(err, device.ErrRejected):
		return KindDeviceRejected
	case errors.Is(err, device.ErrConnectivity):
		return KindConnectivity
	}
	return KindInternal
}

func deviceError(username string, err error) *Error {
	return newError(transportKind(err), username, err)
}
