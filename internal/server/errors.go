// Package server defines the rejection taxonomy used by the event router.
// Every rejection is recoverable and local: it is reported to the
// originating connection only and never broadcast.
package server

import "fmt"

// RejectKind classifies why the router refused an inbound event.
type RejectKind int

const (
	// RejectValidation covers empty or out-of-range input.
	RejectValidation RejectKind = iota
	// RejectConflict covers duplicate names and already-a-member joins.
	RejectConflict
	// RejectNotFound covers unknown groups, messages, and recipients.
	RejectNotFound
	// RejectAuthorization covers unregistered senders and non-members
	// acting on a group channel.
	RejectAuthorization
	// RejectAgeGate covers joins below a group's minimum age.
	RejectAgeGate
)

// Rejection is a per-sender failure produced while handling an inbound event.
type Rejection struct {
	Kind    RejectKind
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(kind RejectKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func rejectValidation(format string, args ...any) *Rejection {
	return reject(RejectValidation, format, args...)
}

func rejectConflict(format string, args ...any) *Rejection {
	return reject(RejectConflict, format, args...)
}

func rejectNotFound(format string, args ...any) *Rejection {
	return reject(RejectNotFound, format, args...)
}

func rejectAuthorization(format string, args ...any) *Rejection {
	return reject(RejectAuthorization, format, args...)
}

func rejectAgeGate(format string, args ...any) *Rejection {
	return reject(RejectAgeGate, format, args...)
}
