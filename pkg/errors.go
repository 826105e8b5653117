package pkg

import "errors"

var (
	// ErrInputUnavailable is returned when a participant's input cannot be read
	ErrInputUnavailable = errors.New("input unavailable")

	// ErrUnknownID is returned when an id has no address in the ring directory
	ErrUnknownID = errors.New("unknown id")

	// ErrNotAParticipant is returned by successor/predecessor queries for non-members
	ErrNotAParticipant = errors.New("not a participant")

	// ErrDuplicateID is returned when two participants claim the same ring id
	ErrDuplicateID = errors.New("duplicate ring id")

	// ErrIDOutOfRange is returned for ids or keys outside [0, 2^m)
	ErrIDOutOfRange = errors.New("id out of range")

	// ErrSequenceOutOfRange is returned for a reply whose sequence number was never issued
	ErrSequenceOutOfRange = errors.New("sequence number out of range")

	// ErrDuplicateReply is returned when a result slot is written twice
	ErrDuplicateReply = errors.New("duplicate reply")

	// ErrTransportClosed is returned when sending to or receiving from a closed endpoint
	ErrTransportClosed = errors.New("transport closed")
)
