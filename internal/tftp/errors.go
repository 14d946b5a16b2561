package tftp

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode     = errors.New("tftp: unknown opcode")
	ErrTruncated         = errors.New("tftp: truncated packet")
	ErrMissingTerminator = errors.New("tftp: missing string terminator")
	ErrEmptyField        = errors.New("tftp: empty field")
	ErrPayloadTooLarge   = errors.New("tftp: payload too large")
	ErrTrailingData      = errors.New("tftp: trailing data")
)

// PacketError describes where a packet failed to decode or encode.
// Offset is relative to the start of the wire layout.
type PacketError struct {
	Op     string
	Opcode Opcode
	Field  string
	Offset int
	Err    error
}

func (e *PacketError) Error() string {
	if errors.Is(e.Err, ErrUnknownOpcode) {
		return fmt.Sprintf("%v %d", e.Err, uint16(e.Opcode))
	}
	if e.Opcode < OpRRQ || e.Opcode > OpError {
		return fmt.Sprintf("%v: %s %s at offset %d", e.Err, e.Op, e.Field, e.Offset)
	}
	return fmt.Sprintf("%v: %s %s %s at offset %d", e.Err, e.Op, e.Opcode, e.Field, e.Offset)
}

func (e *PacketError) Unwrap() error {
	return e.Err
}

func decodeError(op Opcode, field string, offset int, err error) error {
	return &PacketError{Op: "decode", Opcode: op, Field: field, Offset: offset, Err: err}
}

func encodeError(op Opcode, field string, offset int, err error) error {
	return &PacketError{Op: "encode", Opcode: op, Field: field, Offset: offset, Err: err}
}
