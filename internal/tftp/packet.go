package tftp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Packet is one of ReadRequest, WriteRequest, Data, Ack or Error.
// The set is closed; Decode and Encode switch over it exhaustively.
type Packet interface {
	Opcode() Opcode
	fmt.Stringer
	packet()
}

type ReadRequest struct {
	Filename string
	Mode     string
}

type WriteRequest struct {
	Filename string
	Mode     string
}

// Data carries one block of a transfer. A payload shorter than BlockSize
// ends the transfer; deciding that is up to the caller.
type Data struct {
	Block   uint16
	Payload []byte
}

type Ack struct {
	Block uint16
}

type Error struct {
	Code    ErrorCode
	Message string
}

func (ReadRequest) Opcode() Opcode  { return OpRRQ }
func (WriteRequest) Opcode() Opcode { return OpWRQ }
func (Data) Opcode() Opcode         { return OpData }
func (Ack) Opcode() Opcode          { return OpAck }
func (Error) Opcode() Opcode        { return OpError }

func (ReadRequest) packet()  {}
func (WriteRequest) packet() {}
func (Data) packet()         {}
func (Ack) packet()          {}
func (Error) packet()        {}

func (p ReadRequest) String() string {
	return fmt.Sprintf("RRQ filename=%q mode=%q", p.Filename, p.Mode)
}

func (p WriteRequest) String() string {
	return fmt.Sprintf("WRQ filename=%q mode=%q", p.Filename, p.Mode)
}

func (p Data) String() string {
	return fmt.Sprintf("DATA block=%d len=%d", p.Block, len(p.Payload))
}

func (p Ack) String() string {
	return fmt.Sprintf("ACK block=%d", p.Block)
}

func (p Error) String() string {
	return fmt.Sprintf("ERROR code=%d (%s) message=%q", uint16(p.Code), p.Code, p.Message)
}

// Last reports whether p is the final DATA packet of a transfer.
func (p Data) Last() bool {
	return len(p.Payload) < BlockSize
}

func NewReadRequest(filename, mode string) (ReadRequest, error) {
	p := ReadRequest{Filename: filename, Mode: mode}
	if err := Validate(p); err != nil {
		return ReadRequest{}, err
	}
	return p, nil
}

func NewWriteRequest(filename, mode string) (WriteRequest, error) {
	p := WriteRequest{Filename: filename, Mode: mode}
	if err := Validate(p); err != nil {
		return WriteRequest{}, err
	}
	return p, nil
}

// NewData copies payload so the packet does not alias the caller's buffer.
func NewData(block uint16, payload []byte) (Data, error) {
	p := Data{Block: block}
	if len(payload) > 0 {
		p.Payload = bytes.Clone(payload)
	}
	if err := Validate(p); err != nil {
		return Data{}, err
	}
	return p, nil
}

func NewAck(block uint16) Ack {
	return Ack{Block: block}
}

func NewError(code ErrorCode, message string) (Error, error) {
	p := Error{Code: code, Message: message}
	if err := Validate(p); err != nil {
		return Error{}, err
	}
	return p, nil
}

// Validate checks p against the constraints of its wire layout. It
// reports the same errors Decode returns for the equivalent bytes.
func Validate(p Packet) error {
	switch p := deref(p).(type) {
	case ReadRequest:
		return validateRequest(OpRRQ, p.Filename, p.Mode)
	case WriteRequest:
		return validateRequest(OpWRQ, p.Filename, p.Mode)
	case Data:
		if len(p.Payload) > BlockSize {
			return encodeError(OpData, "payload", HeaderSize, ErrPayloadTooLarge)
		}
		return nil
	case Ack:
		return nil
	case Error:
		if strings.IndexByte(p.Message, 0) >= 0 {
			b := binary.BigEndian.AppendUint16(nil, uint16(OpError))
			b = binary.BigEndian.AppendUint16(b, uint16(p.Code))
			b = append(b, p.Message...)
			return embeddedNullError(OpError, "message", append(b, 0))
		}
		return nil
	default:
		return encodeError(0, "opcode", 0, ErrUnknownOpcode)
	}
}

func validateRequest(op Opcode, filename, mode string) error {
	if strings.IndexByte(filename, 0) >= 0 || strings.IndexByte(mode, 0) >= 0 {
		field := "filename"
		if strings.IndexByte(filename, 0) < 0 {
			field = "mode"
		}
		return embeddedNullError(op, field, appendRequest(nil, op, filename, mode))
	}
	if filename == "" {
		return encodeError(op, "filename", 2, ErrEmptyField)
	}
	if mode == "" {
		return encodeError(op, "mode", 2+len(filename)+1, ErrEmptyField)
	}
	return nil
}

// embeddedNullError reports what Decode says about wire, the layout a
// plain concatenation of fields containing 0x00 produces. A null ends
// its field early, so depending on where it sits the decoder sees an
// empty field or trailing bytes.
func embeddedNullError(op Opcode, field string, wire []byte) error {
	_, err := Decode(wire)
	var pe *PacketError
	if errors.As(err, &pe) {
		return encodeError(pe.Opcode, pe.Field, pe.Offset, pe.Err)
	}
	return encodeError(op, field, 2, ErrTrailingData)
}

// deref lets pointers to the packet structs be passed wherever a Packet is
// accepted. A nil pointer is left as is and rejected by the caller.
func deref(p Packet) Packet {
	switch v := p.(type) {
	case *ReadRequest:
		if v != nil {
			return *v
		}
	case *WriteRequest:
		if v != nil {
			return *v
		}
	case *Data:
		if v != nil {
			return *v
		}
	case *Ack:
		if v != nil {
			return *v
		}
	case *Error:
		if v != nil {
			return *v
		}
	}
	return p
}
