package tftp

import (
	"bytes"
	"encoding/binary"
)

// Decode parses one TFTP datagram. The returned packet does not retain b.
func Decode(b []byte) (Packet, error) {
	if len(b) < 2 {
		return nil, decodeError(0, "opcode", 0, ErrTruncated)
	}

	op := Opcode(binary.BigEndian.Uint16(b[0:2]))
	switch op {
	case OpRRQ:
		filename, mode, err := decodeRequest(op, b)
		if err != nil {
			return nil, err
		}
		return ReadRequest{Filename: filename, Mode: mode}, nil
	case OpWRQ:
		filename, mode, err := decodeRequest(op, b)
		if err != nil {
			return nil, err
		}
		return WriteRequest{Filename: filename, Mode: mode}, nil
	case OpData:
		return decodeData(b)
	case OpAck:
		return decodeAck(b)
	case OpError:
		return decodeErrorPacket(b)
	default:
		return nil, decodeError(op, "opcode", 0, ErrUnknownOpcode)
	}
}

func decodeRequest(op Opcode, b []byte) (string, string, error) {
	filename, next, err := readString(op, "filename", b, 2, false)
	if err != nil {
		return "", "", err
	}
	mode, next, err := readString(op, "mode", b, next, false)
	if err != nil {
		return "", "", err
	}
	if next != len(b) {
		return "", "", decodeError(op, "mode", next, ErrTrailingData)
	}
	return filename, mode, nil
}

func decodeData(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return nil, decodeError(OpData, "block", 2, ErrTruncated)
	}
	n := len(b) - HeaderSize
	if n > BlockSize {
		return nil, decodeError(OpData, "payload", HeaderSize, ErrPayloadTooLarge)
	}

	p := Data{Block: binary.BigEndian.Uint16(b[2:4])}
	if n > 0 {
		p.Payload = make([]byte, n)
		copy(p.Payload, b[HeaderSize:])
	}
	return p, nil
}

func decodeAck(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return nil, decodeError(OpAck, "block", 2, ErrTruncated)
	}
	if len(b) > HeaderSize {
		return nil, decodeError(OpAck, "block", HeaderSize, ErrTrailingData)
	}
	return Ack{Block: binary.BigEndian.Uint16(b[2:4])}, nil
}

func decodeErrorPacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return nil, decodeError(OpError, "code", 2, ErrTruncated)
	}
	code := ErrorCode(binary.BigEndian.Uint16(b[2:4]))

	message, next, err := readString(OpError, "message", b, HeaderSize, true)
	if err != nil {
		return nil, err
	}
	if next != len(b) {
		return nil, decodeError(OpError, "message", next, ErrTrailingData)
	}
	return Error{Code: code, Message: message}, nil
}

// readString scans b from offset for a 0x00 terminator. It returns the
// field without the terminator and the offset just past it.
func readString(op Opcode, field string, b []byte, offset int, allowEmpty bool) (string, int, error) {
	i := bytes.IndexByte(b[offset:], 0)
	if i < 0 {
		return "", 0, decodeError(op, field, offset, ErrMissingTerminator)
	}
	if i == 0 && !allowEmpty {
		return "", 0, decodeError(op, field, offset, ErrEmptyField)
	}
	return string(b[offset : offset+i]), offset + i + 1, nil
}
