package tftp

import "encoding/binary"

// Encode returns the wire form of p in a newly allocated buffer.
func Encode(p Packet) ([]byte, error) {
	b, err := Append(make([]byte, 0, encodedLen(p)), p)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Append appends the wire form of p to dst. If p is invalid dst is
// returned unchanged together with the error.
func Append(dst []byte, p Packet) ([]byte, error) {
	p = deref(p)
	if err := Validate(p); err != nil {
		return dst, err
	}

	switch p := p.(type) {
	case ReadRequest:
		return appendRequest(dst, OpRRQ, p.Filename, p.Mode), nil
	case WriteRequest:
		return appendRequest(dst, OpWRQ, p.Filename, p.Mode), nil
	case Data:
		dst = binary.BigEndian.AppendUint16(dst, uint16(OpData))
		dst = binary.BigEndian.AppendUint16(dst, p.Block)
		return append(dst, p.Payload...), nil
	case Ack:
		dst = binary.BigEndian.AppendUint16(dst, uint16(OpAck))
		return binary.BigEndian.AppendUint16(dst, p.Block), nil
	case Error:
		dst = binary.BigEndian.AppendUint16(dst, uint16(OpError))
		dst = binary.BigEndian.AppendUint16(dst, uint16(p.Code))
		dst = append(dst, p.Message...)
		return append(dst, 0), nil
	default:
		return dst, encodeError(0, "opcode", 0, ErrUnknownOpcode)
	}
}

func appendRequest(dst []byte, op Opcode, filename, mode string) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(op))
	dst = append(dst, filename...)
	dst = append(dst, 0)
	dst = append(dst, mode...)
	return append(dst, 0)
}

func encodedLen(p Packet) int {
	switch p := deref(p).(type) {
	case ReadRequest:
		return 2 + len(p.Filename) + 1 + len(p.Mode) + 1
	case WriteRequest:
		return 2 + len(p.Filename) + 1 + len(p.Mode) + 1
	case Data:
		return HeaderSize + len(p.Payload)
	case Error:
		return HeaderSize + len(p.Message) + 1
	default:
		return HeaderSize
	}
}
