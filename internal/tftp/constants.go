package tftp

import "strings"

const (
	BlockSize    = 512
	HeaderSize   = 4
	DatagramSize = HeaderSize + BlockSize
)

type Opcode uint16

const (
	OpRRQ Opcode = iota + 1
	OpWRQ
	OpData
	OpAck
	OpError
)

func (op Opcode) String() string {
	switch op {
	case OpRRQ:
		return "RRQ"
	case OpWRQ:
		return "WRQ"
	case OpData:
		return "DATA"
	case OpAck:
		return "ACK"
	case OpError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode is the code field of an ERROR packet. Values outside the
// RFC 1350 range are carried as-is.
type ErrorCode uint16

const (
	ErrNotDefined ErrorCode = iota
	ErrFileNotFound
	ErrAccessViolation
	ErrDiskFull
	ErrIllegalOperation
	ErrUnknownTransferID
	ErrFileExists
	ErrNoSuchUser
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotDefined:
		return "Not defined"
	case ErrFileNotFound:
		return "File not found"
	case ErrAccessViolation:
		return "Access violation"
	case ErrDiskFull:
		return "Disk full or allocation exceeded"
	case ErrIllegalOperation:
		return "Illegal TFTP operation"
	case ErrUnknownTransferID:
		return "Unknown transfer ID"
	case ErrFileExists:
		return "File already exists"
	case ErrNoSuchUser:
		return "No such user"
	default:
		return "Unknown error code"
	}
}

const (
	ModeNetASCII = "netascii"
	ModeOctet    = "octet"
	ModeMail     = "mail"
)

// NormalizeMode lower-cases mode and reports whether it is one of the
// RFC 1350 transfer modes. Mode names are case-insensitive on the wire.
func NormalizeMode(mode string) (string, bool) {
	m := strings.ToLower(mode)
	switch m {
	case ModeNetASCII, ModeOctet, ModeMail:
		return m, true
	}
	return m, false
}
