package envelope

import (
	"crypto/rand"

	"github.com/Pablu23/tftp/internal/tftp"
)

// Codec turns packets into datagrams and back. Without a key it is the
// plain TFTP wire format.
type Codec struct {
	Key     *[KeySize]byte
	Session SessionID
}

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (c Codec) Sealed() bool {
	return c.Key != nil
}

func (c Codec) Marshal(p tftp.Packet) ([]byte, error) {
	if c.Key == nil {
		return tftp.Encode(p)
	}
	env, err := Seal(*c.Key, c.Session, p)
	if err != nil {
		return nil, err
	}
	return env.Bytes(), nil
}

// Unmarshal accepts envelopes from any session; the key authenticates them.
func (c Codec) Unmarshal(b []byte) (tftp.Packet, error) {
	if c.Key == nil {
		return tftp.Decode(b)
	}
	env, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return env.Open(*c.Key)
}
