// Package envelope seals encoded TFTP packets with XChaCha20-Poly1305 for
// links that share a key out of band.
package envelope

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Pablu23/tftp/internal/tftp"
)

const (
	KeySize    = chacha20poly1305.KeySize
	NonceSize  = chacha20poly1305.NonceSizeX
	HeaderSize = NonceSize + 8 + 4
	Overhead   = HeaderSize + 16 // AEAD tag

	MaxEnvelopeSize = tftp.DatagramSize + Overhead
)

var (
	ErrShortEnvelope    = errors.New("envelope: short header")
	ErrEnvelopeTooLarge = errors.New("envelope: sealed length exceeds datagram")
	ErrOpen             = errors.New("envelope: authentication failed")
)

type SessionID [8]byte

type Envelope struct {
	Nonce   [NonceSize]byte
	Session SessionID
	Sealed  []byte
}

// Seal encodes p and encrypts it under key. The session ID is bound to the
// ciphertext as additional data.
func Seal(key [KeySize]byte, sid SessionID, p tftp.Packet) (*Envelope, error) {
	plain, err := tftp.Encode(p)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}

	env := &Envelope{Session: sid}
	if _, err := rand.Read(env.Nonce[:]); err != nil {
		return nil, fmt.Errorf("envelope: nonce: %w", err)
	}
	env.Sealed = aead.Seal(nil, env.Nonce[:], plain, sid[:])
	return env, nil
}

// Open decrypts the envelope and decodes the TFTP packet inside.
func (env *Envelope) Open(key [KeySize]byte) (tftp.Packet, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, env.Nonce[:], env.Sealed, env.Session[:])
	if err != nil {
		return nil, ErrOpen
	}
	return tftp.Decode(plain)
}

func (env *Envelope) Bytes() []byte {
	arr := make([]byte, HeaderSize+len(env.Sealed))
	copy(arr[0:24], env.Nonce[:])
	copy(arr[24:32], env.Session[:])
	binary.LittleEndian.PutUint32(arr[32:36], uint32(len(env.Sealed)))
	copy(arr[HeaderSize:], env.Sealed)
	return arr
}

// Parse reads an envelope from a datagram. The sealed bytes are copied.
func Parse(b []byte) (*Envelope, error) {
	if len(b) < HeaderSize {
		return nil, ErrShortEnvelope
	}
	length := binary.LittleEndian.Uint32(b[32:36])
	if HeaderSize+uint64(length) > MaxEnvelopeSize || HeaderSize+int(length) > len(b) {
		return nil, ErrEnvelopeTooLarge
	}

	env := &Envelope{
		Nonce:   [NonceSize]byte(b[0:24]),
		Session: SessionID(b[24:32]),
		Sealed:  make([]byte, length),
	}
	copy(env.Sealed, b[HeaderSize:HeaderSize+int(length)])
	return env, nil
}
