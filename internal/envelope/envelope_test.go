package envelope

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Pablu23/tftp/internal/tftp"
)

var testKey = [KeySize]byte{1, 2, 3, 4, 5, 6, 7, 8}

func TestSealOpen(t *testing.T) {
	sid := SessionID{255, 255, 255, 255, 255, 255, 255, 255}
	want := tftp.Data{Block: 7, Payload: []byte("hello")}

	env, err := Seal(testKey, sid, want)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	parsed, err := Parse(env.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cmp.Equal(parsed, env) {
		t.Fatalf("parse mismatch: %s", cmp.Diff(env, parsed))
	}

	got, err := parsed.Open(testKey)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if diff := cmp.Diff(tftp.Packet(want), got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("packet mismatch (-want +got):\n%s", diff)
	}
}

func TestSealRejectsInvalidPacket(t *testing.T) {
	_, err := Seal(testKey, SessionID{}, tftp.ReadRequest{Mode: tftp.ModeOctet})
	if !errors.Is(err, tftp.ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	env, err := Seal(testKey, SessionID{1}, tftp.Ack{Block: 1})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	other := testKey
	other[0] ^= 0xff
	if _, err := env.Open(other); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestOpenTamperedSession(t *testing.T) {
	env, err := Seal(testKey, SessionID{1}, tftp.Ack{Block: 1})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	env.Session[0] = 2
	if _, err := env.Open(testKey); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(make([]byte, HeaderSize-1)); !errors.Is(err, ErrShortEnvelope) {
		t.Fatalf("expected ErrShortEnvelope, got %v", err)
	}

	b := make([]byte, HeaderSize+4)
	b[32] = 5
	if _, err := Parse(b); !errors.Is(err, ErrEnvelopeTooLarge) {
		t.Fatalf("length beyond buffer: expected ErrEnvelopeTooLarge, got %v", err)
	}

	b = make([]byte, HeaderSize)
	b[32], b[33], b[34], b[35] = 0xff, 0xff, 0xff, 0xff
	if _, err := Parse(b); !errors.Is(err, ErrEnvelopeTooLarge) {
		t.Fatalf("huge length: expected ErrEnvelopeTooLarge, got %v", err)
	}
}

func TestCodec(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	key := testKey
	codecs := map[string]Codec{
		"plain":  {},
		"sealed": {Key: &key, Session: sid},
	}
	want := tftp.WriteRequest{Filename: "test.txt", Mode: tftp.ModeOctet}

	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Marshal(want)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !c.Sealed() && len(b) != 17 {
				t.Fatalf("plain datagram length %d, want 17", len(b))
			}
			got, err := c.Unmarshal(b)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !cmp.Equal(tftp.Packet(want), got) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestCodecSealedRejectsPlain(t *testing.T) {
	key := testKey
	c := Codec{Key: &key}
	plain, err := tftp.Encode(tftp.Ack{Block: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := c.Unmarshal(plain); !errors.Is(err, ErrShortEnvelope) {
		t.Fatalf("expected ErrShortEnvelope, got %v", err)
	}
}
