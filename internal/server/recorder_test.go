package server

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Pablu23/tftp/internal/tftp"
)

type fakeWriter struct {
	addr    net.Addr
	written []tftp.Packet
}

func (w *fakeWriter) WritePacket(p tftp.Packet) error {
	w.written = append(w.written, p)
	return nil
}

func (w *fakeWriter) RemoteAddr() net.Addr {
	return w.addr
}

func TestRecorderTracksBlocks(t *testing.T) {
	rec := NewRecorder()
	w := &fakeWriter{addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}}
	other := &fakeWriter{addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4001}}

	rec.ServeTFTP(w, tftp.WriteRequest{Filename: "f", Mode: tftp.ModeOctet})
	rec.ServeTFTP(w, tftp.Data{Block: 1, Payload: make([]byte, tftp.BlockSize)})
	rec.ServeTFTP(w, tftp.Data{Block: 3, Payload: []byte("end")})
	rec.ServeTFTP(other, tftp.Ack{Block: 1})
	rec.ServeTFTP(other, tftp.Error{Code: tftp.ErrDiskFull, Message: "full"})

	tr := rec.Tracker(w.addr.String())
	if tr == nil {
		t.Fatal("no tracker for sender")
	}
	if got := tr.Missing(3); !cmp.Equal(got, []uint16{2}) {
		t.Fatalf("missing: got %v, want [2]", got)
	}
	if rec.Tracker(other.addr.String()) != nil {
		t.Fatal("tracker created without DATA packets")
	}
	if len(w.written)+len(other.written) != 0 {
		t.Fatal("recorder replied")
	}

	rec.ServeTFTP(w, tftp.ReadRequest{Filename: "g", Mode: tftp.ModeOctet})
	if rec.Tracker(w.addr.String()) != nil {
		t.Fatal("new request did not reset tracker")
	}
}
