package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Pablu23/tftp/internal/tftp"
)

// peer answers every datagram with reply from a new socket, the way a TFTP
// server picks a fresh transfer ID.
func peer(t *testing.T, reply []byte) (string, <-chan []byte) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, tftp.DatagramSize)
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		got <- append([]byte(nil), buf[:n]...)

		tid, err := net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			return
		}
		defer tid.Close()
		_, _ = tid.WriteTo(reply, addr)
	}()
	return conn.LocalAddr().String(), got
}

func TestSendReceive(t *testing.T) {
	reply := []byte{0, 3, 0, 1, 'h', 'i'}
	addr, sent := peer(t, reply)

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Send(tftp.ReadRequest{Filename: "test.txt", Mode: tftp.ModeOctet}); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := []byte{0, 1, 't', 'e', 's', 't', '.', 't', 'x', 't', 0, 'o', 'c', 't', 'e', 't', 0}
	if got := <-sent; !cmp.Equal(got, want) {
		t.Fatalf("sent % x, want % x", got, want)
	}

	p, from, err := c.Receive(context.Background())
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !cmp.Equal(p, tftp.Packet(tftp.Data{Block: 1, Payload: []byte("hi")})) {
		t.Fatalf("got %v", p)
	}
	if from.String() == addr {
		t.Fatal("reply should come from a new transfer ID")
	}
}

func TestReceiveMalformed(t *testing.T) {
	addr, _ := peer(t, []byte{0, 4, 0, 1, 0xff})

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Send(tftp.Ack{Block: 0}); err != nil {
		t.Fatalf("send: %v", err)
	}
	p, from, err := c.Receive(context.Background())
	if !errors.Is(err, tftp.ErrTrailingData) {
		t.Fatalf("expected ErrTrailingData, got %v", err)
	}
	if p != nil || from == nil {
		t.Fatalf("got packet %v from %v", p, from)
	}
}

func TestSendInvalidPacket(t *testing.T) {
	c, err := Dial("127.0.0.1:9")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Send(tftp.WriteRequest{Filename: "f"}); !errors.Is(err, tftp.ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
}

func TestReceiveTimeout(t *testing.T) {
	c, err := Dial("127.0.0.1:9", func(o *Options) {
		o.Timeout = 50 * time.Millisecond
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Receive(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestReceiveContextCancel(t *testing.T) {
	c, err := Dial("127.0.0.1:9")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	if _, _, err := c.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDialValidatesOptions(t *testing.T) {
	_, err := Dial("127.0.0.1:9", func(o *Options) {
		o.MaxDatagram = tftp.DatagramSize - 1
	})
	if err == nil {
		t.Fatal("expected error for small datagram buffer")
	}
}
