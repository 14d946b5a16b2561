package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/tftp/internal/envelope"
	"github.com/Pablu23/tftp/internal/tftp"
)

var ErrTimeout = errors.New("client: receive timed out")

// Client exchanges single packets with a TFTP peer. It has no notion of a
// transfer and never retransmits.
type Client struct {
	conn    net.PacketConn
	remote  net.Addr
	codec   envelope.Codec
	options *Options
}

func Dial(address string, opts ...func(*Options)) (*Client, error) {
	options := NewDefaultOptions()

	for _, opt := range opts {
		opt(options)
	}

	if options.MaxDatagram < tftp.DatagramSize {
		return nil, fmt.Errorf("client: max datagram %d below %d", options.MaxDatagram, tftp.DatagramSize)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("client: resolve %s: %w", address, err)
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("client: listen: %w", err)
	}

	return &Client{
		conn:    conn,
		remote:  udpAddr,
		codec:   envelope.Codec{Key: options.Key, Session: options.Session},
		options: options,
	}, nil
}

func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Send writes p to the dialed address.
func (c *Client) Send(p tftp.Packet) error {
	return c.SendTo(p, c.remote)
}

// SendTo writes p to addr. A server answers from a fresh transfer ID, so
// replies after the first go to the address Receive reported.
func (c *Client) SendTo(p tftp.Packet, addr net.Addr) error {
	b, err := c.codec.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := c.conn.WriteTo(b, addr); err != nil {
		return fmt.Errorf("client: write: %w", err)
	}
	log.WithFields(log.Fields{
		"Remote": addr.String(),
		"Opcode": p.Opcode().String(),
	}).Debug("Sent packet")
	return nil
}

// Receive waits for the next datagram and decodes it. It gives up after
// Options.Timeout or when ctx is done, whichever comes first. Datagrams
// that fail to decode are returned as errors together with their sender.
func (c *Client) Receive(ctx context.Context) (tftp.Packet, net.Addr, error) {
	deadline := time.Now().Add(c.options.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, c.options.MaxDatagram)
	n, addr, err := c.conn.ReadFrom(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil, ErrTimeout
		}
		return nil, nil, fmt.Errorf("client: read: %w", err)
	}

	pck, err := c.codec.Unmarshal(buf[:n])
	if err != nil {
		log.WithError(err).WithField("Remote", addr.String()).Warn("Received invalid Packet")
		return nil, addr, err
	}
	return pck, addr, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
