package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/tftp/internal/envelope"
	"github.com/Pablu23/tftp/internal/tftp"
)

// ResponseWriter sends packets back to the peer a packet came from.
type ResponseWriter interface {
	WritePacket(p tftp.Packet) error
	RemoteAddr() net.Addr
}

type Handler interface {
	ServeTFTP(w ResponseWriter, p tftp.Packet)
}

type HandlerFunc func(w ResponseWriter, p tftp.Packet)

func (f HandlerFunc) ServeTFTP(w ResponseWriter, p tftp.Packet) {
	f(w, p)
}

type Server struct {
	options *Options
	handler Handler
	codec   envelope.Codec

	mu   sync.Mutex
	conn net.PacketConn
	wg   sync.WaitGroup
}

func New(handler Handler, opts ...func(*Options)) (*Server, error) {
	options := NewDefaultOptions()

	for _, opt := range opts {
		opt(options)
	}

	if handler == nil {
		return nil, errors.New("server: nil handler")
	}
	if options.MaxDatagram < tftp.DatagramSize {
		return nil, fmt.Errorf("server: max datagram %d below %d", options.MaxDatagram, tftp.DatagramSize)
	}

	return &Server{
		options: options,
		handler: handler,
		codec:   envelope.Codec{Key: options.Key, Session: options.Session},
	}, nil
}

// Addr returns the bound address, or nil before Serve has started.
func (server *Server) Addr() net.Addr {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.conn == nil {
		return nil
	}
	return server.conn.LocalAddr()
}

func (server *Server) Serve(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", server.options.Address)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", server.options.Address, err)
	}
	defer func(conn net.PacketConn) {
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.WithError(err).Error("Could not close UDP connection")
		}
	}(conn)

	return server.ServeConn(ctx, conn)
}

// ServeConn reads datagrams from conn until ctx is done. Each decoded
// packet is handled on its own goroutine; ServeConn waits for them before
// returning.
func (server *Server) ServeConn(ctx context.Context, conn net.PacketConn) error {
	server.mu.Lock()
	server.conn = conn
	server.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer server.wg.Wait()

	log.WithFields(log.Fields{
		"Address": conn.LocalAddr().String(),
		"Sealed":  server.codec.Sealed(),
	}).Info("Started listening")

	buf := make([]byte, server.options.MaxDatagram)
	var backoff time.Duration
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Server is shutting down")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			backoff = nextBackoff(backoff)
			log.WithError(err).WithField("Backoff", backoff).Error("Could not retrieve UDP Packet")
			select {
			case <-ctx.Done():
				log.Info("Server is shutting down")
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		pck, err := server.codec.Unmarshal(buf[:n])
		if err != nil {
			server.handleMalformed(conn, addr, buf[:n], err)
			continue
		}

		w := &responseWriter{conn: conn, addr: addr, codec: server.codec}
		server.wg.Add(1)
		go func() {
			defer server.wg.Done()
			server.handler.ServeTFTP(w, pck)
		}()
	}
}

const (
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = time.Second
)

func nextBackoff(d time.Duration) time.Duration {
	if d < minReadBackoff {
		return minReadBackoff
	}
	d *= 2
	if d > maxReadBackoff {
		return maxReadBackoff
	}
	return d
}

func (server *Server) handleMalformed(conn net.PacketConn, addr net.Addr, datagram []byte, err error) {
	log.WithError(err).WithFields(log.Fields{
		"Remote": addr.String(),
		"Length": len(datagram),
	}).Warn("Received invalid Packet")

	if !server.options.ReplyMalformed {
		return
	}

	// An ERROR packet is never answered with another one.
	var pe *tftp.PacketError
	if !errors.As(err, &pe) || pe.Opcode == tftp.OpError {
		return
	}

	w := &responseWriter{conn: conn, addr: addr, codec: server.codec}
	reply := tftp.Error{Code: tftp.ErrIllegalOperation, Message: err.Error()}
	if err := w.WritePacket(reply); err != nil {
		log.WithError(err).WithField("Remote", addr.String()).Error("Could not write Packet to UDP")
	}
}

type responseWriter struct {
	conn  net.PacketConn
	addr  net.Addr
	codec envelope.Codec
}

func (w *responseWriter) WritePacket(p tftp.Packet) error {
	b, err := w.codec.Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.conn.WriteTo(b, w.addr)
	return err
}

func (w *responseWriter) RemoteAddr() net.Addr {
	return w.addr
}
