package client

import (
	"time"

	"github.com/Pablu23/tftp/internal/envelope"
)

type Options struct {
	Timeout     time.Duration
	MaxDatagram int
	Key         *[envelope.KeySize]byte
	Session     envelope.SessionID
}

func NewDefaultOptions() *Options {
	return &Options{
		Timeout:     10 * time.Second,
		MaxDatagram: envelope.MaxEnvelopeSize,
	}
}
