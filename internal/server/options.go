package server

import "github.com/Pablu23/tftp/internal/envelope"

type Options struct {
	Address        string
	MaxDatagram    int
	ReplyMalformed bool
	Key            *[envelope.KeySize]byte
	Session        envelope.SessionID
}

func NewDefaultOptions() *Options {
	return &Options{
		Address:        "0.0.0.0:69",
		MaxDatagram:    envelope.MaxEnvelopeSize,
		ReplyMalformed: true,
	}
}
