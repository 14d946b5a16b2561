package server

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/tftp/internal/blocks"
	"github.com/Pablu23/tftp/internal/tftp"
)

// Recorder is a Handler that logs every packet and keeps a block tracker
// per remote address for DATA packets. It never replies.
type Recorder struct {
	mu       sync.Mutex
	trackers map[string]*blocks.Tracker
}

func NewRecorder() *Recorder {
	return &Recorder{trackers: make(map[string]*blocks.Tracker)}
}

func (rec *Recorder) ServeTFTP(w ResponseWriter, p tftp.Packet) {
	remote := w.RemoteAddr().String()
	entry := log.WithFields(log.Fields{
		"Remote": remote,
		"Opcode": p.Opcode().String(),
	})

	switch p := p.(type) {
	case tftp.ReadRequest, tftp.WriteRequest:
		rec.forget(remote)
		entry.Info(p.String())
	case tftp.Data:
		tr := rec.tracker(remote)
		tr.Add(p.Block)
		if p.Last() {
			entry.WithFields(log.Fields{
				"Blocks":  tr.Count(),
				"Missing": len(tr.Missing(p.Block)),
			}).Info("Received last block")
		} else {
			entry.Debug(p.String())
		}
	case tftp.Ack:
		entry.Debug(p.String())
	case tftp.Error:
		entry.WithField("Code", uint16(p.Code)).Warn(p.Message)
	}
}

// Tracker returns the block tracker for addr, or nil if no DATA packet has
// been recorded from it.
func (rec *Recorder) Tracker(addr string) *blocks.Tracker {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.trackers[addr]
}

func (rec *Recorder) tracker(addr string) *blocks.Tracker {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	tr, ok := rec.trackers[addr]
	if !ok {
		tr = &blocks.Tracker{}
		rec.trackers[addr] = tr
	}
	return tr
}

func (rec *Recorder) forget(addr string) {
	rec.mu.Lock()
	delete(rec.trackers, addr)
	rec.mu.Unlock()
}
