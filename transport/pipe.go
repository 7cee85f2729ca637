package transport

import (
	"context"
	"io"

	"github.com/dmtf/spdm-core/spdmerr"
)

// PipeDeviceIo wraps a plain io.ReadWriteCloser (e.g. net.Pipe) with the
// length-prefixed framing DeviceIo needs over a byte stream. Grounded on
// the synchronous read/write loop shape used by the daemon's direct
// connection handler.
type PipeDeviceIo struct {
	rw io.ReadWriteCloser
}

func NewPipeDeviceIo(rw io.ReadWriteCloser) *PipeDeviceIo {
	return &PipeDeviceIo{rw: rw}
}

func (p *PipeDeviceIo) Send(_ context.Context, buf []byte) error {
	var lenPrefix [4]byte
	n := len(buf)
	lenPrefix[0] = byte(n)
	lenPrefix[1] = byte(n >> 8)
	lenPrefix[2] = byte(n >> 16)
	lenPrefix[3] = byte(n >> 24)
	if _, err := p.rw.Write(lenPrefix[:]); err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "write length prefix", err)
	}
	if _, err := p.rw.Write(buf); err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "write payload", err)
	}
	return nil
}

func (p *PipeDeviceIo) Receive(_ context.Context, bufOut []byte) (int, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(p.rw, lenPrefix[:]); err != nil {
		return 0, spdmerr.Wrap(spdmerr.IoFailure, "read length prefix", err)
	}
	n := int(lenPrefix[0]) | int(lenPrefix[1])<<8 | int(lenPrefix[2])<<16 | int(lenPrefix[3])<<24
	if n > len(bufOut) {
		return 0, spdmerr.New(spdmerr.BufferOverflow, "incoming message exceeds buffer")
	}
	if _, err := io.ReadFull(p.rw, bufOut[:n]); err != nil {
		return 0, spdmerr.Wrap(spdmerr.IoFailure, "read payload", err)
	}
	return n, nil
}

func (p *PipeDeviceIo) Close() error { return p.rw.Close() }
