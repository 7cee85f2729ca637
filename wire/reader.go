package wire

import (
	"encoding/binary"

	"github.com/dmtf/spdm-core/spdmerr"
)

// Reader consumes a fixed backing slice without ever growing it, matching
// the no-heap-on-hot-path discipline the rest of the stack follows.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Used returns the number of bytes consumed so far.
func (r *Reader) Used() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return spdmerr.New(spdmerr.DecodeFailure, "short read")
	}
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) U24() (uint32, error) {
	if err := r.need(3); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.off]) | uint32(r.buf[r.off+1])<<8 | uint32(r.buf[r.off+2])<<16
	r.off += 3
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Bytes reads n raw bytes without copying.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

// Rest returns every unread byte.
func (r *Reader) Rest() []byte {
	return r.buf[r.off:]
}

// Writer emits into a fixed backing slice, panicking only when the caller
// hands it a structural invariant violation (field too large for its
// declared size) — a programmer error, not a data error.
type Writer struct {
	buf []byte
	off int
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) Used() int { return w.off }

func (w *Writer) Bytes() []byte { return w.buf[:w.off] }

func (w *Writer) grow(n int) []byte {
	if w.off+n > len(w.buf) {
		panic("wire: writer overflow")
	}
	s := w.buf[w.off : w.off+n]
	w.off += n
	return s
}

func (w *Writer) U8(v uint8) {
	w.grow(1)[0] = v
}

func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.grow(2), v)
}

func (w *Writer) U24(v uint32) {
	b := w.grow(3)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.grow(4), v)
}

func (w *Writer) U64(v uint64) {
	binary.LittleEndian.PutUint64(w.grow(8), v)
}

func (w *Writer) Raw(b []byte) {
	copy(w.grow(len(b)), b)
}

// PatchAt overwrites len(b) bytes starting at offset off, used to fill in
// signature/HMAC placeholder regions after the fact. Does not move the
// write cursor.
func (w *Writer) PatchAt(off int, b []byte) {
	if off < 0 || off+len(b) > len(w.buf) {
		panic("wire: patch out of range")
	}
	copy(w.buf[off:off+len(b)], b)
}
