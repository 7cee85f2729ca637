package wire

import (
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
)

func spdmerrInvalidMeasurement() error {
	return spdmerr.New(spdmerr.DecodeFailure, "measurement record length mismatch")
}

// DigestStruct, SignatureStruct and DheExchangeStruct all share the central
// codec invariant: DataSize is never on the wire on decode, it is implied by
// the negotiated algorithm; encoders write exactly DataSize bytes.

type DigestStruct struct {
	DataSize uint16
	Data     [spdmconst.MaxHashSize]byte
}

func (d DigestStruct) Bytes() []byte { return d.Data[:d.DataSize] }

func NewDigest(b []byte) DigestStruct {
	var d DigestStruct
	d.DataSize = uint16(len(b))
	copy(d.Data[:], b)
	return d
}

func (d DigestStruct) Encode(w *Writer) {
	w.Raw(d.Data[:d.DataSize])
}

func DecodeDigest(r *Reader, size int) (DigestStruct, error) {
	b, err := r.Bytes(size)
	if err != nil {
		return DigestStruct{}, err
	}
	return NewDigest(b), nil
}

type SignatureStruct struct {
	DataSize uint16
	Data     [spdmconst.MaxAsymKeySize]byte
}

func (s SignatureStruct) Bytes() []byte { return s.Data[:s.DataSize] }

func NewSignature(b []byte) SignatureStruct {
	var s SignatureStruct
	s.DataSize = uint16(len(b))
	copy(s.Data[:], b)
	return s
}

func (s SignatureStruct) Encode(w *Writer) {
	w.Raw(s.Data[:s.DataSize])
}

func DecodeSignature(r *Reader, size int) (SignatureStruct, error) {
	b, err := r.Bytes(size)
	if err != nil {
		return SignatureStruct{}, err
	}
	return NewSignature(b), nil
}

type DheExchangeStruct struct {
	DataSize uint16
	Data     [spdmconst.MaxDheKeySize]byte
}

func (d DheExchangeStruct) Bytes() []byte { return d.Data[:d.DataSize] }

func NewDheExchange(b []byte) DheExchangeStruct {
	var d DheExchangeStruct
	d.DataSize = uint16(len(b))
	copy(d.Data[:], b)
	return d
}

func (d DheExchangeStruct) Encode(w *Writer) {
	w.Raw(d.Data[:d.DataSize])
}

func DecodeDheExchange(r *Reader, size int) (DheExchangeStruct, error) {
	b, err := r.Bytes(size)
	if err != nil {
		return DheExchangeStruct{}, err
	}
	return NewDheExchange(b), nil
}

type RandomStruct struct {
	Data [spdmconst.RandomSize]byte
}

func (r RandomStruct) Encode(w *Writer) { w.Raw(r.Data[:]) }

func DecodeRandom(r *Reader) (RandomStruct, error) {
	b, err := r.Bytes(spdmconst.RandomSize)
	if err != nil {
		return RandomStruct{}, err
	}
	var out RandomStruct
	copy(out.Data[:], b)
	return out, nil
}

// OpaqueStruct is an opaque, length-prefixed vendor/version-selection blob
// carried by several handshake messages.
type OpaqueStruct struct {
	DataSize uint16
	Data     [spdmconst.OpaqueDataMax]byte
}

func (o OpaqueStruct) Bytes() []byte { return o.Data[:o.DataSize] }

func NewOpaque(b []byte) OpaqueStruct {
	var o OpaqueStruct
	o.DataSize = uint16(len(b))
	copy(o.Data[:], b)
	return o
}

func (o OpaqueStruct) Encode(w *Writer) {
	w.U16(o.DataSize)
	w.Raw(o.Data[:o.DataSize])
}

func DecodeOpaque(r *Reader) (OpaqueStruct, error) {
	n, err := r.U16()
	if err != nil {
		return OpaqueStruct{}, err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return OpaqueStruct{}, err
	}
	return NewOpaque(b), nil
}

// MeasurementBlock is one DMTF-format measurement entry.
//
// Invariant: MeasurementSize == len(Value) + 3; this is enforced at encode
// time and checked at decode time (testable property: record length).
type MeasurementBlock struct {
	Index                 uint8
	MeasurementSpec       uint8
	Representation        uint8 // top bit of the DMTF type/representation byte
	MeasurementType       uint8 // low 7 bits
	Value                 []byte
}

func (b MeasurementBlock) measurementSize() uint16 {
	return uint16(len(b.Value) + 3)
}

func (b MeasurementBlock) Encode(w *Writer) {
	w.U8(b.Index)
	w.U8(b.MeasurementSpec)
	ms := b.measurementSize()
	w.U16(ms)
	typeRep := (b.Representation & 0x80) | (b.MeasurementType & 0x7f)
	w.U8(typeRep)
	w.U16(uint16(len(b.Value)))
	w.Raw(b.Value)
}

func DecodeMeasurementBlock(r *Reader) (MeasurementBlock, error) {
	var b MeasurementBlock
	var err error
	if b.Index, err = r.U8(); err != nil {
		return b, err
	}
	if b.MeasurementSpec, err = r.U8(); err != nil {
		return b, err
	}
	measurementSize, err := r.U16()
	if err != nil {
		return b, err
	}
	typeRep, err := r.U8()
	if err != nil {
		return b, err
	}
	b.Representation = typeRep & 0x80
	b.MeasurementType = typeRep & 0x7f
	valueSize, err := r.U16()
	if err != nil {
		return b, err
	}
	if int(measurementSize) != int(valueSize)+3 {
		return b, spdmerrInvalidMeasurement()
	}
	val, err := r.Bytes(int(valueSize))
	if err != nil {
		return b, err
	}
	b.Value = append([]byte(nil), val...)
	return b, nil
}

// MeasurementRecord is a count-prefixed, 24-bit-length-prefixed list of
// blocks. The 24-bit length must equal the sum of (measurement_size+4)
// across blocks; decode rejects any frame where that equality fails.
type MeasurementRecord struct {
	Blocks []MeasurementBlock
}

func (rec MeasurementRecord) recordLength() uint32 {
	var total uint32
	for _, b := range rec.Blocks {
		total += uint32(b.measurementSize()) + 4
	}
	return total
}

func (rec MeasurementRecord) Encode(w *Writer) {
	w.U8(uint8(len(rec.Blocks)))
	w.U24(rec.recordLength())
	for _, b := range rec.Blocks {
		b.Encode(w)
	}
}

func DecodeMeasurementRecord(r *Reader) (MeasurementRecord, error) {
	count, err := r.U8()
	if err != nil {
		return MeasurementRecord{}, err
	}
	length, err := r.U24()
	if err != nil {
		return MeasurementRecord{}, err
	}
	start := r.Used()
	rec := MeasurementRecord{Blocks: make([]MeasurementBlock, 0, count)}
	for i := 0; i < int(count); i++ {
		b, err := DecodeMeasurementBlock(r)
		if err != nil {
			return MeasurementRecord{}, err
		}
		rec.Blocks = append(rec.Blocks, b)
	}
	if uint32(r.Used()-start) != length {
		return MeasurementRecord{}, spdmerrInvalidMeasurement()
	}
	return rec, nil
}

// CertChain is {length, reserved, root_hash, cert_chain_der}.
type CertChain struct {
	RootHash DigestStruct
	CertsDer []byte
}

func (c CertChain) Encode(w *Writer) {
	length := uint16(4 + int(c.RootHash.DataSize) + len(c.CertsDer))
	w.U16(length)
	w.U16(0) // reserved
	c.RootHash.Encode(w)
	w.Raw(c.CertsDer)
}

func DecodeCertChain(r *Reader, hashSize int) (CertChain, error) {
	length, err := r.U16()
	if err != nil {
		return CertChain{}, err
	}
	if _, err := r.U16(); err != nil { // reserved
		return CertChain{}, err
	}
	rootHash, err := DecodeDigest(r, hashSize)
	if err != nil {
		return CertChain{}, err
	}
	derLen := int(length) - 4 - hashSize
	if derLen < 0 {
		return CertChain{}, spdmerrInvalidMeasurement()
	}
	der, err := r.Bytes(derLen)
	if err != nil {
		return CertChain{}, err
	}
	return CertChain{RootHash: rootHash, CertsDer: append([]byte(nil), der...)}, nil
}
