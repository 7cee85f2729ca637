package cryptoreg

import "github.com/dmtf/spdm-core/spdmconst"

// These panic the moment a capability is used without a backend registered.
// Loud failure during development is the point: a silently absent provider
// would otherwise surface as an inexplicable handshake failure much later.

type unimplementedHash struct{}

func (unimplementedHash) HashAll(spdmconst.BaseHashAlgo, []byte) ([]byte, bool) {
	panic("cryptoreg: no Hash provider registered")
}

type unimplementedHmac struct{}

func (unimplementedHmac) HmacCompute(spdmconst.BaseHashAlgo, []byte, []byte) ([]byte, bool) {
	panic("cryptoreg: no Hmac provider registered")
}
func (unimplementedHmac) HmacVerify(spdmconst.BaseHashAlgo, []byte, []byte, []byte) bool {
	panic("cryptoreg: no Hmac provider registered")
}

type unimplementedHkdf struct{}

func (unimplementedHkdf) Extract(spdmconst.BaseHashAlgo, []byte, []byte) ([]byte, bool) {
	panic("cryptoreg: no Hkdf provider registered")
}
func (unimplementedHkdf) Expand(spdmconst.BaseHashAlgo, []byte, []byte, int) ([]byte, bool) {
	panic("cryptoreg: no Hkdf provider registered")
}

type unimplementedAead struct{}

func (unimplementedAead) Encrypt(spdmconst.AeadAlgo, []byte, []byte, []byte, []byte) ([]byte, []byte, bool) {
	panic("cryptoreg: no Aead provider registered")
}
func (unimplementedAead) Decrypt(spdmconst.AeadAlgo, []byte, []byte, []byte, []byte, []byte) ([]byte, bool) {
	panic("cryptoreg: no Aead provider registered")
}

type unimplementedAsymSign struct{}

func (unimplementedAsymSign) Sign(spdmconst.BaseHashAlgo, spdmconst.BaseAsymAlgo, any, []byte) ([]byte, bool) {
	panic("cryptoreg: no AsymSign provider registered")
}

type unimplementedAsymVerify struct{}

func (unimplementedAsymVerify) Verify(spdmconst.BaseHashAlgo, spdmconst.BaseAsymAlgo, []byte, []byte, []byte) bool {
	panic("cryptoreg: no AsymVerify provider registered")
}

type unimplementedDhe struct{}

func (unimplementedDhe) GenerateKeyPair(spdmconst.DheGroup) ([]byte, DhePrivate, bool) {
	panic("cryptoreg: no Dhe provider registered")
}

type unimplementedCertOperation struct{}

func (unimplementedCertOperation) GetCertFromChain([]byte, int) (int, int, bool) {
	panic("cryptoreg: no CertOperation provider registered")
}
func (unimplementedCertOperation) VerifyCertChain([]byte) bool {
	panic("cryptoreg: no CertOperation provider registered")
}
