package cryptoreg

import "github.com/dmtf/spdm-core/spdmconst"

// Hash computes digests for the negotiated base hash algorithm.
type Hash interface {
	HashAll(algo spdmconst.BaseHashAlgo, data []byte) ([]byte, bool)
}

// Hmac computes and verifies message authentication codes.
type Hmac interface {
	HmacCompute(algo spdmconst.BaseHashAlgo, key, data []byte) ([]byte, bool)
	HmacVerify(algo spdmconst.BaseHashAlgo, key, data, mac []byte) bool
}

// Hkdf expands/extracts key material per RFC 5869.
type Hkdf interface {
	Extract(algo spdmconst.BaseHashAlgo, salt, ikm []byte) ([]byte, bool)
	Expand(algo spdmconst.BaseHashAlgo, prk, info []byte, outSize int) ([]byte, bool)
}

// Aead seals and opens session records.
type Aead interface {
	Encrypt(algo spdmconst.AeadAlgo, key, iv, aad, plaintext []byte) (ciphertext, tag []byte, ok bool)
	Decrypt(algo spdmconst.AeadAlgo, key, iv, aad, ciphertext, tag []byte) (plaintext []byte, ok bool)
}

// AsymSign produces signatures over a transcript hash.
type AsymSign interface {
	Sign(hashAlgo spdmconst.BaseHashAlgo, asymAlgo spdmconst.BaseAsymAlgo, privKey any, data []byte) ([]byte, bool)
}

// AsymVerify checks a signature against a leaf certificate's public key.
type AsymVerify interface {
	Verify(hashAlgo spdmconst.BaseHashAlgo, asymAlgo spdmconst.BaseAsymAlgo, leafCertDer, data, signature []byte) bool
}

// DhePrivate exposes the one-shot final-key computation for a generated
// key pair; compute_final_key must be usable exactly once.
type DhePrivate interface {
	ComputeFinalKey(peerPublic []byte) ([]byte, bool)
}

// Dhe generates ephemeral key pairs for the negotiated group.
type Dhe interface {
	GenerateKeyPair(algo spdmconst.DheGroup) (publicExchange []byte, priv DhePrivate, ok bool)
}

// CertOperation parses and verifies a DER certificate chain.
type CertOperation interface {
	GetCertFromChain(chain []byte, index int) (offset, length int, ok bool)
	VerifyCertChain(chain []byte) bool
}
