// Package stdcrypto is the default cryptoreg backend. Importing it for its
// init() side effect registers every capability with a real implementation,
// mirroring the reference stack's spdm-ring build-time feature. FFDHE
// groups are accepted on the wire (see spdmconst.DheGroup) but rejected here
// at GenerateKeyPair time: no maintained Go FFDHE implementation exists in
// this codebase's dependency set, so only the SECP256R1/384R1/521R1 (ECDH)
// groups actually produce key material.
package stdcrypto

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"hash"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/spdmconst"
)

func init() {
	cryptoreg.RegisterHash(hashProvider{})
	cryptoreg.RegisterHmac(hmacProvider{})
	cryptoreg.RegisterHkdf(hkdfProvider{})
	cryptoreg.RegisterAead(aeadProvider{})
	cryptoreg.RegisterAsymSign(asymSignProvider{})
	cryptoreg.RegisterAsymVerify(asymVerifyProvider{})
	cryptoreg.RegisterDhe(dheProvider{})
	cryptoreg.RegisterCertOperation(certOpProvider{})
}

func newHash(algo spdmconst.BaseHashAlgo) (func() hash.Hash, bool) {
	switch algo {
	case spdmconst.HashSha256:
		return sha256.New, true
	case spdmconst.HashSha384:
		return sha512.New384, true
	case spdmconst.HashSha512:
		return sha512.New, true
	default:
		return nil, false
	}
}

type hashProvider struct{}

func (hashProvider) HashAll(algo spdmconst.BaseHashAlgo, data []byte) ([]byte, bool) {
	newH, ok := newHash(algo)
	if !ok {
		return nil, false
	}
	h := newH()
	h.Write(data)
	return h.Sum(nil), true
}

type hmacProvider struct{}

func (hmacProvider) HmacCompute(algo spdmconst.BaseHashAlgo, key, data []byte) ([]byte, bool) {
	newH, ok := newHash(algo)
	if !ok {
		return nil, false
	}
	mac := hmac.New(newH, key)
	mac.Write(data)
	return mac.Sum(nil), true
}

func (p hmacProvider) HmacVerify(algo spdmconst.BaseHashAlgo, key, data, mac []byte) bool {
	expected, ok := p.HmacCompute(algo, key, data)
	if !ok {
		return false
	}
	return hmac.Equal(expected, mac)
}

type hkdfProvider struct{}

func (hkdfProvider) Extract(algo spdmconst.BaseHashAlgo, salt, ikm []byte) ([]byte, bool) {
	newH, ok := newHash(algo)
	if !ok {
		return nil, false
	}
	return hkdf.Extract(newH, ikm, salt), true
}

func (hkdfProvider) Expand(algo spdmconst.BaseHashAlgo, prk, info []byte, outSize int) ([]byte, bool) {
	newH, ok := newHash(algo)
	if !ok {
		return nil, false
	}
	r := hkdf.Expand(newH, prk, info)
	out := make([]byte, outSize)
	if _, err := r.Read(out); err != nil {
		return nil, false
	}
	return out, true
}

type aeadProvider struct{}

func newAead(algo spdmconst.AeadAlgo, key []byte) (cipher.AEAD, bool) {
	switch algo {
	case spdmconst.AeadAes128Gcm, spdmconst.AeadAes256Gcm:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, false
		}
		a, err := cipher.NewGCM(block)
		if err != nil {
			return nil, false
		}
		return a, true
	case spdmconst.AeadChaCha20Poly1305:
		a, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, false
		}
		return a, true
	default:
		return nil, false
	}
}

func (aeadProvider) Encrypt(algo spdmconst.AeadAlgo, key, iv, aad, plaintext []byte) ([]byte, []byte, bool) {
	a, ok := newAead(algo, key)
	if !ok {
		return nil, nil, false
	}
	sealed := a.Seal(nil, iv, plaintext, aad)
	tagSize := a.Overhead()
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]
	return ct, tag, true
}

func (aeadProvider) Decrypt(algo spdmconst.AeadAlgo, key, iv, aad, ciphertext, tag []byte) ([]byte, bool) {
	a, ok := newAead(algo, key)
	if !ok {
		return nil, false
	}
	combined := append(append([]byte(nil), ciphertext...), tag...)
	pt, err := a.Open(nil, iv, combined, aad)
	if err != nil {
		return nil, false
	}
	return pt, true
}

type asymSignProvider struct{}

func (asymSignProvider) Sign(hashAlgo spdmconst.BaseHashAlgo, asymAlgo spdmconst.BaseAsymAlgo, privKey any, data []byte) ([]byte, bool) {
	newH, ok := newHash(hashAlgo)
	if !ok {
		return nil, false
	}
	h := newH()
	h.Write(data)
	digest := h.Sum(nil)

	switch key := privKey.(type) {
	case *ecdsa.PrivateKey:
		sig, err := ecdsa.SignASN1(rand.Reader, key, digest)
		if err != nil {
			return nil, false
		}
		return sig, true
	case *rsa.PrivateKey:
		cryptoHash, ok := rsaHash(hashAlgo)
		if !ok {
			return nil, false
		}
		sig, err := rsa.SignPSS(rand.Reader, key, cryptoHash, digest, nil)
		if err != nil {
			return nil, false
		}
		return sig, true
	default:
		_ = asymAlgo
		return nil, false
	}
}

type asymVerifyProvider struct{}

func (asymVerifyProvider) Verify(hashAlgo spdmconst.BaseHashAlgo, asymAlgo spdmconst.BaseAsymAlgo, leafCertDer, data, signature []byte) bool {
	cert, err := x509.ParseCertificate(leafCertDer)
	if err != nil {
		return false
	}
	newH, ok := newHash(hashAlgo)
	if !ok {
		return false
	}
	h := newH()
	h.Write(data)
	digest := h.Sum(nil)

	switch pub := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(pub, digest, signature)
	case *rsa.PublicKey:
		cryptoHash, ok := rsaHash(hashAlgo)
		if !ok {
			return false
		}
		return rsa.VerifyPSS(pub, cryptoHash, digest, signature, nil) == nil
	default:
		_ = asymAlgo
		return false
	}
}

type dhePrivate struct {
	curve ecdh.Curve
	key   *ecdh.PrivateKey
}

func (d dhePrivate) ComputeFinalKey(peerPublic []byte) ([]byte, bool) {
	peer, err := d.curve.NewPublicKey(peerPublic)
	if err != nil {
		return nil, false
	}
	secret, err := d.key.ECDH(peer)
	if err != nil {
		return nil, false
	}
	return secret, true
}

type dheProvider struct{}

func ecdhCurve(algo spdmconst.DheGroup) (ecdh.Curve, bool) {
	switch algo {
	case spdmconst.DheSecp256R1:
		return ecdh.P256(), true
	case spdmconst.DheSecp384R1:
		return ecdh.P384(), true
	case spdmconst.DheSecp521R1:
		return ecdh.P521(), true
	default:
		return nil, false
	}
}

func (dheProvider) GenerateKeyPair(algo spdmconst.DheGroup) ([]byte, cryptoreg.DhePrivate, bool) {
	curve, ok := ecdhCurve(algo)
	if !ok {
		return nil, nil, false // FFDHE groups: unsupported, see package doc
	}
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, false
	}
	return priv.PublicKey().Bytes(), dhePrivate{curve: curve, key: priv}, true
}

type certOpProvider struct{}

func (certOpProvider) GetCertFromChain(chain []byte, index int) (int, int, bool) {
	certs, err := x509.ParseCertificates(chain)
	if err != nil || len(certs) == 0 {
		return 0, 0, false
	}
	if index < 0 {
		index = len(certs) + index
	}
	if index < 0 || index >= len(certs) {
		return 0, 0, false
	}
	offset := 0
	for i := 0; i < index; i++ {
		offset += len(certs[i].Raw)
	}
	return offset, len(certs[index].Raw), true
}

func (certOpProvider) VerifyCertChain(chain []byte) bool {
	certs, err := x509.ParseCertificates(chain)
	if err != nil || len(certs) == 0 {
		return false
	}
	for i := 0; i+1 < len(certs); i++ {
		if err := certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
			return false
		}
	}
	return true
}

func rsaHash(algo spdmconst.BaseHashAlgo) (crypto.Hash, bool) {
	switch algo {
	case spdmconst.HashSha256:
		return crypto.SHA256, true
	case spdmconst.HashSha384:
		return crypto.SHA384, true
	case spdmconst.HashSha512:
		return crypto.SHA512, true
	default:
		return 0, false
	}
}
