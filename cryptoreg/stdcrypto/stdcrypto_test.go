package stdcrypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/spdmconst"
)

func TestHashAll(t *testing.T) {
	for _, algo := range []spdmconst.BaseHashAlgo{spdmconst.HashSha256, spdmconst.HashSha384, spdmconst.HashSha512} {
		digest, ok := cryptoreg.GetHash().HashAll(algo, []byte("attestation"))
		if !ok {
			t.Fatalf("HashAll(%v) reported unsupported", algo)
		}
		if len(digest) != algo.Size() {
			t.Errorf("HashAll(%v) digest size = %d, want %d", algo, len(digest), algo.Size())
		}
	}
}

func TestHmacComputeAndVerify(t *testing.T) {
	key := []byte("finished-key-material-32-bytes!")
	data := []byte("transcript hash")
	mac, ok := cryptoreg.GetHmac().HmacCompute(spdmconst.HashSha256, key, data)
	if !ok {
		t.Fatal("HmacCompute reported unsupported")
	}
	if !cryptoreg.GetHmac().HmacVerify(spdmconst.HashSha256, key, data, mac) {
		t.Fatal("HmacVerify rejected a valid MAC")
	}
	if cryptoreg.GetHmac().HmacVerify(spdmconst.HashSha256, key, data, append([]byte(nil), mac[:len(mac)-1]...)) {
		t.Fatal("HmacVerify accepted a truncated MAC")
	}
}

func TestHkdfExtractExpandDeterministic(t *testing.T) {
	salt := make([]byte, 32)
	ikm := []byte("dhe-shared-secret")
	prk1, ok := cryptoreg.GetHkdf().Extract(spdmconst.HashSha256, salt, ikm)
	if !ok {
		t.Fatal("Extract reported unsupported")
	}
	prk2, _ := cryptoreg.GetHkdf().Extract(spdmconst.HashSha256, salt, ikm)
	if !bytes.Equal(prk1, prk2) {
		t.Fatal("Extract is not deterministic for identical inputs")
	}
	out, ok := cryptoreg.GetHkdf().Expand(spdmconst.HashSha256, prk1, []byte("req hs data"), 32)
	if !ok || len(out) != 32 {
		t.Fatalf("Expand = (%v, %v), want 32 bytes", out, ok)
	}
}

func TestAeadRoundTrip(t *testing.T) {
	for _, algo := range []spdmconst.AeadAlgo{spdmconst.AeadAes128Gcm, spdmconst.AeadAes256Gcm, spdmconst.AeadChaCha20Poly1305} {
		key := make([]byte, algo.KeySize())
		iv := make([]byte, algo.IVSize())
		aad := []byte{1, 2, 3, 4}
		plaintext := []byte("secured application data")

		ct, tag, ok := cryptoreg.GetAead().Encrypt(algo, key, iv, aad, plaintext)
		if !ok {
			t.Fatalf("Encrypt(%v) reported unsupported", algo)
		}
		got, ok := cryptoreg.GetAead().Decrypt(algo, key, iv, aad, ct, tag)
		if !ok {
			t.Fatalf("Decrypt(%v) reported unsupported", algo)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("Decrypt(%v) = %q, want %q", algo, got, plaintext)
		}

		if _, ok := cryptoreg.GetAead().Decrypt(algo, key, iv, []byte{9, 9, 9, 9}, ct, tag); ok {
			t.Errorf("Decrypt(%v) accepted a tampered AAD", algo)
		}
	}
}

func TestDheGenerateKeyPairAndComputeFinalKey(t *testing.T) {
	for _, group := range []spdmconst.DheGroup{spdmconst.DheSecp256R1, spdmconst.DheSecp384R1} {
		aPub, aPriv, ok := cryptoreg.GetDhe().GenerateKeyPair(group)
		if !ok {
			t.Fatalf("GenerateKeyPair(%v) reported unsupported", group)
		}
		bPub, bPriv, ok := cryptoreg.GetDhe().GenerateKeyPair(group)
		if !ok {
			t.Fatalf("GenerateKeyPair(%v) reported unsupported", group)
		}
		aSecret, ok := aPriv.ComputeFinalKey(bPub)
		if !ok {
			t.Fatalf("ComputeFinalKey(%v) for A failed", group)
		}
		bSecret, ok := bPriv.ComputeFinalKey(aPub)
		if !ok {
			t.Fatalf("ComputeFinalKey(%v) for B failed", group)
		}
		if !bytes.Equal(aSecret, bSecret) {
			t.Errorf("shared secrets differ for group %v", group)
		}
	}
}

func TestDheFfdheUnsupported(t *testing.T) {
	if _, _, ok := cryptoreg.GetDhe().GenerateKeyPair(spdmconst.DheFfdhe2048); ok {
		t.Fatal("expected FFDHE group to be rejected by the standard-library backend")
	}
}

func selfSignedCert(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "spdm-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatal(err)
	}
	return der, priv
}

func TestAsymSignAndVerify(t *testing.T) {
	der, priv := selfSignedCert(t)
	data := []byte("transcript hash to sign")

	sig, ok := cryptoreg.GetAsymSign().Sign(spdmconst.HashSha256, spdmconst.AsymEcdsaP256, priv, data)
	if !ok {
		t.Fatal("Sign reported unsupported")
	}
	if !cryptoreg.GetAsymVerify().Verify(spdmconst.HashSha256, spdmconst.AsymEcdsaP256, der, data, sig) {
		t.Fatal("Verify rejected a valid signature")
	}
	if cryptoreg.GetAsymVerify().Verify(spdmconst.HashSha256, spdmconst.AsymEcdsaP256, der, []byte("different data"), sig) {
		t.Fatal("Verify accepted a signature over the wrong data")
	}
}

func TestCertOperationGetCertFromChainAndVerify(t *testing.T) {
	der, _ := selfSignedCert(t)
	offset, length, ok := cryptoreg.GetCertOperation().GetCertFromChain(der, 0)
	if !ok {
		t.Fatal("GetCertFromChain reported unsupported")
	}
	if offset != 0 || length != len(der) {
		t.Errorf("GetCertFromChain = (%d, %d), want (0, %d)", offset, length, len(der))
	}
	if !cryptoreg.GetCertOperation().VerifyCertChain(der) {
		t.Fatal("VerifyCertChain rejected a self-signed single-cert chain")
	}
}
