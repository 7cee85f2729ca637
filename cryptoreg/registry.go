// Package cryptoreg is the process-wide, once-initialized table of
// capability providers for hash/HMAC/HKDF/AEAD/asym-sign/asym-verify/DHE/
// cert operations. Modeled directly on the write-once OnceCell registry in
// the reference implementation this protocol was distilled from: the first
// successful Register* call wins, subsequent calls return false without
// side effect, and reads after first use are lock-free.
package cryptoreg

import (
	"sync"
	"sync/atomic"
)

// cell is a write-once slot. register reports whether this call installed
// the value; get lazily installs def on first access if nothing was ever
// registered, matching the reference's try_get_or_init(|| DEFAULT).
type cell[T any] struct {
	once sync.Once
	val  atomic.Pointer[T]
}

func (c *cell[T]) register(v T) bool {
	installed := false
	c.once.Do(func() {
		c.val.Store(&v)
		installed = true
	})
	return installed
}

func (c *cell[T]) get(def func() T) T {
	c.once.Do(func() {
		v := def()
		c.val.Store(&v)
	})
	return *c.val.Load()
}

var (
	hashCell        cell[Hash]
	hmacCell        cell[Hmac]
	hkdfCell        cell[Hkdf]
	aeadCell        cell[Aead]
	asymSignCell    cell[AsymSign]
	asymVerifyCell  cell[AsymVerify]
	dheCell         cell[Dhe]
	certOpCell      cell[CertOperation]
)

// RegisterHash installs the process-wide Hash provider. Returns false if a
// provider (default or explicit) was already installed.
func RegisterHash(h Hash) bool { return hashCell.register(h) }

func GetHash() Hash {
	return hashCell.get(func() Hash { return unimplementedHash{} })
}

func RegisterHmac(h Hmac) bool { return hmacCell.register(h) }

func GetHmac() Hmac {
	return hmacCell.get(func() Hmac { return unimplementedHmac{} })
}

func RegisterHkdf(h Hkdf) bool { return hkdfCell.register(h) }

func GetHkdf() Hkdf {
	return hkdfCell.get(func() Hkdf { return unimplementedHkdf{} })
}

func RegisterAead(a Aead) bool { return aeadCell.register(a) }

func GetAead() Aead {
	return aeadCell.get(func() Aead { return unimplementedAead{} })
}

func RegisterAsymSign(a AsymSign) bool { return asymSignCell.register(a) }

func GetAsymSign() AsymSign {
	return asymSignCell.get(func() AsymSign { return unimplementedAsymSign{} })
}

func RegisterAsymVerify(a AsymVerify) bool { return asymVerifyCell.register(a) }

func GetAsymVerify() AsymVerify {
	return asymVerifyCell.get(func() AsymVerify { return unimplementedAsymVerify{} })
}

func RegisterDhe(d Dhe) bool { return dheCell.register(d) }

func GetDhe() Dhe {
	return dheCell.get(func() Dhe { return unimplementedDhe{} })
}

func RegisterCertOperation(c CertOperation) bool { return certOpCell.register(c) }

func GetCertOperation() CertOperation {
	return certOpCell.get(func() CertOperation { return unimplementedCertOperation{} })
}
