package main

import (
	"crypto/x509"
	"fmt"
)

// parsePrivateKey accepts either PKCS#8 or the older PKCS#1/SEC1 DER
// encodings, since operators provision keys from a mix of tools.
func parsePrivateKey(der []byte) (any, error) {
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	return nil, fmt.Errorf("unrecognized private key encoding")
}
