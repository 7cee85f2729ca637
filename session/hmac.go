package session

import (
	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/spdmconst"
)

func hmacCompute(algo spdmconst.BaseHashAlgo, key, data []byte) ([]byte, bool) {
	return cryptoreg.GetHmac().HmacCompute(algo, key, data)
}
