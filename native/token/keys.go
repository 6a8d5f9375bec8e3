package token

import "encoding/hex"

var (
	balancePrefix   = []byte("token/balance/")
	allowancePrefix = []byte("token/allowance/")
)

func balanceKey(token, holder [20]byte) []byte {
	suffix := hex.EncodeToString(token[:]) + "/" + hex.EncodeToString(holder[:])
	buf := make([]byte, len(balancePrefix)+len(suffix))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], suffix)
	return buf
}

func allowanceKey(token, owner, spender [20]byte) []byte {
	suffix := hex.EncodeToString(token[:]) + "/" + hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(spender[:])
	buf := make([]byte, len(allowancePrefix)+len(suffix))
	copy(buf, allowancePrefix)
	copy(buf[len(allowancePrefix):], suffix)
	return buf
}
