package state

import (
	"encoding/hex"
	"strconv"
)

var (
	pairPrefix    = []byte("trading/pair/")
	pairCountKey  = []byte("trading/pairs/count")
	accountPrefix = []byte("account/")
)

func pairKey(id uint64) []byte {
	suffix := strconv.FormatUint(id, 10)
	buf := make([]byte, len(pairPrefix)+len(suffix))
	copy(buf, pairPrefix)
	copy(buf[len(pairPrefix):], suffix)
	return buf
}

func accountKey(addr [20]byte) []byte {
	suffix := hex.EncodeToString(addr[:])
	buf := make([]byte, len(accountPrefix)+len(suffix))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], suffix)
	return buf
}
