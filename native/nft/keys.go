package nft

import (
	"encoding/hex"
	"math/big"
)

var (
	ownerPrefix    = []byte("nft/owner/")
	approvalPrefix = []byte("nft/approval/")
	operatorPrefix = []byte("nft/operator/")
)

func tokenSuffix(collection [20]byte, tokenID *big.Int) string {
	return hex.EncodeToString(collection[:]) + "/" + tokenID.String()
}

func ownerKey(collection [20]byte, tokenID *big.Int) []byte {
	return append(append([]byte(nil), ownerPrefix...), tokenSuffix(collection, tokenID)...)
}

func approvalKey(collection [20]byte, tokenID *big.Int) []byte {
	return append(append([]byte(nil), approvalPrefix...), tokenSuffix(collection, tokenID)...)
}

func operatorKey(collection, owner, operator [20]byte) []byte {
	suffix := hex.EncodeToString(collection[:]) + "/" + hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(operator[:])
	return append(append([]byte(nil), operatorPrefix...), suffix...)
}
