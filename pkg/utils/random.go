package utils

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewPurchaseKey generates a UUID string used as an order's purchase key
func NewPurchaseKey() string {
	return uuid.NewString()
}

// ShortHash returns the first n hex characters of the md5 digest of s.
// n larger than the digest returns the whole digest.
func ShortHash(s string, n int) string {
	sum := md5.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}
