package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// MD5Hash returns the hex MD5 digest of input. Used for cache keys only.
func MD5Hash(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}
