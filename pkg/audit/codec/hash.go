package codec

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether data hashes to expected (exact match).
func VerifyChecksum(data []byte, expected string) bool {
	return Checksum(data) == expected
}

// ChecksumAll returns the hex-encoded SHA-256 digest of the concatenation
// of parts, without materializing the concatenation.
func ChecksumAll(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
