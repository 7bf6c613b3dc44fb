package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashEqual compares two digests in constant time.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ETag is a strong entity tag for body. Only the first 128 bits of the
// digest are kept.
func ETag(body []byte) string {
	return `"` + SHA256Hex(body)[:32] + `"`
}

// MatchETag reports whether an If-None-Match header value matches etag.
// Comparison is weak: W/ prefixes are ignored on both sides.
func MatchETag(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" || etag == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(header, ",") {
		cand = strings.TrimPrefix(strings.TrimSpace(cand), "W/")
		if cand != "" && HashEqual(cand, want) {
			return true
		}
	}
	return false
}
