package portpro

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature validates the X-PortPro-Signature header against the raw
// request body. The header format is "sha256=<hex-hmac>"; any other algorithm
// name, a missing header, an empty secret, malformed hex, or a non-matching
// digest all yield false. Comparison is constant time.
func VerifySignature(signatureHeader string, body []byte, secret string) bool {
	if signatureHeader == "" || secret == "" {
		return false
	}

	alg, hexDigest, found := strings.Cut(signatureHeader, "=")
	if !found || alg != "sha256" {
		return false
	}

	got, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}
