package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyHMAC validates a hex signature using HMAC-SHA256.
func VerifyHMAC(body []byte, signature, secret string) bool {
	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(computeHMAC(body, secret), sigBytes)
}

// SignHMAC returns the hex HMAC-SHA256 of body.
func SignHMAC(body []byte, secret string) string {
	return hex.EncodeToString(computeHMAC(body, secret))
}

func computeHMAC(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// parseSignatureHeader splits headers shaped like "t=123,v1=abc,v1=def" into their parts
func parseSignatureHeader(header string) map[string][]string {
	parts := make(map[string][]string)
	for _, item := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		parts[key] = append(parts[key], strings.TrimSpace(value))
	}
	return parts
}
