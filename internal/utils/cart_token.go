package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

func base64UrlEncode(input []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(input), "=")
}

func base64UrlDecode(input string) ([]byte, error) {
	padded := input
	if m := len(input) % 4; m != 0 {
		padded += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(padded)
}

func signCartPayload(secret, payloadB64 string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("cart:" + payloadB64))
	return mac.Sum(nil)
}

// CreateCartToken signs a cart id so that only the browser that created the
// cart can read, edit or subscribe to it.
func CreateCartToken(secret, cartID string) string {
	payloadB64 := base64UrlEncode([]byte(cartID))
	return payloadB64 + "." + base64UrlEncode(signCartPayload(secret, payloadB64))
}

func VerifyCartToken(secret, token, cartID string) bool {
	payloadB64, sigB64, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || payloadB64 == "" || cartID == "" {
		return false
	}

	actual, err := base64UrlDecode(sigB64)
	if err != nil {
		return false
	}
	if !hmac.Equal(actual, signCartPayload(secret, payloadB64)) {
		return false
	}

	payloadRaw, err := base64UrlDecode(payloadB64)
	if err != nil {
		return false
	}
	return string(payloadRaw) == cartID
}
