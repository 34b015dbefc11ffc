package core

import (
	"encoding/base64"
	"strings"
)

// stripDataURI drops a "data:<type>;base64," prefix, splitting on the first
// comma. Payloads without a comma are returned trimmed.
func stripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if _, payload, ok := strings.Cut(s, ","); ok {
		return strings.TrimSpace(payload)
	}
	return s
}

// decodeBase64 decodes a payload with or without a data-URI prefix. The
// padded alphabet is tried first, then the unpadded one. It returns the
// bare payload alongside the bytes.
func decodeBase64(s string) (payload string, data []byte, err error) {
	payload = stripDataURI(s)
	data, err = base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return payload, data, nil
	}
	data, rawErr := base64.RawStdEncoding.DecodeString(payload)
	if rawErr == nil {
		return payload, data, nil
	}
	return payload, nil, err
}
