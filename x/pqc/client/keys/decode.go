package keys

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeKey parses a hex, standard base64, or base64url string into bytes.
func DecodeKey(input string) ([]byte, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("empty key")
	}

	if len(s)%2 == 0 {
		if bz, err := hex.DecodeString(s); err == nil {
			return bz, nil
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if bz, err := enc.DecodeString(s); err == nil {
			return bz, nil
		}
	}
	return nil, fmt.Errorf("failed to decode key: expected hex, base64 or base64url encoding")
}
