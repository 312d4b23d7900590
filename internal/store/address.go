package store

import "strings"

// NormalizeAddress canonicalizes an owner address. EVM addresses are stored
// lowercase with a 0x prefix; Solana addresses are base58 and case-sensitive,
// so they are only trimmed.
func NormalizeAddress(addr string) string {
	s := strings.TrimSpace(addr)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strings.ToLower(s)
	}
	if isHex(s) && len(s) == 40 {
		return "0x" + strings.ToLower(s)
	}
	return s
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return len(s) > 0
}
