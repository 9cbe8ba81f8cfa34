package message

import "encoding/hex"

// MustHex decodes a compiled-in payload template such as "020000802201D971"
func MustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
