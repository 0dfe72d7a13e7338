package rooms

import (
	"crypto/rand"
	"fmt"
)

// Room codes are read aloud and typed by hand, so the alphabet leaves out
// 0, O, 1, I and L.
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 9

// maxByte is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are redrawn so every character is equally likely.
const maxByte = 256 - 256%len(alphabet)

// GenerateCode returns a random room ID of codeLength characters from the
// unambiguous alphabet. Uniqueness is checked by the Store, not here.
func GenerateCode() (string, error) {
	code := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(code) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == codeLength {
				break
			}
		}
	}
	return string(code), nil
}
