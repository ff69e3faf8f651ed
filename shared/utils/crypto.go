package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Charset excludes ambiguous characters: 0, O, I, 1
const ConfirmationCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PasswordCharset is the alphabet of generated passwords: letters and digits
// without the look-alikes 0/O, 1/l/I.
const PasswordCharset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRandomString generates a cryptographically secure random string
// using the provided charset and length
func GenerateRandomString(length int, charset string) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

func GenerateConfirmationCode(length int) (string, error) {
	return GenerateRandomString(length, ConfirmationCodeCharset)
}

// Hasher produces deterministic keyed digests for codes that must be looked
// up or compared later (reset codes, invite codes).
type Hasher struct {
	pepper []byte
}

func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: []byte(pepper)}
}

// Hash normalizes input (trim, lower case) so codes are case-insensitive.
// Used for reset codes, which people type in from an email.
func (h *Hasher) Hash(input string) string {
	return h.HashExact(strings.ToLower(strings.TrimSpace(input)))
}

// HashExact digests input as is; only the identical string matches.
func (h *Hasher) HashExact(input string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
