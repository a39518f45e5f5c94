// Package refcode generates member referral codes of the NAME-XXXXXX shape:
// an uppercased prefix derived from the member's name plus six random
// characters from an unambiguous alphabet.
package refcode

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

// alphabet omits 0/O and 1/I to keep codes readable over the phone.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const suffixLen = 6

const maxPrefixLen = 12

// Generate returns a fresh code such as "JOHN-7KQ2MF". The caller is
// responsible for uniqueness (insert under a unique index and retry on
// collision).
func Generate(name string) (string, error) {
	b := make([]byte, suffixLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	suffix := make([]byte, suffixLen)
	for i, v := range b {
		suffix[i] = alphabet[int(v)%len(alphabet)]
	}
	return fmt.Sprintf("%s-%s", prefix(name), suffix), nil
}

// prefix reduces a display name to an uppercase alphanumeric token,
// falling back to "REF" when nothing usable remains.
func prefix(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToUpper(r))
		}
		if sb.Len() >= maxPrefixLen {
			break
		}
	}
	if sb.Len() == 0 {
		return "REF"
	}
	return sb.String()
}
