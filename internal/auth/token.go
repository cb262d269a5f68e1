package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// FriendlyTokenLength is the length of GeneratePassword's output.
const FriendlyTokenLength = 20

// ambiguous characters are swapped out so a token can be read aloud.
var friendlyReplacer = strings.NewReplacer("l", "s", "I", "x", "O", "y", "0", "z")

// FriendlyToken returns n random URL-safe characters with the easily
// confused l, I, O and 0 replaced.
func FriendlyToken(n int) (string, error) {
	buf := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: reading random bytes: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return friendlyReplacer.Replace(token)[:n], nil
}

// GeneratePassword returns a random password for accounts that never
// chose one, such as OAuth sign-ups. accept is called on each candidate;
// generation repeats until it returns true so the result always passes
// the caller's password policy.
func GeneratePassword(accept func(string) bool) (string, error) {
	const maxAttempts = 64
	for range maxAttempts {
		token, err := FriendlyToken(FriendlyTokenLength)
		if err != nil {
			return "", err
		}
		if accept == nil || accept(token) {
			return token, nil
		}
	}
	return "", fmt.Errorf("auth: no acceptable password after %d attempts", maxAttempts)
}
