package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// randomTokenBytes gives 256 bits for operator session and CSRF tokens.
const randomTokenBytes = 32

// RandomToken returns a hex encoded token suitable for a cookie value.
func RandomToken() (string, error) {
	b := make([]byte, randomTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SessionTokenHash is what gets stored for an operator session token. Keying
// it with the session secret means a leaked sessions table cannot be replayed
// against a server with a different secret.
func SessionTokenHash(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// KeyFingerprint identifies a presented controller key in audit logs without
// revealing it.
func KeyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

// SecretsEqual compares a presented secret with the configured one in
// constant time.
func SecretsEqual(presented, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// PasswordMatches checks the operator password against its bcrypt hash.
func PasswordMatches(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// MaskCode keeps the first symbol of a locker code for log lines.
func MaskCode(code string) string {
	if code == "" {
		return ""
	}
	return code[:1] + "***"
}
