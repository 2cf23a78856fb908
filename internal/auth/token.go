package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// TokenBytes is the amount of randomness in a generated token. Hex encoding
// keeps the plaintext under bcrypt's 72-byte input limit.
const TokenBytes = 32

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenTooLong = errors.New("token exceeds maximum length of 72 bytes")
)

// GenerateToken creates a random API token. It returns the plaintext (to show
// once) and the bcrypt hash to configure as AUTH_TOKEN_HASH.
func GenerateToken(cost int) (plaintext string, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(buf)
	hash, err = HashToken(plaintext, cost)
	if err != nil {
		return "", "", err
	}
	return plaintext, hash, nil
}

// HashToken creates a bcrypt hash of the token. A zero cost means
// bcrypt.DefaultCost.
func HashToken(token string, cost int) (string, error) {
	if len(token) > 72 {
		return "", ErrTokenTooLong
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckToken compares a token with its hash.
func CheckToken(token, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}
