package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes of its input. Passwords are reduced
// to a fixed 44 byte digest first so every byte of the password counts.
var prehashKey = []byte("go-auth/bcrypt/v1")

func prehashPassword(password string) []byte {
	mac := hmac.New(sha256.New, prehashKey)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}

func hashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyInput
	}

	h, err := bcrypt.GenerateFromPassword(prehashPassword(password), cost)
	if err != nil {
		return "", newKindError(ErrInvalidConfig, err, map[string]any{"reason": "bcrypt_generate"})
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), prehashPassword(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedCredential
		}
		return newKindError(ErrDecode, err, nil)
	}
	return nil
}
