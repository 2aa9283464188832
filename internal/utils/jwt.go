// Package utils issues access and refresh tokens and hashes passwords.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string    // serialized JWT
	Exp   time.Time // UTC expiry
}

// RefreshToken is an opaque random token handed to the client.  Only its
// SHA-256 hash is stored.
type RefreshToken struct {
	Raw string    // returned to the client once
	Exp time.Time // UTC expiry
}

// NewAccessToken signs an HS256 JWT for a user.  Besides sub, exp and iat
// it carries the username (name), the user's groups (groups) and the
// superuser flag (su), so permission checks need no database round trip.
// Group changes take effect at the next refresh.
func NewAccessToken(secret string, userID uint64, username string, groups []string, superuser bool, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	if groups == nil {
		groups = []string{}
	}
	claims := jwt.MapClaims{
		"sub":    strconv.FormatUint(userID, 10), // RFC 7519: a string
		"name":   username,
		"groups": groups,
		"su":     superuser,
		"exp":    exp.Unix(),
		"iat":    now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken returns 48 random bytes hex encoded, valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: hex.EncodeToString(buf),
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token, the form
// kept in refresh_tokens.token_hash.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
