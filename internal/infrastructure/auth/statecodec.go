// Package auth provides the signing and verification primitives for the
// OAuth install flow, plus the state store implementations built on them.
package auth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"boltstore/internal/domain/oauthstate"
)

// stateClaims is the signed payload carried by a state parameter: the
// original install-URL options, the issue time, and a random discriminator
// so two tokens issued in the same instant differ.
type stateClaims struct {
	InstallOptions oauthstate.InstallURLOptions `json:"installOptions"`
	Now            string                       `json:"now"`
	Random         int                          `json:"random"`
	jwt.RegisteredClaims
}

// StateCodec signs and verifies state parameters with an HMAC-SHA256
// shared secret. Expiry is not encoded in the token; stores compare the
// embedded issue time against the caller-supplied clock so verification
// stays deterministic under test.
type StateCodec struct {
	secret []byte
}

// NewStateCodec creates a StateCodec for the given shared secret.
func NewStateCodec(secret string) StateCodec {
	return StateCodec{secret: []byte(secret)}
}

// Sign builds and signs a state parameter issued at now.
func (c StateCodec) Sign(opts oauthstate.InstallURLOptions, now time.Time) (string, error) {
	claims := &stateClaims{
		InstallOptions: opts,
		Now:            now.UTC().Format(time.RFC3339),
		Random:         rand.IntN(1000000),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state parameter: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and returns the embedded install options
// and issue time. Tampered or malformed input fails.
func (c StateCodec) Parse(state string) (oauthstate.InstallURLOptions, time.Time, error) {
	var claims stateClaims
	token, err := jwt.ParseWithClaims(state, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return oauthstate.InstallURLOptions{}, time.Time{}, fmt.Errorf("failed to parse state parameter: %w", err)
	}
	if !token.Valid {
		return oauthstate.InstallURLOptions{}, time.Time{}, fmt.Errorf("invalid state parameter")
	}
	issuedAt, err := time.Parse(time.RFC3339, claims.Now)
	if err != nil {
		return oauthstate.InstallURLOptions{}, time.Time{}, fmt.Errorf("failed to parse state issue time: %w", err)
	}
	return claims.InstallOptions, issuedAt, nil
}

// Elapsed returns the whole seconds between the token's issue time and the
// caller's clock.
func Elapsed(issuedAt, now time.Time) int {
	return int(now.Sub(issuedAt) / time.Second)
}
