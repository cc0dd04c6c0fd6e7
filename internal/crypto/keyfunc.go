// Package crypto adapts resolved signing keys for JWT verification.
package crypto

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tendant/jwks-resolver/internal/jwks"
)

// KeyLookup returns the signing key registered under kid.
type KeyLookup interface {
	GetSigningKey(ctx context.Context, kid string) (jwks.SigningKey, error)
}

type staticLookup jwks.SigningKeys

// StaticLookup serves lookups from an already resolved key set.
func StaticLookup(keys jwks.SigningKeys) KeyLookup {
	return staticLookup(keys)
}

func (s staticLookup) GetSigningKey(_ context.Context, kid string) (jwks.SigningKey, error) {
	return jwks.SigningKeys(s).FindByKid(kid)
}

// PublicKey parses the RSA public key carried by a resolved signing key.
// Both CERTIFICATE and RSA PUBLIC KEY blocks are accepted.
func PublicKey(key jwks.SigningKey) (*rsa.PublicKey, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(key.PEM()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key %s: %w", key.Kid, err)
	}
	return pub, nil
}

// Keyfunc returns a jwt.Keyfunc that selects the verification key by the
// token's kid header. Only RSA signing methods are accepted.
func Keyfunc(ctx context.Context, lookup KeyLookup) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("missing key ID in token header")
		}

		key, err := lookup.GetSigningKey(ctx, kid)
		if err != nil {
			return nil, err
		}
		return PublicKey(key)
	}
}
