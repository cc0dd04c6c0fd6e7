package crypto

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	jwkserrors "github.com/tendant/jwks-resolver/internal/errors"
	"github.com/tendant/jwks-resolver/internal/jwks"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return key
}

// toRawKey publishes the public half of key as a modulus/exponent JWK.
func toRawKey(kid string, key *rsa.PrivateKey) jwks.RawKey {
	return jwks.RawKey{
		Kty: jwks.KeyTypeRSA,
		Use: jwks.KeyUseSignature,
		Kid: kid,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

func selfSignedCert(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "jwks-resolver test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	})
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestPublicKeyFromRSAMaterial(t *testing.T) {
	key := generateKey(t)

	keys, err := jwks.Resolve([]jwks.RawKey{toRawKey("rsa", key)})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	pub, err := PublicKey(keys[0])
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}
	if !pub.Equal(&key.PublicKey) {
		t.Error("Parsed key should equal the original public key")
	}
}

func TestPublicKeyFromCertificate(t *testing.T) {
	key := generateKey(t)
	raw := jwks.RawKey{Kty: "RSA", Use: "sig", Kid: "cert", X5c: []string{selfSignedCert(t, key)}}

	keys, err := jwks.Resolve([]jwks.RawKey{raw})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	pub, err := PublicKey(keys[0])
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}
	if !pub.Equal(&key.PublicKey) {
		t.Error("Certificate key should equal the original public key")
	}
}

func TestPublicKeyInvalid(t *testing.T) {
	if _, err := PublicKey(jwks.SigningKey{Kid: "empty"}); err == nil {
		t.Error("Expected error for key without material")
	}
}

func TestKeyfunc(t *testing.T) {
	key1 := generateKey(t)
	key2 := generateKey(t)

	keys, err := jwks.Resolve([]jwks.RawKey{
		toRawKey("key-1", key1),
		{Kty: "RSA", Use: "sig", Kid: "key-2", X5c: []string{selfSignedCert(t, key2)}},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	keyfunc := Keyfunc(context.Background(), StaticLookup(keys))

	for _, tc := range []struct {
		kid string
		key *rsa.PrivateKey
	}{{"key-1", key1}, {"key-2", key2}} {
		token, err := jwt.Parse(signToken(t, tc.key, tc.kid), keyfunc)
		if err != nil {
			t.Fatalf("Parse with %s failed: %v", tc.kid, err)
		}
		if !token.Valid {
			t.Errorf("Token signed with %s should be valid", tc.kid)
		}
	}

	// Signed by key2 but claiming key-1.
	if _, err := jwt.Parse(signToken(t, key2, "key-1"), keyfunc); err == nil {
		t.Error("Expected signature failure for mismatched kid")
	}
}

func TestKeyfuncUnknownKid(t *testing.T) {
	key := generateKey(t)
	keys, err := jwks.Resolve([]jwks.RawKey{toRawKey("known", key)})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	_, err = jwt.Parse(signToken(t, key, "unknown"), Keyfunc(context.Background(), StaticLookup(keys)))
	if !jwkserrors.IsCode(err, jwkserrors.CodeKeyNotFound) {
		t.Errorf("Expected key_not_found, got %v", err)
	}
}

func TestKeyfuncRejectsTokens(t *testing.T) {
	key := generateKey(t)
	keys, err := jwks.Resolve([]jwks.RawKey{toRawKey("known", key)})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	keyfunc := Keyfunc(context.Background(), StaticLookup(keys))

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("Failed to sign HMAC token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"hmac method", hmac},
		{"missing kid", signToken(t, key, "")},
		{"garbage", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := jwt.Parse(tt.token, keyfunc); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
