// Package jwks resolves JSON Web Key Set documents into PEM-encoded RSA
// signing keys addressable by key ID.
package jwks

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	// KeyTypeRSA is the only supported JWK key type.
	KeyTypeRSA = "RSA"
	// KeyUseSignature marks keys intended for signature verification.
	KeyUseSignature = "sig"
)

// Document represents a JSON Web Key Set.
type Document struct {
	Keys []RawKey `json:"keys"`
}

// RawKey represents one entry of a JWKS key array, as published.
type RawKey struct {
	Kty string          `json:"kty"`           // Key type: "RSA"
	Use string          `json:"use,omitempty"` // Key use: "sig"
	Kid string          `json:"kid,omitempty"` // Key ID
	Alg string          `json:"alg,omitempty"` // Algorithm, informational only
	X5c []string        `json:"x5c,omitempty"` // Certificate chain (base64 DER)
	N   string          `json:"n,omitempty"`   // RSA modulus (base64url)
	E   string          `json:"e,omitempty"`   // RSA exponent (base64url)
	Nbf json.RawMessage `json:"nbf,omitempty"` // Not before, passed through untouched
}

// IsSigningKey reports whether the entry is an RSA signing key with usable material.
func (k RawKey) IsSigningKey() bool {
	return k.Use == KeyUseSignature &&
		k.Kty == KeyTypeRSA &&
		k.Kid != "" &&
		(len(k.X5c) > 0 || (k.N != "" && k.E != ""))
}

// UnmarshalJSON decodes each entry of the keys array independently. An entry
// whose fields do not have the published types decodes to a zero RawKey,
// which never qualifies, so it cannot fail the rest of the set.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Keys = nil
	if raw.Keys == nil {
		return nil
	}

	d.Keys = make([]RawKey, len(raw.Keys))
	for i, entry := range raw.Keys {
		if err := json.Unmarshal(entry, &d.Keys[i]); err != nil {
			d.Keys[i] = RawKey{}
		}
	}
	return nil
}

// DecodeDocument parses a JWKS document from r.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return &doc, nil
}
