package jwks

import (
	"bytes"
	"encoding/json"

	jwkserrors "github.com/tendant/jwks-resolver/internal/errors"
)

// KeyMaterial is the encoded public key of a SigningKey: either a
// Certificate or an RSAPublicKey, never both.
type KeyMaterial interface {
	// PEM returns the PEM text of the key material.
	PEM() string
	field() string
}

// Certificate is a PEM CERTIFICATE block built from the first x5c entry.
type Certificate string

// PEM returns the certificate block.
func (c Certificate) PEM() string { return string(c) }

func (Certificate) field() string { return "publicKey" }

// RSAPublicKey is a PEM "RSA PUBLIC KEY" block built from n and e.
type RSAPublicKey string

// PEM returns the RSA public key block.
func (k RSAPublicKey) PEM() string { return string(k) }

func (RSAPublicKey) field() string { return "rsaPublicKey" }

// SigningKey is a resolved, encoded signing key.
type SigningKey struct {
	Kid       string
	NotBefore json.RawMessage
	Material  KeyMaterial
}

// PEM returns the encoded key material, or "" for a zero SigningKey.
func (k SigningKey) PEM() string {
	if k.Material == nil {
		return ""
	}
	return k.Material.PEM()
}

type keyView struct {
	Kid          string `json:"kid" yaml:"kid"`
	NotBefore    any    `json:"nbf,omitempty" yaml:"nbf,omitempty"`
	PublicKey    string `json:"publicKey,omitempty" yaml:"publicKey,omitempty"`
	RSAPublicKey string `json:"rsaPublicKey,omitempty" yaml:"rsaPublicKey,omitempty"`
}

func (k SigningKey) view(nbf any) keyView {
	v := keyView{Kid: k.Kid, NotBefore: nbf}
	switch m := k.Material.(type) {
	case Certificate:
		v.PublicKey = m.PEM()
	case RSAPublicKey:
		v.RSAPublicKey = m.PEM()
	}
	return v
}

// MarshalJSON encodes the key as {"kid","nbf","publicKey"|"rsaPublicKey"}.
// nbf is written exactly as published.
func (k SigningKey) MarshalJSON() ([]byte, error) {
	var nbf any
	if k.hasNotBefore() {
		nbf = k.NotBefore
	}
	return json.Marshal(k.view(nbf))
}

// MarshalYAML mirrors MarshalJSON. Numeric nbf values are rendered as plain
// numbers; anything else keeps its decoded JSON shape.
func (k SigningKey) MarshalYAML() (any, error) {
	var nbf any
	if k.hasNotBefore() {
		dec := json.NewDecoder(bytes.NewReader(k.NotBefore))
		dec.UseNumber()
		if err := dec.Decode(&nbf); err != nil {
			return nil, err
		}
		if n, ok := nbf.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				nbf = i
			} else if f, err := n.Float64(); err == nil {
				nbf = f
			}
		}
	}
	return k.view(nbf), nil
}

func (k SigningKey) hasNotBefore() bool {
	return len(k.NotBefore) > 0 && string(k.NotBefore) != "null"
}

// SigningKeys is an ordered set of resolved keys, in document order.
type SigningKeys []SigningKey

// FindByKid returns the first key whose kid equals kid. Duplicate kids are
// not an error; the earliest entry in the document wins.
func (s SigningKeys) FindByKid(kid string) (SigningKey, error) {
	for _, key := range s {
		if key.Kid == kid {
			return key, nil
		}
	}
	return SigningKey{}, jwkserrors.KeyNotFound(kid)
}

// Kids returns the key IDs in order.
func (s SigningKeys) Kids() []string {
	kids := make([]string, len(s))
	for i, key := range s {
		kids[i] = key.Kid
	}
	return kids
}

// Resolve selects the RSA signing keys from raw and encodes each one.
// Entries with a certificate chain are encoded from x5c[0]; the rest of the
// chain is ignored. Entries without x5c are encoded from n and e.
//
// It returns an empty_key_set error when raw is empty, no_signing_keys when
// nothing qualifies, and invalid_key when a qualifying entry cannot be
// encoded. There are no partial results.
func Resolve(raw []RawKey) (SigningKeys, error) {
	if len(raw) == 0 {
		return nil, jwkserrors.EmptyKeySet()
	}

	keys := make(SigningKeys, 0, len(raw))
	for _, rk := range raw {
		if !rk.IsSigningKey() {
			continue
		}
		key, err := resolveKey(rk)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, jwkserrors.NoSigningKeys()
	}
	return keys, nil
}

func resolveKey(rk RawKey) (SigningKey, error) {
	key := SigningKey{
		Kid:       rk.Kid,
		NotBefore: rk.Nbf,
	}

	if len(rk.X5c) > 0 {
		if rk.X5c[0] == "" {
			return SigningKey{}, jwkserrors.InvalidKey(rk.Kid, errEmptyCertificate)
		}
		key.Material = Certificate(CertificateToPEM(rk.X5c[0]))
		return key, nil
	}

	pem, err := RSAPublicKeyToPEM(rk.N, rk.E)
	if err != nil {
		return SigningKey{}, jwkserrors.InvalidKey(rk.Kid, err)
	}
	key.Material = RSAPublicKey(pem)
	return key, nil
}
