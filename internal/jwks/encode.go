package jwks

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	certificateBlock  = "CERTIFICATE"
	rsaPublicKeyBlock = "RSA PUBLIC KEY"

	// pemLineLength is the column at which PEM bodies are folded.
	pemLineLength = 64
)

// ASN.1 universal tags used by PKCS#1 RSAPublicKey.
const (
	tagInteger  = 0x02
	tagSequence = 0x30
)

var errEmptyCertificate = errors.New("certificate is empty")

var urlToStd = strings.NewReplacer("-", "+", "_", "/")

// CertificateToPEM frames a base64 DER certificate as a PEM CERTIFICATE block.
// The input is not decoded or validated, only folded and wrapped.
func CertificateToPEM(cert string) string {
	return wrapPEM(certificateBlock, cert)
}

// RSAPublicKeyToPEM builds a PEM "RSA PUBLIC KEY" block (PKCS#1) from the
// base64 modulus and exponent of a JWK.
func RSAPublicKeyToPEM(modulusB64, exponentB64 string) (string, error) {
	der, err := RSAPublicKeyDER(modulusB64, exponentB64)
	if err != nil {
		return "", err
	}
	return wrapPEM(rsaPublicKeyBlock, base64.StdEncoding.EncodeToString(der)), nil
}

// RSAPublicKeyDER returns the DER encoding of
//
//	RSAPublicKey ::= SEQUENCE { modulus INTEGER, publicExponent INTEGER }
//
// for the given base64 modulus and exponent. The decoded bytes are used as
// unsigned big-endian magnitudes and kept as-is, including any leading zeros.
func RSAPublicKeyDER(modulusB64, exponentB64 string) ([]byte, error) {
	modulus, err := decodeBase64(modulusB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	exponent, err := decodeBase64(exponentB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	return marshalRSAPublicKey(modulus, exponent), nil
}

func marshalRSAPublicKey(modulus, exponent []byte) []byte {
	body := appendInteger(nil, modulus)
	body = appendInteger(body, exponent)

	length := encodeLength(len(body))
	der := make([]byte, 0, 1+len(length)+len(body))
	der = append(der, tagSequence)
	der = append(der, length...)
	return append(der, body...)
}

// appendInteger appends a DER INTEGER holding the unsigned magnitude b.
func appendInteger(dst, b []byte) []byte {
	value := prepadSigned(b)
	dst = append(dst, tagInteger)
	dst = append(dst, encodeLength(len(value))...)
	return append(dst, value...)
}

// prepadSigned prefixes a zero byte when the leading byte would read as a
// negative two's-complement value.
func prepadSigned(b []byte) []byte {
	if len(b) == 0 || b[0] < 0x80 {
		return b
	}
	padded := make([]byte, len(b)+1)
	copy(padded[1:], b)
	return padded
}

// encodeLength returns the DER definite-length encoding of n: a single byte
// up to 127, otherwise 0x80|count followed by count big-endian bytes.
func encodeLength(n int) []byte {
	if n <= 127 {
		return []byte{byte(n)}
	}
	var digits []byte
	for v := n; v > 0; v >>= 8 {
		digits = append([]byte{byte(v)}, digits...)
	}
	return append([]byte{0x80 | byte(len(digits))}, digits...)
}

// decodeBase64 accepts both the standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = urlToStd.Replace(strings.TrimRight(s, "="))
	return base64.RawStdEncoding.DecodeString(s)
}

// wrapPEM folds body into 64-column lines between BEGIN/END markers.
func wrapPEM(blockType, body string) string {
	var b strings.Builder
	b.Grow(len(body) + len(body)/pemLineLength + 2*len(blockType) + 32)

	b.WriteString("-----BEGIN " + blockType + "-----\n")
	for len(body) > pemLineLength {
		b.WriteString(body[:pemLineLength])
		b.WriteByte('\n')
		body = body[pemLineLength:]
	}
	b.WriteString(body)
	b.WriteString("\n-----END " + blockType + "-----\n")
	return b.String()
}
