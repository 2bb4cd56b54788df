package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainValue   = "traitsmith/value/v1"
	DomainEncoded = "traitsmith/encoded/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed ID of a value over its
// canonical JSON. Cell identities do not contribute, only the graph shape,
// so a value and its decoded copy share a fingerprint.
func Fingerprint(typeName string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	data := make([]byte, 0, len(typeName)+1+len(canonical))
	data = append(data, typeName...)
	data = append(data, 0x00)
	data = append(data, canonical...)
	return hashWithDomain(DomainValue, data), nil
}

// EncodedID computes the ID of a wire encoding of a value of typeName.
func EncodedID(typeName string, encoded []byte) string {
	data := make([]byte, 0, len(typeName)+1+len(encoded))
	data = append(data, typeName...)
	data = append(data, 0x00)
	data = append(data, encoded...)
	return hashWithDomain(DomainEncoded, data)
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(typeName string, v Value) string {
	id, err := Fingerprint(typeName, v)
	if err != nil {
		panic(err)
	}
	return id
}
