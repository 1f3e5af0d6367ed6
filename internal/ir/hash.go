package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSnapshot is the domain prefix for snapshot fingerprints.
// Version suffix enables future algorithm migration.
const DomainSnapshot = "statebox/snapshot/v1"

// FingerprintLen is the length of a fingerprint in hex characters.
const FingerprintLen = 16

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// Fingerprint computes the content identity of a snapshot.
//
// The result depends only on content: two values that are Equal always
// share a fingerprint, regardless of object identity or frozen state.
// It is the first 8 bytes of the domain-separated SHA-256 of the canonical
// JSON, hex encoded (16 characters).
func Fingerprint(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	sum := hashWithDomain(DomainSnapshot, canonical)
	return hex.EncodeToString(sum[:FingerprintLen/2]), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(v Value) string {
	id, err := Fingerprint(v)
	if err != nil {
		panic(err)
	}
	return id
}
