package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room to
// change the algorithm later.
const (
	DomainSpec     = "classkit/spec/v1"
	DomainSnapshot = "classkit/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash computes the content hash of a class spec. Two specs that
// differ only in object key order hash the same.
func SpecHash(spec ClassSpec) (string, error) {
	canonical, err := canonicalOf(spec)
	if err != nil {
		return "", fmt.Errorf("SpecHash: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// SnapshotDigest computes the content hash of an instance snapshot.
// The run id is excluded so identical constructions digest the same.
func SnapshotDigest(snap InstanceSnapshot) (string, error) {
	snap.RunID = ""
	canonical, err := canonicalOf(snap)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustSpecHash is like SpecHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSpecHash(spec ClassSpec) string {
	h, err := SpecHash(spec)
	if err != nil {
		panic(err)
	}
	return h
}

// canonicalOf routes a struct through its JSON tags into canonical JSON.
func canonicalOf(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	irv, err := UnmarshalIRValue(raw)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(irv)
}
