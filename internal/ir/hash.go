package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// The version suffix lets the digest algorithm change without colliding
// with entries written by an older build.
const (
	DomainSource  = "puresh/source/v1"
	DomainConfig  = "puresh/config/v1"
	DomainProgram = "puresh/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash digests raw tree-document bytes. The bytes are hashed as given,
// without normalization, so any edit to the input changes the key.
func SourceHash(source []byte) string {
	return hashWithDomain(DomainSource, source)
}

// ConfigHash digests a configuration description (see compiler.Config.Describe).
func ConfigHash(desc map[string]any) (string, error) {
	canonical, err := MarshalCanonical(desc)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// ProgramDigest digests a program, including the effect annotations of
// every node. Two programs with equal digests emit identical scripts.
func ProgramDigest(p *Program) (string, error) {
	canonical, err := MarshalCanonical(Describe(p))
	if err != nil {
		return "", fmt.Errorf("ProgramDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustProgramDigest is like ProgramDigest but panics on error.
// Use only in tests or when the program is known to be well formed.
func MustProgramDigest(p *Program) string {
	d, err := ProgramDigest(p)
	if err != nil {
		panic(err)
	}
	return d
}
