package export

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// TokenStrategy maps internal identifiers to enterprise-safe labels. Both
// methods must be deterministic for the lifetime of the strategy and
// non-invertible without server-side secrets.
type TokenStrategy interface {
	// PatientToken derives the pseudonym for a patient within an org.
	// The national ID is preferred key material when present so that a
	// patient keeps one token across registrations.
	PatientToken(patientID, nationalID, orgID string) string
	// OrgHash derives a stable one-way label for an organization
	OrgHash(orgID string) string
}

// tokenSuffix is the base36 strategy-instance tag shared by every token the
// strategy emits. Capturing it at construction keeps tokens deterministic
// within a process while separating token namespaces across deployments.
func tokenSuffix() string {
	return strconv.FormatInt(time.Now().Unix(), 36)
}

func keyMaterial(patientID, nationalID string) string {
	if nationalID != "" {
		return nationalID
	}
	return patientID
}

// RollingHashStrategy is the legacy pseudonymizer: two rounds of a 31-based
// multiplicative rolling hash. Kept for parity with existing token stores.
// The hash is trivially brute-forceable over a national ID space, so new
// deployments should use HMACStrategy.
type RollingHashStrategy struct {
	suffix string
}

// NewRollingHashStrategy creates the legacy rolling-hash strategy
func NewRollingHashStrategy() *RollingHashStrategy {
	return &RollingHashStrategy{suffix: tokenSuffix()}
}

func rollingHash(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h
}

// PatientToken implements TokenStrategy
func (s *RollingHashStrategy) PatientToken(patientID, nationalID, orgID string) string {
	key := keyMaterial(patientID, nationalID)
	h1 := rollingHash(key + "|" + orgID)
	h2 := rollingHash(orgID + "|" + key)
	return fmt.Sprintf("anon-%08x-%08x-%s", h1, h2, s.suffix)
}

// OrgHash implements TokenStrategy
func (s *RollingHashStrategy) OrgHash(orgID string) string {
	return fmt.Sprintf("org-%08x", rollingHash(orgID))
}

// HMACStrategy derives tokens with HMAC-SHA256 under a server-side pepper.
// Without the pepper the mapping cannot be reversed or re-derived.
type HMACStrategy struct {
	pepper []byte
	suffix string
}

// NewHMACStrategy creates the keyed strategy. The pepper must be at least
// 16 bytes and must come from secret storage, never from the repo.
func NewHMACStrategy(pepper []byte) (*HMACStrategy, error) {
	if len(pepper) < 16 {
		return nil, fmt.Errorf("pseudonym pepper too short: %d bytes, need at least 16", len(pepper))
	}
	return &HMACStrategy{pepper: pepper, suffix: tokenSuffix()}, nil
}

func (s *HMACStrategy) mac(parts ...string) []byte {
	m := hmac.New(sha256.New, s.pepper)
	for _, p := range parts {
		m.Write([]byte(p))
		m.Write([]byte{0})
	}
	return m.Sum(nil)
}

// PatientToken implements TokenStrategy
func (s *HMACStrategy) PatientToken(patientID, nationalID, orgID string) string {
	sum := s.mac("patient", keyMaterial(patientID, nationalID), orgID)
	h1 := binary.BigEndian.Uint32(sum[0:4])
	h2 := binary.BigEndian.Uint32(sum[4:8])
	return fmt.Sprintf("anon-%08x-%08x-%s", h1, h2, s.suffix)
}

// OrgHash implements TokenStrategy
func (s *HMACStrategy) OrgHash(orgID string) string {
	sum := s.mac("org", orgID)
	return fmt.Sprintf("org-%08x", binary.BigEndian.Uint32(sum[0:4]))
}
