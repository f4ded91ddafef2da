package export

import (
	"regexp"
	"testing"
)

var tokenFormat = regexp.MustCompile(`^anon-[0-9a-f]{8}-[0-9a-f]{8}-[0-9a-z]+$`)

func TestRollingHashStrategy(t *testing.T) {
	s := NewRollingHashStrategy()

	t.Run("deterministic within a process", func(t *testing.T) {
		a := s.PatientToken("patient-1", "", "org-1")
		b := s.PatientToken("patient-1", "", "org-1")
		if a != b {
			t.Errorf("same inputs produced %q and %q", a, b)
		}
	})

	t.Run("token format", func(t *testing.T) {
		token := s.PatientToken("patient-1", "", "org-1")
		if !tokenFormat.MatchString(token) {
			t.Errorf("token %q does not match expected format", token)
		}
	})

	t.Run("different patients differ", func(t *testing.T) {
		if s.PatientToken("patient-1", "", "org-1") == s.PatientToken("patient-2", "", "org-1") {
			t.Error("different patients produced the same token")
		}
	})

	t.Run("different orgs differ", func(t *testing.T) {
		if s.PatientToken("patient-1", "", "org-1") == s.PatientToken("patient-1", "", "org-2") {
			t.Error("different orgs produced the same token")
		}
	})

	t.Run("national id is preferred key material", func(t *testing.T) {
		a := s.PatientToken("patient-1", "52998224725", "org-1")
		b := s.PatientToken("patient-2", "52998224725", "org-1")
		if a != b {
			t.Error("same national id produced different tokens across registrations")
		}
	})

	t.Run("org hash", func(t *testing.T) {
		h := s.OrgHash("org-1")
		if h != s.OrgHash("org-1") {
			t.Error("org hash not deterministic")
		}
		if h == s.OrgHash("org-2") {
			t.Error("different orgs produced the same hash")
		}
		if !regexp.MustCompile(`^org-[0-9a-f]{8}$`).MatchString(h) {
			t.Errorf("org hash %q has unexpected format", h)
		}
	})
}

func TestHMACStrategy(t *testing.T) {
	pepper := []byte("0123456789abcdef0123456789abcdef")

	t.Run("short pepper rejected", func(t *testing.T) {
		if _, err := NewHMACStrategy([]byte("short")); err == nil {
			t.Fatal("expected error for short pepper")
		}
	})

	t.Run("deterministic within a process", func(t *testing.T) {
		s, err := NewHMACStrategy(pepper)
		if err != nil {
			t.Fatalf("NewHMACStrategy failed: %v", err)
		}
		a := s.PatientToken("patient-1", "", "org-1")
		if a != s.PatientToken("patient-1", "", "org-1") {
			t.Error("same inputs produced different tokens")
		}
		if !tokenFormat.MatchString(a) {
			t.Errorf("token %q does not match expected format", a)
		}
	})

	t.Run("pepper changes the mapping", func(t *testing.T) {
		s1, err := NewHMACStrategy(pepper)
		if err != nil {
			t.Fatalf("NewHMACStrategy failed: %v", err)
		}
		s2, err := NewHMACStrategy([]byte("ffffffffffffffffffffffffffffffff"))
		if err != nil {
			t.Fatalf("NewHMACStrategy failed: %v", err)
		}
		// Compare hash portions only; the suffix is per-instance
		a := s1.PatientToken("patient-1", "", "org-1")
		b := s2.PatientToken("patient-1", "", "org-1")
		if a[:23] == b[:23] {
			t.Error("different peppers produced the same token hashes")
		}
	})

	t.Run("strategies disagree", func(t *testing.T) {
		rolling := NewRollingHashStrategy()
		hmac, err := NewHMACStrategy(pepper)
		if err != nil {
			t.Fatalf("NewHMACStrategy failed: %v", err)
		}
		a := rolling.PatientToken("patient-1", "", "org-1")
		b := hmac.PatientToken("patient-1", "", "org-1")
		if a[:23] == b[:23] {
			t.Error("rolling and hmac strategies produced identical token hashes")
		}
	})
}
