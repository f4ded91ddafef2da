package export

import (
	"errors"
	"testing"
)

func TestScanFindsPIIInStrings(t *testing.T) {
	s := NewScanner()

	tests := []struct {
		name    string
		value   interface{}
		pattern string
	}{
		{"cpf formatted", "529.982.247-25", "cpf"},
		{"cpf bare", "52998224725", "cpf"},
		{"email", "contact: ana@example.com", "email"},
		{"phone", "11 98765-4321", "phone"},
		{"titled name", "reviewed by Dr Silva", "titled_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Scan(tt.value, "payload")
			var v *Violation
			if !errors.As(err, &v) {
				t.Fatalf("Scan(%v) = %v, want *Violation", tt.value, err)
			}
			if v.Pattern != tt.pattern {
				t.Errorf("pattern = %q, want %q", v.Pattern, tt.pattern)
			}
			if v.Field != "payload" {
				t.Errorf("field = %q, want payload", v.Field)
			}
		})
	}
}

func TestScanReportsFieldPaths(t *testing.T) {
	s := NewScanner()

	t.Run("struct field", func(t *testing.T) {
		value := struct {
			Tier  string
			Notes string
		}{Tier: "high", Notes: "mail leak@example.com"}

		err := s.Scan(value, "payload")
		var v *Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Field != "payload.Notes" {
			t.Errorf("field = %q, want payload.Notes", v.Field)
		}
	})

	t.Run("slice index", func(t *testing.T) {
		value := struct {
			Codes []string
		}{Codes: []string{"A10", "B20", "x@y.org"}}

		err := s.Scan(value, "payload")
		var v *Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Field != "payload.Codes[2]" {
			t.Errorf("field = %q, want payload.Codes[2]", v.Field)
		}
	})

	t.Run("map key", func(t *testing.T) {
		value := map[string]interface{}{
			"contact": "11 98765-4321",
		}

		err := s.Scan(value, "payload")
		var v *Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Field != "payload.contact" {
			t.Errorf("field = %q, want payload.contact", v.Field)
		}
	})

	t.Run("nested struct", func(t *testing.T) {
		type inner struct{ Comment string }
		value := struct{ Meta inner }{Meta: inner{Comment: "ask Dr Souza"}}

		err := s.Scan(value, "payload")
		var v *Violation
		if !errors.As(err, &v) {
			t.Fatalf("expected violation, got %v", err)
		}
		if v.Field != "payload.Meta.Comment" {
			t.Errorf("field = %q, want payload.Meta.Comment", v.Field)
		}
	})
}

func TestScanCleanValues(t *testing.T) {
	s := NewScanner()

	tests := []struct {
		name  string
		value interface{}
	}{
		{"clean struct", struct {
			Tier  string
			Score float64
		}{Tier: "high", Score: 0.91}},
		{"anon token", "anon-1a2b3c4d-5e6f7a8b-m1xyz"},
		{"org hash", "org-deadbeef"},
		{"procedure codes", []string{"A10.9", "Z00.0"}},
		{"numbers ignored", map[string]int{"visits": 52998224725}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Scan(tt.value, "payload"); err != nil {
				t.Errorf("Scan(%v) = %v, want nil", tt.value, err)
			}
		})
	}
}

func TestScanDepthLimit(t *testing.T) {
	s := NewScanner()

	// Nest far past the cap; the scan must terminate and report it
	var value interface{} = "harmless"
	for i := 0; i < maxScanDepth+10; i++ {
		value = map[string]interface{}{"next": value}
	}

	err := s.Scan(value, "payload")
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected depth violation, got %v", err)
	}
	if v.Pattern != "max_depth_exceeded" {
		t.Errorf("pattern = %q, want max_depth_exceeded", v.Pattern)
	}
}

func TestScanUnexportedFieldsSkipped(t *testing.T) {
	s := NewScanner()

	value := struct {
		Tier   string
		hidden string
	}{Tier: "low", hidden: "leak@example.com"}

	// Unexported fields are unreachable via reflection and never serialized,
	// so they are not scanned
	if err := s.Scan(value, "payload"); err != nil {
		t.Errorf("Scan = %v, want nil", err)
	}
}
