package export

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carebridge/phi-sentinel/internal/logger"
)

func testInput(patientID string) PatientExportInput {
	return PatientExportInput{
		PatientID:  patientID,
		NationalID: "529.982.247-25",
		Risk: RiskResult{
			Composite: 0.82,
			Tier:      "high",
			Domains: DomainBreakdown{
				Clinical:    0.9,
				Medication:  0.7,
				Utilization: 0.8,
				Adherence:   0.6,
				Social:      0.5,
			},
			Confidence: 0.95,
			ComputedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		ProcedureCodes: []string{"A10.9", "Z00.0"},
		ComplianceRate: 0.77,
		OrganizationID: "org-acme-health",
	}
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	strategy, err := NewHMACStrategy([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewHMACStrategy failed: %v", err)
	}
	return NewExporter(strategy, logger.Nop())
}

func TestExportForEnterpriseWhitelist(t *testing.T) {
	e := newTestExporter(t)
	input := testInput("internal-patient-42")

	payload, err := e.ExportForEnterprise(input)
	if err != nil {
		t.Fatalf("ExportForEnterprise failed: %v", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	serialized := string(data)

	if strings.Contains(serialized, input.PatientID) {
		t.Error("payload contains the internal patient id")
	}
	if strings.Contains(serialized, input.NationalID) {
		t.Error("payload contains the national id")
	}
	if strings.Contains(serialized, input.OrganizationID) {
		t.Error("payload contains the raw organization id")
	}

	if !strings.HasPrefix(payload.PatientToken, "anon-") {
		t.Errorf("patient token %q missing anon- prefix", payload.PatientToken)
	}
	if !strings.HasPrefix(payload.OrgHash, "org-") {
		t.Errorf("org hash %q missing org- prefix", payload.OrgHash)
	}
	if payload.RiskScore != input.Risk.Composite {
		t.Errorf("risk score = %f, want %f", payload.RiskScore, input.Risk.Composite)
	}
	if payload.RiskTier != "high" {
		t.Errorf("risk tier = %q, want high", payload.RiskTier)
	}
	if payload.ExportedAt.IsZero() {
		t.Error("exported_at not set")
	}
}

func TestExportForEnterpriseScanRejectsLeaks(t *testing.T) {
	e := newTestExporter(t)

	// A leak smuggled through a whitelisted field must still be caught
	input := testInput("internal-patient-42")
	input.ProcedureCodes = []string{"A10.9", "leak@example.com"}

	payload, err := e.ExportForEnterprise(input)
	if payload != nil {
		t.Fatal("expected nil payload on violation")
	}

	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected *Violation, got %v", err)
	}
	if v.Field != "payload.ProcedureCodes[1]" {
		t.Errorf("field = %q, want payload.ProcedureCodes[1]", v.Field)
	}
	if v.Pattern != "email" {
		t.Errorf("pattern = %q, want email", v.Pattern)
	}
}

func TestExportForEnterpriseMissingIdentifiers(t *testing.T) {
	e := newTestExporter(t)

	t.Run("missing patient id", func(t *testing.T) {
		input := testInput("")
		if _, err := e.ExportForEnterprise(input); err == nil {
			t.Fatal("expected error for empty patient id")
		}
	})

	t.Run("missing org id", func(t *testing.T) {
		input := testInput("internal-patient-42")
		input.OrganizationID = ""
		if _, err := e.ExportForEnterprise(input); err == nil {
			t.Fatal("expected error for empty organization id")
		}
	})
}

func TestExportTokensAreDeterministic(t *testing.T) {
	e := newTestExporter(t)

	a, err := e.ExportForEnterprise(testInput("internal-patient-42"))
	if err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	b, err := e.ExportForEnterprise(testInput("internal-patient-42"))
	if err != nil {
		t.Fatalf("second export failed: %v", err)
	}

	if a.PatientToken != b.PatientToken {
		t.Errorf("same patient mapped to %q and %q", a.PatientToken, b.PatientToken)
	}
	if a.OrgHash != b.OrgHash {
		t.Errorf("same org mapped to %q and %q", a.OrgHash, b.OrgHash)
	}
}

func TestBatchExportIsolatesFailures(t *testing.T) {
	e := newTestExporter(t)

	bad := testInput("internal-patient-2")
	bad.ProcedureCodes = []string{"leak@example.com"}

	inputs := []PatientExportInput{
		testInput("internal-patient-1"),
		bad,
		testInput("internal-patient-3"),
	}

	result := e.BatchExportForEnterprise(inputs)

	if len(result.Successful) != 2 {
		t.Fatalf("successful = %d, want 2", len(result.Successful))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(result.Failed))
	}

	failed := result.Failed[0]
	if failed.PatientID != "internal-patient-2" {
		t.Errorf("failed patient id = %q, want internal-patient-2", failed.PatientID)
	}
	if failed.Pattern != "email" {
		t.Errorf("failed pattern = %q, want email", failed.Pattern)
	}
	if failed.Field != "payload.ProcedureCodes[0]" {
		t.Errorf("failed field = %q, want payload.ProcedureCodes[0]", failed.Field)
	}

	// Successful payloads never carry internal identifiers
	for _, payload := range result.Successful {
		if strings.Contains(payload.PatientToken, "internal-patient") {
			t.Errorf("token %q leaks the internal id", payload.PatientToken)
		}
	}
}

func TestBatchExportEmptyInput(t *testing.T) {
	e := newTestExporter(t)

	result := e.BatchExportForEnterprise(nil)
	if len(result.Successful) != 0 || len(result.Failed) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
