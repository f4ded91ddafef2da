package pipeline

import (
	"testing"
	"time"

	"github.com/carebridge/phi-sentinel/internal/export"
	"github.com/carebridge/phi-sentinel/internal/logger"
)

func newTestPipeline(t *testing.T, cfg *Config) *Pipeline {
	t.Helper()
	strategy, err := export.NewHMACStrategy([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewHMACStrategy failed: %v", err)
	}
	exporter := export.NewExporter(strategy, logger.Nop())
	return NewPipeline(exporter, nil, nil, cfg, logger.Nop())
}

func TestDetectFileFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     FileFormat
	}{
		{"records.csv", FormatCSV},
		{"records.parquet", FormatParquet},
		{"records.json", FormatJSON},
		{"records.jsonl", FormatJSON},
		{"records.txt", FormatCSV},
		{"records", FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectFileFormat(tt.filename); got != tt.want {
				t.Errorf("DetectFileFormat(%q) = %s, want %s", tt.filename, got, tt.want)
			}
		})
	}
}

func TestParseCSVRecord(t *testing.T) {
	row := []string{
		"patient-1", "529.982.247-25", "0.82", "high",
		"0.9", "0.7", "0.8", "0.6", "0.5",
		"0.95", "2026-08-01T12:00:00Z", "A10.9;Z00.0", "0.77",
		"org-acme",
	}

	record, err := parseCSVRecord(row)
	if err != nil {
		t.Fatalf("parseCSVRecord failed: %v", err)
	}

	if record.PatientID != "patient-1" {
		t.Errorf("patient id = %q", record.PatientID)
	}
	if record.RiskScore != 0.82 {
		t.Errorf("risk score = %f", record.RiskScore)
	}
	if len(record.ProcedureCodes) != 2 || record.ProcedureCodes[0] != "A10.9" || record.ProcedureCodes[1] != "Z00.0" {
		t.Errorf("procedure codes = %v", record.ProcedureCodes)
	}

	t.Run("invalid float", func(t *testing.T) {
		bad := make([]string, len(row))
		copy(bad, row)
		bad[2] = "not-a-number"
		if _, err := parseCSVRecord(bad); err == nil {
			t.Fatal("expected error for invalid risk_score")
		}
	})

	t.Run("empty procedure codes", func(t *testing.T) {
		bare := make([]string, len(row))
		copy(bare, row)
		bare[11] = ""
		record, err := parseCSVRecord(bare)
		if err != nil {
			t.Fatalf("parseCSVRecord failed: %v", err)
		}
		if len(record.ProcedureCodes) != 0 {
			t.Errorf("procedure codes = %v, want empty", record.ProcedureCodes)
		}
	})
}

func TestExportRecordToInput(t *testing.T) {
	record := &ExportRecord{
		PatientID:      " patient-1 ",
		NationalID:     "529.982.247-25",
		RiskScore:      0.82,
		RiskTier:       "high",
		Clinical:       0.9,
		Confidence:     0.95,
		ComputedAt:     "2026-08-01T12:00:00Z",
		ProcedureCodes: []string{"A10.9"},
		ComplianceRate: 0.77,
		OrganizationID: "org-acme",
	}

	input := record.ToInput()

	if input.PatientID != "patient-1" {
		t.Errorf("patient id = %q, want trimmed", input.PatientID)
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if !input.Risk.ComputedAt.Equal(want) {
		t.Errorf("computed at = %v, want %v", input.Risk.ComputedAt, want)
	}
	if input.Risk.Domains.Clinical != 0.9 {
		t.Errorf("clinical = %f", input.Risk.Domains.Clinical)
	}

	t.Run("bad timestamp falls back to zero", func(t *testing.T) {
		record := &ExportRecord{ComputedAt: "yesterday"}
		if !record.ToInput().Risk.ComputedAt.IsZero() {
			t.Error("expected zero time for unparseable computed_at")
		}
	})
}

func TestValidateRecord(t *testing.T) {
	p := newTestPipeline(t, &Config{BatchSize: 10, ValidateData: true})

	valid := &ExportRecord{PatientID: "p1", OrganizationID: "org", RiskScore: 0.5}
	if !p.validateRecord(valid) {
		t.Error("valid record rejected")
	}

	tests := []struct {
		name   string
		record *ExportRecord
	}{
		{"empty patient id", &ExportRecord{OrganizationID: "org", RiskScore: 0.5}},
		{"empty org id", &ExportRecord{PatientID: "p1", RiskScore: 0.5}},
		{"score above range", &ExportRecord{PatientID: "p1", OrganizationID: "org", RiskScore: 1.5}},
		{"score below range", &ExportRecord{PatientID: "p1", OrganizationID: "org", RiskScore: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p.validateRecord(tt.record) {
				t.Error("invalid record accepted")
			}
		})
	}

	t.Run("validation disabled", func(t *testing.T) {
		p := newTestPipeline(t, &Config{BatchSize: 10, ValidateData: false})
		if !p.validateRecord(&ExportRecord{}) {
			t.Error("record rejected with validation disabled")
		}
	})
}
