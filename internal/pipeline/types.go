package pipeline

import (
	"strings"
	"time"

	"github.com/carebridge/phi-sentinel/internal/export"
)

// ExportRecord is one row of an export input file. The CSV layout uses the
// same field order; procedure codes are semicolon-joined in CSV and a proper
// list in JSON/Parquet.
type ExportRecord struct {
	PatientID      string   `csv:"patient_id" parquet:"patient_id" json:"patient_id"`
	NationalID     string   `csv:"national_id" parquet:"national_id,optional" json:"national_id"`
	RiskScore      float64  `csv:"risk_score" parquet:"risk_score" json:"risk_score"`
	RiskTier       string   `csv:"risk_tier" parquet:"risk_tier" json:"risk_tier"`
	Clinical       float64  `csv:"clinical" parquet:"clinical" json:"clinical"`
	Medication     float64  `csv:"medication" parquet:"medication" json:"medication"`
	Utilization    float64  `csv:"utilization" parquet:"utilization" json:"utilization"`
	Adherence      float64  `csv:"adherence" parquet:"adherence" json:"adherence"`
	Social         float64  `csv:"social" parquet:"social" json:"social"`
	Confidence     float64  `csv:"confidence" parquet:"confidence" json:"confidence"`
	ComputedAt     string   `csv:"computed_at" parquet:"computed_at" json:"computed_at"`
	ProcedureCodes []string `csv:"-" parquet:"procedure_codes,list" json:"procedure_codes"`
	ComplianceRate float64  `csv:"compliance_rate" parquet:"compliance_rate" json:"compliance_rate"`
	OrganizationID string   `csv:"organization_id" parquet:"organization_id" json:"organization_id"`
}

// ToInput converts a file record into the exporter's input shape
func (r *ExportRecord) ToInput() export.PatientExportInput {
	computedAt, err := time.Parse(time.RFC3339, r.ComputedAt)
	if err != nil {
		computedAt = time.Time{}
	}

	return export.PatientExportInput{
		PatientID:  strings.TrimSpace(r.PatientID),
		NationalID: strings.TrimSpace(r.NationalID),
		Risk: export.RiskResult{
			Composite: r.RiskScore,
			Tier:      strings.TrimSpace(r.RiskTier),
			Domains: export.DomainBreakdown{
				Clinical:    r.Clinical,
				Medication:  r.Medication,
				Utilization: r.Utilization,
				Adherence:   r.Adherence,
				Social:      r.Social,
			},
			Confidence: r.Confidence,
			ComputedAt: computedAt,
		},
		ProcedureCodes: r.ProcedureCodes,
		ComplianceRate: r.ComplianceRate,
		OrganizationID: strings.TrimSpace(r.OrganizationID),
	}
}

// ProcessingResult summarizes one pipeline run
type ProcessingResult struct {
	RunID        string        `json:"run_id"`
	TotalRecords int64         `json:"total_records"`
	Exported     int64         `json:"exported"`
	Rejected     int64         `json:"rejected"`
	Stored       int64         `json:"stored"`
	Archived     int64         `json:"archived"`
	Duration     time.Duration `json:"duration"`
	ExportTime   time.Duration `json:"export_time"`
	DatabaseTime time.Duration `json:"database_time"`
	Errors       []string      `json:"errors,omitempty"`
}

// Config contains pipeline configuration
type Config struct {
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size"`           // 500
	RecordsPerSec  float64 `yaml:"records_per_sec" mapstructure:"records_per_sec"` // 0 disables throttling
	ValidateData   bool    `yaml:"validate_data" mapstructure:"validate_data"`     // true
	ProgressReport int     `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	ArchivePath    string  `yaml:"archive_path" mapstructure:"archive_path"`       // Parquet archive, empty disables
}

// FileFormat represents supported input file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".json") || strings.HasSuffix(filename, ".jsonl"):
		return FormatJSON
	default:
		return FormatCSV
	}
}
