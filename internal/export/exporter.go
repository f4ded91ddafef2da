package export

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/phi-sentinel/internal/logger"
)

// Exporter assembles enterprise-safe payloads from internal patient records
type Exporter struct {
	strategy TokenStrategy
	scanner  *Scanner
	logger   *logger.Logger
}

// NewExporter creates an exporter with the given token strategy
func NewExporter(strategy TokenStrategy, log *logger.Logger) *Exporter {
	return &Exporter{
		strategy: strategy,
		scanner:  NewScanner(),
		logger:   log,
	}
}

// ExportForEnterprise builds the anonymized payload for one patient record.
// The payload is assembled exclusively from whitelisted fields, then scanned
// for PII regardless of how it was assembled; the scan guards against
// whitelist regressions, not just bad input. On any violation nothing is
// returned.
func (e *Exporter) ExportForEnterprise(input PatientExportInput) (*AnonymizedRiskPayload, error) {
	if input.PatientID == "" {
		return nil, fmt.Errorf("export: missing patient id")
	}
	if input.OrganizationID == "" {
		return nil, fmt.Errorf("export: missing organization id")
	}

	payload := &AnonymizedRiskPayload{
		PatientToken:   e.strategy.PatientToken(input.PatientID, input.NationalID, input.OrganizationID),
		RiskScore:      input.Risk.Composite,
		RiskTier:       input.Risk.Tier,
		Domains:        input.Risk.Domains,
		Confidence:     input.Risk.Confidence,
		ProcedureCodes: append([]string(nil), input.ProcedureCodes...),
		ComplianceRate: input.ComplianceRate,
		OrgHash:        e.strategy.OrgHash(input.OrganizationID),
		ComputedAt:     input.Risk.ComputedAt,
		ExportedAt:     time.Now().UTC(),
	}

	if err := e.scanner.Scan(payload, "payload"); err != nil {
		return nil, err
	}

	return payload, nil
}

// BatchExportForEnterprise exports each input independently: one bad record
// never blocks the rest. Failures are logged with the internal patient id,
// which stays in the ops log and the Failed list only.
func (e *Exporter) BatchExportForEnterprise(inputs []PatientExportInput) BatchResult {
	result := BatchResult{
		Successful: make([]*AnonymizedRiskPayload, 0, len(inputs)),
	}

	for _, input := range inputs {
		payload, err := e.ExportForEnterprise(input)
		if err != nil {
			e.logger.Warn("Export rejected",
				zap.String("patient_id", input.PatientID),
				zap.Error(err))
			failed := FailedExport{
				PatientID: input.PatientID,
				Error:     err.Error(),
			}
			var violation *Violation
			if errors.As(err, &violation) {
				failed.Field = violation.Field
				failed.Pattern = violation.Pattern
			}
			result.Failed = append(result.Failed, failed)
			continue
		}
		result.Successful = append(result.Successful, payload)
	}

	e.logger.Info("Batch export finished",
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)))

	return result
}
