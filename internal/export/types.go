package export

import "time"

// DomainBreakdown holds the per-domain components of a composite risk score
type DomainBreakdown struct {
	Clinical    float64 `json:"clinical"`
	Medication  float64 `json:"medication"`
	Utilization float64 `json:"utilization"`
	Adherence   float64 `json:"adherence"`
	Social      float64 `json:"social"`
}

// RiskResult is the internal risk computation attached to a patient
type RiskResult struct {
	Composite  float64         `json:"composite"`
	Tier       string          `json:"tier"`
	Domains    DomainBreakdown `json:"domains"`
	Confidence float64         `json:"confidence"`
	ComputedAt time.Time       `json:"computedAt"`
}

// PatientExportInput is the internal record handed to the exporter. It still
// carries raw identifiers; nothing in it may reach a payload except through
// the whitelist in ExportForEnterprise.
type PatientExportInput struct {
	PatientID      string     `json:"patientId"`
	NationalID     string     `json:"nationalId,omitempty"`
	Risk           RiskResult `json:"risk"`
	ProcedureCodes []string   `json:"procedureCodes"`
	ComplianceRate float64    `json:"complianceRate"`
	OrganizationID string     `json:"organizationId"`
}

// AnonymizedRiskPayload is the only shape that crosses the enterprise
// boundary. Every field is either derived (token, hash) or whitelisted
// non-identifying clinical data.
type AnonymizedRiskPayload struct {
	PatientToken   string          `json:"patientToken"`
	RiskScore      float64         `json:"riskScore"`
	RiskTier       string          `json:"riskTier"`
	Domains        DomainBreakdown `json:"domains"`
	Confidence     float64         `json:"confidence"`
	ProcedureCodes []string        `json:"procedureCodes"`
	ComplianceRate float64         `json:"complianceRate"`
	OrgHash        string          `json:"orgHash"`
	ComputedAt     time.Time       `json:"computedAt"`
	ExportedAt     time.Time       `json:"exportedAt"`
}

// FailedExport records one input the batch could not export. PatientID is the
// internal identifier and is for operator triage only; it must never be
// forwarded with the successful payloads.
type FailedExport struct {
	PatientID string `json:"patientId"`
	Error     string `json:"error"`
	// Field and Pattern are set when the failure was a scan violation
	Field   string `json:"field,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// BatchResult partitions a batch into exported payloads and failures
type BatchResult struct {
	Successful []*AnonymizedRiskPayload `json:"successful"`
	Failed     []FailedExport           `json:"failed"`
}
