package redact

import "regexp"

// EntityType identifies a class of sensitive data the redactor recognizes
type EntityType string

const (
	EntityPatientName EntityType = "PATIENT_NAME"
	EntityDate        EntityType = "DATE"
	EntityPhone       EntityType = "PHONE"
	EntitySSN         EntityType = "SSN"
	EntityEmail       EntityType = "EMAIL"
	EntityAddress     EntityType = "ADDRESS"
	EntityMRN         EntityType = "MRN"
	EntityZIP         EntityType = "ZIP"
)

// AllEntityTypes returns every supported entity type
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityPatientName, EntityDate, EntityPhone, EntitySSN,
		EntityEmail, EntityAddress, EntityMRN, EntityZIP,
	}
}

// DetectionRule represents a single PII detection rule. NameGroup marks the
// submatch index to tokenize; 0 means the full match. Rules with NameGroup > 0
// keep the rest of the match (e.g. a title prefix) in the output text.
type DetectionRule struct {
	Type      EntityType
	Pattern   *regexp.Regexp
	NameGroup int
}

// RehydrationMap maps synthetic tokens back to the original matched substrings.
// Built fresh on every Anonymize call; the caller owns its lifecycle.
type RehydrationMap map[string]string

// Stats contains per-invocation redaction statistics
type Stats struct {
	TotalRedactions  int                `json:"totalRedactions"`
	AnonymizationMs  float64            `json:"anonymizationMs"`
	RedactionsByType map[EntityType]int `json:"redactionsByType"`
}

// Result contains the outcome of one Anonymize call
type Result struct {
	RedactedText   string         `json:"redactedText"`
	RehydrationMap RehydrationMap `json:"rehydrationMap"`
	Stats          Stats          `json:"stats"`
}
