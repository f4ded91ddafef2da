package redact

import "regexp"

// Detection order is significant: most-specific patterns run first so their
// match regions are consumed before a more general pattern can re-interpret
// them. ZIP runs after ADDRESS so a trailing ZIP inside an address is already
// part of the address token. Names run last and most conservatively.
//
// All patterns are RE2 with bounded quantifiers, so every pass is a linear
// scan of the input.
var defaultRules = []DetectionRule{
	{
		Type:    EntityMRN,
		Pattern: regexp.MustCompile(`(?i)\b(?:MRN|Medical\s+Record(?:\s+Number)?|Account(?:\s+Number)?|Acct)\s*[:#]?\s*\d{4,12}\b`),
	},
	{
		Type:    EntitySSN,
		Pattern: regexp.MustCompile(`\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`),
	},
	{
		Type:    EntityPhone,
		Pattern: regexp.MustCompile(`(?:\(\d{3}\)\s*|\b\d{3}[-.])\d{3}[-.]\d{4}\b`),
	},
	{
		Type:    EntityEmail,
		Pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
	},
	{
		Type:    EntityDate,
		Pattern: regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`),
	},
	{
		Type:    EntityDate,
		Pattern: regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	},
	{
		Type:    EntityAddress,
		Pattern: regexp.MustCompile(`\b\d{1,6}\s+(?:[A-Z][a-z]+\s+){0,3}[A-Z][a-z]+\s+(?:Street|St|Avenue|Ave|Boulevard|Blvd|Drive|Dr|Road|Rd|Lane|Ln|Court|Ct|Way|Place|Pl|Circle|Cir)\b`),
	},
	{
		Type:    EntityZIP,
		Pattern: regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`),
	},
	// Titles are matched as an uncaptured prefix and kept in the output; only
	// the capture group is tokenized. RE2 has no lookahead, so this is the
	// linear-time equivalent of a negative lookahead on the title.
	{
		Type:      EntityPatientName,
		Pattern:   regexp.MustCompile(`\b(?:(?:Dr|Mr|Mrs|Ms|Miss)\.?\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2})\b`),
		NameGroup: 1,
	},
	// A lone capitalized surname directly after a title is still a name.
	{
		Type:      EntityPatientName,
		Pattern:   regexp.MustCompile(`\b(?:Dr|Mr|Mrs|Ms|Miss)\.?\s+([A-Z][a-z]+)\b`),
		NameGroup: 1,
	},
}

// DefaultRules returns the ordered detection rule set
func DefaultRules() []DetectionRule {
	rules := make([]DetectionRule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}
