package redact

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/phi-sentinel/internal/logger"
)

// Config controls which detectors run and extends the eponym allow-list
type Config struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	Detectors    []string `yaml:"detectors" mapstructure:"detectors"`
	ExtraEponyms []string `yaml:"extra_eponyms" mapstructure:"extra_eponyms"`
}

// Redactor detects PHI in free text and replaces it with rehydratable tokens.
// All mutable state lives in each Anonymize call, so a single Redactor is safe
// for concurrent use.
type Redactor struct {
	rules   []DetectionRule
	enabled map[EntityType]bool
	eponyms map[string]struct{}
	config  Config
	logger  *logger.Logger
}

// New creates a redactor with the default rule set filtered by cfg.Detectors
func New(cfg Config, log *logger.Logger) (*Redactor, error) {
	r := &Redactor{
		rules:   DefaultRules(),
		enabled: make(map[EntityType]bool),
		eponyms: medicalEponyms,
		config:  cfg,
		logger:  log,
	}

	if len(cfg.ExtraEponyms) > 0 {
		merged := make(map[string]struct{}, len(medicalEponyms)+len(cfg.ExtraEponyms))
		for term := range medicalEponyms {
			merged[term] = struct{}{}
		}
		for _, term := range cfg.ExtraEponyms {
			merged[strings.ToLower(term)] = struct{}{}
		}
		r.eponyms = merged
	}

	if err := r.configureDetectors(cfg.Detectors); err != nil {
		return nil, err
	}

	r.logger.Info("Redactor initialized",
		zap.Int("detectors", r.countEnabledTypes()),
		zap.Int("eponyms", len(r.eponyms)))

	return r, nil
}

func (r *Redactor) configureDetectors(names []string) error {
	if len(names) == 0 {
		for _, t := range AllEntityTypes() {
			r.enabled[t] = true
		}
		return nil
	}

	known := make(map[string]EntityType, len(AllEntityTypes()))
	for _, t := range AllEntityTypes() {
		known[string(t)] = t
	}

	for _, name := range names {
		if strings.EqualFold(name, "all") {
			for _, t := range AllEntityTypes() {
				r.enabled[t] = true
			}
			continue
		}
		t, ok := known[strings.ToUpper(name)]
		if !ok {
			return fmt.Errorf("unknown detector: %s", name)
		}
		r.enabled[t] = true
	}
	return nil
}

// Anonymize replaces every detected entity with a [TYPE_n] token and returns
// the redacted text, the token-to-original mapping, and per-call stats.
// Counters are 1-based and independent per entity type.
func (r *Redactor) Anonymize(text string) Result {
	start := time.Now()

	counts := make(map[EntityType]int)
	mapping := make(RehydrationMap)

	redacted := text
	for _, rule := range r.rules {
		if !r.enabled[rule.Type] {
			continue
		}
		redacted = r.applyRule(redacted, rule, counts, mapping)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	elapsed := time.Since(start)
	result := Result{
		RedactedText:   redacted,
		RehydrationMap: mapping,
		Stats: Stats{
			TotalRedactions:  total,
			AnonymizationMs:  float64(elapsed.Microseconds()) / 1000.0,
			RedactionsByType: counts,
		},
	}

	r.logger.Debug("Text anonymized",
		zap.Int("redactions", total),
		zap.Float64("elapsed_ms", result.Stats.AnonymizationMs))

	return result
}

// applyRule replaces all matches of one rule in a single left-to-right pass.
// For rules with a NameGroup, only the capture group is replaced so an
// uncaptured title prefix survives in the output.
func (r *Redactor) applyRule(text string, rule DetectionRule, counts map[EntityType]int, mapping RehydrationMap) string {
	matches := rule.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0

	for _, m := range matches {
		s, e := m[0], m[1]
		if rule.NameGroup > 0 {
			gs, ge := m[2*rule.NameGroup], m[2*rule.NameGroup+1]
			if gs < 0 {
				continue
			}
			s, e = gs, ge
		}
		if s < last {
			continue
		}

		original := text[s:e]
		if rule.Type == EntityPatientName && r.isEponym(original) {
			continue
		}

		counts[rule.Type]++
		token := fmt.Sprintf("[%s_%d]", rule.Type, counts[rule.Type])
		mapping[token] = original

		b.WriteString(text[last:s])
		b.WriteString(token)
		last = e
	}

	b.WriteString(text[last:])
	return b.String()
}

// isEponym reports whether any word of a name-shaped match is a known medical
// term. The whole match is rejected, never partially redacted.
func (r *Redactor) isEponym(match string) bool {
	for _, word := range strings.Fields(strings.ToLower(match)) {
		if _, ok := r.eponyms[word]; ok {
			return true
		}
	}
	return false
}

// Rehydrate restores originals for every token present in the mapping.
// Tokens absent from the mapping are left in place; mapping entries whose
// token never appears are ignored.
func (r *Redactor) Rehydrate(redactedText string, mapping RehydrationMap) string {
	restored := redactedText
	for token, original := range mapping {
		restored = strings.Replace(restored, token, original, 1)
	}
	return restored
}

// EnableType turns a single detector on
func (r *Redactor) EnableType(t EntityType) {
	r.enabled[t] = true
}

// DisableType turns a single detector off
func (r *Redactor) DisableType(t EntityType) {
	r.enabled[t] = false
}

// GetEnabledTypes returns the enabled entity types in detection order
func (r *Redactor) GetEnabledTypes() []EntityType {
	var types []EntityType
	for _, t := range AllEntityTypes() {
		if r.enabled[t] {
			types = append(types, t)
		}
	}
	return types
}

func (r *Redactor) countEnabledTypes() int {
	n := 0
	for _, on := range r.enabled {
		if on {
			n++
		}
	}
	return n
}
