package export

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
)

// maxScanDepth bounds the worklist so a cyclic or absurdly nested payload
// cannot wedge the exporter.
const maxScanDepth = 32

// Violation is returned when a payload leaks something that looks like PII.
// Field is the dotted path to the offending value; Pattern names the matched
// pattern, never the matched text.
type Violation struct {
	Field   string
	Pattern string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("pii violation at %s: matched %s pattern", v.Field, v.Pattern)
}

type scanPattern struct {
	name string
	re   *regexp.Regexp
}

// scanPatterns run in order against every string leaf. CPF is the Brazilian
// national ID (formatted or bare 11 digits).
var scanPatterns = []scanPattern{
	{name: "cpf", re: regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)},
	{name: "email", re: regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{name: "phone", re: regexp.MustCompile(`\b\d{2,4}[-.\s]\d{3,5}[-.\s]\d{4}\b`)},
	{name: "titled_name", re: regexp.MustCompile(`\b(?:Dr|Mr|Mrs|Ms|Sr|Sra)\.?\s+[A-Z][a-z]+`)},
}

// Scanner walks arbitrary values looking for PII-shaped strings
type Scanner struct {
	patterns []scanPattern
}

// NewScanner creates a scanner with the default pattern set
func NewScanner() *Scanner {
	return &Scanner{patterns: scanPatterns}
}

type scanItem struct {
	value reflect.Value
	path  string
	depth int
}

// Scan walks value and returns a *Violation for the first string leaf that
// matches any pattern, or nil if the value is clean. The walk is iterative
// with an explicit stack and a depth cap; anything deeper than maxScanDepth
// is itself reported as a violation rather than silently skipped.
func (s *Scanner) Scan(value interface{}, path string) error {
	stack := []scanItem{{value: reflect.ValueOf(value), path: path}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		v := item.value
		if !v.IsValid() {
			continue
		}
		if item.depth > maxScanDepth {
			return &Violation{Field: item.path, Pattern: "max_depth_exceeded"}
		}

		switch v.Kind() {
		case reflect.String:
			if err := s.checkString(v.String(), item.path); err != nil {
				return err
			}

		case reflect.Ptr, reflect.Interface:
			if !v.IsNil() {
				stack = append(stack, scanItem{value: v.Elem(), path: item.path, depth: item.depth})
			}

		case reflect.Struct:
			t := v.Type()
			for i := 0; i < v.NumField(); i++ {
				if !t.Field(i).IsExported() {
					continue
				}
				stack = append(stack, scanItem{
					value: v.Field(i),
					path:  item.path + "." + t.Field(i).Name,
					depth: item.depth + 1,
				})
			}

		case reflect.Map:
			for _, key := range v.MapKeys() {
				label := fmt.Sprintf("%v", key.Interface())
				stack = append(stack, scanItem{
					value: v.MapIndex(key),
					path:  item.path + "." + label,
					depth: item.depth + 1,
				})
			}

		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				stack = append(stack, scanItem{
					value: v.Index(i),
					path:  item.path + "[" + strconv.Itoa(i) + "]",
					depth: item.depth + 1,
				})
			}
		}
	}

	return nil
}

func (s *Scanner) checkString(str, path string) error {
	for _, p := range s.patterns {
		if p.re.MatchString(str) {
			return &Violation{Field: path, Pattern: p.name}
		}
	}
	return nil
}
