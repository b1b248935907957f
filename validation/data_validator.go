// Package validation provides catalog, request and run-input validation for the matcher service.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/interfaces"
	"github.com/giygas/mfds-matcher/logging"
)

// Pre-compiled regex patterns, built once at package initialization
var (
	// Input validation: Hangul + alphanumeric + safe punctuation
	inputRegex = regexp.MustCompile(`^[\p{Hangul}a-zA-Z0-9\s\-\.\+',()/]+$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

// Field limits for catalog records, in characters
const (
	maxNameLength       = 300
	maxIngredientLength = 2000
	maxFormLength       = 100
	sampleSize          = 10
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateRecord checks if a catalog record is usable
func (v *DataValidatorImpl) ValidateRecord(r *catalog.ReferenceRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}

	if strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.EnglishName) == "" {
		return fmt.Errorf("record at position %d has neither a Korean nor an English name", r.Pos)
	}

	if n := utf8.RuneCountInString(r.Name); n > maxNameLength {
		return fmt.Errorf("name too long for item %s: %d characters", r.ItemCode, n)
	}

	if n := utf8.RuneCountInString(r.EnglishName); n > maxNameLength {
		return fmt.Errorf("english name too long for item %s: %d characters", r.ItemCode, n)
	}

	if n := utf8.RuneCountInString(r.Ingredient); n > maxIngredientLength {
		return fmt.Errorf("ingredient too long for item %s: %d characters", r.ItemCode, n)
	}

	if n := utf8.RuneCountInString(r.DosageForm); n > maxFormLength {
		return fmt.Errorf("dosage form too long for item %s: %d characters", r.ItemCode, n)
	}

	return nil
}

// ValidateCatalogIntegrity rejects catalogs that cannot be matched against
func (v *DataValidatorImpl) ValidateCatalogIntegrity(records []catalog.ReferenceRecord) error {
	if len(records) == 0 {
		return ErrEmptyCatalog
	}

	invalid := 0
	for i := range records {
		if err := v.ValidateRecord(&records[i]); err != nil {
			invalid++
			if invalid <= sampleSize {
				logging.Warn("Invalid catalog record", "error", err, "position", i)
			}
		}
	}

	// A handful of malformed rows is normal in MFDS exports; a catalog made only of them is not
	if invalid == len(records) {
		return fmt.Errorf("all %d catalog records are invalid", invalid)
	}

	return nil
}

// ReportDataQuality generates a data quality report for a catalog
func (v *DataValidatorImpl) ReportDataQuality(records []catalog.ReferenceRecord) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalRecords:                  len(records),
		DuplicateItemCodes:            []string{},
		RecordsWithoutIngredientCodes: []string{},
		OriginalsWithoutGenericsCodes: []string{},
	}

	// Check 1: Duplicate item codes, each reported once
	seen := make(map[string]int)
	for i := range records {
		r := &records[i]
		if r.ItemCode == "" {
			report.RecordsWithoutItemCode++
			continue
		}
		seen[r.ItemCode]++
		if seen[r.ItemCode] == 2 {
			report.DuplicateItemCodes = append(report.DuplicateItemCodes, r.ItemCode)
		}
	}

	// Check 2: Field coverage (store first 10 codes)
	genericsByBase := make(map[string]int)
	for i := range records {
		r := &records[i]
		if r.Active {
			report.ActiveRecords++
		}
		if r.IsOriginal() {
			report.OriginalRecords++
		} else if r.IngredientBase != "" {
			genericsByBase[r.IngredientBase]++
		}
		if r.IngredientBase == "" {
			report.RecordsWithoutIngredient++
			if len(report.RecordsWithoutIngredientCodes) < sampleSize {
				report.RecordsWithoutIngredientCodes = append(report.RecordsWithoutIngredientCodes, r.ItemCode)
			}
		}
		if strings.TrimSpace(r.EnglishName) == "" {
			report.RecordsWithoutEnglishName++
		}
		if strings.TrimSpace(r.ApprovalDate) != "" && r.ApprovedAt == 0 {
			report.UnparsableApprovalDates++
		}
	}

	// Check 3: Originals with no generic sharing their ingredient base
	bases := make(map[string]struct{})
	for i := range records {
		r := &records[i]
		if r.IngredientBase == "" {
			continue
		}
		bases[r.IngredientBase] = struct{}{}
		if r.IsOriginal() && genericsByBase[r.IngredientBase] == 0 {
			report.OriginalsWithoutGenerics++
			if len(report.OriginalsWithoutGenericsCodes) < sampleSize {
				report.OriginalsWithoutGenericsCodes = append(report.OriginalsWithoutGenericsCodes, r.ItemCode)
			}
		}
	}
	report.IngredientBases = len(bases)

	return report
}

// ValidateInput validates user input strings with enhanced security
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	length := utf8.RuneCountInString(input)
	if length < 2 {
		return fmt.Errorf("input too short: minimum 2 characters")
	}

	if length > 100 {
		return fmt.Errorf("input too long: maximum 100 characters")
	}

	// Word count validation to prevent DoS attacks with many short words
	words := strings.Fields(input)
	if len(words) > 8 {
		return fmt.Errorf("search query too complex: maximum 8 words allowed")
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only Hangul, letters, numbers, spaces and basic punctuation are allowed")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateItemCode validates MFDS item codes.
// Item codes are numeric identifiers, 9 digits in current exports
func (v *DataValidatorImpl) ValidateItemCode(input string) (string, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return "", fmt.Errorf("input cannot be empty")
	}

	// Reject if original input contained whitespace (spaces, tabs, etc.)
	if len(input) != len(trimmedInput) {
		return "", fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
	}

	if len(trimmedInput) < 6 || len(trimmedInput) > 12 {
		return "", fmt.Errorf("item code should have between 6 and 12 digits")
	}

	for _, r := range trimmedInput {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
		}
	}

	return trimmedInput, nil
}

// hasExcessiveRepetition checks for the same character repeated more than 10 times consecutively
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	runes := []rune(input)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > 10 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
