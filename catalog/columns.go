package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrMissingColumns is returned when a file lacks a column the pipeline needs.
var ErrMissingColumns = errors.New("missing required columns")

// ColumnMap maps a canonical field name to the header found in a file, or "" when none matched.
type ColumnMap map[string]string

// Header aliases accepted for each canonical field.
var (
	productAliases = []string{"product", "PRODUCT", "Product", "제품", "제품명", "품목", "품목명"}
	seqAliases     = []string{"순번", "No", "NO", "no", "index", "Index", "INDEX", "no.", "No.", "번호"}

	catalogAliases = map[string][]string{
		FieldName:         {"제품명", "제품 명", "product_name", "productname"},
		FieldEnglishName:  {"제품영문명", "제품 영문명", "영문제품명", "english_name", "eng_name", "englishname", "product_english_name"},
		FieldIngredient:   {"주성분", "주성분명", "성분명", "성분", "ingredient", "ingredients", "active_ingredient"},
		FieldNewDrug:      {"신약구분", "신약여부", "신약", "new_drug", "newdrug"},
		FieldCancellation: {"취소취하", "취소/취하", "취소일자", "취소/취하일자", "상태", "변경구분", "cancel", "status"},
		FieldApprovalDate: {"허가일자", "허가일", "허가 일자", "approval_date", "approvaldate"},
		FieldDosageForm:   {"제형", "제형명", "dosage_form", "dosageform", "form"},
		FieldItemCode:     {"품목기준코드", "품목코드", "item_code", "itemcode", "code"},
	}
)

// RequiredCatalogFields are the catalog columns without which a file is rejected. The item code
// is resolved but optional.
var RequiredCatalogFields = []string{
	FieldName, FieldEnglishName, FieldIngredient, FieldNewDrug,
	FieldCancellation, FieldApprovalDate, FieldDosageForm,
}

// cleanHeader strips byte order marks, zero-width characters and non-breaking spaces.
func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00a0':
			return -1
		}
		return r
	}, h)
	return strings.TrimSpace(h)
}

// normAlias lower-cases s and drops whitespace and the separators _ - . / \
func normAlias(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '_', '-', '.', '/', '\\':
			return -1
		}
		return r
	}, s)
}

// findByAlias returns the first header matching one of the aliases: exactly, then after
// normAlias, then by containment in either direction.
func findByAlias(headers, aliases []string) string {
	for _, h := range headers {
		if slices.Contains(aliases, h) {
			return h
		}
	}

	normalized := make([]string, len(aliases))
	for i, a := range aliases {
		normalized[i] = normAlias(a)
	}

	for _, h := range headers {
		if slices.Contains(normalized, normAlias(h)) {
			return h
		}
	}

	for _, h := range headers {
		nh := normAlias(h)
		if nh == "" {
			continue
		}
		for _, na := range normalized {
			if strings.Contains(nh, na) || strings.Contains(na, nh) {
				return h
			}
		}
	}
	return ""
}

// ResolveColumns matches headers against the alias table of each canonical field.
func ResolveColumns(headers []string, aliases map[string][]string) ColumnMap {
	cm := make(ColumnMap, len(aliases))
	for field, list := range aliases {
		cm[field] = findByAlias(headers, list)
	}
	return cm
}

// CatalogColumns resolves the catalog fields and lists the required ones that were not found,
// in RequiredCatalogFields order.
func CatalogColumns(headers []string) (ColumnMap, []string) {
	cm := ResolveColumns(headers, catalogAliases)
	var missing []string
	for _, field := range RequiredCatalogFields {
		if cm[field] == "" {
			missing = append(missing, field)
		}
	}
	return cm, missing
}

// SourceColumns resolves the source list fields and lists the ones that were not found.
func SourceColumns(headers []string) (ColumnMap, []string) {
	cm := ColumnMap{
		FieldProduct:  findByAlias(headers, productAliases),
		FieldSourceID: findByAlias(headers, seqAliases),
	}
	var missing []string
	for _, field := range []string{FieldProduct, FieldSourceID} {
		if cm[field] == "" {
			missing = append(missing, field)
		}
	}
	return cm, missing
}

// Rename returns the table rows with matched headers replaced by their canonical names. Other
// columns keep their cleaned header.
func (t *Table) Rename(cm ColumnMap) []Row {
	rename := make(map[string]string, len(cm))
	for _, field := range slices.Sorted(maps.Keys(cm)) {
		header := cm[field]
		if _, taken := rename[header]; header != "" && !taken {
			rename[header] = field
		}
	}

	rows := make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		out := make(Row, len(row))
		for k, v := range row {
			if field, ok := rename[k]; ok {
				out[field] = v
			} else {
				out[k] = v
			}
		}
		rows = append(rows, out)
	}
	return rows
}

// CatalogRows returns the table rows keyed by canonical catalog field names.
func CatalogRows(t *Table) ([]Row, error) {
	cm, missing := CatalogColumns(t.Headers)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (detected: %s)", ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(t.Headers, ", "))
	}
	return t.Rename(cm), nil
}

// SourceRows returns the table rows keyed by canonical source field names. A missing sequence
// column is replaced by the 1-based row number.
func SourceRows(t *Table) ([]Row, error) {
	cm, _ := SourceColumns(t.Headers)
	if cm[FieldProduct] == "" {
		return nil, fmt.Errorf("%w: %s (detected: %s)", ErrMissingColumns,
			FieldProduct, strings.Join(t.Headers, ", "))
	}

	rows := t.Rename(cm)
	if cm[FieldSourceID] == "" {
		for i, row := range rows {
			row[FieldSourceID] = strconv.Itoa(i + 1)
		}
	}
	return rows, nil
}

// Diagnostics describes how a file's headers were understood.
type Diagnostics struct {
	FileName        string    `json:"fileName"`
	RowCount        int       `json:"rowCount"`
	DetectedHeaders []string  `json:"detectedHeaders"`
	ColumnMap       ColumnMap `json:"columnMap"`
	MissingColumns  []string  `json:"missingColumns"`
	ActiveRowCount  *int      `json:"activeRowCount,omitempty"`
	Errors          []string  `json:"errors"`
}

// Diagnose inspects a catalog table. The active row count is only computed when activeOnly is
// set and every required column was found.
func Diagnose(t *Table, activeOnly bool) Diagnostics {
	cm, missing := CatalogColumns(t.Headers)
	d := Diagnostics{
		FileName:        t.Name,
		RowCount:        len(t.Rows),
		DetectedHeaders: t.Headers,
		ColumnMap:       cm,
		MissingColumns:  missing,
		Errors:          []string{},
	}

	if len(missing) > 0 {
		d.Errors = append(d.Errors, fmt.Sprintf("catalog columns not found: %s. Detected columns: %s",
			strings.Join(missing, ", "), strings.Join(t.Headers, ", ")))
		return d
	}

	if activeOnly {
		count := 0
		for _, row := range t.Rows {
			if IsActiveStatus(cleanHeader(row.Field(cm[FieldCancellation]))) {
				count++
			}
		}
		d.ActiveRowCount = &count
	}
	return d
}

// DiagnoseSource inspects a source list table.
func DiagnoseSource(t *Table) Diagnostics {
	cm, missing := SourceColumns(t.Headers)
	d := Diagnostics{
		FileName:        t.Name,
		RowCount:        len(t.Rows),
		DetectedHeaders: t.Headers,
		ColumnMap:       cm,
		MissingColumns:  missing,
		Errors:          []string{},
	}
	if len(missing) > 0 {
		d.Errors = append(d.Errors, fmt.Sprintf("source columns not found: %s. Detected columns: %s",
			strings.Join(missing, ", "), strings.Join(t.Headers, ", ")))
	}
	return d
}
