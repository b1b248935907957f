package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/mfds-matcher/normalize"
)

// dateLayouts are tried in order when parsing approval dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

// asString renders a cell value the way it appears in the sheet.
func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}

// Field returns the value of a column as a string, or "" when absent.
func (r Row) Field(name string) string {
	return asString(r[name])
}

// ParseApprovalDate converts an approval date to Unix millis. Unparsable dates yield 0 so that
// they sort after every dated record.
func ParseApprovalDate(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// IsActiveStatus reports whether a cancellation status denotes a live product.
func IsActiveStatus(status string) bool {
	status = strings.TrimSpace(status)
	return status == "" || status == "정상" || status == "undefined"
}

// Ingest converts canonical catalog rows into reference records, computing the derived fields
// once. Record positions follow row order.
func Ingest(rows []Row) []ReferenceRecord {
	records := make([]ReferenceRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, NewReferenceRecord(i, row))
	}
	return records
}

// NewReferenceRecord builds the record at position pos from a canonical row.
func NewReferenceRecord(pos int, row Row) ReferenceRecord {
	rec := ReferenceRecord{
		Pos:          pos,
		ItemCode:     row.Field(FieldItemCode),
		Name:         row.Field(FieldName),
		EnglishName:  row.Field(FieldEnglishName),
		Ingredient:   row.Field(FieldIngredient),
		DosageForm:   row.Field(FieldDosageForm),
		NewDrug:      row.Field(FieldNewDrug),
		ApprovalDate: row.Field(FieldApprovalDate),
		Cancellation: row.Field(FieldCancellation),
	}
	rec.NameNorm = normalize.Normalize(rec.Name)
	rec.EnglishNameNorm = normalize.Normalize(rec.EnglishName)
	rec.IngredientBase = normalize.IngredientBaseKey(rec.Ingredient)
	rec.FormKey = strings.TrimSpace(rec.DosageForm)
	rec.Active = IsActiveStatus(rec.Cancellation)
	rec.ApprovedAt = ParseApprovalDate(rec.ApprovalDate)
	return rec
}

// SourcesFromRows converts canonical source rows. Every column other than the identifier and
// the label is carried as a passthrough field.
func SourcesFromRows(rows []Row) []SourceRecord {
	sources := make([]SourceRecord, 0, len(rows))
	for _, row := range rows {
		src := SourceRecord{
			ID:    row.Field(FieldSourceID),
			Label: row.Field(FieldProduct),
			Extra: make(map[string]any),
		}
		for k, v := range row {
			if k == FieldSourceID || k == FieldProduct {
				continue
			}
			src.Extra[k] = v
		}
		sources = append(sources, src)
	}
	return sources
}

// mappingColumns lists, per mapping field, the header fragments searched in order.
var mappingColumns = [][]string{
	{"Product_code_token", "code_token"},
	{"mapped_mfds_item_code", "item_code"},
	{"mapped_ingredient_base", "ingredient"},
	{"mapped_mfds_product_name", "product_name"},
}

// ParseMappingRows reads manual override rows. Headers are matched loosely and rows without a
// code token are dropped.
func ParseMappingRows(t *Table) []MappingEntry {
	keys := make([]string, len(mappingColumns))
	for i, fragments := range mappingColumns {
		for _, fragment := range fragments {
			if key := findHeaderContaining(t.Headers, fragment); key != "" {
				keys[i] = key
				break
			}
		}
	}

	var entries []MappingEntry
	for _, row := range t.Rows {
		values := make([]string, len(keys))
		for i, key := range keys {
			if key != "" {
				values[i] = strings.TrimSpace(row.Field(key))
			}
		}
		if values[0] == "" {
			continue
		}
		entries = append(entries, MappingEntry{
			CodeToken:      values[0],
			ItemCode:       values[1],
			IngredientBase: values[2],
			ProductName:    values[3],
		})
	}
	return entries
}

// findHeaderContaining returns the first header whose normalized form contains the normalized
// fragment.
func findHeaderContaining(headers []string, fragment string) string {
	want := normAlias(fragment)
	for _, h := range headers {
		if strings.Contains(normAlias(h), want) {
			return h
		}
	}
	return ""
}

// MappingLookup indexes mapping entries by upper-cased code token. Later entries win.
func MappingLookup(entries []MappingEntry) map[string]MappingEntry {
	lookup := make(map[string]MappingEntry, len(entries))
	for _, e := range entries {
		token := strings.ToUpper(strings.TrimSpace(e.CodeToken))
		if token == "" {
			continue
		}
		lookup[token] = e
	}
	return lookup
}
