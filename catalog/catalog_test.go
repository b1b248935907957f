package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/korean"
)

func TestIngestDerivedFields(t *testing.T) {
	rows := []Row{
		{
			FieldItemCode:     "200001234",
			FieldName:         "애드빌정(이부프로펜)",
			FieldEnglishName:  "Advil Tab.",
			FieldIngredient:   "Ibuprofen",
			FieldDosageForm:   " 정제 ",
			FieldNewDrug:      "Y",
			FieldApprovalDate: "2010-03-15",
			FieldCancellation: "",
		},
		{
			FieldItemCode:     float64(200005678),
			FieldName:         "타이레놀",
			FieldCancellation: "취소",
			FieldApprovalDate: "not a date",
		},
	}

	records := Ingest(rows)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.Pos != 0 {
		t.Errorf("Expected position 0, got %d", r.Pos)
	}
	if r.NameNorm != "애드빌정 이부프로펜" {
		t.Errorf("Expected normalized name '애드빌정 이부프로펜', got %q", r.NameNorm)
	}
	if r.EnglishNameNorm != "ADVIL TAB" {
		t.Errorf("Expected normalized english name 'ADVIL TAB', got %q", r.EnglishNameNorm)
	}
	if r.IngredientBase != "IBUPROFEN" {
		t.Errorf("Expected ingredient base IBUPROFEN, got %q", r.IngredientBase)
	}
	if r.FormKey != "정제" {
		t.Errorf("Expected trimmed form key, got %q", r.FormKey)
	}
	if !r.Active {
		t.Error("Expected record with empty cancellation to be active")
	}
	if !r.IsOriginal() {
		t.Error("Expected record flagged Y to be original")
	}
	if r.ApprovedAt == 0 {
		t.Error("Expected approval date to be parsed")
	}

	r = records[1]
	if r.ItemCode != "200005678" {
		t.Errorf("Expected numeric item code rendered without exponent, got %q", r.ItemCode)
	}
	if r.Active {
		t.Error("Expected cancelled record to be inactive")
	}
	if r.ApprovedAt != 0 {
		t.Errorf("Expected unparsable date to yield 0, got %d", r.ApprovedAt)
	}
	if r.Pos != 1 {
		t.Errorf("Expected position 1, got %d", r.Pos)
	}
}

func TestIsActiveStatus(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{"", true},
		{"정상", true},
		{" 정상 ", true},
		{"undefined", true},
		{"취소", false},
		{"취하", false},
		{"2020-01-01", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := IsActiveStatus(tt.status); got != tt.expected {
				t.Errorf("Expected %v for %q, got %v", tt.expected, tt.status, got)
			}
		})
	}
}

func TestParseApprovalDateOrdering(t *testing.T) {
	older := ParseApprovalDate("2001/05/01")
	newer := ParseApprovalDate("20200101")
	if older == 0 || newer == 0 {
		t.Fatalf("Expected both dates to parse, got %d and %d", older, newer)
	}
	if newer <= older {
		t.Errorf("Expected newer date to compare greater: %d vs %d", newer, older)
	}
}

func TestSourcesFromRows(t *testing.T) {
	sources := SourcesFromRows([]Row{
		{FieldSourceID: float64(7), FieldProduct: "Advil", "Note": "keep me"},
	})
	if len(sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(sources))
	}
	s := sources[0]
	if s.ID != "7" || s.Label != "Advil" {
		t.Errorf("Expected ID 7 and label Advil, got %q and %q", s.ID, s.Label)
	}
	if s.Extra["Note"] != "keep me" {
		t.Errorf("Expected passthrough column, got %v", s.Extra)
	}
	if _, ok := s.Extra[FieldProduct]; ok {
		t.Error("Expected label column not to be duplicated in passthrough fields")
	}
}

func TestMappingLookupLastWins(t *testing.T) {
	lookup := MappingLookup([]MappingEntry{
		{CodeToken: "adv", ItemCode: "1"},
		{CodeToken: "", ItemCode: "2"},
		{CodeToken: "ADV", ItemCode: "3"},
	})
	if len(lookup) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(lookup))
	}
	if lookup["ADV"].ItemCode != "3" {
		t.Errorf("Expected later entry to win, got %q", lookup["ADV"].ItemCode)
	}
}

func TestFindByAlias(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		aliases  []string
		expected string
	}{
		{"exact", []string{"x", "제품명"}, []string{"제품명"}, "제품명"},
		{"normalized", []string{"Product_Name"}, []string{"product name"}, "Product_Name"},
		{"containment", []string{"주성분명(영문)"}, []string{"주성분명"}, "주성분명(영문)"},
		{"exact beats containment", []string{"제품명칭", "제품명"}, []string{"제품명"}, "제품명"},
		{"none", []string{"a", "b"}, []string{"제형"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findByAlias(tt.headers, tt.aliases); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCleanHeader(t *testing.T) {
	if got := cleanHeader("\ufeff \u00a0제품\u200b명 "); got != "제품명" {
		t.Errorf("Expected 제품명, got %q", got)
	}
}

func TestCatalogColumnsMissing(t *testing.T) {
	_, missing := CatalogColumns([]string{"주성분"})
	if len(missing) != 6 {
		t.Fatalf("Expected 6 missing columns, got %v", missing)
	}
	if missing[0] != FieldName {
		t.Errorf("Expected first missing column %s, got %s", FieldName, missing[0])
	}

	table := &Table{Headers: []string{"주성분"}}
	if _, err := CatalogRows(table); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("Expected ErrMissingColumns, got %v", err)
	}
}

const catalogCSV = "품목코드,제품명,제품영문명,주성분명,신약여부,취소/취하,허가일,제형명\n" +
	"100,애드빌정,Advil Tab,Ibuprofen,Y,,2010-01-01,정제\n" +
	"\n" +
	"101,부루펜정,Brufen Tab,Ibuprofen,N,정상,2012-01-01,정제\n" +
	"102,이부정,Ibu Tab,Ibuprofen,N,취소,2014-01-01,정제\n"

func TestParseCSVCatalog(t *testing.T) {
	table, err := Parse("mfds.csv", strings.NewReader(catalogCSV))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("Expected 3 rows (blank line skipped), got %d", len(table.Rows))
	}

	rows, err := CatalogRows(table)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	records := Ingest(rows)
	if records[0].ItemCode != "100" || records[0].Ingredient != "Ibuprofen" {
		t.Errorf("Expected aliased columns to be canonicalized, got %+v", records[0])
	}
	if records[2].Active {
		t.Error("Expected cancelled row to be inactive")
	}

	d := Diagnose(table, true)
	if len(d.MissingColumns) != 0 {
		t.Errorf("Expected no missing columns, got %v", d.MissingColumns)
	}
	if d.ActiveRowCount == nil || *d.ActiveRowCount != 2 {
		t.Errorf("Expected 2 active rows, got %v", d.ActiveRowCount)
	}
}

func TestParseTSVWithBOM(t *testing.T) {
	input := "\xef\xbb\xbfNo\tproduct\tMemo\n1\tAdvil 200mg\tx\n2\tTylenol\n"
	table, err := Parse("source.tsv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Headers[0] != "No" {
		t.Errorf("Expected BOM to be stripped, got %q", table.Headers[0])
	}

	rows, err := SourceRows(table)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sources := SourcesFromRows(rows)
	if sources[1].ID != "2" || sources[1].Label != "Tylenol" {
		t.Errorf("Expected second source 2/Tylenol, got %+v", sources[1])
	}
	if sources[1].Extra["Memo"] != "" {
		t.Errorf("Expected short line to be padded, got %v", sources[1].Extra["Memo"])
	}
}

func TestSourceRowsWithoutSequence(t *testing.T) {
	table := &Table{Headers: []string{"Product"}, Rows: []Row{{"Product": "A"}, {"Product": "B"}}}
	rows, err := SourceRows(table)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rows[1][FieldSourceID] != "2" {
		t.Errorf("Expected generated sequence 2, got %v", rows[1][FieldSourceID])
	}

	if _, err := SourceRows(&Table{Headers: []string{"foo"}}); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("Expected ErrMissingColumns, got %v", err)
	}
}

func TestParseEUCKR(t *testing.T) {
	utf8Input := "순번,Product\n1,타이레놀\n"
	encoded, err := korean.EUCKR.NewEncoder().String(utf8Input)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}

	table, err := Parse("source.csv", strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Headers[0] != "순번" {
		t.Errorf("Expected decoded header 순번, got %q", table.Headers[0])
	}
	if table.Rows[0]["Product"] != "타이레놀" {
		t.Errorf("Expected decoded value 타이레놀, got %v", table.Rows[0]["Product"])
	}
}

func TestParseJSON(t *testing.T) {
	input := `[{"순번": 1, "Product": "Advil"}, {"순번": 2, "Product": "Brufen", "extra": true}]`
	table, err := Parse("source.json", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(table.Headers) != 3 {
		t.Errorf("Expected 3 headers, got %v", table.Headers)
	}

	sources, err := SourceRows(table)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := SourcesFromRows(sources)[0].ID; got != "1" {
		t.Errorf("Expected numeric JSON id rendered as 1, got %q", got)
	}
}

func TestParseUnsupported(t *testing.T) {
	if _, err := Parse("catalog.xlsx", strings.NewReader("")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseMappingRows(t *testing.T) {
	table := &Table{
		Headers: []string{"Product_code_token", "mapped_mfds_item_code", "Mapped Ingredient Base", "product_name"},
		Rows: []Row{
			{"Product_code_token": "ADV", "mapped_mfds_item_code": " 100 ", "Mapped Ingredient Base": "", "product_name": ""},
			{"Product_code_token": "", "mapped_mfds_item_code": "101"},
			{"Product_code_token": "BRU", "Mapped Ingredient Base": "ibuprofen", "product_name": "Brufen"},
		},
	}

	entries := ParseMappingRows(table)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries (empty token dropped), got %d", len(entries))
	}
	if entries[0].ItemCode != "100" {
		t.Errorf("Expected trimmed item code 100, got %q", entries[0].ItemCode)
	}
	if entries[1].IngredientBase != "ibuprofen" || entries[1].ProductName != "Brufen" {
		t.Errorf("Expected loosely matched headers, got %+v", entries[1])
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mfds.csv")
	if err := os.WriteFile(path, []byte(catalogCSV), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	records, err := NewFileLoader(path).LoadCatalog()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}

	if _, err := NewFileLoader(filepath.Join(dir, "missing.csv")).LoadCatalog(); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("Expected defaults to be valid, got %v", err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"bad basis", Options{GenericCountBasis: "form", GenericDefinition: DefinitionExclOriginal, CancelFilter: CancelAll}},
		{"bad definition", Options{GenericCountBasis: BasisBase, GenericDefinition: "x", CancelFilter: CancelAll}},
		{"bad filter", Options{GenericCountBasis: BasisBase, GenericDefinition: DefinitionExclOriginal, CancelFilter: "none"}},
		{"threshold", Options{GenericCountBasis: BasisBase, GenericDefinition: DefinitionExclOriginal, CancelFilter: CancelAll, ReviewThreshold: 1.5}},
		{"negative threshold", Options{GenericCountBasis: BasisBase, GenericDefinition: DefinitionExclOriginal, CancelFilter: CancelAll, ReviewThreshold: -0.1}},
		{"NaN threshold", Options{GenericCountBasis: BasisBase, GenericDefinition: DefinitionExclOriginal, CancelFilter: CancelAll, ReviewThreshold: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	filled := Options{ReviewThreshold: 0.5}.WithDefaults()
	if filled.GenericCountBasis != BasisBase || filled.ReviewThreshold != 0.5 {
		t.Errorf("Expected defaults filled and threshold kept, got %+v", filled)
	}
}
