// Package catalog holds the reference catalog and source list data model: canonical field names,
// ingestion of flat field maps into records, matching options and the file loaders that feed
// the matching pipeline.
package catalog

// Canonical catalog field names, as found in the MFDS master list.
const (
	FieldItemCode     = "품목기준코드"
	FieldName         = "제품명"
	FieldEnglishName  = "제품영문명"
	FieldIngredient   = "주성분"
	FieldDosageForm   = "제형"
	FieldNewDrug      = "신약구분"
	FieldApprovalDate = "허가일자"
	FieldCancellation = "취소취하"
)

// Canonical source list field names.
const (
	FieldSourceID = "순번"
	FieldProduct  = "Product"
)

// NewDrugFlag marks an original (new drug) catalog entry.
const NewDrugFlag = "Y"

// Row is one flat record keyed by column name, as delivered by the file loaders.
type Row map[string]any

// ReferenceRecord is one catalog entry. Records are created in bulk at ingest and never
// modified; everything downstream refers to them by Pos.
type ReferenceRecord struct {
	Pos          int    `json:"-"`
	ItemCode     string `json:"품목기준코드"`
	Name         string `json:"제품명"`
	EnglishName  string `json:"제품영문명"`
	Ingredient   string `json:"주성분"`
	DosageForm   string `json:"제형"`
	NewDrug      string `json:"신약구분"`
	ApprovalDate string `json:"허가일자"`
	Cancellation string `json:"취소취하"`

	NameNorm        string `json:"-"`
	EnglishNameNorm string `json:"-"`
	IngredientBase  string `json:"-"`
	FormKey         string `json:"-"`
	Active          bool   `json:"-"`
	ApprovedAt      int64  `json:"-"` // Unix millis, 0 when the date could not be parsed
}

// IsOriginal reports whether the record is flagged as the original (new drug) product.
func (r *ReferenceRecord) IsOriginal() bool {
	return r.NewDrug == NewDrugFlag
}

// SourceRecord is one item of the source list to be linked against the catalog.
type SourceRecord struct {
	ID    string         `json:"순번"`
	Label string         `json:"Product"`
	Extra map[string]any `json:"-"`
}

// MappingEntry is a manual override keyed by the label's code token.
type MappingEntry struct {
	CodeToken      string `json:"Product_code_token" yaml:"code_token"`
	ItemCode       string `json:"mapped_mfds_item_code,omitempty" yaml:"item_code"`
	IngredientBase string `json:"mapped_ingredient_base,omitempty" yaml:"ingredient_base"`
	ProductName    string `json:"mapped_mfds_product_name,omitempty" yaml:"product_name"`
}
