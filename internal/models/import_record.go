package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LacsMultiplier converts a value expressed in lacs to absolute rupees.
const LacsMultiplier = 100000

// MarketValueExpr is the SQL form of DeriveMarketValue, used wherever a
// predicate needs the absolute market value.
const MarketValueExpr = "COALESCE(market_value, market_value_lacs * 100000)"

// ImportRecord is one holding line-item of a fund portfolio disclosure.
// Rows are written by an external ingestion job; this service only reads.
// Nil pointers mean the source sheet had no value for the field.
type ImportRecord struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"_id"`
	SchemeName      string     `gorm:"index" json:"scheme_name,omitempty"`
	InstrumentName  string     `json:"instrument_name,omitempty"`
	ISIN            string     `gorm:"column:isin;index" json:"isin,omitempty"`
	ReportDate      string     `json:"report_date,omitempty"`
	ReportDateISO   *time.Time `gorm:"column:report_date_iso;index" json:"report_date_iso,omitempty"`
	Quantity        *float64   `gorm:"index" json:"quantity,omitempty"`
	PctToNAV        *float64   `gorm:"column:pct_to_nav" json:"pct_to_nav,omitempty"`
	MarketValueLacs *float64   `gorm:"column:market_value_lacs" json:"market_value_lacs,omitempty"`
	MarketValueAbs  *float64   `gorm:"column:market_value" json:"-"`
	Rating          string     `gorm:"index" json:"rating,omitempty"`
	YTM             *float64   `gorm:"column:ytm" json:"ytm,omitempty"`
	ModifiedTime    *time.Time `gorm:"column:modified_time;index" json:"_modifiedTime,omitempty"`

	// Provenance, carried opaquely.
	FileID     string         `gorm:"column:file_id" json:"-"`
	FileName   string         `gorm:"column:file_name" json:"-"`
	SheetTitle string         `gorm:"column:sheet_title" json:"-"`
	RowIndex   *int           `gorm:"column:row_index" json:"-"`
	Source     string         `gorm:"column:source" json:"-"`
	Extra      datatypes.JSON `gorm:"column:extra" json:"-"`

	// MarketValue is the absolute market value in rupees, filled after load.
	MarketValue *float64 `gorm:"-" json:"market_value,omitempty"`
}

func (ImportRecord) TableName() string {
	return "drive_imports"
}

// AfterFind fills the derived market value once per loaded row.
func (r *ImportRecord) AfterFind(tx *gorm.DB) error {
	r.MarketValue = DeriveMarketValue(r.MarketValueAbs, r.MarketValueLacs)
	return nil
}

// DeriveMarketValue prefers an absolute value and otherwise converts lacs.
// It returns nil when neither is present.
func DeriveMarketValue(absolute, lacs *float64) *float64 {
	if absolute != nil {
		v := *absolute
		return &v
	}
	if lacs != nil {
		v := decimal.NewFromFloat(*lacs).Mul(decimal.NewFromInt(LacsMultiplier)).InexactFloat64()
		return &v
	}
	return nil
}
