package repository

import (
	"context"
	"strings"

	"holdings-imports-backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Projection is the allow-list of columns returned to clients.
var Projection = []string{
	"id",
	"scheme_name",
	"instrument_name",
	"quantity",
	"pct_to_nav",
	"report_date",
	"report_date_iso",
	"isin",
	"rating",
	"ytm",
	"modified_time",
	"market_value_lacs",
	"market_value",
}

// Newest first; id breaks ties so pages never overlap or skip rows.
const (
	orderModified = "modified_time DESC NULLS LAST"
	orderID       = "id DESC"
)

type ImportRepository struct {
	db *gorm.DB

	// When set, rows without report_date_iso are matched against
	// modified_time for report-date ranges. Older ingests only carry the
	// display string, so turning this off hides them from such queries.
	reportDateFallback bool
}

func NewImportRepository(db *gorm.DB, reportDateFallback bool) *ImportRepository {
	return &ImportRepository{db: db, reportDateFallback: reportDateFallback}
}

// List returns one page of matching rows and the total match count.
// The page and the count run concurrently on separate connections.
func (r *ImportRepository) List(ctx context.Context, f ImportFilter, offset, limit int) ([]models.ImportRecord, int64, error) {
	var (
		items []models.ImportRecord
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.filtered(gctx, f).
			Select(Projection).
			Order(orderModified).
			Order(orderID).
			Offset(offset).
			Limit(limit).
			Find(&items).Error
	})
	g.Go(func() error {
		return r.filtered(gctx, f).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if items == nil {
		items = []models.ImportRecord{}
	}
	return items, total, nil
}

// DistinctRatings lists every non-empty rating value stored.
func (r *ImportRepository) DistinctRatings(ctx context.Context) ([]string, error) {
	var ratings []string
	err := r.db.WithContext(ctx).
		Model(&models.ImportRecord{}).
		Where("rating <> ''").
		Distinct("rating").
		Order("rating").
		Pluck("rating", &ratings).Error
	return ratings, err
}

func (r *ImportRepository) filtered(ctx context.Context, f ImportFilter) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ImportRecord{}).
		Scopes(FilterScope(f, r.reportDateFallback))
}

// FilterScope turns an ImportFilter into WHERE clauses. Clauses are
// AND-ed; absent criteria add nothing.
func FilterScope(f ImportFilter, reportDateFallback bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = whereContains(db, "scheme_name", f.Scheme)
		db = whereContains(db, "instrument_name", f.Instrument)
		db = whereContains(db, "isin", f.ISIN)

		if sql, args := ratingPrefixes(f.Ratings); sql != "" {
			db = db.Where(sql, args...)
		}

		db = whereRange(db, "quantity", f.Quantity)
		db = whereRange(db, "pct_to_nav", f.PctToNAV)
		db = whereRange(db, "ytm", f.YTM)
		db = whereRange(db, models.MarketValueExpr, f.MarketValue)

		if !f.ReportDate.IsZero() {
			isoSQL, isoArgs := timeRangeSQL("report_date_iso", f.ReportDate)
			if reportDateFallback {
				modSQL, modArgs := timeRangeSQL("modified_time", f.ReportDate)
				db = db.Where("(("+isoSQL+") OR (report_date_iso IS NULL AND "+modSQL+"))",
					append(isoArgs, modArgs...)...)
			} else {
				db = db.Where(isoSQL, isoArgs...)
			}
		}

		if !f.Modified.IsZero() {
			modSQL, modArgs := timeRangeSQL("modified_time", f.Modified)
			db = db.Where(modSQL, modArgs...)
		}
		return db
	}
}

func whereContains(db *gorm.DB, column, value string) *gorm.DB {
	value = strings.TrimSpace(value)
	if value == "" {
		return db
	}
	return db.Where("LOWER("+column+`) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(value))+"%")
}

func ratingPrefixes(ratings []string) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for _, rating := range ratings {
		rating = strings.TrimSpace(rating)
		if rating == "" {
			continue
		}
		parts = append(parts, `LOWER(rating) LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(strings.ToLower(rating))+"%")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func whereRange(db *gorm.DB, expr string, r Range) *gorm.DB {
	if r.Min != nil {
		db = db.Where(expr+" >= ?", *r.Min)
	}
	if r.Max != nil {
		db = db.Where(expr+" <= ?", *r.Max)
	}
	return db
}

func timeRangeSQL(column string, r TimeRange) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if r.From != nil {
		parts = append(parts, column+" >= ?")
		args = append(args, r.From.UTC())
	}
	if r.To != nil {
		parts = append(parts, column+" <= ?")
		args = append(args, r.To.UTC())
	}
	return strings.Join(parts, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
