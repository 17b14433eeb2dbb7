package imports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"holdings-imports-backend/internal/models"
	"holdings-imports-backend/internal/repository"

	"github.com/patrickmn/go-cache"
)

// Store is the data access the service needs. *repository.ImportRepository
// satisfies it.
type Store interface {
	List(ctx context.Context, f repository.ImportFilter, offset, limit int) ([]models.ImportRecord, int64, error)
	DistinctRatings(ctx context.Context) ([]string, error)
}

// ResultPage is the wire envelope of GET /api/imports.
type ResultPage struct {
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	Total      int64                 `json:"total"`
	TotalPages int                   `json:"totalPages"`
	Items      []models.ImportRecord `json:"items"`
}

// StandardRatings are the rating labels offered by the filter form
// regardless of what has been ingested so far.
var StandardRatings = []string{
	"Sovereign", "SOVEREIGN", "SOV",
	"AAA", "AAA (CE)", "AAA (SO)",
	"AA+", "AA+ (CE)", "AA+ (SO)",
	"AA", "AA (CE)", "AA (SO)",
	"AA-", "AA- (CE)", "AA- (SO)",
	"A+", "A+ (CE)", "A+ (SO)",
	"A", "A (CE)", "A (SO)",
	"A-", "A- (CE)", "A- (SO)",
	"BBB+", "BBB+ (CE)", "BBB+ (SO)",
	"BBB", "BBB (CE)", "BBB (SO)",
	"BBB-", "BBB- (CE)", "BBB- (SO)",
	"BB+", "BB", "BB-", "B+", "B", "B-", "C", "D",
	"A1+", "A1", "A2+", "A2", "A3+", "A3", "A4+", "A4",
	"Unrated", "Not Rated", "NR",
	"CRISIL AAA", "[ICRA]AAA", "IND AAA", "CARE AAA", "ICRA",
	"CRISIL A1+", "[ICRA]A1+", "IND A1+", "CARE A1+",
}

const ratingsCacheKey = "ratings"

type ImportService struct {
	store   Store
	ratings *cache.Cache // nil when caching is disabled
}

// NewImportService caches the ratings catalog for ratingsTTL; a TTL of
// zero or less disables the cache.
func NewImportService(store Store, ratingsTTL time.Duration) *ImportService {
	s := &ImportService{store: store}
	if ratingsTTL > 0 {
		s.ratings = cache.New(ratingsTTL, 2*ratingsTTL)
	}
	return s
}

// List runs one normalized query and wraps the result in a ResultPage.
// On error nothing partial is returned.
func (s *ImportService) List(ctx context.Context, q Query) (*ResultPage, error) {
	items, total, err := s.store.List(ctx, q.Filter, q.Offset(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	if items == nil {
		items = []models.ImportRecord{}
	}
	return &ResultPage{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: TotalPages(total, q.Limit),
		Items:      items,
	}, nil
}

// Ratings returns the standard labels followed by any other stored
// ratings, sorted. The result is cached.
func (s *ImportService) Ratings(ctx context.Context) ([]string, error) {
	if s.ratings != nil {
		if v, ok := s.ratings.Get(ratingsCacheKey); ok {
			return v.([]string), nil
		}
	}

	stored, err := s.store.DistinctRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct ratings: %w", err)
	}

	known := make(map[string]bool, len(StandardRatings))
	out := make([]string, 0, len(StandardRatings)+len(stored))
	for _, r := range StandardRatings {
		known[r] = true
		out = append(out, r)
	}
	var extra []string
	for _, r := range stored {
		if !known[r] {
			known[r] = true
			extra = append(extra, r)
		}
	}
	sort.Strings(extra)
	out = append(out, extra...)

	if s.ratings != nil {
		s.ratings.SetDefault(ratingsCacheKey, out)
	}
	return out, nil
}
