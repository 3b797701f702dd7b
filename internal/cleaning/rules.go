package cleaning

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapclean/internal/table"
)

// DateLayout is the normalized representation of a calendar date.
const DateLayout = "2006-01-02"

// dateLayouts are the only inputs ParseDate accepts. Anything else is
// treated as unparseable rather than guessed at.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"01/02/2006",
}

// ParseDate parses s as a calendar date using a fixed set of layouts.
// Out-of-range fields (month 13, February 30) fail to parse.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterPriceRange keeps the rows whose price column holds a number within
// [minPrice, maxPrice]. Rows with a missing or non-numeric price are
// dropped. Row order is preserved; an empty result is not an error.
func FilterPriceRange(t *table.Table, column string, minPrice, maxPrice int) (*table.Table, error) {
	price, err := t.FloatColumn(column)
	if err != nil {
		return nil, err
	}

	lo, hi := float64(minPrice), float64(maxPrice)
	return t.Filter(func(i int) bool {
		v, ok := price.At(i)
		return ok && v >= lo && v <= hi
	}), nil
}

// NormalizeDates rewrites column as normalized dates in place. Values that
// do not parse become the missing marker; the row is kept. It returns the
// number of cells that are missing after normalization.
func NormalizeDates(t *table.Table, column string) (int, error) {
	col, err := t.Column(column)
	if err != nil {
		return 0, err
	}

	missing := 0
	for i := 0; i < t.Len(); i++ {
		cell := col.At(i)
		if !cell.Valid {
			missing++
			continue
		}
		d, ok := ParseDate(cell.Value)
		if !ok {
			col.Set(i, table.Missing)
			missing++
			continue
		}
		col.Set(i, table.Text(d.Format(DateLayout)))
	}
	return missing, nil
}

// checkBounds validates a price range.
func checkBounds(minPrice, maxPrice int) error {
	if minPrice > maxPrice {
		return fmt.Errorf("min_price %d is greater than max_price %d", minPrice, maxPrice)
	}
	return nil
}
