package interactions

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Period enum for report windows.
type Period string

const (
	PeriodDaily   Period = "Daily"
	PeriodWeekly  Period = "Weekly"
	PeriodMonthly Period = "Monthly"
)

const day = 24 * time.Hour

// Window returns the trailing span covered by p.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDaily:
		return day
	case PeriodWeekly:
		return 7 * day
	case PeriodMonthly:
		return 30 * day
	}
	return 0
}

// Slug is the lower-case form used in filenames and URLs.
func (p Period) Slug() string { return strings.ToLower(string(p)) }

// ParsePeriod accepts daily/weekly/monthly in either case, plus the
// Portuguese labels used by the original reports.
func ParsePeriod(s string) (Period, error) {
	switch key(s) {
	case "daily", "day", "diário", "diario":
		return PeriodDaily, nil
	case "weekly", "week", "semanal":
		return PeriodWeekly, nil
	case "monthly", "month", "mensal":
		return PeriodMonthly, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidInput, s)
}

// FilterByPeriod keeps records with now - timestamp < window. A record exactly
// on the boundary is excluded. Order of the input is preserved.
func FilterByPeriod(records []Record, p Period, now time.Time) []Record {
	w := p.Window()
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if now.Sub(r.Timestamp) < w {
			out = append(out, r)
		}
	}
	return out
}

// SortNewestFirst orders records by timestamp descending. Ties keep their
// relative order.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}
