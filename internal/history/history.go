// Package history filters and groups an account's transaction log for
// display.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

type Category string

const (
	CategoryAll     Category = "all"
	CategoryIncome  Category = "income"
	CategoryExpense Category = "expense"
	CategorySwap    Category = "swap"
	CategoryStake   Category = "stake"
)

func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryIncome, CategoryExpense, CategorySwap, CategoryStake:
		return c, nil
	}
	return "", fmt.Errorf("unknown history category %q", s)
}

// Match reports whether rec belongs to the category. Income excludes swaps
// and expense excludes stakes; Governance earnings count as staking.
func (c Category) Match(rec wallet.Record) bool {
	switch c {
	case CategoryIncome:
		return rec.Amount > 0 && rec.Kind != wallet.KindSwap
	case CategoryExpense:
		return rec.Amount < 0 && rec.Kind != wallet.KindStake
	case CategorySwap:
		return rec.Kind == wallet.KindSwap
	case CategoryStake:
		return rec.Kind == wallet.KindStake || (rec.Kind == wallet.KindEarn && rec.Token == wallet.Governance)
	default:
		return true
	}
}

// Filter narrows a history query. Zero fields do not filter. From and To are
// calendar dates in Location: From is inclusive from its start of day and To
// inclusive to its end of day.
type Filter struct {
	Category Category
	Token    wallet.Token
	From     time.Time
	To       time.Time
	Search   string
	Location *time.Location
}

func (f Filter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Match applies all criteria of f to rec.
func (f Filter) Match(rec wallet.Record) bool {
	if !f.Category.Match(rec) {
		return false
	}
	if f.Token != "" && rec.Token != f.Token {
		return false
	}
	loc := f.location()
	if !f.From.IsZero() && rec.Timestamp.Before(startOfDay(f.From, loc)) {
		return false
	}
	if !f.To.IsZero() && !rec.Timestamp.Before(startOfDay(f.To, loc).AddDate(0, 0, 1)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(rec.Label), q) &&
			!strings.Contains(strings.ToLower(rec.SubLabel), q) &&
			!strings.Contains(strings.ToLower(rec.Reference), q) {
			return false
		}
	}
	return true
}

// Apply returns the matching records, most recent first.
func Apply(records []wallet.Record, f Filter) []wallet.Record {
	out := make([]wallet.Record, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Source lists an account's records.
type Source interface {
	Records(ctx context.Context, accountID string) ([]wallet.Record, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Query reads the log and filters it. It never mutates anything, so equal
// queries over an unchanged log return equal results.
func (s *Service) Query(ctx context.Context, accountID string, f Filter) ([]wallet.Record, error) {
	recs, err := s.source.Records(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return Apply(recs, f), nil
}

// DayGroup holds the records of one calendar day.
type DayGroup struct {
	Label   string
	Date    time.Time
	Records []wallet.Record
}

// DayLabel names the day of t relative to now: "Today", "Yesterday" or
// a date like "Jan 2, 2006".
func DayLabel(t, now time.Time, loc *time.Location) string {
	day := startOfDay(t, loc)
	today := startOfDay(now, loc)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Jan 2, 2006")
	}
}

// Group buckets records by local calendar day, most recent day first.
// Records keep their relative order inside a day.
func Group(records []wallet.Record, now time.Time, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.UTC
	}
	sorted := make([]wallet.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	var groups []DayGroup
	for _, rec := range sorted {
		day := startOfDay(rec.Timestamp, loc)
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Records = append(groups[n-1].Records, rec)
			continue
		}
		groups = append(groups, DayGroup{
			Label:   DayLabel(rec.Timestamp, now, loc),
			Date:    day,
			Records: []wallet.Record{rec},
		})
	}
	return groups
}
