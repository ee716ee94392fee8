package selection

import (
	"time"

	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/hebcal"
	"halacha-yomi-bot/internal/usecase/schedule"
)

// Calendar selects the day's pair from the yearly schedule table, keyed by
// the Hebrew date. The pair is the portion for the date together with the
// following date's portion, in table order; when either entry is missing the
// whole day falls back to the random strategy with a warning, so a stale
// table degrades instead of failing.
type Calendar struct {
	catalog  *domain.Catalog
	table    *schedule.Table
	fallback domain.Selector
	log      zerolog.Logger
}

// NewCalendar builds the strategy. The fallback selector is required.
func NewCalendar(catalog *domain.Catalog, table *schedule.Table, fallback domain.Selector, log zerolog.Logger) (*Calendar, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, &domain.ConfigurationError{Reason: "calendar strategy needs a schedule table"}
	}
	if fallback == nil {
		return nil, &domain.ConfigurationError{Reason: "calendar strategy needs a fallback selector"}
	}
	return &Calendar{catalog: catalog, table: table, fallback: fallback, log: log}, nil
}

// Select implements domain.Selector.
func (s *Calendar) Select(date time.Time) (domain.DailySelection, error) {
	today := hebcal.FromGregorian(date)
	companion := hebcal.FromGregorian(date.AddDate(0, 0, 1))

	first, okFirst := s.lookup(today)
	second, okSecond := s.lookup(companion)
	if !okFirst || !okSecond {
		s.log.Warn().
			Str("date", date.Format("2006-01-02")).
			Str("hebrew_date", today.Key()).
			Int("table_year", s.table.Meta().Year).
			Msg("schedule table has no entry, falling back to random selection")
		fallback, err := s.fallback.Select(date)
		if err != nil {
			return domain.DailySelection{}, err
		}
		fallback.Strategy = domain.StrategyCalendarFallback
		return fallback, nil
	}

	excerpts := make([]domain.Excerpt, 0, 2)
	notes := make([]string, 0, 2)
	for _, entry := range []domain.ScheduleEntry{first, second} {
		if err := s.check(entry); err != nil {
			return domain.DailySelection{}, err
		}
		excerpts = append(excerpts, entry.Excerpt)
		if entry.Note != "" {
			notes = append(notes, entry.Note)
		}
	}

	// The table may legitimately keep both portions in one section; that is
	// flagged, not normalized, unless an entry note explains it.
	if excerpts[0].SectionID == excerpts[1].SectionID && len(notes) == 0 {
		s.log.Warn().
			Str("section", excerpts[0].SectionID).
			Str("hebrew_date", today.Key()).
			Msg("schedule pair comes from a single section without a note")
	}

	return domain.DailySelection{
		Date:     date,
		Excerpts: excerpts,
		Strategy: domain.StrategyCalendar,
		Notes:    notes,
	}, nil
}

// lookup resolves a Hebrew date against the table. Table keys carry no year,
// so a date outside the table's year must read as missing: on the last night
// of the year the companion lookup would otherwise wrap onto the table's own
// first entry.
func (s *Calendar) lookup(d hebcal.Date) (domain.ScheduleEntry, bool) {
	if d.Year != s.table.Meta().Year {
		return domain.ScheduleEntry{}, false
	}
	return s.table.Lookup(d.Key())
}

// check verifies a loaded entry against the catalog. A mismatch means the
// table itself is wrong and must be fixed at the source, so the day fails.
func (s *Calendar) check(entry domain.ScheduleEntry) error {
	section, ok := s.catalog.ByID(entry.Excerpt.SectionID)
	if !ok {
		return &domain.DataIntegrityError{DateKey: entry.DateKey, Reason: "unknown section " + entry.Excerpt.SectionID}
	}
	if entry.Excerpt.Chapter < 1 || entry.Excerpt.Chapter > section.Chapters {
		return &domain.DataIntegrityError{
			DateKey: entry.DateKey,
			Reason:  "chapter out of range for " + section.ID,
		}
	}
	return nil
}
