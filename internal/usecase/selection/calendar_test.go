package selection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/usecase/schedule"
)

func parseTable(t *testing.T, body string) *schedule.Table {
	t.Helper()
	table, err := schedule.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	return table
}

func newCalendar(t *testing.T, table *schedule.Table) *Calendar {
	t.Helper()
	catalog := testCatalog()
	fallback, err := NewRandom(catalog, 0)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	selector, err := NewCalendar(catalog, table, fallback, zerolog.Nop())
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return selector
}

func TestCalendarSelectsTableEntriesInOrder(t *testing.T) {
	table := parseTable(t, `{
		"meta": {"calendar": "hebrew", "year": 5786},
		"schedule": {
			"tishrei:1": {"section": "orach_chaim", "chapter": 1, "note": "rosh hashana"},
			"tishrei:2": {"section": "orach_chaim", "chapter": 2}
		}
	}`)
	selector := newCalendar(t, table)

	// 2025-09-23 is 1 Tishrei 5786.
	sel, err := selector.Select(day(2025, time.September, 23))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel.Strategy != domain.StrategyCalendar {
		t.Fatalf("unexpected strategy %q", sel.Strategy)
	}
	want := []domain.Excerpt{
		{SectionID: "orach_chaim", Chapter: 1},
		{SectionID: "orach_chaim", Chapter: 2},
	}
	for i := range want {
		if sel.Excerpts[i] != want[i] {
			t.Fatalf("excerpt %d: expected %+v, got %+v", i, want[i], sel.Excerpts[i])
		}
	}
	if len(sel.Notes) != 1 || sel.Notes[0] != "rosh hashana" {
		t.Fatalf("expected the entry note to be carried, got %v", sel.Notes)
	}
}

func TestCalendarFallsBackWhenEntryMissing(t *testing.T) {
	table := parseTable(t, `{
		"meta": {"calendar": "hebrew", "year": 5786},
		"schedule": {
			"tishrei:1": {"section": "orach_chaim", "chapter": 1}
		}
	}`)
	selector := newCalendar(t, table)

	// 2 Tishrei has no companion entry, 3 Tishrei none at all: both days
	// must degrade to the random strategy instead of erroring.
	for _, d := range []time.Time{day(2025, time.September, 24), day(2025, time.September, 25)} {
		sel, err := selector.Select(d)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", d.Format("2006-01-02"), err)
		}
		if sel.Strategy != domain.StrategyCalendarFallback {
			t.Fatalf("expected fallback strategy, got %q", sel.Strategy)
		}
		if sel.Excerpts[0].SectionID == sel.Excerpts[1].SectionID {
			t.Fatal("fallback must keep the two-section invariant")
		}
	}
}

func TestCalendarFallsBackOnYearRollover(t *testing.T) {
	// The table covers both ends of its year, but on the last night the
	// companion is 1 Tishrei of the NEXT year. Keys carry no year, so the
	// lookup must not wrap onto this table's own first entry.
	table := parseTable(t, `{
		"meta": {"calendar": "hebrew", "year": 5786},
		"schedule": {
			"tishrei:1": {"section": "orach_chaim", "chapter": 1},
			"elul:29": {"section": "choshen_mishpat", "chapter": 75}
		}
	}`)
	selector := newCalendar(t, table)

	// 2026-09-11 is 29 Elul 5786; the next day starts year 5787.
	sel, err := selector.Select(day(2026, time.September, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Strategy != domain.StrategyCalendarFallback {
		t.Fatalf("expected fallback on the year rollover, got %q", sel.Strategy)
	}
}

func TestCalendarRejectsOutOfRangeChapter(t *testing.T) {
	table := parseTable(t, `{
		"meta": {"calendar": "hebrew", "year": 5786},
		"schedule": {
			"tishrei:1": {"section": "even_haezer", "chapter": 99},
			"tishrei:2": {"section": "orach_chaim", "chapter": 1}
		}
	}`)
	selector := newCalendar(t, table)

	_, err := selector.Select(day(2025, time.September, 23))
	var integrity *domain.DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
	if integrity.DateKey != "tishrei:1" {
		t.Fatalf("unexpected date key %q", integrity.DateKey)
	}
}

func TestCalendarRejectsUnknownSection(t *testing.T) {
	table := parseTable(t, `{
		"meta": {"calendar": "hebrew", "year": 5786},
		"schedule": {
			"tishrei:1": {"section": "orach_chaim", "chapter": 1},
			"tishrei:2": {"section": "nonexistent", "chapter": 1}
		}
	}`)
	selector := newCalendar(t, table)

	_, err := selector.Select(day(2025, time.September, 23))
	var integrity *domain.DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
}

func TestCalendarDeterministic(t *testing.T) {
	body := `{
		"meta": {"calendar": "hebrew", "year": 5786},
		"schedule": {
			"shevat:9": {"section": "yoreh_deah", "chapter": 40},
			"shevat:10": {"section": "yoreh_deah", "chapter": 41, "note": "same volume pair"}
		}
	}`
	first := newCalendar(t, parseTable(t, body))
	second := newCalendar(t, parseTable(t, body))

	// 2026-01-27 is 9 Shevat 5786.
	a, err := first.Select(day(2026, time.January, 27))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := second.Select(day(2026, time.January, 27))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a.Excerpts {
		if a.Excerpts[i] != b.Excerpts[i] {
			t.Fatal("calendar selection not deterministic across instances")
		}
	}
}
