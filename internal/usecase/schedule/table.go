// Package schedule loads and validates the yearly learning table that maps
// Hebrew dates to Likutei Halachot portions.
package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/hebcal"
)

// Meta describes the calendar cycle a table covers.
type Meta struct {
	Calendar    string `json:"calendar"`
	Year        int    `json:"year"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

type fileEntry struct {
	Section string `json:"section"`
	Chapter int    `json:"chapter"`
	Part    int    `json:"part,omitempty"`
	Ref     string `json:"ref,omitempty"`
	HeRef   string `json:"heRef,omitempty"`
	Note    string `json:"note,omitempty"`
}

type fileFormat struct {
	Meta     Meta                 `json:"meta"`
	Schedule map[string]fileEntry `json:"schedule"`
}

// Table is the loaded schedule. Read-only after load.
type Table struct {
	meta    Meta
	entries map[string]domain.ScheduleEntry
}

// Load reads and parses a schedule file. Parse failures are configuration
// errors; integrity of the content is checked separately via Validate so a
// single pass can report every problem.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("schedule file %s: %v", path, err)}
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a schedule table from JSON.
func Parse(r io.Reader) (*Table, error) {
	var raw fileFormat
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &domain.ConfigurationError{Reason: "schedule file is not valid JSON: " + err.Error()}
	}
	if raw.Meta.Calendar != "hebrew" {
		return nil, &domain.ConfigurationError{Reason: "schedule calendar must be \"hebrew\", got " + raw.Meta.Calendar}
	}
	if raw.Meta.Year == 0 {
		return nil, &domain.ConfigurationError{Reason: "schedule meta.year is missing"}
	}

	entries := make(map[string]domain.ScheduleEntry, len(raw.Schedule))
	for key, e := range raw.Schedule {
		entries[key] = domain.ScheduleEntry{
			DateKey:   key,
			Excerpt:   domain.Excerpt{SectionID: e.Section, Chapter: e.Chapter, Part: e.Part},
			HebrewRef: e.HeRef,
			Note:      e.Note,
		}
	}
	return &Table{meta: raw.Meta, entries: entries}, nil
}

// Meta returns the coverage metadata.
func (t *Table) Meta() Meta { return t.meta }

// Lookup returns the entry for a "month:day" key.
func (t *Table) Lookup(key string) (domain.ScheduleEntry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of loaded entries.
func (t *Table) Len() int { return len(t.entries) }

// Validate checks the whole table against the catalog and returns every
// violation found, not just the first one:
//   - each date of the covered Hebrew year resolves to an entry,
//   - referenced sections exist in the catalog,
//   - chapter numbers fit the section's chapter count,
//   - chapters never decrease within a section across consecutive dates
//     unless the entry carries an explicit note.
func (t *Table) Validate(catalog *domain.Catalog) []domain.DataIntegrityError {
	var problems []domain.DataIntegrityError
	report := func(key, format string, args ...any) {
		problems = append(problems, domain.DataIntegrityError{DateKey: key, Reason: fmt.Sprintf(format, args...)})
	}

	year := t.meta.Year
	lastChapter := make(map[string]int)

	for _, month := range hebcal.YearMonths(year) {
		for day := 1; day <= hebcal.DaysInMonth(year, month); day++ {
			key := hebcal.Date{Year: year, Month: month, Day: day}.Key()
			entry, ok := t.entries[key]
			if !ok {
				report(key, "no entry for this date")
				continue
			}

			section, ok := catalog.ByID(entry.Excerpt.SectionID)
			if !ok {
				report(key, "unknown section %q", entry.Excerpt.SectionID)
				continue
			}
			if entry.Excerpt.Chapter < 1 || entry.Excerpt.Chapter > section.Chapters {
				report(key, "chapter %d out of range for %s (1..%d)", entry.Excerpt.Chapter, section.ID, section.Chapters)
				continue
			}

			if last, seen := lastChapter[section.ID]; seen && entry.Excerpt.Chapter < last && entry.Note == "" {
				report(key, "chapter %d regresses from %d in %s without a note", entry.Excerpt.Chapter, last, section.ID)
			}
			lastChapter[section.ID] = entry.Excerpt.Chapter
		}
	}

	// Entries for dates outside the covered year point at a stale or
	// mis-keyed table.
	known := make(map[string]struct{})
	for _, month := range hebcal.YearMonths(year) {
		for day := 1; day <= hebcal.DaysInMonth(year, month); day++ {
			known[hebcal.Date{Year: year, Month: month, Day: day}.Key()] = struct{}{}
		}
	}
	orphans := make([]string, 0)
	for key := range t.entries {
		if _, ok := known[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	for _, key := range orphans {
		report(key, "date does not exist in year %d", year)
	}

	return problems
}

// Generate builds a sequential table for a Hebrew year: the catalog sections
// in canonical order, one chapter per day, continuing across years so the
// whole corpus is eventually covered.
func Generate(year int, catalog *domain.Catalog) *Table {
	total := 0
	for _, s := range catalog.Sections() {
		total += s.Chapters
	}

	// Continuation offset: later years pick up roughly where the previous
	// year left off. 354 is the common-year length.
	const baseYear = 5786
	offset := ((year - baseYear) * 354) % total
	if offset < 0 {
		offset += total
	}

	entries := make(map[string]domain.ScheduleEntry)
	index := offset
	for _, month := range hebcal.YearMonths(year) {
		for day := 1; day <= hebcal.DaysInMonth(year, month); day++ {
			sectionIdx, chapter := locate(catalog, index%total)
			section := catalog.Sections()[sectionIdx]

			note := ""
			if index%total == 0 && index != offset {
				note = "cycle restarts"
			} else if chapter == 1 && index != offset {
				note = "new section: " + section.Name
			}

			key := hebcal.Date{Year: year, Month: month, Day: day}.Key()
			entries[key] = domain.ScheduleEntry{
				DateKey:   key,
				Excerpt:   domain.Excerpt{SectionID: section.ID, Chapter: chapter},
				HebrewRef: fmt.Sprintf("ליקוטי הלכות, %s %s", section.HebrewName, hebcal.Numeral(chapter)),
				Note:      note,
			}
			index++
		}
	}

	return &Table{
		meta: Meta{
			Calendar:    "hebrew",
			Year:        year,
			Description: "Likutei Halachot Yomi daily learning schedule",
			Source:      "sequential learning order",
		},
		entries: entries,
	}
}

// locate maps a flat portion index onto (section index, chapter).
func locate(catalog *domain.Catalog, index int) (int, int) {
	for i, s := range catalog.Sections() {
		if index < s.Chapters {
			return i, index + 1
		}
		index -= s.Chapters
	}
	return 0, 1
}

// Encode writes the table back to its JSON file format.
func (t *Table) Encode(w io.Writer) error {
	raw := fileFormat{Meta: t.meta, Schedule: make(map[string]fileEntry, len(t.entries))}
	for key, e := range t.entries {
		raw.Schedule[key] = fileEntry{
			Section: e.Excerpt.SectionID,
			Chapter: e.Excerpt.Chapter,
			Part:    e.Excerpt.Part,
			HeRef:   e.HebrewRef,
			Note:    e.Note,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(raw)
}
