// Package selection implements the deterministic daily excerpt selection.
package selection

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"halacha-yomi-bot/internal/domain"
)

// maxReseedAttempts bounds the reject-and-reseed loop. When the attempts
// exhaust, the colliding excerpt is accepted: non-repetition is a soft
// guarantee, determinism is not.
const maxReseedAttempts = 50

// Random selects two excerpts from two different sections, seeded purely by
// the calendar date. The same date always yields the same pair, regardless
// of host, process or wall clock.
type Random struct {
	catalog  *domain.Catalog
	lookback int // years of same-day history to avoid repeating
}

// NewRandom builds the strategy. Returns a ConfigurationError when the
// catalog cannot support selection.
func NewRandom(catalog *domain.Catalog, lookbackYears int) (*Random, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if lookbackYears < 0 {
		lookbackYears = 0
	}
	return &Random{catalog: catalog, lookback: lookbackYears}, nil
}

// mix derives a well-distributed 64-bit value from the seed parts. SHA-256
// keeps the mapping stable across Go releases, unlike math/rand.
func mix(parts ...string) uint64 {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return binary.BigEndian.Uint64(sum[:8])
}

func isoDay(date time.Time) string {
	return date.Format("2006-01-02")
}

// pickSections deterministically chooses two distinct sections for the day.
func (s *Random) pickSections(iso string) (domain.Section, domain.Section) {
	sections := s.catalog.Sections()
	first := sections[mix(iso, "section-1")%uint64(len(sections))]

	rest := make([]domain.Section, 0, len(sections)-1)
	for _, sec := range sections {
		if sec.ID != first.ID {
			rest = append(rest, sec)
		}
	}
	second := rest[mix(iso, "section-2")%uint64(len(rest))]
	return first, second
}

// pickChapter maps the day onto a chapter of the section. The attempt counter
// feeds the hash so rejected candidates reseed deterministically.
func pickChapter(iso string, section domain.Section, slot, attempt int) int {
	h := mix(iso, section.ID, "chapter", strconv.Itoa(slot), strconv.Itoa(attempt))
	return 1 + int(h%uint64(section.Chapters))
}

// baseSelection is the attempt-zero pick for a date, before any history
// rejection. History replay uses it so prior years never need recursion.
func (s *Random) baseSelection(date time.Time) []domain.Excerpt {
	iso := isoDay(date)
	first, second := s.pickSections(iso)
	return []domain.Excerpt{
		{SectionID: first.ID, Chapter: pickChapter(iso, first, 1, 0)},
		{SectionID: second.ID, Chapter: pickChapter(iso, second, 2, 0)},
	}
}

// history replays the base selection for the same day-of-year in prior years.
// Derived on demand: there is no stored list to drift out of sync.
func (s *Random) history(date time.Time) map[domain.Excerpt]struct{} {
	seen := make(map[domain.Excerpt]struct{}, s.lookback*2)
	for back := 1; back <= s.lookback; back++ {
		prior := date.AddDate(-back, 0, 0)
		for _, ex := range s.baseSelection(prior) {
			seen[ex] = struct{}{}
		}
	}
	return seen
}

// Select implements domain.Selector.
func (s *Random) Select(date time.Time) (domain.DailySelection, error) {
	iso := isoDay(date)
	first, second := s.pickSections(iso)
	seen := s.history(date)

	excerpts := make([]domain.Excerpt, 0, 2)
	for slot, section := range []domain.Section{first, second} {
		excerpt := domain.Excerpt{SectionID: section.ID, Chapter: pickChapter(iso, section, slot+1, 0)}
		for attempt := 1; attempt <= maxReseedAttempts; attempt++ {
			if _, collided := seen[excerpt]; !collided {
				break
			}
			excerpt.Chapter = pickChapter(iso, section, slot+1, attempt)
		}
		excerpts = append(excerpts, excerpt)
	}

	return domain.DailySelection{
		Date:     date,
		Excerpts: excerpts,
		Strategy: domain.StrategyRandom,
	}, nil
}
