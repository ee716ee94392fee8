package domain

import (
	"fmt"
	"time"
)

// Section is one of the four fixed volumes of Likutei Halachot.
type Section struct {
	ID         string
	Name       string
	HebrewName string
	Chapters   int
	RefBase    string
}

// Excerpt identifies one addressable chapter within a section.
type Excerpt struct {
	SectionID string `json:"section"`
	Chapter   int    `json:"chapter"`
	Part      int    `json:"part,omitempty"` // zero when the entry addresses the whole chapter
}

// Ref builds the Sefaria reference for the excerpt.
func (e Excerpt) Ref(c *Catalog) string {
	section, ok := c.ByID(e.SectionID)
	if !ok {
		return ""
	}
	ref := fmt.Sprintf("%s.%d", section.RefBase, e.Chapter)
	if e.Part > 0 {
		ref = fmt.Sprintf("%s.%d", ref, e.Part)
	}
	return ref
}

// CacheKey is the excerpt's key in the fetched-text cache.
func (e Excerpt) CacheKey() string {
	return fmt.Sprintf("text:%s:%d:%d", e.SectionID, e.Chapter, e.Part)
}

// Strategy names the selection algorithm that produced a DailySelection.
type Strategy string

const (
	StrategyRandom   Strategy = "random"
	StrategyCalendar Strategy = "calendar"
	// StrategyCalendarFallback marks a calendar lookup that fell back to the
	// random strategy because the schedule table had no entry for the date.
	StrategyCalendarFallback Strategy = "calendar_fallback"
)

// DailySelection is the pair of excerpts assigned to one calendar date.
// For a given date and strategy the selection is a pure function of the date.
type DailySelection struct {
	Date     time.Time
	Excerpts []Excerpt
	Strategy Strategy
	Notes    []string
}

// DateKey returns the ISO day the selection belongs to.
func (s DailySelection) DateKey() string {
	return s.Date.Format("2006-01-02")
}

// ScheduleEntry is one day's portion in the yearly learning table.
type ScheduleEntry struct {
	DateKey   string // "month:day" in the Hebrew calendar, e.g. "tishrei:1"
	Excerpt   Excerpt
	HebrewRef string
	Note      string
}

// Subscriber is a chat that receives the daily broadcast.
type Subscriber struct {
	ChatID       int64
	SubscribedAt time.Time
}

// FetchedText is the corpus text for one excerpt.
type FetchedText struct {
	Hebrew  string `json:"hebrew"`
	English string `json:"english,omitempty"`
	URL     string `json:"url"`
}

// MessageChunk is one channel-ready message produced by the formatter.
type MessageChunk struct {
	Text      string
	ParseMode string
}

// SendFailure records one recipient that could not be delivered to.
type SendFailure struct {
	ChatID int64  `json:"chat_id"`
	Reason string `json:"reason"`
}

// BroadcastReport is the structured result of one daily broadcast run.
type BroadcastReport struct {
	ID        string
	Date      time.Time
	Selection DailySelection
	Delivered []int64
	Failed    []SendFailure
}

// Ok reports whether every recipient received the broadcast.
func (r BroadcastReport) Ok() bool {
	return len(r.Failed) == 0
}
