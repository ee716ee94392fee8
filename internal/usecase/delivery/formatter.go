package delivery

import (
	"fmt"
	"strings"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/hebcal"
)

const (
	parseModeHTML = "HTML"

	// Markup appended after splitting (continuation heading, footer) is not
	// counted by the splitting budget, so keep a reserve for it.
	markupReserve = 200

	signature = "נ נח נחמ נחמן מאומן"
)

// Formatter renders a daily selection into channel-ready HTML messages.
type Formatter struct {
	catalog       *domain.Catalog
	limit         int
	includeFooter bool
}

func NewFormatter(catalog *domain.Catalog, limit int, includeFooter bool) *Formatter {
	if limit <= 0 {
		limit = 4096
	}
	return &Formatter{catalog: catalog, limit: limit, includeFooter: includeFooter}
}

// FormatDaily renders the selection and its fetched texts as a message
// sequence. texts must be parallel to selection.Excerpts. The Hebrew text is
// escaped before splitting and both sides of the budget are measured in
// UTF-16 units, so no message exceeds the transport limit and no split lands
// inside an HTML tag.
func (f *Formatter) FormatDaily(selection domain.DailySelection, texts []domain.FetchedText) []domain.MessageChunk {
	header := fmt.Sprintf("<b>📚 ליקוטי הלכות יומי</b> | %s | %s",
		selection.Date.Format("02/01/2006"),
		hebcal.FromGregorian(selection.Date))

	var chunks []domain.MessageChunk
	for i, excerpt := range selection.Excerpts {
		var text domain.FetchedText
		if i < len(texts) {
			text = texts[i]
		}
		head := ""
		if i == 0 {
			head = header
		}
		chunks = append(chunks, f.formatExcerpt(excerpt, i, text, head)...)
	}

	if len(chunks) == 0 {
		return nil
	}
	if f.includeFooter {
		last := &chunks[len(chunks)-1]
		last.Text += "\n\n<i>" + signature + "</i>"
	}
	return chunks
}

func (f *Formatter) formatExcerpt(excerpt domain.Excerpt, position int, text domain.FetchedText, header string) []domain.MessageChunk {
	title := f.title(excerpt, position, text.URL)
	volume := "<i>ליקוטי הלכות</i>"

	base := title + "\n" + volume + "\n\n"
	if header != "" {
		base = header + "\n\n" + base
	}
	link := fmt.Sprintf("\n\n<a href=\"%s\">המשך בספריא →</a>", text.URL)

	body := strings.TrimSpace(text.Hebrew)
	if body == "" {
		return []domain.MessageChunk{{
			Text:      base + "⚠️ הטקסט לא זמין כרגע. נסו שוב מאוחר יותר." + link,
			ParseMode: parseModeHTML,
		}}
	}

	budget := f.limit - utf16Len(base) - utf16Len(link) - markupReserve
	if budget < 1 {
		budget = 1
	}
	// Escape before splitting so the budget already accounts for entity
	// expansion; an escape-heavy body would otherwise blow past the limit.
	parts := mendEntities(SplitText(EscapeHTML(body), budget))

	out := make([]domain.MessageChunk, 0, len(parts))
	for i, part := range parts {
		prefix := base
		if i > 0 {
			prefix = title + " (המשך)\n\n"
		}
		msg := prefix + strings.TrimSpace(part)
		if i == len(parts)-1 {
			msg += link
		}
		out = append(out, domain.MessageChunk{Text: msg, ParseMode: parseModeHTML})
	}
	return out
}

// title builds the linked excerpt heading. The first excerpt of the day is
// labeled א, the second ב, matching the traditional pair order.
func (f *Formatter) title(excerpt domain.Excerpt, position int, url string) string {
	label, emoji := "א", "📜"
	if position > 0 {
		label, emoji = "ב", "📖"
	}

	name := excerpt.SectionID
	if section, ok := f.catalog.ByID(excerpt.SectionID); ok {
		name = section.HebrewName
	}
	heading := fmt.Sprintf("%s. %s %s", label, name, hebcal.Numeral(excerpt.Chapter))
	if url == "" {
		return fmt.Sprintf("%s <b>%s</b>", emoji, heading)
	}
	return fmt.Sprintf("%s <a href=\"%s\"><b>%s</b></a>", emoji, url, heading)
}

// EscapeHTML escapes the characters Telegram's HTML parse mode reserves.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// mendEntities moves an escape sequence that a hard cut left dangling at a
// chunk's tail onto the next chunk. In escaped text every '&' starts an
// entity terminated by ';' within a few characters, so only a trailing
// unterminated one can exist.
func mendEntities(parts []string) []string {
	for i := 0; i < len(parts)-1; i++ {
		idx := strings.LastIndexByte(parts[i], '&')
		if idx < 0 || strings.IndexByte(parts[i][idx:], ';') >= 0 {
			continue
		}
		parts[i+1] = parts[i][idx:] + parts[i+1]
		parts[i] = parts[i][:idx]
	}
	return parts
}

// utf16Len counts UTF-16 code units, which is how message length is measured
// by the Telegram Bot API.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n++
		if r > 0xFFFF {
			n++
		}
	}
	return n
}
