package domain

// Catalog holds the fixed corpus structure. Loaded once at startup and never
// mutated afterwards.
type Catalog struct {
	sections []Section
	byID     map[string]Section
}

// NewCatalog builds a catalog from the given sections.
func NewCatalog(sections []Section) *Catalog {
	byID := make(map[string]Section, len(sections))
	for _, s := range sections {
		byID[s.ID] = s
	}
	return &Catalog{sections: sections, byID: byID}
}

// DefaultCatalog returns the four volumes of Likutei Halachot.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Section{
		{ID: "orach_chaim", Name: "Orach Chaim", HebrewName: "אורח חיים", Chapters: 280, RefBase: "Likutei_Halakhot,_Orach_Chaim"},
		{ID: "yoreh_deah", Name: "Yoreh Deah", HebrewName: "יורה דעה", Chapters: 200, RefBase: "Likutei_Halakhot,_Yoreh_Deah"},
		{ID: "even_haezer", Name: "Even HaEzer", HebrewName: "אבן העזר", Chapters: 80, RefBase: "Likutei_Halakhot,_Even_HaEzer"},
		{ID: "choshen_mishpat", Name: "Choshen Mishpat", HebrewName: "חושן משפט", Chapters: 75, RefBase: "Likutei_Halakhot,_Choshen_Mishpat"},
	})
}

// Sections returns the sections in canonical order.
func (c *Catalog) Sections() []Section {
	return c.sections
}

// ByID looks up a section.
func (c *Catalog) ByID(id string) (Section, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Validate checks the catalog is usable for selection.
func (c *Catalog) Validate() error {
	if len(c.sections) < 2 {
		return &ConfigurationError{Reason: "catalog needs at least two sections"}
	}
	for _, s := range c.sections {
		if s.Chapters <= 0 {
			return &ConfigurationError{Reason: "section " + s.ID + " has no chapters"}
		}
	}
	return nil
}
