package hebcal

import "strconv"

var dayNumerals = map[int]string{
	1: "א׳", 2: "ב׳", 3: "ג׳", 4: "ד׳", 5: "ה׳",
	6: "ו׳", 7: "ז׳", 8: "ח׳", 9: "ט׳", 10: "י׳",
	11: "י״א", 12: "י״ב", 13: "י״ג", 14: "י״ד", 15: "ט״ו",
	16: "ט״ז", 17: "י״ז", 18: "י״ח", 19: "י״ט", 20: "כ׳",
	21: "כ״א", 22: "כ״ב", 23: "כ״ג", 24: "כ״ד", 25: "כ״ה",
	26: "כ״ו", 27: "כ״ז", 28: "כ״ח", 29: "כ״ט", 30: "ל׳",
}

var yearLetters = []struct {
	value  int
	letter string
}{
	{400, "ת"}, {300, "ש"}, {200, "ר"}, {100, "ק"},
	{90, "צ"}, {80, "פ"}, {70, "ע"}, {60, "ס"}, {50, "נ"},
	{40, "מ"}, {30, "ל"}, {20, "כ"}, {10, "י"},
	{9, "ט"}, {8, "ח"}, {7, "ז"}, {6, "ו"}, {5, "ה"},
	{4, "ד"}, {3, "ג"}, {2, "ב"}, {1, "א"},
}

// DayHebrew renders a day of month with the traditional numeral marks.
func DayHebrew(day int) string {
	if s, ok := dayNumerals[day]; ok {
		return s
	}
	return strconv.Itoa(day)
}

// Numeral renders a number in Hebrew letters with the traditional marks,
// e.g. 45 as מ״ה and 280 as ר״פ. Numbers outside 1..999 fall back to digits.
func Numeral(n int) string {
	if n < 1 || n > 999 {
		return strconv.Itoa(n)
	}
	letters := make([]rune, 0, 4)
	remainder := n
	for _, yl := range yearLetters {
		for remainder >= yl.value {
			letters = append(letters, []rune(yl.letter)...)
			remainder -= yl.value
		}
	}
	// 15 and 16 are never written יה or יו.
	if l := len(letters); l >= 2 && letters[l-2] == 'י' {
		switch letters[l-1] {
		case 'ה':
			letters[l-2], letters[l-1] = 'ט', 'ו'
		case 'ו':
			letters[l-2], letters[l-1] = 'ט', 'ז'
		}
	}
	if len(letters) == 1 {
		return string(letters) + "׳"
	}
	last := letters[len(letters)-1]
	return string(letters[:len(letters)-1]) + "״" + string(last)
}

// YearHebrew renders a Hebrew year, e.g. 5786 as ה׳תשפ״ו.
func YearHebrew(year int) string {
	remainder := year % 1000
	letters := make([]rune, 0, 8)
	for _, yl := range yearLetters {
		for remainder >= yl.value {
			letters = append(letters, []rune(yl.letter)...)
			remainder -= yl.value
		}
	}
	result := "ה׳" + string(letters)
	// Gershayim before the final letter.
	runes := []rune(result)
	if len(runes) > 3 {
		last := runes[len(runes)-1]
		result = string(runes[:len(runes)-1]) + "״" + string(last)
	}
	return result
}

// String renders the full Hebrew date, e.g. ט׳ שבט ה׳תשפ״ו.
func (d Date) String() string {
	return DayHebrew(d.Day) + " " + d.Month.Hebrew() + " " + YearHebrew(d.Year)
}
