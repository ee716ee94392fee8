// Package hebcal converts between Gregorian and Hebrew dates.
//
// The arithmetic follows the fixed (calculated) Hebrew calendar: month lengths
// derive from the molad of Tishrei with the four postponement rules, so
// Cheshvan and Kislev vary per year and Adar II exists only in leap years.
package hebcal

import (
	"fmt"
	"time"
)

// Month numbers follow the biblical convention: Nisan is 1, even though the
// year number changes on 1 Tishrei.
type Month int

const (
	Nisan Month = iota + 1
	Iyar
	Sivan
	Tammuz
	Av
	Elul
	Tishrei
	Cheshvan
	Kislev
	Tevet
	Shevat
	Adar
	AdarII
)

var monthKeys = map[Month]string{
	Nisan:    "nisan",
	Iyar:     "iyar",
	Sivan:    "sivan",
	Tammuz:   "tammuz",
	Av:       "av",
	Elul:     "elul",
	Tishrei:  "tishrei",
	Cheshvan: "cheshvan",
	Kislev:   "kislev",
	Tevet:    "tevet",
	Shevat:   "shevat",
	Adar:     "adar",
	AdarII:   "adar_ii",
}

var monthHebrew = map[Month]string{
	Nisan:    "ניסן",
	Iyar:     "אייר",
	Sivan:    "סיון",
	Tammuz:   "תמוז",
	Av:       "אב",
	Elul:     "אלול",
	Tishrei:  "תשרי",
	Cheshvan: "חשוון",
	Kislev:   "כסלו",
	Tevet:    "טבת",
	Shevat:   "שבט",
	Adar:     "אדר",
	AdarII:   "אדר ב׳",
}

// Key returns the schedule-table key fragment for the month.
func (m Month) Key() string {
	return monthKeys[m]
}

// Hebrew returns the Hebrew month name.
func (m Month) Hebrew() string {
	return monthHebrew[m]
}

// Date is a Hebrew calendar date.
type Date struct {
	Year  int
	Month Month
	Day   int
}

// Key returns the "month:day" schedule-table key for the date.
func (d Date) Key() string {
	return fmt.Sprintf("%s:%d", d.Month.Key(), d.Day)
}

// IsLeapYear reports whether the Hebrew year has an Adar II.
func IsLeapYear(year int) bool {
	return (7*year+1)%19 < 7
}

// MonthsInYear returns 12 or 13.
func MonthsInYear(year int) int {
	if IsLeapYear(year) {
		return 13
	}
	return 12
}

// YearMonths returns the months of a Hebrew year in civil order, starting
// from Tishrei. Adar II appears only in leap years.
func YearMonths(year int) []Month {
	months := []Month{Tishrei, Cheshvan, Kislev, Tevet, Shevat, Adar}
	if IsLeapYear(year) {
		months = append(months, AdarII)
	}
	return append(months, Nisan, Iyar, Sivan, Tammuz, Av, Elul)
}

// elapsedDays counts days from the epoch molad to 1 Tishrei of the year,
// applying the dechiyot (postponement rules).
func elapsedDays(year int) int {
	cycles := (year - 1) / 19
	remainder := (year - 1) % 19
	monthsElapsed := 235*cycles + 12*remainder + (7*remainder+1)/19

	partsElapsed := 204 + 793*(monthsElapsed%1080)
	hoursElapsed := 5 + 12*monthsElapsed + 793*(monthsElapsed/1080) + partsElapsed/1080
	day := 1 + 29*monthsElapsed + hoursElapsed/24
	parts := 1080*(hoursElapsed%24) + partsElapsed%1080

	switch {
	case parts >= 19440, // molad after midday
		day%7 == 2 && parts >= 9924 && !IsLeapYear(year),   // GaTaRaD in a common year
		day%7 == 1 && parts >= 16789 && IsLeapYear(year-1): // BeTuTaKPaT after a leap year
		day++
	}
	// Rosh Hashanah may not fall on Sunday, Wednesday or Friday.
	switch day % 7 {
	case 0, 3, 5:
		day++
	}
	return day
}

// DaysInYear returns the length of the Hebrew year: 353-355 or 383-385.
func DaysInYear(year int) int {
	return elapsedDays(year+1) - elapsedDays(year)
}

func longCheshvan(year int) bool {
	return DaysInYear(year)%10 == 5
}

func shortKislev(year int) bool {
	return DaysInYear(year)%10 == 3
}

// DaysInMonth returns the month length for the given year.
func DaysInMonth(year int, month Month) int {
	switch month {
	case Iyar, Tammuz, Elul, Tevet, AdarII:
		return 29
	case Cheshvan:
		if longCheshvan(year) {
			return 30
		}
		return 29
	case Kislev:
		if shortKislev(year) {
			return 29
		}
		return 30
	case Adar:
		if IsLeapYear(year) {
			return 30 // Adar I
		}
		return 29
	default:
		return 30
	}
}

// hebrewEpoch aligns elapsedDays with rata die day numbers.
const hebrewEpoch = -1373429

func toAbs(d Date) int {
	abs := d.Day
	if d.Month < Tishrei {
		// Nisan through Elul fall after the Tishrei-led winter months.
		last := Month(MonthsInYear(d.Year))
		for m := Tishrei; m <= last; m++ {
			abs += DaysInMonth(d.Year, m)
		}
		for m := Nisan; m < d.Month; m++ {
			abs += DaysInMonth(d.Year, m)
		}
	} else {
		for m := Tishrei; m < d.Month; m++ {
			abs += DaysInMonth(d.Year, m)
		}
	}
	return abs + elapsedDays(d.Year) + hebrewEpoch
}

func gregorianLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var gregorianMonthDays = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func gregorianToAbs(year, month, day int) int {
	n := 365*(year-1) + (year-1)/4 - (year-1)/100 + (year-1)/400
	n += (367*month - 362) / 12
	if month > 2 {
		if gregorianLeap(year) {
			n--
		} else {
			n -= 2
		}
	}
	return n + day
}

func absToGregorian(abs int) (int, time.Month, int) {
	// Bisect years: 400/100/4/1-year blocks.
	d0 := abs - 1
	n400 := d0 / 146097
	d1 := d0 % 146097
	n100 := d1 / 36524
	d2 := d1 % 36524
	n4 := d2 / 1461
	d3 := d2 % 1461
	n1 := d3 / 365

	year := 400*n400 + 100*n100 + 4*n4 + n1
	// n100 or n1 of 4 means December 31 of a leap year, which belongs to the
	// year already accumulated.
	if n100 != 4 && n1 != 4 {
		year++
	}

	remaining := abs - gregorianToAbs(year, 1, 1)
	month := 1
	for {
		length := gregorianMonthDays[month]
		if month == 2 && gregorianLeap(year) {
			length = 29
		}
		if remaining < length {
			break
		}
		remaining -= length
		month++
	}
	return year, time.Month(month), remaining + 1
}

// FromGregorian converts a civil date to its Hebrew date. Only the year,
// month and day of t are considered.
func FromGregorian(t time.Time) Date {
	abs := gregorianToAbs(t.Year(), int(t.Month()), t.Day())

	year := (abs - hebrewEpoch) / 366
	for abs >= toAbs(Date{Year: year + 1, Month: Tishrei, Day: 1}) {
		year++
	}

	var month Month
	if abs < toAbs(Date{Year: year, Month: Nisan, Day: 1}) {
		month = Tishrei
	} else {
		month = Nisan
	}
	for abs > toAbs(Date{Year: year, Month: month, Day: DaysInMonth(year, month)}) {
		month++
	}

	day := abs - toAbs(Date{Year: year, Month: month, Day: 1}) + 1
	return Date{Year: year, Month: month, Day: day}
}

// ToGregorian converts a Hebrew date back to the civil calendar, at midnight UTC.
func ToGregorian(d Date) time.Time {
	year, month, day := absToGregorian(toAbs(d))
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
