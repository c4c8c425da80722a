// Package dates resolves calendar dates from short transcript fragments.
//
// Resolution runs a fixed list of strategies in order and stops at the
// first hit: relative weekday keywords ("coming Saturday"), keyed or bare
// month-name forms ("by 20th October", "October 20th"), then numeric
// slash/dash dates. Fragments with no recognizable date resolve to nothing;
// defaulting is a caller decision.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	relativeDayRe  = regexp.MustCompile(`(?i)\b(?:coming|next|this)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	keyedDayFirst  = regexp.MustCompile(`(?i)\b(?:by|within|before|due)\s+(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)`)
	keyedMonthOnly = regexp.MustCompile(`(?i)\b(?:by|within|before|due)\s+([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	bareMonthDay   = regexp.MustCompile(`(?i)\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	numericRe      = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
)

// Resolve extracts a calendar date from fragment relative to ref.
// The boolean is false when no strategy matched. Results are normalized
// to midnight in ref's location.
func Resolve(fragment string, ref time.Time) (time.Time, bool) {
	ref = midnight(ref)

	if d, ok := resolveWeekday(fragment, ref); ok {
		return d, true
	}
	if d, ok := resolveMonthName(fragment, ref); ok {
		return d, true
	}
	if d, ok := resolveNumeric(fragment, ref); ok {
		return d, true
	}
	return time.Time{}, false
}

// resolveWeekday handles "coming Saturday" style fragments. The result is
// strictly after ref: when ref already falls on the named weekday, a full
// week is added.
func resolveWeekday(fragment string, ref time.Time) (time.Time, bool) {
	m := relativeDayRe.FindStringSubmatch(fragment)
	if m == nil {
		return time.Time{}, false
	}
	target := weekdays[strings.ToLower(m[1])]
	ahead := (int(target) - int(ref.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return ref.AddDate(0, 0, ahead), true
}

// resolveMonthName handles keyed forms ("by 20th October", "due October 20")
// and bare "October 20th". The year comes from ref, rolling forward when the
// combined date would fall before ref.
func resolveMonthName(fragment string, ref time.Time) (time.Time, bool) {
	type attempt struct {
		re       *regexp.Regexp
		dayFirst bool
	}
	attempts := []attempt{
		{keyedDayFirst, true},
		{keyedMonthOnly, false},
		{bareMonthDay, false},
	}

	for _, a := range attempts {
		for _, m := range a.re.FindAllStringSubmatch(fragment, -1) {
			monthStr, dayStr := m[1], m[2]
			if a.dayFirst {
				monthStr, dayStr = m[2], m[1]
			}
			month, ok := months[strings.ToLower(monthStr)]
			if !ok {
				continue
			}
			day, err := strconv.Atoi(dayStr)
			if err != nil {
				continue
			}
			d, ok := makeDate(ref.Year(), month, day, ref.Location())
			if !ok {
				continue
			}
			if d.Before(ref) {
				d, ok = makeDate(ref.Year()+1, month, day, ref.Location())
				if !ok {
					continue
				}
			}
			return d, true
		}
	}
	return time.Time{}, false
}

// resolveNumeric handles D/M/Y and M/D/Y slash or dash dates, trying the
// month-first ordering before day-first and accepting whichever yields a
// valid calendar date. Two-digit years are read as 2000s.
func resolveNumeric(fragment string, ref time.Time) (time.Time, bool) {
	m := numericRe.FindStringSubmatch(fragment)
	if m == nil {
		return time.Time{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}

	orderings := [][2]int{{a, b}, {b, a}} // {month, day}
	for _, o := range orderings {
		if o[0] < 1 || o[0] > 12 {
			continue
		}
		if d, ok := makeDate(year, time.Month(o[0]), o[1], ref.Location()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// makeDate builds a date and rejects inputs that Go would normalize away
// (e.g. February 30).
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
