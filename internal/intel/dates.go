package intel

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"januar": time.January, "jan": time.January, "jänner": time.January, "january": time.January,
	"februar": time.February, "feb": time.February, "february": time.February,
	"märz": time.March, "maerz": time.March, "mär": time.March, "mrz": time.March, "march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"juni": time.June, "jun": time.June, "june": time.June,
	"juli": time.July, "jul": time.July, "july": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "okt": time.October, "october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"dezember": time.December, "dez": time.December, "december": time.December, "dec": time.December,
}

var (
	dottedDatePattern   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4}|\d{2})$`)
	slashDatePattern    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	namedDatePattern    = regexp.MustCompile(`^(\d{1,2})\.?\s+(\p{L}+)\.?\s+(\d{4})$`)
	namedMonthPattern   = regexp.MustCompile(`^(\p{L}+)\.?\s+(\d{4})$`)
	isoMonthPattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	dottedMonthPattern  = regexp.MustCompile(`^(\d{1,2})[./](\d{4})$`)
	relativeDatePattern = regexp.MustCompile(`^vor\s+(\d+|einer|einem|eine|ein)\s+(\p{L}+)$`)
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// truncateDay keeps the calendar date of t at midnight UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthStart returns the first day of t's month in UTC.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func lookupMonth(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSuffix(name, "."))]
	return m, ok
}

// ParseDate recognises German and ISO calendar formats as well as German
// relative phrases ("vor 3 Monaten", "gestern"), which resolve against asOf.
// Months count as 30 days and years as 365, matching the review source.
func ParseDate(field, s string, asOf time.Time) (Opt[time.Time], error) {
	if isBlank(s) {
		return Unknown[time.Time](), nil
	}
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	if t, ok := parseRelative(lower, asOf); ok {
		return Known(t), nil
	}
	if m := dottedDatePattern.FindStringSubmatch(lower); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if t, ok := makeDate(year, atoi(m[2]), atoi(m[1])); ok {
			return Known(t), nil
		}
	}
	if m := slashDatePattern.FindStringSubmatch(lower); m != nil {
		if t, ok := makeDate(atoi(m[3]), atoi(m[2]), atoi(m[1])); ok {
			return Known(t), nil
		}
	}
	if m := namedDatePattern.FindStringSubmatch(lower); m != nil {
		if month, ok := lookupMonth(m[2]); ok {
			if t, ok := makeDate(atoi(m[3]), int(month), atoi(m[1])); ok {
				return Known(t), nil
			}
		}
	}
	if m := namedMonthPattern.FindStringSubmatch(lower); m != nil {
		if month, ok := lookupMonth(m[1]); ok {
			return Known(time.Date(atoi(m[2]), month, 1, 0, 0, 0, 0, time.UTC)), nil
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Known(truncateDay(t)), nil
		}
	}
	return Unknown[time.Time](), &DateParseError{Field: field, Value: s}
}

func parseRelative(s string, asOf time.Time) (time.Time, bool) {
	today := truncateDay(asOf)
	switch s {
	case "heute", "today", "gerade eben":
		return today, true
	case "gestern", "yesterday":
		return today.AddDate(0, 0, -1), true
	case "vorgestern":
		return today.AddDate(0, 0, -2), true
	}
	m := relativeDatePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if m[1][0] >= '0' && m[1][0] <= '9' {
		n = atoi(m[1])
	}
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "stunde"), strings.HasPrefix(unit, "minute"):
		if strings.HasPrefix(unit, "minute") {
			return truncateDay(asOf.UTC().Add(-time.Duration(n) * time.Minute)), true
		}
		return truncateDay(asOf.UTC().Add(-time.Duration(n) * time.Hour)), true
	case strings.HasPrefix(unit, "tag"):
		return today.AddDate(0, 0, -n), true
	case strings.HasPrefix(unit, "woche"):
		return today.AddDate(0, 0, -7*n), true
	case strings.HasPrefix(unit, "monat"):
		return today.AddDate(0, 0, -30*n), true
	case strings.HasPrefix(unit, "jahr"):
		return today.AddDate(0, 0, -365*n), true
	default:
		return time.Time{}, false
	}
}

// ParseMonth reads a month key ("2024-03", "03.2024", "März 2024" or any full
// date) and returns the first day of that month.
func ParseMonth(field, s string, asOf time.Time) (time.Time, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	if m := isoMonthPattern.FindStringSubmatch(lower); m != nil {
		if t, ok := makeDate(atoi(m[1]), atoi(m[2]), 1); ok {
			return t, nil
		}
	}
	if m := dottedMonthPattern.FindStringSubmatch(lower); m != nil {
		if t, ok := makeDate(atoi(m[2]), atoi(m[1]), 1); ok {
			return t, nil
		}
	}
	d, err := ParseDate(field, raw, asOf)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := d.Get()
	if !ok {
		return time.Time{}, &DateParseError{Field: field, Value: s}
	}
	return monthStart(t), nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
