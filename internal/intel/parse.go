package intel

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalPattern = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)
	countPattern   = regexp.MustCompile(`\d{1,3}(?:[.,\s']\d{3})+|\d+`)
)

var (
	indicatorPresent = map[string]bool{
		"ja": true, "yes": true, "y": true, "true": true, "1": true, "x": true,
		"vorhanden": true, "aktiv": true,
	}
	indicatorAbsent = map[string]bool{
		"nein": true, "no": true, "n": true, "false": true, "0": true, "-": true,
		"keine": true, "kein": true, "none": true,
	}
	unknownTokens = map[string]bool{
		"": true, "n/a": true, "na": true, "nan": true, "null": true, "?": true,
		"unknown": true, "unbekannt": true, "k.a.": true, "k. a.": true,
	}
)

func isBlank(s string) bool {
	return unknownTokens[strings.ToLower(strings.TrimSpace(s))]
}

// parseDecimal extracts the first number in s. A comma is accepted as
// decimal separator.
func parseDecimal(s string) (float64, bool) {
	m := decimalPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRating converts a star rating such as "4,5 Sterne" into [0,5].
func ParseRating(field, s string) (Opt[float64], error) {
	if isBlank(s) {
		return Unknown[float64](), nil
	}
	v, ok := parseDecimal(s)
	if !ok {
		return Unknown[float64](), &ValidationError{Field: field, Message: "not a number", Value: s}
	}
	if v < 0 || v > 5 {
		return Unknown[float64](), &ValidationError{Field: field, Message: "rating outside [0,5]", Value: s}
	}
	return Known(v), nil
}

// ParseCount takes the first digit run, treating "." "," and spaces as
// thousands separators, so "1.234 Rezensionen" yields 1234.
func ParseCount(field, s string) (Opt[int], error) {
	if isBlank(s) {
		return Unknown[int](), nil
	}
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		return Unknown[int](), &ValidationError{Field: field, Message: "count must be non-negative", Value: s}
	}
	m := countPattern.FindString(s)
	if m == "" {
		return Unknown[int](), &ValidationError{Field: field, Message: "no digits found", Value: s}
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Unknown[int](), &ValidationError{Field: field, Message: "count out of range", Value: s}
	}
	return Known(n), nil
}

// ParseRate converts "45%", "0,45" or "45" into a fraction in [0,1].
// Values in (1,100] are read as percentages.
func ParseRate(field, s string) (Opt[float64], error) {
	if isBlank(s) {
		return Unknown[float64](), nil
	}
	v, ok := parseDecimal(s)
	if !ok {
		return Unknown[float64](), &ValidationError{Field: field, Message: "not a number", Value: s}
	}
	switch {
	case v < 0:
		return Unknown[float64](), &ValidationError{Field: field, Message: "rate must be non-negative", Value: s}
	case strings.Contains(s, "%") || v > 1:
		if v > 100 {
			return Unknown[float64](), &ValidationError{Field: field, Message: "rate above 100%", Value: s}
		}
		return Known(v / 100), nil
	default:
		return Known(v), nil
	}
}

// ParseHours reads a non-negative duration in hours.
func ParseHours(field, s string) (Opt[float64], error) {
	if isBlank(s) {
		return Unknown[float64](), nil
	}
	v, ok := parseDecimal(s)
	if !ok {
		return Unknown[float64](), &ValidationError{Field: field, Message: "not a number", Value: s}
	}
	if v < 0 {
		return Unknown[float64](), &ValidationError{Field: field, Message: "hours must be non-negative", Value: s}
	}
	return Known(v), nil
}

// ParseIndicator reads a presence flag. Affirmative tokens, URLs and handles
// count as present; negative tokens as absent; blanks stay unknown.
func ParseIndicator(s string) Opt[bool] {
	token := strings.ToLower(strings.TrimSpace(s))
	switch {
	case unknownTokens[token]:
		return Unknown[bool]()
	case indicatorAbsent[token]:
		return Known(false)
	case indicatorPresent[token]:
		return Known(true)
	default:
		return Known(true)
	}
}
