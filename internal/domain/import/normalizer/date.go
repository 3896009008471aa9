// Package normalizer converts raw export cells into the canonical record shape:
// monthly date tokens, signed amounts and alias-resolved text fields.
package normalizer

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial days between 1899-12-30 and the Unix epoch.
const serialEpochOffset = 25569

// Serial numbers outside this open interval are not treated as spreadsheet dates.
const (
	minSerialDate = 30000
	maxSerialDate = 60000
)

// monthTokens is indexed by calendar month (0-11).
var monthTokens = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// monthLookup resolves month tokens and names to calendar month numbers (1-12).
// Hebrew abbreviations keep older snapshots orderable.
var monthLookup = map[string]int{
	"ינו": 1, "פבר": 2, "מרץ": 3, "אפר": 4, "מאי": 5, "יונ": 6,
	"יול": 7, "אוג": 8, "ספט": 9, "אוק": 10, "נוב": 11, "דצמ": 12,
	"ינואר": 1, "פברואר": 2, "אפריל": 4, "יוני": 6, "יולי": 7, "אוגוסט": 8,
	"ספטמבר": 9, "אוקטובר": 10, "נובמבר": 11, "דצמבר": 12,
}

func init() {
	for i, tok := range monthTokens {
		monthLookup[strings.ToLower(tok)] = i + 1
		full := strings.ToLower(time.Month(i + 1).String())
		monthLookup[full] = i + 1
	}
}

// Calendar layouts tried in order. Ambiguous slashed and dashed dates read
// month first, the way browser date parsing does; day-first layouts catch
// the dates whose first field cannot be a month.
var dateFormats = []string{
	// ISO
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01",

	// Month first
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"01-02-2006",
	"1-2-2006",

	// Day first
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/06",
	"2/1/06",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",

	// Month and year
	"01/2006",
	"1/2006",
	"January 2006",
	"Jan 2006",
	"January 06",
	"Jan-2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// NormalizeDate converts a date-like cell into a "Mon-YY" token.
// Tokens that already look canonical pass through, spreadsheet serials are
// converted, anything else goes through calendar parsing. Input that cannot be
// resolved is returned unchanged.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "-") && !hasNumericPrefix(raw) {
		return raw
	}

	if n, ok := leadingFloat(raw); ok && n > minSerialDate && n < maxSerialDate {
		return FormatMonth(SerialToTime(n))
	}

	if t, ok := parseCalendarDate(raw); ok {
		return FormatMonth(t)
	}

	return raw
}

// FromYearMonth builds a token directly from separate year and month cells.
// ok is false when either side cannot be resolved.
func FromYearMonth(year, month string) (string, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 0 {
		return "", false
	}

	m, ok := monthNumber(month)
	if !ok {
		return "", false
	}

	return formatToken(m, y), true
}

// SerialToTime converts a spreadsheet serial day count to a UTC calendar date.
func SerialToTime(serial float64) time.Time {
	days := int64(math.Floor(serial - serialEpochOffset))
	return time.Unix(days*86400, 0).UTC()
}

// FormatMonth renders t as a canonical token.
func FormatMonth(t time.Time) string {
	return formatToken(int(t.Month()), t.Year())
}

func formatToken(month, year int) string {
	return monthTokens[month-1] + "-" + twoDigitYear(year)
}

func twoDigitYear(year int) string {
	s := strconv.Itoa(year)
	if len(s) >= 2 {
		return s[len(s)-2:]
	}
	return "0" + s
}

// ComparableDate maps a token to year*100+month for ordering. Unrecognized
// months contribute 0 and malformed tokens return 0, so they sort first.
func ComparableDate(token string) int {
	monthPart, yearPart, ok := strings.Cut(token, "-")
	if !ok {
		return 0
	}
	if i := strings.Index(yearPart, "-"); i >= 0 {
		yearPart = yearPart[:i]
	}

	y, err := strconv.Atoi(strings.TrimSpace(yearPart))
	if err != nil {
		return 0
	}

	m := monthLookup[strings.ToLower(strings.TrimSpace(monthPart))]
	return (y+2000)*100 + m
}

// MonthSpan counts the calendar months from start to end inclusive. Missing
// tokens count as a single month and unknown month names as January.
func MonthSpan(start, end string) int {
	if start == "" || end == "" {
		return 1
	}

	sy, sm := tokenParts(start)
	ey, em := tokenParts(end)

	return (ey-sy)*12 + (em - sm) + 1
}

func tokenParts(token string) (year, month int) {
	monthPart, yearPart, _ := strings.Cut(token, "-")
	month = monthLookup[strings.ToLower(strings.TrimSpace(monthPart))]
	if month == 0 {
		month = 1
	}
	y, _ := strconv.Atoi(strings.TrimSpace(yearPart))
	return y + 2000, month
}

func monthNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 1 && n <= 12 {
			return n, true
		}
		return 0, false
	}
	if m, ok := monthLookup[strings.ToLower(raw)]; ok {
		return m, true
	}
	return 0, false
}

func parseCalendarDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
