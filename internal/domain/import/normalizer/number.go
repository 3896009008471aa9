package normalizer

import (
	"strconv"
	"strings"
)

// ParseNumber reads an amount or quantity cell. Every character other than
// digits, '-' and '.' is dropped first, so currency symbols and thousands
// separators are ignored. The longest numeric prefix of the remainder is used;
// a cell with no number parses as 0.
func ParseNumber(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return -1
	}, raw)

	n, _ := leadingFloat(cleaned)
	return n
}

// leadingFloat parses the longest decimal prefix of s after leading spaces,
// ignoring whatever follows it.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t")
	end := numericPrefixLen(s)
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func hasNumericPrefix(s string) bool {
	_, ok := leadingFloat(s)
	return ok
}

// numericPrefixLen returns the length of the longest prefix of the form
// [+-]?digits[.digits][e[+-]digits] (or [+-]?.digits). Zero means no number
// was found.
func numericPrefixLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}

	intStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	intDigits := i - intStart

	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		fracDigits = j - i - 1
		if intDigits > 0 || fracDigits > 0 {
			i = j
		}
	}

	if intDigits == 0 && fracDigits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			i = j
		}
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
