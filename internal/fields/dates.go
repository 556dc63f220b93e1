package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var (
	reISODate = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDMYDate = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[-/. ]\s*(\d{1,2}|[a-z]{3,9})\.?[-/., ]\s*(\d{4}|\d{2})\b`)
)

// NormalizeDate parses a day-month-year date (or an already canonical one)
// and returns it as YYYY-MM-DD. ok is false for anything out of range.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := reISODate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return canonical(y, mo, d)
	}
	m := reDMYDate.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return fromParts(m[1], m[2], m[3])
}

func fromParts(day, month, year string) (string, bool) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return "", false
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		name := strings.ToLower(month)
		if len(name) < 3 {
			return "", false
		}
		var ok bool
		if mo, ok = months[name[:3]]; !ok {
			return "", false
		}
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	if len(year) == 2 {
		y += 2000
	}
	return canonical(y, mo, d)
}

func canonical(y, mo, d int) (string, bool) {
	if d < 1 || d > 31 || mo < 1 || mo > 12 || y < 1990 || y > 2100 {
		return "", false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		// 31 April, 30 February
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
}

// FindDate returns the first normalizable date in text.
func FindDate(text string) (string, bool) {
	for _, loc := range dateLocs(text) {
		if v, ok := NormalizeDate(text[loc[0]:loc[1]]); ok {
			return v, true
		}
	}
	return "", false
}

func dateLocs(text string) [][]int {
	locs := append(reISODate.FindAllStringIndex(text, -1), reDMYDate.FindAllStringIndex(text, -1)...)
	// reading order
	for i := 1; i < len(locs); i++ {
		for j := i; j > 0 && locs[j][0] < locs[j-1][0]; j-- {
			locs[j], locs[j-1] = locs[j-1], locs[j]
		}
	}
	return locs
}

// labeledDate finds the first date that follows one of the labels, on the
// label's line or the line after it.
func labeledDate(lines []string, label *regexp.Regexp) (string, bool) {
	for i, ln := range lines {
		loc := label.FindStringIndex(ln)
		if loc == nil {
			continue
		}
		if v, ok := FindDate(ln[loc[1]:]); ok {
			return v, true
		}
		if i+1 < len(lines) {
			if v, ok := FindDate(lines[i+1]); ok {
				return v, true
			}
		}
	}
	return "", false
}
