package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ageDaysRe    = regexp.MustCompile(`(\d+)\s*d`)
	ageHoursRe   = regexp.MustCompile(`(\d+)\s*h`)
	ageMinutesRe = regexp.MustCompile(`(\d+)\s*m`)
)

// ParseAge converts a scraped age label such as "2 d 3 h" or "45 min" into
// minutes. Missing components count as zero; an unparseable label is 0.
func ParseAge(label string) int {
	minutes := 0
	if m := ageDaysRe.FindStringSubmatch(label); m != nil {
		minutes += atoi(m[1]) * 24 * 60
	}
	if m := ageHoursRe.FindStringSubmatch(label); m != nil {
		minutes += atoi(m[1]) * 60
	}
	if m := ageMinutesRe.FindStringSubmatch(label); m != nil {
		minutes += atoi(m[1])
	}
	return minutes
}

// ParseAgeInput accepts either a plain number of minutes or a label.
func ParseAgeInput(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	return ParseAge(s)
}

// FormatAge renders minutes as the label shown in the age column.
func FormatAge(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	days := minutes / 1440
	hours := (minutes % 1440) / 60
	mins := minutes % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%d d %d hrs", days, hours)
	case hours > 0:
		return fmt.Sprintf("%d h %d min", hours, mins)
	default:
		return fmt.Sprintf("%d min", mins)
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
