package reviews

import (
	"regexp"
	"strconv"
	"strings"
)

// LocalGuideMarker flags reviewers Google marks as trusted.
const LocalGuideMarker = "Local Guide"

const infoSeparator = "·"

var (
	leadingNumberPattern = regexp.MustCompile(`^\d+(?:[.,]\d+)?`)
	digitsPattern        = regexp.MustCompile(`\d[\d,.\s]*`)
)

// ParseRating takes the star label ("4 stars", "4.5/5") and returns the leading
// number of its first token. A token without a leading number is returned as is.
func ParseRating(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	if num := leadingNumberPattern.FindString(fields[0]); num != "" {
		return num
	}
	return fields[0]
}

// ParseReviewerInfo reads the reviewer descriptor, e.g. "Local Guide · 128 reviews".
func ParseReviewerInfo(info string) (localGuide bool, reviewCount string) {
	localGuide = strings.Contains(info, LocalGuideMarker)

	for _, part := range strings.Split(info, infoSeparator) {
		part = strings.TrimSpace(part)
		if !strings.Contains(strings.ToLower(part), "review") {
			continue
		}
		if fields := strings.Fields(part); len(fields) > 0 {
			reviewCount = fields[0]
		}
		break
	}

	return localGuide, reviewCount
}

// ParseTotalReviews reads the place-level count, e.g. "1,234 reviews".
// It returns 0 when no count is present.
func ParseTotalReviews(text string) int {
	match := digitsPattern.FindString(text)
	if match == "" {
		return 0
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)

	total, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return total
}
