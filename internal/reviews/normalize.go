package reviews

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	dotRunPattern       = regexp.MustCompile(`[.…]{2,}`)
	numericScorePattern = regexp.MustCompile(`^\d+(?:\.\d+)?(?:/\d+)?$`)
)

// NormalizeKey cleans a scraped metadata key and decides whether it is kept.
// Keys equal to "service" are split by value: numeric scores stay under
// "service", descriptive values move to "service_type".
func NormalizeKey(rawKey, rawValue string) (string, string, bool) {
	key := strings.TrimSpace(strings.TrimRight(rawKey, ": \t\r\n"))
	if !acceptKey(key) {
		return "", "", false
	}

	value := strings.TrimSpace(rawValue)
	if strings.EqualFold(key, "service") {
		if numericScorePattern.MatchString(value) {
			return "service", value, true
		}
		return "service_type", value, true
	}

	return key, value, true
}

func acceptKey(key string) bool {
	if utf8.RuneCountInString(key) <= 3 {
		return false
	}
	if dotRunPattern.MatchString(key) {
		return false
	}
	return !strings.HasSuffix(key, ".") && !strings.HasSuffix(key, "…")
}

// Universe accumulates every accepted attribute key seen during one run.
type Universe map[string]struct{}

func (u Universe) Add(key string) {
	u[key] = struct{}{}
}

func (u Universe) Has(key string) bool {
	_, ok := u[key]
	return ok
}

// Keys returns the keys in sorted order so column headers are stable.
func (u Universe) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// serviceSibling pairs the two keys a "Service" entry can land under. A
// review holds at most one of them.
var serviceSibling = map[string]string{
	"service":      "service_type",
	"service_type": "service",
}

// AttributeSet collects one review's metadata. Both extraction passes write
// through Set; a later write to the same key replaces the earlier one.
type AttributeSet struct {
	values   map[string]string
	universe Universe
}

func NewAttributeSet(universe Universe) *AttributeSet {
	return &AttributeSet{
		values:   make(map[string]string),
		universe: universe,
	}
}

// Set normalizes the pair and stores it. It reports whether the key was accepted.
func (a *AttributeSet) Set(rawKey, rawValue string) bool {
	key, value, ok := NormalizeKey(rawKey, rawValue)
	if !ok {
		return false
	}
	a.values[key] = value
	if sibling, ok := serviceSibling[key]; ok {
		delete(a.values, sibling)
	}
	if a.universe != nil {
		a.universe.Add(key)
	}
	return true
}

// Map returns a copy of the collected attributes.
func (a *AttributeSet) Map() map[string]string {
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}
