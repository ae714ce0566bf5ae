package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

// ParseTargets reads one place per line as "name | location". The location
// part is optional. Blank lines and lines starting with # are skipped.
func ParseTargets(r io.Reader) ([]models.Target, error) {
	var targets []models.Target

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, location, _ := strings.Cut(line, "|")
		target := models.Target{
			Name:     strings.TrimSpace(name),
			Location: strings.TrimSpace(location),
		}
		if target.Name == "" {
			return nil, fmt.Errorf("line %d: place name is required", lineNo)
		}
		targets = append(targets, target)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}
	return targets, nil
}

func LoadTargets(path string) ([]models.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ParseTargets(f)
}
