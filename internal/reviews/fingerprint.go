package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fingerprint identifies a rendered review. The source id attribute is used
// when present; when the review carries no id, its position in the rendered
// list at first sighting stands in for it. Positions are never reused within
// a run, but a list that reorders id-less reviews can still confuse them.
//
// A failed read is returned as an error rather than falling back, so a review
// that has an id is never recorded under its position as well.
func Fingerprint(ctx context.Context, d Driver, h Handle, idAttr string, position int) (string, error) {
	if idAttr == "" {
		return positionalID(position), nil
	}

	id, err := d.ReadAttribute(ctx, h, idAttr)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("failed to read review id: %w", err)
	}
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	return positionalID(position), nil
}

func positionalID(position int) string {
	return fmt.Sprintf("idx-%d", position)
}
