package reviews

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTimeout       = errors.New("timed out waiting for element")
	ErrNotFound      = errors.New("element not found")
	ErrInvalidHandle = errors.New("invalid element handle")
)

// Handle is an opaque reference to a rendered element. Only the Driver that
// returned it knows how to use it.
type Handle any

// Driver is the page automation collaborator the engine runs against.
// Every wait is bounded by its timeout; none of them block indefinitely.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string

	// FindFirst waits up to timeout for selector to match and returns
	// ErrTimeout when it never does.
	FindFirst(ctx context.Context, selector string, timeout time.Duration) (Handle, error)
	FindAll(ctx context.Context, selector string) ([]Handle, error)
	// FindIn returns the first descendant of h matching selector or ErrNotFound.
	FindIn(ctx context.Context, h Handle, selector string) (Handle, error)

	Click(ctx context.Context, h Handle) error
	ScrollIntoViewAndExpand(ctx context.Context, container Handle) error
	// ScrollPage scrolls the whole document; used when no container is found.
	ScrollPage(ctx context.Context) error

	// ReadText returns the visible text of the first descendant of h matching
	// selector, or ErrNotFound. An empty selector reads h itself.
	ReadText(ctx context.Context, h Handle, selector string) (string, error)
	ReadAttribute(ctx context.Context, h Handle, name string) (string, error)
	InnerHTML(ctx context.Context, h Handle) (string, error)

	// WaitUntil polls pred until it reports true or timeout elapses.
	WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) bool
}

// readOptionalText treats a missing element as an empty value.
func readOptionalText(ctx context.Context, d Driver, h Handle, selector string) (string, error) {
	text, err := d.ReadText(ctx, h, selector)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return text, err
}
